// Package policy turns an extracted document into a validation verdict.
// Policy violations are data, never errors.
package policy

import (
	"fmt"
	"time"

	"idintake/internal/document"
	"idintake/internal/fields"
)

// Config holds the overridable decision constants.
type Config struct {
	MinimumAge             int
	MaxPlausibleAge        int
	LowConfidenceThreshold float64
}

func DefaultConfig() Config {
	return Config{MinimumAge: 19, MaxPlausibleAge: 150, LowConfidenceThreshold: 60}
}

// Evaluator applies Config to extractions. It is stateless and safe for
// concurrent use.
type Evaluator struct {
	cfg Config
}

func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Config returns the evaluator's thresholds.
func (e *Evaluator) Config() Config {
	return e.cfg
}

// Evaluate applies the rule chain. Rule order:
//  1. Birth date present (hard)
//  2. Birth date plausible (hard)
//  3. Minimum age (hard)
//  4. Expiry not in the past, day granularity (hard); absent is a warning
//  5. ID number and name present (warnings)
//  6. OCR confidence (warning)
func (e *Evaluator) Evaluate(data document.ExtractedDocumentData, now time.Time) Verdict {
	v := Verdict{Errors: []Issue{}, Warnings: []Issue{}}

	// Rules 1-3
	if birth, ok := data.BirthDate(); !ok {
		v.Errors = append(v.Errors, Issue{
			Code:    CodeNoBirthDate,
			Message: "Could not find date of birth. Make sure it is clearly visible and retake the photo.",
		})
	} else {
		age := fields.Age(birth, now)
		v.Age = &age
		switch {
		case age < 0 || age > e.cfg.MaxPlausibleAge:
			v.Errors = append(v.Errors, Issue{
				Code:    CodeImplausibleBirthDate,
				Message: "The date of birth could not be read correctly. Retake the photo in better light.",
			})
		case age < e.cfg.MinimumAge:
			v.Errors = append(v.Errors, Issue{
				Code:    CodeUnderAge,
				Message: fmt.Sprintf("You must be at least %d years old.", e.cfg.MinimumAge),
			})
		default:
			v.IsOverMin = true
		}
	}

	// Rule 4
	if expiry, ok := data.Expiry(); ok {
		if isPastDay(expiry, now) {
			v.IsExpired = true
			v.Errors = append(v.Errors, Issue{
				Code:    CodeExpired,
				Message: fmt.Sprintf("This document expired on %s. Use a current ID.", expiry.Format(document.DateLayout)),
			})
		}
	} else {
		v.Warnings = append(v.Warnings, Issue{
			Code:    CodeNoExpiryDate,
			Message: "Could not read the expiry date.",
		})
	}

	// Rule 5
	if _, ok := data.IDNumber(); !ok {
		v.Warnings = append(v.Warnings, Issue{Code: CodeNoIDNumber, Message: "Could not read the ID number."})
	}
	if _, ok := data.Name(); !ok {
		v.Warnings = append(v.Warnings, Issue{Code: CodeNoName, Message: "Could not read the name."})
	}

	// Rule 6
	if data.Confidence < e.cfg.LowConfidenceThreshold {
		v.Warnings = append(v.Warnings, Issue{
			Code:    CodeLowConfidence,
			Message: "The photo is hard to read. Results may be incomplete.",
		})
	}

	v.IsValid = len(v.Errors) == 0 && v.IsOverMin && !v.IsExpired
	return v
}

// isPastDay compares calendar days in now's location; expiring today is
// still valid.
func isPastDay(expiry, now time.Time) bool {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	exp := time.Date(expiry.Year(), expiry.Month(), expiry.Day(), 0, 0, 0, 0, time.UTC)
	return exp.Before(today)
}
