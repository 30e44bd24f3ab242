// Package verification is the server side trust boundary: it re-derives the
// birth date from submitted OCR text or a freshly processed image before any
// credential is issued.
package verification

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"idintake/internal/document"
	"idintake/internal/fields"
)

// TrustMode controls whether a client-claimed birth date may stand in for
// a failed server extraction.
type TrustMode string

const (
	// TrustLenient accepts a well-formed client claim when the server finds
	// no birth date. This is a known weakness kept for partial OCR text.
	TrustLenient TrustMode = "lenient"
	// TrustStrict rejects whenever the server finds no birth date.
	TrustStrict TrustMode = "strict"
)

// ParseTrustMode accepts "lenient" or "strict", case-insensitively.
func ParseTrustMode(s string) (TrustMode, error) {
	switch TrustMode(strings.ToLower(strings.TrimSpace(s))) {
	case TrustLenient, "":
		return TrustLenient, nil
	case TrustStrict:
		return TrustStrict, nil
	default:
		return "", fmt.Errorf("unknown trust mode %q", s)
	}
}

// Source records which value the gate decided on.
type Source string

const (
	SourceServer         Source = "server"
	SourceClientFallback Source = "client_fallback"
	SourceNone           Source = "none"
)

// Claim is what the client asserts about the document.
type Claim struct {
	BirthDate string
	Age       *int
}

// GateResult is the server's decision on one submission.
type GateResult struct {
	Passed    bool
	OCRPassed bool
	AgePassed bool
	Age       *int
	BirthDate string
	Source    Source
	// Strategy names the parser strategy on a server match.
	Strategy string
}

// GateConfig holds the gate thresholds.
type GateConfig struct {
	MinimumAge      int
	MaxPlausibleAge int
	TrustMode       TrustMode
	BirthRules      fields.BirthDateRules
}

func DefaultGateConfig() GateConfig {
	return GateConfig{
		MinimumAge:      19,
		MaxPlausibleAge: 150,
		TrustMode:       TrustLenient,
		BirthRules:      fields.DefaultBirthDateRules(),
	}
}

type birthParser func(raw string, now time.Time, rules fields.BirthDateRules) (*fields.BirthDate, bool)

// Gate re-runs the birth date parser on the server. It is stateless and safe
// for concurrent use.
type Gate struct {
	cfg    GateConfig
	parse  birthParser
	logger *slog.Logger
}

func NewGate(cfg GateConfig, logger *slog.Logger) *Gate {
	if cfg.MaxPlausibleAge <= 0 {
		cfg.MaxPlausibleAge = 150
	}
	if cfg.TrustMode == "" {
		cfg.TrustMode = TrustLenient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{cfg: cfg, parse: fields.ParseBirthDate, logger: logger}
}

func (g *Gate) Config() GateConfig {
	return g.cfg
}

// Revalidate decides on rawText and the client's claim:
//  1. a server-side birth date is authoritative, whatever the client claimed;
//  2. otherwise, in lenient mode, a well-formed claimed date implying an age
//     at or above the minimum is accepted;
//  3. otherwise the submission is rejected.
func (g *Gate) Revalidate(rawText string, claim Claim, now time.Time) GateResult {
	if bd, ok := g.extract(rawText, now); ok {
		age := bd.Age
		return GateResult{
			Passed:    g.ageAcceptable(age),
			OCRPassed: true,
			AgePassed: g.ageAcceptable(age),
			Age:       &age,
			BirthDate: bd.Normalized,
			Source:    SourceServer,
			Strategy:  bd.Strategy,
		}
	}

	if g.cfg.TrustMode == TrustLenient {
		if claimed, ok := parseClaimedDate(claim.BirthDate); ok {
			age := fields.Age(claimed, now)
			if age >= g.cfg.MinimumAge && age <= g.cfg.MaxPlausibleAge {
				return GateResult{
					Passed:    true,
					AgePassed: true,
					Age:       &age,
					BirthDate: claimed.Format(document.DateLayout),
					Source:    SourceClientFallback,
				}
			}
		}
	}

	return GateResult{Source: SourceNone}
}

func (g *Gate) ageAcceptable(age int) bool {
	return age >= g.cfg.MinimumAge && age <= g.cfg.MaxPlausibleAge
}

// extract treats a panic in the parser as a failed extraction.
func (g *Gate) extract(rawText string, now time.Time) (bd *fields.BirthDate, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("birth date extraction panicked", "panic", fmt.Sprint(r))
			bd, ok = nil, false
		}
	}()
	if strings.TrimSpace(rawText) == "" {
		return nil, false
	}
	return g.parse(rawText, now, g.cfg.BirthRules)
}

// parseClaimedDate accepts exactly YYYY-MM-DD naming a real calendar day.
func parseClaimedDate(s string) (time.Time, bool) {
	if len(s) != len(document.DateLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(document.DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
