package document

import (
	"image"
	"time"
)

// DateLayout is the canonical normalized date form.
const DateLayout = "2006-01-02"

// FieldOcrResult is the OCR outcome for one region. Normalized is nil when
// the parser rejected the text, which is independent of OCR succeeding.
type FieldOcrResult struct {
	Field      Field
	RawText    string
	Confidence float64
	Crop       image.Image
	Normalized *string
}

// ExtractedDocumentData aggregates one OCR run. It is built once and not
// mutated afterwards.
type ExtractedDocumentData struct {
	Fields     map[Field]FieldOcrResult
	RawText    string
	Confidence float64
	Photo      image.Image
}

// Value returns a field's normalized value if present.
func (d ExtractedDocumentData) Value(field Field) (string, bool) {
	res, ok := d.Fields[field]
	if !ok || res.Normalized == nil || *res.Normalized == "" {
		return "", false
	}
	return *res.Normalized, true
}

func (d ExtractedDocumentData) Name() (string, bool)     { return d.Value(FieldName) }
func (d ExtractedDocumentData) IDNumber() (string, bool) { return d.Value(FieldIDNumber) }

// BirthDate returns the normalized birth date as a UTC calendar day.
func (d ExtractedDocumentData) BirthDate() (time.Time, bool) { return d.date(FieldDOB) }

// Expiry returns the normalized expiry date as a UTC calendar day.
func (d ExtractedDocumentData) Expiry() (time.Time, bool) { return d.date(FieldExpiry) }

func (d ExtractedDocumentData) date(field Field) (time.Time, bool) {
	v, ok := d.Value(field)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// MeanConfidence averages the confidence of the given results. Empty input
// yields 0.
func MeanConfidence(results []FieldOcrResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.Confidence
	}
	return sum / float64(len(results))
}
