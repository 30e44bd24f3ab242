package fields

import (
	"image"
	"regexp"
	"time"

	"idintake/internal/document"
)

// Rules bundles every parser's tunables.
type Rules struct {
	ID     IDFormat
	Birth  BirthDateRules
	Expiry ExpiryRules
}

func DefaultRules() Rules {
	return Rules{ID: DefaultIDFormat, Birth: DefaultBirthDateRules(), Expiry: DefaultExpiryRules()}
}

// The label and the name must share a line.
var nameLine = regexp.MustCompile(`(?im)^[ \t]*(?:NAME|LN|FN|SURNAME)\b[ \t:.]*([^\n]+)$`)

// BuildExtraction normalizes OCR results into ExtractedDocumentData. Each
// field is parsed from its own region first and from the whole-document
// text when the region yields nothing.
func BuildExtraction(results []document.FieldOcrResult, wholeText string, photo image.Image, now time.Time, rules Rules) document.ExtractedDocumentData {
	out := document.ExtractedDocumentData{
		Fields:  make(map[document.Field]document.FieldOcrResult, len(results)),
		RawText: wholeText,
		Photo:   photo,
	}

	for _, res := range results {
		res.Normalized = normalize(res.Field, res.RawText, now, rules)
		if res.Normalized == nil {
			res.Normalized = normalizeFromDocument(res.Field, wholeText, now, rules)
		}
		out.Fields[res.Field] = res
	}
	out.Confidence = document.MeanConfidence(results)
	return out
}

func normalize(field document.Field, text string, now time.Time, rules Rules) *string {
	if text == "" {
		return nil
	}
	switch field {
	case document.FieldName:
		return ParseName(text)
	case document.FieldIDNumber:
		return ParseIDNumber(text, rules.ID)
	case document.FieldDOB:
		if bd, ok := ParseBirthDate(text, now, rules.Birth); ok {
			return &bd.Normalized
		}
	case document.FieldExpiry:
		if exp, ok := ParseExpiry(text, now, rules.Expiry); ok {
			s := exp.Format(document.DateLayout)
			return &s
		}
	}
	return nil
}

func normalizeFromDocument(field document.Field, text string, now time.Time, rules Rules) *string {
	if text == "" {
		return nil
	}
	switch field {
	case document.FieldName:
		if m := nameLine.FindStringSubmatch(text); m != nil {
			return ParseName(m[1])
		}
		return nil
	case document.FieldIDNumber:
		return FindIDNumber(text, rules.ID)
	default:
		return normalize(field, text, now, rules)
	}
}
