package fields

import (
	"strings"
	"unicode"
)

var nameLabels = map[string]bool{
	"NAME": true, "NAMES": true, "SURNAME": true, "GIVEN": true,
	"FIRST": true, "LAST": true, "LN": true, "FN": true,
	// Neighbouring field labels OCR can pull onto the name line.
	"DOB": true, "EXP": true, "ISS": true,
}

// ParseName keeps letters, spaces and ,'- and drops leading label words.
// It returns nil when nothing but labels remains.
func ParseName(raw string) *string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case unicode.IsLetter(r), r == ',', r == '\'', r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	words := strings.Fields(b.String())
	for len(words) > 0 && isNameLabel(words[0]) {
		words = words[1:]
	}
	if len(words) == 0 {
		return nil
	}

	onlyLabels := true
	for _, w := range words {
		if !isNameLabel(w) {
			onlyLabels = false
			break
		}
	}
	if onlyLabels {
		return nil
	}

	name := strings.Trim(strings.Join(words, " "), " ,-'")
	if name == "" {
		return nil
	}
	return &name
}

func isNameLabel(word string) bool {
	return nameLabels[strings.ToUpper(strings.Trim(word, ",-'"))]
}
