package fields

import (
	"regexp"
	"strings"
)

// IDFormat describes the document number: the digit groups joined by
// hyphens. The required digit count is the sum of the groups.
type IDFormat struct {
	Groups []int
}

// DefaultIDFormat is the 15 digit, 5-5-5 license number.
var DefaultIDFormat = IDFormat{Groups: []int{5, 5, 5}}

// Digits is the exact digit count the format requires.
func (f IDFormat) Digits() int {
	n := 0
	for _, g := range f.Groups {
		n += g
	}
	return n
}

// ParseIDNumber strips everything but digits and regroups them. Any digit
// count other than the required one is rejected.
func ParseIDNumber(raw string, format IDFormat) *string {
	digits := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			digits = append(digits, raw[i])
		}
	}
	if len(digits) == 0 || len(digits) != format.Digits() {
		return nil
	}

	parts := make([]string, 0, len(format.Groups))
	at := 0
	for _, g := range format.Groups {
		parts = append(parts, string(digits[at:at+g]))
		at += g
	}
	out := strings.Join(parts, "-")
	return &out
}

var digitRun = regexp.MustCompile(`\d[\d -]*\d`)

// FindIDNumber looks for a run of digits in free text that parses as an ID
// number. It is the whole-document fallback for a failed region pass.
func FindIDNumber(text string, format IDFormat) *string {
	for _, run := range digitRun.FindAllString(text, -1) {
		if id := ParseIDNumber(run, format); id != nil {
			return id
		}
		for _, token := range strings.Fields(run) {
			if id := ParseIDNumber(token, format); id != nil {
				return id
			}
		}
	}
	return nil
}
