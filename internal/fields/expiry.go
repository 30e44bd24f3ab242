package fields

import (
	"regexp"
	"time"
)

// ExpiryRules bound the unlabeled expiry search.
type ExpiryRules struct {
	// Unlabeled candidates must fall in [now-PastYears, now+FutureYears].
	PastYears   int
	FutureYears int
	LabelWindow int
}

func DefaultExpiryRules() ExpiryRules {
	return ExpiryRules{PastYears: 15, FutureYears: 20, LabelWindow: 15}
}

// EXP and the shapes OCR usually turns it into.
var expiryLabelAdjacent = regexp.MustCompile(`(?i)(?:\bEXP(?:IRY|IRES|IRATION|\.)?|\bE[XK]P|\b3XP|\bEXF|\bEKP|VALID\s*(?:UNTIL|THRU|TO)|\bEXPIRY\s*DATE)[\s:.\-#]*$`)

// Issue labels: ISS, ISSUED, DATE OF ISSUE, DEL(ivered).
var issueLabelNearby = regexp.MustCompile(`(?i)(?:ISS|\bDEL|DATE\s*OF\s*ISSUE)`)

// ParseExpiry finds the expiry date in raw OCR text: a labeled date first,
// otherwise the furthest-future plausible date that is not labeled as a
// birth or issue date.
func ParseExpiry(raw string, now time.Time, rules ExpiryRules) (time.Time, bool) {
	cands := scanDates(raw, true)
	for _, c := range cands {
		if expiryLabelAdjacent.MatchString(c.prefix(raw, rules.LabelWindow+10)) {
			return c.date, true
		}
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	lo := today.AddDate(-rules.PastYears, 0, 0)
	hi := today.AddDate(rules.FutureYears, 0, 0)

	var best time.Time
	found := false
	for _, c := range cands {
		if c.date.Before(lo) || c.date.After(hi) {
			continue
		}
		near := c.prefix(raw, rules.LabelWindow)
		if birthLabelNearby.MatchString(near) || issueLabelNearby.MatchString(near) {
			continue
		}
		if !found || c.date.After(best) {
			best, found = c.date, true
		}
	}
	return best, found
}
