package fields

import (
	"regexp"
	"time"

	"idintake/internal/document"
)

// BirthDateRules are the tunable bounds of the birth date heuristics.
type BirthDateRules struct {
	// PlausibleMinYear and PlausibleMinAge bound the birth-plausible window
	// [PlausibleMinYear, now.Year()-PlausibleMinAge] for unlabeled dates.
	PlausibleMinYear int
	PlausibleMinAge  int
	// BroadMinYear and BroadMinAge bound the oldest-date fallback range.
	BroadMinYear int
	BroadMinAge  int
	// LabelWindow is how many bytes before a date are searched for labels.
	LabelWindow int
}

// DefaultBirthDateRules returns the consolidated production thresholds.
func DefaultBirthDateRules() BirthDateRules {
	return BirthDateRules{
		PlausibleMinYear: 1940,
		PlausibleMinAge:  5,
		BroadMinYear:     1920,
		BroadMinAge:      16,
		LabelWindow:      15,
	}
}

// BirthDate is a resolved date of birth.
type BirthDate struct {
	Date       time.Time
	Normalized string
	Age        int
	Strategy   string
}

var (
	// Birth label directly in front of the date, allowing OCR punctuation noise.
	birthLabelAdjacent = regexp.MustCompile(`(?i)(?:\bD\.?\s?O\.?\s?B\.?|DATE\s*OF\s*BIRTH|BIRTH\s*DATE|\bBIRTH|\bBORN|\bDOB)[\s:.\-#]*$`)
	birthLabelNearby   = regexp.MustCompile(`(?i)(?:DOB|D\.O\.B|BIRTH|BORN)`)
	exclusionLabel     = regexp.MustCompile(`(?i)(?:ISS|EXP|DEL|VALID)`)
)

type birthStrategy struct {
	name string
	pick func(text string, cands []candidate, now time.Time, r BirthDateRules) (candidate, bool)
}

// birthStrategies run in order; the first one to pick a candidate wins.
var birthStrategies = []birthStrategy{
	{name: "labeled", pick: pickLabeledBirth},
	{name: "plausible_window", pick: pickPlausibleBirth},
	{name: "oldest_unexcluded", pick: pickOldestBirth(false)},
	{name: "oldest_any", pick: pickOldestBirth(true)},
}

// ParseBirthDate resolves the date of birth in raw OCR text. The result is
// deterministic for a given text and now.
func ParseBirthDate(raw string, now time.Time, rules BirthDateRules) (*BirthDate, bool) {
	cands := scanDates(raw, false)
	if len(cands) == 0 {
		return nil, false
	}
	for _, s := range birthStrategies {
		c, ok := s.pick(raw, cands, now, rules)
		if !ok {
			continue
		}
		return &BirthDate{
			Date:       c.date,
			Normalized: c.date.Format(document.DateLayout),
			Age:        Age(c.date, now),
			Strategy:   s.name,
		}, true
	}
	return nil, false
}

// An explicitly labeled date is taken as-is; the policy evaluator flags
// implausible ages.
func pickLabeledBirth(text string, cands []candidate, _ time.Time, r BirthDateRules) (candidate, bool) {
	for _, c := range cands {
		if birthLabelAdjacent.MatchString(c.prefix(text, r.LabelWindow+10)) {
			return c, true
		}
	}
	return candidate{}, false
}

func pickPlausibleBirth(text string, cands []candidate, now time.Time, r BirthDateRules) (candidate, bool) {
	var best candidate
	var bestLabeled, found bool
	for _, c := range cands {
		y := c.date.Year()
		if y < r.PlausibleMinYear || y > now.Year()-r.PlausibleMinAge {
			continue
		}
		if isExcluded(text, c, r.LabelWindow) {
			continue
		}
		labeled := birthLabelNearby.MatchString(c.prefix(text, r.LabelWindow))
		switch {
		case !found:
		case labeled && !bestLabeled:
		case labeled == bestLabeled && c.date.Before(best.date):
		default:
			continue
		}
		best, bestLabeled, found = c, labeled, true
	}
	return best, found
}

func pickOldestBirth(includeExcluded bool) func(string, []candidate, time.Time, BirthDateRules) (candidate, bool) {
	return func(text string, cands []candidate, now time.Time, r BirthDateRules) (candidate, bool) {
		var best candidate
		found := false
		for _, c := range cands {
			y := c.date.Year()
			if y < r.BroadMinYear || y > now.Year()-r.BroadMinAge {
				continue
			}
			if !includeExcluded && isExcluded(text, c, r.LabelWindow) {
				continue
			}
			if !found || c.date.Before(best.date) {
				best, found = c, true
			}
		}
		return best, found
	}
}

// isExcluded reports an issue/expiry label shortly before the date.
func isExcluded(text string, c candidate, window int) bool {
	return exclusionLabel.MatchString(c.prefix(text, window))
}
