package fields

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"
	"time"
)

// ValidDate builds a UTC calendar date and rejects inputs that time.Date
// would silently roll over (2024-02-30 becomes March 1st otherwise).
func ValidDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// Age is the exact calendar age at now: whole years elapsed, minus one when
// the anniversary has not been reached yet this year.
func Age(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	return years
}

type dateForm int

const (
	formYearFirst dateForm = iota
	formAmbiguous
	formMashed
)

// candidate is one calendar-valid date found in OCR text. start/end are
// byte offsets of the match.
type candidate struct {
	date  time.Time
	start int
	end   int
	form  dateForm
	// floor is where the previous candidate ended; label lookbehind stops
	// there so a label is never attributed to two dates.
	floor int
}

var (
	yearFirstPattern = regexp.MustCompile(`\b(\d{4})\s?[/.\-]\s?(\d{1,2})\s?[/.\-]\s?(\d{1,2})\b`)
	ambiguousPattern = regexp.MustCompile(`\b(\d{1,2})\s?[/.\-]\s?(\d{1,2})\s?[/.\-]\s?(\d{4})\b`)

	// A separator misread as a digit: 2030105012 for 2030-05-12.
	mashedYearFirst = regexp.MustCompile(`\b(\d{4})\d(\d{2})\d(\d{2})\b`)
	mashedYearLast  = regexp.MustCompile(`\b(\d{2})\d(\d{2})\d(\d{4})\b`)
)

// scanDates returns every calendar-valid date in text, in text order.
// Ambiguous matches that overlap a year-first match are dropped.
func scanDates(text string, mashed bool) []candidate {
	var out []candidate
	var taken [][2]int

	for _, m := range yearFirstPattern.FindAllStringSubmatchIndex(text, -1) {
		y, mo, d := atoi(text, m, 2), atoi(text, m, 4), atoi(text, m, 6)
		taken = append(taken, [2]int{m[0], m[1]})
		if t, ok := ValidDate(y, mo, d); ok {
			out = append(out, candidate{date: t, start: m[0], end: m[1], form: formYearFirst})
		}
	}

	for _, m := range ambiguousPattern.FindAllStringSubmatchIndex(text, -1) {
		if overlaps(taken, m[0], m[1]) {
			continue
		}
		a, b, y := atoi(text, m, 2), atoi(text, m, 4), atoi(text, m, 6)
		if t, ok := monthFirstThenDayFirst(y, a, b); ok {
			out = append(out, candidate{date: t, start: m[0], end: m[1], form: formAmbiguous})
		}
	}

	if mashed {
		for _, m := range mashedYearFirst.FindAllStringSubmatchIndex(text, -1) {
			y, mo, d := atoi(text, m, 2), atoi(text, m, 4), atoi(text, m, 6)
			if !saneYear(y) || !saneMonthDay(mo, d) {
				continue
			}
			if t, ok := ValidDate(y, mo, d); ok {
				taken = append(taken, [2]int{m[0], m[1]})
				out = append(out, candidate{date: t, start: m[0], end: m[1], form: formMashed})
			}
		}
		for _, m := range mashedYearLast.FindAllStringSubmatchIndex(text, -1) {
			if overlaps(taken, m[0], m[1]) {
				continue
			}
			a, b, y := atoi(text, m, 2), atoi(text, m, 4), atoi(text, m, 6)
			if !saneYear(y) || (!saneMonthDay(a, b) && !saneMonthDay(b, a)) {
				continue
			}
			if t, ok := monthFirstThenDayFirst(y, a, b); ok {
				out = append(out, candidate{date: t, start: m[0], end: m[1], form: formMashed})
			}
		}
	}

	slices.SortStableFunc(out, func(a, b candidate) int { return cmp.Compare(a.start, b.start) })
	for i := 1; i < len(out); i++ {
		out[i].floor = min(out[i-1].end, out[i].start)
	}
	return out
}

func monthFirstThenDayFirst(year, first, second int) (time.Time, bool) {
	if t, ok := ValidDate(year, first, second); ok {
		return t, true
	}
	return ValidDate(year, second, first)
}

// Mashed matches are only trusted for years a card could carry.
func saneYear(year int) bool {
	return year >= 1900 && year < 2200
}

func saneMonthDay(month, day int) bool {
	return month >= 1 && month <= 12 && day >= 1 && day <= 31
}

func overlaps(spans [][2]int, start, end int) bool {
	for _, s := range spans {
		if start < s[1] && s[0] < end {
			return true
		}
	}
	return false
}

func atoi(text string, m []int, i int) int {
	n, _ := strconv.Atoi(text[m[i]:m[i+1]])
	return n
}

// prefix returns up to n bytes of text immediately before the candidate.
func (c candidate) prefix(text string, n int) string {
	from := max(c.start-n, c.floor, 0)
	return text[from:c.start]
}
