package fields

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestValidDate(t *testing.T) {
	tests := []struct {
		name             string
		year, month, day int
		valid            bool
	}{
		{"ordinary", 1990, 5, 14, true},
		{"leap day", 2024, 2, 29, true},
		{"non leap feb 29", 2023, 2, 29, false},
		{"feb 30 rolls over", 2024, 2, 30, false},
		{"april 31 rolls over", 2024, 4, 31, false},
		{"month 13", 2024, 13, 1, false},
		{"day zero", 2024, 1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ValidDate(tt.year, tt.month, tt.day)
			require.Equal(t, tt.valid, ok)
			if ok {
				assert.Equal(t, tt.year, got.Year())
				assert.Equal(t, tt.month, int(got.Month()))
				assert.Equal(t, tt.day, got.Day())
			}
		})
	}
}

func TestValidDateRoundTrip(t *testing.T) {
	for y := 1999; y <= 2001; y++ {
		for m := 1; m <= 12; m++ {
			for d := 1; d <= 31; d++ {
				got, ok := ValidDate(y, m, d)
				if !ok {
					continue
				}
				assert.Equal(t, [3]int{y, m, d}, [3]int{got.Year(), int(got.Month()), got.Day()})
			}
		}
	}
}

func TestAge(t *testing.T) {
	birth := day(2006, time.June, 1)
	assert.Equal(t, 17, Age(birth, day(2024, time.May, 31)))
	assert.Equal(t, 18, Age(birth, day(2024, time.June, 1)))
	assert.Equal(t, 34, Age(day(1990, time.May, 14), day(2024, time.June, 1)))
}

func TestAgeMonotonic(t *testing.T) {
	birth := day(1996, time.March, 15)
	prev := Age(birth, day(2020, time.January, 1))
	for now := day(2020, time.January, 2); now.Year() < 2023; now = now.AddDate(0, 0, 1) {
		got := Age(birth, now)
		require.GreaterOrEqual(t, got, prev, "age went backwards at %s", now)
		if now.Month() == birth.Month() && now.Day() == birth.Day() {
			require.Equal(t, prev+1, got, "anniversary %s", now)
		} else {
			require.Equal(t, prev, got, "age changed off anniversary at %s", now)
		}
		prev = got
	}
}

func TestScanDates(t *testing.T) {
	t.Run("ambiguous inside a year-first match is dropped", func(t *testing.T) {
		got := scanDates("1990/05/14", false)
		require.Len(t, got, 1)
		assert.Equal(t, formYearFirst, got[0].form)
	})

	t.Run("spaces around separators", func(t *testing.T) {
		got := scanDates("DOB 1990 / 05 / 14", false)
		require.Len(t, got, 1)
		assert.Equal(t, day(1990, time.May, 14), got[0].date)
	})

	t.Run("mashed only when asked", func(t *testing.T) {
		assert.Empty(t, scanDates("2030105012", false))
		got := scanDates("2030105012", true)
		require.Len(t, got, 1)
		assert.Equal(t, day(2030, time.May, 12), got[0].date)
	})

	t.Run("mashed sanity bounds", func(t *testing.T) {
		assert.Empty(t, scanDates("2030115512", true))
	})

	t.Run("text order with floors", func(t *testing.T) {
		got := scanDates("A 2001-01-01 B 02/03/1999", false)
		require.Len(t, got, 2)
		assert.True(t, got[0].start < got[1].start)
		assert.Equal(t, got[0].end, got[1].floor)
	})
}
