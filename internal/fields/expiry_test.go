package fields

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseExpiry(t *testing.T) {
	now := day(2024, time.June, 1)

	tests := []struct {
		name  string
		raw   string
		want  time.Time
		found bool
	}{
		{"labeled past date", "EXP 2023-01-01", day(2023, time.January, 1), true},
		{"garbled label", "EKP: 01/15/2027", day(2027, time.January, 15), true},
		{"valid until", "VALID UNTIL 2030.12.31", day(2030, time.December, 31), true},
		{"mashed separators", "EXP 2030105012", day(2030, time.May, 12), true},
		{"furthest future unlabeled", "ISS 2019-03-02 DOB 1985-07-04 2029-03-02", day(2029, time.March, 2), true},
		{"birth labeled date skipped", "DOB 2010-05-05 2012-01-01", day(2012, time.January, 1), true},
		{"issue date is never the expiry", "DOB 1990-05-14 ISS 2019-03-02", time.Time{}, false},
		{"delivered date skipped", "DEL: 2021/04/09 2028/04/09", day(2028, time.April, 9), true},
		{"date of issue skipped", "DATE OF ISSUE 2020-02-02", time.Time{}, false},
		{"outside window", "2060-01-01", time.Time{}, false},
		{"nothing", "hello", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseExpiry(tt.raw, now, DefaultExpiryRules())
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
