package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"NAME: JOHN O'NEIL-SMITH", "JOHN O'NEIL-SMITH"},
		{"LN DOE, JANE 123", "DOE, JANE"},
		{"  Maria\n  Lopez  ", "Maria Lopez"},
		{"J0HN D0E", "JHN DE"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ParseName(tt.raw)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParseNameRejects(t *testing.T) {
	for _, raw := range []string{"", "   ", "1234", "SURNAME", "NAME SURNAME", "Name:", "--"} {
		assert.Nil(t, ParseName(raw), raw)
	}
}

func TestParseNameOnlyFieldLabels(t *testing.T) {
	assert.Nil(t, ParseName("NAME DOB"))
	assert.Nil(t, ParseName("EXP"))
}
