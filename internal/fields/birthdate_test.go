package fields

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type BirthDateSuite struct {
	suite.Suite
	now   time.Time
	rules BirthDateRules
}

func TestBirthDateSuite(t *testing.T) {
	suite.Run(t, new(BirthDateSuite))
}

func (s *BirthDateSuite) SetupTest() {
	s.now = day(2024, time.June, 1)
	s.rules = DefaultBirthDateRules()
}

func (s *BirthDateSuite) parse(raw string) *BirthDate {
	bd, ok := ParseBirthDate(raw, s.now, s.rules)
	if !ok {
		return nil
	}
	return bd
}

func (s *BirthDateSuite) TestLabeled() {
	s.Run("year first", func() {
		bd := s.parse("DOB: 1990/05/14")
		s.Require().NotNil(bd)
		s.Equal("1990-05-14", bd.Normalized)
		s.Equal(34, bd.Age)
		s.Equal("labeled", bd.Strategy)
	})

	s.Run("month first wins when valid", func() {
		bd := s.parse("DATE OF BIRTH 05/14/1990")
		s.Require().NotNil(bd)
		s.Equal("1990-05-14", bd.Normalized)
	})

	s.Run("day first fallback", func() {
		bd := s.parse("D.O.B. 14.05.1990")
		s.Require().NotNil(bd)
		s.Equal("1990-05-14", bd.Normalized)
	})

	s.Run("label beats an older unlabeled date", func() {
		bd := s.parse("1950-01-01 ISS 2015-01-01 BIRTH 1990-05-14")
		s.Require().NotNil(bd)
		s.Equal("1990-05-14", bd.Normalized)
		s.Equal("labeled", bd.Strategy)
	})

	s.Run("labeled future date is returned for policy to judge", func() {
		bd := s.parse("DOB 2030-01-01")
		s.Require().NotNil(bd)
		s.Negative(bd.Age)
	})
}

func (s *BirthDateSuite) TestPlausibleWindow() {
	s.Run("issue and expiry dates are excluded", func() {
		bd := s.parse("ISS 2019-03-02 1985-07-04 EXP 2029-03-02")
		s.Require().NotNil(bd)
		s.Equal("1985-07-04", bd.Normalized)
		s.Equal("plausible_window", bd.Strategy)
	})

	s.Run("nearby label is preferred over an older date", func() {
		bd := s.parse("1950-01-01 BIRTH: x 1990-05-14")
		s.Require().NotNil(bd)
		s.Equal("1990-05-14", bd.Normalized)
		s.Equal("plausible_window", bd.Strategy)
	})

	s.Run("oldest unlabeled wins", func() {
		bd := s.parse("2001-02-03 1970-08-09")
		s.Require().NotNil(bd)
		s.Equal("1970-08-09", bd.Normalized)
	})
}

func (s *BirthDateSuite) TestOldestFallbacks() {
	s.Run("outside plausible window", func() {
		bd := s.parse("1935-02-03")
		s.Require().NotNil(bd)
		s.Equal("oldest_unexcluded", bd.Strategy)
	})

	s.Run("excluded dates as last resort", func() {
		bd := s.parse("ISS 1999-01-01")
		s.Require().NotNil(bd)
		s.Equal("1999-01-01", bd.Normalized)
		s.Equal("oldest_any", bd.Strategy)
		s.Equal(25, bd.Age)
	})
}

func (s *BirthDateSuite) TestNoBirthDate() {
	for _, raw := range []string{
		"",
		"EXP 2020-01-01",
		"DOB 2001/02/30",
		"no dates here at all",
		"12345-67890-54321",
	} {
		s.Nil(s.parse(raw), raw)
	}
}

func (s *BirthDateSuite) TestYearAloneIsUnread() {
	for _, raw := range []string{"DOB 1990", "BORN 1985", "1990"} {
		s.Nil(s.parse(raw), raw)
	}
}

func (s *BirthDateSuite) TestRulesAreOverridable() {
	s.rules.BroadMinYear = 1940
	s.Nil(s.parse("1935-02-03"))
}

func TestParseBirthDateIdempotent(t *testing.T) {
	now := day(2024, time.June, 1)
	raw := "ISS 2019-03-02\nDOB 07/04/1985\nEXP 2029-03-02"
	first, ok := ParseBirthDate(raw, now, DefaultBirthDateRules())
	require.True(t, ok)
	for i := 0; i < 20; i++ {
		again, ok := ParseBirthDate(raw, now, DefaultBirthDateRules())
		require.True(t, ok)
		assert.Equal(t, *first, *again)
	}
	assert.Equal(t, "1985-07-04", first.Normalized)
}
