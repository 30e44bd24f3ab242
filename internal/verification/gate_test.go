package verification

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idintake/internal/fields"
)

type GateSuite struct {
	suite.Suite
	gate *Gate
	now  time.Time
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	s.now = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	s.gate = NewGate(DefaultGateConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func intPtr(v int) *int { return &v }

func (s *GateSuite) TestServerExtractionIsAuthoritative() {
	s.Run("server date passes", func() {
		res := s.gate.Revalidate("NAME JANE DOE\nDOB 1990-03-15\nEXP 2030-01-01", Claim{BirthDate: "1990-03-15"}, s.now)
		s.True(res.Passed)
		s.True(res.OCRPassed)
		s.True(res.AgePassed)
		s.Equal(SourceServer, res.Source)
		s.Equal("1990-03-15", res.BirthDate)
		s.Equal(34, *res.Age)
	})

	s.Run("server date overrides a false claim", func() {
		res := s.gate.Revalidate("DOB 2010-05-05", Claim{BirthDate: "1985-01-01", Age: intPtr(39)}, s.now)
		s.False(res.Passed)
		s.True(res.OCRPassed)
		s.False(res.AgePassed)
		s.Equal(SourceServer, res.Source)
		s.Equal(14, *res.Age)
	})

	s.Run("implausible server age fails", func() {
		res := s.gate.Revalidate("DOB 1800-01-01", Claim{}, s.now)
		s.Equal(SourceServer, res.Source)
		s.False(res.Passed)
	})
}

func (s *GateSuite) TestLenientFallback() {
	// Raw text with no extractable date and a well formed adult claim.
	res := s.gate.Revalidate("JANE DOE 12345", Claim{BirthDate: "1985-01-01", Age: intPtr(39)}, s.now)
	s.True(res.Passed)
	s.False(res.OCRPassed)
	s.True(res.AgePassed)
	s.Equal(SourceClientFallback, res.Source)
	s.Equal(39, *res.Age)
	s.Equal("1985-01-01", res.BirthDate)
}

func (s *GateSuite) TestFallbackRejections() {
	cases := []struct {
		name  string
		claim Claim
	}{
		{"no claim", Claim{}},
		{"not iso format", Claim{BirthDate: "01/01/1985"}},
		{"short components", Claim{BirthDate: "1985-1-1"}},
		{"impossible day", Claim{BirthDate: "1985-02-30"}},
		{"under age claim", Claim{BirthDate: "2010-01-01"}},
		{"implausible claim", Claim{BirthDate: "1850-01-01"}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			res := s.gate.Revalidate("no dates in here", tc.claim, s.now)
			s.False(res.Passed)
			s.Equal(SourceNone, res.Source)
			s.Nil(res.Age)
		})
	}
}

func (s *GateSuite) TestStrictModeRejectsClaims() {
	cfg := DefaultGateConfig()
	cfg.TrustMode = TrustStrict
	gate := NewGate(cfg, nil)

	res := gate.Revalidate("JANE DOE", Claim{BirthDate: "1985-01-01", Age: intPtr(39)}, s.now)
	s.False(res.Passed)
	s.Equal(SourceNone, res.Source)

	res = gate.Revalidate("DOB 1985-01-01", Claim{}, s.now)
	s.True(res.Passed)
	s.Equal(SourceServer, res.Source)
}

func (s *GateSuite) TestParserPanicDegradesToFallback() {
	s.gate.parse = func(string, time.Time, fields.BirthDateRules) (*fields.BirthDate, bool) {
		panic("boom")
	}

	res := s.gate.Revalidate("DOB 1985-01-01", Claim{BirthDate: "1985-01-01"}, s.now)
	s.True(res.Passed)
	s.Equal(SourceClientFallback, res.Source)

	res = s.gate.Revalidate("DOB 1985-01-01", Claim{}, s.now)
	s.False(res.Passed)
	s.Equal(SourceNone, res.Source)
}

func (s *GateSuite) TestMinimumAgeBoundary() {
	// Nineteenth birthday today.
	res := s.gate.Revalidate("DOB 2005-06-01", Claim{}, s.now)
	s.True(res.Passed)
	s.Equal(19, *res.Age)

	res = s.gate.Revalidate("DOB 2005-06-02", Claim{}, s.now)
	s.False(res.Passed)
	s.Equal(18, *res.Age)
}

func TestParseTrustMode(t *testing.T) {
	for in, want := range map[string]TrustMode{"": TrustLenient, "LENIENT": TrustLenient, " strict ": TrustStrict} {
		got, err := ParseTrustMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseTrustMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseTrustMode("paranoid"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
