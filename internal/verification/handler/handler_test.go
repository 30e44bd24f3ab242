package handler

import (
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"idintake/internal/credential"
	"idintake/internal/ocr"
	"idintake/internal/policy"
	"idintake/internal/verification"
	"idintake/internal/verification/handler/mocks"
	dErrors "idintake/pkg/domain-errors"
	"idintake/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/verification-mocks.go -package=mocks Service
type VerificationHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestVerificationHandlerSuite(t *testing.T) {
	suite.Run(t, new(VerificationHandlerSuite))
}

func (s *VerificationHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := New(s.service, logger)
	s.router = chi.NewRouter()
	h.Register(s.router)
	h.RegisterInternal(s.router)
}

func ptr[T any](v T) *T { return &v }

func (s *VerificationHandlerSuite) TestSubmitFastPath() {
	s.Run("passing submission returns token and registration", func() {
		s.service.EXPECT().Submit(gomock.Any(), verification.Submission{
			RawOCRText:          "DOB 1990-03-15",
			Claim:               verification.Claim{BirthDate: "1990-03-15", Age: ptr(34)},
			FaceMatchConfidence: ptr(0.9),
		}).Return(&verification.Result{
			Passed:       true,
			OCRPassed:    true,
			AgePassed:    true,
			Age:          ptr(34),
			Token:        "tok",
			Registration: &credential.RegistrationOptions{ChallengeID: "ch-1"},
		}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verification/submit", SubmitRequest{
			RawOCRText:          "DOB 1990-03-15",
			BirthDate:           " 1990-03-15 ",
			Age:                 ptr(34),
			FaceMatchConfidence: ptr(0.9),
		})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[SubmitResponse](s.T(), rr)
		s.True(resp.OCRPassed)
		s.True(resp.AgePassed)
		s.Equal(34, *resp.Age)
		s.Empty(resp.Error)
		s.Equal("tok", resp.VerificationToken)
		s.Equal("ch-1", resp.Registration.ChallengeID)
	})

	s.Run("failed submission is generic", func() {
		s.service.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(&verification.Result{
			OCRPassed: true,
			Age:       ptr(14),
			Reason:    verification.ReasonGateRejected,
			Token:     "must-not-leak",
		}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verification/submit", SubmitRequest{RawOCRText: "DOB 2010-05-05"})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[SubmitResponse](s.T(), rr)
		s.Equal("validation failed", resp.Error)
		s.Nil(resp.Age)
		s.Empty(resp.VerificationToken)
		s.Nil(resp.Registration)
	})
}

func (s *VerificationHandlerSuite) TestSubmitSlowPath() {
	photo := []byte{0x89, 'P', 'N', 'G'}
	s.service.EXPECT().Submit(gomock.Any(), verification.Submission{IDPhoto: photo, SelfieEmbedding: []float64{1, 2}}).
		Return(&verification.Result{
			Path:    verification.PathSlow,
			Verdict: &policy.Verdict{IsValid: false, Errors: []policy.Issue{{Code: policy.CodeExpired, Message: "expired"}}},
		}, nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verification/submit", SubmitRequest{
		IDPhoto:         "data:image/png;base64," + base64.StdEncoding.EncodeToString(photo),
		SelfieEmbedding: []float64{1, 2},
	})
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[SubmitResponse](s.T(), rr)
	s.Require().NotNil(resp.Verdict)
	s.True(resp.Verdict.HasError(policy.CodeExpired))
	s.Equal("validation failed", resp.Error)
}

func (s *VerificationHandlerSuite) TestSubmitValidation() {
	cases := []struct {
		name string
		body SubmitRequest
	}{
		{"empty body", SubmitRequest{}},
		{"confidence out of range", SubmitRequest{RawOCRText: "x", FaceMatchConfidence: ptr(1.5)}},
		{"photo not base64", SubmitRequest{IDPhoto: "%%%"}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verification/submit", tc.body)
			rr := testutil.DoRequest(s.router, req)
			testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
		})
	}
}

func (s *VerificationHandlerSuite) TestSubmitServiceErrors() {
	s.service.EXPECT().Submit(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeUnavailable, "ocr engine unavailable"))

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verification/submit", SubmitRequest{
		IDPhoto: base64.StdEncoding.EncodeToString([]byte("img")),
	})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusServiceUnavailable, string(dErrors.CodeUnavailable))
}

func (s *VerificationHandlerSuite) TestDocumentOCR() {
	s.Run("returns text and confidence", func() {
		s.service.EXPECT().ExtractText(gomock.Any(), []byte("img")).
			Return(ocr.Result{Text: "DOB 1990-03-15", Confidence: 81.5}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/internal/document/ocr", DocumentOCRRequest{
			Image: base64.StdEncoding.EncodeToString([]byte("img")),
		})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[ocr.Result](s.T(), rr)
		s.Equal("DOB 1990-03-15", resp.Text)
		s.Equal(81.5, resp.Confidence)
	})

	s.Run("missing image", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/internal/document/ocr", DocumentOCRRequest{})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("undecodable image", func() {
		s.service.EXPECT().ExtractText(gomock.Any(), gomock.Any()).
			Return(ocr.Result{}, dErrors.New(dErrors.CodeUnprocessable, "image could not be decoded"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/internal/document/ocr", DocumentOCRRequest{
			Image: base64.StdEncoding.EncodeToString([]byte("nope")),
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnprocessableEntity)
	})
}
