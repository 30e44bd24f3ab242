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
	"idintake/internal/credential/handler/mocks"
	dErrors "idintake/pkg/domain-errors"
	"idintake/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/credential-mocks.go -package=mocks Service
type CredentialHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestCredentialHandlerSuite(t *testing.T) {
	suite.Run(t, new(CredentialHandlerSuite))
}

func (s *CredentialHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.router = chi.NewRouter()
	New(s.service, logger).Register(s.router)
}

func (s *CredentialHandlerSuite) TestBegin() {
	s.Run("returns challenge payload", func() {
		s.service.EXPECT().BeginRegistration(gomock.Any(), "tok").Return(&credential.RegistrationOptions{
			ChallengeID: "ch-1",
			Challenge:   "abc",
			RP:          credential.RelyingParty{ID: "localhost", Name: "ID Intake"},
			User:        credential.User{ID: "subject-1"},
			TimeoutMs:   300000,
		}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/credential/register/begin", BeginRequest{VerificationToken: " tok "})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[credential.RegistrationOptions](s.T(), rr)
		s.Equal("ch-1", resp.ChallengeID)
		s.Equal("subject-1", resp.User.ID)
	})

	s.Run("missing token is a validation error", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/credential/register/begin", BeginRequest{})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("invalid token is unauthorized", func() {
		s.service.EXPECT().BeginRegistration(gomock.Any(), "bad").
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "invalid verification token"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/credential/register/begin", BeginRequest{VerificationToken: "bad"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})

	s.Run("malformed json", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/credential/register/begin", "{")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})
}

func (s *CredentialHandlerSuite) TestFinish() {
	clientData := []byte(`{"type":"webauthn.create","challenge":"abc"}`)
	body := FinishRequest{
		ChallengeID:    "ch-1",
		CredentialID:   "cred-1",
		PublicKey:      base64.RawURLEncoding.EncodeToString([]byte("pk")),
		ClientDataJSON: base64.RawURLEncoding.EncodeToString(clientData),
	}

	s.Run("stores credential", func() {
		s.service.EXPECT().FinishRegistration(gomock.Any(), "ch-1", credential.AttestationResponse{
			CredentialID:   "cred-1",
			PublicKey:      []byte("pk"),
			ClientDataJSON: clientData,
		}, "test-agent").Return(&credential.Credential{ID: "cred-1", DeviceName: "Chrome on Linux"}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/credential/register/finish", body)
		req.Header.Set("User-Agent", "test-agent")
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[FinishResponse](s.T(), rr)
		s.Equal("cred-1", resp.CredentialID)
		s.Equal("Chrome on Linux", resp.DeviceName)
	})

	s.Run("standard base64 is accepted", func() {
		std := body
		std.PublicKey = base64.StdEncoding.EncodeToString([]byte("pk"))
		s.service.EXPECT().FinishRegistration(gomock.Any(), "ch-1", gomock.Any(), gomock.Any()).
			Return(&credential.Credential{ID: "cred-1"}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/credential/register/finish", std)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	})

	s.Run("bad public key encoding", func() {
		bad := body
		bad.PublicKey = "***"
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/credential/register/finish", bad)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("replayed challenge", func() {
		s.service.EXPECT().FinishRegistration(gomock.Any(), "ch-1", gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "challenge not found or already used"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/credential/register/finish", body)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
	})
}
