package handler

import (
	"encoding/base64"
	"strings"

	"idintake/internal/credential"
	dErrors "idintake/pkg/domain-errors"
)

// BeginRequest is the body for POST /credential/register/begin.
type BeginRequest struct {
	VerificationToken string `json:"verificationToken"`
}

func (r *BeginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.VerificationToken = strings.TrimSpace(r.VerificationToken)
	if r.VerificationToken == "" {
		return dErrors.New(dErrors.CodeValidation, "verificationToken is required")
	}
	return nil
}

// FinishRequest is the body for POST /credential/register/finish. Binary
// fields arrive base64url encoded.
type FinishRequest struct {
	ChallengeID    string `json:"challengeId"`
	CredentialID   string `json:"credentialId"`
	PublicKey      string `json:"publicKey"`
	ClientDataJSON string `json:"clientDataJSON"`

	publicKey  []byte
	clientData []byte
}

func (r *FinishRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.ChallengeID = strings.TrimSpace(r.ChallengeID)
	r.CredentialID = strings.TrimSpace(r.CredentialID)
	if r.ChallengeID == "" {
		return dErrors.New(dErrors.CodeValidation, "challengeId is required")
	}
	if r.CredentialID == "" {
		return dErrors.New(dErrors.CodeValidation, "credentialId is required")
	}
	if len(r.CredentialID) > 1024 {
		return dErrors.New(dErrors.CodeValidation, "credentialId is too long")
	}

	var err error
	if r.publicKey, err = decodeBase64(r.PublicKey); err != nil || len(r.publicKey) == 0 {
		return dErrors.New(dErrors.CodeValidation, "publicKey must be non-empty base64url")
	}
	if r.clientData, err = decodeBase64(r.ClientDataJSON); err != nil || len(r.clientData) == 0 {
		return dErrors.New(dErrors.CodeValidation, "clientDataJSON must be non-empty base64url")
	}
	return nil
}

// Attestation returns the decoded authenticator response.
func (r *FinishRequest) Attestation() credential.AttestationResponse {
	return credential.AttestationResponse{
		CredentialID:   r.CredentialID,
		PublicKey:      r.publicKey,
		ClientDataJSON: r.clientData,
	}
}

// decodeBase64 accepts base64url with or without padding, and standard
// base64 as sent by some clients.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if out, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "=")); err == nil {
		return out, nil
	}
	return base64.StdEncoding.DecodeString(s)
}
