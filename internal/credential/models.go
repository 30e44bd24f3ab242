// Package credential is the issuance bridge: it turns a server-issued
// "age verified" token into a registered public-key credential.
package credential

import "time"

// Credential is the only record the system persists. It holds no document
// field, image or birth date.
type Credential struct {
	ID         string
	Subject    string
	PublicKey  []byte
	SignCount  uint32
	DeviceName string
	CreatedAt  time.Time
}

// AttestationResponse is what the authenticator returns at the end of the
// registration ceremony. The attestation itself is opaque here.
type AttestationResponse struct {
	CredentialID   string
	PublicKey      []byte
	ClientDataJSON []byte
}

// RelyingParty identifies this service to the authenticator.
type RelyingParty struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// User identifies the pending credential owner. ID is the verification
// subject, never a document number.
type User struct {
	ID string `json:"id"`
}

// RegistrationOptions is the challenge payload handed to the client.
type RegistrationOptions struct {
	ChallengeID string       `json:"challengeId"`
	Challenge   string       `json:"challenge"`
	RP          RelyingParty `json:"rp"`
	User        User         `json:"user"`
	TimeoutMs   int64        `json:"timeoutMs"`
}

// clientData is the subset of clientDataJSON that is checked on finish.
type clientData struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Origin    string `json:"origin,omitempty"`
}

const clientDataTypeCreate = "webauthn.create"
