package handler

import "idintake/internal/credential"

// FinishResponse is returned once the credential is stored.
type FinishResponse struct {
	CredentialID string `json:"credentialId"`
	DeviceName   string `json:"deviceName"`
}

func FromCredential(c *credential.Credential) FinishResponse {
	return FinishResponse{CredentialID: c.ID, DeviceName: c.DeviceName}
}
