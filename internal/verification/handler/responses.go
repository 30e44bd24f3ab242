package handler

import (
	"idintake/internal/credential"
	"idintake/internal/policy"
	"idintake/internal/verification"
)

// genericFailure is the only reason a client sees for a failed submission.
const genericFailure = "validation failed"

// SubmitResponse is the body returned by POST /verification/submit.
type SubmitResponse struct {
	OCRPassed         bool                            `json:"ocrPassed"`
	AgePassed         bool                            `json:"agePassed"`
	Age               *int                            `json:"age,omitempty"`
	Error             string                          `json:"error,omitempty"`
	Verdict           *policy.Verdict                 `json:"verdict,omitempty"`
	VerificationToken string                          `json:"verificationToken,omitempty"`
	Registration      *credential.RegistrationOptions `json:"registration,omitempty"`
}

// FromResult withholds the server's age unless the age check passed, so a
// failed submission does not reveal which check rejected it.
func FromResult(res *verification.Result) SubmitResponse {
	resp := SubmitResponse{
		OCRPassed: res.OCRPassed,
		AgePassed: res.AgePassed,
		Verdict:   res.Verdict,
	}
	if res.AgePassed {
		resp.Age = res.Age
	}
	if !res.Passed {
		resp.Error = genericFailure
		return resp
	}
	resp.VerificationToken = res.Token
	resp.Registration = res.Registration
	return resp
}
