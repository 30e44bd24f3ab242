package verification

import (
	"idintake/internal/credential"
	"idintake/internal/policy"
)

// Path names how a submission reached the gate.
type Path string

const (
	// PathFast carries OCR text computed by the client.
	PathFast Path = "fast"
	// PathSlow carries the photo; the server runs the whole pipeline.
	PathSlow Path = "slow"
)

// Submission is one verification attempt as received from the client.
type Submission struct {
	RawOCRText          string
	Claim               Claim
	FaceMatchConfidence *float64

	IDPhoto         []byte
	IDFaceEmbedding []float64
	SelfieEmbedding []float64
}

func (s Submission) Path() Path {
	if len(s.IDPhoto) > 0 {
		return PathSlow
	}
	return PathFast
}

// Failure reasons. They are logged and audited but never returned to the
// client.
const (
	ReasonGateRejected    = "gate_rejected"
	ReasonDocumentInvalid = "document_invalid"
	ReasonFaceMismatch    = "face_mismatch"
)

// Result is the outcome of one submission.
type Result struct {
	Subject    string
	Path       Path
	Passed     bool
	OCRPassed  bool
	AgePassed  bool
	FacePassed bool
	Age        *int
	Source     Source
	// Verdict is set on the slow path only.
	Verdict      *policy.Verdict
	Token        string
	Registration *credential.RegistrationOptions
	Reason       string
}
