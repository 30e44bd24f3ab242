package handler

import (
	"encoding/base64"
	"math"
	"strings"

	"idintake/internal/verification"
	dErrors "idintake/pkg/domain-errors"
)

const (
	maxRawTextBytes   = 64 << 10
	maxEmbeddingWidth = 4096
)

// SubmitRequest is the body for POST /verification/submit. Either
// rawOcrText (fast path) or idPhoto (slow path) is required.
type SubmitRequest struct {
	RawOCRText          string    `json:"rawOcrText"`
	BirthDate           string    `json:"birthDate"`
	Age                 *int      `json:"age"`
	FaceMatchConfidence *float64  `json:"faceMatchConfidence"`
	IDPhoto             string    `json:"idPhoto"`
	IDFaceEmbedding     []float64 `json:"idFaceEmbedding"`
	SelfieEmbedding     []float64 `json:"selfieEmbedding"`

	photo []byte
}

func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.RawOCRText) > maxRawTextBytes {
		return dErrors.New(dErrors.CodeValidation, "rawOcrText is too long")
	}
	if len(r.IDFaceEmbedding) > maxEmbeddingWidth || len(r.SelfieEmbedding) > maxEmbeddingWidth {
		return dErrors.New(dErrors.CodeValidation, "face embedding is too long")
	}
	if c := r.FaceMatchConfidence; c != nil && (math.IsNaN(*c) || *c < 0 || *c > 1) {
		return dErrors.New(dErrors.CodeValidation, "faceMatchConfidence must be between 0 and 1")
	}
	r.BirthDate = strings.TrimSpace(r.BirthDate)

	if strings.TrimSpace(r.IDPhoto) != "" {
		photo, err := decodeImage(r.IDPhoto)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "idPhoto must be base64 encoded")
		}
		r.photo = photo
		return nil
	}
	if strings.TrimSpace(r.RawOCRText) == "" {
		return dErrors.New(dErrors.CodeValidation, "rawOcrText or idPhoto is required")
	}
	return nil
}

// Submission converts the request into the service input.
func (r *SubmitRequest) Submission() verification.Submission {
	return verification.Submission{
		RawOCRText:          r.RawOCRText,
		Claim:               verification.Claim{BirthDate: r.BirthDate, Age: r.Age},
		FaceMatchConfidence: r.FaceMatchConfidence,
		IDPhoto:             r.photo,
		IDFaceEmbedding:     r.IDFaceEmbedding,
		SelfieEmbedding:     r.SelfieEmbedding,
	}
}

// DocumentOCRRequest is the body for POST /internal/document/ocr.
type DocumentOCRRequest struct {
	Image string `json:"image"`

	raw []byte
}

func (r *DocumentOCRRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.Image) == "" {
		return dErrors.New(dErrors.CodeValidation, "image is required")
	}
	raw, err := decodeImage(r.Image)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "image must be base64 encoded")
	}
	r.raw = raw
	return nil
}

func (r *DocumentOCRRequest) Bytes() []byte {
	return r.raw
}

// decodeImage accepts plain base64 or a data URL.
func decodeImage(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	if out, err := base64.StdEncoding.DecodeString(s); err == nil {
		return out, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
