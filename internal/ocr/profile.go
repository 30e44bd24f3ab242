package ocr

import (
	"github.com/otiai10/gosseract/v2"

	"idintake/internal/document"
)

// Profile is the set of recognition constraints for one kind of field.
type Profile struct {
	Name      string
	Whitelist string
	Mode      gosseract.PageSegMode
}

var (
	// ProfileIDNumber reads the fixed-length document number.
	ProfileIDNumber = Profile{Name: "id_number", Whitelist: "0123456789-", Mode: gosseract.PSM_SINGLE_LINE}
	// ProfileDate reads birth and expiry dates.
	ProfileDate = Profile{Name: "date", Whitelist: "0123456789/-.", Mode: gosseract.PSM_SINGLE_LINE}
	// ProfileName allows any character; names do not sit on one tight line
	// inside their crop.
	ProfileName = Profile{Name: "name", Mode: gosseract.PSM_SPARSE_TEXT}
	// ProfileDocument is the unconstrained whole-document pass.
	ProfileDocument = Profile{Name: "document", Mode: gosseract.PSM_SINGLE_BLOCK}
)

// ProfileFor maps a text field to its profile.
func ProfileFor(field document.Field) Profile {
	switch field {
	case document.FieldIDNumber:
		return ProfileIDNumber
	case document.FieldDOB, document.FieldExpiry:
		return ProfileDate
	case document.FieldName:
		return ProfileName
	default:
		return ProfileDocument
	}
}
