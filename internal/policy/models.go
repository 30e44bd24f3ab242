package policy

// Code is a stable identifier for one policy finding.
type Code string

// Hard errors. Any of these makes a verdict invalid.
const (
	CodeNoBirthDate          Code = "NO_BIRTH_DATE"
	CodeImplausibleBirthDate Code = "IMPLAUSIBLE_BIRTH_DATE"
	CodeUnderAge             Code = "UNDER_AGE"
	CodeExpired              Code = "EXPIRED"
)

// Warnings. Informational only; they never block.
const (
	CodeNoExpiryDate  Code = "NO_EXPIRY_DATE"
	CodeNoIDNumber    Code = "NO_ID_NUMBER"
	CodeNoName        Code = "NO_NAME"
	CodeLowConfidence Code = "LOW_CONFIDENCE"
)

// Issue is a coded, user-facing finding.
type Issue struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// Verdict is the outcome of evaluating one extraction. Errors and Warnings
// keep rule order so callers can show the first blocking reason.
type Verdict struct {
	IsValid   bool    `json:"isValid"`
	Age       *int    `json:"age,omitempty"`
	IsOverMin bool    `json:"isOver19"`
	IsExpired bool    `json:"isExpired"`
	Errors    []Issue `json:"errors"`
	Warnings  []Issue `json:"warnings"`
}

// FirstError returns the first blocking issue, if any.
func (v Verdict) FirstError() (Issue, bool) {
	if len(v.Errors) == 0 {
		return Issue{}, false
	}
	return v.Errors[0], true
}

// HasError reports whether code is among the errors.
func (v Verdict) HasError(code Code) bool {
	return hasCode(v.Errors, code)
}

// HasWarning reports whether code is among the warnings.
func (v Verdict) HasWarning(code Code) bool {
	return hasCode(v.Warnings, code)
}

func hasCode(issues []Issue, code Code) bool {
	for _, i := range issues {
		if i.Code == code {
			return true
		}
	}
	return false
}
