// Package audit records decision and credential events. Events carry no
// document field, image or birth date.
package audit

import "time"

// Action names the audited step.
type Action string

const (
	ActionVerificationEvaluated Action = "verification_evaluated"
	ActionCredentialRegistered  Action = "credential_registered"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Subject   string    `json:"subject,omitempty"`
	Action    Action    `json:"action"`
	Decision  string    `json:"decision"`
	Reason    string    `json:"reason,omitempty"`
	Source    string    `json:"source,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}
