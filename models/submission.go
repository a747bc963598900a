package models

import "encoding/json"

// SubmissionOutcome classifies the downstream sink's reply to one submission
// attempt.
type SubmissionOutcome struct {
	Accepted   bool            `json:"accepted"`
	StatusCode int             `json:"status_code,omitempty"`
	Body       json.RawMessage `json:"body,omitempty"`
	Warning    string          `json:"warning,omitempty"`
	Error      string          `json:"error,omitempty"`
}
