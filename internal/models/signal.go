package models

import "time"

// Signal is the intake message published by the external collectors.
// Immutable once received; re-aggregated signals arrive as new messages.
type Signal struct {
	Source       string                 `json:"source"`
	TokenAddress string                 `json:"token_address"`
	TokenName    string                 `json:"token_name"`
	Confidence   float64                `json:"confidence"`
	ObservedAt   time.Time              `json:"observed_at"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// ControlMessage is a command forwarded from the control API to the worker.
type ControlMessage struct {
	Action string `json:"action"`
	Active bool   `json:"active"`
}
