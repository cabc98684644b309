package domain

import "time"

const (
	ActionLogin    = "login"
	ActionRegister = "register"
)

// AuthEvent is an audit record of one authenticate or register outcome.
type AuthEvent struct {
	Username string           `json:"username"`
	Action   string           `json:"action"`
	Success  bool             `json:"success"`
	Source   CredentialSource `json:"source,omitempty"`
	Message  string           `json:"message,omitempty"`
	At       time.Time        `json:"at"`
}
