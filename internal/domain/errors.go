package domain

import "errors"

// ErrNotFound indicates a referenced session, message, or event does not
// exist. Read paths surface it as absence, not a server fault.
var ErrNotFound = errors.New("not found")

// ErrLLMUnavailable indicates no language model provider has usable
// credentials or an endpoint. The orchestrator never attempts an
// invocation in this state.
var ErrLLMUnavailable = errors.New("no language model provider is configured")

// ValidationError reports a required field that is missing or empty.
// It is surfaced before any persistence occurs.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
