package domain

import (
	"github.com/google/uuid"
)

// AnalyzeRequest is a session-mode conversation turn. A nil SessionID
// starts a new session before the turn is processed.
type AnalyzeRequest struct {
	SessionID uuid.UUID    `json:"session_id,omitempty"`
	Message   string       `json:"message" validate:"required,max=4000"`
	EventIDs  []uuid.UUID  `json:"event_ids,omitempty"`
	Filters   *EventFilter `json:"filters,omitempty"`
}

// AnalyzeResponse is the outcome of a session-mode turn. LLMError is set
// when the backend failed and Content holds the fallback text, so callers
// can distinguish an apology from a real answer.
type AnalyzeResponse struct {
	Message        *ChatMessage `json:"message"`
	EventsAnalyzed int          `json:"events_analyzed"`
	TokensUsed     int          `json:"tokens_used"`
	LLMError       string       `json:"llm_error,omitempty"`
}

// QuickAnalyzeRequest is the stateless single-question variant
type QuickAnalyzeRequest struct {
	Question string      `json:"question" validate:"required,max=4000"`
	EventIDs []uuid.UUID `json:"event_ids,omitempty"`
}

// QuickAnalyzeResponse is the stateless analysis outcome
type QuickAnalyzeResponse struct {
	Answer         string `json:"answer"`
	EventsAnalyzed int    `json:"events_analyzed"`
}
