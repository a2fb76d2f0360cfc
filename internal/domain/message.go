package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Valid reports whether the role is one of the closed set
func (r MessageRole) Valid() bool {
	return r == RoleUser || r == RoleAssistant || r == RoleSystem
}

// MessageContext records which evidence grounded a turn
type MessageContext struct {
	EventIDs []uuid.UUID  `json:"event_ids,omitempty"`
	Filters  *EventFilter `json:"filters,omitempty"`
}

// ChatMessage is one turn in an analysis session. Assistant content is
// always the sanitized model output, never the raw response.
type ChatMessage struct {
	ID         uuid.UUID       `json:"id"`
	SessionID  uuid.UUID       `json:"session_id"`
	UserID     *uuid.UUID      `json:"user_id,omitempty"`
	Role       MessageRole     `json:"role"`
	Content    string          `json:"content"`
	Context    *MessageContext `json:"context,omitempty"`
	TokensUsed int             `json:"tokens_used,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// MessageRepository defines the interface for message storage.
// ListBySession returns the most recent `limit` messages in chronological
// order (oldest first).
type MessageRepository interface {
	Create(ctx context.Context, message *ChatMessage) error
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]ChatMessage, error)
}
