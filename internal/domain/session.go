package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the lifecycle state of a session
type SessionStatus string

const (
	SessionStatusActive   SessionStatus = "active"
	SessionStatusArchived SessionStatus = "archived"
)

// AnalysisSession is a named, ongoing conversation with the analyst
type AnalysisSession struct {
	ID        uuid.UUID     `json:"id"`
	UserID    *uuid.UUID    `json:"user_id,omitempty"`
	Title     string        `json:"title"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// SessionRepository defines the interface for session storage.
// List is scoped to a user when userID is non-nil and ordered by most
// recently updated first.
type SessionRepository interface {
	Create(ctx context.Context, session *AnalysisSession) error
	Get(ctx context.Context, id uuid.UUID) (*AnalysisSession, error)
	List(ctx context.Context, userID *uuid.UUID, limit int, offset int) ([]AnalysisSession, error)
	Update(ctx context.Context, session *AnalysisSession) error
}
