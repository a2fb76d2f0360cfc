package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/deshawnc/threatlens/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository implements domain.SessionRepository
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{pool: db.Pool}
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.AnalysisSession) error {
	query := `
		INSERT INTO analysis_sessions (id, user_id, title, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.Title,
		session.Status,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.AnalysisSession, error) {
	query := `
		SELECT id, user_id, title, status, created_at, updated_at
		FROM analysis_sessions
		WHERE id = $1
	`
	var s domain.AnalysisSession
	var status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.UserID,
		&s.Title,
		&status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	s.Status = domain.SessionStatus(status)
	return &s, nil
}

func (r *SessionRepository) List(ctx context.Context, userID *uuid.UUID, limit int, offset int) ([]domain.AnalysisSession, error) {
	query := `
		SELECT id, user_id, title, status, created_at, updated_at
		FROM analysis_sessions
		WHERE ($1::uuid IS NULL OR user_id = $1)
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.AnalysisSession
	for rows.Next() {
		var s domain.AnalysisSession
		var status string
		if err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.Title,
			&status,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		s.Status = domain.SessionStatus(status)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *SessionRepository) Update(ctx context.Context, session *domain.AnalysisSession) error {
	query := `
		UPDATE analysis_sessions
		SET title = $1, status = $2, updated_at = $3
		WHERE id = $4
	`
	_, err := r.pool.Exec(ctx, query, session.Title, session.Status, session.UpdatedAt, session.ID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}
