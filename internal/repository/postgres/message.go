package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/deshawnc/threatlens/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageRepository implements domain.MessageRepository
type MessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{pool: db.Pool}
}

// Create inserts a new message. Messages are immutable once written.
func (r *MessageRepository) Create(ctx context.Context, message *domain.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, session_id, user_id, role, content, context, tokens_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	var contextJSON []byte
	if message.Context != nil {
		var err error
		contextJSON, err = json.Marshal(message.Context)
		if err != nil {
			return fmt.Errorf("failed to marshal message context: %w", err)
		}
	}

	_, err := r.pool.Exec(ctx, query,
		message.ID,
		message.SessionID,
		message.UserID,
		message.Role,
		message.Content,
		contextJSON,
		message.TokensUsed,
		message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

// ListBySession retrieves the most recent `limit` messages for a session
// in chronological order (oldest first)
func (r *MessageRepository) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.ChatMessage, error) {
	query := `
		SELECT id, session_id, user_id, role, content, context, tokens_used, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		var roleStr string
		var contextJSON []byte

		if err := rows.Scan(
			&m.ID,
			&m.SessionID,
			&m.UserID,
			&roleStr,
			&m.Content,
			&contextJSON,
			&m.TokensUsed,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = domain.MessageRole(roleStr)

		if len(contextJSON) > 0 {
			var mc domain.MessageContext
			if err := json.Unmarshal(contextJSON, &mc); err != nil {
				return nil, fmt.Errorf("failed to unmarshal message context: %w", err)
			}
			m.Context = &mc
		}

		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to return chronological order (oldest first), since the
	// query orders DESC to get the latest N.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
