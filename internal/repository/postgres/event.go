package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/deshawnc/threatlens/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `id, timestamp, event_type, severity, source_ip, destination_ip,
		username, description, action, status, category, rule_name, tactic, technique,
		raw_log, metadata`

// EventRepository implements domain.EventRepository over the
// security_events table. The subsystem never writes to it.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{pool: db.Pool}
}

// List returns the most recent events, newest first
func (r *EventRepository) List(ctx context.Context, limit int) ([]domain.SecurityEvent, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM security_events
		ORDER BY timestamp DESC
		LIMIT $1
	`, eventColumns)

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListFiltered returns events matching every set filter field, newest first
func (r *EventRepository) ListFiltered(ctx context.Context, filter domain.EventFilter, limit int) ([]domain.SecurityEvent, error) {
	var conditions []string
	var args []any

	addCondition := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	addCondition("severity", filter.Severity)
	addCondition("event_type", filter.EventType)
	addCondition("source_ip", filter.Source)
	addCondition("category", filter.Category)

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, limit)
	query := fmt.Sprintf(`
		SELECT %s
		FROM security_events
		%s
		ORDER BY timestamp DESC
		LIMIT $%d
	`, eventColumns, where, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list filtered events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListByIDs returns the events whose IDs are in the given set, newest
// first (corpus order). Unknown IDs are simply absent from the result.
func (r *EventRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.SecurityEvent, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM security_events
		WHERE id = ANY($1::uuid[])
		ORDER BY timestamp DESC
	`, eventColumns)

	rows, err := r.pool.Query(ctx, query, idStrings)
	if err != nil {
		return nil, fmt.Errorf("failed to list events by ids: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Get returns a single event, or domain.ErrNotFound
func (r *EventRepository) Get(ctx context.Context, id uuid.UUID) (*domain.SecurityEvent, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM security_events
		WHERE id = $1
	`, eventColumns)

	row := r.pool.QueryRow(ctx, query, id)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.SecurityEvent, error) {
	var e domain.SecurityEvent
	var severity string
	var destinationIP, username, action, status, category, ruleName, tactic, technique, rawLog *string
	var metadataJSON []byte

	if err := row.Scan(
		&e.ID,
		&e.Timestamp,
		&e.EventType,
		&severity,
		&e.SourceIP,
		&destinationIP,
		&username,
		&e.Description,
		&action,
		&status,
		&category,
		&ruleName,
		&tactic,
		&technique,
		&rawLog,
		&metadataJSON,
	); err != nil {
		return nil, err
	}

	e.Severity = domain.Severity(severity)
	e.DestinationIP = deref(destinationIP)
	e.Username = deref(username)
	e.Action = deref(action)
	e.Status = deref(status)
	e.Category = deref(category)
	e.RuleName = deref(ruleName)
	e.Tactic = deref(tactic)
	e.Technique = deref(technique)
	e.RawLog = deref(rawLog)

	if len(metadataJSON) > 0 {
		var meta domain.EventMetadata
		if err := json.Unmarshal(metadataJSON, &meta); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event metadata: %w", err)
		}
		if !meta.IsZero() {
			e.Metadata = &meta
		}
	}

	return &e, nil
}

func scanEvents(rows pgx.Rows) ([]domain.SecurityEvent, error) {
	var events []domain.SecurityEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
