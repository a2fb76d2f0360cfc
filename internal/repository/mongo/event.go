package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deshawnc/threatlens/internal/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const eventCollection = "security_events"

// EventRepository implements domain.EventRepository over a MongoDB event
// lake, for deployments whose SIEM corpus lives in Mongo rather than
// Postgres. It is read-only.
type EventRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewEventRepository connects to MongoDB and returns an event repository
func NewEventRepository(ctx context.Context, uri, database string) (*EventRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &EventRepository{
		client: client,
		coll:   client.Database(database).Collection(eventCollection),
	}, nil
}

// Close disconnects the underlying client
func (r *EventRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// eventDoc is the BSON shape of a stored event. IDs are stored as
// strings; the mapping into domain types happens here, not in domain.
type eventDoc struct {
	ID            string                `bson:"_id"`
	Timestamp     time.Time             `bson:"timestamp"`
	EventType     string                `bson:"event_type"`
	Severity      string                `bson:"severity"`
	SourceIP      string                `bson:"source_ip"`
	DestinationIP string                `bson:"destination_ip,omitempty"`
	Username      string                `bson:"username,omitempty"`
	Description   string                `bson:"description"`
	Action        string                `bson:"action,omitempty"`
	Status        string                `bson:"status,omitempty"`
	Category      string                `bson:"category,omitempty"`
	RuleName      string                `bson:"rule_name,omitempty"`
	Tactic        string                `bson:"tactic,omitempty"`
	Technique     string                `bson:"technique,omitempty"`
	RawLog        string                `bson:"raw_log,omitempty"`
	Metadata      *domain.EventMetadata `bson:"metadata,omitempty"`
}

func (d *eventDoc) toDomain() (*domain.SecurityEvent, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid event id %q: %w", d.ID, err)
	}
	return &domain.SecurityEvent{
		ID:            id,
		Timestamp:     d.Timestamp,
		EventType:     d.EventType,
		Severity:      domain.Severity(d.Severity),
		SourceIP:      d.SourceIP,
		DestinationIP: d.DestinationIP,
		Username:      d.Username,
		Description:   d.Description,
		Action:        d.Action,
		Status:        d.Status,
		Category:      d.Category,
		RuleName:      d.RuleName,
		Tactic:        d.Tactic,
		Technique:     d.Technique,
		RawLog:        d.RawLog,
		Metadata:      d.Metadata,
	}, nil
}

var sortNewestFirst = bson.D{{Key: "timestamp", Value: -1}}

// List returns the most recent events, newest first
func (r *EventRepository) List(ctx context.Context, limit int) ([]domain.SecurityEvent, error) {
	opts := options.Find().SetSort(sortNewestFirst).SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return decodeEvents(ctx, cursor)
}

// ListFiltered returns events matching every set filter field, newest first
func (r *EventRepository) ListFiltered(ctx context.Context, filter domain.EventFilter, limit int) ([]domain.SecurityEvent, error) {
	query := bson.D{}
	if filter.Severity != "" {
		query = append(query, bson.E{Key: "severity", Value: filter.Severity})
	}
	if filter.EventType != "" {
		query = append(query, bson.E{Key: "event_type", Value: filter.EventType})
	}
	if filter.Source != "" {
		query = append(query, bson.E{Key: "source_ip", Value: filter.Source})
	}
	if filter.Category != "" {
		query = append(query, bson.E{Key: "category", Value: filter.Category})
	}

	opts := options.Find().SetSort(sortNewestFirst).SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list filtered events: %w", err)
	}
	return decodeEvents(ctx, cursor)
}

// ListByIDs returns the events whose IDs are in the given set, newest first
func (r *EventRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.SecurityEvent, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	query := bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: idStrings}}}}
	opts := options.Find().SetSort(sortNewestFirst)
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list events by ids: %w", err)
	}
	return decodeEvents(ctx, cursor)
}

// Get returns a single event, or domain.ErrNotFound
func (r *EventRepository) Get(ctx context.Context, id uuid.UUID) (*domain.SecurityEvent, error) {
	var doc eventDoc
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id.String()}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return doc.toDomain()
}

func decodeEvents(ctx context.Context, cursor *mongo.Cursor) ([]domain.SecurityEvent, error) {
	defer cursor.Close(ctx)

	var events []domain.SecurityEvent
	for cursor.Next(ctx) {
		var doc eventDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode event: %w", err)
		}
		e, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, cursor.Err()
}
