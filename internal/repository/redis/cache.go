package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/deshawnc/threatlens/internal/domain"
)

const (
	recentEventsKey = "events:recent"
	recentEventsTTL = 30 * time.Second
)

// EventCache caches the recent-events window used by default context
// selection. A short TTL keeps fresh events visible quickly.
type EventCache struct {
	client *Client
}

// NewEventCache creates a new event cache
func NewEventCache(client *Client) *EventCache {
	return &EventCache{client: client}
}

// Get retrieves the cached recent-events window; a miss returns nil, nil
func (c *EventCache) Get(ctx context.Context) ([]domain.SecurityEvent, error) {
	data, err := c.client.rdb.Get(ctx, recentEventsKey).Bytes()
	if err != nil {
		return nil, nil // cache miss
	}

	var events []domain.SecurityEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached events: %w", err)
	}

	return events, nil
}

// Set caches the recent-events window
func (c *EventCache) Set(ctx context.Context, events []domain.SecurityEvent) error {
	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}

	return c.client.rdb.Set(ctx, recentEventsKey, data, recentEventsTTL).Err()
}

// Invalidate drops the cached window
func (c *EventCache) Invalidate(ctx context.Context) error {
	return c.client.rdb.Del(ctx, recentEventsKey).Err()
}
