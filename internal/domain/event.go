package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Severity is the ordered severity scale for security events
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
	SeverityInfo     Severity = "Info"
)

// ParseSeverity converts a string to a Severity, defaulting to Info
func ParseSeverity(s string) Severity {
	switch s {
	case "Critical", "critical", "CRITICAL":
		return SeverityCritical
	case "High", "high", "HIGH":
		return SeverityHigh
	case "Medium", "medium", "MEDIUM":
		return SeverityMedium
	case "Low", "low", "LOW":
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// EventMetadata carries the optional enrichment fields attached to an event.
// Every field is omitted from serialization when unset so prompt payloads
// stay compact and deterministic.
type EventMetadata struct {
	Protocol        string  `json:"protocol,omitempty"`
	SourcePort      int     `json:"source_port,omitempty"`
	DestinationPort int     `json:"destination_port,omitempty"`
	BytesIn         int64   `json:"bytes_in,omitempty"`
	BytesOut        int64   `json:"bytes_out,omitempty"`
	ThreatScore     float64 `json:"threat_score,omitempty"`
	GeoCountry      string  `json:"geo_country,omitempty"`
	GeoCity         string  `json:"geo_city,omitempty"`
	ProcessName     string  `json:"process_name,omitempty"`
	FilePath        string  `json:"file_path,omitempty"`
	FileHash        string  `json:"file_hash,omitempty"`
	HTTPMethod      string  `json:"http_method,omitempty"`
	HTTPPath        string  `json:"http_path,omitempty"`
	HTTPStatus      int     `json:"http_status,omitempty"`
}

// IsZero reports whether no metadata field is set
func (m EventMetadata) IsZero() bool {
	return m == EventMetadata{}
}

// SecurityEvent is one immutable observed occurrence in the corpus.
// Events are created by the ingestion path and are read-only here.
type SecurityEvent struct {
	ID            uuid.UUID      `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	EventType     string         `json:"event_type"`
	Severity      Severity       `json:"severity"`
	SourceIP      string         `json:"source_ip"`
	DestinationIP string         `json:"destination_ip,omitempty"`
	Username      string         `json:"username,omitempty"`
	Description   string         `json:"description"`
	Action        string         `json:"action,omitempty"`
	Status        string         `json:"status,omitempty"`
	Category      string         `json:"category,omitempty"`
	RuleName      string         `json:"rule_name,omitempty"`
	Tactic        string         `json:"tactic,omitempty"`
	Technique     string         `json:"technique,omitempty"`
	RawLog        string         `json:"raw_log,omitempty"`
	Metadata      *EventMetadata `json:"metadata,omitempty"`
}

// EventFilter narrows the corpus. Empty fields are wildcards; set fields
// combine with logical AND.
type EventFilter struct {
	Severity  string `json:"severity,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Source    string `json:"source,omitempty"`
	Category  string `json:"category,omitempty"`
}

// IsZero reports whether the filter has no constraints
func (f EventFilter) IsZero() bool {
	return f == EventFilter{}
}

// Matches reports whether the event satisfies every set field
func (f EventFilter) Matches(e *SecurityEvent) bool {
	if f.Severity != "" && string(e.Severity) != f.Severity {
		return false
	}
	if f.EventType != "" && e.EventType != f.EventType {
		return false
	}
	if f.Source != "" && e.SourceIP != f.Source {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	return true
}

// EventRepository is the read-only contract over the event corpus.
// Listings are always ordered newest first.
type EventRepository interface {
	List(ctx context.Context, limit int) ([]SecurityEvent, error)
	ListFiltered(ctx context.Context, filter EventFilter, limit int) ([]SecurityEvent, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]SecurityEvent, error)
	Get(ctx context.Context, id uuid.UUID) (*SecurityEvent, error)
}
