package handler

import (
	"errors"
	"net/http"

	"github.com/deshawnc/threatlens/internal/api/response"
	"github.com/deshawnc/threatlens/internal/domain"
	"github.com/deshawnc/threatlens/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// EventHandler exposes the read-only security event corpus
type EventHandler struct {
	analystService *service.AnalystService
}

// NewEventHandler creates a new event handler
func NewEventHandler(analystService *service.AnalystService) *EventHandler {
	return &EventHandler{analystService: analystService}
}

// List returns recent events, optionally filtered by query parameters
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.EventFilter{
		EventType: q.Get("event_type"),
		Source:    q.Get("source"),
		Category:  q.Get("category"),
	}
	if raw := q.Get("severity"); raw != "" {
		filter.Severity = string(domain.ParseSeverity(raw))
	}

	limit := queryInt(r, "limit", 100)

	events, err := h.analystService.ListEvents(r.Context(), filter, limit)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}

	response.OK(w, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// Get returns a single event by ID
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		response.BadRequest(w, "invalid event ID")
		return
	}

	event, err := h.analystService.GetEvent(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.NotFound(w, "event not found")
			return
		}
		response.InternalError(w, err.Error())
		return
	}

	response.OK(w, event)
}
