package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/deshawnc/threatlens/internal/api/response"
	"github.com/deshawnc/threatlens/internal/domain"
	"github.com/deshawnc/threatlens/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// SessionHandler handles analysis session endpoints
type SessionHandler struct {
	analystService *service.AnalystService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(analystService *service.AnalystService) *SessionHandler {
	return &SessionHandler{analystService: analystService}
}

type createSessionRequest struct {
	Title string `json:"title" validate:"max=200"`
}

// Create starts a new analysis session
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.Body != nil {
		// An empty body is fine; the title defaults server-side.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	session, err := h.analystService.CreateSession(r.Context(), optionalUserID(r), req.Title)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}

	response.Created(w, session)
}

// List returns sessions, most recently updated first
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	sessions, err := h.analystService.ListSessions(r.Context(), optionalUserID(r), limit, offset)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}

	response.OK(w, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// GetMessages returns a session's messages oldest to newest
func (h *SessionHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		response.BadRequest(w, "invalid session ID")
		return
	}

	limit := queryInt(r, "limit", 100)

	messages, err := h.analystService.GetSessionMessages(r.Context(), sessionID, limit)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.NotFound(w, "session not found")
			return
		}
		response.InternalError(w, err.Error())
		return
	}

	response.OK(w, map[string]any{
		"session_id": sessionID,
		"messages":   messages,
		"count":      len(messages),
	})
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
