package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/deshawnc/threatlens/internal/api/middleware"
	"github.com/deshawnc/threatlens/internal/api/response"
	"github.com/deshawnc/threatlens/internal/domain"
	"github.com/deshawnc/threatlens/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// AnalysisHandler handles AI analysis endpoints
type AnalysisHandler struct {
	analystService *service.AnalystService
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(analystService *service.AnalystService) *AnalysisHandler {
	return &AnalysisHandler{analystService: analystService}
}

// Chat handles one session-mode conversation turn
func (h *AnalysisHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req domain.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	userID := optionalUserID(r)

	result, err := h.analystService.Analyze(r.Context(), userID, req)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	response.OK(w, result)
}

// Quick handles a stateless one-shot question
func (h *AnalysisHandler) Quick(w http.ResponseWriter, r *http.Request) {
	var req domain.QuickAnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	result, err := h.analystService.QuickAnalyze(r.Context(), req)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	response.OK(w, result)
}

func writeAnalysisError(w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		response.BadRequest(w, vErr.Error())
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, "session not found")
	case errors.Is(err, domain.ErrLLMUnavailable):
		response.ServiceUnavailable(w, "no language model provider is configured; set an API key and retry")
	default:
		response.InternalError(w, err.Error())
	}
}

// optionalUserID returns the authenticated user's ID, or nil for
// anonymous requests.
func optionalUserID(r *http.Request) *uuid.UUID {
	if userID, ok := middleware.GetUserID(r.Context()); ok {
		return &userID
	}
	return nil
}
