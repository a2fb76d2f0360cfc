package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/deshawnc/threatlens/internal/analyst"
	"github.com/deshawnc/threatlens/internal/domain"
	"github.com/deshawnc/threatlens/internal/llm"
	"github.com/deshawnc/threatlens/internal/repository/redis"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// corpusWindow is how many recent events are loaded as the selection
	// corpus for a turn.
	corpusWindow = 500

	// historyFetchLimit leaves slack over the replay cap so system-role
	// turns can be excluded without starving the prompt.
	historyFetchLimit = 25

	placeholderTitle = "New Analysis"

	titleWords  = 5
	titleMaxLen = 30
)

// AnalystService orchestrates AI security-analysis conversations
type AnalystService struct {
	eventRepo   domain.EventRepository
	sessionRepo domain.SessionRepository
	messageRepo domain.MessageRepository
	llmRouter   *llm.Router
	eventCache  *redis.EventCache
	maxTokens   int
}

// NewAnalystService creates a new analyst service. eventCache may be nil.
func NewAnalystService(
	eventRepo domain.EventRepository,
	sessionRepo domain.SessionRepository,
	messageRepo domain.MessageRepository,
	llmRouter *llm.Router,
	eventCache *redis.EventCache,
	maxTokens int,
) *AnalystService {
	return &AnalystService{
		eventRepo:   eventRepo,
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		llmRouter:   llmRouter,
		eventCache:  eventCache,
		maxTokens:   maxTokens,
	}
}

// Analyze processes one session-mode conversation turn
func (s *AnalystService) Analyze(ctx context.Context, userID *uuid.UUID, req domain.AnalyzeRequest) (*domain.AnalyzeResponse, error) {
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return nil, &domain.ValidationError{Field: "message", Message: "message is required"}
	}

	now := time.Now()

	// Resolve or create the session before any message is accepted.
	sessionID := req.SessionID
	if sessionID == uuid.Nil {
		sessionID = uuid.New()
		session := &domain.AnalysisSession{
			ID:        sessionID,
			UserID:    userID,
			Title:     placeholderTitle,
			Status:    domain.SessionStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.sessionRepo.Create(ctx, session); err != nil {
			return nil, err
		}
	} else if _, err := s.sessionRepo.Get(ctx, sessionID); err != nil {
		return nil, err
	}

	contextEvents, err := s.selectContext(ctx, req.EventIDs, req.Filters, false)
	if err != nil {
		return nil, err
	}

	msgContext := buildMessageContext(contextEvents, req.Filters)

	// The user turn is persisted before the model is invoked so a
	// backend failure never loses the user's input.
	userMsg := &domain.ChatMessage{
		ID:        uuid.New(),
		SessionID: sessionID,
		UserID:    userID,
		Role:      domain.RoleUser,
		Content:   req.Message,
		Context:   msgContext,
		CreatedAt: now,
	}
	if err := s.messageRepo.Create(ctx, userMsg); err != nil {
		return nil, err
	}

	provider, err := s.llmRouter.GetProvider("")
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			return nil, domain.ErrLLMUnavailable
		}
		return nil, err
	}

	// History is fetched fresh from the store after persisting the user
	// turn; the new turn itself is excluded from replay.
	history, err := s.messageRepo.ListBySession(ctx, sessionID, historyFetchLimit)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch session history")
		history = nil
	}
	prior := history[:0:0]
	for _, m := range history {
		if m.ID != userMsg.ID {
			prior = append(prior, m)
		}
	}
	firstTurn := len(prior) == 0

	messages := analyst.AssembleMessages(contextEvents, prior, req.Message, false)

	var content string
	var tokensUsed int
	var llmError string

	llmResp, err := provider.Complete(ctx, llm.Request{Messages: messages, MaxTokens: s.maxTokens}, "")
	if err != nil {
		log.Error().Err(err).Str("provider", provider.Name()).Msg("llm completion failed")
		llmError = "the language model request failed"
	} else {
		content = llmResp.Content
		tokensUsed = llmResp.TokensUsed
	}

	// Empty content falls back inside Sanitize, so a failed call still
	// produces a durable assistant turn.
	aiMsg := &domain.ChatMessage{
		ID:         uuid.New(),
		SessionID:  sessionID,
		Role:       domain.RoleAssistant,
		Content:    analyst.Sanitize(content),
		Context:    msgContext,
		TokensUsed: tokensUsed,
		CreatedAt:  time.Now(),
	}
	if err := s.messageRepo.Create(ctx, aiMsg); err != nil {
		log.Error().Err(err).Msg("failed to save assistant message")
	}

	s.touchSession(ctx, sessionID, firstTurn, req.Message)

	return &domain.AnalyzeResponse{
		Message:        aiMsg,
		EventsAnalyzed: len(contextEvents),
		TokensUsed:     tokensUsed,
		LLMError:       llmError,
	}, nil
}

// QuickAnalyze answers a single question statelessly: no session, no
// history, no persistence.
func (s *AnalystService) QuickAnalyze(ctx context.Context, req domain.QuickAnalyzeRequest) (*domain.QuickAnalyzeResponse, error) {
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return nil, &domain.ValidationError{Field: "question", Message: "question is required"}
	}

	provider, err := s.llmRouter.GetProvider("")
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			return nil, domain.ErrLLMUnavailable
		}
		return nil, err
	}

	contextEvents, err := s.selectContext(ctx, req.EventIDs, nil, true)
	if err != nil {
		return nil, err
	}

	messages := analyst.AssembleMessages(contextEvents, nil, req.Question, true)

	var content string
	llmResp, err := provider.Complete(ctx, llm.Request{Messages: messages, MaxTokens: s.maxTokens}, "")
	if err != nil {
		log.Error().Err(err).Str("provider", provider.Name()).Msg("llm completion failed")
	} else {
		content = llmResp.Content
	}

	return &domain.QuickAnalyzeResponse{
		Answer:         analyst.Sanitize(content),
		EventsAnalyzed: len(contextEvents),
	}, nil
}

// selectContext loads the corpus and applies the selection rules. With
// explicit IDs the corpus is the matching events themselves, already in
// corpus order, so selection preserves it.
func (s *AnalystService) selectContext(ctx context.Context, eventIDs []uuid.UUID, filters *domain.EventFilter, quick bool) ([]domain.SecurityEvent, error) {
	var corpus []domain.SecurityEvent
	var err error

	switch {
	case len(eventIDs) > 0:
		corpus, err = s.eventRepo.ListByIDs(ctx, eventIDs)
	default:
		corpus, err = s.loadRecentEvents(ctx)
	}
	if err != nil {
		return nil, err
	}

	return analyst.SelectContext(corpus, analyst.ContextRequest{
		EventIDs: eventIDs,
		Filters:  filters,
		Quick:    quick,
	}), nil
}

// loadRecentEvents serves the recent-events window from cache when
// possible; cache failures fall through to the store.
func (s *AnalystService) loadRecentEvents(ctx context.Context) ([]domain.SecurityEvent, error) {
	if s.eventCache != nil {
		if cached, err := s.eventCache.Get(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	events, err := s.eventRepo.List(ctx, corpusWindow)
	if err != nil {
		return nil, err
	}

	if s.eventCache != nil {
		if err := s.eventCache.Set(ctx, events); err != nil {
			log.Warn().Err(err).Msg("failed to cache recent events")
		}
	}
	return events, nil
}

// touchSession bumps the session's updated timestamp and, on the first
// user turn, derives the title from the message.
func (s *AnalystService) touchSession(ctx context.Context, sessionID uuid.UUID, firstTurn bool, message string) {
	session, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to load session for update")
		return
	}

	session.UpdatedAt = time.Now()
	if firstTurn || session.Title == placeholderTitle {
		session.Title = deriveTitle(message)
	}

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to update session")
	}
}

// deriveTitle takes the first titleWords words of the message and hard
// caps the result at titleMaxLen characters with an ellipsis marker.
func deriveTitle(message string) string {
	words := strings.Fields(message)
	if len(words) > titleWords {
		words = words[:titleWords]
	}
	title := strings.Join(words, " ")
	if len(title) > titleMaxLen {
		title = title[:titleMaxLen] + "..."
	}
	if title == "" {
		return placeholderTitle
	}
	return title
}

func buildMessageContext(events []domain.SecurityEvent, filters *domain.EventFilter) *domain.MessageContext {
	if len(events) == 0 && filters == nil {
		return nil
	}
	mc := &domain.MessageContext{Filters: filters}
	for _, e := range events {
		mc.EventIDs = append(mc.EventIDs, e.ID)
	}
	return mc
}

// CreateSession explicitly starts a new session
func (s *AnalystService) CreateSession(ctx context.Context, userID *uuid.UUID, title string) (*domain.AnalysisSession, error) {
	if strings.TrimSpace(title) == "" {
		title = placeholderTitle
	}
	now := time.Now()
	session := &domain.AnalysisSession{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Status:    domain.SessionStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ListSessions lists sessions, most recently updated first
func (s *AnalystService) ListSessions(ctx context.Context, userID *uuid.UUID, limit, offset int) ([]domain.AnalysisSession, error) {
	return s.sessionRepo.List(ctx, userID, limit, offset)
}

// GetSessionMessages returns a session's messages oldest to newest
func (s *AnalystService) GetSessionMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.ChatMessage, error) {
	if _, err := s.sessionRepo.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.messageRepo.ListBySession(ctx, sessionID, limit)
}

// ListEvents exposes the read-only corpus surface
func (s *AnalystService) ListEvents(ctx context.Context, filter domain.EventFilter, limit int) ([]domain.SecurityEvent, error) {
	if filter.IsZero() {
		return s.eventRepo.List(ctx, limit)
	}
	return s.eventRepo.ListFiltered(ctx, filter, limit)
}

// GetEvent returns a single event by ID
func (s *AnalystService) GetEvent(ctx context.Context, id uuid.UUID) (*domain.SecurityEvent, error) {
	return s.eventRepo.Get(ctx, id)
}
