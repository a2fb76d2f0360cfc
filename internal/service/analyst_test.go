package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deshawnc/threatlens/internal/analyst"
	"github.com/deshawnc/threatlens/internal/domain"
	"github.com/deshawnc/threatlens/internal/llm"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestService(eventRepo *MockEventRepository, sessionRepo *MockSessionRepository, messageRepo *MockMessageRepository, provider llm.Provider) *AnalystService {
	router := llm.NewRouter("mock")
	if provider != nil {
		router.RegisterProvider(provider)
	}
	return NewAnalystService(eventRepo, sessionRepo, messageRepo, router, nil, 2048)
}

func testEvents(n int) []domain.SecurityEvent {
	now := time.Now()
	events := make([]domain.SecurityEvent, n)
	for i := range events {
		events[i] = domain.SecurityEvent{
			ID:        uuid.New(),
			Timestamp: now.Add(-time.Duration(i) * time.Minute),
			EventType: "port_scan",
			Severity:  domain.SeverityHigh,
			SourceIP:  "203.0.113.7",
		}
	}
	return events
}

func TestAnalyze_NewSessionSuccess(t *testing.T) {
	eventRepo := new(MockEventRepository)
	sessionRepo := new(MockSessionRepository)
	messageRepo := new(MockMessageRepository)
	provider := new(MockProvider)

	events := testEvents(3)
	eventRepo.On("List", mock.Anything, corpusWindow).Return(events, nil)

	var createdSession *domain.AnalysisSession
	sessionRepo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		createdSession = args.Get(1).(*domain.AnalysisSession)
	}).Return(nil)
	sessionRepo.On("Get", mock.Anything, mock.Anything).Return(&domain.AnalysisSession{
		ID:     uuid.New(),
		Title:  placeholderTitle,
		Status: domain.SessionStatusActive,
	}, nil)
	sessionRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	messageRepo.returnCreated = true
	messageRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	messageRepo.On("ListBySession", mock.Anything, mock.Anything, historyFetchLimit).Return(nil, nil)

	provider.On("Complete", mock.Anything, mock.Anything, "").Return(&llm.Response{
		Content:    "This looks like a port scan from 203.0.113.7.",
		TokensUsed: 120,
	}, nil)

	svc := newTestService(eventRepo, sessionRepo, messageRepo, provider)

	resp, err := svc.Analyze(context.Background(), nil, domain.AnalyzeRequest{
		Message: "What happened here?",
	})

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Empty(t, resp.LLMError)
	assert.Equal(t, 3, resp.EventsAnalyzed)
	assert.Equal(t, 120, resp.TokensUsed)
	assert.Equal(t, domain.RoleAssistant, resp.Message.Role)
	assert.Equal(t, "This looks like a port scan from 203.0.113.7.", resp.Message.Content)

	// Session was created with the placeholder before the first turn.
	require.NotNil(t, createdSession)
	assert.Equal(t, placeholderTitle, createdSession.Title)

	// User turn first, assistant turn second, both against the session.
	require.Len(t, messageRepo.created, 2)
	assert.Equal(t, domain.RoleUser, messageRepo.created[0].Role)
	assert.Equal(t, "What happened here?", messageRepo.created[0].Content)
	assert.Equal(t, domain.RoleAssistant, messageRepo.created[1].Role)
	assert.Equal(t, 120, messageRepo.created[1].TokensUsed)

	// First turn derives the session title.
	sessionRepo.AssertCalled(t, "Update", mock.Anything, mock.MatchedBy(func(s *domain.AnalysisSession) bool {
		return s.Title == "What happened here?"
	}))
}

func TestAnalyze_NewTurnExcludedFromReplay(t *testing.T) {
	eventRepo := new(MockEventRepository)
	sessionRepo := new(MockSessionRepository)
	messageRepo := new(MockMessageRepository)
	provider := new(MockProvider)

	sessionID := uuid.New()
	eventRepo.On("List", mock.Anything, corpusWindow).Return(testEvents(1), nil)
	sessionRepo.On("Get", mock.Anything, sessionID).Return(&domain.AnalysisSession{
		ID: sessionID, Title: "Earlier investigation", Status: domain.SessionStatusActive,
	}, nil)
	sessionRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	// Prior turns already in the store; the fresh fetch also returns the
	// turn persisted in this call.
	messageRepo.created = []domain.ChatMessage{
		{ID: uuid.New(), SessionID: sessionID, Role: domain.RoleUser, Content: "earlier question"},
		{ID: uuid.New(), SessionID: sessionID, Role: domain.RoleAssistant, Content: "earlier answer"},
	}
	messageRepo.returnCreated = true
	messageRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	messageRepo.On("ListBySession", mock.Anything, sessionID, historyFetchLimit).Return(nil, nil)

	var captured llm.Request
	provider.On("Complete", mock.Anything, mock.Anything, "").Run(func(args mock.Arguments) {
		captured = args.Get(1).(llm.Request)
	}).Return(&llm.Response{Content: "followup analysis"}, nil)

	svc := newTestService(eventRepo, sessionRepo, messageRepo, provider)

	_, err := svc.Analyze(context.Background(), nil, domain.AnalyzeRequest{
		SessionID: sessionID,
		Message:   "and what about lateral movement?",
	})
	require.NoError(t, err)

	// system + two prior turns + the new user turn; the persisted copy of
	// the new turn must not replay a second time.
	require.Len(t, captured.Messages, 4)
	assert.Equal(t, llm.RoleSystem, captured.Messages[0].Role)
	assert.Equal(t, "earlier question", captured.Messages[1].Content)
	assert.Equal(t, "earlier answer", captured.Messages[2].Content)
	assert.Equal(t, "and what about lateral movement?", captured.Messages[3].Content)

	// Existing title is kept on later turns.
	sessionRepo.AssertCalled(t, "Update", mock.Anything, mock.MatchedBy(func(s *domain.AnalysisSession) bool {
		return s.Title == "Earlier investigation"
	}))
}

func TestAnalyze_NoProviderLeavesUserMessagePersisted(t *testing.T) {
	eventRepo := new(MockEventRepository)
	sessionRepo := new(MockSessionRepository)
	messageRepo := new(MockMessageRepository)

	eventRepo.On("List", mock.Anything, corpusWindow).Return(testEvents(2), nil)
	sessionRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	messageRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(eventRepo, sessionRepo, messageRepo, nil)

	_, err := svc.Analyze(context.Background(), nil, domain.AnalyzeRequest{Message: "anything there?"})

	require.ErrorIs(t, err, domain.ErrLLMUnavailable)

	// The user's turn is already durable when the 503 goes out.
	require.Len(t, messageRepo.created, 1)
	assert.Equal(t, domain.RoleUser, messageRepo.created[0].Role)
}

func TestAnalyze_BackendErrorPersistsFallback(t *testing.T) {
	eventRepo := new(MockEventRepository)
	sessionRepo := new(MockSessionRepository)
	messageRepo := new(MockMessageRepository)
	provider := new(MockProvider)

	eventRepo.On("List", mock.Anything, corpusWindow).Return(testEvents(2), nil)
	sessionRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	sessionRepo.On("Get", mock.Anything, mock.Anything).Return(&domain.AnalysisSession{
		ID: uuid.New(), Title: placeholderTitle, Status: domain.SessionStatusActive,
	}, nil)
	sessionRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	messageRepo.returnCreated = true
	messageRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	messageRepo.On("ListBySession", mock.Anything, mock.Anything, historyFetchLimit).Return(nil, nil)

	provider.On("Complete", mock.Anything, mock.Anything, "").Return(nil, errors.New("upstream timeout"))

	svc := newTestService(eventRepo, sessionRepo, messageRepo, provider)

	resp, err := svc.Analyze(context.Background(), nil, domain.AnalyzeRequest{Message: "check this"})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.LLMError)
	assert.Equal(t, analyst.FallbackResponse, resp.Message.Content)
	assert.Zero(t, resp.TokensUsed)

	// Both turns persisted despite the failed completion.
	require.Len(t, messageRepo.created, 2)
	assert.Equal(t, analyst.FallbackResponse, messageRepo.created[1].Content)
	assert.Zero(t, messageRepo.created[1].TokensUsed)
}

func TestAnalyze_SanitizesModelOutput(t *testing.T) {
	eventRepo := new(MockEventRepository)
	sessionRepo := new(MockSessionRepository)
	messageRepo := new(MockMessageRepository)
	provider := new(MockProvider)

	eventRepo.On("List", mock.Anything, corpusWindow).Return(testEvents(1), nil)
	sessionRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	sessionRepo.On("Get", mock.Anything, mock.Anything).Return(&domain.AnalysisSession{
		ID: uuid.New(), Title: placeholderTitle, Status: domain.SessionStatusActive,
	}, nil)
	sessionRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	messageRepo.returnCreated = true
	messageRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	messageRepo.On("ListBySession", mock.Anything, mock.Anything, historyFetchLimit).Return(nil, nil)

	provider.On("Complete", mock.Anything, mock.Anything, "").Return(&llm.Response{
		Content: `Check logs <script>alert(1)</script> for details`,
	}, nil)

	svc := newTestService(eventRepo, sessionRepo, messageRepo, provider)

	resp, err := svc.Analyze(context.Background(), nil, domain.AnalyzeRequest{Message: "summarize"})

	require.NoError(t, err)
	assert.Equal(t, "Check logs [removed script] for details", resp.Message.Content)
	assert.Equal(t, resp.Message.Content, messageRepo.created[1].Content)
}

func TestAnalyze_BlankMessageRejectedWithoutSideEffects(t *testing.T) {
	eventRepo := new(MockEventRepository)
	sessionRepo := new(MockSessionRepository)
	messageRepo := new(MockMessageRepository)

	svc := newTestService(eventRepo, sessionRepo, messageRepo, new(MockProvider))

	_, err := svc.Analyze(context.Background(), nil, domain.AnalyzeRequest{Message: "   "})

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "message", vErr.Field)
	sessionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	messageRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAnalyze_UnknownSessionNotFound(t *testing.T) {
	eventRepo := new(MockEventRepository)
	sessionRepo := new(MockSessionRepository)
	messageRepo := new(MockMessageRepository)

	sessionID := uuid.New()
	sessionRepo.On("Get", mock.Anything, sessionID).Return(nil, domain.ErrNotFound)

	svc := newTestService(eventRepo, sessionRepo, messageRepo, new(MockProvider))

	_, err := svc.Analyze(context.Background(), nil, domain.AnalyzeRequest{
		SessionID: sessionID,
		Message:   "hello",
	})

	require.ErrorIs(t, err, domain.ErrNotFound)
	messageRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAnalyze_ExplicitEventIDsLoadOnlyThose(t *testing.T) {
	eventRepo := new(MockEventRepository)
	sessionRepo := new(MockSessionRepository)
	messageRepo := new(MockMessageRepository)
	provider := new(MockProvider)

	events := testEvents(2)
	ids := []uuid.UUID{events[0].ID, events[1].ID}
	eventRepo.On("ListByIDs", mock.Anything, ids).Return(events, nil)

	sessionRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	sessionRepo.On("Get", mock.Anything, mock.Anything).Return(&domain.AnalysisSession{
		ID: uuid.New(), Title: placeholderTitle, Status: domain.SessionStatusActive,
	}, nil)
	sessionRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	messageRepo.returnCreated = true
	messageRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	messageRepo.On("ListBySession", mock.Anything, mock.Anything, historyFetchLimit).Return(nil, nil)

	provider.On("Complete", mock.Anything, mock.Anything, "").Return(&llm.Response{Content: "ok"}, nil)

	svc := newTestService(eventRepo, sessionRepo, messageRepo, provider)

	resp, err := svc.Analyze(context.Background(), nil, domain.AnalyzeRequest{
		Message:  "look at these two",
		EventIDs: ids,
	})

	require.NoError(t, err)
	assert.Equal(t, 2, resp.EventsAnalyzed)
	eventRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)

	// The persisted turns record which events grounded them.
	require.NotNil(t, messageRepo.created[0].Context)
	assert.Equal(t, ids, messageRepo.created[0].Context.EventIDs)
}

func TestQuickAnalyze_Stateless(t *testing.T) {
	eventRepo := new(MockEventRepository)
	sessionRepo := new(MockSessionRepository)
	messageRepo := new(MockMessageRepository)
	provider := new(MockProvider)

	eventRepo.On("List", mock.Anything, corpusWindow).Return(testEvents(12), nil)

	var captured llm.Request
	provider.On("Complete", mock.Anything, mock.Anything, "").Run(func(args mock.Arguments) {
		captured = args.Get(1).(llm.Request)
	}).Return(&llm.Response{Content: "quick verdict"}, nil)

	svc := newTestService(eventRepo, sessionRepo, messageRepo, provider)

	resp, err := svc.QuickAnalyze(context.Background(), domain.QuickAnalyzeRequest{
		Question: "anything critical right now?",
	})

	require.NoError(t, err)
	assert.Equal(t, "quick verdict", resp.Answer)
	assert.Equal(t, analyst.DefaultQuickContext, resp.EventsAnalyzed)

	// No history, no persistence, no session.
	require.Len(t, captured.Messages, 2)
	sessionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	messageRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestQuickAnalyze_NoProvider(t *testing.T) {
	svc := newTestService(new(MockEventRepository), new(MockSessionRepository), new(MockMessageRepository), nil)

	_, err := svc.QuickAnalyze(context.Background(), domain.QuickAnalyzeRequest{Question: "status?"})
	require.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{
			name:    "short message used whole",
			message: "Check failed logins",
			want:    "Check failed logins",
		},
		{
			name:    "first five words only",
			message: "Why did the firewall block traffic from the DMZ segment",
			want:    "Why did the firewall block",
		},
		{
			name:    "long words hard capped with marker",
			message: "Investigate extraordinarily suspicious authentication anomalies observed overnight",
			want:    "Investigate extraordinarily su...",
		},
		{
			name:    "whitespace collapsed",
			message: "  what   about \n this  ",
			want:    "what about this",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deriveTitle(tt.message))
		})
	}
}
