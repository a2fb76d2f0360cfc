package service

import (
	"context"

	"github.com/deshawnc/threatlens/internal/domain"
	"github.com/deshawnc/threatlens/internal/llm"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) List(ctx context.Context, limit int) ([]domain.SecurityEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SecurityEvent), args.Error(1)
}

func (m *MockEventRepository) ListFiltered(ctx context.Context, filter domain.EventFilter, limit int) ([]domain.SecurityEvent, error) {
	args := m.Called(ctx, filter, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SecurityEvent), args.Error(1)
}

func (m *MockEventRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.SecurityEvent, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SecurityEvent), args.Error(1)
}

func (m *MockEventRepository) Get(ctx context.Context, id uuid.UUID) (*domain.SecurityEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SecurityEvent), args.Error(1)
}

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.AnalysisSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.AnalysisSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnalysisSession), args.Error(1)
}

func (m *MockSessionRepository) List(ctx context.Context, userID *uuid.UUID, limit, offset int) ([]domain.AnalysisSession, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AnalysisSession), args.Error(1)
}

func (m *MockSessionRepository) Update(ctx context.Context, session *domain.AnalysisSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

// MockMessageRepository records created messages so tests can replay
// them as session history, the way the store would after a write.
type MockMessageRepository struct {
	mock.Mock
	created       []domain.ChatMessage
	returnCreated bool
}

func (m *MockMessageRepository) Create(ctx context.Context, message *domain.ChatMessage) error {
	args := m.Called(ctx, message)
	if args.Error(0) == nil {
		m.created = append(m.created, *message)
	}
	return args.Error(0)
}

func (m *MockMessageRepository) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, sessionID, limit)
	if m.returnCreated {
		return append([]domain.ChatMessage{}, m.created...), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChatMessage), args.Error(1)
}

type MockProvider struct {
	mock.Mock
	name string
}

func (m *MockProvider) Name() string {
	if m.name == "" {
		return "mock"
	}
	return m.name
}

func (m *MockProvider) AvailableModels() []string { return []string{"mock-model"} }

func (m *MockProvider) DefaultModel() string { return "mock-model" }

func (m *MockProvider) IsConfigured() bool { return true }

func (m *MockProvider) Complete(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	args := m.Called(ctx, req, model)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Response), args.Error(1)
}
