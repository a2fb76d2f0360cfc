package analyst

import (
	"fmt"
	"testing"
	"time"

	"github.com/deshawnc/threatlens/internal/domain"
	"github.com/deshawnc/threatlens/internal/llm"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() domain.SecurityEvent {
	return domain.SecurityEvent{
		ID:          uuid.New(),
		Timestamp:   time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		EventType:   "malware_detected",
		Severity:    domain.SeverityCritical,
		SourceIP:    "10.1.2.3",
		Username:    "jsmith",
		Description: "Trojan detected on workstation",
		Status:      "quarantined",
		Category:    "endpoint",
		RuleName:    "AV-4412",
		Tactic:      "Execution",
		Technique:   "T1204",
		RawLog:      `{"engine":"defender"}`,
	}
}

func TestBuildSystemPrompt_StatesEventCount(t *testing.T) {
	events := []domain.SecurityEvent{sampleEvent(), sampleEvent(), sampleEvent()}

	prompt := BuildSystemPrompt(events, false)
	assert.Contains(t, prompt, "Security events in context (3):")
	assert.Contains(t, prompt, "Event 1:")
	assert.Contains(t, prompt, "Event 3:")
}

func TestBuildSystemPrompt_EmptyContextStatesZero(t *testing.T) {
	prompt := BuildSystemPrompt(nil, false)
	assert.Contains(t, prompt, "Security events in context (0):")
	assert.Contains(t, prompt, "expert security analyst")
}

func TestBuildSystemPrompt_OmitsEmptyFields(t *testing.T) {
	e := sampleEvent()
	e.DestinationIP = ""
	e.Action = ""

	prompt := BuildSystemPrompt([]domain.SecurityEvent{e}, false)
	assert.NotContains(t, prompt, "destination:")
	assert.NotContains(t, prompt, "action:")
	assert.Contains(t, prompt, "severity: Critical")
	assert.Contains(t, prompt, "timestamp: 2026-03-14T09:30:00Z")
}

func TestBuildSystemPrompt_QuickModeTrimsProjection(t *testing.T) {
	e := sampleEvent()

	full := BuildSystemPrompt([]domain.SecurityEvent{e}, false)
	quick := BuildSystemPrompt([]domain.SecurityEvent{e}, true)

	assert.Contains(t, full, "user: jsmith")
	assert.Contains(t, full, "rule: AV-4412")
	assert.Contains(t, full, "raw_log:")
	assert.NotContains(t, quick, "user: jsmith")
	assert.NotContains(t, quick, "rule: AV-4412")
	assert.NotContains(t, quick, "raw_log:")
	assert.Contains(t, quick, "tactic: Execution")
}

func TestBuildSystemPrompt_MetadataSerialized(t *testing.T) {
	e := sampleEvent()
	e.Metadata = &domain.EventMetadata{Protocol: "tcp", DestinationPort: 445}

	prompt := BuildSystemPrompt([]domain.SecurityEvent{e}, false)
	assert.Contains(t, prompt, `"protocol":"tcp"`)
	assert.Contains(t, prompt, `"destination_port":445`)
}

func turn(role domain.MessageRole, content string) domain.ChatMessage {
	return domain.ChatMessage{ID: uuid.New(), Role: role, Content: content}
}

func TestAssembleMessages_Ordering(t *testing.T) {
	history := []domain.ChatMessage{
		turn(domain.RoleUser, "first question"),
		turn(domain.RoleAssistant, "first answer"),
	}

	messages := AssembleMessages(nil, history, "second question", false)

	require.Len(t, messages, 4)
	assert.Equal(t, llm.RoleSystem, messages[0].Role)
	assert.Equal(t, "first question", messages[1].Content)
	assert.Equal(t, "first answer", messages[2].Content)
	assert.Equal(t, llm.RoleUser, messages[3].Role)
	assert.Equal(t, "second question", messages[3].Content)
}

func TestAssembleMessages_HistoryCapKeepsNewest(t *testing.T) {
	var history []domain.ChatMessage
	for i := 0; i < 16; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		history = append(history, turn(role, fmt.Sprintf("turn %d", i)))
	}

	messages := AssembleMessages(nil, history, "new", false)

	// system + capped history + new turn
	require.Len(t, messages, 1+HistoryReplayLimit+1)
	assert.Equal(t, "turn 6", messages[1].Content)
	assert.Equal(t, "turn 15", messages[len(messages)-2].Content)
}

func TestAssembleMessages_SystemTurnsExcludedBeforeCap(t *testing.T) {
	// System-role rows never replay and must not consume window slots.
	var history []domain.ChatMessage
	for i := 0; i < 12; i++ {
		history = append(history, turn(domain.RoleSystem, fmt.Sprintf("note %d", i)))
	}
	history = append(history, turn(domain.RoleUser, "real question"))
	history = append(history, turn(domain.RoleAssistant, "real answer"))

	messages := AssembleMessages(nil, history, "followup", false)

	require.Len(t, messages, 4)
	for _, m := range messages[1:] {
		assert.NotContains(t, m.Content, "note")
	}
}

func TestAssembleMessages_QuickCarriesNoHistory(t *testing.T) {
	history := []domain.ChatMessage{
		turn(domain.RoleUser, "earlier"),
		turn(domain.RoleAssistant, "reply"),
	}

	messages := AssembleMessages(nil, history, "question", true)

	require.Len(t, messages, 2)
	assert.Equal(t, llm.RoleSystem, messages[0].Role)
	assert.Equal(t, "question", messages[1].Content)
}
