package analyst

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/deshawnc/threatlens/internal/domain"
	"github.com/deshawnc/threatlens/internal/llm"
)

// HistoryReplayLimit bounds how many prior turns are replayed to the
// model regardless of session length.
const HistoryReplayLimit = 10

const analystRole = `You are an expert security analyst assisting a SOC team through an enterprise security dashboard.

You can:
- Analyze security events and identify patterns, anomalies, and likely root causes
- Correlate events across sources into probable attack chains
- Map activity to MITRE ATT&CK tactics and techniques
- Assess severity and business impact, and prioritize what to investigate first
- Recommend concrete containment, remediation, and hardening steps

When analyzing, consider:
- Whether events are isolated or part of a coordinated campaign
- False-positive likelihood given the source, rule, and context
- Lateral movement, privilege escalation, and data exfiltration indicators
- What evidence is missing and what to collect next

Ground every conclusion in the event data provided below. If the data is insufficient to answer, say so rather than speculating.`

// BuildSystemPrompt produces the system instruction: the analyst role,
// then the serialized projection of the context events with their count.
// Quick mode uses a trimmed projection.
func BuildSystemPrompt(events []domain.SecurityEvent, quick bool) string {
	var b strings.Builder
	b.WriteString(analystRole)
	b.WriteString(fmt.Sprintf("\n\nSecurity events in context (%d):\n", len(events)))
	for i, e := range events {
		b.WriteString(fmt.Sprintf("\nEvent %d:\n", i+1))
		writeEvent(&b, &e, quick)
	}
	return b.String()
}

func writeEvent(b *strings.Builder, e *domain.SecurityEvent, quick bool) {
	writeField(b, "id", e.ID.String())
	writeField(b, "timestamp", e.Timestamp.UTC().Format(time.RFC3339))
	writeField(b, "type", e.EventType)
	writeField(b, "severity", string(e.Severity))
	writeField(b, "source", e.SourceIP)
	writeField(b, "destination", e.DestinationIP)
	if !quick {
		writeField(b, "user", e.Username)
	}
	writeField(b, "description", e.Description)
	writeField(b, "action", e.Action)
	if !quick {
		writeField(b, "status", e.Status)
		writeField(b, "category", e.Category)
	}
	writeField(b, "tactic", e.Tactic)
	writeField(b, "technique", e.Technique)
	if !quick {
		writeField(b, "rule", e.RuleName)
	}
	if e.Metadata != nil && !e.Metadata.IsZero() {
		if data, err := json.Marshal(e.Metadata); err == nil {
			writeField(b, "metadata", string(data))
		}
	}
	if !quick {
		writeField(b, "raw_log", e.RawLog)
	}
}

func writeField(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	b.WriteString("  ")
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}

// AssembleMessages builds the ordered message list for the model: system
// instruction first, then up to HistoryReplayLimit prior turns oldest to
// newest, then the new user turn last. Stored system-role turns never
// participate in replay. Quick mode carries no history.
func AssembleMessages(events []domain.SecurityEvent, history []domain.ChatMessage, userMessage string, quick bool) []llm.Message {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: BuildSystemPrompt(events, quick)},
	}

	if !quick {
		var replay []domain.ChatMessage
		for _, m := range history {
			if m.Role == domain.RoleUser || m.Role == domain.RoleAssistant {
				replay = append(replay, m)
			}
		}
		if len(replay) > HistoryReplayLimit {
			replay = replay[len(replay)-HistoryReplayLimit:]
		}
		for _, m := range replay {
			messages = append(messages, llm.Message{
				Role:    string(m.Role),
				Content: m.Content,
			})
		}
	}

	return append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})
}
