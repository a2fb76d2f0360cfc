package analyst

import (
	"github.com/deshawnc/threatlens/internal/domain"
	"github.com/google/uuid"
)

const (
	// DefaultSessionContext is how many recent events ground a session
	// turn when the caller supplies neither IDs nor filters.
	DefaultSessionContext = 15

	// DefaultQuickContext is the no-input default for quick analysis.
	DefaultQuickContext = 10

	// MaxFilteredContext caps filter-based selections.
	MaxFilteredContext = 20
)

// ContextRequest carries the caller's evidence hints for one turn
type ContextRequest struct {
	EventIDs []uuid.UUID
	Filters  *domain.EventFilter
	Quick    bool
}

// SelectContext picks the grounding events for a model turn from the
// corpus, which is consumed pre-sorted newest first.
//
// Explicit event IDs win: exactly the matching events are returned in
// corpus order with no cap. Otherwise a filter narrows the corpus (set
// fields AND together, absent fields are wildcards) and the first
// MaxFilteredContext matches are kept. With no hints at all, the most
// recent events are used. An empty selection is valid and passed through.
func SelectContext(events []domain.SecurityEvent, req ContextRequest) []domain.SecurityEvent {
	if len(req.EventIDs) > 0 {
		wanted := make(map[uuid.UUID]struct{}, len(req.EventIDs))
		for _, id := range req.EventIDs {
			wanted[id] = struct{}{}
		}
		var selected []domain.SecurityEvent
		for _, e := range events {
			if _, ok := wanted[e.ID]; ok {
				selected = append(selected, e)
			}
		}
		return selected
	}

	if req.Filters != nil && !req.Filters.IsZero() {
		var selected []domain.SecurityEvent
		for _, e := range events {
			if req.Filters.Matches(&e) {
				selected = append(selected, e)
				if len(selected) == MaxFilteredContext {
					break
				}
			}
		}
		return selected
	}

	limit := DefaultSessionContext
	if req.Quick {
		limit = DefaultQuickContext
	}
	if len(events) > limit {
		events = events[:limit]
	}
	return events
}
