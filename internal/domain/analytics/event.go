// Package analytics defines the interaction-event domain model and the
// contracts for storing and aggregating events.
package analytics

import "time"

// EventType identifies a kind of form interaction. The set is closed;
// ingestion rejects anything outside it.
type EventType string

const (
	EventFieldFocus   EventType = "field_focus"
	EventFieldBlur    EventType = "field_blur"
	EventFieldChange  EventType = "field_change"
	EventTypingPause  EventType = "typing_pause"
	EventFieldRevisit EventType = "field_revisit"
	EventStepView     EventType = "step_view"
	EventStepComplete EventType = "step_complete"
	EventStepAbandon  EventType = "step_abandon"
	EventFormSubmit   EventType = "form_submit"
)

var knownEventTypes = map[EventType]bool{
	EventFieldFocus:   true,
	EventFieldBlur:    true,
	EventFieldChange:  true,
	EventTypingPause:  true,
	EventFieldRevisit: true,
	EventStepView:     true,
	EventStepComplete: true,
	EventStepAbandon:  true,
	EventFormSubmit:   true,
}

// IsValid reports whether t is a member of the closed event-type set.
func (t EventType) IsValid() bool {
	return knownEventTypes[t]
}

// PageLevelField is the sentinel bucket for events that carry no field name
// (step views, abandons, submits).
const PageLevelField = "_page"

// InteractionEvent is an immutable interaction fact. OccurredAt is stamped
// by the server at ingestion; the ApplicationID is always taken from the
// request path, never from the event body. Clients cannot set either.
type InteractionEvent struct {
	ID            string         `json:"id"`
	ApplicationID string         `json:"applicationId"`
	FieldName     string         `json:"fieldName,omitempty"`
	EventType     EventType      `json:"eventType"`
	DurationMs    *int           `json:"durationMs,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	OccurredAt    time.Time      `json:"occurredAt"`
}

// FieldHeatmapEntry is a derived per-field friction aggregate. It is a pure
// projection of the event log and is never persisted.
type FieldHeatmapEntry struct {
	FieldName       string `json:"fieldName"`
	FocusCount      int    `json:"focusCount"`
	TotalDurationMs int    `json:"totalDurationMs"`
	PauseCount      int    `json:"pauseCount"`
	RevisitCount    int    `json:"revisitCount"`
}

// SummaryRow is one (field, eventType) aggregate from the summary and
// tenant-friction queries.
type SummaryRow struct {
	FieldName     string    `json:"fieldName"`
	EventType     EventType `json:"eventType"`
	Count         int       `json:"count"`
	AvgDurationMs float64   `json:"avgDurationMs"`
	SumDurationMs int       `json:"sumDurationMs"`
}
