package analytics

// EventRepository defines the contract for persisting and reading back
// interaction events within one tenant's database.
type EventRepository interface {
	// StoreBatch persists all events as a single atomic unit; either every
	// event in the batch is recorded or none are.
	StoreBatch(events []*InteractionEvent) error

	// FindByApplication returns all events for an application in insertion
	// order.
	FindByApplication(applicationID string) ([]*InteractionEvent, error)

	// Summarize returns per-(field, eventType) counts and duration sums for
	// one application.
	Summarize(applicationID string) ([]*SummaryRow, error)

	// TenantFriction returns per-(field, eventType) counts across the whole
	// tenant, restricted to the given event types, ordered by count
	// descending and capped at limit rows.
	TenantFriction(eventTypes []EventType, limit int) ([]*SummaryRow, error)
}
