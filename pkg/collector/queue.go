// Package collector implements the client-side event queue that batches
// form interaction events and ships them to the ingestion endpoint.
package collector

import (
	"sync"
	"time"

	"github.com/FundingReach/intakeflow-go/internal/domain/analytics"
	"github.com/FundingReach/intakeflow-go/pkg/config"
)

// Options tunes queue behavior. Zero values fall back to the central
// config defaults.
type Options struct {
	PauseThreshold time.Duration
	FlushInterval  time.Duration
	MaxBatchSize   int
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.PauseThreshold <= 0 {
		out.PauseThreshold = config.PauseThreshold
	}
	if out.FlushInterval <= 0 {
		out.FlushInterval = config.FlushInterval
	}
	if out.MaxBatchSize <= 0 {
		out.MaxBatchSize = config.MaxBatchSize
	}
	return out
}

type fieldState struct {
	focusedAt  time.Time
	visited    bool
	pauseTimer *time.Timer
}

func (s *fieldState) cancelPauseTimer() {
	if s.pauseTimer != nil {
		s.pauseTimer.Stop()
		s.pauseTimer = nil
	}
}

// EventQueue batches interaction events per application. A flush happens
// when the batch hits its size cap or when the flush interval elapses with
// no new events; every enqueue pushes the interval timer back.
type EventQueue struct {
	mu          sync.Mutex
	sink        Sink
	opts        Options
	pending     []*analytics.InteractionEvent
	fields      map[string]*fieldState
	currentStep int
	flushTimer  *time.Timer
	closed      bool
}

// NewEventQueue creates a queue delivering to sink.
func NewEventQueue(sink Sink, opts Options) *EventQueue {
	return &EventQueue{
		sink:   sink,
		opts:   (&opts).withDefaults(),
		fields: make(map[string]*fieldState),
	}
}

// OnFocus records entry into a field. The first visit emits a focus event;
// refocusing a field that was already visited emits a revisit instead.
func (q *EventQueue) OnFocus(fieldName string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}

	state := q.fieldState(fieldName)
	eventType := analytics.EventFieldFocus
	if state.visited {
		eventType = analytics.EventFieldRevisit
	}
	state.visited = true
	state.focusedAt = time.Now()

	q.enqueueLocked(newEvent(eventType, fieldName, nil))
}

// OnBlur records exit from a field, carrying the dwell duration.
func (q *EventQueue) OnBlur(fieldName string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}

	state := q.fieldState(fieldName)
	state.cancelPauseTimer()

	var duration *int
	if !state.focusedAt.IsZero() {
		ms := int(time.Since(state.focusedAt).Milliseconds())
		duration = &ms
		state.focusedAt = time.Time{}
	}

	q.enqueueLocked(newEvent(analytics.EventFieldBlur, fieldName, duration))
}

// OnKeystroke arms the typing-pause detector for a field. A pause event
// fires if no further keystroke arrives within the pause threshold.
func (q *EventQueue) OnKeystroke(fieldName string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}

	state := q.fieldState(fieldName)
	state.cancelPauseTimer()
	state.pauseTimer = time.AfterFunc(q.opts.PauseThreshold, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		if q.closed {
			return
		}
		q.enqueueLocked(newEvent(analytics.EventTypingPause, fieldName, nil))
	})
}

// OnChange records a committed value change for a field.
func (q *EventQueue) OnChange(fieldName string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.enqueueLocked(newEvent(analytics.EventFieldChange, fieldName, nil))
}

// StepView records the guest arriving at a form step.
func (q *EventQueue) StepView(step int) {
	q.trackStep(analytics.EventStepView, step)
}

// StepComplete records the guest finishing a form step. Step boundaries are
// delivery points, so the queue flushes right away.
func (q *EventQueue) StepComplete(step int) {
	q.trackStep(analytics.EventStepComplete, step)
	q.Flush()
}

// FormSubmit records final submission of the form.
func (q *EventQueue) FormSubmit() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.enqueueLocked(newEvent(analytics.EventFormSubmit, "", nil))
}

func (q *EventQueue) trackStep(eventType analytics.EventType, step int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.currentStep = step
	event := newEvent(eventType, "", nil)
	event.Metadata = map[string]any{"step": step}
	q.enqueueLocked(event)
}

// Flush synchronously delivers everything pending, in batches no larger
// than the configured cap. On delivery failure the batch is put back at the
// front of the queue so ordering survives retries.
func (q *EventQueue) Flush() error {
	for {
		q.mu.Lock()
		batch := q.takeBatchLocked()
		q.mu.Unlock()

		if len(batch) == 0 {
			return nil
		}
		if err := q.deliver(batch); err != nil {
			return err
		}
	}
}

// Close records abandonment of the current step, stops all timers, and
// performs one final synchronous flush. The queue accepts no events after.
func (q *EventQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}

	if q.currentStep > 0 {
		event := newEvent(analytics.EventStepAbandon, "", nil)
		event.Metadata = map[string]any{"step": q.currentStep}
		q.pending = append(q.pending, event)
	}

	q.closed = true
	for _, state := range q.fields {
		state.cancelPauseTimer()
	}
	if q.flushTimer != nil {
		q.flushTimer.Stop()
		q.flushTimer = nil
	}
	q.mu.Unlock()

	return q.Flush()
}

// Pending reports how many events are waiting for the next flush.
func (q *EventQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *EventQueue) fieldState(fieldName string) *fieldState {
	state, ok := q.fields[fieldName]
	if !ok {
		state = &fieldState{}
		q.fields[fieldName] = state
	}
	return state
}

func (q *EventQueue) enqueueLocked(event *analytics.InteractionEvent) {
	q.pending = append(q.pending, event)

	if len(q.pending) >= q.opts.MaxBatchSize {
		batch := q.takeBatchLocked()
		go q.deliver(batch)
		return
	}

	// Every enqueue pushes the idle flush further out.
	if q.flushTimer != nil {
		q.flushTimer.Stop()
	}
	q.flushTimer = time.AfterFunc(q.opts.FlushInterval, func() {
		q.mu.Lock()
		closed := q.closed
		q.mu.Unlock()
		if !closed {
			q.Flush()
		}
	})
}

// takeBatchLocked removes up to MaxBatchSize events from the front of the
// queue. The ingestion endpoint rejects larger batches, so anything beyond
// the cap stays behind for the next delivery.
func (q *EventQueue) takeBatchLocked() []*analytics.InteractionEvent {
	n := len(q.pending)
	if n > q.opts.MaxBatchSize {
		n = q.opts.MaxBatchSize
	}
	batch := q.pending[:n:n]
	q.pending = q.pending[n:]
	if len(q.pending) == 0 {
		q.pending = nil
		if q.flushTimer != nil {
			q.flushTimer.Stop()
			q.flushTimer = nil
		}
	}
	return batch
}

// deliver runs outside the queue lock so slow sinks never block capture.
func (q *EventQueue) deliver(batch []*analytics.InteractionEvent) error {
	if len(batch) == 0 {
		return nil
	}

	if err := q.sink.Deliver(batch); err != nil {
		q.mu.Lock()
		q.pending = append(batch, q.pending...)
		q.mu.Unlock()
		return err
	}
	return nil
}

// newEvent builds the wire event. OccurredAt stays zero; the server stamps
// ingestion time on receipt.
func newEvent(eventType analytics.EventType, fieldName string, durationMs *int) *analytics.InteractionEvent {
	return &analytics.InteractionEvent{
		FieldName:  fieldName,
		EventType:  eventType,
		DurationMs: durationMs,
	}
}
