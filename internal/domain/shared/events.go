// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Correctness-critical reactions (agreement provisioning)
// run inside the transaction that raised the event; everything subscribed on
// the bus is best effort.
const (
	// Application events
	EventApplicationSubmitted EventType = "application.submitted"
	EventApplicationAccepted  EventType = "application.accepted"
	EventApplicationRejected  EventType = "application.rejected"
	EventApplicationWithdrawn EventType = "application.withdrawn"

	// Agreement events
	EventAgreementCreated     EventType = "agreement.created"
	EventAgreementSigned      EventType = "agreement.signed"
	EventAgreementFullySigned EventType = "agreement.fully_signed"
	EventDocumentGenerated    EventType = "agreement.document_generated"
	EventDocumentRenderFailed EventType = "agreement.document_render_failed"
	EventAgreementArchived    EventType = "agreement.archived"

	// Supervision events
	EventTutorAssigned   EventType = "supervision.tutor_assigned"
	EventProgressUpdated EventType = "supervision.progress_updated"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// Base returns the common fields of any event that embeds BaseEvent.
func (e BaseEvent) Base() BaseEvent {
	return e
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Generic Event (events received from another instance)
// ═══════════════════════════════════════════════════════════════════════════

// GenericEvent is an event rebuilt from its envelope. Handlers that must work
// across instances read their fields through Payload().
type GenericEvent struct {
	BaseEvent
	Data map[string]interface{}
}

// Payload implements Event interface.
func (e GenericEvent) Payload() map[string]interface{} {
	return e.Data
}

// PayloadString reads a string field from any event payload.
func PayloadString(e Event, key string) string {
	if v, ok := e.Payload()[key].(string); ok {
		return v
	}
	return ""
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// ToEvent decodes the envelope into a GenericEvent.
func (env EventEnvelope) ToEvent() (GenericEvent, error) {
	data := make(map[string]interface{})
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &data); err != nil {
			return GenericEvent{}, err
		}
	}
	return GenericEvent{
		BaseEvent: BaseEvent{
			Type:          env.Type,
			Timestamp:     env.Timestamp,
			AggregateId:   env.AggregateID,
			Version:       env.Version,
			CorrelationID: env.CorrelationID,
		},
		Data: data,
	}, nil
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// PublishAll publishes events in order and returns the first error.
// Remaining events are still attempted.
func PublishAll(p EventPublisher, events []Event) error {
	var first error
	for _, e := range events {
		if err := p.Publish(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
