package events

import (
	"context"
	"time"
)

const (
	TypeDocumentIngested = "document.ingested"
	TypeChatCompleted    = "chat.completed"
	TypeLocationSet      = "location.set"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "document.ingested").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Publisher delivers events to a bus. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func DocumentIngested(sourceID string, passages, indexTotal int) BaseEvent {
	return BaseEvent{
		Type: TypeDocumentIngested,
		Data: map[string]interface{}{
			"source_id":   sourceID,
			"passages":    passages,
			"index_total": indexTotal,
		},
		OccurredAt: time.Now().UTC(),
	}
}

func ChatCompleted(sessionID string, sources int) BaseEvent {
	return BaseEvent{
		Type: TypeChatCompleted,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"sources":    sources,
		},
		OccurredAt: time.Now().UTC(),
	}
}

func LocationSet(location string) BaseEvent {
	return BaseEvent{
		Type:       TypeLocationSet,
		Data:       map[string]interface{}{"location": location},
		OccurredAt: time.Now().UTC(),
	}
}

// NopPublisher drops every event. Used when no bus is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
