package contracts

import (
	"time"

	"github.com/google/uuid"
)

// BaseMessage provides common fields for all message types
type BaseMessage struct {
	ID            string `json:"id"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// NewBaseMessage creates a new base message with a generated ID. The ID doubles
// as the correlation ID until one is set explicitly.
func NewBaseMessage() BaseMessage {
	id := uuid.New().String()
	return BaseMessage{
		ID:            id,
		CorrelationID: id,
	}
}

// NewBaseMessageWithCorrelation creates a base message bound to an existing correlation ID
func NewBaseMessageWithCorrelation(correlationID string) BaseMessage {
	return BaseMessage{
		ID:            uuid.New().String(),
		CorrelationID: correlationID,
	}
}

// GetID returns the message ID
func (m BaseMessage) GetID() string {
	return m.ID
}

// GetCorrelationID returns the correlation ID
func (m BaseMessage) GetCorrelationID() string {
	return m.CorrelationID
}

// SetCorrelationID sets the correlation ID
func (m *BaseMessage) SetCorrelationID(correlationID string) {
	m.CorrelationID = correlationID
}

// BaseEvent provides common fields for event messages
type BaseEvent struct {
	BaseMessage
	OccurredAt time.Time `json:"occurredAt"`
}

// NewBaseEvent creates a new base event correlated to correlationID and stamped with the current time
func NewBaseEvent(correlationID string) BaseEvent {
	return NewBaseEventAt(correlationID, time.Now().UTC())
}

// NewBaseEventAt creates a new base event with an explicit occurrence time
func NewBaseEventAt(correlationID string, occurredAt time.Time) BaseEvent {
	return BaseEvent{
		BaseMessage: NewBaseMessageWithCorrelation(correlationID),
		OccurredAt:  occurredAt.UTC(),
	}
}

// GetOccurredAt returns when the event occurred
func (e BaseEvent) GetOccurredAt() time.Time {
	return e.OccurredAt
}
