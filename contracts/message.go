package contracts

import (
	"time"
)

// Message is the base interface for all messages
type Message interface {
	GetCorrelationID() string
}

// Event represents something that has happened
type Event interface {
	Message
	GetOccurredAt() time.Time
}

// IsEvent reports whether msg has broadcast semantics
func IsEvent(msg Message) bool {
	_, ok := msg.(Event)
	return ok
}
