package messaging

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidToken is returned when removing with a token this registry never issued
	ErrInvalidToken = errors.New("invalid registration token")

	// ErrNilMessageType is returned when a handler is registered without a type key
	ErrNilMessageType = errors.New("message type cannot be nil")

	// ErrNoConsumerAttached is returned when a pipe is driven before a downstream consumer is attached
	ErrNoConsumerAttached = errors.New("no consumer attached to pipe")

	// ErrUnexpectedMessageType is returned when a typed consumer receives a message of another type
	ErrUnexpectedMessageType = errors.New("unexpected message type")

	// ErrNotCommand is returned when an event is passed to Send
	ErrNotCommand = errors.New("message is an event, use Publish")

	// ErrRequestCanceled marks a request that was cancelled before a response arrived
	ErrRequestCanceled = errors.New("request canceled")

	// ErrRequestPending is returned by Future.Result while no outcome is known yet
	ErrRequestPending = errors.New("request still pending")
)

// ReceivedErrorEventError is the failure of a request that was answered on its error path.
// The received event is kept as structured payload.
type ReceivedErrorEventError[T any] struct {
	Event         T
	CorrelationID string
}

func (e *ReceivedErrorEventError[T]) Error() string {
	return fmt.Sprintf("received error event %T for correlation id %q", e.Event, e.CorrelationID)
}

// PanicError carries a value recovered while matching or resolving a response
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic while handling response: %v", e.Value)
}

// Unwrap returns the recovered value when it is an error
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
