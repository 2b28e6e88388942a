// Package contracts provides the message types and interfaces that flow through the typebus dispatcher.
//
// This package defines the base contracts for messages:
//   - Message: Base interface for all messages. A message that is not an
//     event is treated as a command and is delivered to at most one type key.
//   - Event: A message that additionally carries the time it occurred.
//     Events are broadcast to every matching type key.
//
// BaseMessage and BaseEvent are meant to be embedded as the first field of
// application message structs. The embedded carrier is what the dispatcher
// treats as the message's base type:
//
//	type OrderPlaced struct {
//		contracts.BaseEvent
//		OrderID string `json:"orderId"`
//	}
//
// A handler registered for *contracts.BaseEvent then receives every event
// sent as a pointer whose base chain reaches BaseEvent.
package contracts
