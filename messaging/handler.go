package messaging

import (
	"context"
	"reflect"

	"github.com/glimte/typebus/contracts"
)

// MessageHandler processes a message delivered for one type key
type MessageHandler interface {
	Handle(ctx context.Context, msg contracts.Message) error
}

// MessageHandlerFunc is a function adapter for MessageHandler
type MessageHandlerFunc func(ctx context.Context, msg contracts.Message) error

// Handle implements MessageHandler
func (f MessageHandlerFunc) Handle(ctx context.Context, msg contracts.Message) error {
	return f(ctx, msg)
}

// Consumer accepts one message of type T and acts on it
type Consumer[T contracts.Message] interface {
	Consume(ctx context.Context, msg T) error
}

// ConsumerFunc is a function adapter for Consumer
type ConsumerFunc[T contracts.Message] func(ctx context.Context, msg T) error

// Consume implements Consumer
func (f ConsumerFunc[T]) Consume(ctx context.Context, msg T) error {
	return f(ctx, msg)
}

// TypeOf returns the type key under which handlers for T are registered
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// isNil reports whether v is nil or a typed nil of a nillable kind
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Chan, reflect.Interface, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}
