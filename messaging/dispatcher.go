package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync/atomic"

	"github.com/glimte/typebus/contracts"
	"github.com/glimte/typebus/interceptors"
)

// Bus routes messages to handlers by runtime type. Commands are delivered to
// the most specific type key that has handlers; events are delivered to every
// matching key.
type Bus struct {
	registry  *Registry
	resolvers *resolverTable
	chain     *interceptors.InterceptorChain
	logger    *slog.Logger
	pending   atomic.Int64
}

// Option configures the Bus
type Option func(*Bus)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithInterceptors wraps every dispatch in the given interceptors. The first
// interceptor runs outermost.
func WithInterceptors(ics ...interceptors.Interceptor) Option {
	return func(b *Bus) {
		for _, ic := range ics {
			if ic != nil {
				b.chain.Add(ic)
			}
		}
	}
}

// WithInterceptorChain replaces the interceptor chain
func WithInterceptorChain(chain *interceptors.InterceptorChain) Option {
	return func(b *Bus) {
		if chain != nil {
			b.chain = chain
		}
	}
}

// New creates a new bus
func New(options ...Option) *Bus {
	b := &Bus{
		resolvers: newResolverTable(),
		logger:    slog.Default(),
	}
	b.chain = interceptors.NewInterceptorChain(nil)

	for _, opt := range options {
		opt(b)
	}

	b.registry = NewRegistry(b.logger)
	return b
}

// Registry returns the bus's handler registry
func (b *Bus) Registry() *Registry {
	return b.registry
}

// PendingRequests returns the number of requests still awaiting an outcome
func (b *Bus) PendingRequests() int {
	return int(b.pending.Load())
}

// Handle dispatches msg to its handlers. Finding no handler is not an error.
func (b *Bus) Handle(ctx context.Context, msg contracts.Message) error {
	_, err := b.Dispatch(ctx, msg)
	return err
}

// Dispatch dispatches msg and reports whether any handler processed it. A
// handler error is returned unchanged and stops the dispatch.
func (b *Bus) Dispatch(ctx context.Context, msg contracts.Message) (bool, error) {
	if isNil(msg) {
		return false, contracts.ErrNilMessage
	}

	return b.chain.Execute(ctx, msg, interceptors.DispatcherFunc(b.dispatch))
}

// Send dispatches a command
func (b *Bus) Send(ctx context.Context, cmd contracts.Message) error {
	if contracts.IsEvent(cmd) {
		return fmt.Errorf("%w: %T", ErrNotCommand, cmd)
	}
	return b.Handle(ctx, cmd)
}

// Publish dispatches an event
func (b *Bus) Publish(ctx context.Context, evt contracts.Event) error {
	return b.Handle(ctx, evt)
}

// RemoveHandler removes the registration identified by tok
func (b *Bus) RemoveHandler(tok Token) error {
	return b.registry.Remove(tok.key, tok)
}

// CandidateKeys returns the type keys msg would be offered under, in order
func (b *Bus) CandidateKeys(msg contracts.Message) []reflect.Type {
	if isNil(msg) {
		return nil
	}

	candidates := candidatesFor(msg, b.registry.interfaceKeys())
	keys := make([]reflect.Type, len(candidates))
	for i, c := range candidates {
		keys[i] = c.key
	}
	return keys
}

func (b *Bus) dispatch(ctx context.Context, msg contracts.Message) (bool, error) {
	broadcast := contracts.IsEvent(msg)
	processed := false

	for _, c := range candidatesFor(msg, b.registry.interfaceKeys()) {
		inv, ok := b.registry.Lookup(c.key)
		if !ok {
			continue
		}

		processed = true
		if err := inv.Invoke(ctx, c.msg); err != nil {
			return processed, err
		}
		if !broadcast {
			break
		}
	}

	return processed, nil
}

// AddHandler registers consumer for messages of type T. T may be a concrete
// message type, an embedded base type or an interface.
func AddHandler[T contracts.Message](b *Bus, consumer Consumer[T]) (Token, error) {
	if isNil(consumer) {
		return Token{}, contracts.ErrNilHandler
	}

	key := TypeOf[T]()
	return b.registry.Add(key, MessageHandlerFunc(func(ctx context.Context, msg contracts.Message) error {
		typed, ok := msg.(T)
		if !ok {
			return fmt.Errorf("%w: got %T, want %s", ErrUnexpectedMessageType, msg, key)
		}
		return consumer.Consume(ctx, typed)
	}))
}

// AddHandlerFunc registers fn for messages of type T
func AddHandlerFunc[T contracts.Message](b *Bus, fn func(ctx context.Context, msg T) error) (Token, error) {
	if fn == nil {
		return Token{}, contracts.ErrNilHandler
	}
	return AddHandler[T](b, ConsumerFunc[T](fn))
}

// RemoveHandler removes a registration made for T. A token issued for a
// different type is rejected with ErrInvalidToken.
func RemoveHandler[T contracts.Message](b *Bus, tok Token) error {
	return b.registry.Remove(TypeOf[T](), tok)
}
