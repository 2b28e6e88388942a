package interceptors

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/glimte/typebus/contracts"
	"github.com/trickstertwo/xclock"
)

// Dispatcher delivers a message and reports whether any handler processed it
type Dispatcher interface {
	Dispatch(ctx context.Context, msg contracts.Message) (bool, error)
}

// DispatcherFunc is a function adapter for Dispatcher
type DispatcherFunc func(ctx context.Context, msg contracts.Message) (bool, error)

// Dispatch implements Dispatcher
func (f DispatcherFunc) Dispatch(ctx context.Context, msg contracts.Message) (bool, error) {
	return f(ctx, msg)
}

// Interceptor wraps a whole dispatch of one message
type Interceptor interface {
	// Intercept processes a message and calls the next dispatcher in the chain
	Intercept(ctx context.Context, msg contracts.Message, next Dispatcher) (bool, error)

	// Name returns the interceptor name for logging and debugging
	Name() string
}

// InterceptorFunc is a function adapter for Interceptor
type InterceptorFunc struct {
	name string
	fn   func(ctx context.Context, msg contracts.Message, next Dispatcher) (bool, error)
}

// NewInterceptorFunc creates a new function-based interceptor
func NewInterceptorFunc(name string, fn func(ctx context.Context, msg contracts.Message, next Dispatcher) (bool, error)) *InterceptorFunc {
	return &InterceptorFunc{name: name, fn: fn}
}

// Intercept implements Interceptor
func (i *InterceptorFunc) Intercept(ctx context.Context, msg contracts.Message, next Dispatcher) (bool, error) {
	return i.fn(ctx, msg, next)
}

// Name implements Interceptor
func (i *InterceptorFunc) Name() string {
	return i.name
}

// MessageType returns the name used for msg in logs, metrics and spans
func MessageType(msg contracts.Message) string {
	return fmt.Sprintf("%T", msg)
}

// InterceptorChain manages a chain of interceptors. Configure it before the
// first Execute; it is not safe to Add concurrently with dispatch.
type InterceptorChain struct {
	interceptors []Interceptor
	logger       *slog.Logger
}

// NewInterceptorChain creates a new interceptor chain
func NewInterceptorChain(logger *slog.Logger) *InterceptorChain {
	if logger == nil {
		logger = slog.Default()
	}

	return &InterceptorChain{
		interceptors: make([]Interceptor, 0),
		logger:       logger,
	}
}

// Add adds an interceptor to the chain
func (c *InterceptorChain) Add(interceptor Interceptor) *InterceptorChain {
	c.interceptors = append(c.interceptors, interceptor)
	c.logger.Debug("added interceptor", "interceptor", interceptor.Name())
	return c
}

// Len returns the number of interceptors
func (c *InterceptorChain) Len() int {
	return len(c.interceptors)
}

// Names returns the interceptor names in execution order
func (c *InterceptorChain) Names() []string {
	names := make([]string, len(c.interceptors))
	for i, ic := range c.interceptors {
		names[i] = ic.Name()
	}
	return names
}

// Execute executes the interceptor chain around final
func (c *InterceptorChain) Execute(ctx context.Context, msg contracts.Message, final Dispatcher) (bool, error) {
	if len(c.interceptors) == 0 {
		return final.Dispatch(ctx, msg)
	}

	// Build the chain in reverse order
	next := final
	for i := len(c.interceptors) - 1; i >= 0; i-- {
		interceptor := c.interceptors[i]
		current := next
		next = DispatcherFunc(func(ctx context.Context, msg contracts.Message) (bool, error) {
			return interceptor.Intercept(ctx, msg, current)
		})
	}

	return next.Dispatch(ctx, msg)
}

// Built-in interceptors

// LoggingInterceptor logs message dispatch
type LoggingInterceptor struct {
	logger *slog.Logger
	clock  xclock.Clock
}

// NewLoggingInterceptor creates a new logging interceptor
func NewLoggingInterceptor(logger *slog.Logger, clock xclock.Clock) *LoggingInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = xclock.Default()
	}

	return &LoggingInterceptor{logger: logger, clock: clock}
}

// Intercept implements Interceptor
func (i *LoggingInterceptor) Intercept(ctx context.Context, msg contracts.Message, next Dispatcher) (bool, error) {
	start := i.clock.Now()
	messageType := MessageType(msg)

	i.logger.Debug("dispatching message",
		"messageType", messageType,
		"correlationId", msg.GetCorrelationID(),
		"event", contracts.IsEvent(msg),
	)

	processed, err := next.Dispatch(ctx, msg)
	duration := i.clock.Since(start)

	switch {
	case err != nil:
		i.logger.Error("message dispatch failed",
			"messageType", messageType,
			"correlationId", msg.GetCorrelationID(),
			"duration", duration,
			"error", err,
		)
	case !processed:
		i.logger.Debug("message had no handlers",
			"messageType", messageType,
			"correlationId", msg.GetCorrelationID(),
		)
	default:
		i.logger.Debug("message dispatched",
			"messageType", messageType,
			"correlationId", msg.GetCorrelationID(),
			"duration", duration,
		)
	}

	return processed, err
}

// Name implements Interceptor
func (i *LoggingInterceptor) Name() string {
	return "LoggingInterceptor"
}

// ValidationInterceptor validates messages before dispatch
type ValidationInterceptor struct {
	validator MessageValidator
}

// MessageValidator defines the interface for message validation
type MessageValidator interface {
	Validate(ctx context.Context, msg contracts.Message) error
}

// MessageValidatorFunc is a function adapter for MessageValidator
type MessageValidatorFunc func(ctx context.Context, msg contracts.Message) error

// Validate implements MessageValidator
func (f MessageValidatorFunc) Validate(ctx context.Context, msg contracts.Message) error {
	return f(ctx, msg)
}

// NewValidationInterceptor creates a new validation interceptor
func NewValidationInterceptor(validator MessageValidator) *ValidationInterceptor {
	return &ValidationInterceptor{validator: validator}
}

// Intercept implements Interceptor
func (i *ValidationInterceptor) Intercept(ctx context.Context, msg contracts.Message, next Dispatcher) (bool, error) {
	if err := i.validator.Validate(ctx, msg); err != nil {
		return false, fmt.Errorf("message validation failed: %w", err)
	}

	return next.Dispatch(ctx, msg)
}

// Name implements Interceptor
func (i *ValidationInterceptor) Name() string {
	return "ValidationInterceptor"
}

// UnhandledEventError reports an event that no handler processed
type UnhandledEventError struct {
	MessageType   string
	CorrelationID string
}

func (e *UnhandledEventError) Error() string {
	return fmt.Sprintf("event %s with correlation id %q was not handled", e.MessageType, e.CorrelationID)
}

// UnhandledEventInterceptor turns an event that reached no handler into an
// UnhandledEventError. Commands without handlers stay silent.
type UnhandledEventInterceptor struct {
	logger *slog.Logger
}

// NewUnhandledEventInterceptor creates a new unhandled event interceptor
func NewUnhandledEventInterceptor(logger *slog.Logger) *UnhandledEventInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &UnhandledEventInterceptor{logger: logger}
}

// Intercept implements Interceptor
func (i *UnhandledEventInterceptor) Intercept(ctx context.Context, msg contracts.Message, next Dispatcher) (bool, error) {
	processed, err := next.Dispatch(ctx, msg)
	if err != nil || processed || !contracts.IsEvent(msg) {
		return processed, err
	}

	unhandled := &UnhandledEventError{
		MessageType:   MessageType(msg),
		CorrelationID: msg.GetCorrelationID(),
	}
	i.logger.Warn("unhandled event",
		"messageType", unhandled.MessageType,
		"correlationId", unhandled.CorrelationID,
	)
	return false, unhandled
}

// Name implements Interceptor
func (i *UnhandledEventInterceptor) Name() string {
	return "UnhandledEventInterceptor"
}

// ChainBuilder builds a common interceptor chain
type ChainBuilder struct {
	chain  *InterceptorChain
	logger *slog.Logger
	clock  xclock.Clock
}

// NewChainBuilder creates a new builder
func NewChainBuilder(logger *slog.Logger) *ChainBuilder {
	if logger == nil {
		logger = slog.Default()
	}

	return &ChainBuilder{
		chain:  NewInterceptorChain(logger),
		logger: logger,
		clock:  xclock.Default(),
	}
}

// WithClock sets the clock used by interceptors added afterwards
func (b *ChainBuilder) WithClock(clock xclock.Clock) *ChainBuilder {
	if clock != nil {
		b.clock = clock
	}
	return b
}

// WithLogging adds logging interceptor
func (b *ChainBuilder) WithLogging() *ChainBuilder {
	b.chain.Add(NewLoggingInterceptor(b.logger, b.clock))
	return b
}

// WithMetrics adds metrics interceptor
func (b *ChainBuilder) WithMetrics(collector MetricsCollector) *ChainBuilder {
	b.chain.Add(NewMetricsInterceptor(collector, b.clock))
	return b
}

// WithTracing adds tracing interceptor
func (b *ChainBuilder) WithTracing(opts ...TracingOption) *ChainBuilder {
	b.chain.Add(NewTracingInterceptor(opts...))
	return b
}

// WithValidation adds validation interceptor
func (b *ChainBuilder) WithValidation(validator MessageValidator) *ChainBuilder {
	b.chain.Add(NewValidationInterceptor(validator))
	return b
}

// WithFilter adds filtering interceptor
func (b *ChainBuilder) WithFilter(filter MessageFilter, skipBehavior SkipBehavior) *ChainBuilder {
	b.chain.Add(NewFilteringInterceptor(filter, skipBehavior, b.logger))
	return b
}

// WithStrictEvents adds the unhandled event interceptor
func (b *ChainBuilder) WithStrictEvents() *ChainBuilder {
	b.chain.Add(NewUnhandledEventInterceptor(b.logger))
	return b
}

// WithCustom adds a custom interceptor
func (b *ChainBuilder) WithCustom(interceptor Interceptor) *ChainBuilder {
	b.chain.Add(interceptor)
	return b
}

// Build returns the built interceptor chain
func (b *ChainBuilder) Build() *InterceptorChain {
	return b.chain
}
