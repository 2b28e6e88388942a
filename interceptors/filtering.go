package interceptors

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/glimte/typebus/contracts"
)

// MessageFilter defines the interface for message filtering
type MessageFilter interface {
	// ShouldProcess returns true if the message should be dispatched
	ShouldProcess(ctx context.Context, msg contracts.Message) (bool, error)
}

// MessageFilterFunc is a function adapter for MessageFilter
type MessageFilterFunc func(ctx context.Context, msg contracts.Message) (bool, error)

// ShouldProcess implements MessageFilter
func (f MessageFilterFunc) ShouldProcess(ctx context.Context, msg contracts.Message) (bool, error) {
	return f(ctx, msg)
}

// SkipBehavior defines what happens when a message is filtered out
type SkipBehavior int

const (
	// SkipSilently skips the message without error
	SkipSilently SkipBehavior = iota
	// SkipWithError returns an error when message is filtered
	SkipWithError
	// SkipWithLog logs that the message was skipped
	SkipWithLog
)

// FilteredMessageError is returned for filtered messages under SkipWithError
type FilteredMessageError struct {
	MessageType   string
	CorrelationID string
}

func (e *FilteredMessageError) Error() string {
	return fmt.Sprintf("message filtered: type=%s, correlationId=%s", e.MessageType, e.CorrelationID)
}

// FilteringInterceptor stops messages a filter rejects. A filtered message
// is reported as not processed.
type FilteringInterceptor struct {
	filter       MessageFilter
	skipBehavior SkipBehavior
	logger       *slog.Logger
}

// NewFilteringInterceptor creates a new filtering interceptor
func NewFilteringInterceptor(filter MessageFilter, skipBehavior SkipBehavior, logger *slog.Logger) *FilteringInterceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return &FilteringInterceptor{
		filter:       filter,
		skipBehavior: skipBehavior,
		logger:       logger,
	}
}

// Intercept implements Interceptor
func (i *FilteringInterceptor) Intercept(ctx context.Context, msg contracts.Message, next Dispatcher) (bool, error) {
	shouldProcess, err := i.filter.ShouldProcess(ctx, msg)
	if err != nil {
		return false, fmt.Errorf("filter error: %w", err)
	}

	if !shouldProcess {
		switch i.skipBehavior {
		case SkipWithError:
			return false, &FilteredMessageError{MessageType: MessageType(msg), CorrelationID: msg.GetCorrelationID()}
		case SkipWithLog:
			i.logger.Info("message filtered",
				"messageType", MessageType(msg),
				"correlationId", msg.GetCorrelationID(),
			)
			return false, nil
		default: // SkipSilently
			return false, nil
		}
	}

	return next.Dispatch(ctx, msg)
}

// Name implements Interceptor
func (i *FilteringInterceptor) Name() string {
	return "FilteringInterceptor"
}

// MessageTypeFilter allows only messages whose dynamic type is listed
type MessageTypeFilter struct {
	allowedTypes map[reflect.Type]bool
}

// NewMessageTypeFilter creates a filter that allows the dynamic types of the given samples
func NewMessageTypeFilter(samples ...contracts.Message) *MessageTypeFilter {
	typeMap := make(map[reflect.Type]bool, len(samples))
	for _, s := range samples {
		typeMap[reflect.TypeOf(s)] = true
	}
	return &MessageTypeFilter{allowedTypes: typeMap}
}

// ShouldProcess implements MessageFilter
func (f *MessageTypeFilter) ShouldProcess(ctx context.Context, msg contracts.Message) (bool, error) {
	return f.allowedTypes[reflect.TypeOf(msg)], nil
}
