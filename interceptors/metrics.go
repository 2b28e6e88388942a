package interceptors

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glimte/typebus/contracts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/trickstertwo/xclock"
)

// MetricsCollector defines the interface for collecting metrics
type MetricsCollector interface {
	IncrementMessageCount(messageType string)
	RecordProcessingTime(messageType string, duration time.Duration)
	IncrementErrorCount(messageType string, errorType string)
	IncrementUnhandledCount(messageType string)
}

// MetricsInterceptor collects metrics about message dispatch
type MetricsInterceptor struct {
	collector MetricsCollector
	clock     xclock.Clock
}

// NewMetricsInterceptor creates a new metrics interceptor
func NewMetricsInterceptor(collector MetricsCollector, clock xclock.Clock) *MetricsInterceptor {
	if clock == nil {
		clock = xclock.Default()
	}
	return &MetricsInterceptor{collector: collector, clock: clock}
}

// Intercept implements Interceptor
func (i *MetricsInterceptor) Intercept(ctx context.Context, msg contracts.Message, next Dispatcher) (bool, error) {
	start := i.clock.Now()
	messageType := MessageType(msg)

	i.collector.IncrementMessageCount(messageType)

	processed, err := next.Dispatch(ctx, msg)
	i.collector.RecordProcessingTime(messageType, i.clock.Since(start))

	if err != nil {
		i.collector.IncrementErrorCount(messageType, errorType(err))
	} else if !processed {
		i.collector.IncrementUnhandledCount(messageType)
	}

	return processed, err
}

// Name implements Interceptor
func (i *MetricsInterceptor) Name() string {
	return "MetricsInterceptor"
}

func errorType(err error) string {
	var unhandled *UnhandledEventError
	switch {
	case errors.As(err, &unhandled):
		return "unhandled_event"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "context"
	default:
		return "handler_error"
	}
}

// PrometheusCollector is a MetricsCollector backed by Prometheus collectors
type PrometheusCollector struct {
	mu sync.Mutex

	messagesTotal  *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	unhandledTotal *prometheus.CounterVec
	duration       *prometheus.HistogramVec

	registerer prometheus.Registerer
	registered bool
}

func newCounterVec(namespace, name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// NewPrometheusCollector creates a collector under namespace. A nil
// registerer uses prometheus.DefaultRegisterer.
func NewPrometheusCollector(registerer prometheus.Registerer, namespace string) *PrometheusCollector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "typebus"
	}

	return &PrometheusCollector{
		registerer:     registerer,
		messagesTotal:  newCounterVec(namespace, "messages_total", "Total number of messages dispatched", []string{"message_type"}),
		errorsTotal:    newCounterVec(namespace, "errors_total", "Total number of dispatches that returned an error", []string{"message_type", "error_type"}),
		unhandledTotal: newCounterVec(namespace, "unhandled_total", "Total number of messages that reached no handler", []string{"message_type"}),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "duration_seconds",
				Help:      "Time spent dispatching a message, including nested dispatches",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"message_type"},
		),
	}
}

// Register registers the Prometheus collectors. Safe to call multiple times.
// When an identical metric is already registered, for example by another
// collector on the same registerer, the existing one is adopted and shared.
func (c *PrometheusCollector) Register() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.registered {
		return nil
	}

	var err error
	if c.messagesTotal, err = register(c.registerer, c.messagesTotal); err != nil {
		return err
	}
	if c.errorsTotal, err = register(c.registerer, c.errorsTotal); err != nil {
		return err
	}
	if c.unhandledTotal, err = register(c.registerer, c.unhandledTotal); err != nil {
		return err
	}
	if c.duration, err = register(c.registerer, c.duration); err != nil {
		return err
	}

	c.registered = true
	return nil
}

func register[C prometheus.Collector](registerer prometheus.Registerer, collector C) (C, error) {
	err := registerer.Register(collector)
	if err == nil {
		return collector, nil
	}

	var already prometheus.AlreadyRegisteredError
	if !errors.As(err, &already) {
		return collector, err
	}
	existing, ok := already.ExistingCollector.(C)
	if !ok {
		return collector, fmt.Errorf("metric registered as %T: %w", already.ExistingCollector, err)
	}
	return existing, nil
}

// IncrementMessageCount implements MetricsCollector
func (c *PrometheusCollector) IncrementMessageCount(messageType string) {
	c.messagesTotal.WithLabelValues(messageType).Inc()
}

// RecordProcessingTime implements MetricsCollector
func (c *PrometheusCollector) RecordProcessingTime(messageType string, duration time.Duration) {
	c.duration.WithLabelValues(messageType).Observe(duration.Seconds())
}

// IncrementErrorCount implements MetricsCollector
func (c *PrometheusCollector) IncrementErrorCount(messageType string, errorType string) {
	c.errorsTotal.WithLabelValues(messageType, errorType).Inc()
}

// IncrementUnhandledCount implements MetricsCollector
func (c *PrometheusCollector) IncrementUnhandledCount(messageType string) {
	c.unhandledTotal.WithLabelValues(messageType).Inc()
}
