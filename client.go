// Copyright 2024 Mmate Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package typebus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/glimte/typebus/contracts"
	"github.com/glimte/typebus/interceptors"
	"github.com/glimte/typebus/messaging"
	"github.com/glimte/typebus/serialization"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/trickstertwo/xclock"
	"go.opentelemetry.io/otel/trace"
)

// Client provides the main entry point for typebus: one bus, the interceptor
// chain wrapped around it, and the type registry used to decode envelopes.
type Client struct {
	bus         *messaging.Bus
	chain       *interceptors.InterceptorChain
	types       *serialization.TypeRegistry
	metrics     *interceptors.PrometheusCollector
	clock       xclock.Clock
	logger      *slog.Logger
	serviceName string
}

// NewClient creates a new client with logging and tracing interceptors, plus
// Prometheus metrics when a registerer is configured.
func NewClient(options ...ClientOption) (*Client, error) {
	cfg := &clientConfig{
		logger:      slog.Default(),
		serviceName: "service",
		clock:       xclock.Default(),
	}

	for _, opt := range options {
		opt(cfg)
	}

	logger := cfg.logger.With("service", cfg.serviceName)

	builder := interceptors.NewChainBuilder(logger).
		WithClock(cfg.clock).
		WithLogging()

	var metrics *interceptors.PrometheusCollector
	if cfg.registerer != nil {
		registerer := prometheus.WrapRegistererWith(prometheus.Labels{"service": cfg.serviceName}, cfg.registerer)
		metrics = interceptors.NewPrometheusCollector(registerer, cfg.metricsNamespace)
		if err := metrics.Register(); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		builder.WithMetrics(metrics)
	}

	var tracing []interceptors.TracingOption
	if cfg.tracerProvider != nil {
		tracing = append(tracing, interceptors.WithTracerProvider(cfg.tracerProvider))
	}
	builder.WithTracing(tracing...)

	if cfg.strictEvents {
		builder.WithStrictEvents()
	}
	for _, ic := range cfg.interceptors {
		builder.WithCustom(ic)
	}

	chain := builder.Build()
	bus := messaging.New(
		messaging.WithLogger(logger),
		messaging.WithInterceptorChain(chain),
	)

	logger.Debug("client created", "interceptors", chain.Names())

	return &Client{
		bus:         bus,
		chain:       chain,
		types:       serialization.NewTypeRegistry(),
		metrics:     metrics,
		clock:       cfg.clock,
		logger:      logger,
		serviceName: cfg.serviceName,
	}, nil
}

// Bus returns the message bus. Handlers, pipes, responders and resolvers are
// registered on it through the messaging package functions.
func (c *Client) Bus() *messaging.Bus {
	return c.bus
}

// Types returns the registry used by HandleEnvelope
func (c *Client) Types() *serialization.TypeRegistry {
	return c.types
}

// Interceptors returns the interceptor chain wrapped around every dispatch
func (c *Client) Interceptors() *interceptors.InterceptorChain {
	return c.chain
}

// ServiceName returns the configured service name
func (c *Client) ServiceName() string {
	return c.serviceName
}

// Send delivers a command to the single most specific handler type
func (c *Client) Send(ctx context.Context, cmd contracts.Message) error {
	return c.bus.Send(ctx, cmd)
}

// Publish delivers an event to every matching handler type
func (c *Client) Publish(ctx context.Context, evt contracts.Event) error {
	return c.bus.Publish(ctx, evt)
}

// Dispatch routes msg and reports whether any handler ran
func (c *Client) Dispatch(ctx context.Context, msg contracts.Message) (bool, error) {
	return c.bus.Dispatch(ctx, msg)
}

// HandleEnvelope decodes a JSON envelope through the type registry and
// dispatches the resulting message.
func (c *Client) HandleEnvelope(ctx context.Context, data []byte) error {
	msg, err := c.types.Decode(data)
	if err != nil {
		c.logger.Warn("failed to decode envelope", "error", err)
		return fmt.Errorf("failed to decode envelope: %w", err)
	}
	return c.bus.Handle(ctx, msg)
}

// NewBaseEvent returns an event carrier stamped with the client's clock
func (c *Client) NewBaseEvent(correlationID string) contracts.BaseEvent {
	return contracts.NewBaseEventAt(correlationID, c.clock.Now())
}

// Request sends msg on the client's bus and returns a future settled by the
// first TResp event carrying the same correlation id.
func Request[TResp contracts.Event](ctx context.Context, c *Client, msg contracts.Message) (*messaging.Future[TResp], error) {
	return messaging.Request[TResp](ctx, c.bus, msg)
}

// RequestWithError is Request with a typed failure event TErr.
func RequestWithError[TResp, TErr contracts.Event](ctx context.Context, c *Client, msg contracts.Message) (*messaging.Future[TResp], error) {
	return messaging.RequestWithError[TResp, TErr](ctx, c.bus, msg)
}

// clientConfig holds client configuration
type clientConfig struct {
	logger           *slog.Logger
	serviceName      string
	registerer       prometheus.Registerer
	metricsNamespace string
	tracerProvider   trace.TracerProvider
	strictEvents     bool
	interceptors     []interceptors.Interceptor
	clock            xclock.Clock
}

// ClientOption configures the client
type ClientOption func(*clientConfig)

// WithLogger sets the logger for all components
func WithLogger(logger *slog.Logger) ClientOption {
	return func(cfg *clientConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithServiceName sets the service name (used as a log attribute and metrics label)
func WithServiceName(name string) ClientOption {
	return func(cfg *clientConfig) {
		if name != "" {
			cfg.serviceName = name
		}
	}
}

// WithMetricsRegisterer enables Prometheus metrics on the given registerer.
// An empty namespace defaults to "typebus".
func WithMetricsRegisterer(registerer prometheus.Registerer, namespace string) ClientOption {
	return func(cfg *clientConfig) {
		cfg.registerer = registerer
		cfg.metricsNamespace = namespace
	}
}

// WithTracerProvider sets the tracer provider; the global one is used otherwise
func WithTracerProvider(tp trace.TracerProvider) ClientOption {
	return func(cfg *clientConfig) {
		cfg.tracerProvider = tp
	}
}

// WithStrictEvents makes publishing an event nobody handles an error
func WithStrictEvents() ClientOption {
	return func(cfg *clientConfig) {
		cfg.strictEvents = true
	}
}

// WithInterceptors appends interceptors after the built-in ones
func WithInterceptors(ics ...interceptors.Interceptor) ClientOption {
	return func(cfg *clientConfig) {
		for _, ic := range ics {
			if ic != nil {
				cfg.interceptors = append(cfg.interceptors, ic)
			}
		}
	}
}

// WithClock sets the clock used for timing and event timestamps
func WithClock(clock xclock.Clock) ClientOption {
	return func(cfg *clientConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}
