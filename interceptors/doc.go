// Package interceptors wraps whole message dispatches with cross-cutting concerns.
//
// An Interceptor sees one message, calls the next Dispatcher and returns
// whether any handler processed it along with the handler error, if any.
// Interceptors run for nested dispatches too, such as a pipe re-dispatching
// its output or a handler publishing a response.
//
// Built-in interceptors:
//   - LoggingInterceptor: Logs dispatch with timing information (slog)
//   - MetricsInterceptor: Collects counts and durations through a MetricsCollector;
//     PrometheusCollector is the Prometheus implementation
//   - TracingInterceptor: Wraps each dispatch in an OpenTelemetry span
//   - ValidationInterceptor: Rejects invalid messages before dispatch
//   - FilteringInterceptor: Drops messages a MessageFilter rejects
//   - UnhandledEventInterceptor: Turns an event nobody handled into an error
//
// Example usage:
//
//	chain := interceptors.NewChainBuilder(logger).
//		WithLogging().
//		WithMetrics(interceptors.NewPrometheusCollector(registry, "orders")).
//		WithTracing(interceptors.WithTracerProvider(tp)).
//		WithStrictEvents().
//		Build()
//
//	bus := messaging.New(messaging.WithInterceptorChain(chain))
//
// Interceptors are executed in the order they are added to the chain, with the
// final dispatcher being called last.
package interceptors
