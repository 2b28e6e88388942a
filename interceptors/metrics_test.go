package interceptors

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/glimte/typebus/contracts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector(t *testing.T) {
	t.Run("Register is idempotent", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		c := NewPrometheusCollector(reg, "test")

		require.NoError(t, c.Register())
		require.NoError(t, c.Register())
	})

	t.Run("collectors on one registerer share metrics", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		first := NewPrometheusCollector(reg, "")
		second := NewPrometheusCollector(reg, "")
		require.NoError(t, first.Register())
		require.NoError(t, second.Register())

		first.IncrementMessageCount("x")
		second.IncrementMessageCount("x")
		second.IncrementMessageCount("x")
		second.RecordProcessingTime("x", time.Millisecond)

		expected := `
# HELP typebus_dispatch_messages_total Total number of messages dispatched
# TYPE typebus_dispatch_messages_total counter
typebus_dispatch_messages_total{message_type="x"} 3
`
		err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "typebus_dispatch_messages_total")
		assert.NoError(t, err)

		count, err := testutil.GatherAndCount(reg, "typebus_dispatch_duration_seconds")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("conflicting metric is reported", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		require.NoError(t, reg.Register(prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "typebus",
			Subsystem: "dispatch",
			Name:      "messages_total",
			Help:      "Total number of messages dispatched",
		})))

		err := NewPrometheusCollector(reg, "").Register()
		assert.Error(t, err)
	})

	t.Run("records counters per message type", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		c := NewPrometheusCollector(reg, "test")
		require.NoError(t, c.Register())

		c.IncrementMessageCount("*orders.Placed")
		c.IncrementMessageCount("*orders.Placed")
		c.IncrementErrorCount("*orders.Placed", "handler_error")
		c.IncrementUnhandledCount("*orders.Cancelled")
		c.RecordProcessingTime("*orders.Placed", 2*time.Millisecond)

		assert.Equal(t, 2.0, testutil.ToFloat64(c.messagesTotal.WithLabelValues("*orders.Placed")))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.errorsTotal.WithLabelValues("*orders.Placed", "handler_error")))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.unhandledTotal.WithLabelValues("*orders.Cancelled")))
		assert.Equal(t, 1, testutil.CollectAndCount(c.duration))
	})

	t.Run("exposes metrics under namespace", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		c := NewPrometheusCollector(reg, "")
		require.NoError(t, c.Register())

		c.IncrementMessageCount("x")

		expected := `
# HELP typebus_dispatch_messages_total Total number of messages dispatched
# TYPE typebus_dispatch_messages_total counter
typebus_dispatch_messages_total{message_type="x"} 1
`
		err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "typebus_dispatch_messages_total")
		assert.NoError(t, err)
	})

	t.Run("drives metrics through the interceptor", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		c := NewPrometheusCollector(reg, "test")
		require.NoError(t, c.Register())
		interceptor := NewMetricsInterceptor(c, nil)

		_, err := interceptor.Intercept(context.Background(), newTestMessage(), DispatcherFunc(func(ctx context.Context, msg contracts.Message) (bool, error) {
			return true, errors.New("boom")
		}))

		assert.Error(t, err)
		assert.Equal(t, 1.0, testutil.ToFloat64(c.errorsTotal.WithLabelValues("*interceptors.testMessage", "handler_error")))
	})
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"handler", errors.New("x"), "handler_error"},
		{"unhandled", &UnhandledEventError{MessageType: "t"}, "unhandled_event"},
		{"canceled", context.Canceled, "context"},
		{"deadline", context.DeadlineExceeded, "context"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorType(tt.err))
		})
	}
}
