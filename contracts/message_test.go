package contracts

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type orderPlaced struct {
	BaseEvent
	OrderID string `json:"orderId"`
}

type placeOrder struct {
	BaseMessage
	OrderID string `json:"orderId"`
}

func TestBaseMessage(t *testing.T) {
	t.Run("NewBaseMessage creates valid message", func(t *testing.T) {
		msg := NewBaseMessage()

		assert.NotEmpty(t, msg.ID)
		assert.Equal(t, msg.ID, msg.CorrelationID)

		_, err := uuid.Parse(msg.ID)
		assert.NoError(t, err)
	})

	t.Run("NewBaseMessageWithCorrelation keeps the correlation ID", func(t *testing.T) {
		msg := NewBaseMessageWithCorrelation("1234")

		assert.Equal(t, "1234", msg.GetCorrelationID())
		assert.NotEqual(t, "1234", msg.GetID())
	})

	t.Run("SetCorrelationID", func(t *testing.T) {
		base := NewBaseMessage()
		corrID := uuid.New().String()
		base.SetCorrelationID(corrID)

		assert.Equal(t, corrID, base.CorrelationID)
		assert.Equal(t, corrID, base.GetCorrelationID())
	})
}

func TestBaseEvent(t *testing.T) {
	t.Run("NewBaseEvent stamps occurrence time in UTC", func(t *testing.T) {
		before := time.Now().UTC()
		evt := NewBaseEvent("1234")

		assert.Equal(t, "1234", evt.GetCorrelationID())
		assert.False(t, evt.GetOccurredAt().Before(before))
		assert.Equal(t, time.UTC, evt.GetOccurredAt().Location())
	})

	t.Run("NewBaseEventAt uses the given time", func(t *testing.T) {
		at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
		evt := NewBaseEventAt("c", at)

		assert.True(t, at.Equal(evt.GetOccurredAt()))
	})
}

func TestIsEvent(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{"base message", NewBaseMessage(), false},
		{"base event", NewBaseEvent("c"), true},
		{"embedded event pointer", &orderPlaced{BaseEvent: NewBaseEvent("c")}, true},
		{"embedded event value", orderPlaced{BaseEvent: NewBaseEvent("c")}, true},
		{"embedded command", &placeOrder{BaseMessage: NewBaseMessage()}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEvent(tt.msg))
		})
	}
}
