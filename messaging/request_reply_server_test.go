package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/glimte/typebus/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddResponder(t *testing.T) {
	ctx := context.Background()

	t.Run("answers requests", func(t *testing.T) {
		b := New()
		_, err := AddResponder(b, ResponderFunc[*Ping, *Pong](func(ctx context.Context, req *Ping) (*Pong, error) {
			pong := newPong(req.CorrelationID)
			pong.Text = req.Text + "!"
			return pong, nil
		}))
		require.NoError(t, err)

		ping := newPing("r1")
		ping.Text = "hi"
		pong, err := SendAndReceive[*Pong](ctx, b, ping)

		require.NoError(t, err)
		assert.Equal(t, "hi!", pong.Text)
	})

	t.Run("nil response publishes nothing", func(t *testing.T) {
		b := New()
		_, _ = AddResponder(b, ResponderFunc[*Ping, *Pong](func(ctx context.Context, req *Ping) (*Pong, error) {
			return nil, nil
		}))
		published := false
		_, _ = AddHandlerFunc(b, func(ctx context.Context, pong *Pong) error {
			published = true
			return nil
		})

		require.NoError(t, b.Send(ctx, newPing("1")))
		assert.False(t, published)
	})

	t.Run("error is returned to the sender", func(t *testing.T) {
		b := New()
		boom := errors.New("boom")
		_, _ = AddResponder(b, ResponderFunc[*Ping, *Pong](func(ctx context.Context, req *Ping) (*Pong, error) {
			return nil, boom
		}))

		assert.Equal(t, boom, b.Send(ctx, newPing("1")))
	})

	t.Run("error path publishes the error event", func(t *testing.T) {
		b := New()
		_, err := AddResponderWithError(b,
			ResponderFunc[*Ping, *Pong](func(ctx context.Context, req *Ping) (*Pong, error) {
				return nil, errors.New("table closed")
			}),
			ErrorResponderFunc[*Ping, *PingFailed](func(ctx context.Context, req *Ping, err error) *PingFailed {
				return newPingFailed(req.CorrelationID, err.Error())
			}),
		)
		require.NoError(t, err)

		future, err := RequestWithError[*Pong, *PingFailed](ctx, b, newPing("r2"))
		require.NoError(t, err)

		_, err = future.Result()
		var received *ReceivedErrorEventError[*PingFailed]
		require.ErrorAs(t, err, &received)
		assert.Equal(t, "table closed", received.Event.Reason)
	})

	t.Run("rejects nil functions", func(t *testing.T) {
		b := New()

		_, err := AddResponder[*Ping, *Pong](b, nil)
		assert.ErrorIs(t, err, contracts.ErrNilHandler)

		_, err = AddResponderWithError[*Ping, *Pong, *PingFailed](b, nil, nil)
		assert.ErrorIs(t, err, contracts.ErrNilHandler)
	})
}
