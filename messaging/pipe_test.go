package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/glimte/typebus/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pingToPong(ctx context.Context, in *Ping) (*Pong, error) {
	pong := newPong(in.CorrelationID)
	pong.Text = in.Text
	return pong, nil
}

func TestTranslatorPipe(t *testing.T) {
	ctx := context.Background()

	t.Run("fails without a consumer", func(t *testing.T) {
		pipe := NewPipe(pingToPong)

		err := pipe.Consume(ctx, newPing("1"))
		assert.ErrorIs(t, err, ErrNoConsumerAttached)
	})

	t.Run("forwards translated message", func(t *testing.T) {
		pipe := NewPipe(pingToPong)
		var got *Pong
		pipe.AttachConsumer(ConsumerFunc[*Pong](func(ctx context.Context, msg *Pong) error {
			got = msg
			return nil
		}))

		in := newPing("7")
		in.Text = "hello"
		require.NoError(t, pipe.Consume(ctx, in))

		require.NotNil(t, got)
		assert.Equal(t, "hello", got.Text)
		assert.Equal(t, "7", got.CorrelationID)
	})

	t.Run("nil output is dropped", func(t *testing.T) {
		pipe := NewPipe(func(ctx context.Context, in *Ping) (*Pong, error) {
			return nil, nil
		})
		called := false
		pipe.AttachConsumer(ConsumerFunc[*Pong](func(ctx context.Context, msg *Pong) error {
			called = true
			return nil
		}))

		require.NoError(t, pipe.Consume(ctx, newPing("1")))
		assert.False(t, called)
	})

	t.Run("translation error is returned", func(t *testing.T) {
		boom := errors.New("boom")
		pipe := NewPipe(func(ctx context.Context, in *Ping) (*Pong, error) {
			return nil, boom
		})
		pipe.AttachConsumer(ConsumerFunc[*Pong](func(ctx context.Context, msg *Pong) error {
			return nil
		}))

		assert.Equal(t, boom, pipe.Consume(ctx, newPing("1")))
	})
}

func TestAttachTranslator(t *testing.T) {
	ctx := context.Background()

	t.Run("translated message is dispatched", func(t *testing.T) {
		b := New()
		var got []*Pong
		_, err := AddHandlerFunc(b, func(ctx context.Context, msg *Pong) error {
			got = append(got, msg)
			return nil
		})
		require.NoError(t, err)

		tok, err := AttachTranslator[*Ping, *Pong](b, NewPipe(pingToPong))
		require.NoError(t, err)
		assert.Equal(t, TypeOf[*Ping](), tok.MessageType())

		require.NoError(t, b.Send(ctx, newPing("42")))

		require.Len(t, got, 1)
		assert.Equal(t, "42", got[0].CorrelationID)
	})

	t.Run("each pipe is an independent handler", func(t *testing.T) {
		b := New()
		count := 0
		_, _ = AddHandlerFunc(b, func(ctx context.Context, msg *Pong) error {
			count++
			return nil
		})
		_, err := AddTranslator(b, pingToPong)
		require.NoError(t, err)
		second, err := AddTranslator(b, pingToPong)
		require.NoError(t, err)

		require.NoError(t, b.Handle(ctx, newPing("1")))
		assert.Equal(t, 2, count)

		require.NoError(t, b.RemoveHandler(second))
		require.NoError(t, b.Handle(ctx, newPing("1")))
		assert.Equal(t, 3, count)
	})

	t.Run("output kind governs its own dispatch", func(t *testing.T) {
		b := New()
		var calls []string
		record[*CreateUser](b, &calls, "user")
		record[*CreateEntity](b, &calls, "entity")
		record[*UserChanged](b, &calls, "user-changed")
		record[*EntityChanged](b, &calls, "entity-changed")

		// event in, command out: single-cast
		_, err := AddTranslator(b, func(ctx context.Context, in *Pong) (*CreateUser, error) {
			return &CreateUser{}, nil
		})
		require.NoError(t, err)
		// command in, event out: broadcast
		_, err = AddTranslator(b, func(ctx context.Context, in *Ping) (*UserChanged, error) {
			return newUserChanged(in.CorrelationID), nil
		})
		require.NoError(t, err)

		require.NoError(t, b.Publish(ctx, newPong("1")))
		assert.Equal(t, []string{"user"}, calls)

		calls = nil
		require.NoError(t, b.Send(ctx, newPing("1")))
		assert.Equal(t, []string{"user-changed", "entity-changed"}, calls)
	})

	t.Run("chained translators", func(t *testing.T) {
		b := New()
		var got *UserChanged
		_, _ = AddTranslator(b, func(ctx context.Context, in *CreateUser) (*Ping, error) {
			return newPing("chain"), nil
		})
		_, _ = AddTranslator(b, func(ctx context.Context, in *Ping) (*UserChanged, error) {
			return newUserChanged(in.CorrelationID), nil
		})
		_, _ = AddHandlerFunc(b, func(ctx context.Context, msg *UserChanged) error {
			got = msg
			return nil
		})

		require.NoError(t, b.Send(ctx, &CreateUser{}))
		require.NotNil(t, got)
		assert.Equal(t, "chain", got.CorrelationID)
	})

	t.Run("downstream error propagates to sender", func(t *testing.T) {
		b := New()
		boom := errors.New("boom")
		_, _ = AddTranslator(b, pingToPong)
		_, _ = AddHandlerFunc(b, func(ctx context.Context, msg *Pong) error {
			return boom
		})

		assert.Equal(t, boom, b.Send(ctx, newPing("1")))
	})

	t.Run("rejects nil pipe", func(t *testing.T) {
		b := New()

		_, err := AttachTranslator[*Ping, *Pong](b, nil)
		assert.ErrorIs(t, err, contracts.ErrNilHandler)

		_, err = AddTranslator[*Ping, *Pong](b, nil)
		assert.ErrorIs(t, err, contracts.ErrNilHandler)
	})
}
