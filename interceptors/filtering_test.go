package interceptors

import (
	"context"
	"errors"
	"testing"

	"github.com/glimte/typebus/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func allow(v bool) MessageFilter {
	return MessageFilterFunc(func(ctx context.Context, msg contracts.Message) (bool, error) {
		return v, nil
	})
}

func TestFilteringInterceptor(t *testing.T) {
	t.Run("allowed message is dispatched", func(t *testing.T) {
		dispatcher := &mockDispatcher{}
		msg := newTestMessage()
		dispatcher.On("Dispatch", mock.Anything, msg).Return(true, nil)

		interceptor := NewFilteringInterceptor(allow(true), SkipWithError, nil)
		processed, err := interceptor.Intercept(context.Background(), msg, dispatcher)

		assert.NoError(t, err)
		assert.True(t, processed)
		dispatcher.AssertExpectations(t)
	})

	skips := []struct {
		name     string
		behavior SkipBehavior
		wantErr  bool
	}{
		{"silently", SkipSilently, false},
		{"with log", SkipWithLog, false},
		{"with error", SkipWithError, true},
	}
	for _, tt := range skips {
		t.Run("filtered "+tt.name, func(t *testing.T) {
			dispatcher := &mockDispatcher{}
			interceptor := NewFilteringInterceptor(allow(false), tt.behavior, nil)

			processed, err := interceptor.Intercept(context.Background(), newTestMessage(), dispatcher)

			assert.False(t, processed)
			if tt.wantErr {
				var filtered *FilteredMessageError
				require.ErrorAs(t, err, &filtered)
				assert.Equal(t, "*interceptors.testMessage", filtered.MessageType)
			} else {
				assert.NoError(t, err)
			}
			dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
		})
	}

	t.Run("filter error is wrapped", func(t *testing.T) {
		boom := errors.New("boom")
		filter := MessageFilterFunc(func(ctx context.Context, msg contracts.Message) (bool, error) {
			return false, boom
		})

		_, err := NewFilteringInterceptor(filter, SkipSilently, nil).Intercept(context.Background(), newTestMessage(), &mockDispatcher{})

		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "filter error")
	})
}

func TestFilters(t *testing.T) {
	ctx := context.Background()
	msg := newTestMessage()

	t.Run("MessageTypeFilter matches dynamic type", func(t *testing.T) {
		filter := NewMessageTypeFilter(&testMessage{})

		ok, _ := filter.ShouldProcess(ctx, msg)
		assert.True(t, ok)

		ok, _ = filter.ShouldProcess(ctx, &testEvent{})
		assert.False(t, ok)

		ok, _ = filter.ShouldProcess(ctx, testMessage{})
		assert.False(t, ok)
	})
}
