package messaging

import (
	"context"
	"sync"
)

// RequestStatus represents the status of a request
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusFailed    RequestStatus = "failed"
	RequestStatusCanceled  RequestStatus = "canceled"
)

// Future is the eventual outcome of a request. Exactly one of completed,
// failed or canceled is ever recorded.
type Future[T any] struct {
	correlationID string
	done          chan struct{}
	cancel        func()

	mu     sync.Mutex
	status RequestStatus
	value  T
	err    error
}

func newFuture[T any](correlationID string) *Future[T] {
	return &Future[T]{
		correlationID: correlationID,
		done:          make(chan struct{}),
		status:        RequestStatusPending,
	}
}

// CorrelationID returns the correlation ID the request waits for
func (f *Future[T]) CorrelationID() string {
	return f.correlationID
}

// Done is closed once the request has an outcome
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Status returns the current status
func (f *Future[T]) Status() RequestStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Result returns the outcome without blocking. While the request is pending
// it returns ErrRequestPending.
func (f *Future[T]) Result() (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	default:
		var zero T
		return zero, ErrRequestPending
	}
}

// Wait blocks until the request has an outcome or ctx is done. Giving up on
// ctx does not cancel the request.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Cancel cancels the request if it is still pending
func (f *Future[T]) Cancel() {
	if f.cancel != nil {
		f.cancel()
	}
}

func (f *Future[T]) complete(value T) bool {
	return f.settle(RequestStatusCompleted, value, nil)
}

func (f *Future[T]) fail(err error) bool {
	var zero T
	return f.settle(RequestStatusFailed, zero, err)
}

func (f *Future[T]) canceled(err error) bool {
	var zero T
	return f.settle(RequestStatusCanceled, zero, err)
}

func (f *Future[T]) settle(status RequestStatus, value T, err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status != RequestStatusPending {
		return false
	}

	f.status = status
	f.value = value
	f.err = err
	close(f.done)
	return true
}
