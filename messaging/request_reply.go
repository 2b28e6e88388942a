package messaging

import (
	"context"
	"fmt"
	"sync"

	"github.com/glimte/typebus/contracts"
)

// pendingRequest tracks the transient handlers of one in-flight request.
// Whoever releases it first decides the outcome.
type pendingRequest[T any] struct {
	bus           *Bus
	correlationID string
	future        *Future[T]

	mu       sync.Mutex
	tokens   []Token
	stop     func() bool
	released bool
}

func newPendingRequest[T any](b *Bus, correlationID string) *pendingRequest[T] {
	p := &pendingRequest[T]{
		bus:           b,
		correlationID: correlationID,
		future:        newFuture[T](correlationID),
	}
	p.future.cancel = func() {
		p.finish(func() { p.future.canceled(ErrRequestCanceled) })
	}
	b.pending.Add(1)
	return p
}

// track records tok for cleanup, or removes it straight away when the
// request already has an outcome.
func (p *pendingRequest[T]) track(tok Token) {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		p.remove(tok)
		return
	}
	p.tokens = append(p.tokens, tok)
	p.mu.Unlock()
}

// watch cancels the request when ctx is done
func (p *pendingRequest[T]) watch(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() {
		p.finish(func() {
			p.future.canceled(fmt.Errorf("%w: %w", ErrRequestCanceled, context.Cause(ctx)))
		})
	})

	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		stop()
		return
	}
	p.stop = stop
	p.mu.Unlock()
}

// release removes every transient handler. It returns true only for the
// first caller.
func (p *pendingRequest[T]) release() bool {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return false
	}
	p.released = true
	tokens := p.tokens
	p.tokens = nil
	stop := p.stop
	p.stop = nil
	p.mu.Unlock()

	if stop != nil {
		stop()
	}
	for _, tok := range tokens {
		p.remove(tok)
	}
	p.bus.pending.Add(-1)

	p.bus.logger.Debug("released pending request",
		"correlationId", p.correlationID,
		"handlers", len(tokens),
	)
	return true
}

func (p *pendingRequest[T]) finish(settle func()) {
	if p.release() {
		settle()
	}
}

func (p *pendingRequest[T]) remove(tok Token) {
	if err := p.bus.registry.Remove(tok.key, tok); err != nil {
		p.bus.logger.Warn("failed to remove transient handler",
			"correlationId", p.correlationID,
			"messageType", tok.key.String(),
			"error", err,
		)
	}
}

// recoverResponse faults the request with whatever a response handler panicked with
func (p *pendingRequest[T]) recoverResponse() {
	if r := recover(); r != nil {
		perr := &PanicError{Value: r}
		p.bus.logger.Warn("response handler panicked",
			"correlationId", p.correlationID,
			"error", perr,
		)
		p.finish(func() { p.future.fail(perr) })
	}
}

// awaitEvent registers a transient handler for events of type E that carry
// the request's correlation ID. The first match releases the request and
// calls settle.
func awaitEvent[E contracts.Event, T any](p *pendingRequest[T], settle func(evt E)) error {
	key := TypeOf[E]()
	tok, err := p.bus.registry.Add(key, MessageHandlerFunc(func(_ context.Context, msg contracts.Message) error {
		defer p.recoverResponse()

		evt, ok := msg.(E)
		if !ok || evt.GetCorrelationID() != p.correlationID {
			return nil
		}
		p.finish(func() { settle(evt) })
		return nil
	}))
	if err != nil {
		return err
	}

	p.track(tok)
	return nil
}

// send dispatches msg once the transient handlers are in place
func (p *pendingRequest[T]) send(ctx context.Context, msg contracts.Message) (*Future[T], error) {
	p.watch(ctx)

	if err := p.bus.Handle(ctx, msg); err != nil {
		p.finish(func() { p.future.fail(err) })
		return nil, err
	}

	return p.future, nil
}

func startRequest[T any](ctx context.Context, b *Bus, msg contracts.Message) (*pendingRequest[T], bool, error) {
	if isNil(msg) {
		return nil, false, contracts.ErrNilMessage
	}

	p := newPendingRequest[T](b, msg.GetCorrelationID())
	if ctx.Err() != nil {
		p.finish(func() {
			p.future.canceled(fmt.Errorf("%w: %w", ErrRequestCanceled, context.Cause(ctx)))
		})
		return p, false, nil
	}

	return p, true, nil
}

// Request sends msg and returns a future resolved by the first TResp event
// whose correlation ID equals msg's. Cancelling ctx cancels the request.
func Request[TResp contracts.Event](ctx context.Context, b *Bus, msg contracts.Message) (*Future[TResp], error) {
	p, proceed, err := startRequest[TResp](ctx, b, msg)
	if err != nil || !proceed {
		return futureOf(p), err
	}

	err = awaitEvent(p, func(resp TResp) {
		p.future.complete(resp)
	})
	if err != nil {
		p.release()
		return nil, err
	}

	return p.send(ctx, msg)
}

// RequestWithError is Request with a parallel error path: a matching TErr
// event fails the future with a *ReceivedErrorEventError[TErr]. Whichever
// path matches first removes both transient handlers.
func RequestWithError[TResp, TErr contracts.Event](ctx context.Context, b *Bus, msg contracts.Message) (*Future[TResp], error) {
	p, proceed, err := startRequest[TResp](ctx, b, msg)
	if err != nil || !proceed {
		return futureOf(p), err
	}

	err = awaitEvent(p, func(resp TResp) {
		p.future.complete(resp)
	})
	if err == nil {
		err = awaitEvent(p, func(evt TErr) {
			p.future.fail(&ReceivedErrorEventError[TErr]{Event: evt, CorrelationID: p.correlationID})
		})
	}
	if err != nil {
		p.release()
		return nil, err
	}

	return p.send(ctx, msg)
}

// SendAndReceive sends msg and blocks until its TResp response arrives or
// ctx is done.
func SendAndReceive[TResp contracts.Event](ctx context.Context, b *Bus, msg contracts.Message) (TResp, error) {
	future, err := Request[TResp](ctx, b, msg)
	if err != nil {
		var zero TResp
		return zero, err
	}

	<-future.Done()
	return future.Result()
}

func futureOf[T any](p *pendingRequest[T]) *Future[T] {
	if p == nil {
		return nil
	}
	return p.future
}
