package messaging

import (
	"context"
	"sync"

	"github.com/glimte/typebus/contracts"
)

// Pipe accepts messages of type TIn and forwards zero or one translated
// message of type TOut to an attached downstream consumer.
type Pipe[TIn, TOut contracts.Message] interface {
	Consumer[TIn]
	AttachConsumer(next Consumer[TOut])
}

// TranslateFunc maps one input message to its output. Returning a nil output
// drops the message.
type TranslateFunc[TIn, TOut contracts.Message] func(ctx context.Context, in TIn) (TOut, error)

// TranslatorPipe is a Pipe backed by a TranslateFunc
type TranslatorPipe[TIn, TOut contracts.Message] struct {
	translate TranslateFunc[TIn, TOut]

	mu   sync.RWMutex
	next Consumer[TOut]
}

// NewPipe creates a pipe around translate
func NewPipe[TIn, TOut contracts.Message](translate TranslateFunc[TIn, TOut]) *TranslatorPipe[TIn, TOut] {
	return &TranslatorPipe[TIn, TOut]{translate: translate}
}

// AttachConsumer sets the downstream consumer, replacing any previous one
func (p *TranslatorPipe[TIn, TOut]) AttachConsumer(next Consumer[TOut]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next = next
}

// Consume translates in and hands the result to the attached consumer
func (p *TranslatorPipe[TIn, TOut]) Consume(ctx context.Context, in TIn) error {
	p.mu.RLock()
	next := p.next
	p.mu.RUnlock()

	if isNil(next) {
		return ErrNoConsumerAttached
	}

	out, err := p.translate(ctx, in)
	if err != nil {
		return err
	}
	if isNil(out) {
		return nil
	}

	return next.Consume(ctx, out)
}

// AttachTranslator feeds the output of pipe back into the bus and registers
// pipe as a handler for TIn. Translated messages are dispatched under their
// own kind, independent of the input's.
func AttachTranslator[TIn, TOut contracts.Message](b *Bus, pipe Pipe[TIn, TOut]) (Token, error) {
	if isNil(pipe) {
		return Token{}, contracts.ErrNilHandler
	}

	pipe.AttachConsumer(ConsumerFunc[TOut](func(ctx context.Context, out TOut) error {
		return b.Handle(ctx, out)
	}))

	return AddHandler[TIn](b, pipe)
}

// AddTranslator attaches a pipe built from translate
func AddTranslator[TIn, TOut contracts.Message](b *Bus, translate TranslateFunc[TIn, TOut]) (Token, error) {
	if translate == nil {
		return Token{}, contracts.ErrNilHandler
	}
	return AttachTranslator[TIn, TOut](b, NewPipe(translate))
}
