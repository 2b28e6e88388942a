package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"github.com/glimte/typebus/contracts"
	"github.com/google/uuid"
)

// Token identifies one handler registration. It is the only way to remove
// that registration again. The zero Token is never issued.
type Token struct {
	registry uuid.UUID
	id       uuid.UUID
	key      reflect.Type
}

// IsZero reports whether the token was never issued
func (t Token) IsZero() bool {
	return t.id == uuid.Nil
}

// MessageType returns the type key the handler was registered for
func (t Token) MessageType() reflect.Type {
	return t.key
}

func (t Token) String() string {
	if t.IsZero() {
		return "token(none)"
	}
	return fmt.Sprintf("token(%s %s)", t.key, t.id)
}

type handlerEntry struct {
	id      uuid.UUID
	handler MessageHandler
}

// Invoker is the composed fan-out of every handler registered for one type
// key at a point in time. It is never modified after creation.
type Invoker struct {
	key     reflect.Type
	entries []handlerEntry
}

// MessageType returns the type key this invoker serves
func (i *Invoker) MessageType() reflect.Type {
	return i.key
}

// Len returns the number of handlers composed into the invoker
func (i *Invoker) Len() int {
	return len(i.entries)
}

// Invoke runs every handler in registration order and stops at the first error
func (i *Invoker) Invoke(ctx context.Context, msg contracts.Message) error {
	for _, entry := range i.entries {
		if err := entry.handler.Handle(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (i *Invoker) indexOf(id uuid.UUID) int {
	for idx, entry := range i.entries {
		if entry.id == id {
			return idx
		}
	}
	return -1
}

// Registry maps type keys to composed invokers. Lookups take a read lock per
// key; adds and removes replace the invoker for a key wholesale.
type Registry struct {
	id     uuid.UUID
	logger *slog.Logger

	mu       sync.RWMutex
	invokers map[reflect.Type]*Invoker
	// interface keys with live handlers, in order of registration
	interfaces []reflect.Type
}

// NewRegistry creates an empty handler registry
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		id:       uuid.New(),
		logger:   logger,
		invokers: make(map[reflect.Type]*Invoker),
	}
}

// Add registers handler for key and returns a fresh token for it. Registering
// the same handler twice yields two independent registrations.
func (r *Registry) Add(key reflect.Type, handler MessageHandler) (Token, error) {
	if key == nil {
		return Token{}, ErrNilMessageType
	}
	if isNil(handler) {
		return Token{}, contracts.ErrNilHandler
	}

	tok := Token{registry: r.id, id: uuid.New(), key: key}

	r.mu.Lock()
	current, exists := r.invokers[key]
	var entries []handlerEntry
	if exists {
		entries = make([]handlerEntry, 0, len(current.entries)+1)
		entries = append(entries, current.entries...)
	}
	entries = append(entries, handlerEntry{id: tok.id, handler: handler})
	r.invokers[key] = &Invoker{key: key, entries: entries}
	if !exists && key.Kind() == reflect.Interface {
		r.interfaces = append(slices.Clip(r.interfaces), key)
	}
	r.mu.Unlock()

	r.logger.Debug("registered message handler",
		"messageType", key.String(),
		"handlers", len(entries),
	)

	return tok, nil
}

// Remove detaches the handler identified by tok from key. Removing a token
// that is already gone is a no-op; a token this registry did not issue for
// key is reported as ErrInvalidToken.
func (r *Registry) Remove(key reflect.Type, tok Token) error {
	if tok.IsZero() || tok.registry != r.id {
		return ErrInvalidToken
	}
	if key != tok.key {
		return fmt.Errorf("%w: issued for %s, not %v", ErrInvalidToken, tok.key, key)
	}

	// Most removals of stale tokens end here without taking the write lock.
	r.mu.RLock()
	current, exists := r.invokers[key]
	found := exists && current.indexOf(tok.id) >= 0
	r.mu.RUnlock()
	if !found {
		return nil
	}

	r.mu.Lock()
	current, exists = r.invokers[key]
	if !exists {
		r.mu.Unlock()
		return nil
	}
	idx := current.indexOf(tok.id)
	if idx < 0 {
		r.mu.Unlock()
		return nil
	}

	remaining := len(current.entries) - 1
	if remaining == 0 {
		delete(r.invokers, key)
		if key.Kind() == reflect.Interface {
			r.interfaces = slices.DeleteFunc(slices.Clone(r.interfaces), func(t reflect.Type) bool {
				return t == key
			})
		}
	} else {
		entries := make([]handlerEntry, 0, remaining)
		entries = append(entries, current.entries[:idx]...)
		entries = append(entries, current.entries[idx+1:]...)
		r.invokers[key] = &Invoker{key: key, entries: entries}
	}
	r.mu.Unlock()

	r.logger.Debug("removed message handler",
		"messageType", key.String(),
		"handlers", remaining,
	)

	return nil
}

// Lookup returns the current invoker for key
func (r *Registry) Lookup(key reflect.Type) (*Invoker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inv, ok := r.invokers[key]
	return inv, ok
}

// Len returns the number of type keys with at least one handler
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.invokers)
}

// Keys returns the type keys with at least one handler, in no particular order
func (r *Registry) Keys() []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]reflect.Type, 0, len(r.invokers))
	for key := range r.invokers {
		keys = append(keys, key)
	}
	return keys
}

// interfaceKeys returns a snapshot of the registered interface keys. The
// slice is shared and must not be modified.
func (r *Registry) interfaceKeys() []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.interfaces
}
