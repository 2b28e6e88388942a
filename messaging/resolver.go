package messaging

import (
	"fmt"
	"reflect"
	"sync"
)

// resolverTable maps a type key to a zero-argument constructor. It belongs to
// one bus and is consulted by code that builds handlers before registering them.
type resolverTable struct {
	mu    sync.RWMutex
	ctors map[reflect.Type]func() any
}

func newResolverTable() *resolverTable {
	return &resolverTable{ctors: make(map[reflect.Type]func() any)}
}

func (r *resolverTable) set(key reflect.Type, ctor func() any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[key] = ctor
}

func (r *resolverTable) get(key reflect.Type) (func() any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.ctors[key]
	return ctor, ok
}

// AddResolver registers ctor as the way to construct values of type T on b.
// A later registration for the same type replaces the earlier one.
func AddResolver[T any](b *Bus, ctor func() T) error {
	if ctor == nil {
		return fmt.Errorf("resolver for %s cannot be nil", TypeOf[T]())
	}

	b.resolvers.set(TypeOf[T](), func() any { return ctor() })
	return nil
}

// Resolve constructs a value of type key using the registered resolver
func (b *Bus) Resolve(key reflect.Type) (any, bool) {
	ctor, ok := b.resolvers.get(key)
	if !ok {
		return nil, false
	}
	return ctor(), true
}

// ResolveAs constructs a T using the registered resolver
func ResolveAs[T any](b *Bus) (T, bool) {
	v, ok := b.Resolve(TypeOf[T]())
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}
