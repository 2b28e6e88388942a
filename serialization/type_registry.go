package serialization

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/glimte/typebus/contracts"
	"github.com/tidwall/gjson"
)

var codec = sonic.ConfigStd

var (
	ErrInvalidEnvelope = errors.New("invalid envelope")
	ErrMissingType     = errors.New("envelope has no message type")
	ErrUnknownType     = errors.New("message type not registered")
	ErrInvalidBody     = errors.New("invalid message body")
	ErrTypeConflict    = errors.New("type name already registered")
)

// TypeRegistry maps wire type names to the Go types messages are decoded into.
// The registered type is kept as given, so registering &OrderPlaced{} decodes
// into *OrderPlaced and reaches handlers registered for *OrderPlaced.
type TypeRegistry struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
	names map[reflect.Type]string
}

// NewTypeRegistry creates a new type registry
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		types: make(map[string]reflect.Type),
		names: make(map[reflect.Type]string),
	}
}

// Register registers the dynamic type of proto under name.
func (r *TypeRegistry) Register(name string, proto contracts.Message) error {
	if proto == nil {
		return contracts.ErrNilMessage
	}
	return r.register(name, reflect.TypeOf(proto))
}

// RegisterType registers T under name. An empty name registers T under its
// package-qualified type name.
func RegisterType[T contracts.Message](r *TypeRegistry, name string) error {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Interface {
		return fmt.Errorf("cannot register interface type %v", t)
	}
	if name == "" {
		name = defaultName(t)
	}
	return r.register(name, t)
}

func (r *TypeRegistry) register(name string, t reflect.Type) error {
	if name == "" {
		return fmt.Errorf("type name cannot be empty")
	}
	if kind := elemOf(t).Kind(); kind != reflect.Struct {
		return fmt.Errorf("message type must be a struct, got %v", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.types[name]; exists {
		if existing == t {
			return nil
		}
		return fmt.Errorf("%w: %s is bound to %v", ErrTypeConflict, name, existing)
	}

	r.types[name] = t
	if _, named := r.names[t]; !named {
		r.names[t] = name
	}
	return nil
}

// TypeOf returns the type registered under name.
func (r *TypeRegistry) TypeOf(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[name]
	return t, ok
}

// NameOf returns the name msg's dynamic type was first registered under.
func (r *TypeRegistry) NameOf(msg contracts.Message) (string, error) {
	if msg == nil {
		return "", contracts.ErrNilMessage
	}
	t := reflect.TypeOf(msg)

	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.names[t]
	if !ok {
		return "", fmt.Errorf("%w: %v", ErrUnknownType, t)
	}
	return name, nil
}

// New returns a zero message of the type registered under name.
func (r *TypeRegistry) New(name string) (contracts.Message, error) {
	t, ok := r.TypeOf(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	return messageOf(t, reflect.New(elemOf(t))), nil
}

// Names returns all registered type names, sorted.
func (r *TypeRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Header is the routing part of an envelope.
type Header struct {
	Type          string
	CorrelationID string
	BodySize      int
}

// PeekHeader reads the type name and correlation id of an envelope without
// decoding its body.
func PeekHeader(data []byte) (Header, error) {
	if !gjson.ValidBytes(data) {
		return Header{}, ErrInvalidEnvelope
	}

	fields := gjson.GetManyBytes(data, "type", "correlationId", "body")
	typ, corr, body := fields[0], fields[1], fields[2]
	if typ.Type != gjson.String || typ.Str == "" {
		return Header{}, ErrMissingType
	}

	h := Header{Type: typ.Str, BodySize: len(body.Raw)}
	if corr.Type == gjson.String {
		h.CorrelationID = corr.Str
	}
	return h, nil
}

// Decode turns an envelope into a typed message. Only the header is read
// before the registered type is known; the body is then unmarshalled straight
// into a fresh value of that type.
func (r *TypeRegistry) Decode(data []byte) (contracts.Message, error) {
	h, err := PeekHeader(data)
	if err != nil {
		return nil, err
	}
	name := h.Type

	t, ok := r.TypeOf(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}

	target := reflect.New(elemOf(t))
	if body := gjson.GetBytes(data, "body"); body.Exists() && body.Type != gjson.Null {
		if err := codec.Unmarshal([]byte(body.Raw), target.Interface()); err != nil {
			return nil, fmt.Errorf("%w for %s: %w", ErrInvalidBody, name, err)
		}
	}

	if h.CorrelationID != "" {
		if s, ok := target.Interface().(correlationSetter); ok && s.GetCorrelationID() == "" {
			s.SetCorrelationID(h.CorrelationID)
		}
	}
	return messageOf(t, target), nil
}

// Encode wraps msg in an envelope under its registered name.
func (r *TypeRegistry) Encode(msg contracts.Message) ([]byte, error) {
	name, err := r.NameOf(msg)
	if err != nil {
		return nil, err
	}
	body, err := codec.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	return codec.Marshal(contracts.Envelope{
		Type:          name,
		CorrelationID: msg.GetCorrelationID(),
		Body:          body,
	})
}

type correlationSetter interface {
	GetCorrelationID() string
	SetCorrelationID(string)
}

func elemOf(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}

// messageOf shapes the allocated pointer back into the registered type.
func messageOf(t reflect.Type, ptr reflect.Value) contracts.Message {
	if t.Kind() == reflect.Pointer {
		return ptr.Interface().(contracts.Message)
	}
	return ptr.Elem().Interface().(contracts.Message)
}

func defaultName(t reflect.Type) string {
	t = elemOf(t)
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}
