package messaging

import (
	"reflect"
	"sync"

	"github.com/glimte/typebus/contracts"
)

var messageInterface = TypeOf[contracts.Message]()

// baseStep is one hop from a message type to its base: the embedded field
// at index, and the key the embedded value is routed under.
type baseStep struct {
	index   int
	key     reflect.Type
	pointer bool // the embedded field itself is a pointer
}

// baseChains caches the base chain per concrete message type
var baseChains sync.Map // reflect.Type -> []baseStep

// candidate is one type key a message is offered under, with the value
// delivered for that key.
type candidate struct {
	key reflect.Type
	msg contracts.Message
}

func baseChainOf(t reflect.Type) []baseStep {
	if cached, ok := baseChains.Load(t); ok {
		return cached.([]baseStep)
	}

	var steps []baseStep
	seen := map[reflect.Type]bool{t: true}
	current := t
	for {
		step, ok := firstBase(current)
		if !ok || seen[step.key] {
			break
		}
		seen[step.key] = true
		steps = append(steps, step)
		current = step.key
	}

	actual, _ := baseChains.LoadOrStore(t, steps)
	return actual.([]baseStep)
}

// firstBase finds the first exported embedded struct field of t that is itself
// a message. When t is a pointer the embedded struct is addressed through it.
func firstBase(t reflect.Type) (baseStep, bool) {
	viaPointer := t.Kind() == reflect.Pointer
	st := t
	if viaPointer {
		st = t.Elem()
	}
	if st.Kind() != reflect.Struct {
		return baseStep{}, false
	}

	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		if !field.Anonymous || !field.IsExported() {
			continue
		}

		ft := field.Type
		var step baseStep
		switch {
		case ft.Kind() == reflect.Pointer && ft.Elem().Kind() == reflect.Struct:
			step = baseStep{index: i, key: ft, pointer: true}
		case ft.Kind() == reflect.Struct && viaPointer:
			step = baseStep{index: i, key: reflect.PointerTo(ft)}
		case ft.Kind() == reflect.Struct:
			step = baseStep{index: i, key: ft}
		default:
			continue
		}

		if step.key.Implements(messageInterface) {
			return step, true
		}
	}

	return baseStep{}, false
}

// candidatesFor lists the keys msg is offered under: its exact type, then
// its base chain, then every registered interface it implements.
func candidatesFor(msg contracts.Message, interfaces []reflect.Type) []candidate {
	t := reflect.TypeOf(msg)
	candidates := make([]candidate, 0, 4)
	candidates = append(candidates, candidate{key: t, msg: msg})

	current := reflect.ValueOf(msg)
	for _, step := range baseChainOf(t) {
		next, ok := descend(current, step)
		if !ok {
			break
		}
		base, ok := next.Interface().(contracts.Message)
		if !ok {
			break
		}
		candidates = append(candidates, candidate{key: step.key, msg: base})
		current = next
	}

	for _, iface := range interfaces {
		if t.Implements(iface) {
			candidates = append(candidates, candidate{key: iface, msg: msg})
		}
	}

	return candidates
}

func descend(v reflect.Value, step baseStep) (reflect.Value, bool) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		field := v.Elem().Field(step.index)
		if step.pointer {
			return field, !field.IsNil()
		}
		return field.Addr(), true
	}

	field := v.Field(step.index)
	if step.pointer && field.IsNil() {
		return reflect.Value{}, false
	}
	return field, true
}
