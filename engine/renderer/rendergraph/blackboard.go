package rendergraph

import (
	"fmt"
	"reflect"
	"sync"
)

var outputTypes = struct {
	sync.Mutex
	index map[reflect.Type]int
}{index: make(map[reflect.Type]int)}

// outputTypeIndex assigns every output type a process-wide slot, in the
// order types are first seen.
func outputTypeIndex[T any]() int {
	t := reflect.TypeFor[T]()
	outputTypes.Lock()
	defer outputTypes.Unlock()
	i, ok := outputTypes.index[t]
	if !ok {
		i = len(outputTypes.index)
		outputTypes.index[t] = i
	}
	return i
}

// Blackboard lets passes publish typed results for later passes of the same
// frame. There is one slot per type.
type Blackboard struct {
	slots []any
}

func NewBlackboard() *Blackboard {
	return &Blackboard{}
}

func (b *Blackboard) slot(i int) *any {
	if i >= len(b.slots) {
		b.slots = append(b.slots, make([]any, i-len(b.slots)+1)...)
	}
	return &b.slots[i]
}

// Clear empties every slot, called once per frame.
func (b *Blackboard) Clear() {
	clear(b.slots)
}

// RegisterOutput publishes value. It fails if a T was already published this frame.
func RegisterOutput[T any](b *Blackboard, value T) (*T, error) {
	s := b.slot(outputTypeIndex[T]())
	if *s != nil {
		return nil, fail(ErrOutputExists, "register %s", reflect.TypeFor[T]())
	}
	out := &value
	*s = out
	return out, nil
}

// UpdateOutput publishes value, replacing any earlier T.
func UpdateOutput[T any](b *Blackboard, value T) *T {
	out := &value
	*b.slot(outputTypeIndex[T]()) = out
	return out
}

func GetOutput[T any](b *Blackboard) (*T, error) {
	if out, ok := TryGetOutput[T](b); ok {
		return out, nil
	}
	return nil, fmt.Errorf("get %s: %w", reflect.TypeFor[T](), ErrOutputMissing)
}

func TryGetOutput[T any](b *Blackboard) (*T, bool) {
	i := outputTypeIndex[T]()
	if i >= len(b.slots) || b.slots[i] == nil {
		return nil, false
	}
	out, ok := b.slots[i].(*T)
	return out, ok
}
