package navstack

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/goliatone/go-navstack/internal/clone"
)

var (
	// ErrIndexRange indicates an insert position outside [0, Len()].
	ErrIndexRange = errors.New("navstack: insert position out of range")
	// ErrUnknownID indicates a by-identifier write addressed to an identifier
	// that is not present. Entries are created only through Append/Insert.
	ErrUnknownID = errors.New("navstack: identifier not present in stack")
	// ErrUnderflow indicates a tail removal larger than the element count.
	ErrUnderflow = errors.New("navstack: remove count exceeds element count")
)

// Pair couples an identifier with the element it addresses, in stack order.
type Pair[T any] struct {
	ID      ElementID `json:"id"`
	Element T         `json:"element"`
}

// Stack is an ordered, identifier-keyed collection of navigation elements.
// Position 0 is the root-most element; the last position is the most recently
// pushed. The mounted set records which identifiers currently hold an active
// lifetime scope; it is maintained by the ForEachStack reconciliation pass and
// ignored by structural equality and serialization.
//
// The zero value is an empty stack ready for use. Stack values are not safe
// for concurrent mutation; the surrounding dispatch loop is expected to
// serialize writers.
type Stack[T any] struct {
	order    []ElementID
	elements map[ElementID]T
	mounted  map[ElementID]struct{}
}

// NewStack returns an empty stack.
func NewStack[T any]() Stack[T] {
	return Stack[T]{}
}

func (s *Stack[T]) ensure() {
	if s.elements == nil {
		s.elements = make(map[ElementID]T)
	}
	if s.mounted == nil {
		s.mounted = make(map[ElementID]struct{})
	}
}

// Len reports the number of elements.
func (s Stack[T]) Len() int {
	return len(s.order)
}

// Append requests a fresh identifier from gen and inserts element at the end.
func (s *Stack[T]) Append(gen IDGenerator, element T) ElementID {
	s.ensure()
	id := gen.Next()
	s.order = append(s.order, id)
	s.elements[id] = element
	return id
}

// AppendMany appends each element in order, each under its own fresh
// identifier, and returns the issued identifiers.
func (s *Stack[T]) AppendMany(gen IDGenerator, elements ...T) []ElementID {
	ids := make([]ElementID, 0, len(elements))
	for _, element := range elements {
		ids = append(ids, s.Append(gen, element))
	}
	return ids
}

// Insert requests a fresh identifier and inserts element at position, which
// must fall in [0, Len()].
func (s *Stack[T]) Insert(gen IDGenerator, element T, position int) (ElementID, error) {
	if position < 0 || position > len(s.order) {
		return ElementID{}, fmt.Errorf("%w: %d with %d elements", ErrIndexRange, position, len(s.order))
	}
	s.ensure()
	id := gen.Next()
	s.order = append(s.order, ElementID{})
	copy(s.order[position+1:], s.order[position:])
	s.order[position] = id
	s.elements[id] = element
	return id, nil
}

// RemoveLast removes the tail element.
func (s *Stack[T]) RemoveLast() error {
	return s.RemoveLastN(1)
}

// RemoveLastN removes the last n elements, dropping each removed identifier
// from the mounted set as well.
func (s *Stack[T]) RemoveLastN(n int) error {
	if n < 0 || n > len(s.order) {
		return fmt.Errorf("%w: %d with %d elements", ErrUnderflow, n, len(s.order))
	}
	s.truncate(len(s.order) - n)
	return nil
}

// RemoveAll clears the stack and the mounted set.
func (s *Stack[T]) RemoveAll() {
	s.truncate(0)
}

// truncate drops every entry at or after position from, in one update.
func (s *Stack[T]) truncate(from int) {
	for _, id := range s.order[from:] {
		delete(s.elements, id)
		delete(s.mounted, id)
	}
	s.order = s.order[:from]
}

// PopFrom removes id and every entry after it. It reports false and leaves
// the stack unchanged when id is absent.
func (s *Stack[T]) PopFrom(id ElementID) bool {
	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	s.truncate(idx)
	return true
}

// PopTo removes every entry strictly after id, keeping id itself. It reports
// false and leaves the stack unchanged when id is absent.
func (s *Stack[T]) PopTo(id ElementID) bool {
	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	s.truncate(idx + 1)
	return true
}

// DropLast returns a detached copy with the last min(n, Len()) entries
// removed. The receiver is left untouched.
func (s Stack[T]) DropLast(n int) Stack[T] {
	out := s.Clone()
	if n < 0 {
		n = 0
	}
	if n > len(out.order) {
		n = len(out.order)
	}
	out.truncate(len(out.order) - n)
	return out
}

// Get returns the element addressed by id.
func (s Stack[T]) Get(id ElementID) (T, bool) {
	element, ok := s.elements[id]
	return element, ok
}

// Set replaces the element addressed by id. Writes to identifiers not already
// present are rejected with ErrUnknownID: entries are created only through
// Append and Insert.
func (s *Stack[T]) Set(id ElementID, element T) error {
	if _, ok := s.elements[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownID, id)
	}
	s.elements[id] = element
	return nil
}

// replace writes back an element known to be present, bypassing the Set guard.
func (s *Stack[T]) replace(id ElementID, element T) {
	s.elements[id] = element
}

// Delete removes the single entry addressed by id along with its mounted
// flag. Unlike PopFrom it does not cascade to successors. It reports whether
// an entry was removed.
func (s *Stack[T]) Delete(id ElementID) bool {
	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	delete(s.elements, id)
	delete(s.mounted, id)
	s.order = append(s.order[:idx], s.order[idx+1:]...)
	return true
}

// Contains reports whether id addresses an element.
func (s Stack[T]) Contains(id ElementID) bool {
	_, ok := s.elements[id]
	return ok
}

// At returns the identifier and element at position, following stack order.
func (s Stack[T]) At(position int) (ElementID, T, bool) {
	if position < 0 || position >= len(s.order) {
		var zero T
		return ElementID{}, zero, false
	}
	id := s.order[position]
	return id, s.elements[id], true
}

// IDs returns the identifiers in stack order. The slice is detached.
func (s Stack[T]) IDs() []ElementID {
	return append([]ElementID(nil), s.order...)
}

// Elements returns the elements in stack order.
func (s Stack[T]) Elements() []T {
	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.elements[id])
	}
	return out
}

// Pairs returns the ordered (identifier, element) sequence for inspection
// tooling.
func (s Stack[T]) Pairs() []Pair[T] {
	out := make([]Pair[T], 0, len(s.order))
	for _, id := range s.order {
		out = append(out, Pair[T]{ID: id, Element: s.elements[id]})
	}
	return out
}

// Mounted reports whether id currently holds an active lifetime scope.
func (s Stack[T]) Mounted(id ElementID) bool {
	_, ok := s.mounted[id]
	return ok
}

// mount records id as holding an active lifetime scope. Only identifiers
// present in the stack are admitted.
func (s *Stack[T]) mount(id ElementID) {
	if _, ok := s.elements[id]; !ok {
		return
	}
	s.ensure()
	s.mounted[id] = struct{}{}
}

// Clone returns a deep copy: elements are cloned recursively so mutations on
// either side stay invisible to the other.
func (s Stack[T]) Clone() Stack[T] {
	out := Stack[T]{
		order:    append([]ElementID(nil), s.order...),
		elements: make(map[ElementID]T, len(s.elements)),
		mounted:  make(map[ElementID]struct{}, len(s.mounted)),
	}
	for id, element := range s.elements {
		out.elements[id] = clone.Value(element)
	}
	for id := range s.mounted {
		out.mounted[id] = struct{}{}
	}
	return out
}

// Equal reports structural equality over the ordered (identifier, element)
// pairs. The mounted set does not participate.
func (s Stack[T]) Equal(other Stack[T]) bool {
	if len(s.order) != len(other.order) {
		return false
	}
	for i, id := range s.order {
		if other.order[i] != id {
			return false
		}
		if !reflect.DeepEqual(s.elements[id], other.elements[id]) {
			return false
		}
	}
	return true
}

func (s Stack[T]) indexOf(id ElementID) int {
	if _, ok := s.elements[id]; !ok {
		return -1
	}
	for i, candidate := range s.order {
		if candidate == id {
			return i
		}
	}
	return -1
}

// MarshalJSON serializes the stack as the plain ordered element sequence.
// Identifiers and the mounted set are not persisted; identity is not stable
// across a serialize/deserialize round-trip.
func (s Stack[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Elements())
}

// DecodeStack reconstructs a stack from a payload produced by MarshalJSON,
// appending each decoded element through gen in original order. Restored
// elements receive fresh identifiers and start with an empty mounted set.
func DecodeStack[T any](gen IDGenerator, payload []byte) (Stack[T], error) {
	var elements []T
	if err := json.Unmarshal(payload, &elements); err != nil {
		return Stack[T]{}, fmt.Errorf("navstack: decode stack payload: %w", err)
	}
	var s Stack[T]
	s.AppendMany(gen, elements...)
	return s, nil
}
