package navstack

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Function is a custom helper callable from stack query expressions.
// Arguments arrive as the evaluator's native values, so implementations
// should type-assert defensively.
type Function func(args ...any) (any, error)

// FunctionRegistry holds the custom helpers an evaluator exposes to query
// expressions. Names are case-insensitive. The expr engine surfaces each
// entry as a top-level function; CEL reaches them through call(name, args).
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// Register stores fn under name. Registering the same name twice is an
// error so helpers cannot silently shadow each other.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("navstack: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("navstack: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("navstack: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Clone returns a detached copy. Evaluators clone the registry they are
// configured with, so later registrations on the original do not leak
// into compiled queries.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]Function, len(r.functions)),
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("navstack: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("navstack: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
