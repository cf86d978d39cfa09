package navstack

import "sync"

// ScopeRegistry maps cancellation-scope paths to the operations currently
// running under them. Cancelling a path cancels every operation registered
// under it and under any path that extends it. Cancellation is idempotent:
// cancelling an already-cancelled or never-registered path is a no-op.
//
// A registry is process-wide state with explicit construction and teardown;
// one instance is shared by a store and the combinators dispatched through it.
type ScopeRegistry struct {
	mu      sync.Mutex
	nextTok uint64
	entries map[uint64]*scopeEntry
}

type scopeEntry struct {
	path   ScopePath
	cancel func()
}

// NewScopeRegistry constructs an empty registry.
func NewScopeRegistry() *ScopeRegistry {
	return &ScopeRegistry{entries: make(map[uint64]*scopeEntry)}
}

var defaultRegistry = NewScopeRegistry()

// DefaultRegistry returns the shared process-wide registry used when no
// explicit registry is configured.
func DefaultRegistry() *ScopeRegistry {
	return defaultRegistry
}

// Register records cancel as an operation running under path and returns a
// release function that withdraws the registration without invoking it, for
// operations that complete on their own. Release is safe to call more than
// once and after the registration was cancelled.
func (r *ScopeRegistry) Register(path ScopePath, cancel func()) func() {
	r.mu.Lock()
	tok := r.nextTok
	r.nextTok++
	if r.entries == nil {
		r.entries = make(map[uint64]*scopeEntry)
	}
	r.entries[tok] = &scopeEntry{path: path, cancel: cancel}
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.entries, tok)
		r.mu.Unlock()
	}
}

// Hold registers onCancel as the lifetime holder for path: it occupies the
// scope without running any work, and fires exactly when the scope is
// cancelled. This is how removals that bypass the stack API still flow back
// through the combinator as popFrom actions.
func (r *ScopeRegistry) Hold(path ScopePath, onCancel func()) func() {
	return r.Register(path, onCancel)
}

// Cancel cancels every operation registered under path or any descendant of
// path. Callbacks run outside the registry lock, so they may re-enter the
// registry or dispatch further actions.
func (r *ScopeRegistry) Cancel(path ScopePath) {
	r.cancelMatching(func(candidate ScopePath) bool {
		return candidate.HasPrefix(path)
	})
}

// Active reports how many operations are registered under path, descendants
// included.
func (r *ScopeRegistry) Active(path ScopePath) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, entry := range r.entries {
		if entry.path.HasPrefix(path) {
			count++
		}
	}
	return count
}

// Reset cancels everything and empties the registry.
func (r *ScopeRegistry) Reset() {
	r.cancelMatching(func(ScopePath) bool { return true })
}

func (r *ScopeRegistry) cancelMatching(match func(ScopePath) bool) {
	r.mu.Lock()
	var cancels []func()
	for tok, entry := range r.entries {
		if match(entry.path) {
			if entry.cancel != nil {
				cancels = append(cancels, entry.cancel)
			}
			delete(r.entries, tok)
		}
	}
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}
