package navstack

import (
	"context"
	"errors"
	"sync"

	"github.com/goliatone/go-navstack/pkg/diag"
)

// StoreOption configures a Store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	registry *ScopeRegistry
	gen      IDGenerator
	hooks    diag.Hooks
	baseCtx  context.Context
}

// WithStoreRegistry shares an existing scope registry with the store instead
// of the store owning a fresh one.
func WithStoreRegistry(registry *ScopeRegistry) StoreOption {
	return func(cfg *storeConfig) {
		cfg.registry = registry
	}
}

// WithStoreGenerator fixes the identifier generator dispatches mint ids from.
// Tests typically install NewSequentialGenerator here.
func WithStoreGenerator(gen IDGenerator) StoreOption {
	return func(cfg *storeConfig) {
		cfg.gen = gen
	}
}

// WithStoreDiagHooks attaches hooks receiving effect failures.
func WithStoreDiagHooks(hooks diag.Hooks) StoreOption {
	return func(cfg *storeConfig) {
		for _, hook := range hooks {
			if hook != nil {
				cfg.hooks = append(cfg.hooks, hook)
			}
		}
	}
}

// WithStoreContext sets the base context run effects derive from.
func WithStoreContext(ctx context.Context) StoreOption {
	return func(cfg *storeConfig) {
		if ctx != nil {
			cfg.baseCtx = ctx
		}
	}
}

// Store owns a state value and serializes dispatches against it: exactly one
// reduction is in flight at a time, and actions produced by effects are
// queued behind the dispatch that is currently committing. Run effects
// execute on their own goroutines, registered with the scope registry under
// the path they were tagged with.
type Store[S, A any] struct {
	qmu      sync.Mutex
	qidle    *sync.Cond
	queue    []A
	draining bool
	closed   bool

	smu     sync.Mutex
	state   S
	reducer Reducer[S, A]

	registry    *ScopeRegistry
	ownRegistry bool
	gen         IDGenerator
	hooks       diag.Hooks

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewStore constructs a store around initial and reducer.
func NewStore[S, A any](initial S, reducer Reducer[S, A], opts ...StoreOption) *Store[S, A] {
	cfg := storeConfig{baseCtx: context.Background()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	s := &Store[S, A]{
		state:    initial,
		reducer:  reducer,
		registry: cfg.registry,
		gen:      cfg.gen,
		hooks:    cfg.hooks,
	}
	s.qidle = sync.NewCond(&s.qmu)
	if s.registry == nil {
		s.registry = NewScopeRegistry()
		s.ownRegistry = true
	}
	if s.gen == nil {
		s.gen = NewRandomGenerator()
	}
	s.baseCtx, s.cancel = context.WithCancel(cfg.baseCtx)
	return s
}

// Registry returns the scope registry the store resolves effects against.
func (s *Store[S, A]) Registry() *ScopeRegistry {
	return s.registry
}

// State returns a snapshot of the current state value. The snapshot is a
// shallow copy; callers must not mutate shared references reachable from it.
func (s *Store[S, A]) State() S {
	s.smu.Lock()
	defer s.smu.Unlock()
	return s.state
}

// Send dispatches action. If a dispatch is already committing on another
// goroutine the action is queued behind it; otherwise the calling goroutine
// drains the queue. Sends on a closed store are dropped.
func (s *Store[S, A]) Send(action A) {
	s.qmu.Lock()
	if s.closed {
		s.qmu.Unlock()
		return
	}
	s.queue = append(s.queue, action)
	if s.draining {
		s.qmu.Unlock()
		return
	}
	s.draining = true
	s.qmu.Unlock()
	s.drain()
}

func (s *Store[S, A]) drain() {
	for {
		s.qmu.Lock()
		if len(s.queue) == 0 || s.closed {
			s.draining = false
			s.qidle.Broadcast()
			s.qmu.Unlock()
			return
		}
		action := s.queue[0]
		s.queue = s.queue[1:]
		s.qmu.Unlock()

		ctx := s.ambient(s.baseCtx)
		s.smu.Lock()
		effect := s.reducer.Reduce(ctx, &s.state, action)
		s.smu.Unlock()
		s.execute(effect)
	}
}

func (s *Store[S, A]) ambient(ctx context.Context) context.Context {
	ctx = WithGenerator(ctx, s.gen)
	return WithRegistry(ctx, s.registry)
}

func (s *Store[S, A]) execute(effect Effect[A]) {
	for _, op := range effect.ops {
		switch op.kind {
		case opSend:
			s.qmu.Lock()
			if !s.closed {
				s.queue = append(s.queue, op.action)
			}
			s.qmu.Unlock()
		case opCancel:
			s.registry.Cancel(op.scope)
		case opMount:
			makeAction := op.mount
			s.registry.Hold(op.scope, func() {
				s.Send(makeAction())
			})
		case opRun:
			s.startRun(op)
		}
	}
}

func (s *Store[S, A]) startRun(op effectOp[A]) {
	runCtx, cancelRun := context.WithCancel(s.baseCtx)
	release := s.registry.Register(op.scope, cancelRun)

	ctx := s.ambient(runCtx)
	if op.scope != nil {
		scope := op.scope
		ctx = WithScopePath(ctx, scope)
		ctx = WithDismiss(ctx, func() { s.registry.Cancel(scope) })
	}

	run := op.run
	scopeKey := op.scope.Key()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer release()
		defer cancelRun()
		if err := run(ctx, s.Send); err != nil && !errors.Is(err, context.Canceled) {
			_ = s.hooks.Notify(s.baseCtx, diag.Event{
				Op:        "effect",
				Component: "navstack.store",
				Scope:     scopeKey,
				Message:   "effect failed: " + err.Error(),
			})
		}
	}()
}

// Wait blocks until the action queue has drained and every run effect
// started so far has finished. Effects that send further actions are
// drained too before Wait returns.
func (s *Store[S, A]) Wait() {
	for {
		s.qmu.Lock()
		for s.draining || (len(s.queue) > 0 && !s.closed) {
			s.qidle.Wait()
		}
		s.qmu.Unlock()

		s.wg.Wait()

		s.qmu.Lock()
		idle := !s.draining && (len(s.queue) == 0 || s.closed)
		s.qmu.Unlock()
		if idle {
			return
		}
	}
}

// Close stops accepting actions, cancels the base context, tears down the
// registry when the store owns it, and waits for in-flight effects.
func (s *Store[S, A]) Close() {
	s.qmu.Lock()
	if s.closed {
		s.qmu.Unlock()
		return
	}
	s.closed = true
	s.queue = nil
	s.qidle.Broadcast()
	s.qmu.Unlock()

	s.cancel()
	if s.ownRegistry {
		s.registry.Reset()
	}
	s.wg.Wait()
}
