package navstack

import "context"

// Sender delivers actions produced by a running effect back into the dispatch
// loop that owns the state.
type Sender[A any] func(A)

type effectOpKind int

const (
	opSend effectOpKind = iota
	opRun
	opCancel
	opMount
)

type effectOp[A any] struct {
	kind   effectOpKind
	action A
	run    func(ctx context.Context, send Sender[A]) error
	scope  ScopePath
	mount  func() A
}

// Effect describes the asynchronous work a reducer wants performed after its
// synchronous state transition commits. Effects are inert data until a Store
// executes them, so they can be inspected, merged, mapped, and tagged freely.
type Effect[A any] struct {
	ops []effectOp[A]
}

// None returns the empty effect.
func None[A any]() Effect[A] {
	return Effect[A]{}
}

// IsNone reports whether the effect carries no operations.
func (e Effect[A]) IsNone() bool {
	return len(e.ops) == 0
}

// Send returns an effect that synchronously re-dispatches action through the
// owning dispatch loop after the current transition commits.
func Send[A any](action A) Effect[A] {
	return Effect[A]{ops: []effectOp[A]{{kind: opSend, action: action}}}
}

// Run returns an effect executing fn on its own goroutine. The context is
// cancelled when the effect's scope is cancelled or the store closes; a
// non-nil error other than context.Canceled is reported through the store's
// diagnostic hooks.
func Run[A any](fn func(ctx context.Context, send Sender[A]) error) Effect[A] {
	return Effect[A]{ops: []effectOp[A]{{kind: opRun, run: fn}}}
}

// CancelScope returns an effect that, when executed, cancels every operation
// registered under path and its descendants.
func CancelScope[A any](path ScopePath) Effect[A] {
	return Effect[A]{ops: []effectOp[A]{{kind: opCancel, scope: path}}}
}

// MountScope returns the lifetime-holder effect for path. Executing it
// registers makeAction with the registry; when the scope is cancelled the
// synthesized action is dispatched, re-entering the state machine. It never
// completes on its own and allocates no goroutine.
func MountScope[A any](path ScopePath, makeAction func() A) Effect[A] {
	return Effect[A]{ops: []effectOp[A]{{kind: opMount, scope: path, mount: makeAction}}}
}

// Merge flattens effects into one. Operations keep their construction order;
// no ordering is guaranteed between the goroutines they spawn.
func Merge[A any](effects ...Effect[A]) Effect[A] {
	var out Effect[A]
	for _, effect := range effects {
		out.ops = append(out.ops, effect.ops...)
	}
	return out
}

// MapEffect lifts an effect over an action transformation, rewrapping sent,
// run-produced, and mount-synthesized actions. Cancellation targets pass
// through untouched.
func MapEffect[A, B any](effect Effect[A], transform func(A) B) Effect[B] {
	out := Effect[B]{ops: make([]effectOp[B], 0, len(effect.ops))}
	for _, op := range effect.ops {
		mapped := effectOp[B]{kind: op.kind, scope: op.scope}
		switch op.kind {
		case opSend:
			mapped.action = transform(op.action)
		case opRun:
			inner := op.run
			mapped.run = func(ctx context.Context, send Sender[B]) error {
				return inner(ctx, func(action A) { send(transform(action)) })
			}
		case opMount:
			inner := op.mount
			mapped.mount = func() B { return transform(inner()) }
		}
		out.ops = append(out.ops, mapped)
	}
	return out
}

// Cancellable tags the effect's running operations with path so they can be
// bulk-cancelled through a ScopeRegistry. Already-tagged operations keep
// their original scope.
func Cancellable[A any](effect Effect[A], path ScopePath) Effect[A] {
	out := Effect[A]{ops: make([]effectOp[A], 0, len(effect.ops))}
	for _, op := range effect.ops {
		if op.kind == opRun && op.scope == nil {
			op.scope = path
		}
		out.ops = append(out.ops, op)
	}
	return out
}

// CancelledScopes lists the scope paths this effect cancels, in operation
// order. Intended for inspection and tests.
func (e Effect[A]) CancelledScopes() []ScopePath {
	var out []ScopePath
	for _, op := range e.ops {
		if op.kind == opCancel {
			out = append(out, op.scope)
		}
	}
	return out
}

// MountedScopes lists the scope paths this effect holds open, in operation
// order.
func (e Effect[A]) MountedScopes() []ScopePath {
	var out []ScopePath
	for _, op := range e.ops {
		if op.kind == opMount {
			out = append(out, op.scope)
		}
	}
	return out
}

// SentActions lists the actions this effect re-dispatches synchronously, in
// operation order.
func (e Effect[A]) SentActions() []A {
	var out []A
	for _, op := range e.ops {
		if op.kind == opSend {
			out = append(out, op.action)
		}
	}
	return out
}
