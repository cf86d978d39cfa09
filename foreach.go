package navstack

import (
	"context"
	"fmt"

	"github.com/goliatone/go-navstack/pkg/diag"
)

type stackActionKind int

const (
	stackActionOuter stackActionKind = iota
	stackActionElement
	stackActionPopFrom
	stackActionSetPath
)

func (k stackActionKind) String() string {
	switch k {
	case stackActionElement:
		return "element"
	case stackActionPopFrom:
		return "popFrom"
	case stackActionSetPath:
		return "setPath"
	default:
		return "outer"
	}
}

// StackAction is the tagged union of actions a ForEachStack combinator
// interprets: an action addressed to one element, a pop starting at an
// element, or a wholesale path replacement. T is the element state type and
// IA the element action type.
type StackAction[T, IA any] struct {
	kind  stackActionKind
	id    ElementID
	inner IA
	path  Stack[T]
}

// StackElement addresses inner at the element identified by id.
func StackElement[T, IA any](id ElementID, inner IA) StackAction[T, IA] {
	return StackAction[T, IA]{kind: stackActionElement, id: id, inner: inner}
}

// StackPopFrom requests removal of id and every element above it.
func StackPopFrom[T, IA any](id ElementID) StackAction[T, IA] {
	return StackAction[T, IA]{kind: stackActionPopFrom, id: id}
}

// StackSetPath requests wholesale replacement of the stack with path.
func StackSetPath[T, IA any](path Stack[T]) StackAction[T, IA] {
	return StackAction[T, IA]{kind: stackActionSetPath, path: path}
}

// Element unpacks an element-addressed action.
func (a StackAction[T, IA]) Element() (ElementID, IA, bool) {
	return a.id, a.inner, a.kind == stackActionElement
}

// PopTarget unpacks a popFrom action.
func (a StackAction[T, IA]) PopTarget() (ElementID, bool) {
	return a.id, a.kind == stackActionPopFrom
}

// ReplacementPath unpacks a setPath action.
func (a StackAction[T, IA]) ReplacementPath() (Stack[T], bool) {
	return a.path, a.kind == stackActionSetPath
}

// ForEachOption configures a ForEachStack combinator.
type ForEachOption func(*forEachConfig)

type forEachConfig struct {
	discriminator string
	hooks         diag.Hooks
	traceSink     func(Trace)
}

// WithDiscriminator names the stack field in cancellation-scope segments,
// keeping sibling stacks on one state from colliding. Defaults to "stack".
func WithDiscriminator(discriminator string) ForEachOption {
	return func(cfg *forEachConfig) {
		if discriminator != "" {
			cfg.discriminator = discriminator
		}
	}
}

// WithDiagHooks attaches hooks that receive stale-action and failed-pop
// diagnostics. Nil entries are dropped.
func WithDiagHooks(hooks diag.Hooks) ForEachOption {
	return func(cfg *forEachConfig) {
		for _, hook := range hooks {
			if hook != nil {
				cfg.hooks = append(cfg.hooks, hook)
			}
		}
	}
}

// WithTraceSink attaches a sink receiving a reconciliation Trace for every
// dispatch that changed the live set.
func WithTraceSink(sink func(Trace)) ForEachOption {
	return func(cfg *forEachConfig) {
		cfg.traceSink = sink
	}
}

type forEachStackReducer[S, A, T, IA any] struct {
	base          Reducer[S, A]
	toStack       func(*S) *Stack[T]
	toStackAction func(A) (StackAction[T, IA], bool)
	embed         func(StackAction[T, IA]) A
	destination   Reducer[T, IA]
	cfg           forEachConfig
}

// ForEachStack lifts destination, a reducer over single elements, into a
// stack-aware reducer wrapped around base. toStack locates the stack field on
// the outer state, toStackAction extracts a StackAction from an outer action,
// and embed wraps a StackAction back into an outer action.
//
// Element actions are delegated to destination under a rescoped cancellation
// path with a dismiss capability bound; pops are committed through a
// re-dispatched setPath so every removal is observable as a discrete action;
// and after every dispatch the live set is reconciled against the scope
// registry, cancelling removed elements and mounting new ones.
func ForEachStack[S, A, T, IA any](
	base Reducer[S, A],
	toStack func(*S) *Stack[T],
	toStackAction func(A) (StackAction[T, IA], bool),
	embed func(StackAction[T, IA]) A,
	destination Reducer[T, IA],
	opts ...ForEachOption,
) Reducer[S, A] {
	cfg := forEachConfig{discriminator: "stack"}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &forEachStackReducer[S, A, T, IA]{
		base:          base,
		toStack:       toStack,
		toStackAction: toStackAction,
		embed:         embed,
		destination:   destination,
		cfg:           cfg,
	}
}

func (r *forEachStackReducer[S, A, T, IA]) Reduce(ctx context.Context, state *S, action A) Effect[A] {
	stack := r.toStack(state)
	idsBefore := stack.IDs()
	basePath := ScopePathFromContext(ctx)

	var effects []Effect[A]
	kind := stackActionOuter

	if stackAction, ok := r.toStackAction(action); ok {
		kind = stackAction.kind
		switch stackAction.kind {
		case stackActionElement:
			if element, ok := stack.Get(stackAction.id); ok {
				effects = append(effects, r.delegate(ctx, stack, stackAction.id, element, stackAction.inner))
			} else {
				r.report(ctx, diag.Event{
					Op:        "element",
					Scope:     basePath.Key(),
					ElementID: stackAction.id.String(),
					Message: fmt.Sprintf(
						"received action for element %s which is no longer on the stack; "+
							"this is expected transiently after a removal and was ignored",
						stackAction.id,
					),
				})
			}
		case stackActionPopFrom:
			next := stack.Clone()
			if next.PopFrom(stackAction.id) {
				// Commit through a re-dispatched setPath so the removal is a
				// discrete, observable action rather than an inline mutation.
				effects = append(effects, Send(r.embed(StackSetPath[T, IA](next))))
			} else {
				r.report(ctx, diag.Event{
					Op:        "pop",
					Scope:     basePath.Key(),
					ElementID: stackAction.id.String(),
					Message: fmt.Sprintf(
						"pop requested from element %s which is not on the stack; state left unchanged",
						stackAction.id,
					),
				})
			}
		case stackActionSetPath:
			*stack = stackAction.path.Clone()
		}
	}

	// The base reducer always runs against the full outer action.
	effects = append(effects, r.base.Reduce(ctx, state, action))

	// Reconcile against the state the base reducer left behind.
	stack = r.toStack(state)
	effects = append(effects, r.reconcile(stack, basePath, idsBefore, kind)...)

	return Merge(effects...)
}

func (r *forEachStackReducer[S, A, T, IA]) delegate(ctx context.Context, stack *Stack[T], id ElementID, element T, inner IA) Effect[A] {
	elementPath := ScopePathFromContext(ctx).Extend(id, r.cfg.discriminator)
	registry := RegistryFromContext(ctx)
	elementCtx := WithScopePath(ctx, elementPath)
	elementCtx = WithDismiss(elementCtx, func() { registry.Cancel(elementPath) })

	innerEffect := r.destination.Reduce(elementCtx, &element, inner)
	stack.replace(id, element)

	mapped := MapEffect(innerEffect, func(action IA) A {
		return r.embed(StackElement[T, IA](id, action))
	})
	return Cancellable(mapped, elementPath)
}

// reconcile diffs the pre-action identifier set against the post-action one,
// emitting cancellations for removed ids and lifetime holders for ids not yet
// mounted. Both phases have a no-op fast path.
func (r *forEachStackReducer[S, A, T, IA]) reconcile(stack *Stack[T], basePath ScopePath, idsBefore []ElementID, kind stackActionKind) []Effect[A] {
	var effects []Effect[A]
	var trace Trace

	if !sameIDSet(idsBefore, stack.order) {
		after := make(map[ElementID]struct{}, len(stack.order))
		for _, id := range stack.order {
			after[id] = struct{}{}
		}
		for _, id := range idsBefore {
			if _, ok := after[id]; ok {
				continue
			}
			removed := basePath.Extend(id, r.cfg.discriminator)
			effects = append(effects, CancelScope[A](removed))
			trace.Cancelled = append(trace.Cancelled, removed.Key())
		}
	}

	if len(stack.mounted) != len(stack.order) {
		for _, id := range stack.order {
			if stack.Mounted(id) {
				continue
			}
			stack.mount(id)
			mountedPath := basePath.Extend(id, r.cfg.discriminator)
			elementID := id
			effects = append(effects, MountScope(mountedPath, func() A {
				return r.embed(StackPopFrom[T, IA](elementID))
			}))
			trace.Mounted = append(trace.Mounted, mountedPath.Key())
		}
	}

	if r.cfg.traceSink != nil && (len(trace.Cancelled) > 0 || len(trace.Mounted) > 0) {
		trace.Action = kind.String()
		r.cfg.traceSink(trace)
	}
	return effects
}

func (r *forEachStackReducer[S, A, T, IA]) report(ctx context.Context, event diag.Event) {
	if !r.cfg.hooks.Enabled() {
		return
	}
	event.Component = "navstack.forEach"
	_ = r.cfg.hooks.Notify(ctx, event)
}

// sameIDSet compares two identifier collections order-insensitively.
func sameIDSet(before, after []ElementID) bool {
	if len(before) != len(after) {
		return false
	}
	seen := make(map[ElementID]struct{}, len(before))
	for _, id := range before {
		seen[id] = struct{}{}
	}
	for _, id := range after {
		if _, ok := seen[id]; !ok {
			return false
		}
	}
	return true
}
