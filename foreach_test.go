package navstack

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-navstack/pkg/diag"
)

type navState struct {
	path      Stack[screen]
	baseSeen  int
	lastPush  string
	lastInner string
}

type navAction struct {
	stack *StackAction[screen, string]
	push  string
	other bool
}

func embedNav(sa StackAction[screen, string]) navAction {
	return navAction{stack: &sa}
}

func navBase() Reducer[navState, navAction] {
	return ReducerFunc[navState, navAction](func(ctx context.Context, state *navState, action navAction) Effect[navAction] {
		state.baseSeen++
		if action.push != "" {
			state.path.Append(GeneratorFromContext(ctx), screen{Name: action.push})
			state.lastPush = action.push
		}
		return None[navAction]()
	})
}

func screenReducer() Reducer[screen, string] {
	return ReducerFunc[screen, string](func(ctx context.Context, state *screen, action string) Effect[string] {
		switch action {
		case "bump":
			state.Count++
			return None[string]()
		case "chain":
			return Send("bumped")
		case "work":
			return Run(func(ctx context.Context, send Sender[string]) error {
				<-ctx.Done()
				return ctx.Err()
			})
		case "dismiss":
			return Run(func(ctx context.Context, send Sender[string]) error {
				if !Dismiss(ctx) {
					return errors.New("no dismiss capability bound")
				}
				return nil
			})
		}
		return None[string]()
	})
}

func newNavReducer(opts ...ForEachOption) Reducer[navState, navAction] {
	return ForEachStack(
		navBase(),
		func(s *navState) *Stack[screen] { return &s.path },
		func(a navAction) (StackAction[screen, string], bool) {
			if a.stack == nil {
				return StackAction[screen, string]{}, false
			}
			return *a.stack, true
		},
		embedNav,
		screenReducer(),
		opts...,
	)
}

func navContext(gen IDGenerator, registry *ScopeRegistry) context.Context {
	ctx := WithGenerator(context.Background(), gen)
	return WithRegistry(ctx, registry)
}

func TestForEachMountsAppendedElements(t *testing.T) {
	reducer := newNavReducer()
	ctx := navContext(NewSequentialGenerator(), NewScopeRegistry())
	var state navState

	eff := reducer.Reduce(ctx, &state, navAction{push: "a"})

	mounts := eff.MountedScopes()
	if len(mounts) != 1 {
		t.Fatalf("expected one lifetime holder, got %d", len(mounts))
	}
	id, _, _ := state.path.At(0)
	want := ScopePath{}.Extend(id, "stack")
	if !mounts[0].Equal(want) {
		t.Fatalf("expected mount at %v, got %v", want, mounts[0])
	}
	if !state.path.Mounted(id) {
		t.Fatalf("expected element recorded as mounted")
	}
	if len(eff.CancelledScopes()) != 0 {
		t.Fatalf("append must not cancel anything")
	}
}

func TestForEachReconciliationNoOpFastPath(t *testing.T) {
	reducer := newNavReducer()
	ctx := navContext(NewSequentialGenerator(), NewScopeRegistry())
	var state navState

	reducer.Reduce(ctx, &state, navAction{push: "a"})
	eff := reducer.Reduce(ctx, &state, navAction{other: true})

	if len(eff.MountedScopes()) != 0 || len(eff.CancelledScopes()) != 0 {
		t.Fatalf("unchanged id set must produce no reconciliation effects")
	}
	if state.baseSeen != 2 {
		t.Fatalf("expected base reducer to run every dispatch, saw %d", state.baseSeen)
	}
}

func TestForEachPopFromEndToEnd(t *testing.T) {
	reducer := newNavReducer()
	ctx := navContext(NewSequentialGenerator(), NewScopeRegistry())
	var state navState

	reducer.Reduce(ctx, &state, navAction{push: "a"})
	reducer.Reduce(ctx, &state, navAction{push: "b"})

	ids := state.path.IDs()
	if len(ids) != 2 || ids[0].Generation != 0 || ids[1].Generation != 1 {
		t.Fatalf("expected generations 0 and 1, got %v", ids)
	}

	// Phase one: popFrom computes the replacement and re-dispatches it as a
	// setPath action instead of mutating inline.
	popAction := embedNav(StackPopFrom[screen, string](ids[0]))
	eff := reducer.Reduce(ctx, &state, popAction)
	if state.path.Len() != 2 {
		t.Fatalf("popFrom must not mutate state directly, got %d elements", state.path.Len())
	}
	sent := eff.SentActions()
	if len(sent) != 1 || sent[0].stack == nil {
		t.Fatalf("expected one re-dispatched stack action, got %v", sent)
	}
	replacement, ok := sent[0].stack.ReplacementPath()
	if !ok {
		t.Fatalf("expected a setPath action")
	}
	if replacement.Len() != 0 {
		t.Fatalf("expected pop from root to empty the path, got %d", replacement.Len())
	}

	// Phase two: committing the setPath cancels both element scopes, since
	// popping an element removes everything above it too.
	eff = reducer.Reduce(ctx, &state, sent[0])
	if state.path.Len() != 0 {
		t.Fatalf("expected empty path after commit, got %d", state.path.Len())
	}
	cancels := eff.CancelledScopes()
	if len(cancels) != 2 {
		t.Fatalf("expected both scopes cancelled, got %d", len(cancels))
	}
	wantFirst := ScopePath{}.Extend(ids[0], "stack")
	wantSecond := ScopePath{}.Extend(ids[1], "stack")
	seen := map[string]bool{}
	for _, cancel := range cancels {
		seen[cancel.Key()] = true
	}
	if !seen[wantFirst.Key()] || !seen[wantSecond.Key()] {
		t.Fatalf("unexpected cancel targets: %v", cancels)
	}
}

func TestForEachPopCommitPreservesTimestamps(t *testing.T) {
	type visit struct {
		Name    string
		Entered time.Time
	}
	type tripState struct {
		path Stack[visit]
	}
	type tripAction struct {
		stack *StackAction[visit, string]
	}
	embed := func(sa StackAction[visit, string]) tripAction {
		return tripAction{stack: &sa}
	}
	reducer := ForEachStack(
		EmptyReducer[tripState, tripAction](),
		func(s *tripState) *Stack[visit] { return &s.path },
		func(a tripAction) (StackAction[visit, string], bool) {
			if a.stack == nil {
				return StackAction[visit, string]{}, false
			}
			return *a.stack, true
		},
		embed,
		EmptyReducer[visit, string](),
	)

	ctx := navContext(NewSequentialGenerator(), NewScopeRegistry())
	gen := GeneratorFromContext(ctx)
	stamp := time.Date(2026, time.August, 29, 10, 30, 0, 0, time.UTC)
	var state tripState
	rootID := state.path.Append(gen, visit{Name: "home", Entered: stamp})
	leafID := state.path.Append(gen, visit{Name: "detail", Entered: stamp.Add(time.Minute)})
	reducer.Reduce(ctx, &state, tripAction{})

	eff := reducer.Reduce(ctx, &state, embed(StackPopFrom[visit, string](leafID)))
	sent := eff.SentActions()
	if len(sent) != 1 || sent[0].stack == nil {
		t.Fatalf("expected one re-dispatched stack action, got %v", sent)
	}
	reducer.Reduce(ctx, &state, sent[0])

	if state.path.Len() != 1 {
		t.Fatalf("expected one surviving element, got %d", state.path.Len())
	}
	survivor, ok := state.path.Get(rootID)
	if !ok {
		t.Fatalf("expected %v to survive the pop", rootID)
	}
	if !survivor.Entered.Equal(stamp) {
		t.Fatalf("expected %v, got %v", stamp, survivor.Entered)
	}
}

func TestForEachPopFromMissingReportsDiagnostic(t *testing.T) {
	capture := &diag.CaptureHook{}
	reducer := newNavReducer(WithDiagHooks(diag.Hooks{capture}))
	ctx := navContext(NewSequentialGenerator(), NewScopeRegistry())
	var state navState

	reducer.Reduce(ctx, &state, navAction{push: "a"})
	before := state.path.IDs()

	stranger := ElementID{Generation: 77, Payload: "77"}
	eff := reducer.Reduce(ctx, &state, embedNav(StackPopFrom[screen, string](stranger)))

	if len(eff.SentActions()) != 0 {
		t.Fatalf("failed pop must not re-dispatch anything")
	}
	after := state.path.IDs()
	if len(after) != len(before) || after[0] != before[0] {
		t.Fatalf("failed pop must leave state unchanged")
	}
	events := capture.Captured()
	if len(events) != 1 || events[0].Op != "pop" {
		t.Fatalf("expected one pop diagnostic, got %+v", events)
	}
}

func TestForEachStaleElementActionIsNoOp(t *testing.T) {
	capture := &diag.CaptureHook{}
	reducer := newNavReducer(WithDiagHooks(diag.Hooks{capture}))
	ctx := navContext(NewSequentialGenerator(), NewScopeRegistry())
	var state navState

	reducer.Reduce(ctx, &state, navAction{push: "a"})
	baseSeen := state.baseSeen

	stranger := ElementID{Generation: 50, Payload: "50"}
	eff := reducer.Reduce(ctx, &state, embedNav(StackElement[screen, string](stranger, "bump")))

	events := capture.Captured()
	if len(events) != 1 || events[0].Op != "element" {
		t.Fatalf("expected one stale-element diagnostic, got %+v", events)
	}
	if events[0].ElementID != stranger.String() {
		t.Fatalf("expected diagnostic to name the stale id, got %q", events[0].ElementID)
	}
	if len(eff.CancelledScopes()) != 0 || len(eff.MountedScopes()) != 0 {
		t.Fatalf("stale action must not produce reconciliation effects")
	}
	// The base reducer still runs against the full action.
	if state.baseSeen != baseSeen+1 {
		t.Fatalf("expected base reducer to run, saw %d", state.baseSeen)
	}
}

func TestForEachDelegatesAndWritesBack(t *testing.T) {
	reducer := newNavReducer()
	ctx := navContext(NewSequentialGenerator(), NewScopeRegistry())
	var state navState

	reducer.Reduce(ctx, &state, navAction{push: "a"})
	id, _, _ := state.path.At(0)

	reducer.Reduce(ctx, &state, embedNav(StackElement[screen, string](id, "bump")))
	element, _ := state.path.Get(id)
	if element.Count != 1 {
		t.Fatalf("expected destination mutation to persist, got %+v", element)
	}
}

func TestForEachWrapsDelegatedEffects(t *testing.T) {
	reducer := newNavReducer()
	ctx := navContext(NewSequentialGenerator(), NewScopeRegistry())
	var state navState

	reducer.Reduce(ctx, &state, navAction{push: "a"})
	id, _, _ := state.path.At(0)

	eff := reducer.Reduce(ctx, &state, embedNav(StackElement[screen, string](id, "chain")))
	sent := eff.SentActions()
	if len(sent) != 1 || sent[0].stack == nil {
		t.Fatalf("expected delegated send wrapped in a stack action, got %v", sent)
	}
	gotID, inner, ok := sent[0].stack.Element()
	if !ok || gotID != id || inner != "bumped" {
		t.Fatalf("unexpected wrapped action: id=%v inner=%q ok=%v", gotID, inner, ok)
	}
}

func TestForEachRescopesDelegatedRunEffects(t *testing.T) {
	reducer := newNavReducer()
	ctx := navContext(NewSequentialGenerator(), NewScopeRegistry())
	var state navState

	reducer.Reduce(ctx, &state, navAction{push: "a"})
	id, _, _ := state.path.At(0)

	eff := reducer.Reduce(ctx, &state, embedNav(StackElement[screen, string](id, "work")))
	want := ScopePath{}.Extend(id, "stack")
	found := false
	for _, op := range eff.ops {
		if op.kind == opRun {
			found = true
			if !op.scope.Equal(want) {
				t.Fatalf("expected run scoped to %v, got %v", want, op.scope)
			}
		}
	}
	if !found {
		t.Fatalf("expected a run operation from the destination")
	}
}

func TestForEachSetPathReplacesWholesale(t *testing.T) {
	reducer := newNavReducer()
	ctx := navContext(NewSequentialGenerator(), NewScopeRegistry())
	var state navState

	reducer.Reduce(ctx, &state, navAction{push: "a"})
	reducer.Reduce(ctx, &state, navAction{push: "b"})
	ids := state.path.IDs()

	replacement := state.path.DropLast(1)
	eff := reducer.Reduce(ctx, &state, embedNav(StackSetPath[screen, string](replacement)))

	if state.path.Len() != 1 {
		t.Fatalf("expected one element after replacement, got %d", state.path.Len())
	}
	cancels := eff.CancelledScopes()
	want := ScopePath{}.Extend(ids[1], "stack")
	if len(cancels) != 1 || !cancels[0].Equal(want) {
		t.Fatalf("expected cancellation for the dropped element, got %v", cancels)
	}
	if len(eff.MountedScopes()) != 0 {
		t.Fatalf("surviving elements are already mounted")
	}
}

func TestForEachExternalRemovalStillCancels(t *testing.T) {
	// Removal that bypasses the stack actions entirely: the base reducer
	// drops the tail element inline.
	base := ReducerFunc[navState, navAction](func(ctx context.Context, state *navState, action navAction) Effect[navAction] {
		if action.other {
			_ = state.path.RemoveLast()
		}
		if action.push != "" {
			state.path.Append(GeneratorFromContext(ctx), screen{Name: action.push})
		}
		return None[navAction]()
	})
	reducer := ForEachStack(
		base,
		func(s *navState) *Stack[screen] { return &s.path },
		func(a navAction) (StackAction[screen, string], bool) {
			if a.stack == nil {
				return StackAction[screen, string]{}, false
			}
			return *a.stack, true
		},
		embedNav,
		screenReducer(),
	)
	ctx := navContext(NewSequentialGenerator(), NewScopeRegistry())
	var state navState

	reducer.Reduce(ctx, &state, navAction{push: "a"})
	id, _, _ := state.path.At(0)

	eff := reducer.Reduce(ctx, &state, navAction{other: true})
	want := ScopePath{}.Extend(id, "stack")
	cancels := eff.CancelledScopes()
	if len(cancels) != 1 || !cancels[0].Equal(want) {
		t.Fatalf("expected cancellation for externally removed element, got %v", cancels)
	}
}

func TestForEachMountCancelSymmetry(t *testing.T) {
	reducer := newNavReducer()
	ctx := navContext(NewSequentialGenerator(), NewScopeRegistry())
	var state navState

	mounts := 0
	cancels := 0
	record := func(eff Effect[navAction]) {
		mounts += len(eff.MountedScopes())
		cancels += len(eff.CancelledScopes())
	}

	record(reducer.Reduce(ctx, &state, navAction{push: "a"}))
	record(reducer.Reduce(ctx, &state, navAction{push: "b"}))
	record(reducer.Reduce(ctx, &state, navAction{push: "c"}))

	replacement := state.path.DropLast(3)
	record(reducer.Reduce(ctx, &state, embedNav(StackSetPath[screen, string](replacement))))

	if mounts != 3 {
		t.Fatalf("expected one holder per appended element, got %d", mounts)
	}
	if cancels != 3 {
		t.Fatalf("expected every holder cancelled on removal, got %d", cancels)
	}
}

func TestForEachTraceSink(t *testing.T) {
	var traces []Trace
	reducer := newNavReducer(WithTraceSink(func(trace Trace) { traces = append(traces, trace) }))
	ctx := navContext(NewSequentialGenerator(), NewScopeRegistry())
	var state navState

	reducer.Reduce(ctx, &state, navAction{push: "a"})
	if len(traces) != 1 || len(traces[0].Mounted) != 1 || traces[0].Action != "outer" {
		t.Fatalf("unexpected mount trace: %+v", traces)
	}

	replacement := state.path.DropLast(1)
	reducer.Reduce(ctx, &state, embedNav(StackSetPath[screen, string](replacement)))
	if len(traces) != 2 || len(traces[1].Cancelled) != 1 || traces[1].Action != "setPath" {
		t.Fatalf("unexpected cancel trace: %+v", traces)
	}

	payload, err := traces[1].ToJSON()
	if err != nil {
		t.Fatalf("trace to json: %v", err)
	}
	parsed, err := TraceFromJSON(payload)
	if err != nil {
		t.Fatalf("trace from json: %v", err)
	}
	if parsed.Action != "setPath" || len(parsed.Cancelled) != 1 {
		t.Fatalf("unexpected round-tripped trace: %+v", parsed)
	}
}

func TestForEachCustomDiscriminator(t *testing.T) {
	reducer := newNavReducer(WithDiscriminator("detail"))
	ctx := navContext(NewSequentialGenerator(), NewScopeRegistry())
	var state navState

	eff := reducer.Reduce(ctx, &state, navAction{push: "a"})
	mounts := eff.MountedScopes()
	if len(mounts) != 1 || mounts[0][0].Discriminator != "detail" {
		t.Fatalf("expected custom discriminator in scope segments, got %v", mounts)
	}
}
