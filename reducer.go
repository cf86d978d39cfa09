package navstack

import "context"

// Reducer evolves a state value in response to an action and describes the
// asynchronous work to perform afterwards. Reduce runs synchronously under
// the single-writer discipline of the dispatch loop; suspension happens only
// inside the returned effect.
type Reducer[S, A any] interface {
	Reduce(ctx context.Context, state *S, action A) Effect[A]
}

// ReducerFunc adapts a plain function to the Reducer interface.
type ReducerFunc[S, A any] func(ctx context.Context, state *S, action A) Effect[A]

// Reduce dispatches to the underlying function.
func (f ReducerFunc[S, A]) Reduce(ctx context.Context, state *S, action A) Effect[A] {
	if f == nil {
		return None[A]()
	}
	return f(ctx, state, action)
}

// EmptyReducer returns a reducer that never changes state and produces no
// effects, useful as a base for compositions that only need stack handling.
func EmptyReducer[S, A any]() Reducer[S, A] {
	return ReducerFunc[S, A](func(context.Context, *S, A) Effect[A] {
		return None[A]()
	})
}
