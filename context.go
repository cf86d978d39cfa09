package navstack

import "context"

// Ambient dispatch configuration rides on context.Context so reducers receive
// their identifier generator, current cancellation-scope path, and dismiss
// capability without package-level globals.

type ctxKey int

const (
	ctxKeyGenerator ctxKey = iota
	ctxKeyScopePath
	ctxKeyRegistry
	ctxKeyDismiss
)

var ambientGenerator = NewRandomGenerator()

// WithGenerator binds the identifier generator reducers should mint ids from.
func WithGenerator(ctx context.Context, gen IDGenerator) context.Context {
	return context.WithValue(ctx, ctxKeyGenerator, gen)
}

// GeneratorFromContext returns the bound generator, falling back to a shared
// live-mode generator when none was configured.
func GeneratorFromContext(ctx context.Context) IDGenerator {
	if ctx != nil {
		if gen, ok := ctx.Value(ctxKeyGenerator).(IDGenerator); ok && gen != nil {
			return gen
		}
	}
	return ambientGenerator
}

// WithScopePath binds the current cancellation-scope path. Combinators extend
// it before delegating to element reducers.
func WithScopePath(ctx context.Context, path ScopePath) context.Context {
	return context.WithValue(ctx, ctxKeyScopePath, path)
}

// ScopePathFromContext returns the current cancellation-scope path; nil means
// the root scope.
func ScopePathFromContext(ctx context.Context) ScopePath {
	if ctx != nil {
		if path, ok := ctx.Value(ctxKeyScopePath).(ScopePath); ok {
			return path
		}
	}
	return nil
}

// WithRegistry binds the scope registry effects resolve against.
func WithRegistry(ctx context.Context, registry *ScopeRegistry) context.Context {
	return context.WithValue(ctx, ctxKeyRegistry, registry)
}

// RegistryFromContext returns the bound registry, falling back to the
// process-wide default.
func RegistryFromContext(ctx context.Context) *ScopeRegistry {
	if ctx != nil {
		if registry, ok := ctx.Value(ctxKeyRegistry).(*ScopeRegistry); ok && registry != nil {
			return registry
		}
	}
	return DefaultRegistry()
}

// WithDismiss binds the dismiss capability for the element currently being
// reduced.
func WithDismiss(ctx context.Context, dismiss func()) context.Context {
	return context.WithValue(ctx, ctxKeyDismiss, dismiss)
}

// Dismiss invokes the dismiss capability bound for the current element,
// cancelling exactly that element's scope. It reports whether a capability
// was bound.
func Dismiss(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	dismiss, ok := ctx.Value(ctxKeyDismiss).(func())
	if !ok || dismiss == nil {
		return false
	}
	dismiss()
	return true
}
