package navstack

import (
	"fmt"
	"time"
)

// QueryContext carries the bindings available to one query evaluation: the
// element under inspection, its identifier, its position, and the total
// element count, plus caller-supplied arguments.
type QueryContext struct {
	Element any
	ID      ElementID
	Index   int
	Count   int
	Now     *time.Time
	Args    map[string]any
}

func (ctx QueryContext) withDefaultNow() QueryContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx QueryContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx QueryContext) withDefaultArgs() QueryContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	return ctx
}

func (ctx QueryContext) idBinding() map[string]any {
	return map[string]any{
		"generation": ctx.ID.Generation,
		"payload":    ctx.ID.Payload,
		"string":     ctx.ID.String(),
	}
}

// Evaluator executes query expressions against a query context.
type Evaluator interface {
	Evaluate(ctx QueryContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledQuery, error)
}

// CompiledQuery represents a reusable expression program.
type CompiledQuery interface {
	Evaluate(ctx QueryContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// ProgramCache stores compiled expression programs keyed by expression
// strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// InspectorOption configures an Inspector.
type InspectorOption func(*inspectorConfig)

type inspectorConfig struct {
	evaluator Evaluator
	logger    QueryLogger
}

// WithInspectorEvaluator selects the expression engine the inspector queries
// with. Defaults to the expr engine.
func WithInspectorEvaluator(evaluator Evaluator) InspectorOption {
	return func(cfg *inspectorConfig) {
		if evaluator != nil {
			cfg.evaluator = evaluator
		}
	}
}

// WithInspectorLogger attaches a query logger.
func WithInspectorLogger(logger QueryLogger) InspectorOption {
	return func(cfg *inspectorConfig) {
		cfg.logger = logger
	}
}

// Inspector evaluates expressions against every (identifier, element) pair of
// a stack, giving debugging and tooling a declarative window into navigation
// state. Expressions see the bindings element, id, index, count, now, and
// args.
type Inspector[T any] struct {
	evaluator Evaluator
	logger    QueryLogger
}

// NewInspector constructs an inspector.
func NewInspector[T any](opts ...InspectorOption) *Inspector[T] {
	cfg := inspectorConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.evaluator == nil {
		cfg.evaluator = NewExprEvaluator()
	}
	if cfg.logger == nil {
		cfg.logger = noopQueryLogger{}
	}
	return &Inspector[T]{evaluator: cfg.evaluator, logger: cfg.logger}
}

// Filter returns the ordered pairs whose elements satisfy the boolean
// expression.
func (ins *Inspector[T]) Filter(stack Stack[T], expression string, args map[string]any) ([]Pair[T], error) {
	compiled, err := ins.evaluator.Compile(expression)
	if err != nil {
		return nil, err
	}
	pairs := stack.Pairs()
	out := make([]Pair[T], 0, len(pairs))
	for index, pair := range pairs {
		result, err := ins.evaluate(compiled, expression, QueryContext{
			Element: pair.Element,
			ID:      pair.ID,
			Index:   index,
			Count:   len(pairs),
			Args:    args,
		})
		if err != nil {
			return nil, err
		}
		matched, ok := result.(bool)
		if !ok {
			return nil, fmt.Errorf("navstack: filter expression %q returned %T, want bool", expression, result)
		}
		if matched {
			out = append(out, pair)
		}
	}
	return out, nil
}

// Query evaluates the expression against every element and returns the
// results in stack order.
func (ins *Inspector[T]) Query(stack Stack[T], expression string, args map[string]any) ([]any, error) {
	compiled, err := ins.evaluator.Compile(expression)
	if err != nil {
		return nil, err
	}
	pairs := stack.Pairs()
	out := make([]any, 0, len(pairs))
	for index, pair := range pairs {
		result, err := ins.evaluate(compiled, expression, QueryContext{
			Element: pair.Element,
			ID:      pair.ID,
			Index:   index,
			Count:   len(pairs),
			Args:    args,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, result)
	}
	return out, nil
}

// Count returns how many elements satisfy the boolean expression.
func (ins *Inspector[T]) Count(stack Stack[T], expression string, args map[string]any) (int, error) {
	matched, err := ins.Filter(stack, expression, args)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

func (ins *Inspector[T]) evaluate(compiled CompiledQuery, expression string, ctx QueryContext) (any, error) {
	start := time.Now()
	result, err := compiled.Evaluate(ctx)
	ins.logger.LogQuery(QueryLogEvent{
		Expr:     expression,
		Index:    ctx.Index,
		Duration: time.Since(start),
		Err:      err,
	})
	return result, err
}
