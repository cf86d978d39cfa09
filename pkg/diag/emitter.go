package diag

import (
	"context"
	"strings"
)

// Config controls diagnostic emission defaults supplied by configuration.
type Config struct {
	Enabled   bool
	Component string
}

// Emitter fans out events to hooks while applying defaults.
type Emitter struct {
	hooks     Hooks
	enabled   bool
	component string
}

// NewEmitter constructs an emitter from hooks and configuration.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	component := strings.TrimSpace(cfg.Component)
	if component == "" {
		component = "navstack"
	}
	normalizedHooks := cloneHooks(hooks)
	return &Emitter{
		hooks:     normalizedHooks,
		enabled:   cfg.Enabled && len(normalizedHooks) > 0,
		component: component,
	}
}

// Enabled reports whether emissions should be attempted.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled && len(e.hooks) > 0
}

// Emit forwards the event to all hooks, applying the default component when
// missing.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Component) == "" && e.component != "" {
		event.Component = e.component
	}
	return e.hooks.Notify(ctx, event)
}

func cloneHooks(hooks Hooks) Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]Hook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	return Hooks(normalized)
}
