package log

import (
	"context"
	"sync"
)

// Hook contributes fields resolved from the context to every log entry.
type Hook interface {
	Apply(ctx context.Context, msg string) []Field
}

// HookFunc adapts a function to the Hook interface.
type HookFunc func(ctx context.Context, msg string) []Field

// Apply implements Hook.
func (f HookFunc) Apply(ctx context.Context, msg string) []Field {
	if ctx == nil {
		return nil
	}

	return f(ctx, msg)
}

var (
	hooksMu sync.RWMutex
	hooks   []Hook
)

// RegisterHook adds a hook consulted on every log call.
// Hooks must be registered during initialization, before concurrent logging starts.
func RegisterHook(h Hook) {
	hooksMu.Lock()
	defer hooksMu.Unlock()

	hooks = append(hooks, h)
}

func applyHooks(ctx context.Context, msg string) []Field {
	hooksMu.RLock()
	defer hooksMu.RUnlock()

	var fields []Field
	for _, h := range hooks {
		fields = append(fields, h.Apply(ctx, msg)...)
	}

	return fields
}
