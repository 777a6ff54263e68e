package authz

import (
	"context"
	"fmt"

	"github.com/looplj/lakegate/internal/layers"
)

// NewSystemContext creates context with the system principal (for background jobs).
func NewSystemContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, principalKey{}, Principal{Role: layers.RoleSystem})
}

// WithSystemBypass creates a system-principal context with governance bypass.
func WithSystemBypass(ctx context.Context, reason string) context.Context {
	bypassCtx, _ := WithBypassGovernance(NewSystemContext(ctx), reason)
	return bypassCtx
}

// RunWithSystemBypass runs fn under a system principal with governance bypass.
func RunWithSystemBypass[T any](ctx context.Context, reason string, fn func(ctx context.Context) (T, error)) (T, error) {
	return RunWithBypass(NewSystemContext(ctx), reason, fn)
}

// RequireSystemPrincipal checks if current principal is system, otherwise returns error.
// Used to protect sensitive background operations.
func RequireSystemPrincipal(ctx context.Context) error {
	p, ok := GetPrincipal(ctx)
	if !ok {
		return fmt.Errorf("%w: no principal in context", ErrAccessDenied)
	}

	if !p.IsSystem() {
		return fmt.Errorf("%w: operation requires system principal, got %s", ErrAccessDenied, p.String())
	}

	return nil
}
