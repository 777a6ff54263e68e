package authz

import (
	"context"
	"fmt"

	"github.com/looplj/lakegate/internal/layers"
)

// Principal represents the authorization identity of a request.
// Each request can only have one Principal, guaranteed by WithPrincipal's
// set-once semantics.
type Principal struct {
	Role layers.Role
	// Subject is an opaque caller identifier used only for audit logs.
	Subject string
}

// IsSystem checks if it is the system principal.
func (p Principal) IsSystem() bool {
	return p.Role == layers.RoleSystem
}

// IsPrivileged checks if the principal may see or store unmasked identifiers.
// Only the system and privileged-engineer roles are in the privileged set.
func (p Principal) IsPrivileged() bool {
	return p.Role == layers.RoleSystem || p.Role == layers.RolePrivilegedEngineer
}

// String returns string representation of Principal (for audit logs).
func (p Principal) String() string {
	if !layers.Known(p.Role) {
		return "unknown"
	}

	if p.Subject != "" {
		return fmt.Sprintf("%s:%s", p.Role, p.Subject)
	}

	return string(p.Role)
}

// principalKey is an unexported key type to prevent external forgery.
type principalKey struct{}

// WithPrincipal sets Principal, returns error if a different one already exists.
// Ensures each context can only set Principal once, preventing principal mixing.
func WithPrincipal(ctx context.Context, p Principal) (context.Context, error) {
	if existing, ok := GetPrincipal(ctx); ok {
		if existing != p {
			return ctx, fmt.Errorf("authz: principal conflict: existing=%s, new=%s", existing.String(), p.String())
		}

		return ctx, nil // Same principal, idempotent
	}

	return context.WithValue(ctx, principalKey{}, p), nil
}

// GetPrincipal reads Principal.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// MustGetPrincipal reads Principal, panics if not exists (used in chains where principal is confirmed).
func MustGetPrincipal(ctx context.Context) Principal {
	p, ok := GetPrincipal(ctx)
	if !ok {
		panic("authz: no principal in context")
	}

	return p
}

// NewRoleContext creates a context carrying a principal with the given role.
// The role must come from a trusted resolution step, never from the request.
func NewRoleContext(ctx context.Context, role layers.Role, subject string) context.Context {
	return context.WithValue(ctx, principalKey{}, Principal{Role: role, Subject: subject})
}

// RequirePrincipal checks if a principal exists, otherwise returns error.
func RequirePrincipal(ctx context.Context) error {
	_, ok := GetPrincipal(ctx)
	if !ok {
		return fmt.Errorf("%w: no principal in context", ErrAccessDenied)
	}

	return nil
}
