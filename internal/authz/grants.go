package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/looplj/lakegate/internal/layers"
	"github.com/looplj/lakegate/internal/log"
)

// ErrAccessDenied is returned whenever a grant cannot be positively
// established: missing principal, unknown role, or an action outside the
// principal's grants.
var ErrAccessDenied = errors.New("access denied")

// HasGrant reports whether the context's principal holds action on layer.
// An active bypass grants everything; otherwise the decision comes from the
// grant table and fails closed.
func HasGrant(ctx context.Context, layer layers.Layer, action layers.Action) bool {
	if IsBypassActive(ctx) {
		return true
	}

	p, ok := GetPrincipal(ctx)
	if !ok {
		return false
	}

	return layers.Allowed(p.Role, layer, action)
}

// RequireGrant checks the grant and returns the principal that holds it.
// Every store operation calls this before touching the layer.
func RequireGrant(ctx context.Context, layer layers.Layer, action layers.Action) (Principal, error) {
	p, ok := GetPrincipal(ctx)

	has := HasGrant(ctx, layer, action)

	log.Debug(ctx, "authz: grant decision",
		log.String("principal", p.String()),
		log.String("layer", string(layer)),
		log.String("action", string(action)),
		log.String("decision", lo.Ternary(has, "allow", "deny")),
	)

	if !has {
		if !ok {
			return Principal{}, fmt.Errorf("%w: no principal in context", ErrAccessDenied)
		}

		return Principal{}, fmt.Errorf("%w: principal %s does not hold %s on %s layer",
			ErrAccessDenied, p.String(), action, layer)
	}

	return p, nil
}
