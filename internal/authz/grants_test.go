package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looplj/lakegate/internal/layers"
)

func TestRequireGrant(t *testing.T) {
	t.Run("engineer may create raw", func(t *testing.T) {
		ctx := NewRoleContext(context.Background(), layers.RolePrivilegedEngineer, "eva")

		p, err := RequireGrant(ctx, layers.LayerRaw, layers.ActionCreate)
		require.NoError(t, err)
		assert.Equal(t, layers.RolePrivilegedEngineer, p.Role)
	})

	t.Run("analyst denied raw create", func(t *testing.T) {
		ctx := NewRoleContext(context.Background(), layers.RoleAnalyst, "amy")

		_, err := RequireGrant(ctx, layers.LayerRaw, layers.ActionCreate)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrAccessDenied))
	})

	t.Run("missing principal fails closed", func(t *testing.T) {
		_, err := RequireGrant(context.Background(), layers.LayerAggregated, layers.ActionRead)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrAccessDenied))
	})

	t.Run("unknown role fails closed", func(t *testing.T) {
		ctx := NewRoleContext(context.Background(), layers.Role("superuser"), "x")

		_, err := RequireGrant(ctx, layers.LayerAggregated, layers.ActionRead)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrAccessDenied))
	})

	t.Run("bypass grants everything for system jobs", func(t *testing.T) {
		ctx := WithSystemBypass(context.Background(), "test-bypass")

		_, err := RequireGrant(ctx, layers.LayerAggregated, layers.ActionWrite)
		require.NoError(t, err)
	})
}

func TestBypassRequiresSystemPrincipal(t *testing.T) {
	ctx := NewRoleContext(context.Background(), layers.RoleAnalyst, "amy")

	_, err := WithBypassGovernance(ctx, "sneaky")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAccessDenied))

	_, err = WithBypassGovernance(context.Background(), "no-principal")
	require.Error(t, err)
}

func TestRunWithBypass(t *testing.T) {
	got, err := RunWithSystemBypass(context.Background(), "test-run", func(ctx context.Context) (string, error) {
		assert.True(t, IsBypassActive(ctx))

		info, ok := GetBypassInfo(ctx)
		require.True(t, ok)
		assert.Equal(t, "test-run", info.Reason)

		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}
