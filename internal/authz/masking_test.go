package authz

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looplj/lakegate/internal/layers"
)

func TestRedact(t *testing.T) {
	t.Run("non-privileged roles get the sentinel", func(t *testing.T) {
		for _, role := range []layers.Role{layers.RoleAnalyst, layers.RoleMarketing, layers.RoleExternalViewer} {
			got := Redact(Principal{Role: role}, lo.ToPtr("alice"))
			require.NotNil(t, got)
			assert.Equal(t, AnonymousSentinel, *got, "role %s", role)
		}
	})

	t.Run("privileged roles pass through unchanged", func(t *testing.T) {
		for _, role := range []layers.Role{layers.RoleSystem, layers.RolePrivilegedEngineer} {
			got := Redact(Principal{Role: role}, lo.ToPtr("alice"))
			require.NotNil(t, got)
			assert.Equal(t, "alice", *got, "role %s", role)
		}
	})

	t.Run("nil identifier stays nil for every role", func(t *testing.T) {
		for _, role := range layers.Roles() {
			assert.Nil(t, Redact(Principal{Role: role}, nil), "role %s", role)
		}
	})

	t.Run("unknown role gets the sentinel", func(t *testing.T) {
		got := Redact(Principal{Role: layers.Role("intern")}, lo.ToPtr("alice"))
		require.NotNil(t, got)
		assert.Equal(t, AnonymousSentinel, *got)
	})

	t.Run("sentinel input stays sentinel", func(t *testing.T) {
		got := Redact(Principal{Role: layers.RoleAnalyst}, lo.ToPtr(AnonymousSentinel))
		require.NotNil(t, got)
		assert.Equal(t, AnonymousSentinel, *got)
	})
}
