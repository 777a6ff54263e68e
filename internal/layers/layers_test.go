package layers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		name   string
		role   Role
		layer  Layer
		action Action
		want   bool
	}{
		{"engineer creates raw", RolePrivilegedEngineer, LayerRaw, ActionCreate, true},
		{"engineer writes cleaned", RolePrivilegedEngineer, LayerCleaned, ActionWrite, true},
		{"engineer reads aggregated", RolePrivilegedEngineer, LayerAggregated, ActionRead, true},
		{"engineer cannot write aggregated", RolePrivilegedEngineer, LayerAggregated, ActionWrite, false},
		{"analyst cannot read raw", RoleAnalyst, LayerRaw, ActionRead, false},
		{"analyst cannot create raw", RoleAnalyst, LayerRaw, ActionCreate, false},
		{"analyst reads cleaned", RoleAnalyst, LayerCleaned, ActionRead, true},
		{"analyst cannot write cleaned", RoleAnalyst, LayerCleaned, ActionWrite, false},
		{"analyst reads aggregated", RoleAnalyst, LayerAggregated, ActionRead, true},
		{"marketing reads aggregated only", RoleMarketing, LayerAggregated, ActionRead, true},
		{"marketing cannot read cleaned", RoleMarketing, LayerCleaned, ActionRead, false},
		{"viewer reads aggregated only", RoleExternalViewer, LayerAggregated, ActionRead, true},
		{"viewer cannot read raw", RoleExternalViewer, LayerRaw, ActionRead, false},
		{"system holds everything", RoleSystem, LayerAggregated, ActionWrite, true},
		{"unknown role denied", Role("intern"), LayerAggregated, ActionRead, false},
		{"unknown layer denied", RoleSystem, Layer("platinum"), ActionRead, false},
		{"unknown action denied", RoleSystem, LayerRaw, Action("drop"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allowed(tt.role, tt.layer, tt.action))
		})
	}
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("analyst")
	assert.True(t, ok)
	assert.Equal(t, RoleAnalyst, r)

	_, ok = ParseRole("")
	assert.False(t, ok)

	_, ok = ParseRole("root")
	assert.False(t, ok)
}
