// Package layers enumerates the lake's storage tiers, the roles that access
// them, and the grant table binding roles to per-layer actions.
package layers

import "slices"

// Layer identifies a storage tier of the lake.
// Each layer has its own schema and its own access grants.
type Layer string

const (
	// LayerRaw holds ingested social-media posts exactly as collected.
	LayerRaw Layer = "raw"
	// LayerCleaned holds per-post derivations (sentiment, embedding, quality score).
	LayerCleaned Layer = "cleaned"
	// LayerAggregated holds weekly per-company rollups. Carries no personal fields.
	LayerAggregated Layer = "aggregated"
)

// Action is an operation class a role may hold on a layer.
type Action string

const (
	// ActionCreate insert new rows into the layer.
	ActionCreate Action = "create"
	// ActionRead read rows from the layer.
	ActionRead Action = "read"
	// ActionWrite update existing rows in the layer.
	ActionWrite Action = "write"
)

// Role is the resolved role of an authenticated principal.
// Role membership is static per session and resolved by the surrounding
// execution context, never taken from request data.
type Role string

const (
	// RoleSystem internal background jobs (ingestion, derivation, checks).
	RoleSystem Role = "system"
	// RolePrivilegedEngineer data engineers operating the upstream layers.
	RolePrivilegedEngineer Role = "privileged-engineer"
	// RoleAnalyst analysts reading cleaned and aggregated data.
	RoleAnalyst Role = "analyst"
	// RoleMarketing marketing users reading aggregated rollups.
	RoleMarketing Role = "marketing"
	// RoleExternalViewer external viewers reading aggregated rollups.
	RoleExternalViewer Role = "external-viewer"
)

// Grant binds a role to the actions it holds on one layer.
type Grant struct {
	Role    Role
	Layer   Layer
	Actions []Action
}

// grantConfigs is the full grant table. Roles and layers absent from this
// table hold nothing: access checks fail closed.
var grantConfigs = []Grant{
	{Role: RoleSystem, Layer: LayerRaw, Actions: []Action{ActionCreate, ActionRead, ActionWrite}},
	{Role: RoleSystem, Layer: LayerCleaned, Actions: []Action{ActionCreate, ActionRead, ActionWrite}},
	{Role: RoleSystem, Layer: LayerAggregated, Actions: []Action{ActionCreate, ActionRead, ActionWrite}},

	{Role: RolePrivilegedEngineer, Layer: LayerRaw, Actions: []Action{ActionCreate, ActionRead, ActionWrite}},
	{Role: RolePrivilegedEngineer, Layer: LayerCleaned, Actions: []Action{ActionCreate, ActionRead, ActionWrite}},
	{Role: RolePrivilegedEngineer, Layer: LayerAggregated, Actions: []Action{ActionRead}},

	{Role: RoleAnalyst, Layer: LayerCleaned, Actions: []Action{ActionRead}},
	{Role: RoleAnalyst, Layer: LayerAggregated, Actions: []Action{ActionRead}},

	{Role: RoleMarketing, Layer: LayerAggregated, Actions: []Action{ActionRead}},
	{Role: RoleExternalViewer, Layer: LayerAggregated, Actions: []Action{ActionRead}},
}

// Allowed reports whether role holds action on layer.
// Unknown roles, layers and actions are never granted.
func Allowed(role Role, layer Layer, action Action) bool {
	for _, g := range grantConfigs {
		if g.Role == role && g.Layer == layer {
			return slices.Contains(g.Actions, action)
		}
	}

	return false
}

// Roles returns all roles known to the grant table.
func Roles() []Role {
	return []Role{RoleSystem, RolePrivilegedEngineer, RoleAnalyst, RoleMarketing, RoleExternalViewer}
}

// ParseRole resolves a role string against the known roles.
// The empty string and unknown values return false.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	if slices.Contains(Roles(), r) {
		return r, true
	}

	return "", false
}

// Known reports whether role is part of the fixed role enumeration.
func Known(role Role) bool {
	return slices.Contains(Roles(), role)
}

// Layers returns all storage tiers, upstream first.
func Layers() []Layer {
	return []Layer{LayerRaw, LayerCleaned, LayerAggregated}
}
