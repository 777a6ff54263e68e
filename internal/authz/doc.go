// Package authz implements the lake's governance gate: a single-principal
// authorization model, per-layer grant checks, and identifier masking on
// both the write and the read path.
//
// Core concepts:
//
//   - Principal: a single authorization identity per request, carrying one
//     resolved role. Set via NewRoleContext, NewSystemContext, or
//     WithPrincipal. Never resolved from request-supplied data.
//
//   - Grant check: RequireGrant consults the layers grant table and fails
//     closed — a missing principal or an unknown role is a denial, never a
//     default grant.
//
//   - Masking: Redact replaces a present author identifier with the
//     anonymous sentinel for non-privileged principals. The store applies it
//     before persistence and again on every read, so masking holds even for
//     rows written under a privileged principal.
//
//   - Bypass: controlled grant bypass for internal jobs via RunWithBypass
//     (closure, preferred) or WithBypassGovernance. All bypasses are audited.
//
// Usage rules:
//
//  1. Background jobs must declare the system principal via NewSystemContext.
//  2. Prefer RunWithBypass closures to limit bypass scope.
//  3. When using WithBypassGovernance, assign to bypassCtx, never ctx.
//  4. All bypass reasons must be stable strings for audit aggregation.
package authz
