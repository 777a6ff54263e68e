package authz

import (
	"context"
	"fmt"
	"time"

	"github.com/looplj/lakegate/internal/log"
)

// bypassKey is an unexported key type to prevent external forgery.
type bypassKey struct{}

// bypassInfo stores bypass metadata.
type bypassInfo struct {
	Reason    string
	Timestamp time.Time
	Principal Principal
}

// WithBypassGovernance creates a local grant-bypass context.
// Only the system principal is allowed to call; masking still follows the
// principal's role, bypass never unmasks.
// reason must be a stable audit identifier (e.g., "weekly-aggregation", "quality-check").
func WithBypassGovernance(ctx context.Context, reason string) (context.Context, error) {
	p, ok := GetPrincipal(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: WithBypassGovernance requires a principal in context", ErrAccessDenied)
	}

	if !p.IsSystem() {
		return nil, fmt.Errorf("%w: WithBypassGovernance requires system principal, got %s", ErrAccessDenied, p.String())
	}

	info := bypassInfo{
		Reason:    reason,
		Timestamp: time.Now(),
		Principal: p,
	}

	recordBypassAudit(ctx, info)

	return context.WithValue(ctx, bypassKey{}, info), nil
}

// RunWithBypass executes a bypass operation within a closure, limiting bypass scope.
// Recommended over WithBypassGovernance to prevent the bypass context from
// spreading along the call chain.
//
// Example usage:
//
//	agg, err := authz.RunWithBypass(ctx, "weekly-aggregation", func(ctx context.Context) (store.AggregatedRecord, error) {
//	    return st.AggregateWeek(ctx, company, weekStart, themes, summaries)
//	})
func RunWithBypass[T any](ctx context.Context, reason string, fn func(ctx context.Context) (T, error)) (T, error) {
	bypassCtx, err := WithBypassGovernance(ctx, reason)
	if err != nil {
		var zero T
		return zero, err
	}

	return fn(bypassCtx)
}

// GetBypassInfo retrieves current bypass information.
// Used for audit and debugging.
func GetBypassInfo(ctx context.Context) (bypassInfo, bool) {
	info, ok := ctx.Value(bypassKey{}).(bypassInfo)
	return info, ok
}

// IsBypassActive checks if current context is in bypass state.
func IsBypassActive(ctx context.Context) bool {
	_, ok := ctx.Value(bypassKey{}).(bypassInfo)
	return ok
}

// bypassAuditRecord represents a bypass audit record.
type bypassAuditRecord struct {
	Timestamp   time.Time
	Principal   string
	Reason      string
	Operation   string
	Description string
}

// auditLogger is the bypass audit logger.
// Can be customized via SetAuditLogger.
var auditLogger func(ctx context.Context, record bypassAuditRecord)

// SetAuditLogger sets a custom audit logger.
// If not set, default structured log output is used.
func SetAuditLogger(fn func(ctx context.Context, record bypassAuditRecord)) {
	auditLogger = fn
}

// recordBypassAudit records bypass audit log.
func recordBypassAudit(ctx context.Context, info bypassInfo) {
	record := bypassAuditRecord{
		Timestamp:   info.Timestamp,
		Principal:   info.Principal.String(),
		Reason:      info.Reason,
		Operation:   "bypass",
		Description: fmt.Sprintf("Governance bypass triggered: reason=%s, principal=%s", info.Reason, info.Principal.String()),
	}

	if auditLogger != nil {
		auditLogger(ctx, record)
	} else {
		log.Debug(ctx, "authz: governance bypass",
			log.String("principal", record.Principal),
			log.String("reason", record.Reason),
			log.String("operation", record.Operation),
		)
	}
}
