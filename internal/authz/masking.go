package authz

import (
	"github.com/samber/lo"
)

// AnonymousSentinel is the fixed value stored and returned in place of a
// personal identifier for non-privileged principals.
const AnonymousSentinel = "anonymous"

// Redact applies identifier masking for the given principal.
//
// The same rule serves both enforcement points:
//
//   - write path: the store redacts before persistence, so an identifier
//     written through a non-privileged principal is destroyed, not hidden;
//   - read path: the store redacts again on every read, regardless of what
//     is stored, so rows written by privileged actors (or before a policy
//     change) never leak to non-privileged readers.
//
// A nil identifier stays nil for every role: the sentinel replaces only a
// present identifier.
func Redact(p Principal, identifier *string) *string {
	if identifier == nil {
		return nil
	}

	if p.IsPrivileged() {
		return identifier
	}

	return lo.ToPtr(AnonymousSentinel)
}
