package server

import (
	"github.com/gin-gonic/gin"

	"github.com/looplj/lakegate/internal/authz"
	"github.com/looplj/lakegate/internal/layers"
	"github.com/looplj/lakegate/internal/log"
)

// PrincipalMiddleware resolves the caller's principal from the trusted role
// header and threads it through the request context.
//
// No principal is ever taken from request data directly: the header is only
// honored when the deployment declares the hop trusted, and an unknown role
// value resolves to no principal at all, so every downstream grant check
// fails closed.
func PrincipalMiddleware(cfg Auth) gin.HandlerFunc {
	roleHeader := cfg.RoleHeader
	if roleHeader == "" {
		roleHeader = DefaultRoleHeader
	}

	subjectHeader := cfg.SubjectHeader
	if subjectHeader == "" {
		subjectHeader = DefaultSubjectHeader
	}

	return func(c *gin.Context) {
		if !cfg.TrustRoleHeader {
			c.Next()
			return
		}

		role, ok := layers.ParseRole(c.GetHeader(roleHeader))
		if !ok {
			if v := c.GetHeader(roleHeader); v != "" {
				log.Warn(c.Request.Context(), "server: unknown role header value ignored",
					log.String("value", v),
				)
			}

			c.Next()

			return
		}

		ctx, err := authz.WithPrincipal(c.Request.Context(), authz.Principal{
			Role:    role,
			Subject: c.GetHeader(subjectHeader),
		})
		if err != nil {
			log.Warn(c.Request.Context(), "server: principal conflict", log.Cause(err))
			c.Next()

			return
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
