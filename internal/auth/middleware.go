package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/millrun/internal/errs"
)

const bearerPrefix = "Bearer "

// Middleware rejects requests without a valid bearer token and stores the
// actor on both the gin and the request context.
func Middleware(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			_ = c.Error(errs.Unauthorized("missing bearer token"))
			c.Abort()
			return
		}

		actor, err := v.Verify(strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)))
		if err != nil {
			_ = c.Error(errs.Wrap(errs.KindUnauthorized, err, "invalid or expired token"))
			c.Abort()
			return
		}

		c.Set(ginActorKey, actor)
		c.Request = c.Request.WithContext(WithActor(c.Request.Context(), actor))
		c.Next()
	}
}
