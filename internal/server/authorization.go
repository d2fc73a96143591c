package server

import (
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/millrun/internal/auth"
	"github.com/smallbiznis/millrun/internal/errs"
)

// authorize guards a route with the resource grant table.
func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := auth.ActorFromGin(c)
		if !ok {
			AbortWithError(c, errs.Unauthorized("authentication required"))
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), actor.Role, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func mustActor(c *gin.Context) (auth.Actor, bool) {
	actor, ok := auth.ActorFromGin(c)
	if !ok {
		AbortWithError(c, errs.Unauthorized("authentication required"))
	}
	return actor, ok
}
