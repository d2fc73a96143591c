// Package auth verifies bearer session tokens and carries the authenticated
// actor through the request context. Token issuance flows live elsewhere;
// Issuer exists for tooling and tests.
package auth

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/millrun/internal/observability/context"
)

// Actor is the authenticated caller of a request.
type Actor struct {
	ID        snowflake.ID
	Role      string
	SessionID string
}

type actorKey struct{}

const ginActorKey = "auth.actor"

func WithActor(ctx context.Context, actor Actor) context.Context {
	ctx = obscontext.WithActor(ctx, actor.ID.String(), actor.Role)
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

// ActorFromGin returns the actor set by Middleware.
func ActorFromGin(c *gin.Context) (Actor, bool) {
	if v, ok := c.Get(ginActorKey); ok {
		if actor, ok := v.(Actor); ok {
			return actor, true
		}
	}
	return ActorFromContext(c.Request.Context())
}
