package context

import (
	"context"
	"strings"
)

type ctxKey string

const (
	requestIDKey ctxKey = "obs.request_id"
	actorIDKey   ctxKey = "obs.actor_id"
	actorRoleKey ctxKey = "obs.actor_role"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, strings.TrimSpace(requestID))
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

func WithActor(ctx context.Context, actorID, role string) context.Context {
	ctx = context.WithValue(ctx, actorIDKey, strings.TrimSpace(actorID))
	return context.WithValue(ctx, actorRoleKey, strings.TrimSpace(role))
}

func ActorFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	id, _ := ctx.Value(actorIDKey).(string)
	role, _ := ctx.Value(actorRoleKey).(string)
	return id, role
}
