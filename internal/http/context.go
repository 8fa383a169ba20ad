package http

import (
	"context"

	"github.com/example/attendance-engine/internal/application"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	userUIDContextKey   contextKey = "user_uid"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithUserUID injects the badge uid resolved from the request path.
func ContextWithUserUID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, userUIDContextKey, uid)
}

// UserUIDFromContext extracts a badge uid previously associated with the context.
func UserUIDFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(userUIDContextKey).(string)
	return uid, ok
}
