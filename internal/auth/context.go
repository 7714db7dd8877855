package auth

import "context"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const userIDContextKey contextKey = "user_id"

// ContextWithUserID attaches the authenticated caller's user ID.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserIDFromContext returns the authenticated caller's user ID.
// Returns empty string if not authenticated.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDContextKey).(string)
	return id
}
