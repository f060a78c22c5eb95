package common

import "context"

type ctxKey string

const (
	userIDKey ctxKey = "auth/user-id"
	roleKey   ctxKey = "auth/role"
)

// Roles observed across the storefront. Only RoleAdmin carries elevated
// rights in this core; the remaining roles exist for the HTTP layer.
const (
	RoleAdmin   = "admin"
	RoleEditor  = "editor"
	RoleManager = "manager"
	RoleVendor  = "vendor"
	RoleUser    = "user"
)

// WithUser stores the authenticated user identifier and role on the context.
func WithUser(ctx context.Context, id, role string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, id)
	return context.WithValue(ctx, roleKey, role)
}

// UserID extracts the authenticated user identifier from the context if present.
func UserID(ctx context.Context) (string, bool) {
	v := ctx.Value(userIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// Role extracts the authenticated role from the context, defaulting to RoleUser.
func Role(ctx context.Context) string {
	if v, ok := ctx.Value(roleKey).(string); ok && v != "" {
		return v
	}
	return RoleUser
}
