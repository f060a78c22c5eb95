package tenant

import (
	"context"
	"strings"
)

type contextKey string

const tenantContextKey contextKey = "tenant.id"

// With stores the tenant identifier inside the context.
func With(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, tenantContextKey, id)
}

// From extracts the tenant identifier from the context if available.
func From(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(tenantContextKey).(string)
	if !ok {
		return "", false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", false
	}
	return id, true
}

// PrefixKey creates a namespaced cache/rate-limit key per tenant identifier.
func PrefixKey(tenantID, key string) string {
	if tenantID == "" {
		return key
	}
	return tenantID + ":" + key
}
