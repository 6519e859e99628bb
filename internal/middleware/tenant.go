// Package middleware holds cross-cutting HTTP middleware.
package middleware

import (
	"context"
	"net/http"
)

type tenantHeaderKey struct{}

// TenantHeader is the header carrying an explicit tenant id, which takes
// priority over any tenant id found in a request body (the header-then-
// body resolution order from tenant.Resolve).
const TenantHeader = "X-Tenant-Id"

// TenantContext stashes the request's X-Tenant-Id header value (possibly
// empty) on the request context so handlers can pass it to tenant.Resolve
// alongside whatever tenant id their decoded body carries.
func TenantContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), tenantHeaderKey{}, r.Header.Get(TenantHeader))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TenantHeaderFromContext retrieves the header candidate stashed by
// TenantContext.
func TenantHeaderFromContext(ctx context.Context) string {
	v, _ := ctx.Value(tenantHeaderKey{}).(string)
	return v
}
