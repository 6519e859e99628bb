// Package tenant implements the tenancy and isolation model (C1): it
// resolves a tenant id per request and propagates it as an explicit,
// mandatory parameter through every storage call. There is no ambient or
// global fallback — a component that needs a tenant id takes an ID value,
// never reads one from a package-level variable.
package tenant

import (
	"context"
	"regexp"

	domainerrors "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/errors"
)

// ID is a validated tenant identifier, shaped like an Airtable base id:
// "app" followed by 8-20 alphanumerics/underscores.
type ID string

var idPattern = regexp.MustCompile(`^app[A-Za-z0-9_]{8,20}$`)

// Valid reports whether id matches the tenant-id wire format.
func (id ID) Valid() bool {
	return idPattern.MatchString(string(id))
}

func (id ID) String() string { return string(id) }

// Resolve implements the header-then-body resolution priority: an explicit
// header value wins over a payload field; a missing or malformed result on
// either side fails with ErrTenantRequired.
func Resolve(header, body string) (ID, error) {
	candidate := header
	if candidate == "" {
		candidate = body
	}
	id := ID(candidate)
	if candidate == "" || !id.Valid() {
		return "", domainerrors.ErrTenantRequired
	}
	return id, nil
}

type contextKey struct{}

// WithID returns a child context carrying the resolved tenant id. Context
// is treated as immutable for the lifetime of one request: nothing later
// in the call chain may overwrite it.
func WithID(ctx context.Context, id ID) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext retrieves the tenant id stashed by WithID. ok is false if no
// tenant id was ever attached — callers in the core must treat that as a
// programming error, not a missing-tenant client error (that case is
// caught earlier, at Resolve).
func FromContext(ctx context.Context) (ID, bool) {
	id, ok := ctx.Value(contextKey{}).(ID)
	return id, ok
}

type superAdminKey struct{}

// WithSuperAdmin marks a context as operating with elevated, cross-tenant
// privilege for background/worker code paths that run outside any one
// request's tenant scope. The storage layer does not read this flag:
// postgres.RLSExec/RLSQuery always set the tenant id they are given, and the
// tenant-less RLSExecSuperAdmin/RLSQuerySuperAdmin are chosen by the caller.
func WithSuperAdmin(ctx context.Context, on bool) context.Context {
	return context.WithValue(ctx, superAdminKey{}, on)
}

// IsSuperAdmin reports whether ctx was marked via WithSuperAdmin.
func IsSuperAdmin(ctx context.Context) bool {
	on, _ := ctx.Value(superAdminKey{}).(bool)
	return on
}
