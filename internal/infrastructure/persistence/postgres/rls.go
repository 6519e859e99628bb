package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/tenant"
)

// RLSExec runs fn inside a transaction with the session-scoped Postgres
// variable app.tenant_id set to tenantID for the lifetime of the
// transaction. RLS policies on every tenant-scoped table read that
// variable via current_setting('app.tenant_id', true) to restrict visible
// rows, so every statement fn issues is implicitly scoped without an
// explicit WHERE tenant_id = $N in the caller's SQL.
//
// This is the Go/Postgres analogue of the base_id JWT claim the original
// Supabase client attached per request (see rls_context.py): there the
// claim rode in the JWT and Supabase's PostgREST layer read it; here it
// rides in a session variable set by SET LOCAL, which is scoped to the
// current transaction and cannot leak across pooled connections.
func RLSExec(ctx context.Context, db *sql.DB, tenantID tenant.ID, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := setTenantContext(ctx, tx, tenantID); err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

// RLSQuery is RLSExec's read-path counterpart: it runs fn inside a
// tenant-scoped transaction and returns fn's typed result. A read that
// errors or finds nothing still needs no special rollback behavior, so
// the transaction commits either way once fn returns.
func RLSQuery[T any](ctx context.Context, db *sql.DB, tenantID tenant.ID, fn func(tx *sql.Tx) (T, error)) (T, error) {
	var zero T

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := setTenantContext(ctx, tx, tenantID); err != nil {
		return zero, err
	}

	result, err := fn(tx)
	if err != nil {
		return zero, err
	}

	if err := tx.Commit(); err != nil {
		return zero, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

// RLSExecSuperAdmin and RLSQuerySuperAdmin run fn without setting
// app.tenant_id, for work not scoped to a single tenant. Nothing in this
// repository calls them: the periodic sweeps (sync pull, lifecycle aging,
// telemetry purge) fan out into one task per tenant and run under
// RLSExec/RLSQuery. RLS policies must grant the database role these run under bypass
// access explicitly; the session variable is simply left unset.
func RLSExecSuperAdmin(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func RLSQuerySuperAdmin[T any](ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) (T, error)) (T, error) {
	var zero T

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := fn(tx)
	if err != nil {
		return zero, err
	}
	if err := tx.Commit(); err != nil {
		return zero, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

func setTenantContext(ctx context.Context, tx *sql.Tx, tenantID tenant.ID) error {
	if !tenantID.Valid() {
		return fmt.Errorf("invalid tenant id for RLS context: %q", tenantID)
	}
	// set_config's third argument (is_local=true) scopes the setting to
	// this transaction only, the same guarantee SET LOCAL gives, but as a
	// parameterized call so the tenant id never touches string
	// interpolation.
	if _, err := tx.ExecContext(ctx, `SELECT set_config('app.tenant_id', $1, true)`, string(tenantID)); err != nil {
		return fmt.Errorf("failed to set RLS tenant context: %w", err)
	}
	return nil
}
