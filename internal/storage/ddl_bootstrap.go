package storage

import (
	"context"
	"fmt"
	"sync"
)

// DDLBootstrapper creates the audit table for one backend, typically with a
// CREATE TABLE IF NOT EXISTS applied through repo.Exec.
type DDLBootstrapper func(ctx context.Context, repo Repository, table string) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL registers (or replaces) a DDLBootstrapper for the given kind.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTable runs the bootstrapper registered for kind. An unregistered kind
// is an error.
func EnsureTable(ctx context.Context, kind string, repo Repository, table string) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for storage.kind=%q", kind)
	}
	return fn(ctx, repo, table)
}
