// Package storage contains the backend-agnostic contract for the upload audit
// log and a small factory that concrete backends register with.
//
// Only operational metadata about uploads is written (who uploaded what, how
// many rows survived cleaning, and whether it failed). Dataset rows are never
// persisted.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// KindNone disables the audit log.
const KindNone = "none"

// Repository is the minimal surface a backend must provide.
type Repository interface {
	// CopyFrom inserts rows aligned to columns and returns the number stored.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Exec runs a single statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind  string
	DSN   string
	Table string
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind. Backends call it from
// init.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens the backend named by cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// nopRepo accepts and discards everything.
type nopRepo struct{}

func (nopRepo) CopyFrom(_ context.Context, _ []string, rows [][]any) (int64, error) {
	return int64(len(rows)), nil
}
func (nopRepo) Exec(context.Context, string) error { return nil }
func (nopRepo) Close()                             {}

func init() {
	nop := func(context.Context, Config) (Repository, error) { return nopRepo{}, nil }
	Register(KindNone, nop)
	Register("", nop)
	RegisterDDL(KindNone, func(context.Context, Repository, string) error { return nil })
}
