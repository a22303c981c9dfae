package postgres

import (
	"context"
	"fmt"

	"mediadash/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

// wrappedRepo implements storage.Repository by delegating to *Repository
// while providing a Close method that calls the close function returned by
// NewRepository.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

var _ storage.Repository = (*wrappedRepo)(nil)

func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		table := cfg.Table
		if table == "" {
			table = storage.DefaultTable
		}
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, Table: table})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})

	storage.RegisterDDL("postgres", func(ctx context.Context, repo storage.Repository, table string) error {
		if err := repo.Exec(ctx, CreateTableSQL(table)); err != nil {
			return fmt.Errorf("apply DDL: %w", err)
		}
		return nil
	})
}
