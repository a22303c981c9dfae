package sqlite

import (
	"context"
	"strings"
	"testing"
	"time"

	"mediadash/internal/storage"
)

func newAuditRepo(tb testing.TB) storage.Repository {
	tb.Helper()
	ctx := context.Background()
	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: ":memory:"})
	if err != nil {
		tb.Fatalf("open sqlite :memory:: %v", err)
	}
	tb.Cleanup(repo.Close)
	if err := storage.EnsureTable(ctx, "sqlite", repo, storage.DefaultTable); err != nil {
		tb.Fatalf("ensure table: %v", err)
	}
	return repo
}

/*
TestCopyFrom_AuditRows verifies that upload rows round-trip through the audit
table created by the registered DDL bootstrapper.
*/
func TestCopyFrom_AuditRows(t *testing.T) {
	repo := newAuditRepo(t)
	ctx := context.Background()

	rows := [][]any{
		storage.Upload{At: time.Now(), SessionID: "s1", FileName: "a.csv", RowsRead: 10, RowsKept: 9, RowsDropped: 1, Outcome: storage.OutcomeAccepted}.Values(),
		storage.Upload{At: time.Now(), SessionID: "s1", FileName: "b.csv", Outcome: storage.OutcomeRejected, Error: "missing required column(s): Date"}.Values(),
	}
	n, err := repo.CopyFrom(ctx, storage.UploadColumns, rows)
	if err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	if n != 2 {
		t.Fatalf("inserted=%d want 2", n)
	}

	r := repo.(*wrappedRepo).Repository
	var kept int
	var errText string
	if err := r.db.QueryRowContext(ctx,
		`SELECT rows_kept FROM upload_audit WHERE file_name = 'a.csv'`).Scan(&kept); err != nil {
		t.Fatalf("select: %v", err)
	}
	if kept != 9 {
		t.Fatalf("rows_kept=%d want 9", kept)
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT error FROM upload_audit WHERE outcome = 'rejected'`).Scan(&errText); err != nil {
		t.Fatalf("select: %v", err)
	}
	if !strings.Contains(errText, "Date") {
		t.Fatalf("error=%q", errText)
	}
}

func TestCopyFrom_RowLengthMismatch(t *testing.T) {
	repo := newAuditRepo(t)
	_, err := repo.CopyFrom(context.Background(), storage.UploadColumns, [][]any{{"too", "short"}})
	if err == nil {
		t.Fatalf("expected error for short row")
	}
}

func TestNewRepository_Validation(t *testing.T) {
	if _, _, err := NewRepository(context.Background(), Config{Table: "t"}); err == nil {
		t.Fatalf("empty DSN: want error")
	}
	if _, _, err := NewRepository(context.Background(), Config{DSN: ":memory:"}); err == nil {
		t.Fatalf("empty table: want error")
	}
}

func TestCreateTableSQL_QuotesName(t *testing.T) {
	got := CreateTableSQL(`we"ird`)
	if !strings.Contains(got, `CREATE TABLE IF NOT EXISTS "we""ird"`) {
		t.Fatalf("ddl=%s", got)
	}
}
