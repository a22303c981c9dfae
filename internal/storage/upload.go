package storage

import "time"

// DefaultTable is the audit table used when none is configured.
const DefaultTable = "upload_audit"

// Outcomes of an upload attempt.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)

// Upload is one audit row.
type Upload struct {
	At          time.Time
	SessionID   string
	FileName    string
	Fingerprint string
	SizeBytes   int64

	RowsRead             int
	RowsKept             int
	RowsDropped          int
	EngagementsDefaulted int

	Outcome string
	Error   string
}

// UploadColumns is the column order of Values.
var UploadColumns = []string{
	"uploaded_at",
	"session_id",
	"file_name",
	"fingerprint",
	"size_bytes",
	"rows_read",
	"rows_kept",
	"rows_dropped",
	"engagements_defaulted",
	"outcome",
	"error",
}

// Values returns u aligned to UploadColumns.
func (u Upload) Values() []any {
	return []any{
		u.At.UTC(),
		u.SessionID,
		u.FileName,
		u.Fingerprint,
		u.SizeBytes,
		int64(u.RowsRead),
		int64(u.RowsKept),
		int64(u.RowsDropped),
		int64(u.EngagementsDefaulted),
		u.Outcome,
		u.Error,
	}
}
