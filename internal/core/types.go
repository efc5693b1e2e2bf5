package core

import (
	"context"
	"time"

	"github.com/stocktally/engine/internal/inventory"
)

// StoredFile pairs a registry record with its company tree and the raw
// workbook bytes it was ingested from. It is the unit the Persister saves
// and loads.
type StoredFile struct {
	Record   inventory.FileRecord
	Tree     *inventory.Company
	Workbook []byte
}

// Persister is the engine's storage boundary. Implementations must make
// SaveFile and DeleteFile atomic per file: a crash mid-save never leaves a
// record without its tree or vice versa.
//
// Failures are returned as plain errors; the Service wraps them in
// inventory.StorageUnavailableError before they reach callers.
type Persister interface {
	// LoadAll returns every stored file. Called once at startup.
	LoadAll(ctx context.Context) ([]StoredFile, error)

	// SaveFile upserts a file's record, tree, and workbook bytes as one unit.
	SaveFile(ctx context.Context, f StoredFile) error

	// Touch updates only a file's last-used timestamp.
	Touch(ctx context.Context, path string, t time.Time) error

	// DeleteFile removes a file's record, tree, and workbook as one unit.
	// Deleting an absent path is not an error.
	DeleteFile(ctx context.Context, path string) error

	// LoadWorkbook returns the stored workbook bytes for a path, or nil when
	// the path has no stored workbook.
	LoadWorkbook(ctx context.Context, path string) ([]byte, error)

	// AppendAudit records one applied stock mutation.
	AppendAudit(ctx context.Context, e inventory.AuditEntry) error

	// RecentAudit returns up to limit audit entries, newest first.
	RecentAudit(ctx context.Context, limit int) ([]inventory.AuditEntry, error)
}

// CleanupResult reports one lifecycle sweep. Failures are per-record and do
// not abort the batch.
type CleanupResult struct {
	Removed int      `json:"removed"`
	Failed  []string `json:"failed,omitempty"`
}
