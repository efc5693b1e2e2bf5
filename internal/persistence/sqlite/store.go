// Package sqlite persists the engine's state to a single SQLite database.
//
// Each ingested file occupies one row in the files table: registry metadata
// as columns, the company tree as a JSON payload, and the original workbook
// as a blob. Saving or deleting a row is one statement, which gives the
// record/tree pairing its required atomicity. Stock mutations append to a
// separate audit table.
//
// The driver is modernc.org/sqlite (pure Go), so the engine stays a single
// self-contained binary.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/stocktally/engine/internal/core"
	"github.com/stocktally/engine/internal/inventory"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Store implements core.Persister on SQLite.
type Store struct {
	db   *sql.DB
	path string
}

var _ core.Persister = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS files (
	path          TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	original_path TEXT NOT NULL,
	last_used     TEXT NOT NULL,
	tree          BLOB NOT NULL,
	workbook      BLOB
);
CREATE TABLE IF NOT EXISTS audit (
	id           TEXT PRIMARY KEY,
	time         TEXT NOT NULL,
	file_path    TEXT NOT NULL,
	finish       TEXT NOT NULL,
	item_no      TEXT NOT NULL,
	delta        INTEGER NOT NULL,
	new_quantity INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_time ON audit(time DESC);
`

// NewStore opens (creating if necessary) the database at path and ensures the
// schema exists.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "stocktally.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite supports one writer at a time; the engine already serializes
	// writes per file, and a single connection avoids SQLITE_BUSY entirely.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// LoadAll returns every stored file. Workbook bytes are not loaded here;
// they are fetched on demand via LoadWorkbook.
func (s *Store) LoadAll(ctx context.Context) ([]core.StoredFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, name, original_path, last_used, tree FROM files ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("select files: %w", err)
	}
	defer rows.Close()

	var out []core.StoredFile
	for rows.Next() {
		var (
			f        core.StoredFile
			lastUsed string
			treeJSON []byte
		)
		if err := rows.Scan(&f.Record.Path, &f.Record.Name, &f.Record.OriginalPath, &lastUsed, &treeJSON); err != nil {
			return nil, fmt.Errorf("scan file row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, lastUsed)
		if err != nil {
			return nil, fmt.Errorf("parse last_used for %s: %w", f.Record.Path, err)
		}
		f.Record.LastUsed = ts

		var tree inventory.Company
		if err := json.Unmarshal(treeJSON, &tree); err != nil {
			return nil, fmt.Errorf("decode tree for %s: %w", f.Record.Path, err)
		}
		f.Tree = &tree

		out = append(out, f)
	}
	return out, rows.Err()
}

// SaveFile upserts one file's record, tree, and workbook in a single
// statement.
func (s *Store) SaveFile(ctx context.Context, f core.StoredFile) error {
	treeJSON, err := json.Marshal(f.Tree)
	if err != nil {
		return fmt.Errorf("encode tree for %s: %w", f.Record.Path, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO files (path, name, original_path, last_used, tree, workbook)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name = excluded.name,
			original_path = excluded.original_path,
			last_used = excluded.last_used,
			tree = excluded.tree,
			workbook = excluded.workbook`,
		f.Record.Path, f.Record.Name, f.Record.OriginalPath,
		f.Record.LastUsed.UTC().Format(time.RFC3339Nano), treeJSON, f.Workbook)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", f.Record.Path, err)
	}
	return nil
}

// Touch updates only the last-used column.
func (s *Store) Touch(ctx context.Context, path string, t time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE files SET last_used = ? WHERE path = ?`,
		t.UTC().Format(time.RFC3339Nano), path)
	if err != nil {
		return fmt.Errorf("touch %s: %w", path, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("touch %s: no such file", path)
	}
	return nil
}

// DeleteFile removes one file row. Absent paths are a no-op.
func (s *Store) DeleteFile(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// LoadWorkbook returns the stored workbook bytes, or nil when absent.
func (s *Store) LoadWorkbook(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT workbook FROM files WHERE path = ?`, path).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load workbook %s: %w", path, err)
	}
	return data, nil
}

// AppendAudit records one applied stock mutation.
func (s *Store) AppendAudit(ctx context.Context, e inventory.AuditEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit (id, time, file_path, finish, item_no, delta, new_quantity)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Time.UTC().Format(time.RFC3339Nano), e.FilePath, e.Finish, e.ItemNo, e.Delta, e.NewQuantity)
	if err != nil {
		return fmt.Errorf("insert audit %s: %w", e.ID, err)
	}
	return nil
}

// RecentAudit returns up to limit entries, newest first.
func (s *Store) RecentAudit(ctx context.Context, limit int) ([]inventory.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, time, file_path, finish, item_no, delta, new_quantity
		FROM audit ORDER BY time DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select audit: %w", err)
	}
	defer rows.Close()

	var out []inventory.AuditEntry
	for rows.Next() {
		var (
			e  inventory.AuditEntry
			ts string
		)
		if err := rows.Scan(&e.ID, &ts, &e.FilePath, &e.Finish, &e.ItemNo, &e.Delta, &e.NewQuantity); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse audit time: %w", err)
		}
		e.Time = t
		out = append(out, e)
	}
	return out, rows.Err()
}
