package core

// ingest.go implements the ingestion path: spreadsheet bytes in, a registered
// FileRecord plus stored Company tree out. Ingestion is all-or-nothing: no
// registry entry is created if parsing fails, and nothing is stored if
// persistence fails.

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stocktally/engine/internal/inventory"
	"github.com/stocktally/engine/internal/logging"
)

// ProcessExcelFile parses and registers an uploaded spreadsheet. displayName
// is the upload's file name; the storage path is derived from it, so
// uploading the same name twice yields DuplicateFileError.
func (s *Service) ProcessExcelFile(ctx context.Context, data []byte, displayName string) (inventory.FileRecord, error) {
	var zero inventory.FileRecord

	if int64(len(data)) > s.maxFileSize {
		return zero, &inventory.InvalidArgumentError{
			Reason: fmt.Sprintf("file exceeds %dMB limit", s.maxFileSize/(1024*1024)),
		}
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return zero, err
	}
	defer s.limiter.Release()

	ingestID := uuid.New().String()
	logger := logging.WithFields(ctx, "ingest_id", ingestID, "file", displayName)
	start := time.Now()

	path := DerivePath(displayName)
	if path == "" {
		return zero, &inventory.InvalidArgumentError{Reason: "display name derives an empty storage key"}
	}

	// Reject duplicates before paying for the parse. Checked again under the
	// file lock below; this is only a fast path.
	s.mu.RLock()
	_, exists := s.records[path]
	s.mu.RUnlock()
	if exists {
		return zero, &inventory.DuplicateFileError{Path: path}
	}

	tree, err := parseWorkbook(ctx, displayName, data)
	if err != nil {
		logger.Warn("ingestion rejected", "error", err)
		return zero, err
	}

	rec := inventory.FileRecord{
		Name:         displayName,
		Path:         path,
		OriginalPath: displayName,
		LastUsed:     s.now(),
	}

	// Serialize against concurrent ingestion or removal of the same path.
	l := s.fileLock(path)
	l.Lock()
	defer l.Unlock()

	if ctx.Err() != nil {
		return zero, ctx.Err()
	}

	s.mu.RLock()
	_, exists = s.records[path]
	s.mu.RUnlock()
	if exists {
		return zero, &inventory.DuplicateFileError{Path: path}
	}

	if err := s.persister.SaveFile(ctx, StoredFile{Record: rec, Tree: tree, Workbook: data}); err != nil {
		return zero, &inventory.StorageUnavailableError{Op: "ingest", Err: err}
	}

	s.mu.Lock()
	s.records[path] = rec
	s.trees[path] = tree
	s.mu.Unlock()

	logger.Info("spreadsheet ingested",
		"path", path,
		"company", tree.Name,
		"finishes", len(tree.Finishes),
		"items", tree.ItemCount(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return rec, nil
}
