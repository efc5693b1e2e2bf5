package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stocktally/engine/internal/inventory"
)

// DefaultMaxFileSize is the maximum accepted spreadsheet size (20MB).
var DefaultMaxFileSize int64 = 20 * 1024 * 1024

// Service provides the core business logic for the inventory engine.
// It owns the file registry and the inventory store as one shared resource;
// the lock discipline documented on each method is the engine's entire
// concurrency contract.
type Service struct {
	persister   Persister
	limiter     *IngestLimiter
	maxFileSize int64

	// now is the clock; overridable in tests.
	now func() time.Time

	// mu guards records and trees. Held only for map access, never across
	// parsing, persistence I/O, or scans.
	mu      sync.RWMutex
	records map[string]inventory.FileRecord
	trees   map[string]*inventory.Company

	// fileMu guards locks, the per-path mutex table. Each path's mutex
	// serializes ingestion, mutation, and removal for that file.
	fileMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	MaxFileSize   int64
	MaxConcurrent int
	IngestMaxWait time.Duration
}

// NewService creates a Service backed by the given persister and loads all
// previously stored files into memory.
func NewService(ctx context.Context, p Persister, opts Options) (*Service, error) {
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	s := &Service{
		persister:   p,
		limiter:     NewIngestLimiter(opts.MaxConcurrent, opts.IngestMaxWait),
		maxFileSize: maxSize,
		now:         time.Now,
		records:     make(map[string]inventory.FileRecord),
		trees:       make(map[string]*inventory.Company),
		locks:       make(map[string]*sync.Mutex),
	}

	stored, err := p.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load persisted state: %w", err)
	}
	for _, f := range stored {
		s.records[f.Record.Path] = f.Record
		s.trees[f.Record.Path] = f.Tree
	}

	return s, nil
}

// fileLock returns the mutex serializing writes for one path, creating it on
// first use. Lock table entries are never removed; the set of distinct paths
// is small and bounded by ingestion.
func (s *Service) fileLock(path string) *sync.Mutex {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	l, ok := s.locks[path]
	if !ok {
		l = &sync.Mutex{}
		s.locks[path] = l
	}
	return l
}

// GetProcessedFiles returns all registered files, most recently used first.
// Ties break on path so the order is deterministic for a fixed state.
func (s *Service) GetProcessedFiles() []inventory.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked()
}

// listLocked returns records in MRU order. Caller holds mu.
func (s *Service) listLocked() []inventory.FileRecord {
	out := make([]inventory.FileRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastUsed.Equal(out[j].LastUsed) {
			return out[i].LastUsed.After(out[j].LastUsed)
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// GetCompanyData returns the company tree for a path and marks the file as
// used. The returned tree is a deep copy; callers may modify it freely.
func (s *Service) GetCompanyData(ctx context.Context, path string) (*inventory.Company, error) {
	s.mu.RLock()
	tree, ok := s.trees[path]
	s.mu.RUnlock()

	if !ok {
		return nil, &inventory.NotFoundError{Level: inventory.LevelFile, Key: path}
	}

	if err := s.touch(ctx, path); err != nil {
		return nil, err
	}

	return tree.Clone(), nil
}

// touch updates a file's last-used timestamp in memory and in storage.
func (s *Service) touch(ctx context.Context, path string) error {
	ts := s.now()

	s.mu.Lock()
	rec, ok := s.records[path]
	if !ok {
		s.mu.Unlock()
		return &inventory.NotFoundError{Level: inventory.LevelFile, Key: path}
	}
	rec.LastUsed = ts
	s.records[path] = rec
	s.mu.Unlock()

	if err := s.persister.Touch(ctx, path, ts); err != nil {
		return &inventory.StorageUnavailableError{Op: "touch", Err: err}
	}
	return nil
}

// remove deletes one file's record and tree as a unit. Caller must hold the
// file lock for path. Storage deletion happens first so a failure leaves the
// pair fully present.
func (s *Service) remove(ctx context.Context, path string) error {
	s.mu.RLock()
	_, ok := s.records[path]
	s.mu.RUnlock()
	if !ok {
		return &inventory.NotFoundError{Level: inventory.LevelFile, Key: path}
	}

	if err := s.persister.DeleteFile(ctx, path); err != nil {
		return &inventory.StorageUnavailableError{Op: "delete", Err: err}
	}

	s.mu.Lock()
	delete(s.records, path)
	delete(s.trees, path)
	s.mu.Unlock()

	return nil
}

// RemoveFile deletes a registered file and its tree.
func (s *Service) RemoveFile(ctx context.Context, path string) error {
	l := s.fileLock(path)
	l.Lock()
	defer l.Unlock()
	return s.remove(ctx, path)
}

// FileCount returns the number of registered files.
func (s *Service) FileCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// IngestLimiterStatus exposes the limiter state for monitoring.
func (s *Service) IngestLimiterStatus() IngestLimiterStatus {
	return s.limiter.Status()
}

// WaitForIngests blocks until in-flight ingestions complete or ctx expires.
// Used during graceful shutdown.
func (s *Service) WaitForIngests(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// scanSnapshot captures a consistent view for cross-file scans: records in
// MRU order plus the tree pointer each held at snapshot time. Trees are
// immutable, so the scan needs no further locking; a file removed after the
// snapshot simply no longer matters to this scan.
type scanSnapshot struct {
	records []inventory.FileRecord
	trees   []*inventory.Company
}

func (s *Service) snapshot() scanSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.listLocked()
	snap := scanSnapshot{
		records: recs,
		trees:   make([]*inventory.Company, len(recs)),
	}
	for i, rec := range recs {
		snap.trees[i] = s.trees[rec.Path]
	}
	return snap
}
