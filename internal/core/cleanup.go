package core

// cleanup.go implements the lifecycle manager: eviction of files whose
// last-used timestamp has aged past the retention window, plus the background
// scheduler that runs the sweep periodically.
//
// Each stale file is removed as one atomic unit (registry record + tree +
// workbook together). Failure to remove one file is reported in the result
// and does not abort the rest of the batch.

import (
	"context"
	"log/slog"
	"time"

	"github.com/stocktally/engine/internal/inventory"
)

// CleanupOldFiles removes every file whose last-used timestamp is older than
// now minus maxAge, together with its tree. maxAge must be positive.
func (s *Service) CleanupOldFiles(ctx context.Context, maxAge time.Duration) (CleanupResult, error) {
	if maxAge <= 0 {
		return CleanupResult{}, &inventory.InvalidArgumentError{Reason: "maxAge must be positive"}
	}

	cutoff := s.now().Add(-maxAge)

	s.mu.RLock()
	var stale []string
	for path, rec := range s.records {
		if rec.LastUsed.Before(cutoff) {
			stale = append(stale, path)
		}
	}
	s.mu.RUnlock()

	var result CleanupResult
	for _, path := range stale {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		l := s.fileLock(path)
		l.Lock()
		// Re-check under the lock: a mutation may have refreshed last_used
		// since the scan, and a concurrent sweep may have removed the file.
		s.mu.RLock()
		rec, ok := s.records[path]
		s.mu.RUnlock()
		if !ok || !rec.LastUsed.Before(cutoff) {
			l.Unlock()
			continue
		}

		err := s.remove(ctx, path)
		l.Unlock()

		if err != nil {
			slog.Warn("cleanup: removal failed", "path", path, "error", err)
			result.Failed = append(result.Failed, path)
			continue
		}
		result.Removed++
	}

	return result, nil
}

// CleanupConfig holds configuration for the cleanup scheduler.
type CleanupConfig struct {
	MaxAge        time.Duration // retention window for registered files
	CheckInterval time.Duration // how often to sweep
}

// StartCleanupScheduler starts a background goroutine that periodically
// evicts stale files. It runs immediately on start, then every
// CheckInterval, and stops when the context is cancelled.
func (s *Service) StartCleanupScheduler(ctx context.Context, cfg CleanupConfig) {
	slog.Info("cleanup scheduler started",
		"max_age", cfg.MaxAge.String(),
		"check_interval", cfg.CheckInterval.String(),
	)

	s.runCleanupJob(ctx, cfg.MaxAge)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup scheduler stopped")
			return
		case <-ticker.C:
			s.runCleanupJob(ctx, cfg.MaxAge)
		}
	}
}

// runCleanupJob performs one sweep and logs the outcome.
func (s *Service) runCleanupJob(ctx context.Context, maxAge time.Duration) {
	start := time.Now()
	result, err := s.CleanupOldFiles(ctx, maxAge)
	if err != nil {
		slog.Error("cleanup job failed", "error", err)
		return
	}
	slog.Info("cleanup job completed",
		"removed", result.Removed,
		"failed", len(result.Failed),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
