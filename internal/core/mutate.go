package core

// mutate.go implements validated stock mutations. A mutation never edits the
// stored tree in place: it clones the tree, applies the delta to the clone,
// persists, then swaps the pointer. Readers holding the old pointer keep a
// consistent pre-mutation snapshot, and a failure at any step leaves the
// store exactly as it was.

import (
	"context"

	"github.com/google/uuid"
	"github.com/stocktally/engine/internal/inventory"
	"github.com/stocktally/engine/internal/logging"
)

// UpdateStock applies a signed quantity delta to one item and returns the new
// quantity. Mutations against the same path are serialized by the per-path
// lock; different paths proceed concurrently.
//
// NotFoundError names the missing level (file, finish, or item) so callers
// can tell a stale file path from a stale item selection.
// InvalidQuantityError is returned when the delta would drive the quantity
// below zero; the store is left unchanged.
func (s *Service) UpdateStock(ctx context.Context, path, finishName, itemNo string, delta int) (int, error) {
	l := s.fileLock(path)
	l.Lock()
	defer l.Unlock()

	s.mu.RLock()
	rec, ok := s.records[path]
	tree := s.trees[path]
	s.mu.RUnlock()

	if !ok {
		return 0, &inventory.NotFoundError{Level: inventory.LevelFile, Key: path}
	}

	clone := tree.Clone()
	finish := clone.Finish(finishName)
	if finish == nil {
		return 0, &inventory.NotFoundError{Level: inventory.LevelFinish, Key: finishName}
	}
	item := finish.Item(itemNo)
	if item == nil {
		return 0, &inventory.NotFoundError{Level: inventory.LevelItem, Key: itemNo}
	}

	newQty := item.Quantity + delta
	if newQty < 0 {
		return 0, &inventory.InvalidQuantityError{ItemNo: itemNo, Current: item.Quantity, Delta: delta}
	}
	item.Quantity = newQty

	ts := s.now()
	rec.LastUsed = ts

	// Persist before the in-memory swap; a storage failure must leave the
	// live tree untouched.
	workbook, err := renderWorkbook(clone)
	if err != nil {
		return 0, &inventory.StorageUnavailableError{Op: "mutate", Err: err}
	}
	if err := s.persister.SaveFile(ctx, StoredFile{Record: rec, Tree: clone, Workbook: workbook}); err != nil {
		return 0, &inventory.StorageUnavailableError{Op: "mutate", Err: err}
	}

	s.mu.Lock()
	s.records[path] = rec
	s.trees[path] = clone
	s.mu.Unlock()

	entry := inventory.AuditEntry{
		ID:          uuid.New().String(),
		Time:        ts,
		FilePath:    path,
		Finish:      finishName,
		ItemNo:      itemNo,
		Delta:       delta,
		NewQuantity: newQty,
	}
	// The mutation is already durable; a failed audit append is logged and
	// does not fail the call.
	if err := s.persister.AppendAudit(ctx, entry); err != nil {
		logging.FromContext(ctx).Warn("audit append failed",
			"path", path, "item", itemNo, "error", err)
	}

	logging.FromContext(ctx).Info("stock updated",
		"path", path,
		"finish", finishName,
		"item", itemNo,
		"delta", delta,
		"quantity", newQty,
	)

	return newQty, nil
}

// RecentActivity returns up to limit audit entries, newest first.
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]inventory.AuditEntry, error) {
	if limit <= 0 {
		return nil, &inventory.InvalidArgumentError{Reason: "limit must be positive"}
	}
	entries, err := s.persister.RecentAudit(ctx, limit)
	if err != nil {
		return nil, &inventory.StorageUnavailableError{Op: "audit", Err: err}
	}
	return entries, nil
}
