package core

// query.go implements the cross-file scans: substring search and the
// low-stock report. Both take a snapshot of the registry + store under a
// short read lock, then fan out one goroutine per file and merge results in
// registry order, so output is deterministic for a fixed store state and no
// lock is held while scanning.

import (
	"context"
	"strings"

	"github.com/stocktally/engine/internal/inventory"
	"golang.org/x/sync/errgroup"
)

// SearchItemsAdvanced returns one hit per item whose own number or whose
// finish's name contains term, case-insensitively, across every registered
// file. An item matching on both counts yields a single hit. No hits is not
// an error.
func (s *Service) SearchItemsAdvanced(ctx context.Context, term string) ([]inventory.SearchHit, error) {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return nil, &inventory.InvalidArgumentError{Reason: "search term must not be blank"}
	}

	snap := s.snapshot()
	perFile := make([][]inventory.SearchHit, len(snap.records))

	g, ctx := errgroup.WithContext(ctx)
	for i := range snap.records {
		i := i
		rec, tree := snap.records[i], snap.trees[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			perFile[i] = searchTree(rec.Path, tree, needle)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	hits := []inventory.SearchHit{}
	for _, fh := range perFile {
		hits = append(hits, fh...)
	}
	return hits, nil
}

// searchTree collects hits for one file in finish order, then item order.
func searchTree(path string, tree *inventory.Company, needle string) []inventory.SearchHit {
	var hits []inventory.SearchHit
	for _, finish := range tree.Finishes {
		finishMatches := strings.Contains(strings.ToLower(finish.Name), needle)
		for _, item := range finish.Items {
			if finishMatches || strings.Contains(strings.ToLower(item.ItemNo), needle) {
				hits = append(hits, inventory.SearchHit{
					Company:  tree.Name,
					Finish:   finish.Name,
					ItemNo:   item.ItemNo,
					Quantity: item.Quantity,
					FilePath: path,
				})
			}
		}
	}
	return hits
}

// GetLowStockItems returns every item across every file with quantity
// strictly below threshold. An item exactly at the threshold is not low
// stock. Threshold must be positive.
func (s *Service) GetLowStockItems(ctx context.Context, threshold int) ([]inventory.LowStockHit, error) {
	if threshold <= 0 {
		return nil, &inventory.InvalidArgumentError{Reason: "threshold must be a positive integer"}
	}

	snap := s.snapshot()
	perFile := make([][]inventory.LowStockHit, len(snap.records))

	g, ctx := errgroup.WithContext(ctx)
	for i := range snap.records {
		i := i
		rec, tree := snap.records[i], snap.trees[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var hits []inventory.LowStockHit
			for _, finish := range tree.Finishes {
				for _, item := range finish.Items {
					if item.Quantity < threshold {
						hits = append(hits, inventory.LowStockHit{
							Company:  tree.Name,
							Finish:   finish.Name,
							ItemNo:   item.ItemNo,
							Quantity: item.Quantity,
							FilePath: rec.Path,
						})
					}
				}
			}
			perFile[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	hits := []inventory.LowStockHit{}
	for _, fh := range perFile {
		hits = append(hits, fh...)
	}
	return hits, nil
}
