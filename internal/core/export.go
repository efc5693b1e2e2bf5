package core

// export.go serializes the entire store to CSV. Output is RFC 4180: fields
// containing delimiters or quotes are quoted by encoding/csv, so the export
// round-trips through any generic CSV reader. Row order follows the same
// rule as the scans (registry order, then finish order, then item order) so
// exports are reproducible for a fixed store state.

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

// exportHeader is the mandatory first row of every export.
var exportHeader = []string{"Company", "Finish", "Item No", "Quantity", "Alternates"}

// ExportAllToCSV produces one CSV row per item across all registered files.
// Alternates are joined with "; " inside their field.
func (s *Service) ExportAllToCSV(ctx context.Context) (string, error) {
	snap := s.snapshot()

	var buf strings.Builder
	w := csv.NewWriter(&buf)

	if err := w.Write(exportHeader); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}

	for i, rec := range snap.records {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		tree := snap.trees[i]
		for _, finish := range tree.Finishes {
			for _, item := range finish.Items {
				row := []string{
					tree.Name,
					finish.Name,
					item.ItemNo,
					strconv.Itoa(item.Quantity),
					strings.Join(item.Alternates, "; "),
				}
				if err := w.Write(row); err != nil {
					return "", fmt.Errorf("write row for %s: %w", rec.Path, err)
				}
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return buf.String(), nil
}
