package core

// workbook.go keeps the stored spreadsheet in step with the live tree. Each
// successful mutation regenerates the workbook from the post-mutation tree,
// so downloading a file's spreadsheet always reflects current quantities.

import (
	"context"
	"fmt"
	"strings"

	"github.com/stocktally/engine/internal/inventory"
	"github.com/xuri/excelize/v2"
)

// renderWorkbook serializes a company tree back into workbook bytes using the
// same layout the parser expects, so a rendered workbook re-ingests cleanly.
func renderWorkbook(c *inventory.Company) ([]byte, error) {
	wb := excelize.NewFile()
	defer wb.Close()

	sheet := wb.GetSheetName(0)

	header := append(append([]string(nil), expectedColumns...), "Alternates")
	for i, col := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := wb.SetCellValue(sheet, cell, col); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	row := 2
	for _, finish := range c.Finishes {
		for _, item := range finish.Items {
			values := []any{c.Name, finish.Name, item.ItemNo, item.Quantity, strings.Join(item.Alternates, ", ")}
			for i, v := range values {
				cell, err := excelize.CoordinatesToCellName(i+1, row)
				if err != nil {
					return nil, fmt.Errorf("data cell: %w", err)
				}
				if err := wb.SetCellValue(sheet, cell, v); err != nil {
					return nil, fmt.Errorf("write row %d: %w", row, err)
				}
			}
			row++
		}
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// GetWorkbook returns the current workbook bytes for a registered file.
func (s *Service) GetWorkbook(ctx context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	_, ok := s.records[path]
	s.mu.RUnlock()
	if !ok {
		return nil, &inventory.NotFoundError{Level: inventory.LevelFile, Key: path}
	}

	data, err := s.persister.LoadWorkbook(ctx, path)
	if err != nil {
		return nil, &inventory.StorageUnavailableError{Op: "workbook", Err: err}
	}
	if data == nil {
		return nil, &inventory.NotFoundError{Level: inventory.LevelFile, Key: path}
	}

	if err := s.touch(ctx, path); err != nil {
		return nil, err
	}
	return data, nil
}
