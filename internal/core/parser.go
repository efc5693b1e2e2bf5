package core

// parser.go converts an uploaded spreadsheet byte stream into a Company tree.
//
// Expected workbook layout (first sheet):
//
//	Company | Finish | Item No | Quantity [| Alternates]
//
// A header row is required and may be preceded by banner rows. Every data row
// yields one item; rows with the same finish name group into one Finish in
// first-appearance order. The alternates cell, when present, holds a
// comma-delimited list of substitute item numbers.
//
// Parsing is all-or-nothing: a row with an empty or non-numeric quantity, a
// duplicate item number within its finish, or a second company name fails the
// whole ingestion with MalformedInputError naming the row.

import (
	"bytes"
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/stocktally/engine/internal/inventory"
	"github.com/xuri/excelize/v2"
)

// MaxHeaderSearchRows is the maximum number of leading rows scanned for the
// header before the workbook is rejected.
var MaxHeaderSearchRows = 20

// ContextCheckInterval is how many rows are parsed between cancellation
// checks.
var ContextCheckInterval = 100

var expectedColumns = []string{"Company", "Finish", "Item No", "Quantity"}

// parseWorkbook parses spreadsheet bytes into a Company tree. name is the
// display name, used only for error attribution.
func parseWorkbook(ctx context.Context, name string, data []byte) (*inventory.Company, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &inventory.MalformedInputError{Name: name, Reason: "not a readable workbook: " + err.Error()}
	}
	defer wb.Close()

	rows, err := wb.GetRows(wb.GetSheetName(0))
	if err != nil {
		return nil, &inventory.MalformedInputError{Name: name, Reason: "read rows: " + err.Error()}
	}

	headerIdx := findHeaderRow(rows)
	if headerIdx < 0 {
		if len(rows) == 0 || allRowsEmpty(rows) {
			return nil, &inventory.EmptyFileError{Name: name}
		}
		return nil, &inventory.MalformedInputError{Name: name, Reason: "header row not found (expected Company, Finish, Item No, Quantity)"}
	}

	company := &inventory.Company{}
	// finishIdx tracks finish position by name; seen tracks item numbers per
	// finish for duplicate rejection.
	finishIdx := make(map[string]int)
	seen := make(map[string]map[string]bool)

	for i, row := range rows[headerIdx+1:] {
		rowNum := headerIdx + i + 2 // 1-based workbook row

		if i%ContextCheckInterval == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isEmptyRow(row) {
			continue
		}
		if len(row) < len(expectedColumns) {
			return nil, &inventory.MalformedInputError{Name: name, Row: rowNum, Reason: "insufficient columns"}
		}

		companyName := cleanCell(row[0])
		finishName := cleanCell(row[1])
		itemNo := cleanCell(row[2])
		qtyRaw := cleanCell(row[3])

		if companyName == "" || finishName == "" || itemNo == "" {
			return nil, &inventory.MalformedInputError{Name: name, Row: rowNum, Reason: "empty company, finish, or item number"}
		}

		switch company.Name {
		case "":
			company.Name = companyName
		case companyName:
		default:
			return nil, &inventory.MalformedInputError{Name: name, Row: rowNum,
				Reason: "second company name " + strconv.Quote(companyName) + " (one company per file)"}
		}

		qty, err := strconv.Atoi(qtyRaw)
		if err != nil || qty < 0 {
			return nil, &inventory.MalformedInputError{Name: name, Row: rowNum, Reason: "invalid quantity " + strconv.Quote(qtyRaw)}
		}

		var alternates []string
		if len(row) > 4 {
			alternates = parseAlternates(row[4])
		}

		fi, ok := finishIdx[finishName]
		if !ok {
			company.Finishes = append(company.Finishes, inventory.Finish{Name: finishName})
			fi = len(company.Finishes) - 1
			finishIdx[finishName] = fi
			seen[finishName] = make(map[string]bool)
		}
		if seen[finishName][itemNo] {
			return nil, &inventory.MalformedInputError{Name: name, Row: rowNum,
				Reason: "duplicate item number " + strconv.Quote(itemNo) + " within finish " + strconv.Quote(finishName)}
		}
		seen[finishName][itemNo] = true

		company.Finishes[fi].Items = append(company.Finishes[fi].Items, inventory.Item{
			ItemNo:     itemNo,
			Quantity:   qty,
			Alternates: alternates,
		})
	}

	if company.ItemCount() == 0 {
		return nil, &inventory.EmptyFileError{Name: name}
	}

	return company, nil
}

// DerivePath computes the engine-wide identity key for a display name: the
// base name with its extension stripped, lowercased, with whitespace runs
// collapsed to single underscores. The same display name always derives the
// same path, which is what makes re-uploads collide.
func DerivePath(displayName string) string {
	base := filepath.Base(displayName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ToLower(strings.TrimSpace(base))
	return strings.Join(strings.Fields(base), "_")
}

// findHeaderRow scans leading rows for the expected header. Returns -1 when
// absent.
func findHeaderRow(rows [][]string) int {
	maxRows := MaxHeaderSearchRows
	if len(rows) < maxRows {
		maxRows = len(rows)
	}
	for i := 0; i < maxRows; i++ {
		if matchesHeader(rows[i]) {
			return i
		}
	}
	return -1
}

func matchesHeader(row []string) bool {
	if len(row) < len(expectedColumns) {
		return false
	}
	for i, want := range expectedColumns {
		if !strings.EqualFold(cleanCell(row[i]), want) {
			return false
		}
	}
	return true
}

// parseAlternates splits a comma-delimited alternates cell, dropping blanks.
func parseAlternates(cell string) []string {
	var out []string
	for _, part := range strings.Split(cell, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// cleanCell trims whitespace and a UTF-8 BOM from a cell value.
func cleanCell(v string) string {
	return strings.TrimSpace(strings.TrimPrefix(v, "\uFEFF"))
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func allRowsEmpty(rows [][]string) bool {
	for _, row := range rows {
		if !isEmptyRow(row) {
			return false
		}
	}
	return true
}
