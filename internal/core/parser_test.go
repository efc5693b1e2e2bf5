package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stocktally/engine/internal/inventory"
	"github.com/xuri/excelize/v2"
)

func TestParseWorkbook(t *testing.T) {
	data := buildWorkbook(t, []workbookRow{
		{"Acme Laminates", "Brushed Steel", "S-100", 10, "S-200, S-300"},
		{"Acme Laminates", "Brushed Steel", "S-101", 4, ""},
		{"Acme Laminates", "High Gloss", "HG-1092", 6, ""},
		{"Acme Laminates", "Brushed Steel", "S-102", 0, ""},
	})

	company, err := parseWorkbook(context.Background(), "acme.xlsx", data)
	if err != nil {
		t.Fatalf("parseWorkbook: %v", err)
	}

	if company.Name != "Acme Laminates" {
		t.Errorf("company name = %q, want %q", company.Name, "Acme Laminates")
	}
	if len(company.Finishes) != 2 {
		t.Fatalf("finish count = %d, want 2", len(company.Finishes))
	}

	// Finishes keep first-appearance order; items keep row order.
	steel := company.Finishes[0]
	if steel.Name != "Brushed Steel" {
		t.Errorf("first finish = %q, want Brushed Steel", steel.Name)
	}
	if len(steel.Items) != 3 {
		t.Fatalf("Brushed Steel item count = %d, want 3", len(steel.Items))
	}
	if steel.Items[2].ItemNo != "S-102" || steel.Items[2].Quantity != 0 {
		t.Errorf("third item = %+v, want S-102 qty 0", steel.Items[2])
	}

	got := steel.Items[0].Alternates
	if len(got) != 2 || got[0] != "S-200" || got[1] != "S-300" {
		t.Errorf("alternates = %v, want [S-200 S-300]", got)
	}
	if steel.Items[1].Alternates != nil {
		t.Errorf("empty alternates cell should parse as nil, got %v", steel.Items[1].Alternates)
	}
}

func TestParseWorkbookRejections(t *testing.T) {
	tests := []struct {
		name    string
		rows    []workbookRow
		wantRow int
		reason  string
	}{
		{
			name: "non-numeric quantity",
			rows: []workbookRow{
				{"Acme", "Matte", "M-1", 5, ""},
				{"Acme", "Matte", "M-2", "a lot", ""},
			},
			wantRow: 3,
			reason:  "quantity",
		},
		{
			name: "negative quantity",
			rows: []workbookRow{
				{"Acme", "Matte", "M-1", -2, ""},
			},
			wantRow: 2,
			reason:  "quantity",
		},
		{
			name: "duplicate item number within finish",
			rows: []workbookRow{
				{"Acme", "Matte", "M-1", 5, ""},
				{"Acme", "Matte", "M-1", 7, ""},
			},
			wantRow: 3,
			reason:  "duplicate",
		},
		{
			name: "second company name",
			rows: []workbookRow{
				{"Acme", "Matte", "M-1", 5, ""},
				{"Other Co", "Matte", "M-2", 5, ""},
			},
			wantRow: 3,
			reason:  "company",
		},
		{
			name: "blank item number",
			rows: []workbookRow{
				{"Acme", "Matte", "", 5, ""},
			},
			wantRow: 2,
			reason:  "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildWorkbook(t, tt.rows)

			_, err := parseWorkbook(context.Background(), "bad.xlsx", data)

			var malformed *inventory.MalformedInputError
			if !errors.As(err, &malformed) {
				t.Fatalf("err = %v, want MalformedInputError", err)
			}
			if malformed.Row != tt.wantRow {
				t.Errorf("row = %d, want %d", malformed.Row, tt.wantRow)
			}
		})
	}
}

func TestParseWorkbookEmptyFile(t *testing.T) {
	t.Run("header only", func(t *testing.T) {
		data := buildWorkbook(t, nil)

		_, err := parseWorkbook(context.Background(), "empty.xlsx", data)

		var empty *inventory.EmptyFileError
		if !errors.As(err, &empty) {
			t.Fatalf("err = %v, want EmptyFileError", err)
		}
	})

	t.Run("no cells at all", func(t *testing.T) {
		wb := excelize.NewFile()
		defer wb.Close()
		buf, err := wb.WriteToBuffer()
		if err != nil {
			t.Fatal(err)
		}

		_, err = parseWorkbook(context.Background(), "blank.xlsx", buf.Bytes())

		var empty *inventory.EmptyFileError
		if !errors.As(err, &empty) {
			t.Fatalf("err = %v, want EmptyFileError", err)
		}
	})
}

func TestParseWorkbookMalformedBytes(t *testing.T) {
	_, err := parseWorkbook(context.Background(), "junk.xlsx", []byte("this is not a workbook"))

	var malformed *inventory.MalformedInputError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want MalformedInputError", err)
	}
}

func TestParseWorkbookMissingHeader(t *testing.T) {
	wb := excelize.NewFile()
	defer wb.Close()
	sheet := wb.GetSheetName(0)
	wb.SetCellValue(sheet, "A1", "some")
	wb.SetCellValue(sheet, "B1", "unrelated")
	wb.SetCellValue(sheet, "C1", "sheet")
	wb.SetCellValue(sheet, "D1", "data")
	buf, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	_, err = parseWorkbook(context.Background(), "noheader.xlsx", buf.Bytes())

	var malformed *inventory.MalformedInputError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want MalformedInputError", err)
	}
}

func TestParseWorkbookCancellation(t *testing.T) {
	data := buildWorkbook(t, []workbookRow{
		{"Acme", "Matte", "M-1", 5, ""},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := parseWorkbook(ctx, "acme.xlsx", data)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestDerivePath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Stock.xlsx", "stock"},
		{"spaces collapse", "Q3  Stock  List.xlsx", "q3_stock_list"},
		{"path stripped", "/tmp/uploads/Stock.xlsx", "stock"},
		{"case folded", "STOCK.XLSX", "stock"},
		{"no extension", "stocklist", "stocklist"},
		{"only extension", ".xlsx", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DerivePath(tt.in); got != tt.want {
				t.Errorf("DerivePath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
