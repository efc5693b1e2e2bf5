package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stocktally/engine/internal/inventory"
)

func TestProcessExcelFile(t *testing.T) {
	s, p := newTestService(t)

	rec := ingestFixture(t, s, "Acme Stock.xlsx")

	if rec.Path != "acme_stock" {
		t.Errorf("derived path = %q, want acme_stock", rec.Path)
	}
	if rec.Name != "Acme Stock.xlsx" {
		t.Errorf("name = %q, want display name", rec.Name)
	}
	if s.FileCount() != 1 {
		t.Errorf("file count = %d, want 1", s.FileCount())
	}

	// Record and tree land in storage as one unit.
	stored, err := p.LoadAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 {
		t.Fatalf("stored files = %d, want 1", len(stored))
	}
	if stored[0].Tree == nil || stored[0].Tree.Name != "Acme Laminates" {
		t.Errorf("stored tree = %+v, want Acme Laminates", stored[0].Tree)
	}
	if len(stored[0].Workbook) == 0 {
		t.Error("workbook bytes were not stored")
	}
}

func TestProcessExcelFileDuplicate(t *testing.T) {
	s, _ := newTestService(t)
	ingestFixture(t, s, "Acme Stock.xlsx")

	before, err := s.GetCompanyData(context.Background(), "acme_stock")
	if err != nil {
		t.Fatal(err)
	}

	// Same display name, different extension case: same derived identity.
	data := buildWorkbook(t, []workbookRow{
		{"Different Co", "Matte", "X-1", 99, ""},
	})
	_, err = s.ProcessExcelFile(context.Background(), data, "ACME STOCK.xlsx")

	var dup *inventory.DuplicateFileError
	if !errors.As(err, &dup) {
		t.Fatalf("err = %v, want DuplicateFileError", err)
	}
	if dup.Path != "acme_stock" {
		t.Errorf("duplicate path = %q, want acme_stock", dup.Path)
	}

	// The failed call left the store unchanged.
	after, err := s.GetCompanyData(context.Background(), "acme_stock")
	if err != nil {
		t.Fatal(err)
	}
	if after.Name != before.Name || after.ItemCount() != before.ItemCount() {
		t.Errorf("store changed after rejected duplicate: %+v", after)
	}
}

func TestProcessExcelFileStorageFailure(t *testing.T) {
	s, p := newTestService(t)

	data := buildWorkbook(t, []workbookRow{
		{"Acme", "Matte", "M-1", 5, ""},
	})
	p.failNext = true

	_, err := s.ProcessExcelFile(context.Background(), data, "acme.xlsx")

	var unavailable *inventory.StorageUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v, want StorageUnavailableError", err)
	}
	// No partial record/tree pair is observable.
	if s.FileCount() != 0 {
		t.Errorf("file count = %d after failed ingest, want 0", s.FileCount())
	}
	if _, err := s.GetCompanyData(context.Background(), "acme"); !inventory.IsNotFound(err) {
		t.Errorf("GetCompanyData after failed ingest = %v, want NotFoundError", err)
	}
}

func TestProcessExcelFileCancelled(t *testing.T) {
	s, _ := newTestService(t)
	data := buildWorkbook(t, []workbookRow{
		{"Acme", "Matte", "M-1", 5, ""},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ProcessExcelFile(ctx, data, "acme.xlsx")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if s.FileCount() != 0 {
		t.Errorf("cancelled ingestion left %d files registered", s.FileCount())
	}
}

func TestProcessExcelFileSizeLimit(t *testing.T) {
	p := newMemPersister()
	s, err := NewService(context.Background(), p, Options{MaxFileSize: 16})
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.ProcessExcelFile(context.Background(), make([]byte, 64), "big.xlsx")

	var invalid *inventory.InvalidArgumentError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidArgumentError", err)
	}
}

func TestGetCompanyData(t *testing.T) {
	s, _ := newTestService(t)
	ingestFixture(t, s, "acme.xlsx")

	company, err := s.GetCompanyData(context.Background(), "acme")
	if err != nil {
		t.Fatalf("GetCompanyData: %v", err)
	}
	if company.ItemCount() != 3 {
		t.Errorf("item count = %d, want 3", company.ItemCount())
	}

	// The returned tree is a copy; mutating it must not leak into the store.
	company.Finishes[0].Items[0].Quantity = 9999
	again, err := s.GetCompanyData(context.Background(), "acme")
	if err != nil {
		t.Fatal(err)
	}
	if again.Finishes[0].Items[0].Quantity == 9999 {
		t.Error("caller mutation leaked into the stored tree")
	}
}

func TestGetCompanyDataNotFound(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.GetCompanyData(context.Background(), "nope")

	var nf *inventory.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
	if nf.Level != inventory.LevelFile {
		t.Errorf("level = %q, want file", nf.Level)
	}
}

func TestGetProcessedFilesOrder(t *testing.T) {
	s, _ := newTestService(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	s.now = func() time.Time { return clock }

	ingestFixture(t, s, "first.xlsx")
	clock = base.Add(time.Minute)
	ingestFixture(t, s, "second.xlsx")
	clock = base.Add(2 * time.Minute)
	ingestFixture(t, s, "third.xlsx")

	got := s.GetProcessedFiles()
	want := []string{"third", "second", "first"}
	for i, rec := range got {
		if rec.Path != want[i] {
			t.Fatalf("order[%d] = %q, want %q (full: %v)", i, rec.Path, want[i], got)
		}
	}

	// Reading a file bumps it to the front.
	clock = base.Add(3 * time.Minute)
	if _, err := s.GetCompanyData(context.Background(), "first"); err != nil {
		t.Fatal(err)
	}
	got = s.GetProcessedFiles()
	if got[0].Path != "first" {
		t.Errorf("after read, front = %q, want first", got[0].Path)
	}
}

func TestRemoveFile(t *testing.T) {
	s, p := newTestService(t)
	ingestFixture(t, s, "acme.xlsx")

	if err := s.RemoveFile(context.Background(), "acme"); err != nil {
		t.Fatalf("RemoveFile: %v", err)
	}

	if _, err := s.GetCompanyData(context.Background(), "acme"); !inventory.IsNotFound(err) {
		t.Errorf("GetCompanyData after removal = %v, want NotFoundError", err)
	}
	stored, _ := p.LoadAll(context.Background())
	if len(stored) != 0 {
		t.Errorf("storage still holds %d files after removal", len(stored))
	}

	if err := s.RemoveFile(context.Background(), "acme"); !inventory.IsNotFound(err) {
		t.Errorf("second removal = %v, want NotFoundError", err)
	}
}

func TestServiceRestartRoundTrip(t *testing.T) {
	p := newMemPersister()

	s1, err := NewService(context.Background(), p, Options{})
	if err != nil {
		t.Fatal(err)
	}
	data := buildWorkbook(t, []workbookRow{
		{"Acme", "Matte", "M-1", 5, "M-2"},
	})
	if _, err := s1.ProcessExcelFile(context.Background(), data, "acme.xlsx"); err != nil {
		t.Fatal(err)
	}

	// A second service over the same persister sees the same state.
	s2, err := NewService(context.Background(), p, Options{})
	if err != nil {
		t.Fatal(err)
	}
	company, err := s2.GetCompanyData(context.Background(), "acme")
	if err != nil {
		t.Fatalf("GetCompanyData after restart: %v", err)
	}
	if company.Name != "Acme" || company.ItemCount() != 1 {
		t.Errorf("restarted tree = %+v", company)
	}
	if got := company.Finishes[0].Items[0].Alternates; len(got) != 1 || got[0] != "M-2" {
		t.Errorf("alternates did not survive restart: %v", got)
	}
}
