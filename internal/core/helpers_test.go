package core

// helpers_test.go provides the shared fixtures for engine tests: an
// in-memory Persister with failure injection and a builder for workbook
// bytes in the layout the parser expects.

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stocktally/engine/internal/inventory"
	"github.com/xuri/excelize/v2"
)

// memPersister is an in-memory Persister. failNext causes the next write
// operation to fail, for exercising the storage-unavailable paths.
type memPersister struct {
	mu       sync.Mutex
	files    map[string]StoredFile
	audit    []inventory.AuditEntry
	failNext bool
}

func newMemPersister() *memPersister {
	return &memPersister{files: make(map[string]StoredFile)}
}

var errInjected = errors.New("injected storage failure")

func (m *memPersister) fail() error {
	if m.failNext {
		m.failNext = false
		return errInjected
	}
	return nil
}

func (m *memPersister) LoadAll(ctx context.Context) ([]StoredFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]StoredFile, 0, len(m.files))
	for _, f := range m.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Record.Path < out[j].Record.Path })
	return out, nil
}

func (m *memPersister) SaveFile(ctx context.Context, f StoredFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail(); err != nil {
		return err
	}
	f.Tree = f.Tree.Clone()
	m.files[f.Record.Path] = f
	return nil
}

func (m *memPersister) Touch(ctx context.Context, path string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail(); err != nil {
		return err
	}
	f, ok := m.files[path]
	if !ok {
		return errors.New("no such file: " + path)
	}
	f.Record.LastUsed = t
	m.files[path] = f
	return nil
}

func (m *memPersister) DeleteFile(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail(); err != nil {
		return err
	}
	delete(m.files, path)
	return nil
}

func (m *memPersister) LoadWorkbook(ctx context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.files[path]
	if !ok {
		return nil, nil
	}
	return f.Workbook, nil
}

func (m *memPersister) AppendAudit(ctx context.Context, e inventory.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail(); err != nil {
		return err
	}
	m.audit = append(m.audit, e)
	return nil
}

func (m *memPersister) RecentAudit(ctx context.Context, limit int) ([]inventory.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := append([]inventory.AuditEntry(nil), m.audit...)
	sort.Slice(out, func(i, j int) bool { return out[i].Time.After(out[j].Time) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// newTestService creates a Service over a fresh memPersister.
func newTestService(t *testing.T) (*Service, *memPersister) {
	t.Helper()

	p := newMemPersister()
	s, err := NewService(context.Background(), p, Options{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return s, p
}

// workbookRow is one data row for buildWorkbook.
type workbookRow struct {
	company    string
	finish     string
	itemNo     string
	quantity   any // any so tests can write non-numeric quantities
	alternates string
}

// buildWorkbook produces xlsx bytes with the standard header and the given
// data rows.
func buildWorkbook(t *testing.T, rows []workbookRow) []byte {
	t.Helper()

	wb := excelize.NewFile()
	defer wb.Close()
	sheet := wb.GetSheetName(0)

	header := []string{"Company", "Finish", "Item No", "Quantity", "Alternates"}
	for i, col := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := wb.SetCellValue(sheet, cell, col); err != nil {
			t.Fatalf("write header: %v", err)
		}
	}

	for r, row := range rows {
		values := []any{row.company, row.finish, row.itemNo, row.quantity, row.alternates}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			if err := wb.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("write row %d: %v", r, err)
			}
		}
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatalf("serialize workbook: %v", err)
	}
	return buf.Bytes()
}

// ingestFixture ingests a small default workbook and returns its record.
func ingestFixture(t *testing.T, s *Service, displayName string) inventory.FileRecord {
	t.Helper()

	data := buildWorkbook(t, []workbookRow{
		{"Acme Laminates", "Brushed Steel", "S-100", 10, "S-200, S-300"},
		{"Acme Laminates", "Brushed Steel", "S-101", 4, ""},
		{"Acme Laminates", "High Gloss", "HG-1092", 6, ""},
	})

	rec, err := s.ProcessExcelFile(context.Background(), data, displayName)
	if err != nil {
		t.Fatalf("ProcessExcelFile(%s): %v", displayName, err)
	}
	return rec
}
