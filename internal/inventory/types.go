// Package inventory defines the domain model for the laminate-stock engine:
// the Company/Finish/Item tree parsed from a spreadsheet, the registry
// metadata attached to each ingested file, and the read-only projections
// returned by search and reporting. This package has no dependencies on the
// engine or any transport; everything above it imports these types.
package inventory

import "time"

// Item is a single stock-keeping unit within a Finish.
// Quantity is never negative; mutations that would drive it below zero are
// rejected by the engine, not clamped.
type Item struct {
	ItemNo     string   `json:"item_no"`
	Quantity   int      `json:"quantity"`
	Alternates []string `json:"alternates"`
}

// Finish is a named grouping of items within a Company. Item order is
// ingestion order and is stable for display; item numbers are unique
// within a Finish.
type Finish struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// Company is the top-level inventory record for one ingested spreadsheet.
// Finish names are unique within a Company.
type Company struct {
	Name     string   `json:"company"`
	Finishes []Finish `json:"finishes"`
}

// FileRecord identifies one ingested dataset. Path is the engine-wide
// identity key shared by the registry and the store; OriginalPath records
// where the upload claimed to come from and is informational only.
type FileRecord struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	OriginalPath string    `json:"original_path"`
	LastUsed     time.Time `json:"last_used"`
}

// SearchHit is a flattened, file-attributed search result. Computed on
// demand, never persisted.
type SearchHit struct {
	Company  string `json:"company"`
	Finish   string `json:"finish"`
	ItemNo   string `json:"item_no"`
	Quantity int    `json:"quantity"`
	FilePath string `json:"file_path"`
}

// LowStockHit is a flattened low-stock report row. Computed on demand,
// never persisted.
type LowStockHit struct {
	Company  string `json:"company"`
	Finish   string `json:"finish"`
	ItemNo   string `json:"item_no"`
	Quantity int    `json:"quantity"`
	FilePath string `json:"file_path"`
}

// AuditEntry records one applied stock mutation.
type AuditEntry struct {
	ID          string    `json:"id"`
	Time        time.Time `json:"time"`
	FilePath    string    `json:"file_path"`
	Finish      string    `json:"finish"`
	ItemNo      string    `json:"item_no"`
	Delta       int       `json:"delta"`
	NewQuantity int       `json:"new_quantity"`
}

// Clone returns a deep copy of the company tree. The engine treats stored
// trees as immutable and swaps whole clones on mutation, so readers can hold
// a tree pointer without locking.
func (c *Company) Clone() *Company {
	if c == nil {
		return nil
	}
	out := &Company{Name: c.Name}
	if c.Finishes != nil {
		out.Finishes = make([]Finish, len(c.Finishes))
		for i, f := range c.Finishes {
			out.Finishes[i] = f.clone()
		}
	}
	return out
}

func (f Finish) clone() Finish {
	out := Finish{Name: f.Name}
	if f.Items != nil {
		out.Items = make([]Item, len(f.Items))
		for i, it := range f.Items {
			out.Items[i] = it.clone()
		}
	}
	return out
}

func (it Item) clone() Item {
	out := Item{ItemNo: it.ItemNo, Quantity: it.Quantity}
	if it.Alternates != nil {
		out.Alternates = append([]string(nil), it.Alternates...)
	}
	return out
}

// Finish returns the finish with the given name, or nil if absent.
func (c *Company) Finish(name string) *Finish {
	for i := range c.Finishes {
		if c.Finishes[i].Name == name {
			return &c.Finishes[i]
		}
	}
	return nil
}

// Item returns the item with the given number, or nil if absent.
func (f *Finish) Item(itemNo string) *Item {
	for i := range f.Items {
		if f.Items[i].ItemNo == itemNo {
			return &f.Items[i]
		}
	}
	return nil
}

// ItemCount returns the total number of items across all finishes.
func (c *Company) ItemCount() int {
	n := 0
	for _, f := range c.Finishes {
		n += len(f.Items)
	}
	return n
}
