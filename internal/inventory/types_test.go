package inventory

import "testing"

func sampleCompany() *Company {
	return &Company{
		Name: "Acme Laminates",
		Finishes: []Finish{
			{
				Name: "Brushed Steel",
				Items: []Item{
					{ItemNo: "S-100", Quantity: 10, Alternates: []string{"S-200", "S-300"}},
					{ItemNo: "S-101", Quantity: 4},
				},
			},
			{
				Name:  "High Gloss",
				Items: []Item{{ItemNo: "HG-1092", Quantity: 6}},
			},
		},
	}
}

func TestCompanyClone(t *testing.T) {
	orig := sampleCompany()
	clone := orig.Clone()

	// All levels, including alternates, are independent copies.
	clone.Name = "Other"
	clone.Finishes[0].Name = "Changed"
	clone.Finishes[0].Items[0].Quantity = 999
	clone.Finishes[0].Items[0].Alternates[0] = "X-1"

	if orig.Name != "Acme Laminates" {
		t.Errorf("company name changed: %q", orig.Name)
	}
	if orig.Finishes[0].Name != "Brushed Steel" {
		t.Errorf("finish name changed: %q", orig.Finishes[0].Name)
	}
	if orig.Finishes[0].Items[0].Quantity != 10 {
		t.Errorf("quantity changed: %d", orig.Finishes[0].Items[0].Quantity)
	}
	if orig.Finishes[0].Items[0].Alternates[0] != "S-200" {
		t.Errorf("alternates changed: %v", orig.Finishes[0].Items[0].Alternates)
	}
}

func TestCompanyCloneNil(t *testing.T) {
	var c *Company
	if c.Clone() != nil {
		t.Error("nil Clone should return nil")
	}
}

func TestCompanyLookups(t *testing.T) {
	c := sampleCompany()

	if f := c.Finish("High Gloss"); f == nil || len(f.Items) != 1 {
		t.Errorf("Finish lookup = %+v", f)
	}
	if c.Finish("Satin") != nil {
		t.Error("unknown finish should return nil")
	}

	f := c.Finish("Brushed Steel")
	if item := f.Item("S-101"); item == nil || item.Quantity != 4 {
		t.Errorf("Item lookup = %+v", item)
	}
	if f.Item("Z-999") != nil {
		t.Error("unknown item should return nil")
	}
}

func TestCompanyItemCount(t *testing.T) {
	if got := sampleCompany().ItemCount(); got != 3 {
		t.Errorf("ItemCount = %d, want 3", got)
	}
	empty := &Company{Name: "Empty"}
	if got := empty.ItemCount(); got != 0 {
		t.Errorf("empty ItemCount = %d, want 0", got)
	}
}
