package analytics_test

import (
	"testing"

	"github.com/warp/arr-insights/analytics"
	"github.com/warp/arr-insights/arr"
)

func alloc(contract, sub string, year int, pct float64) arr.AllocationRef {
	return arr.AllocationRef{
		ContractID:  arr.ContractID(contract),
		SubCategory: sub,
		Percents:    []arr.YearPercent{{Year: year, Pct: d(pct)}},
	}
}

// productFixture: two customers with allocations across three sub-categories
// in two categories, plus one customer with no product signal.
func productFixture() *analytics.Engine {
	ds := arr.NewDataset(arr.Source{
		Snapshots: []arr.SnapshotRow{
			row("c1", "Acme", "2026-01", 1000, 0, 0, 0, 0, 0, 1000),
			row("c2", "Beta", "2026-01", 500, 0, 0, 0, 0, 0, 500),
			row("c3", "Plain", "2026-01", 200, 0, 0, 0, 0, 0, 200),
		},
		Categories: []arr.CategoryRef{
			{SubCategory: "Payments", Category: "Transactions"},
			{SubCategory: "FX", Category: "Transactions"},
			{SubCategory: "Lending", Category: "Credit"},
		},
		Allocations: []arr.AllocationRef{
			alloc("c1", "Payments", 2026, 60),
			alloc("c1", "Lending", 2026, 40),
			alloc("c2", "Payments", 2026, 80),
			alloc("c2", "FX", 2026, 20),
		},
	})
	return analytics.NewEngine(ds, month("2026-01"))
}

func TestProducts_Rollups(t *testing.T) {
	e := productFixture()

	pa := e.Products(noFilter())

	// Sub-categories sorted by total descending: Payments 1000, Lending 400, FX 100.
	if len(pa.SubCategories) != 3 {
		t.Fatalf("expected 3 sub-categories, got %+v", pa.SubCategories)
	}
	payments := pa.SubCategories[0]
	if payments.Name != "Payments" || payments.Customers != 2 {
		t.Errorf("unexpected leading sub-category %+v", payments)
	}
	if !payments.TotalARR.Equal(d(1000)) || !payments.AverageARR.Equal(d(500)) {
		t.Errorf("expected 1000 total / 500 average, got %v / %v", payments.TotalARR, payments.AverageARR)
	}
	if payments.Category != "Transactions" {
		t.Errorf("expected Transactions category, got %s", payments.Category)
	}
	if pa.SubCategories[1].Name != "Lending" || pa.SubCategories[2].Name != "FX" {
		t.Errorf("unexpected ordering %+v", pa.SubCategories)
	}

	// Categories: Transactions 1100 across both customers, Credit 400.
	if len(pa.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %+v", pa.Categories)
	}
	if pa.Categories[0].Name != "Transactions" || !pa.Categories[0].TotalARR.Equal(d(1100)) {
		t.Errorf("unexpected leading category %+v", pa.Categories[0])
	}
	if pa.Categories[1].Name != "Credit" || !pa.Categories[1].TotalARR.Equal(d(400)) {
		t.Errorf("unexpected category %+v", pa.Categories[1])
	}
}

func TestProducts_SubCategoryFilter(t *testing.T) {
	e := productFixture()
	f := arr.FilterRequest{ProductSubCategory: "Lending"}.Normalize()

	pa := e.Products(f)
	if len(pa.SubCategories) != 1 || pa.SubCategories[0].Name != "Lending" {
		t.Errorf("expected only Lending, got %+v", pa.SubCategories)
	}
	if len(pa.Categories) != 1 || pa.Categories[0].Name != "Credit" {
		t.Errorf("expected only Credit, got %+v", pa.Categories)
	}
}

func TestProducts_CategoryFilter(t *testing.T) {
	e := productFixture()
	f := arr.FilterRequest{ProductCategory: "Transactions"}.Normalize()

	pa := e.Products(f)
	for _, sc := range pa.SubCategories {
		if sc.Category != "Transactions" {
			t.Errorf("unexpected sub-category %+v", sc)
		}
	}
	if len(pa.SubCategories) != 2 {
		t.Errorf("expected Payments and FX, got %+v", pa.SubCategories)
	}
}

func TestProducts_UnmappedSubCategoryFallsToOther(t *testing.T) {
	ds := arr.NewDataset(arr.Source{
		Snapshots:   []arr.SnapshotRow{row("c1", "Acme", "2026-01", 100, 0, 0, 0, 0, 0, 100)},
		Allocations: []arr.AllocationRef{alloc("c1", "Mystery", 2026, 100)},
	})
	e := analytics.NewEngine(ds, month("2026-01"))

	pa := e.Products(noFilter())
	if len(pa.Categories) != 1 || pa.Categories[0].Name != "Other" {
		t.Errorf("expected Other category fallback, got %+v", pa.Categories)
	}
}

// =============================================================================
// CROSS-SELL DEPTH
// =============================================================================

func TestCrossSell_DepthBuckets(t *testing.T) {
	ds := arr.NewDataset(arr.Source{
		Snapshots: []arr.SnapshotRow{
			row("c1", "One", "2026-01", 100, 0, 0, 0, 0, 0, 100),
			row("c2", "Two", "2026-01", 100, 0, 0, 0, 0, 0, 100),
			row("c3", "Three", "2026-01", 100, 0, 0, 0, 0, 0, 100),
			row("c4", "None", "2026-01", 100, 0, 0, 0, 0, 0, 100),
		},
		Allocations: []arr.AllocationRef{
			alloc("c1", "A", 2026, 100),
			alloc("c2", "A", 2026, 50), alloc("c2", "B", 2026, 50),
			alloc("c3", "A", 2026, 40), alloc("c3", "B", 2026, 30), alloc("c3", "C", 2026, 30),
		},
	})
	e := analytics.NewEngine(ds, month("2026-01"))

	cs := e.CrossSell(noFilter())

	if cs.SingleProduct != 1 || cs.TwoProducts != 1 || cs.ThreePlus != 1 {
		t.Errorf("unexpected buckets %+v", cs)
	}
	// 2 of 3 customers with product signal hold more than one product.
	if !cs.CrossSellRate.Equal(d(66.7)) {
		t.Errorf("expected rate 66.7, got %v", cs.CrossSellRate)
	}
}

func TestCrossSell_EmptyBaseYieldsZeroRate(t *testing.T) {
	ds := arr.NewDataset(arr.Source{Snapshots: []arr.SnapshotRow{
		row("c1", "Plain", "2026-01", 100, 0, 0, 0, 0, 0, 100),
	}})
	e := analytics.NewEngine(ds, month("2026-01"))

	cs := e.CrossSell(noFilter())
	if !cs.CrossSellRate.IsZero() {
		t.Errorf("expected zero rate with no product signal, got %v", cs.CrossSellRate)
	}
}

// =============================================================================
// BREAKDOWNS
// =============================================================================

func TestBreakdowns(t *testing.T) {
	rows := []arr.SnapshotRow{
		row("c1", "Acme", "2026-01", 0, 0, 0, 0, 0, 0, 600),
		row("c2", "Beta", "2026-01", 0, 0, 0, 0, 0, 0, 400),
		row("c3", "Gamma", "2026-01", 0, 0, 0, 0, 0, 0, 200),
	}
	rows[0].Region, rows[0].Vertical = "EMEA", "Retail"
	rows[1].Region, rows[1].Vertical = "Americas", "Retail"
	// c3 carries no region: reported as Unknown.
	rows[2].Vertical = "Travel"
	ds := arr.NewDataset(arr.Source{
		Snapshots:   rows,
		Categories:  []arr.CategoryRef{{SubCategory: "Payments", Category: "Transactions"}},
		Allocations: []arr.AllocationRef{alloc("c1", "Payments", 2026, 100)},
	})
	e := analytics.NewEngine(ds, month("2026-01"))

	b := e.Breakdowns(noFilter())

	if len(b.ByRegion) != 3 || b.ByRegion[0].Name != "EMEA" || !b.ByRegion[0].Value.Equal(d(600)) {
		t.Errorf("unexpected region breakdown %+v", b.ByRegion)
	}
	foundUnknown := false
	for _, nv := range b.ByRegion {
		if nv.Name == "Unknown" && nv.Value.Equal(d(200)) {
			foundUnknown = true
		}
	}
	if !foundUnknown {
		t.Errorf("expected Unknown region bucket, got %+v", b.ByRegion)
	}

	if len(b.ByVertical) != 2 || b.ByVertical[0].Name != "Retail" || !b.ByVertical[0].Value.Equal(d(1000)) {
		t.Errorf("unexpected vertical breakdown %+v", b.ByVertical)
	}
	if len(b.ByCategory) != 1 || b.ByCategory[0].Name != "Transactions" || !b.ByCategory[0].Value.Equal(d(600)) {
		t.Errorf("unexpected category breakdown %+v", b.ByCategory)
	}
}
