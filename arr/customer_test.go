package arr_test

import (
	"testing"

	"github.com/warp/arr-insights/arr"
)

// =============================================================================
// AGGREGATION - latest two rows per contract
// =============================================================================

func TestBuildCustomers_LatestTwoRows(t *testing.T) {
	// GIVEN: three snapshot months for one contract, loaded out of order
	ds := arr.NewDataset(arr.Source{Snapshots: []arr.SnapshotRow{
		snapshotRow("c1", "Acme", "2026-02", 120),
		snapshotRow("c1", "Acme", "2025-12", 90),
		snapshotRow("c1", "Acme", "2026-01", 100),
	}})

	// WHEN: aggregating as of 2026-02
	customers := arr.BuildCustomers(ds, month("2026-02"))

	// THEN: current = latest ending, previous = second-latest ending
	if len(customers) != 1 {
		t.Fatalf("expected 1 customer, got %d", len(customers))
	}
	c := customers[0]
	if !c.CurrentARR.Equal(d(120)) || !c.PreviousARR.Equal(d(100)) {
		t.Errorf("expected current 120 / previous 100, got %v / %v", c.CurrentARR, c.PreviousARR)
	}
	if !c.AsOf.Equal(month("2026-02")) {
		t.Errorf("expected as-of 2026-02, got %s", c.AsOf)
	}
}

func TestBuildCustomers_BoundaryExcludesNewerRows(t *testing.T) {
	ds := arr.NewDataset(arr.Source{Snapshots: []arr.SnapshotRow{
		snapshotRow("c1", "Acme", "2026-01", 100),
		snapshotRow("c1", "Acme", "2026-03", 999),
	}})

	customers := arr.BuildCustomers(ds, month("2026-01"))
	if !customers[0].CurrentARR.Equal(d(100)) {
		t.Errorf("expected rows after the boundary ignored, got %v", customers[0].CurrentARR)
	}
}

func TestBuildCustomers_SingleRowFallsBackToStarting(t *testing.T) {
	row := snapshotRow("c1", "Acme", "2026-01", 130)
	row.Starting = d(110)
	ds := arr.NewDataset(arr.Source{Snapshots: []arr.SnapshotRow{row}})

	c := arr.BuildCustomers(ds, month("2026-02"))[0]
	if !c.PreviousARR.Equal(d(110)) {
		t.Errorf("expected previous = starting for single-row contract, got %v", c.PreviousARR)
	}
}

// =============================================================================
// MOVEMENT DERIVATION
// =============================================================================

func TestBuildCustomers_MovementPrecedence(t *testing.T) {
	cases := []struct {
		name string
		row  arr.SnapshotRow
		want arr.Movement
	}{
		{"new wins over expansion", arr.SnapshotRow{NewBusiness: d(10), Expansion: d(5)}, arr.MovementNew},
		{"expansion", arr.SnapshotRow{Expansion: d(5)}, arr.MovementExpansion},
		{"schedule change", arr.SnapshotRow{ScheduleChng: d(-3)}, arr.MovementScheduleChange},
		{"contraction", arr.SnapshotRow{Contraction: d(4)}, arr.MovementContraction},
		{"churn", arr.SnapshotRow{Churn: d(-9)}, arr.MovementChurn},
		{"flat", arr.SnapshotRow{}, arr.MovementFlat},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.row.ContractID = "c1"
			tc.row.Customer = "Acme"
			tc.row.Month = month("2026-01")
			ds := arr.NewDataset(arr.Source{Snapshots: []arr.SnapshotRow{tc.row}})

			c := arr.BuildCustomers(ds, month("2026-01"))[0]
			if c.Movement != tc.want {
				t.Errorf("expected %s, got %s", tc.want, c.Movement)
			}
		})
	}
}

// =============================================================================
// PRODUCT ALLOCATION
// =============================================================================

func allocRef(contract, sub string, percents ...arr.YearPercent) arr.AllocationRef {
	return arr.AllocationRef{ContractID: arr.ContractID(contract), SubCategory: sub, Percents: percents}
}

func TestPctForYear_Clamping(t *testing.T) {
	a := allocRef("c1", "Payments",
		arr.YearPercent{Year: 2024, Pct: d(40)},
		arr.YearPercent{Year: 2025, Pct: d(50)},
		arr.YearPercent{Year: 2026, Pct: d(60)},
	)

	for _, tc := range []struct {
		year int
		want float64
	}{
		{2022, 40}, // at or before the first tracked year
		{2024, 40},
		{2025, 50}, // exact match
		{2030, 60}, // clamped to the last column
	} {
		if got := a.PctForYear(tc.year); !got.Equal(d(tc.want)) {
			t.Errorf("year %d: expected %v, got %v", tc.year, tc.want, got)
		}
	}
}

func TestBuildCustomers_AllocationAndDominantSubCategory(t *testing.T) {
	// GIVEN: 1000 current ARR split 60/40 across two sub-categories
	ds := arr.NewDataset(arr.Source{
		Snapshots: []arr.SnapshotRow{snapshotRow("c1", "Acme", "2026-01", 1000)},
		Allocations: []arr.AllocationRef{
			allocRef("c1", "Payments", arr.YearPercent{Year: 2026, Pct: d(40)}),
			allocRef("c1", "Lending", arr.YearPercent{Year: 2026, Pct: d(60)}),
		},
	})

	c := arr.BuildCustomers(ds, month("2026-01"))[0]
	if len(c.Allocations) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(c.Allocations))
	}
	if !c.Allocations[0].Amount.Equal(d(400)) || !c.Allocations[1].Amount.Equal(d(600)) {
		t.Errorf("expected 400/600 split, got %v/%v", c.Allocations[0].Amount, c.Allocations[1].Amount)
	}
	if c.DominantSub != "Lending" {
		t.Errorf("expected dominant Lending, got %s", c.DominantSub)
	}
}

func TestBuildCustomers_DominantTieKeepsFirstEncountered(t *testing.T) {
	ds := arr.NewDataset(arr.Source{
		Snapshots: []arr.SnapshotRow{snapshotRow("c1", "Acme", "2026-01", 1000)},
		Allocations: []arr.AllocationRef{
			allocRef("c1", "Payments", arr.YearPercent{Year: 2026, Pct: d(50)}),
			allocRef("c1", "Lending", arr.YearPercent{Year: 2026, Pct: d(50)}),
		},
	})

	c := arr.BuildCustomers(ds, month("2026-01"))[0]
	if c.DominantSub != "Payments" {
		t.Errorf("expected first-encountered Payments on tie, got %s", c.DominantSub)
	}
}

// =============================================================================
// REFERENCE FALLBACK
// =============================================================================

func TestBuildCustomers_ReferenceFallback(t *testing.T) {
	row := snapshotRow("c1", "Acme", "2026-01", 100)
	row.Region = "EMEA" // row wins where populated
	ds := arr.NewDataset(arr.Source{
		Snapshots: []arr.SnapshotRow{row},
		Contracts: []arr.ContractRef{{
			ContractID: "c1", Region: "Americas", Vertical: "Retail", SegmentType: "Enterprise", FeesType: "Fees",
		}},
	})

	c := arr.BuildCustomers(ds, month("2026-01"))[0]
	if c.Region != "EMEA" {
		t.Errorf("expected row region to win, got %s", c.Region)
	}
	if c.Vertical != "Retail" || c.Segment != "Enterprise" || c.FeesType != "Fees" {
		t.Errorf("expected reference fallback, got %s/%s/%s", c.Vertical, c.Segment, c.FeesType)
	}
}
