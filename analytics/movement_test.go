package analytics_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/warp/arr-insights/analytics"
	"github.com/warp/arr-insights/arr"
)

// =============================================================================
// WATERFALL
// =============================================================================

// waterfallFixture: starting 1000, +200 new, +50 expansion, -10 schedule
// change, -30 contraction, -20 churn. The stored ending is 1195, five units
// off the closed-form 1190, to exercise the independent ending bar.
func waterfallFixture() *analytics.Engine {
	ds := arr.NewDataset(arr.Source{Snapshots: []arr.SnapshotRow{
		row("c1", "Acme", "2026-01", 1000, 200, 50, -10, -30, -20, 1195),
	}})
	return analytics.NewEngine(ds, month("2026-01"))
}

func TestMovement_WaterfallRunningTotals(t *testing.T) {
	e := waterfallFixture()
	f := arr.FilterRequest{LookbackPeriod: 1}.Normalize()

	s := e.Movement(f)

	if !s.StartingARR.Equal(d(1000)) || !s.EndingARR.Equal(d(1195)) {
		t.Fatalf("expected 1000 -> 1195, got %v -> %v", s.StartingARR, s.EndingARR)
	}

	// Running totals: 1000 -> 1200 -> 1250 -> 1240 -> 1210 -> 1190. Down
	// bars end at the pre-subtraction level.
	wantEnds := []struct {
		name string
		end  float64
	}{
		{"Starting ARR", 1000},
		{"New Business", 1200},
		{"Expansion", 1250},
		{"Schedule Change", 1250},
		{"Contraction", 1240},
		{"Churn", 1210},
		{"Ending ARR", 1195},
	}
	if len(s.Waterfall) != len(wantEnds) {
		t.Fatalf("expected %d bars, got %d", len(wantEnds), len(s.Waterfall))
	}
	for i, want := range wantEnds {
		bar := s.Waterfall[i]
		if bar.Name != want.name {
			t.Errorf("bar %d: expected %s, got %s", i, want.name, bar.Name)
		}
		if !bar.End.Equal(d(want.end)) {
			t.Errorf("bar %s: expected end %v, got %v", want.name, want.end, bar.End)
		}
	}

	// The final bar reports the stored ending, not the running total.
	final := s.Waterfall[len(s.Waterfall)-1]
	if !final.Value.Equal(d(1195)) {
		t.Errorf("expected independent ending bar 1195, got %v", final.Value)
	}
	churn := s.Waterfall[5]
	if !churn.Start.Equal(d(1190)) {
		t.Errorf("expected running total 1190 after churn, got %v", churn.Start)
	}
}

func TestMovement_PositiveScheduleChangeAdds(t *testing.T) {
	ds := arr.NewDataset(arr.Source{Snapshots: []arr.SnapshotRow{
		row("c1", "Acme", "2026-01", 1000, 0, 0, 15, 0, 0, 1015),
	}})
	e := analytics.NewEngine(ds, month("2026-01"))

	s := e.Movement(arr.FilterRequest{LookbackPeriod: 1}.Normalize())
	var schedBar *analytics.WaterfallBar
	for i := range s.Waterfall {
		if s.Waterfall[i].Name == "Schedule Change" {
			schedBar = &s.Waterfall[i]
		}
	}
	if schedBar == nil {
		t.Fatal("missing schedule change bar")
	}
	if schedBar.Direction != "up" || !schedBar.End.Equal(d(1015)) {
		t.Errorf("expected upward schedule bar ending 1015, got %s / %v", schedBar.Direction, schedBar.End)
	}
}

// =============================================================================
// LOOKBACK WINDOWS
// =============================================================================

func TestMovement_ZeroValueFilterDefaultsLookback(t *testing.T) {
	// A zero-value Filter means "no constraint"; its zero lookback must fall
	// back to the 12-month default instead of producing an empty window.
	e := waterfallFixture()

	s := e.Movement(arr.Filter{})

	if s.LookbackMonths != 12 {
		t.Errorf("expected 12-month default window, got %d", s.LookbackMonths)
	}
	if s.From != "2025-02" || s.To != "2026-01" {
		t.Errorf("unexpected window %s..%s", s.From, s.To)
	}
	if !s.EndingARR.Equal(d(1195)) {
		t.Errorf("expected ending 1195, got %v", s.EndingARR)
	}

	// The sibling views share the window and must hold up the same way.
	if got := e.CustomerMovements(arr.Filter{}); len(got) == 0 {
		t.Error("expected classified customers under a zero-value filter")
	}
	if got := e.MonthlyMovementTrend(arr.Filter{}); len(got) != 12 {
		t.Errorf("expected 12 trend months, got %d", len(got))
	}
}

func TestMovement_LookbackSpansMonths(t *testing.T) {
	// GIVEN: three months of movements
	ds := arr.NewDataset(arr.Source{Snapshots: []arr.SnapshotRow{
		row("c1", "Acme", "2026-01", 1000, 0, 10, 0, 0, 0, 1010),
		row("c1", "Acme", "2026-02", 1010, 0, 20, 0, -5, 0, 1025),
		row("c1", "Acme", "2026-03", 1025, 0, 0, 0, 0, -25, 1000),
	}})
	e := analytics.NewEngine(ds, month("2026-03"))

	// WHEN: looking back 3 months from the anchor
	s := e.Movement(arr.FilterRequest{LookbackPeriod: 3}.Normalize())

	// THEN: starting from the first month, ending from the last,
	// components summed across the window
	if !s.StartingARR.Equal(d(1000)) || !s.EndingARR.Equal(d(1000)) {
		t.Errorf("expected 1000 -> 1000, got %v -> %v", s.StartingARR, s.EndingARR)
	}
	if !s.Expansion.Equal(d(30)) || !s.Contraction.Equal(d(-5)) || !s.Churn.Equal(d(-25)) {
		t.Errorf("unexpected component sums %v/%v/%v", s.Expansion, s.Contraction, s.Churn)
	}
	if s.From != "2026-01" || s.To != "2026-03" {
		t.Errorf("unexpected window %s..%s", s.From, s.To)
	}
}

// Reconciliation property: starting plus signed components approximates the
// ending within rounding tolerance of the window length.
func TestMovement_ComponentsReconcile(t *testing.T) {
	ds := arr.NewDataset(arr.Source{Snapshots: []arr.SnapshotRow{
		row("c1", "Acme", "2026-01", 500, 0, 25, 0, 0, 0, 525),
		row("c2", "Beta", "2026-01", 300, 0, 0, -8, 0, 0, 292),
		row("c1", "Acme", "2026-02", 525, 0, 0, 0, -15, 0, 510),
		row("c2", "Beta", "2026-02", 292, 0, 0, 0, 0, -292, 0),
		row("c3", "NewCo", "2026-02", 0, 120, 0, 0, 0, 0, 120),
		row("c1", "Acme", "2026-03", 510, 0, 0, 0, 0, 0, 510),
		row("c3", "NewCo", "2026-03", 120, 0, 0, 0, 0, 0, 120),
	}})
	e := analytics.NewEngine(ds, month("2026-03"))

	s := e.Movement(arr.FilterRequest{LookbackPeriod: 3}.Normalize())

	derived := s.StartingARR.
		Add(s.NewBusiness).Add(s.Expansion).Add(s.ScheduleChange).
		Add(s.Contraction).Add(s.Churn)
	tolerance := decimal.NewFromInt(int64(s.LookbackMonths))
	if derived.Sub(s.EndingARR).Abs().GreaterThan(tolerance) {
		t.Errorf("components do not reconcile: derived %v vs ending %v", derived, s.EndingARR)
	}
}

// =============================================================================
// MONTHLY MOVEMENT TREND
// =============================================================================

func TestMonthlyMovementTrend(t *testing.T) {
	ds := arr.NewDataset(arr.Source{Snapshots: []arr.SnapshotRow{
		row("c1", "Acme", "2026-02", 1010, 0, 20, 0, -5, 0, 1025),
		row("c1", "Acme", "2026-01", 1000, 0, 10, 0, 0, 0, 1010),
	}})
	e := analytics.NewEngine(ds, month("2026-02"))

	rows := e.MonthlyMovementTrend(arr.FilterRequest{LookbackPeriod: 3}.Normalize())
	if len(rows) != 3 {
		t.Fatalf("expected 3 months, got %d", len(rows))
	}
	// The window's first month precedes the data and aggregates to zero.
	if rows[0].Month != "2025-12" || !rows[0].EndingARR.IsZero() {
		t.Errorf("expected empty 2025-12, got %+v", rows[0])
	}
	if rows[1].Month != "2026-01" || !rows[1].Expansion.Equal(d(10)) {
		t.Errorf("unexpected January aggregate %+v", rows[1])
	}
	if rows[2].Month != "2026-02" || !rows[2].Contraction.Equal(d(-5)) {
		t.Errorf("unexpected February aggregate %+v", rows[2])
	}
}
