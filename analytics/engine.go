/*
Package analytics computes the derived business metric views over a loaded
ARR dataset.

PURPOSE:
  Engine is the computation layer: overview KPIs, trend series, movement
  waterfall, per-customer classification, renewal risk, cohorts and product
  rollups. Every method is pure over the immutable Dataset — no I/O, no
  mutation, no error states. Missing data degrades to zero, never aborts.

ANCHOR MONTH:
  The anchor is the most recent month assumed to have complete actuals,
  normally the calendar month before the current processing month. Months
  at or before the anchor read actual snapshot aggregates; months after it
  extrapolate from the last known actual plus open pipeline value.

CONCURRENCY:
  Engine holds only the Dataset pointer and the anchor month, both
  immutable, so one Engine is safely shared by concurrent request handlers.

KEY CONCEPTS IN THIS FILE (engine.go):
  - monthTotals: the per-month component aggregate every view starts from
  - actual vs. forecast ARR resolution and pipeline accumulation

SEE ALSO:
  - overview.go: KPIs and retention ratios
  - trend.go:    monthly series
  - movement.go: waterfall engine
*/
package analytics

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/arr-insights/arr"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine computes analytical views over one immutable dataset snapshot.
type Engine struct {
	ds     *arr.Dataset
	anchor arr.Month
}

// NewEngine creates an engine anchored at the given month. The anchor is
// caller-supplied so computations stay deterministic under test.
func NewEngine(ds *arr.Dataset, anchor arr.Month) *Engine {
	return &Engine{ds: ds, anchor: anchor}
}

// AnchorFromNow derives the default anchor: the calendar month immediately
// preceding the current processing month.
func AnchorFromNow(now time.Time) arr.Month {
	return arr.MonthOf(now).Add(-1)
}

// Anchor returns the engine's anchor month.
func (e *Engine) Anchor() arr.Month { return e.anchor }

// Dataset returns the underlying dataset.
func (e *Engine) Dataset() *arr.Dataset { return e.ds }

// =============================================================================
// MONTHLY COMPONENT AGGREGATION
// =============================================================================

// monthTotals is the aggregate of every movement component over one month's
// matching rows. Contraction and churn are non-positive (dataset invariant).
type monthTotals struct {
	Starting     decimal.Decimal
	NewBusiness  decimal.Decimal
	Expansion    decimal.Decimal
	ScheduleChng decimal.Decimal
	Contraction  decimal.Decimal
	Churn        decimal.Decimal
	Ending       decimal.Decimal
	Rows         int
}

// monthAgg sums components over the filtered rows of one snapshot month.
func (e *Engine) monthAgg(f arr.Filter, m arr.Month) monthTotals {
	var t monthTotals
	for _, r := range e.ds.Snapshots {
		if !r.Month.Equal(m) || !f.MatchRow(e.ds, r) {
			continue
		}
		t.Starting = t.Starting.Add(r.Starting)
		t.NewBusiness = t.NewBusiness.Add(r.NewBusiness)
		t.Expansion = t.Expansion.Add(r.Expansion)
		t.ScheduleChng = t.ScheduleChng.Add(r.ScheduleChng)
		t.Contraction = t.Contraction.Add(r.Contraction)
		t.Churn = t.Churn.Add(r.Churn)
		t.Ending = t.Ending.Add(r.Ending)
		t.Rows++
	}
	return t
}

// actualARR is the aggregate ending ARR of one actual month.
func (e *Engine) actualARR(f arr.Filter, m arr.Month) decimal.Decimal {
	return e.monthAgg(f, m).Ending
}

// earliestMonth returns the oldest snapshot month in the dataset.
func (e *Engine) earliestMonth() arr.Month {
	var earliest arr.Month
	for _, r := range e.ds.Snapshots {
		if earliest.IsZero() || r.Month.Before(earliest) {
			earliest = r.Month
		}
	}
	return earliest
}

// lastActual walks backwards from 'at' to the earliest snapshot month and
// returns the first month with a non-zero aggregate. Zero months are
// tracked, not trusted: a zero aggregate usually means no rows loaded for
// that month rather than a real collapse to zero.
func (e *Engine) lastActual(f arr.Filter, at arr.Month) decimal.Decimal {
	earliest := e.earliestMonth()
	if earliest.IsZero() {
		return decimal.Zero
	}
	for m := at; m.AfterOrEqual(earliest); m = m.Add(-1) {
		if v := e.actualARR(f, m); !v.IsZero() {
			return v
		}
	}
	return decimal.Zero
}

// =============================================================================
// PIPELINE ACCUMULATION
// =============================================================================

// logoClass partitions pipeline deals for forecasting.
type logoClass int

const (
	logoAny logoClass = iota
	logoRenewalExt     // Renewal + Extension
	logoUpsellCross    // Upsell + Cross-sell
	logoNewOnly        // New logos
	logoNotRenewal     // everything except Renewal/Extension
)

func matchLogo(class logoClass, lt arr.LogoType) bool {
	switch class {
	case logoRenewalExt:
		return lt == arr.LogoRenewal || lt == arr.LogoExtension
	case logoUpsellCross:
		return lt == arr.LogoUpsell || lt == arr.LogoCrossSell
	case logoNewOnly:
		return lt == arr.LogoNew
	case logoNotRenewal:
		return lt != arr.LogoRenewal && lt != arr.LogoExtension
	default:
		return true
	}
}

// pipelineBetween sums open-pipeline license ACV for deals whose close month
// falls in (after, upTo], restricted to the latest pipeline snapshot.
func (e *Engine) pipelineBetween(f arr.Filter, class logoClass, after, upTo arr.Month) decimal.Decimal {
	total := decimal.Zero
	for _, p := range e.ds.OpenPipeline() {
		if !p.CloseMonth.After(after) || p.CloseMonth.After(upTo) {
			continue
		}
		if !matchLogo(class, p.LogoType) || !f.MatchPipeline(e.ds, p) {
			continue
		}
		total = total.Add(p.LicenseACV)
	}
	return total
}

// pipelineInMonth sums open-pipeline license ACV for deals closing exactly
// in the given month.
func (e *Engine) pipelineInMonth(f arr.Filter, class logoClass, m arr.Month) decimal.Decimal {
	return e.pipelineBetween(f, class, m.Add(-1), m)
}

// =============================================================================
// ACTUAL / FORECAST CROSSOVER
// =============================================================================

// arrAt resolves the aggregate ARR for any month: actual snapshot data at or
// before the anchor, extrapolation beyond it. The forecast base falls back
// across months when the boundary month itself carries no rows.
func (e *Engine) arrAt(f arr.Filter, m arr.Month) decimal.Decimal {
	if m.BeforeOrEqual(e.anchor) {
		return e.actualARR(f, m)
	}
	base := e.lastActual(f, e.anchor)
	return base.Add(e.pipelineBetween(f, logoAny, e.anchor, m))
}
