/*
overview.go - Point-in-time KPIs and retention ratios

PURPOSE:
  Computes the headline numbers for a selected month: current and previous
  ARR, month-over-month NRR/GRR, and the year-end / full-year variants
  anchored to December of the filtered year.

RETENTION FORMULAS:
  Actual months (components carry normalized signs, contraction/churn <= 0):
    NRR = (prev + expansion + scheduleChange + contraction + churn) / prev
    GRR = NRR without expansion
  Forecast months: the forecast aggregate already embeds all future
  movement, so retention starts from it, removes cumulative new-logo
  pipeline (new logos are not retained revenue), and adds back the
  renewal/extension value closing in the selected month for both ratios
  plus upsell/cross-sell for NRR only.

ROUNDING:
  Currency to whole units, percentages to one decimal. A zero denominator
  yields 0, never an error.
*/
package analytics

import (
	"github.com/shopspring/decimal"
	"github.com/warp/arr-insights/arr"
)

// =============================================================================
// OUTPUT SHAPE
// =============================================================================

// OverviewMetrics is the KPI object for one selected month.
type OverviewMetrics struct {
	SelectedMonth string          `json:"selectedMonth"`
	IsForecast    bool            `json:"isForecast"`
	CurrentARR    decimal.Decimal `json:"currentARR"`
	PreviousARR   decimal.Decimal `json:"previousARR"`
	NRR           decimal.Decimal `json:"nrr"`
	GRR           decimal.Decimal `json:"grr"`

	YearEndARR  decimal.Decimal `json:"yearEndARR"`
	YearEndNRR  decimal.Decimal `json:"yearEndNRR"`
	YearEndGRR  decimal.Decimal `json:"yearEndGRR"`
	FullYearNRR decimal.Decimal `json:"fullYearNRR"`
	FullYearGRR decimal.Decimal `json:"fullYearGRR"`
}

// =============================================================================
// OVERVIEW
// =============================================================================

// Overview computes the KPI object for the filter's selected month.
func (e *Engine) Overview(f arr.Filter) OverviewMetrics {
	selected := f.SelectedMonth(e.anchor)
	previous := e.arrAt(f, selected.Add(-1))
	current := e.arrAt(f, selected)

	nrr, grr := e.retention(f, selected, previous)

	yearEnd := arr.NewMonth(f.TargetYear(e.anchor), 12)
	yearEndARR := e.arrAt(f, yearEnd)
	yearEndPrev := e.arrAt(f, yearEnd.Add(-1))
	yeNRR, yeGRR := e.retention(f, yearEnd, yearEndPrev)
	fyNRR, fyGRR := e.fullYearRetention(f, yearEnd)

	return OverviewMetrics{
		SelectedMonth: selected.String(),
		IsForecast:    selected.After(e.anchor),
		CurrentARR:    arr.RoundUnit(current),
		PreviousARR:   arr.RoundUnit(previous),
		NRR:           nrr,
		GRR:           grr,
		YearEndARR:    arr.RoundUnit(yearEndARR),
		YearEndNRR:    yeNRR,
		YearEndGRR:    yeGRR,
		FullYearNRR:   fyNRR,
		FullYearGRR:   fyGRR,
	}
}

// retention computes month-over-month NRR/GRR against the given denominator,
// switching to the pipeline-adjusted formula for forecast months.
func (e *Engine) retention(f arr.Filter, m arr.Month, denom decimal.Decimal) (nrr, grr decimal.Decimal) {
	if m.BeforeOrEqual(e.anchor) {
		t := e.monthAgg(f, m)
		retained := denom.Add(t.ScheduleChng).Add(t.Contraction).Add(t.Churn)
		return arr.Ratio(retained.Add(t.Expansion), denom), arr.Ratio(retained, denom)
	}

	// Forecast: the aggregate embeds every pipeline addition through m, and
	// additions are not retained revenue. Stripping them leaves the last
	// actual; the month's own renewal closings count for both ratios and
	// its upsell/cross-sell closings for NRR only.
	base := e.lastActual(f, e.anchor)
	renewals := e.pipelineInMonth(f, logoRenewalExt, m)
	upsell := e.pipelineInMonth(f, logoUpsellCross, m)
	return arr.Ratio(base.Add(renewals).Add(upsell), denom),
		arr.Ratio(base.Add(renewals), denom)
}

// fullYearRetention anchors to December and divides by the January
// start-of-year ARR. Actual components accumulate through the anchor; any
// forecast remainder of the year contributes through the pipeline-adjusted
// terms, mirroring the monthly formula.
func (e *Engine) fullYearRetention(f arr.Filter, yearEnd arr.Month) (nrr, grr decimal.Decimal) {
	jan := yearEnd.StartOfYear()
	start := e.monthAgg(f, jan).Starting
	if start.IsZero() {
		return decimal.Zero, decimal.Zero
	}

	expansion := decimal.Zero
	retained := start
	lastActual := yearEnd
	if e.anchor.Before(yearEnd) {
		lastActual = e.anchor
	}
	for _, m := range arr.Range(jan, lastActual) {
		t := e.monthAgg(f, m)
		retained = retained.Add(t.ScheduleChng).Add(t.Contraction).Add(t.Churn)
		expansion = expansion.Add(t.Expansion)
	}
	if yearEnd.After(e.anchor) {
		renewals := e.pipelineBetween(f, logoRenewalExt, e.anchor, yearEnd)
		upsell := e.pipelineBetween(f, logoUpsellCross, e.anchor, yearEnd)
		retained = retained.Add(renewals)
		expansion = expansion.Add(upsell)
	}
	return arr.Ratio(retained.Add(expansion), start), arr.Ratio(retained, start)
}
