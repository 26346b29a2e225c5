/*
movement.go - Movement aggregation and waterfall bridge

PURPOSE:
  Aggregates the ARR movement components over a 1/3/6/12-month lookback
  ending at the selected month and emits both the totals and the ordered
  waterfall-bar structure bridging starting to ending ARR.

WATERFALL BOOKKEEPING:
  A running total is seeded at the window's starting ARR. New business and
  expansion always add; schedule change adds when non-negative and
  subtracts its magnitude otherwise; contraction and churn always subtract
  their magnitude. The final bar shows the window's actual ending ARR
  independently of the running total: source data carries rounding drift,
  and the bridge reports it rather than hiding it.
*/
package analytics

import (
	"github.com/shopspring/decimal"
	"github.com/warp/arr-insights/arr"
)

// =============================================================================
// OUTPUT SHAPES
// =============================================================================

// WaterfallBar is one segment of the bridge chart.
type WaterfallBar struct {
	Name      string          `json:"name"`
	Start     decimal.Decimal `json:"start"`
	End       decimal.Decimal `json:"end"`
	Value     decimal.Decimal `json:"value"`
	Direction string          `json:"direction"` // "up", "down" or "total"
}

// MovementSummary is the aggregate movement view over one lookback window.
type MovementSummary struct {
	From           string          `json:"from"`
	To             string          `json:"to"`
	LookbackMonths int             `json:"lookbackMonths"`
	StartingARR    decimal.Decimal `json:"startingARR"`
	EndingARR      decimal.Decimal `json:"endingARR"`
	NewBusiness    decimal.Decimal `json:"newBusiness"`
	Expansion      decimal.Decimal `json:"expansion"`
	ScheduleChange decimal.Decimal `json:"scheduleChange"`
	Contraction    decimal.Decimal `json:"contraction"`
	Churn          decimal.Decimal `json:"churn"`
	Waterfall      []WaterfallBar  `json:"waterfall"`
}

// MonthMovement is one month's component aggregate, for the movement trend
// list.
type MonthMovement struct {
	Month          string          `json:"month"`
	StartingARR    decimal.Decimal `json:"startingARR"`
	NewBusiness    decimal.Decimal `json:"newBusiness"`
	Expansion      decimal.Decimal `json:"expansion"`
	ScheduleChange decimal.Decimal `json:"scheduleChange"`
	Contraction    decimal.Decimal `json:"contraction"`
	Churn          decimal.Decimal `json:"churn"`
	EndingARR      decimal.Decimal `json:"endingARR"`
}

// =============================================================================
// MOVEMENT SUMMARY
// =============================================================================

// window returns the lookback months ending at the filter's selected month.
// A lookback outside the supported set (a zero-value Filter carries 0) falls
// back to 12, so the window is never empty.
func (e *Engine) window(f arr.Filter) []arr.Month {
	to := f.SelectedMonth(e.anchor)
	lookback := f.Lookback
	switch lookback {
	case 1, 3, 6, 12:
	default:
		lookback = 12
	}
	return arr.Range(to.Add(-(lookback - 1)), to)
}

// Movement aggregates components over the lookback window and builds the
// waterfall. Starting ARR comes from the first month, ending ARR from the
// last; everything else sums across the window.
func (e *Engine) Movement(f arr.Filter) MovementSummary {
	window := e.window(f)

	s := MovementSummary{
		From:           window[0].String(),
		To:             window[len(window)-1].String(),
		LookbackMonths: len(window),
	}
	for i, m := range window {
		t := e.monthAgg(f, m)
		if i == 0 {
			s.StartingARR = t.Starting
		}
		if i == len(window)-1 {
			s.EndingARR = t.Ending
		}
		s.NewBusiness = s.NewBusiness.Add(t.NewBusiness)
		s.Expansion = s.Expansion.Add(t.Expansion)
		s.ScheduleChange = s.ScheduleChange.Add(t.ScheduleChng)
		s.Contraction = s.Contraction.Add(t.Contraction)
		s.Churn = s.Churn.Add(t.Churn)
	}

	s.StartingARR = arr.RoundUnit(s.StartingARR)
	s.EndingARR = arr.RoundUnit(s.EndingARR)
	s.NewBusiness = arr.RoundUnit(s.NewBusiness)
	s.Expansion = arr.RoundUnit(s.Expansion)
	s.ScheduleChange = arr.RoundUnit(s.ScheduleChange)
	s.Contraction = arr.RoundUnit(s.Contraction)
	s.Churn = arr.RoundUnit(s.Churn)
	s.Waterfall = buildWaterfall(s)
	return s
}

// buildWaterfall assembles the bridge bars with running-total bookkeeping.
func buildWaterfall(s MovementSummary) []WaterfallBar {
	bars := []WaterfallBar{{
		Name:      "Starting ARR",
		Start:     decimal.Zero,
		End:       s.StartingARR,
		Value:     s.StartingARR,
		Direction: "total",
	}}
	running := s.StartingARR

	add := func(name string, v decimal.Decimal) {
		bars = append(bars, WaterfallBar{
			Name: name, Start: running, End: running.Add(v), Value: v, Direction: "up",
		})
		running = running.Add(v)
	}
	sub := func(name string, v decimal.Decimal) {
		mag := v.Abs()
		bars = append(bars, WaterfallBar{
			Name: name, Start: running.Sub(mag), End: running, Value: mag.Neg(), Direction: "down",
		})
		running = running.Sub(mag)
	}

	add("New Business", s.NewBusiness)
	add("Expansion", s.Expansion)
	if s.ScheduleChange.IsNegative() {
		sub("Schedule Change", s.ScheduleChange)
	} else {
		add("Schedule Change", s.ScheduleChange)
	}
	sub("Contraction", s.Contraction)
	sub("Churn", s.Churn)

	// The ending bar reports the actual window ending ARR, not the running
	// total. Any residual between the two is real rounding drift in the
	// source data and must stay visible.
	bars = append(bars, WaterfallBar{
		Name:      "Ending ARR",
		Start:     decimal.Zero,
		End:       s.EndingARR,
		Value:     s.EndingARR,
		Direction: "total",
	})
	return bars
}

// =============================================================================
// MONTHLY MOVEMENT TREND
// =============================================================================

// MonthlyMovementTrend returns the per-month component aggregates over the
// lookback window.
func (e *Engine) MonthlyMovementTrend(f arr.Filter) []MonthMovement {
	window := e.window(f)
	out := make([]MonthMovement, 0, len(window))
	for _, m := range window {
		t := e.monthAgg(f, m)
		out = append(out, MonthMovement{
			Month:          m.String(),
			StartingARR:    arr.RoundUnit(t.Starting),
			NewBusiness:    arr.RoundUnit(t.NewBusiness),
			Expansion:      arr.RoundUnit(t.Expansion),
			ScheduleChange: arr.RoundUnit(t.ScheduleChng),
			Contraction:    arr.RoundUnit(t.Contraction),
			Churn:          arr.RoundUnit(t.Churn),
			EndingARR:      arr.RoundUnit(t.Ending),
		})
	}
	return out
}
