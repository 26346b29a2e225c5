/*
trend.go - Monthly ARR series blending actuals with forecast

PURPOSE:
  Produces one row per month over a fixed window: January of the earliest
  snapshot year through December of the year after the anchor. Months at or
  before the anchor carry the actual aggregate (zero when absent, tracked
  explicitly so a later non-zero month can still serve as forecast base).
  Months past the anchor carry a forecast decomposed into base, cumulative
  renewals and cumulative new business.
*/
package analytics

import (
	"github.com/shopspring/decimal"
	"github.com/warp/arr-insights/arr"
)

// TrendRow is one month of the series. Forecast fields are nil on actual
// months so callers can tell "no forecast" from "forecast of zero".
type TrendRow struct {
	Month               string           `json:"month"`
	CurrentARR          decimal.Decimal  `json:"currentARR"`
	ForecastedARR       *decimal.Decimal `json:"forecastedARR"`
	ForecastBase        *decimal.Decimal `json:"forecastBase"`
	ForecastRenewals    *decimal.Decimal `json:"forecastRenewals"`
	ForecastNewBusiness *decimal.Decimal `json:"forecastNewBusiness"`
}

// Trend builds the full monthly series for the filtered rows.
func (e *Engine) Trend(f arr.Filter) []TrendRow {
	earliest := e.earliestMonth()
	if earliest.IsZero() {
		return nil
	}
	window := arr.Range(earliest.StartOfYear(), arr.NewMonth(e.anchor.Year+1, 12))

	rows := make([]TrendRow, 0, len(window))
	lastNonZero := decimal.Zero
	for _, m := range window {
		actual := e.actualARR(f, m)
		if !actual.IsZero() {
			lastNonZero = actual
		}

		if m.BeforeOrEqual(e.anchor) {
			rows = append(rows, TrendRow{Month: m.String(), CurrentARR: arr.RoundUnit(actual)})
			continue
		}

		base := actual
		if base.IsZero() {
			base = lastNonZero
		}
		renewals := e.pipelineBetween(f, logoRenewalExt, e.anchor, m)
		newBiz := e.pipelineBetween(f, logoNotRenewal, e.anchor, m)
		forecast := base.Add(renewals).Add(newBiz)

		rows = append(rows, TrendRow{
			Month:               m.String(),
			CurrentARR:          arr.RoundUnit(actual),
			ForecastedARR:       roundPtr(forecast),
			ForecastBase:        roundPtr(base),
			ForecastRenewals:    roundPtr(renewals),
			ForecastNewBusiness: roundPtr(newBiz),
		})
	}
	return rows
}

func roundPtr(d decimal.Decimal) *decimal.Decimal {
	r := arr.RoundUnit(d)
	return &r
}
