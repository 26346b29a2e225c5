/*
renewal.go - Renewal risk distribution, renewal calendar and cohorts

PURPOSE:
  For the target year, finds every contract renewing in that year (by
  contract-end date) among the selected month's rows, builds the risk-level
  distribution in severity order, and lays the renewals out on a
  month-by-month calendar. Cohort analysis groups customers by
  contract-start year.
*/
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/arr-insights/arr"
)

// =============================================================================
// OUTPUT SHAPES
// =============================================================================

// RiskCount is one risk level's share of the renewal book.
type RiskCount struct {
	Risk  string          `json:"risk"`
	Count int             `json:"count"`
	ARR   decimal.Decimal `json:"arr"`
}

// CalendarMonth is one month of the renewal calendar.
type CalendarMonth struct {
	Month     string          `json:"month"`
	Contracts int             `json:"contracts"`
	ARR       decimal.Decimal `json:"arr"`
}

// RenewalAnalysis is the combined risk view for the target year.
type RenewalAnalysis struct {
	Year             int             `json:"year"`
	RiskDistribution []RiskCount     `json:"riskDistribution"`
	RenewalCalendar  []CalendarMonth `json:"renewalCalendar"`
}

// Cohort is one contract-start-year group of customers.
type Cohort struct {
	StartYear  int             `json:"startYear"`
	Customers  int             `json:"customers"`
	TotalARR   decimal.Decimal `json:"totalARR"`
	AverageARR decimal.Decimal `json:"averageARR"`
}

// riskOrder is the fixed severity sequence for the distribution. Labels
// outside it are appended in first-seen order; placeholder labels are
// excluded entirely.
var riskOrder = []string{"High", "Medium-High", "Medium", "Medium-Low", "Low"}

func validRisk(label string) bool {
	switch label {
	case "", "0", "-", "N/A", "TBD":
		return false
	}
	return true
}

// =============================================================================
// RENEWAL RISK
// =============================================================================

// RenewalRisk builds the risk distribution and renewal calendar for the
// filter's target year from the selected month's rows.
func (e *Engine) RenewalRisk(f arr.Filter) RenewalAnalysis {
	year := f.TargetYear(e.anchor)
	selected := f.SelectedMonth(e.anchor)
	if selected.After(e.anchor) {
		selected = e.anchor
	}

	counts := make(map[string]*RiskCount)
	var extraRisks []string
	calendar := make([]CalendarMonth, 12)
	for i := range calendar {
		calendar[i].Month = arr.NewMonth(year, time.Month(i+1)).String()
	}

	for _, r := range e.ds.Snapshots {
		if !r.Month.Equal(selected) || !f.MatchRow(e.ds, r) {
			continue
		}
		if r.ContractEnd.IsZero() || r.ContractEnd.Year() != year {
			continue
		}
		if f.RenewalRisk != "" && r.RenewalRisk != f.RenewalRisk {
			continue
		}

		if validRisk(r.RenewalRisk) {
			rc, ok := counts[r.RenewalRisk]
			if !ok {
				rc = &RiskCount{Risk: r.RenewalRisk}
				counts[r.RenewalRisk] = rc
				if !knownRisk(r.RenewalRisk) {
					extraRisks = append(extraRisks, r.RenewalRisk)
				}
			}
			rc.Count++
			rc.ARR = rc.ARR.Add(r.Ending)
		}

		mon := int(r.ContractEnd.Month()) - 1
		calendar[mon].Contracts++
		calendar[mon].ARR = calendar[mon].ARR.Add(r.Ending)
	}

	var dist []RiskCount
	for _, label := range append(append([]string{}, riskOrder...), extraRisks...) {
		if rc, ok := counts[label]; ok {
			rc.ARR = arr.RoundUnit(rc.ARR)
			dist = append(dist, *rc)
		}
	}
	for i := range calendar {
		calendar[i].ARR = arr.RoundUnit(calendar[i].ARR)
	}

	return RenewalAnalysis{Year: year, RiskDistribution: dist, RenewalCalendar: calendar}
}

func knownRisk(label string) bool {
	for _, r := range riskOrder {
		if r == label {
			return true
		}
	}
	return false
}

// =============================================================================
// COHORTS
// =============================================================================

// Cohorts groups the current customer base by contract-start year.
// Customers without a known start date are omitted.
func (e *Engine) Cohorts(f arr.Filter) []Cohort {
	selected := f.SelectedMonth(e.anchor)
	if selected.After(e.anchor) {
		selected = e.anchor
	}

	byYear := make(map[int]*Cohort)
	for _, c := range arr.BuildCustomers(e.ds, selected) {
		if !f.MatchCustomer(c) || c.ContractStart.IsZero() {
			continue
		}
		year := c.ContractStart.Year()
		co, ok := byYear[year]
		if !ok {
			co = &Cohort{StartYear: year}
			byYear[year] = co
		}
		co.Customers++
		co.TotalARR = co.TotalARR.Add(c.CurrentARR)
	}

	cohorts := make([]Cohort, 0, len(byYear))
	for _, co := range byYear {
		// Average from the unrounded sum; round each output once.
		if co.Customers > 0 {
			co.AverageARR = arr.RoundUnit(co.TotalARR.Div(decimal.NewFromInt(int64(co.Customers))))
		}
		co.TotalARR = arr.RoundUnit(co.TotalARR)
		cohorts = append(cohorts, *co)
	}
	sort.Slice(cohorts, func(i, j int) bool { return cohorts[i].StartYear < cohorts[j].StartYear })
	return cohorts
}
