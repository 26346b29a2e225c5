/*
customers.go - Customer list with per-contract detail records

PURPOSE:
  A company may hold several contracts. This view groups the derived
  Customer entities by company name and nests the contract-level detail
  records, with search and sorting for the caller.
*/
package analytics

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/arr-insights/arr"
)

// ContractDetail is one contract's current state within a company view.
type ContractDetail struct {
	ContractID    string          `json:"contractId"`
	CurrentARR    decimal.Decimal `json:"currentARR"`
	PreviousARR   decimal.Decimal `json:"previousARR"`
	Region        string          `json:"region"`
	Vertical      string          `json:"vertical"`
	Segment       string          `json:"segment"`
	PlatformTrack string          `json:"platformTrack"`
	ContractStart string          `json:"contractStart,omitempty"`
	ContractEnd   string          `json:"contractEnd,omitempty"`
	RenewalRisk   string          `json:"renewalRisk,omitempty"`
	Movement      string          `json:"movement"`
	DominantSub   string          `json:"dominantSubCategory,omitempty"`
}

// CompanyView is one company with its nested contracts.
type CompanyView struct {
	Name        string           `json:"name"`
	TotalARR    decimal.Decimal  `json:"totalARR"`
	PreviousARR decimal.Decimal  `json:"previousARR"`
	Contracts   []ContractDetail `json:"contracts"`
}

// Customers groups the filtered customer base by company name. Search is a
// case-insensitive substring match on the name; default sort is total ARR
// descending.
func (e *Engine) Customers(f arr.Filter) []CompanyView {
	byName := make(map[string]*CompanyView)
	var order []string

	for _, c := range e.filteredCustomers(f) {
		if f.Search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(f.Search)) {
			continue
		}
		if f.RenewalRisk != "" && c.RenewalRisk != f.RenewalRisk {
			continue
		}
		cv, ok := byName[c.Name]
		if !ok {
			cv = &CompanyView{Name: c.Name}
			byName[c.Name] = cv
			order = append(order, c.Name)
		}
		cv.TotalARR = cv.TotalARR.Add(c.CurrentARR)
		cv.PreviousARR = cv.PreviousARR.Add(c.PreviousARR)
		cv.Contracts = append(cv.Contracts, contractDetail(c))
	}

	out := make([]CompanyView, 0, len(order))
	for _, name := range order {
		cv := byName[name]
		cv.TotalARR = arr.RoundUnit(cv.TotalARR)
		cv.PreviousARR = arr.RoundUnit(cv.PreviousARR)
		out = append(out, *cv)
	}

	switch strings.ToLower(f.SortField) {
	case "name":
		sort.SliceStable(out, func(i, j int) bool {
			if f.SortDirection == arr.SortAsc {
				return out[i].Name < out[j].Name
			}
			return out[i].Name > out[j].Name
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			if f.SortDirection == arr.SortAsc {
				return out[i].TotalARR.LessThan(out[j].TotalARR)
			}
			return out[i].TotalARR.GreaterThan(out[j].TotalARR)
		})
	}
	return out
}

func contractDetail(c arr.Customer) ContractDetail {
	d := ContractDetail{
		ContractID:    string(c.ContractID),
		CurrentARR:    arr.RoundUnit(c.CurrentARR),
		PreviousARR:   arr.RoundUnit(c.PreviousARR),
		Region:        c.Region,
		Vertical:      c.Vertical,
		Segment:       c.Segment,
		PlatformTrack: string(arr.EffectiveTrack(c.PlatformTrack, c.GoLive, c.AsOf)),
		RenewalRisk:   c.RenewalRisk,
		Movement:      c.Movement.Label(),
		DominantSub:   c.DominantSub,
	}
	if !c.ContractStart.IsZero() {
		d.ContractStart = c.ContractStart.Format("2006-01-02")
	}
	if !c.ContractEnd.IsZero() {
		d.ContractEnd = c.ContractEnd.Format("2006-01-02")
	}
	return d
}
