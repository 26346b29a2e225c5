/*
customer.go - Customer aggregation from snapshot rows

PURPOSE:
  Collapses the append-only per-month snapshot rows into one current-state
  Customer per contract. This is a view, rebuilt on every call from the
  immutable rows, never persisted.

AGGREGATION:
  Explicit sort-then-reduce: group rows by contract, drop rows newer than
  the as-of boundary, sort by month descending and take the top two. The
  head is "latest", the next is "previous". No hidden reliance on source
  iteration order.

DERIVATIONS:
  - Current ARR = latest.Ending; Previous ARR = previous.Ending, falling
    back to latest.Starting for single-row contracts.
  - Dimensions fall back to the contract reference table when blank.
  - Movement follows a fixed precedence over the latest row's components.
  - Product allocation applies the year-appropriate percentage to the
    current ARR; the dominant sub-category is the largest allocation, ties
    broken by allocation-table order.

SEE ALSO:
  - dataset.go: reference fallbacks and allocation lookup
  - analytics:  the views consuming []Customer
*/
package arr

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CUSTOMER - Derived current state of one contract
// =============================================================================

// ProductAllocation is one sub-category's share of a customer's current ARR.
type ProductAllocation struct {
	SubCategory string
	Amount      decimal.Decimal
}

// Customer is the current-state view of one contract as of a month boundary.
type Customer struct {
	ContractID ContractID
	Name       string
	AsOf       Month // latest snapshot month at or before the boundary

	CurrentARR  decimal.Decimal
	PreviousARR decimal.Decimal

	Region   string
	Vertical string
	Segment  string
	FeesType string

	PlatformTrack Track
	GoLive        time.Time
	ContractStart time.Time
	ContractEnd   time.Time
	RenewalRisk   string

	Movement Movement

	Allocations []ProductAllocation
	DominantSub string
}

// BuildCustomers derives one Customer per contract from rows at or before
// the as-of boundary. Contracts with no rows in range are omitted.
func BuildCustomers(ds *Dataset, asOf Month) []Customer {
	byContract := make(map[ContractID][]SnapshotRow)
	var order []ContractID
	for _, r := range ds.Snapshots {
		if r.Month.After(asOf) {
			continue
		}
		if _, seen := byContract[r.ContractID]; !seen {
			order = append(order, r.ContractID)
		}
		byContract[r.ContractID] = append(byContract[r.ContractID], r)
	}

	customers := make([]Customer, 0, len(order))
	for _, id := range order {
		rows := byContract[id]
		sort.Slice(rows, func(i, j int) bool { return rows[i].Month.After(rows[j].Month) })
		customers = append(customers, buildCustomer(ds, rows))
	}
	return customers
}

func buildCustomer(ds *Dataset, rows []SnapshotRow) Customer {
	latest := rows[0]
	ref, _ := ds.Contract(latest.ContractID)

	previous := latest.Starting
	if len(rows) > 1 {
		previous = rows[1].Ending
	}

	contractStart := latest.ContractStart
	if contractStart.IsZero() {
		contractStart = ref.ContractStart
	}

	c := Customer{
		ContractID:  latest.ContractID,
		Name:        latest.Customer,
		AsOf:        latest.Month,
		CurrentARR:  latest.Ending,
		PreviousARR: previous,

		Region:   fallback(latest.Region, ref.Region),
		Vertical: fallback(latest.Vertical, ref.Vertical),
		Segment:  fallback(latest.Segment, ref.SegmentType),
		FeesType: fallback(latest.FeesType, ref.FeesType),

		PlatformTrack: latest.PlatformTrack,
		GoLive:        latest.GoLive,
		ContractStart: contractStart,
		ContractEnd:   latest.ContractEnd,
		RenewalRisk:   latest.RenewalRisk,

		Movement: deriveMovement(latest),
	}

	c.Allocations, c.DominantSub = allocate(ds, latest.ContractID, c.CurrentARR, latest.Month.Year)
	return c
}

// deriveMovement classifies the latest row by fixed precedence. The checks
// assume normalized signs (contraction/churn <= 0).
func deriveMovement(r SnapshotRow) Movement {
	switch {
	case r.NewBusiness.IsPositive():
		return MovementNew
	case r.Expansion.IsPositive():
		return MovementExpansion
	case !r.ScheduleChng.IsZero():
		return MovementScheduleChange
	case r.Contraction.IsNegative():
		return MovementContraction
	case r.Churn.IsNegative():
		return MovementChurn
	default:
		return MovementFlat
	}
}

// allocate splits the current ARR across sub-categories using the
// year-appropriate percentage columns. The dominant sub-category is the
// largest allocation; ties keep the first one encountered.
func allocate(ds *Dataset, id ContractID, currentARR decimal.Decimal, year int) ([]ProductAllocation, string) {
	refs := ds.AllocationsFor(id)
	if len(refs) == 0 {
		return nil, ""
	}

	allocs := make([]ProductAllocation, 0, len(refs))
	dominant := ""
	best := decimal.Zero
	for _, ref := range refs {
		pct := ref.PctForYear(year)
		if pct.IsZero() {
			continue
		}
		amount := RoundUnit(currentARR.Mul(pct).Div(hundred))
		allocs = append(allocs, ProductAllocation{SubCategory: ref.SubCategory, Amount: amount})
		if amount.GreaterThan(best) {
			best = amount
			dominant = ref.SubCategory
		}
	}
	return allocs, dominant
}
