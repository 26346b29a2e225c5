/*
classifier.go - Per-customer movement classification

PURPOSE:
  Re-aggregates the lookback window at customer granularity and puts each
  customer into exactly one movement category. The precedence order is
  fixed; every customer maps to one category or is dropped as no-op flat.

PRECEDENCE (first match wins):
  1. Churn:          churned revenue and nothing left at window end
  2. New:            new business and nothing at window start
  3. Expansion:      net growth with expansion revenue
  4. Contraction:    net decline or contraction revenue
  5. ScheduleChange: schedule movement with no net effect above
  6. Flat:           kept only when the net change is non-zero
*/
package analytics

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/arr-insights/arr"
)

// CustomerMovement is one customer's aggregate over the lookback window.
type CustomerMovement struct {
	Customer       string          `json:"customer"`
	StartingARR    decimal.Decimal `json:"startingARR"`
	EndingARR      decimal.Decimal `json:"endingARR"`
	Change         decimal.Decimal `json:"change"`
	NewBusiness    decimal.Decimal `json:"newBusiness"`
	Expansion      decimal.Decimal `json:"expansion"`
	ScheduleChange decimal.Decimal `json:"scheduleChange"`
	Contraction    decimal.Decimal `json:"contraction"`
	Churn          decimal.Decimal `json:"churn"`
	Movement       arr.Movement    `json:"movement"`
	MovementLabel  string          `json:"movementLabel"`
}

// CustomerMovements aggregates the window per customer, classifies, filters
// by the requested movement label and sorts (default: |change| descending).
func (e *Engine) CustomerMovements(f arr.Filter) []CustomerMovement {
	window := e.window(f)
	first, last := window[0], window[len(window)-1]

	// Group window rows by customer, then by contract within the customer,
	// so starting/ending read the per-contract window edges.
	byCustomer := make(map[string]map[arr.ContractID][]arr.SnapshotRow)
	var names []string
	for _, r := range e.ds.Snapshots {
		if r.Month.Before(first) || r.Month.After(last) || !f.MatchRow(e.ds, r) {
			continue
		}
		contracts, seen := byCustomer[r.Customer]
		if !seen {
			contracts = make(map[arr.ContractID][]arr.SnapshotRow)
			byCustomer[r.Customer] = contracts
			names = append(names, r.Customer)
		}
		contracts[r.ContractID] = append(contracts[r.ContractID], r)
	}
	sort.Strings(names)

	var out []CustomerMovement
	for _, name := range names {
		cm := aggregateCustomer(name, byCustomer[name])
		cm.Movement = classify(cm)
		cm.MovementLabel = cm.Movement.Label()
		if cm.Movement == arr.MovementFlat && cm.Change.IsZero() {
			continue
		}
		if f.MovementType != "" {
			want, ok := arr.ParseMovement(f.MovementType)
			if !ok || cm.Movement != want {
				continue
			}
		}
		out = append(out, cm)
	}

	sortCustomerMovements(out, f.SortField, f.SortDirection)
	return out
}

func aggregateCustomer(name string, contracts map[arr.ContractID][]arr.SnapshotRow) CustomerMovement {
	cm := CustomerMovement{Customer: name}
	for _, rows := range contracts {
		sort.Slice(rows, func(i, j int) bool { return rows[i].Month.Before(rows[j].Month) })
		cm.StartingARR = cm.StartingARR.Add(rows[0].Starting)
		cm.EndingARR = cm.EndingARR.Add(rows[len(rows)-1].Ending)
		for _, r := range rows {
			cm.NewBusiness = cm.NewBusiness.Add(r.NewBusiness)
			cm.Expansion = cm.Expansion.Add(r.Expansion)
			cm.ScheduleChange = cm.ScheduleChange.Add(r.ScheduleChng)
			cm.Contraction = cm.Contraction.Add(r.Contraction)
			cm.Churn = cm.Churn.Add(r.Churn)
		}
	}
	cm.StartingARR = arr.RoundUnit(cm.StartingARR)
	cm.EndingARR = arr.RoundUnit(cm.EndingARR)
	cm.NewBusiness = arr.RoundUnit(cm.NewBusiness)
	cm.Expansion = arr.RoundUnit(cm.Expansion)
	cm.ScheduleChange = arr.RoundUnit(cm.ScheduleChange)
	cm.Contraction = arr.RoundUnit(cm.Contraction)
	cm.Churn = arr.RoundUnit(cm.Churn)
	cm.Change = cm.EndingARR.Sub(cm.StartingARR)
	return cm
}

// classify applies the fixed precedence. Total and exclusive: every input
// yields exactly one category.
func classify(cm CustomerMovement) arr.Movement {
	switch {
	case !cm.Churn.IsZero() && cm.EndingARR.IsZero():
		return arr.MovementChurn
	case !cm.NewBusiness.IsZero() && cm.StartingARR.IsZero():
		return arr.MovementNew
	case cm.Change.IsPositive() && !cm.Expansion.IsZero():
		return arr.MovementExpansion
	case cm.Change.IsNegative() || cm.Contraction.IsNegative():
		return arr.MovementContraction
	case !cm.ScheduleChange.IsZero():
		return arr.MovementScheduleChange
	default:
		return arr.MovementFlat
	}
}

func sortCustomerMovements(list []CustomerMovement, field string, dir arr.SortDirection) {
	key := func(cm CustomerMovement) decimal.Decimal {
		switch strings.ToLower(field) {
		case "startingarr", "starting":
			return cm.StartingARR
		case "endingarr", "ending":
			return cm.EndingARR
		case "newbusiness":
			return cm.NewBusiness
		case "expansion":
			return cm.Expansion
		case "contraction":
			return cm.Contraction
		case "churn":
			return cm.Churn
		case "change":
			return cm.Change
		default:
			return cm.Change.Abs()
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		if dir == arr.SortAsc {
			return key(list[i]).LessThan(key(list[j]))
		}
		return key(list[i]).GreaterThan(key(list[j]))
	})
}
