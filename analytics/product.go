/*
product.go - Product/category rollups, cross-sell depth and breakdowns

PURPOSE:
  Rolls the per-customer allocated product revenue up into sub-category and
  category views, measures cross-sell depth (distinct sub-categories per
  customer), and produces the region/vertical/category breakdown lists.
*/
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/arr-insights/arr"
)

// =============================================================================
// OUTPUT SHAPES
// =============================================================================

// ProductRollup is one sub-category or category line.
type ProductRollup struct {
	Name       string          `json:"name"`
	Category   string          `json:"category,omitempty"`
	Customers  int             `json:"customers"`
	TotalARR   decimal.Decimal `json:"totalARR"`
	AverageARR decimal.Decimal `json:"averageARR"`
}

// ProductAnalysis pairs the two rollup levels.
type ProductAnalysis struct {
	SubCategories []ProductRollup `json:"subCategories"`
	Categories    []ProductRollup `json:"categories"`
}

// CrossSellAnalysis buckets customers by product breadth.
type CrossSellAnalysis struct {
	SingleProduct int             `json:"singleProduct"`
	TwoProducts   int             `json:"twoProducts"`
	ThreePlus     int             `json:"threePlus"`
	CrossSellRate decimal.Decimal `json:"crossSellRate"` // percent with >= 2
}

// NameValue is one entry of a sorted breakdown list.
type NameValue struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// Breakdown is the dimensional ARR decomposition.
type Breakdown struct {
	ByRegion   []NameValue `json:"byRegion"`
	ByVertical []NameValue `json:"byVertical"`
	ByCategory []NameValue `json:"byCategory"`
}

// =============================================================================
// PRODUCT ROLLUPS
// =============================================================================

func (e *Engine) filteredCustomers(f arr.Filter) []arr.Customer {
	selected := f.SelectedMonth(e.anchor)
	if selected.After(e.anchor) {
		selected = e.anchor
	}
	var out []arr.Customer
	for _, c := range arr.BuildCustomers(e.ds, selected) {
		if f.MatchCustomer(c) {
			out = append(out, c)
		}
	}
	return out
}

// Products rolls allocated revenue into sub-category and category tables,
// honoring the productCategory / productSubCategory filter extensions.
func (e *Engine) Products(f arr.Filter) ProductAnalysis {
	type acc struct {
		rollup    ProductRollup
		customers map[arr.ContractID]bool
	}
	subs := make(map[string]*acc)
	cats := make(map[string]*acc)
	var subOrder, catOrder []string

	track := func(m map[string]*acc, order *[]string, name, category string) *acc {
		a, ok := m[name]
		if !ok {
			a = &acc{rollup: ProductRollup{Name: name, Category: category}, customers: make(map[arr.ContractID]bool)}
			m[name] = a
			*order = append(*order, name)
		}
		return a
	}

	for _, c := range e.filteredCustomers(f) {
		for _, alloc := range c.Allocations {
			category := e.ds.Category(alloc.SubCategory)
			if f.ProductSubCategory != "" && alloc.SubCategory != f.ProductSubCategory {
				continue
			}
			if f.ProductCategory != "" && category != f.ProductCategory {
				continue
			}

			sa := track(subs, &subOrder, alloc.SubCategory, category)
			sa.rollup.TotalARR = sa.rollup.TotalARR.Add(alloc.Amount)
			sa.customers[c.ContractID] = true

			ca := track(cats, &catOrder, category, "")
			ca.rollup.TotalARR = ca.rollup.TotalARR.Add(alloc.Amount)
			ca.customers[c.ContractID] = true
		}
	}

	finish := func(m map[string]*acc, order []string) []ProductRollup {
		out := make([]ProductRollup, 0, len(order))
		for _, name := range order {
			a := m[name]
			a.rollup.Customers = len(a.customers)
			if a.rollup.Customers > 0 {
				a.rollup.AverageARR = arr.RoundUnit(a.rollup.TotalARR.Div(decimal.NewFromInt(int64(a.rollup.Customers))))
			}
			a.rollup.TotalARR = arr.RoundUnit(a.rollup.TotalARR)
			out = append(out, a.rollup)
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].TotalARR.GreaterThan(out[j].TotalARR) })
		return out
	}

	return ProductAnalysis{
		SubCategories: finish(subs, subOrder),
		Categories:    finish(cats, catOrder),
	}
}

// =============================================================================
// CROSS-SELL DEPTH
// =============================================================================

// CrossSell buckets customers by distinct sub-category count. Customers
// with no allocations carry no product signal and are excluded from the
// rate's denominator.
func (e *Engine) CrossSell(f arr.Filter) CrossSellAnalysis {
	var cs CrossSellAnalysis
	withAny := 0
	for _, c := range e.filteredCustomers(f) {
		depth := len(c.Allocations)
		if depth == 0 {
			continue
		}
		withAny++
		switch {
		case depth == 1:
			cs.SingleProduct++
		case depth == 2:
			cs.TwoProducts++
		default:
			cs.ThreePlus++
		}
	}
	multi := decimal.NewFromInt(int64(cs.TwoProducts + cs.ThreePlus))
	cs.CrossSellRate = arr.Ratio(multi, decimal.NewFromInt(int64(withAny)))
	return cs
}

// =============================================================================
// DIMENSIONAL BREAKDOWN
// =============================================================================

// Breakdowns decomposes current ARR by region, vertical and product
// category, each list sorted by value descending.
func (e *Engine) Breakdowns(f arr.Filter) Breakdown {
	regions := make(map[string]decimal.Decimal)
	verticals := make(map[string]decimal.Decimal)
	categories := make(map[string]decimal.Decimal)

	for _, c := range e.filteredCustomers(f) {
		regions[orUnknown(c.Region)] = regions[orUnknown(c.Region)].Add(c.CurrentARR)
		verticals[orUnknown(c.Vertical)] = verticals[orUnknown(c.Vertical)].Add(c.CurrentARR)
		for _, alloc := range c.Allocations {
			cat := e.ds.Category(alloc.SubCategory)
			categories[cat] = categories[cat].Add(alloc.Amount)
		}
	}

	return Breakdown{
		ByRegion:   sortedNameValues(regions),
		ByVertical: sortedNameValues(verticals),
		ByCategory: sortedNameValues(categories),
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func sortedNameValues(m map[string]decimal.Decimal) []NameValue {
	out := make([]NameValue, 0, len(m))
	for name, v := range m {
		out = append(out, NameValue{Name: name, Value: arr.RoundUnit(v)})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Value.Equal(out[j].Value) {
			return out[i].Value.GreaterThan(out[j].Value)
		}
		return out[i].Name < out[j].Name
	})
	return out
}
