/*
filter.go - Filter normalization and row/customer predicates

PURPOSE:
  Every analytical entry point takes the same loosely-specified filter
  request: optional arrays per dimension plus two single-select dimensions
  (platform track and fees type). Filter canonicalizes that request once and
  answers "does this row / customer / deal pass?".

MATCHING RULES:
  - An empty array filter passes everything (no constraint).
  - A populated array filter passes when it contains the row's attribute,
    with blank row dimensions falling back to the contract reference table.
  - The platform-track single-select matches the EFFECTIVE track, which is
    date-sensitive (see dataset.go EffectiveTrack) and always evaluated at
    the row's own month.
  - Pipeline deals resolve their track through the latest-track index, with
    new-logo deals always treated as Quantum.

SEE ALSO:
  - dataset.go:  EffectiveTrack, TrackFor
  - customer.go: Customer fields the predicates read
*/
package arr

import (
	"strings"
	"time"
)

// =============================================================================
// FILTER
// =============================================================================

// SortDirection orders list outputs.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Filter is the canonicalized analytics filter. Zero value means "no
// constraint" for every dimension.
type Filter struct {
	Years     []int
	Months    []time.Month
	Regions   []string
	Verticals []string
	Segments  []string
	Platforms []string

	QuantumSmart Track  // All / Quantum / SMART
	FeesType     string // All / Fees / Travel

	// Per-view extensions
	Lookback           int // 1, 3, 6 or 12 months
	MovementType       string
	SortField          string
	SortDirection      SortDirection
	Search             string
	RenewalRisk        string
	ProductCategory    string
	ProductSubCategory string
}

// FilterRequest is the wire shape consumed from callers: string arrays with
// three-letter month names, before canonicalization.
type FilterRequest struct {
	Year     []string `json:"year,omitempty"`
	Month    []string `json:"month,omitempty"`
	Region   []string `json:"region,omitempty"`
	Vertical []string `json:"vertical,omitempty"`
	Segment  []string `json:"segment,omitempty"`
	Platform []string `json:"platform,omitempty"`

	QuantumSmart string `json:"quantumSmart,omitempty"`
	FeesType     string `json:"feesType,omitempty"`

	LookbackPeriod     int    `json:"lookbackPeriod,omitempty"`
	MovementType       string `json:"movementType,omitempty"`
	SortField          string `json:"sortField,omitempty"`
	SortDirection      string `json:"sortDirection,omitempty"`
	Search             string `json:"search,omitempty"`
	RenewalRisk        string `json:"renewalRisk,omitempty"`
	ProductCategory    string `json:"productCategory,omitempty"`
	ProductSubCategory string `json:"productSubCategory,omitempty"`
}

// Normalize canonicalizes a filter request: years become ints, month names
// become time.Month, single-selects default to All, lookback defaults to 12.
// Unparseable entries are dropped rather than rejected.
func (req FilterRequest) Normalize() Filter {
	f := Filter{
		Regions:   cleanList(req.Region),
		Verticals: cleanList(req.Vertical),
		Segments:  cleanList(req.Segment),
		Platforms: cleanList(req.Platform),

		QuantumSmart: TrackAll,
		FeesType:     "All",
		Lookback:     12,

		MovementType:       strings.TrimSpace(req.MovementType),
		SortField:          strings.TrimSpace(req.SortField),
		SortDirection:      SortDesc,
		Search:             strings.TrimSpace(req.Search),
		RenewalRisk:        strings.TrimSpace(req.RenewalRisk),
		ProductCategory:    strings.TrimSpace(req.ProductCategory),
		ProductSubCategory: strings.TrimSpace(req.ProductSubCategory),
	}

	for _, y := range req.Year {
		if yr := parseYear(y); yr != 0 {
			f.Years = append(f.Years, yr)
		}
	}
	for _, m := range req.Month {
		if mon, ok := ParseMonthName(m); ok {
			f.Months = append(f.Months, mon)
		}
	}
	switch Track(strings.TrimSpace(req.QuantumSmart)) {
	case TrackQuantum:
		f.QuantumSmart = TrackQuantum
	case TrackSMART:
		f.QuantumSmart = TrackSMART
	}
	if ft := strings.TrimSpace(req.FeesType); ft != "" {
		f.FeesType = ft
	}
	switch req.LookbackPeriod {
	case 1, 3, 6, 12:
		f.Lookback = req.LookbackPeriod
	}
	if SortDirection(strings.ToLower(req.SortDirection)) == SortAsc {
		f.SortDirection = SortAsc
	}
	return f
}

func parseYear(s string) int {
	t, err := time.Parse("2006", strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return t.Year()
}

func cleanList(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// =============================================================================
// MONTH RESOLUTION
// =============================================================================

// SelectedMonth resolves the month the caller is asking about: the filter's
// first year/month when given, the anchor otherwise.
func (f Filter) SelectedMonth(anchor Month) Month {
	sel := anchor
	if len(f.Years) > 0 {
		sel.Year = f.Years[0]
	}
	if len(f.Months) > 0 {
		sel.Mon = f.Months[0]
	}
	return sel
}

// TargetYear resolves the year for year-end and full-year views.
func (f Filter) TargetYear(anchor Month) int {
	if len(f.Years) > 0 {
		return f.Years[0]
	}
	return anchor.Year
}

// =============================================================================
// PREDICATES
// =============================================================================

// MatchRow reports whether a snapshot row passes the dimensional filters.
// Blank row dimensions fall back to the contract reference table before
// matching. Year/month filters are month-selection, not row predicates, and
// are not evaluated here.
func (f Filter) MatchRow(ds *Dataset, r SnapshotRow) bool {
	ref, _ := ds.Contract(r.ContractID)
	if !listMatch(f.Regions, fallback(r.Region, ref.Region)) {
		return false
	}
	if !listMatch(f.Verticals, fallback(r.Vertical, ref.Vertical)) {
		return false
	}
	if !listMatch(f.Segments, fallback(r.Segment, ref.SegmentType)) {
		return false
	}
	if !listMatch(f.Platforms, string(r.PlatformTrack)) {
		return false
	}
	if !f.matchFees(fallback(r.FeesType, ref.FeesType)) {
		return false
	}
	if f.QuantumSmart != TrackAll {
		if EffectiveTrack(r.PlatformTrack, r.GoLive, r.Month) != f.QuantumSmart {
			return false
		}
	}
	return true
}

// MatchCustomer reports whether a derived Customer passes the dimensional
// filters. The effective track is evaluated at the customer's latest
// snapshot month.
func (f Filter) MatchCustomer(c Customer) bool {
	if !listMatch(f.Regions, c.Region) ||
		!listMatch(f.Verticals, c.Vertical) ||
		!listMatch(f.Segments, c.Segment) ||
		!listMatch(f.Platforms, string(c.PlatformTrack)) {
		return false
	}
	if !f.matchFees(c.FeesType) {
		return false
	}
	if f.QuantumSmart != TrackAll {
		if EffectiveTrack(c.PlatformTrack, c.GoLive, c.AsOf) != f.QuantumSmart {
			return false
		}
	}
	return true
}

// MatchPipeline reports whether a pipeline deal passes the dimensional
// filters. New-logo deals are always Quantum; other deals resolve through
// the latest-track index and are excluded from track-based filtering when
// unresolved.
func (f Filter) MatchPipeline(ds *Dataset, p PipelineRow) bool {
	if !listMatch(f.Regions, p.Region) ||
		!listMatch(f.Verticals, p.Vertical) ||
		!listMatch(f.Segments, p.Segment) {
		return false
	}
	if f.QuantumSmart != TrackAll {
		track, ok := ds.TrackFor(p.Customer)
		if p.LogoType == LogoNew {
			track, ok = TrackQuantum, true
		}
		if !ok || track != f.QuantumSmart {
			return false
		}
	}
	return true
}

func (f Filter) matchFees(feesType string) bool {
	return f.FeesType == "" || f.FeesType == "All" || f.FeesType == feesType
}

func listMatch(list []string, value string) bool {
	if len(list) == 0 {
		return true
	}
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

func fallback(primary, secondary string) string {
	if primary != "" {
		return primary
	}
	return secondary
}
