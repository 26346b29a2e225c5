/*
Package arr provides the core data model for the ARR analytics engine.

PURPOSE:
  This package contains the immutable row types loaded from monthly snapshot
  tables, the derived Customer entity, and the value types (Month, Movement)
  that every analytical view is built on. It performs no I/O: collections are
  handed in fully typed by the loader and never mutated afterwards.

KEY CONCEPTS IN THIS FILE (types.go):
  - SnapshotRow:  one ARR movement record per (contract, month)
  - PipelineRow:  one forecast record per (deal, snapshot month)
  - Reference rows: contract metadata, category mapping, product allocation
    percentages, legal-name aliases
  - Movement:     closed classification type for customer/contract movements

DESIGN PRINCIPLES:
  1. Immutability: rows are loaded once and never modified
  2. Precision: decimal.Decimal for every currency amount
  3. One sign convention: contraction and churn are normalized to non-positive
     exactly once, at Dataset construction (see dataset.go)
  4. Defensive by construction: missing numbers are zero, missing strings are
     empty, and no computation returns an error

SEE ALSO:
  - month.go:    Month value type and range arithmetic
  - dataset.go:  Dataset container and sign normalization
  - customer.go: Customer aggregation
*/
package arr

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MOVEMENT - Closed classification type
// =============================================================================

// Movement classifies what happened to a contract or customer over a window.
// It is a closed set: every consumer switches exhaustively over these values
// rather than falling through on free-form strings.
type Movement string

const (
	MovementNew            Movement = "new_business"
	MovementExpansion      Movement = "expansion"
	MovementScheduleChange Movement = "schedule_change"
	MovementContraction    Movement = "contraction"
	MovementChurn          Movement = "churn"
	MovementFlat           Movement = "flat"
)

// Label returns the display name used by callers and filters.
func (m Movement) Label() string {
	switch m {
	case MovementNew:
		return "New Business"
	case MovementExpansion:
		return "Expansion"
	case MovementScheduleChange:
		return "Schedule Change"
	case MovementContraction:
		return "Contraction"
	case MovementChurn:
		return "Churn"
	case MovementFlat:
		return "Flat"
	}
	return string(m)
}

// ParseMovement resolves a display label or raw value back to a Movement.
// The second return is false for anything outside the closed set.
func ParseMovement(s string) (Movement, bool) {
	switch s {
	case "New Business", string(MovementNew):
		return MovementNew, true
	case "Expansion", string(MovementExpansion):
		return MovementExpansion, true
	case "Schedule Change", string(MovementScheduleChange):
		return MovementScheduleChange, true
	case "Contraction", string(MovementContraction):
		return MovementContraction, true
	case "Churn", string(MovementChurn):
		return MovementChurn, true
	case "Flat", string(MovementFlat):
		return MovementFlat, true
	}
	return "", false
}

// =============================================================================
// PLATFORM TRACK
// =============================================================================

// Track is the platform label whose effective value is date-sensitive: a
// contract with a go-live date is SMART strictly before it and Quantum from
// the go-live month onward.
type Track string

const (
	TrackAll     Track = "All"
	TrackQuantum Track = "Quantum"
	TrackSMART   Track = "SMART"
)

// =============================================================================
// SNAPSHOT ROWS
// =============================================================================

// ContractID identifies a contract across snapshot and reference tables.
type ContractID string

// SnapshotRow is one ARR movement record for a contract in a snapshot month.
// Invariant (data-quality, not enforced):
//
//	Ending ≈ Starting + NewBusiness + Expansion + ScheduleChange
//	         - |Contraction| - |Churn|
//
// After Dataset construction, Contraction and Churn are always <= 0.
type SnapshotRow struct {
	ContractID   ContractID
	Customer     string
	Month        Month
	Starting     decimal.Decimal
	NewBusiness  decimal.Decimal
	Expansion    decimal.Decimal
	ScheduleChng decimal.Decimal // signed
	Contraction  decimal.Decimal // <= 0 after normalization
	Churn        decimal.Decimal // <= 0 after normalization
	Ending       decimal.Decimal

	Region   string
	Vertical string
	Segment  string
	FeesType string

	PlatformTrack Track
	GoLive        time.Time // zero = no migration scheduled
	ContractStart time.Time
	ContractEnd   time.Time
	RenewalRisk   string
}

// LogoType categorizes a pipeline deal.
type LogoType string

const (
	LogoNew       LogoType = "New"
	LogoRenewal   LogoType = "Renewal"
	LogoExtension LogoType = "Extension"
	LogoUpsell    LogoType = "Upsell"
	LogoCrossSell LogoType = "Cross-sell"
)

// PipelineRow is one forecast record for a deal in a pipeline snapshot month.
// Only open rows from the latest snapshot month feed the forecast.
type PipelineRow struct {
	DealID        string
	Customer      string
	SnapshotMonth Month
	DealValue     decimal.Decimal
	LicenseACV    decimal.Decimal
	LogoType      LogoType
	Stage         string
	Probability   decimal.Decimal // 0..100
	CloseMonth    Month           // month of the expected close date
	Region        string
	Vertical      string
	Segment       string
	SubCategory   string
}

// Open reports whether the deal is still open (not in a closed stage).
func (p PipelineRow) Open() bool {
	switch p.Stage {
	case "Closed Won", "Closed Lost", "Closed":
		return false
	}
	return true
}

// =============================================================================
// REFERENCE ROWS
// =============================================================================

// ContractRef carries per-contract metadata used as fallback when a snapshot
// row leaves a dimension blank.
type ContractRef struct {
	ContractID    ContractID
	Vertical      string
	Region        string
	FeesType      string
	RevenueType   string
	SegmentType   string
	ContractStart time.Time
}

// CategoryRef maps a product sub-category to its category.
type CategoryRef struct {
	SubCategory string
	Category    string
}

// YearPercent is one column of a product-allocation table: the share of a
// contract's ARR attributed to a sub-category in a given year.
type YearPercent struct {
	Year int
	Pct  decimal.Decimal // 0..100
}

// AllocationRef is the percentage-contribution row for one
// (contract, sub-category) pair. Percents are sorted ascending by year.
type AllocationRef struct {
	ContractID  ContractID
	SubCategory string
	Percents    []YearPercent
}

// PctForYear selects the year-appropriate percentage: years at or before the
// first tracked year use the first column, years past the last tracked year
// clamp to the last column.
func (a AllocationRef) PctForYear(year int) decimal.Decimal {
	if len(a.Percents) == 0 {
		return decimal.Zero
	}
	if year <= a.Percents[0].Year {
		return a.Percents[0].Pct
	}
	for _, yp := range a.Percents {
		if yp.Year == year {
			return yp.Pct
		}
	}
	return a.Percents[len(a.Percents)-1].Pct
}

// AliasRef links a customer's legal name to the name used in pipeline rows.
type AliasRef struct {
	LegalName    string
	PipelineName string
}

// =============================================================================
// AMOUNT HELPERS
// =============================================================================

// RoundUnit rounds a currency amount to the nearest whole unit.
func RoundUnit(d decimal.Decimal) decimal.Decimal { return d.Round(0) }

// RoundPct rounds a percentage to one decimal place.
func RoundPct(d decimal.Decimal) decimal.Decimal { return d.Round(1) }

// Ratio returns a*100/b rounded to one decimal, or zero when b is zero.
// Zero denominators are a degraded-data case, never an error.
func Ratio(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return RoundPct(a.Mul(hundred).Div(b))
}

var hundred = decimal.NewFromInt(100)
