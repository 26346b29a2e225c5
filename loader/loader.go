/*
Package loader turns delimited snapshot exports into typed collections.

PURPOSE:
  The engine trusts well-typed in-memory collections; this package is the
  boundary that produces them. One normalized record per source row,
  header-driven column lookup, and zero-filling for anything missing or
  malformed — a bad cell degrades a field, it never fails the load.

FILES (one per collection, under one directory):
  arr_snapshots.csv   ARR movement rows
  pipeline.csv        pipeline forecast rows
  contracts.csv       contract reference metadata
  categories.csv      sub-category -> category
  allocations.csv     product allocation percentages (year columns)
  aliases.csv         legal name -> pipeline name

  The reference files are optional: a missing one degrades enrichment,
  never the load. The two snapshot files are required.

SEE ALSO:
  - arr.NewDataset: sign normalization and indexing happen there, not here
*/
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/arr-insights/arr"
)

// ErrMissingFile is returned when a required snapshot file is absent.
var ErrMissingFile = errors.New("required source file missing")

// =============================================================================
// DIRECTORY LOAD
// =============================================================================

// LoadDir reads every collection from the given directory.
func LoadDir(dir string) (arr.Source, error) {
	var src arr.Source
	var err error

	if src.Snapshots, err = loadFile(dir, "arr_snapshots.csv", true, parseSnapshotRow); err != nil {
		return src, err
	}
	if src.Pipeline, err = loadFile(dir, "pipeline.csv", true, parsePipelineRow); err != nil {
		return src, err
	}
	if src.Contracts, err = loadFile(dir, "contracts.csv", false, parseContractRef); err != nil {
		return src, err
	}
	if src.Categories, err = loadFile(dir, "categories.csv", false, parseCategoryRef); err != nil {
		return src, err
	}
	if src.Allocations, err = loadFile(dir, "allocations.csv", false, parseAllocationRef); err != nil {
		return src, err
	}
	if src.Aliases, err = loadFile(dir, "aliases.csv", false, parseAliasRef); err != nil {
		return src, err
	}
	return src, nil
}

// record is one CSV row with header-driven field access.
type record struct {
	header map[string]int
	fields []string
}

// Get returns the trimmed cell under the named column, empty when the
// column or cell is absent.
func (r record) Get(col string) string {
	i, ok := r.header[strings.ToLower(col)]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func (r record) Dec(col string) decimal.Decimal { return parseDec(r.Get(col)) }
func (r record) Date(col string) time.Time      { return parseDate(r.Get(col)) }
func (r record) Month(col string) arr.Month     { m, _ := arr.ParseMonth(r.Get(col)); return m }

func loadFile[T any](dir, name string, required bool, parse func(record) (T, bool)) ([]T, error) {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil, nil
		}
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingFile, name)
		}
		return nil, err
	}
	defer f.Close()
	return parseAll(f, parse)
}

func parseAll[T any](f io.Reader, parse func(record) (T, bool)) ([]T, error) {
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	headerRow, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}
	header := make(map[string]int, len(headerRow))
	for i, h := range headerRow {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var out []T
	for {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if v, ok := parse(record{header: header, fields: fields}); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// =============================================================================
// ROW PARSERS
// =============================================================================

func parseSnapshotRow(r record) (arr.SnapshotRow, bool) {
	id := r.Get("contract_id")
	month := r.Month("month")
	if id == "" || month.IsZero() {
		return arr.SnapshotRow{}, false
	}
	return arr.SnapshotRow{
		ContractID:    arr.ContractID(id),
		Customer:      r.Get("customer"),
		Month:         month,
		Starting:      r.Dec("starting_arr"),
		NewBusiness:   r.Dec("new_business"),
		Expansion:     r.Dec("expansion"),
		ScheduleChng:  r.Dec("schedule_change"),
		Contraction:   r.Dec("contraction"),
		Churn:         r.Dec("churn"),
		Ending:        r.Dec("ending_arr"),
		Region:        r.Get("region"),
		Vertical:      r.Get("vertical"),
		Segment:       r.Get("segment"),
		FeesType:      r.Get("fees_type"),
		PlatformTrack: arr.Track(r.Get("platform_track")),
		GoLive:        r.Date("go_live"),
		ContractStart: r.Date("contract_start"),
		ContractEnd:   r.Date("contract_end"),
		RenewalRisk:   r.Get("renewal_risk"),
	}, true
}

func parsePipelineRow(r record) (arr.PipelineRow, bool) {
	id := r.Get("deal_id")
	month := r.Month("snapshot_month")
	if id == "" || month.IsZero() {
		return arr.PipelineRow{}, false
	}
	closeMonth := r.Month("close_month")
	if closeMonth.IsZero() {
		// Some exports carry a full close date instead of a month.
		if d := r.Date("close_date"); !d.IsZero() {
			closeMonth = arr.MonthOf(d)
		}
	}
	return arr.PipelineRow{
		DealID:        id,
		Customer:      r.Get("customer"),
		SnapshotMonth: month,
		DealValue:     r.Dec("deal_value"),
		LicenseACV:    r.Dec("license_acv"),
		LogoType:      arr.LogoType(r.Get("logo_type")),
		Stage:         r.Get("stage"),
		Probability:   r.Dec("probability"),
		CloseMonth:    closeMonth,
		Region:        r.Get("region"),
		Vertical:      r.Get("vertical"),
		Segment:       r.Get("segment"),
		SubCategory:   r.Get("sub_category"),
	}, true
}

func parseContractRef(r record) (arr.ContractRef, bool) {
	id := r.Get("contract_id")
	if id == "" {
		return arr.ContractRef{}, false
	}
	return arr.ContractRef{
		ContractID:    arr.ContractID(id),
		Vertical:      r.Get("vertical"),
		Region:        r.Get("region"),
		FeesType:      r.Get("fees_type"),
		RevenueType:   r.Get("revenue_type"),
		SegmentType:   r.Get("segment_type"),
		ContractStart: r.Date("contract_start"),
	}, true
}

func parseCategoryRef(r record) (arr.CategoryRef, bool) {
	sub := r.Get("sub_category")
	if sub == "" {
		return arr.CategoryRef{}, false
	}
	return arr.CategoryRef{SubCategory: sub, Category: r.Get("category")}, true
}

// parseAllocationRef reads the percentage columns: every header that parses
// as a 4-digit year becomes one YearPercent column, kept sorted ascending.
func parseAllocationRef(r record) (arr.AllocationRef, bool) {
	id := r.Get("contract_id")
	sub := r.Get("sub_category")
	if id == "" || sub == "" {
		return arr.AllocationRef{}, false
	}
	a := arr.AllocationRef{ContractID: arr.ContractID(id), SubCategory: sub}
	years := make([]int, 0, len(r.header))
	for col := range r.header {
		if y, err := strconv.Atoi(col); err == nil && y >= 1900 && y <= 2999 {
			years = append(years, y)
		}
	}
	sort.Ints(years)
	for _, y := range years {
		a.Percents = append(a.Percents, arr.YearPercent{Year: y, Pct: r.Dec(strconv.Itoa(y))})
	}
	return a, true
}

func parseAliasRef(r record) (arr.AliasRef, bool) {
	legal := r.Get("legal_name")
	pipe := r.Get("pipeline_name")
	if legal == "" || pipe == "" {
		return arr.AliasRef{}, false
	}
	return arr.AliasRef{LegalName: legal, PipelineName: pipe}, true
}

// =============================================================================
// FIELD PARSERS - zero-fill on anything malformed
// =============================================================================

func parseDec(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	// Tolerate currency formatting in exports.
	s = strings.NewReplacer("$", "", ",", "", "%", "").Replace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02", "01/02/2006", "2006-01-02T15:04:05Z07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
