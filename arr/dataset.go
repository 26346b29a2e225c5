/*
dataset.go - Immutable dataset container and reference indices

PURPOSE:
  Dataset holds every input collection for the lifetime of the process and
  the lookup indices derived from them. It is the single normalization point
  for the source data's loose conventions:

  1. SIGN NORMALIZATION: contraction and churn arrive sometimes as negative
     values and sometimes as positive magnitudes. They are normalized to
     non-positive here, once, so no consumer ever re-normalizes.
  2. REFERENCE INDICES: contract metadata, sub-category -> category, and
     legal-name <-> pipeline-name aliases become maps built at construction.
  3. LATEST-TRACK INDEX: customer name -> effective platform track of that
     customer's most recent snapshot row, used to classify pipeline deals
     that have no snapshot context of their own.

CONCURRENCY:
  A Dataset is immutable after New. All indices are built eagerly in New,
  so any number of request handlers can share one Dataset without locks.

SEE ALSO:
  - types.go:  row definitions
  - filter.go: predicates evaluated against Dataset rows
*/
package arr

import (
	"sort"
	"time"
)

// =============================================================================
// SOURCE COLLECTIONS
// =============================================================================

// Source is what the external loader hands over: one typed record per source
// row, schema already validated upstream.
type Source struct {
	Snapshots   []SnapshotRow
	Pipeline    []PipelineRow
	Contracts   []ContractRef
	Categories  []CategoryRef
	Allocations []AllocationRef
	Aliases     []AliasRef
}

// =============================================================================
// DATASET
// =============================================================================

// Dataset is the immutable, fully indexed view of one data load.
type Dataset struct {
	Snapshots []SnapshotRow
	Pipeline  []PipelineRow

	contracts    map[ContractID]ContractRef
	categories   map[string]string
	allocations  map[ContractID][]AllocationRef
	aliasByLegal map[string]string // legal name -> pipeline name
	aliasByPipe  map[string]string // pipeline name -> legal name

	latestTrack  map[string]Track // customer name -> effective track, latest row
	pipelineAsOf Month            // most recent pipeline snapshot month
}

// NewDataset builds the indexed dataset. Sign normalization happens here and
// nowhere else: after this call Contraction and Churn are <= 0 on every row.
func NewDataset(src Source) *Dataset {
	ds := &Dataset{
		Snapshots:    normalizeSigns(src.Snapshots),
		Pipeline:     src.Pipeline,
		contracts:    make(map[ContractID]ContractRef, len(src.Contracts)),
		categories:   make(map[string]string, len(src.Categories)),
		allocations:  make(map[ContractID][]AllocationRef),
		aliasByLegal: make(map[string]string, len(src.Aliases)),
		aliasByPipe:  make(map[string]string, len(src.Aliases)),
		latestTrack:  make(map[string]Track),
	}

	for _, c := range src.Contracts {
		ds.contracts[c.ContractID] = c
	}
	for _, c := range src.Categories {
		ds.categories[c.SubCategory] = c.Category
	}
	for _, a := range src.Allocations {
		ds.allocations[a.ContractID] = append(ds.allocations[a.ContractID], a)
	}
	for _, a := range src.Aliases {
		if a.LegalName != "" && a.PipelineName != "" {
			ds.aliasByLegal[a.LegalName] = a.PipelineName
			ds.aliasByPipe[a.PipelineName] = a.LegalName
		}
	}

	ds.buildTrackIndex()
	for _, p := range ds.Pipeline {
		if p.SnapshotMonth.After(ds.pipelineAsOf) {
			ds.pipelineAsOf = p.SnapshotMonth
		}
	}
	return ds
}

// normalizeSigns stores contraction and churn as non-positive regardless of
// how the source reported them. The true upstream convention is unverified;
// magnitude is what the data reliably carries, so the sign is imposed here.
func normalizeSigns(rows []SnapshotRow) []SnapshotRow {
	out := make([]SnapshotRow, len(rows))
	for i, r := range rows {
		r.Contraction = r.Contraction.Abs().Neg()
		r.Churn = r.Churn.Abs().Neg()
		out[i] = r
	}
	return out
}

// buildTrackIndex records each customer's effective track as of their most
// recent snapshot row. Explicit sort-then-reduce: group, sort by month
// descending, take the head. Iteration order of the source never matters.
func (ds *Dataset) buildTrackIndex() {
	byCustomer := make(map[string][]SnapshotRow)
	for _, r := range ds.Snapshots {
		if r.Customer == "" {
			continue
		}
		byCustomer[r.Customer] = append(byCustomer[r.Customer], r)
	}
	for name, rows := range byCustomer {
		sort.Slice(rows, func(i, j int) bool { return rows[i].Month.After(rows[j].Month) })
		head := rows[0]
		ds.latestTrack[name] = EffectiveTrack(head.PlatformTrack, head.GoLive, head.Month)
	}
}

// =============================================================================
// EFFECTIVE PLATFORM TRACK
// =============================================================================

// EffectiveTrack resolves the platform track of a row for a reference month.
// With a go-live date the track is SMART strictly before the go-live month
// and Quantum from it onward; the row's own label only applies when no
// go-live is known. Evaluation is always against the row's month, never
// against "today": a contract's track changes mid-timeline.
func EffectiveTrack(label Track, goLive time.Time, at Month) Track {
	if !goLive.IsZero() {
		if at.Before(MonthOf(goLive)) {
			return TrackSMART
		}
		return TrackQuantum
	}
	if label == "" {
		return TrackSMART
	}
	return label
}

// =============================================================================
// INDEX LOOKUPS
// =============================================================================

// Contract returns the reference metadata for a contract.
func (ds *Dataset) Contract(id ContractID) (ContractRef, bool) {
	c, ok := ds.contracts[id]
	return c, ok
}

// Category maps a sub-category to its category, falling back to "Other" for
// anything unmapped. A missing reference row degrades enrichment, nothing
// more.
func (ds *Dataset) Category(subCategory string) string {
	if c, ok := ds.categories[subCategory]; ok && c != "" {
		return c
	}
	return "Other"
}

// AllocationsFor returns the product-allocation rows for a contract.
func (ds *Dataset) AllocationsFor(id ContractID) []AllocationRef {
	return ds.allocations[id]
}

// TrackFor resolves a pipeline customer's platform track through the
// latest-track index, trying the name as given and then its alias in both
// directions. New-logo deals never reach this path (they are always Quantum).
func (ds *Dataset) TrackFor(customer string) (Track, bool) {
	if t, ok := ds.latestTrack[customer]; ok {
		return t, true
	}
	if legal, ok := ds.aliasByPipe[customer]; ok {
		if t, ok := ds.latestTrack[legal]; ok {
			return t, true
		}
	}
	if pipe, ok := ds.aliasByLegal[customer]; ok {
		if t, ok := ds.latestTrack[pipe]; ok {
			return t, true
		}
	}
	return "", false
}

// PipelineAsOf returns the most recent pipeline snapshot month.
func (ds *Dataset) PipelineAsOf() Month { return ds.pipelineAsOf }

// OpenPipeline returns the open deals of the most recent pipeline snapshot,
// the only rows that feed forecasting.
func (ds *Dataset) OpenPipeline() []PipelineRow {
	var open []PipelineRow
	for _, p := range ds.Pipeline {
		if p.SnapshotMonth.Equal(ds.pipelineAsOf) && p.Open() {
			open = append(open, p)
		}
	}
	return open
}
