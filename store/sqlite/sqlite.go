/*
Package sqlite persists the loaded input collections.

PURPOSE:
  The engine itself never touches storage: it computes over an immutable
  in-memory Dataset. This store exists so a server restart does not require
  re-ingesting the source CSVs — the collections are written once after a
  load and read back as a whole on startup.

KEY TABLES:
  arr_snapshots:   one row per (contract, snapshot month)
  pipeline:        one row per (deal, snapshot month)
  contracts:       contract reference metadata
  categories:      sub-category -> category mapping
  allocations:     product-allocation percentage rows (columns as JSON)
  aliases:         legal name <-> pipeline name

SEMANTICS:
  SaveSource replaces the whole dataset transactionally; LoadSource reads
  it back. There are no row-level updates: the source tables are replaced
  wholesale on every re-ingest, mirroring the load-once lifecycle of the
  in-memory collections.

WAL MODE:
  SQLite is opened with WAL so concurrent readers never block the writer.

USAGE:
  store, err := sqlite.New("./data/arr.db")
  ...
  src, err := store.LoadSource(ctx)
  ds := arr.NewDataset(src)
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/arr-insights/arr"
)

// Store persists and restores the input collections.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (and migrates) the store. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS arr_snapshots (
		contract_id TEXT NOT NULL,
		customer TEXT NOT NULL,
		month TEXT NOT NULL,
		starting TEXT NOT NULL,
		new_business TEXT NOT NULL,
		expansion TEXT NOT NULL,
		schedule_change TEXT NOT NULL,
		contraction TEXT NOT NULL,
		churn TEXT NOT NULL,
		ending TEXT NOT NULL,
		region TEXT,
		vertical TEXT,
		segment TEXT,
		fees_type TEXT,
		platform_track TEXT,
		go_live TEXT,
		contract_start TEXT,
		contract_end TEXT,
		renewal_risk TEXT,
		PRIMARY KEY (contract_id, month)
	);

	CREATE INDEX IF NOT EXISTS idx_arr_snapshots_month
		ON arr_snapshots(month);
	CREATE INDEX IF NOT EXISTS idx_arr_snapshots_customer
		ON arr_snapshots(customer, month);

	CREATE TABLE IF NOT EXISTS pipeline (
		deal_id TEXT NOT NULL,
		customer TEXT NOT NULL,
		snapshot_month TEXT NOT NULL,
		deal_value TEXT NOT NULL,
		license_acv TEXT NOT NULL,
		logo_type TEXT,
		stage TEXT,
		probability TEXT,
		close_month TEXT,
		region TEXT,
		vertical TEXT,
		segment TEXT,
		sub_category TEXT,
		PRIMARY KEY (deal_id, snapshot_month)
	);

	CREATE INDEX IF NOT EXISTS idx_pipeline_snapshot_month
		ON pipeline(snapshot_month);

	CREATE TABLE IF NOT EXISTS contracts (
		contract_id TEXT PRIMARY KEY,
		vertical TEXT,
		region TEXT,
		fees_type TEXT,
		revenue_type TEXT,
		segment_type TEXT,
		contract_start TEXT
	);

	CREATE TABLE IF NOT EXISTS categories (
		sub_category TEXT PRIMARY KEY,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS allocations (
		contract_id TEXT NOT NULL,
		sub_category TEXT NOT NULL,
		percents_json TEXT NOT NULL,
		PRIMARY KEY (contract_id, sub_category)
	);

	CREATE TABLE IF NOT EXISTS aliases (
		legal_name TEXT PRIMARY KEY,
		pipeline_name TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SAVE
// =============================================================================

// SaveSource replaces the persisted dataset with src, transactionally.
func (s *Store) SaveSource(ctx context.Context, src arr.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"arr_snapshots", "pipeline", "contracts", "categories", "allocations", "aliases"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}

	for _, r := range src.Snapshots {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO arr_snapshots
			(contract_id, customer, month, starting, new_business, expansion,
			 schedule_change, contraction, churn, ending, region, vertical,
			 segment, fees_type, platform_track, go_live, contract_start,
			 contract_end, renewal_risk)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			string(r.ContractID), r.Customer, r.Month.String(),
			r.Starting.String(), r.NewBusiness.String(), r.Expansion.String(),
			r.ScheduleChng.String(), r.Contraction.String(), r.Churn.String(),
			r.Ending.String(), r.Region, r.Vertical, r.Segment, r.FeesType,
			string(r.PlatformTrack), dateStr(r.GoLive), dateStr(r.ContractStart),
			dateStr(r.ContractEnd), r.RenewalRisk)
		if err != nil {
			return err
		}
	}

	for _, p := range src.Pipeline {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO pipeline
			(deal_id, customer, snapshot_month, deal_value, license_acv,
			 logo_type, stage, probability, close_month, region, vertical,
			 segment, sub_category)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			p.DealID, p.Customer, p.SnapshotMonth.String(),
			p.DealValue.String(), p.LicenseACV.String(), string(p.LogoType),
			p.Stage, p.Probability.String(), p.CloseMonth.String(),
			p.Region, p.Vertical, p.Segment, p.SubCategory)
		if err != nil {
			return err
		}
	}

	for _, c := range src.Contracts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO contracts
			(contract_id, vertical, region, fees_type, revenue_type, segment_type, contract_start)
			VALUES (?,?,?,?,?,?,?)`,
			string(c.ContractID), c.Vertical, c.Region, c.FeesType,
			c.RevenueType, c.SegmentType, dateStr(c.ContractStart))
		if err != nil {
			return err
		}
	}

	for _, c := range src.Categories {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (sub_category, category) VALUES (?,?)`,
			c.SubCategory, c.Category); err != nil {
			return err
		}
	}

	for _, a := range src.Allocations {
		percents, err := json.Marshal(a.Percents)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO allocations (contract_id, sub_category, percents_json) VALUES (?,?,?)`,
			string(a.ContractID), a.SubCategory, string(percents)); err != nil {
			return err
		}
	}

	for _, a := range src.Aliases {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO aliases (legal_name, pipeline_name) VALUES (?,?)`,
			a.LegalName, a.PipelineName); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// =============================================================================
// LOAD
// =============================================================================

// LoadSource reads the whole persisted dataset back.
func (s *Store) LoadSource(ctx context.Context) (arr.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var src arr.Source

	rows, err := s.db.QueryContext(ctx, `
		SELECT contract_id, customer, month, starting, new_business, expansion,
		       schedule_change, contraction, churn, ending, region, vertical,
		       segment, fees_type, platform_track, go_live, contract_start,
		       contract_end, renewal_risk
		FROM arr_snapshots ORDER BY month, contract_id`)
	if err != nil {
		return src, err
	}
	defer rows.Close()
	for rows.Next() {
		var r arr.SnapshotRow
		var contractID, month, starting, newBiz, expansion, sched, contraction, churn, ending string
		var track, goLive, cStart, cEnd string
		if err := rows.Scan(&contractID, &r.Customer, &month, &starting, &newBiz,
			&expansion, &sched, &contraction, &churn, &ending, &r.Region,
			&r.Vertical, &r.Segment, &r.FeesType, &track, &goLive, &cStart,
			&cEnd, &r.RenewalRisk); err != nil {
			return src, err
		}
		r.ContractID = arr.ContractID(contractID)
		r.Month, _ = arr.ParseMonth(month)
		r.Starting = dec(starting)
		r.NewBusiness = dec(newBiz)
		r.Expansion = dec(expansion)
		r.ScheduleChng = dec(sched)
		r.Contraction = dec(contraction)
		r.Churn = dec(churn)
		r.Ending = dec(ending)
		r.PlatformTrack = arr.Track(track)
		r.GoLive = parseDate(goLive)
		r.ContractStart = parseDate(cStart)
		r.ContractEnd = parseDate(cEnd)
		src.Snapshots = append(src.Snapshots, r)
	}
	if err := rows.Err(); err != nil {
		return src, err
	}

	prows, err := s.db.QueryContext(ctx, `
		SELECT deal_id, customer, snapshot_month, deal_value, license_acv,
		       logo_type, stage, probability, close_month, region, vertical,
		       segment, sub_category
		FROM pipeline ORDER BY snapshot_month, deal_id`)
	if err != nil {
		return src, err
	}
	defer prows.Close()
	for prows.Next() {
		var p arr.PipelineRow
		var snapMonth, dealValue, acv, logo, probability, closeMonth string
		if err := prows.Scan(&p.DealID, &p.Customer, &snapMonth, &dealValue,
			&acv, &logo, &p.Stage, &probability, &closeMonth, &p.Region,
			&p.Vertical, &p.Segment, &p.SubCategory); err != nil {
			return src, err
		}
		p.SnapshotMonth, _ = arr.ParseMonth(snapMonth)
		p.DealValue = dec(dealValue)
		p.LicenseACV = dec(acv)
		p.LogoType = arr.LogoType(logo)
		p.Probability = dec(probability)
		p.CloseMonth, _ = arr.ParseMonth(closeMonth)
		src.Pipeline = append(src.Pipeline, p)
	}
	if err := prows.Err(); err != nil {
		return src, err
	}

	crows, err := s.db.QueryContext(ctx, `
		SELECT contract_id, vertical, region, fees_type, revenue_type,
		       segment_type, contract_start
		FROM contracts`)
	if err != nil {
		return src, err
	}
	defer crows.Close()
	for crows.Next() {
		var c arr.ContractRef
		var contractID, start string
		if err := crows.Scan(&contractID, &c.Vertical, &c.Region, &c.FeesType,
			&c.RevenueType, &c.SegmentType, &start); err != nil {
			return src, err
		}
		c.ContractID = arr.ContractID(contractID)
		c.ContractStart = parseDate(start)
		src.Contracts = append(src.Contracts, c)
	}
	if err := crows.Err(); err != nil {
		return src, err
	}

	catRows, err := s.db.QueryContext(ctx, `SELECT sub_category, category FROM categories`)
	if err != nil {
		return src, err
	}
	defer catRows.Close()
	for catRows.Next() {
		var c arr.CategoryRef
		if err := catRows.Scan(&c.SubCategory, &c.Category); err != nil {
			return src, err
		}
		src.Categories = append(src.Categories, c)
	}
	if err := catRows.Err(); err != nil {
		return src, err
	}

	aRows, err := s.db.QueryContext(ctx, `SELECT contract_id, sub_category, percents_json FROM allocations`)
	if err != nil {
		return src, err
	}
	defer aRows.Close()
	for aRows.Next() {
		var a arr.AllocationRef
		var contractID, percents string
		if err := aRows.Scan(&contractID, &a.SubCategory, &percents); err != nil {
			return src, err
		}
		a.ContractID = arr.ContractID(contractID)
		if err := json.Unmarshal([]byte(percents), &a.Percents); err != nil {
			return src, err
		}
		src.Allocations = append(src.Allocations, a)
	}
	if err := aRows.Err(); err != nil {
		return src, err
	}

	alRows, err := s.db.QueryContext(ctx, `SELECT legal_name, pipeline_name FROM aliases`)
	if err != nil {
		return src, err
	}
	defer alRows.Close()
	for alRows.Next() {
		var a arr.AliasRef
		if err := alRows.Scan(&a.LegalName, &a.PipelineName); err != nil {
			return src, err
		}
		src.Aliases = append(src.Aliases, a)
	}
	return src, alRows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func dateStr(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
