// Package positions loads and filters unit holding history: the per-stock
// daily rows, the unit-level summaries, and the IPO-allotment exclusion
// applied before any attribution runs.
package positions

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/efund/unitperf/internal/contracts"
)

// Repository reads unit holding facts maintained by the ingestion side.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new positions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UnitStockRows loads the per-stock daily rows of one unit inside
// [begin, end]. Null market values and trade fields come back as zero.
func (r *Repository) UnitStockRows(ctx context.Context, unitID int, begin, end time.Time) ([]contracts.PositionRow, error) {
	query := `
		SELECT unit_id, date, stk_code,
		       COALESCE(weight, 0), COALESCE(mv, 0), COALESCE(position, 0),
		       COALESCE(vol, 0), COALESCE(amount, 0)
		FROM factor_unit_stock_ims
		WHERE unit_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date, stk_code
	`
	rows, err := r.pool.Query(ctx, query, unitID, begin, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query unit stock rows: %w", err)
	}
	defer rows.Close()

	var out []contracts.PositionRow
	for rows.Next() {
		var p contracts.PositionRow
		if err := rows.Scan(&p.UnitID, &p.Date, &p.StockCode,
			&p.Weight, &p.MarketValue, &p.Position, &p.Volume, &p.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan unit stock row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read unit stock rows: %w", err)
	}
	return out, nil
}

// UnitSummaries loads the unit-level daily rows for the given units inside
// [begin, end].
func (r *Repository) UnitSummaries(ctx context.Context, unitIDs []int, begin, end time.Time) ([]contracts.UnitSummary, error) {
	query := `
		SELECT unit_id, date, COALESCE(net_asset, 0), COALESCE(ret_daily, 0),
		       COALESCE(net_purchase_ratio, 0)
		FROM factor_unit_ims
		WHERE unit_id = ANY($1) AND date BETWEEN $2 AND $3
		ORDER BY date, unit_id
	`
	rows, err := r.pool.Query(ctx, query, unitIDs, begin, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query unit summaries: %w", err)
	}
	defer rows.Close()

	var out []contracts.UnitSummary
	for rows.Next() {
		var u contracts.UnitSummary
		if err := rows.Scan(&u.UnitID, &u.Date, &u.NetAsset, &u.DailyReturn, &u.NetPurchaseRatio); err != nil {
			return nil, fmt.Errorf("failed to scan unit summary: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read unit summaries: %w", err)
	}
	return out, nil
}

// ActiveUnitIDs returns every unit with at least one summary row at or
// after the given date. Scheduled recomputes iterate over this set.
func (r *Repository) ActiveUnitIDs(ctx context.Context, since time.Time) ([]int, error) {
	query := `
		SELECT DISTINCT unit_id FROM factor_unit_ims
		WHERE date >= $1
		ORDER BY unit_id
	`
	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query active units: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan unit id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read active units: %w", err)
	}
	return out, nil
}

// Listings loads listing dates for the given stocks from both markets'
// reference tables.
func (r *Repository) Listings(ctx context.Context, codes []string) ([]contracts.StockListing, error) {
	query := `
		SELECT stk_code, list_date FROM factor_basic_stock_a
		WHERE stk_code = ANY($1) AND list_date IS NOT NULL
		UNION ALL
		SELECT stk_code, list_date FROM factor_basic_stock_hk
		WHERE stk_code = ANY($1) AND list_date IS NOT NULL
	`
	rows, err := r.pool.Query(ctx, query, codes)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock listings: %w", err)
	}
	defer rows.Close()

	var out []contracts.StockListing
	for rows.Next() {
		var l contracts.StockListing
		if err := rows.Scan(&l.StockCode, &l.ListDate); err != nil {
			return nil, fmt.Errorf("failed to scan stock listing: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stock listings: %w", err)
	}
	return out, nil
}
