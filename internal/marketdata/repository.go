// Package marketdata serves quote history as date-by-stock frames. Frames
// for both markets are merged onto the mainland calendar once per batch run
// and treated as immutable snapshots for the duration of that run.
package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/efund/unitperf/internal/calendar"
	"github.com/efund/unitperf/internal/contracts"
	"github.com/efund/unitperf/internal/timeseries"
	"github.com/efund/unitperf/pkg/logger"
	"github.com/efund/unitperf/pkg/redis"
)

// quote field columns that may be pivoted into a frame
var frameFields = map[string]struct{}{
	"open": {}, "high": {}, "low": {}, "close": {}, "pre_close": {},
	"vol": {}, "amount": {}, "adj_factor": {}, "vwap": {},
}

// Repository loads quote frames, optionally through a Redis snapshot cache.
type Repository struct {
	pool    *pgxpool.Pool
	aligner *calendar.Aligner
	cache   *redis.Cache
	logger  *logger.Logger
}

// NewRepository creates a quote repository. cache may be nil.
func NewRepository(pool *pgxpool.Pool, aligner *calendar.Aligner, cache *redis.Cache, log *logger.Logger) *Repository {
	return &Repository{pool: pool, aligner: aligner, cache: cache, logger: log}
}

// QuoteFrame pivots one quote field of one market into a date-by-stock frame.
func (r *Repository) QuoteFrame(ctx context.Context, market contracts.Market, field string, begin, end time.Time) (*timeseries.Frame, error) {
	if _, ok := frameFields[field]; !ok {
		return nil, fmt.Errorf("unknown quote field %q", field)
	}
	table := "factor_quote_a"
	if contracts.NormalizeMarket(string(market)) == contracts.MarketHKEX {
		table = "factor_quote_hk"
	}
	query := fmt.Sprintf(`
		SELECT date, stk_code, %s
		FROM %s
		WHERE date BETWEEN $1 AND $2 AND %s IS NOT NULL
		ORDER BY date, stk_code
	`, field, table, field)

	rows, err := r.pool.Query(ctx, query, begin, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query quote frame: %w", err)
	}
	defer rows.Close()

	var cells []frameCell
	for rows.Next() {
		var c frameCell
		if err := rows.Scan(&c.Date, &c.StockCode, &c.Value); err != nil {
			return nil, fmt.Errorf("failed to scan quote row: %w", err)
		}
		cells = append(cells, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read quote rows: %w", err)
	}
	return buildFrame(cells), nil
}

// MergedFrame loads one quote field for both markets and merges them onto
// the mainland calendar. Results are cached per (field, range) when a cache
// is configured; cache trouble degrades to a plain load.
func (r *Repository) MergedFrame(ctx context.Context, field string, begin, end time.Time) (*timeseries.Frame, error) {
	key := redis.QuoteFrameKey(field, begin.Format("20060102"), end.Format("20060102"))
	if r.cache != nil {
		var cells []frameCell
		hit, err := r.cache.Get(ctx, key, &cells)
		if err != nil {
			r.logger.WithError(err).Warn("quote frame cache read failed")
		} else if hit {
			return buildFrame(cells), nil
		}
	}

	frameA, err := r.QuoteFrame(ctx, contracts.MarketSSE, field, begin, end)
	if err != nil {
		return nil, err
	}
	frameHK, err := r.QuoteFrame(ctx, contracts.MarketHKEX, field, begin, end)
	if err != nil {
		return nil, err
	}
	merged := r.aligner.MergeMarkets(frameA, frameHK, contracts.MarketSSE)

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, flattenFrame(merged), redis.TTLDaily); err != nil {
			r.logger.WithError(err).Warn("quote frame cache write failed")
		}
	}
	return merged, nil
}

// frameCell is the flat cache/scan form of one frame entry.
type frameCell struct {
	Date      time.Time `json:"d"`
	StockCode string    `json:"c"`
	Value     float64   `json:"v"`
}

func buildFrame(cells []frameCell) *timeseries.Frame {
	dates := make([]time.Time, 0, len(cells))
	codes := make([]string, 0, len(cells))
	for _, c := range cells {
		dates = append(dates, c.Date)
		codes = append(codes, c.StockCode)
	}
	f := timeseries.NewFrame(dates, codes)
	for _, c := range cells {
		f.Set(c.Date, c.StockCode, c.Value)
	}
	return f
}

func flattenFrame(f *timeseries.Frame) []frameCell {
	var cells []frameCell
	for _, d := range f.Dates() {
		for _, c := range f.Codes() {
			v := f.Get(d, c)
			if v == v { // skip NaN holes
				cells = append(cells, frameCell{Date: d, StockCode: c, Value: v})
			}
		}
	}
	return cells
}
