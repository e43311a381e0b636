package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/efund/unitperf/internal/contracts"
)

// Repository reads trading-day reference data.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new calendar repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TradingDays returns the ordered, de-duplicated trading dates of a market
// within [begin, end]. Market aliases are normalized (HK -> HKEX, A -> SSE).
func (r *Repository) TradingDays(ctx context.Context, begin, end time.Time, market string) ([]time.Time, error) {
	m := contracts.NormalizeMarket(market)

	query := `
		SELECT DISTINCT trading_day
		FROM factor_basic_trading_day
		WHERE market = $1
		  AND trading_day BETWEEN $2 AND $3
		ORDER BY trading_day
	`

	rows, err := r.pool.Query(ctx, query, string(m), begin, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query trading days: %w", err)
	}
	defer rows.Close()

	days := make([]time.Time, 0)
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan trading day: %w", err)
		}
		days = append(days, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trading days: %w", err)
	}

	return days, nil
}
