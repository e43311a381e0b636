package swing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/efund/unitperf/internal/contracts"
)

// Repository persists swing-trade result rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a swing result repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save upserts result rows keyed by (unit_id, window, date).
func (r *Repository) Save(ctx context.Context, results []contracts.SwingResult) error {
	query := `
		INSERT INTO factor_unit_swing_trade_ret (
			unit_id, window, date, swing_trade_ret
		) VALUES ($1, $2, $3, $4)
		ON CONFLICT (unit_id, window, date) DO UPDATE SET
			swing_trade_ret = EXCLUDED.swing_trade_ret
	`
	for _, res := range results {
		var ret interface{} = res.SwingReturn
		if math.IsNaN(res.SwingReturn) {
			ret = nil
		}
		_, err := r.pool.Exec(ctx, query, res.UnitID, res.WindowMonths, res.Date, ret)
		if err != nil {
			return fmt.Errorf("failed to save swing trade row: %w", err)
		}
	}
	return nil
}

// Range loads saved swing rows of one window length for the units inside
// [begin, end]. NULL returns come back as NaN.
func (r *Repository) Range(ctx context.Context, unitIDs []int, windowMonths int, begin, end time.Time) ([]contracts.SwingResult, error) {
	query := `
		SELECT unit_id, window, date, swing_trade_ret
		FROM factor_unit_swing_trade_ret
		WHERE unit_id = ANY($1) AND window = $2 AND date BETWEEN $3 AND $4
		ORDER BY date, unit_id
	`
	rows, err := r.pool.Query(ctx, query, unitIDs, windowMonths, begin, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query swing trade rows: %w", err)
	}
	defer rows.Close()

	var out []contracts.SwingResult
	for rows.Next() {
		var res contracts.SwingResult
		var ret *float64
		if err := rows.Scan(&res.UnitID, &res.WindowMonths, &res.Date, &ret); err != nil {
			return nil, fmt.Errorf("failed to scan swing trade row: %w", err)
		}
		if ret != nil {
			res.SwingReturn = *ret
		} else {
			res.SwingReturn = math.NaN()
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read swing trade rows: %w", err)
	}
	return out, nil
}
