package turnover

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/efund/unitperf/internal/contracts"
)

// Repository persists turnover result rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a turnover result repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save upserts result rows keyed by (unit_id, date). NaN values persist as
// NULL: not computable, never zero.
func (r *Repository) Save(ctx context.Context, results []contracts.TurnoverResult) error {
	query := `
		INSERT INTO factor_unit_turnover (
			unit_id, date, buy_turn1, sell_turn1, buy_turn2, sell_turn2
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (unit_id, date) DO UPDATE SET
			buy_turn1 = EXCLUDED.buy_turn1,
			sell_turn1 = EXCLUDED.sell_turn1,
			buy_turn2 = EXCLUDED.buy_turn2,
			sell_turn2 = EXCLUDED.sell_turn2
	`
	for _, res := range results {
		_, err := r.pool.Exec(ctx, query,
			res.UnitID, res.Date,
			nullableFloat(res.BuyTurn1), nullableFloat(res.SellTurn1),
			nullableFloat(res.BuyTurn2), nullableFloat(res.SellTurn2),
		)
		if err != nil {
			return fmt.Errorf("failed to save turnover row: %w", err)
		}
	}
	return nil
}

// Range loads saved turnover rows for the units inside [begin, end]. NULL
// values come back as NaN.
func (r *Repository) Range(ctx context.Context, unitIDs []int, begin, end time.Time) ([]contracts.TurnoverResult, error) {
	query := `
		SELECT unit_id, date, buy_turn1, sell_turn1, buy_turn2, sell_turn2
		FROM factor_unit_turnover
		WHERE unit_id = ANY($1) AND date BETWEEN $2 AND $3
		ORDER BY date, unit_id
	`
	rows, err := r.pool.Query(ctx, query, unitIDs, begin, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query turnover rows: %w", err)
	}
	defer rows.Close()

	var out []contracts.TurnoverResult
	for rows.Next() {
		var res contracts.TurnoverResult
		var bt1, st1, bt2, st2 *float64
		if err := rows.Scan(&res.UnitID, &res.Date, &bt1, &st1, &bt2, &st2); err != nil {
			return nil, fmt.Errorf("failed to scan turnover row: %w", err)
		}
		res.BuyTurn1, res.SellTurn1 = deref(bt1), deref(st1)
		res.BuyTurn2, res.SellTurn2 = deref(bt2), deref(st2)
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read turnover rows: %w", err)
	}
	return out, nil
}

// nullableFloat maps NaN to SQL NULL.
func nullableFloat(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func deref(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
