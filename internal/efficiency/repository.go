package efficiency

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/efund/unitperf/internal/contracts"
)

// Repository persists trade efficiency rows: periodic results keyed by
// (unit_id, freq, date), rolling results by (unit_id, window, date).
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an efficiency result repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SavePeriodic upserts fixed-frequency efficiency rows.
func (r *Repository) SavePeriodic(ctx context.Context, results []contracts.EfficiencyResult) error {
	query := `
		INSERT INTO factor_unit_trade_efficiency_periodical (
			unit_id, freq, date, efficiency
		) VALUES ($1, $2, $3, $4)
		ON CONFLICT (unit_id, freq, date) DO UPDATE SET
			efficiency = EXCLUDED.efficiency
	`
	for _, res := range results {
		_, err := r.pool.Exec(ctx, query, res.UnitID, res.Freq, res.Date, nullableFloat(res.Efficiency))
		if err != nil {
			return fmt.Errorf("failed to save periodic efficiency row: %w", err)
		}
	}
	return nil
}

// SaveRolling upserts rolling-window efficiency rows.
func (r *Repository) SaveRolling(ctx context.Context, results []contracts.EfficiencyResult) error {
	query := `
		INSERT INTO factor_unit_trade_efficiency_continuous (
			unit_id, window, date, efficiency
		) VALUES ($1, $2, $3, $4)
		ON CONFLICT (unit_id, window, date) DO UPDATE SET
			efficiency = EXCLUDED.efficiency
	`
	for _, res := range results {
		_, err := r.pool.Exec(ctx, query, res.UnitID, res.WindowDays, res.Date, nullableFloat(res.Efficiency))
		if err != nil {
			return fmt.Errorf("failed to save rolling efficiency row: %w", err)
		}
	}
	return nil
}

func nullableFloat(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
