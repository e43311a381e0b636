package corpaction

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/efund/unitperf/internal/contracts"
)

// Repository loads corporate action facts. Actions are maintained by the
// ingestion side and only read here.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new corporate action repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Actions loads the A-share and Hong Kong actions for the given stocks with
// an ex-date inside [begin, end]. Duplicate (ex_date, stock) rows keep the
// first occurrence; economic no-ops are dropped.
func (r *Repository) Actions(ctx context.Context, codes []string, begin, end time.Time) ([]contracts.CorporateAction, error) {
	queryA := `
		SELECT stk_code, ex_dt, COALESCE(cash_div, 0), COALESCE(stk_div, 0)
		FROM factor_dividend_a
		WHERE stk_code = ANY($1) AND ex_dt BETWEEN $2 AND $3
		ORDER BY ex_dt, stk_code
	`
	queryHK := `
		SELECT stk_code, ex_dt, COALESCE(cash_div_ratio, 0), COALESCE(stk_div, 0)
		FROM factor_dividend_hk
		WHERE stk_code = ANY($1) AND ex_dt BETWEEN $2 AND $3
		ORDER BY ex_dt, stk_code
	`

	var out []contracts.CorporateAction
	seen := make(map[string]int)
	for _, q := range []string{queryA, queryHK} {
		rows, err := r.pool.Query(ctx, q, codes, begin, end)
		if err != nil {
			return nil, fmt.Errorf("failed to query corporate actions: %w", err)
		}
		for rows.Next() {
			var a contracts.CorporateAction
			if err := rows.Scan(&a.StockCode, &a.ExDate, &a.CashDividend, &a.StockDivRatio); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan corporate action: %w", err)
			}
			if a.IsNoop() {
				continue
			}
			// duplicated (ex_date, stock) keeps the first value per
			// component; cash and ratio are deduplicated independently
			key := a.ExDate.Format("20060102") + "|" + a.StockCode
			if i, dup := seen[key]; dup {
				if out[i].CashDividend <= 0 {
					out[i].CashDividend = a.CashDividend
				}
				if out[i].StockDivRatio <= 0 {
					out[i].StockDivRatio = a.StockDivRatio
				}
				continue
			}
			seen[key] = len(out)
			out = append(out, a)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read corporate actions: %w", err)
		}
	}
	return out, nil
}
