package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/efund/unitperf/internal/contracts"
	"github.com/efund/unitperf/pkg/logger"
	"github.com/efund/unitperf/pkg/redis"
)

// Checker screens position rows against both market calendars before an
// engine consumes them. Calendars are immutable per day, so lookups go
// through the Redis snapshot cache when one is configured.
type Checker struct {
	repo    *Repository
	aligner *Aligner
	cache   *redis.Cache
	logger  *logger.Logger
}

// NewChecker creates a checker. cache may be nil.
func NewChecker(repo *Repository, aligner *Aligner, cache *redis.Cache, log *logger.Logger) *Checker {
	return &Checker{repo: repo, aligner: aligner, cache: cache, logger: log}
}

// ScreenRows drops rows dated on a day that is a trading day on neither
// market, logging each loudly. Calendar load failures abort the batch
// rather than letting bad rows through.
func (c *Checker) ScreenRows(ctx context.Context, rows []contracts.PositionRow, begin, end time.Time) ([]contracts.PositionRow, error) {
	if len(rows) == 0 {
		return rows, nil
	}

	calA, err := c.tradingDays(ctx, string(contracts.MarketSSE), begin, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load A-share calendar: %w", err)
	}
	calHK, err := c.tradingDays(ctx, string(contracts.MarketHKEX), begin, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load HK calendar: %w", err)
	}

	return c.aligner.ValidateDates(rows, calA, calHK), nil
}

func (c *Checker) tradingDays(ctx context.Context, market string, begin, end time.Time) ([]time.Time, error) {
	key := redis.CalendarKey(market, begin.Format("20060102"), end.Format("20060102"))

	if c.cache != nil {
		var cached []time.Time
		hit, err := c.cache.Get(ctx, key, &cached)
		if err != nil {
			c.logger.WithError(err).Warn("calendar cache read failed, falling back to database")
		} else if hit {
			return cached, nil
		}
	}

	days, err := c.repo.TradingDays(ctx, begin, end, market)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, days, redis.TTLDaily); err != nil {
			c.logger.WithError(err).Warn("calendar cache write failed")
		}
	}
	return days, nil
}
