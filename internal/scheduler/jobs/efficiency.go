package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/efund/unitperf/internal/efficiency"
	"github.com/efund/unitperf/internal/positions"
	"github.com/efund/unitperf/pkg/logger"
)

// EfficiencyJob recomputes trade-efficiency measures for all active units.
// Periodic rows close out at month, quarter and year ends, so the replay
// window starts at the first day of the current quarter to refresh every
// row the newest positions can still move.
type EfficiencyJob struct {
	engine    *efficiency.Engine
	positions *positions.Repository
	logger    *logger.Logger
}

// NewEfficiencyJob creates a new trade-efficiency recompute job
func NewEfficiencyJob(eng *efficiency.Engine, pos *positions.Repository, log *logger.Logger) *EfficiencyJob {
	return &EfficiencyJob{
		engine:    eng,
		positions: pos,
		logger:    log,
	}
}

// Name returns the job name
func (j *EfficiencyJob) Name() string {
	return "trade_efficiency_update"
}

// Schedule returns the cron schedule (every day at 8 PM, after swing)
func (j *EfficiencyJob) Schedule() string {
	return "0 0 20 * * *"
}

// Run executes the trade-efficiency recompute from the start of the quarter
func (j *EfficiencyJob) Run(ctx context.Context) error {
	end := time.Now()
	begin := quarterStart(end)

	unitIDs, err := j.positions.ActiveUnitIDs(ctx, begin)
	if err != nil {
		return fmt.Errorf("discover active units: %w", err)
	}
	if len(unitIDs) == 0 {
		j.logger.Info("No active units, skipping trade-efficiency update")
		return nil
	}

	j.logger.WithFields(map[string]interface{}{
		"units": len(unitIDs),
		"begin": begin.Format("2006-01-02"),
		"end":   end.Format("2006-01-02"),
	}).Info("Starting scheduled trade-efficiency update")

	if err := j.engine.Update(ctx, unitIDs, begin, end); err != nil {
		return fmt.Errorf("update trade efficiency: %w", err)
	}

	j.logger.Info("Scheduled trade-efficiency update completed successfully")
	return nil
}

func quarterStart(t time.Time) time.Time {
	m := time.Month((int(t.Month())-1)/3*3 + 1)
	return time.Date(t.Year(), m, 1, 0, 0, 0, 0, t.Location())
}
