package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/efund/unitperf/internal/positions"
	"github.com/efund/unitperf/internal/swing"
	"github.com/efund/unitperf/pkg/logger"
)

// SwingJob recomputes swing-trade returns for all active units. The result
// schedule is monthly, so replaying the trailing two months covers both the
// freshly closed month and any restated rows in the one before it.
type SwingJob struct {
	engine    *swing.Engine
	positions *positions.Repository
	logger    *logger.Logger
}

// NewSwingJob creates a new swing-trade recompute job
func NewSwingJob(eng *swing.Engine, pos *positions.Repository, log *logger.Logger) *SwingJob {
	return &SwingJob{
		engine:    eng,
		positions: pos,
		logger:    log,
	}
}

// Name returns the job name
func (j *SwingJob) Name() string {
	return "swing_trade_update"
}

// Schedule returns the cron schedule (every day at 7:30 PM, after turnover)
func (j *SwingJob) Schedule() string {
	return "0 30 19 * * *"
}

// Run executes the swing-trade recompute over the trailing two months
func (j *SwingJob) Run(ctx context.Context) error {
	end := time.Now()
	begin := end.AddDate(0, -2, 0)

	unitIDs, err := j.positions.ActiveUnitIDs(ctx, begin)
	if err != nil {
		return fmt.Errorf("discover active units: %w", err)
	}
	if len(unitIDs) == 0 {
		j.logger.Info("No active units, skipping swing-trade update")
		return nil
	}

	j.logger.WithFields(map[string]interface{}{
		"units": len(unitIDs),
		"begin": begin.Format("2006-01-02"),
		"end":   end.Format("2006-01-02"),
	}).Info("Starting scheduled swing-trade update")

	if err := j.engine.Update(ctx, unitIDs, begin, end); err != nil {
		return fmt.Errorf("update swing-trade returns: %w", err)
	}

	j.logger.Info("Scheduled swing-trade update completed successfully")
	return nil
}
