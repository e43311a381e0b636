// Package jobs defines the nightly recompute jobs wired into the scheduler.
// Each job discovers the active units and replays a trailing window so that
// late position restatements get picked up without manual intervention.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/efund/unitperf/internal/positions"
	"github.com/efund/unitperf/internal/turnover"
	"github.com/efund/unitperf/pkg/logger"
)

// TurnoverJob recomputes buy/sell turnover for all active units nightly.
type TurnoverJob struct {
	engine    *turnover.Engine
	positions *positions.Repository
	logger    *logger.Logger
}

// NewTurnoverJob creates a new turnover recompute job
func NewTurnoverJob(eng *turnover.Engine, pos *positions.Repository, log *logger.Logger) *TurnoverJob {
	return &TurnoverJob{
		engine:    eng,
		positions: pos,
		logger:    log,
	}
}

// Name returns the job name
func (j *TurnoverJob) Name() string {
	return "turnover_update"
}

// Schedule returns the cron schedule (every day at 7 PM, after position
// ingestion settles)
func (j *TurnoverJob) Schedule() string {
	return "0 0 19 * * *"
}

// Run executes the turnover recompute over the trailing month
func (j *TurnoverJob) Run(ctx context.Context) error {
	end := time.Now()
	begin := end.AddDate(0, -1, 0)

	unitIDs, err := j.positions.ActiveUnitIDs(ctx, begin)
	if err != nil {
		return fmt.Errorf("discover active units: %w", err)
	}
	if len(unitIDs) == 0 {
		j.logger.Info("No active units, skipping turnover update")
		return nil
	}

	j.logger.WithFields(map[string]interface{}{
		"units": len(unitIDs),
		"begin": begin.Format("2006-01-02"),
		"end":   end.Format("2006-01-02"),
	}).Info("Starting scheduled turnover update")

	if err := j.engine.Update(ctx, unitIDs, begin, end); err != nil {
		return fmt.Errorf("update turnover: %w", err)
	}

	j.logger.Info("Scheduled turnover update completed successfully")
	return nil
}
