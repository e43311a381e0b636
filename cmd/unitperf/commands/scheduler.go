package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/efund/unitperf/internal/notify"
	"github.com/efund/unitperf/internal/ops"
	"github.com/efund/unitperf/internal/scheduler"
	"github.com/efund/unitperf/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the nightly recompute scheduler",
	Long: `Starts the scheduler daemon with the nightly recompute jobs and the
ops HTTP endpoints.

Registered jobs:
  turnover_update          - 7:00 PM daily (trailing month)
  swing_trade_update       - 7:30 PM daily (trailing two months)
  trade_efficiency_update  - 8:00 PM daily (current quarter)

The scheduler can be stopped with Ctrl+C.

Example:
  go run ./cmd/unitperf scheduler start
  go run ./cmd/unitperf scheduler run turnover_update`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		RunE:  runScheduler,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job immediately and wait for it",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// buildScheduler wires the engines into scheduled jobs.
func buildScheduler(rt *runtime) *scheduler.Scheduler {
	sched := scheduler.New(rt.logger)

	sched.AddJob(jobs.NewTurnoverJob(rt.turnover, rt.positions, rt.logger))
	sched.AddJob(jobs.NewSwingJob(rt.swing, rt.positions, rt.logger))
	sched.AddJob(jobs.NewEfficiencyJob(rt.efficiency, rt.positions, rt.logger))

	notifier := notify.New(rt.cfg.Callback, rt.logger)
	sched.OnCompletion(notifier.Hook())

	return sched
}

func runScheduler(cmd *cobra.Command, args []string) error {
	rt, err := initRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	sched := buildScheduler(rt)
	sched.Start()

	fmt.Println("Scheduler started")
	fmt.Println("Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}

	// Ops endpoints ride along so /jobs reflects this process.
	handler := ops.NewHandler(rt.db, rt.cache, sched, rt.logger)
	server := ops.New(rt.cfg, rt.logger, ops.NewRouter(handler, rt.logger))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		sched.Stop()
		return err
	case <-quit:
	}

	fmt.Println("\nShutting down...")
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	fmt.Println("Scheduler stopped")
	return nil
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	rt, err := initRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	sched := buildScheduler(rt)

	fmt.Printf("Running job: %s\n", jobName)
	if err := sched.RunJob(jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	// RunJob is asynchronous; wait for the result to land in history.
	for {
		history, err := sched.GetJobHistory(jobName)
		if err != nil {
			return err
		}
		if results := history.GetLatestResults(1); len(results) > 0 {
			r := results[0]
			if !r.Success {
				return fmt.Errorf("job failed: %s", r.Error)
			}
			fmt.Printf("Job completed in %s\n", r.Duration.Round(time.Millisecond))
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
}
