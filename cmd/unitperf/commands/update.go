package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Recompute derived measures for a set of units",
	Long: `Recomputes one family of derived measures and upserts the results.

Subcommands:
  turnover    - daily buy/sell turnover
  swing       - swing-trade returns per holding window
  efficiency  - periodic and rolling trade efficiency

Example:
  go run ./cmd/unitperf update turnover --units 1,2,3 --begin 2024-01-01
  go run ./cmd/unitperf update swing --begin 2024-01-01 --end 2024-06-30
  go run ./cmd/unitperf update efficiency --units 7`,
}

var (
	updateUnits string
	updateBegin string
	updateEnd   string

	updateTurnoverCmd = &cobra.Command{
		Use:   "turnover",
		Short: "Recompute buy/sell turnover",
		RunE:  runUpdate("turnover"),
	}

	updateSwingCmd = &cobra.Command{
		Use:   "swing",
		Short: "Recompute swing-trade returns",
		RunE:  runUpdate("swing"),
	}

	updateEfficiencyCmd = &cobra.Command{
		Use:   "efficiency",
		Short: "Recompute trade efficiency",
		RunE:  runUpdate("efficiency"),
	}
)

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.AddCommand(updateTurnoverCmd)
	updateCmd.AddCommand(updateSwingCmd)
	updateCmd.AddCommand(updateEfficiencyCmd)

	updateCmd.PersistentFlags().StringVar(&updateUnits, "units", "", "comma-separated unit ids (default: all active units)")
	updateCmd.PersistentFlags().StringVar(&updateBegin, "begin", "", "start date YYYY-MM-DD (required)")
	updateCmd.PersistentFlags().StringVar(&updateEnd, "end", "", "end date YYYY-MM-DD (default: today)")
}

// runUpdate builds the RunE for one measure family.
func runUpdate(kind string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		begin, end, err := parseDateRange()
		if err != nil {
			return err
		}

		rt, err := initRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		ctx := context.Background()

		unitIDs, err := parseUnits(ctx, rt)
		if err != nil {
			return err
		}
		if len(unitIDs) == 0 {
			fmt.Println("No units to update")
			return nil
		}

		fmt.Printf("Updating %s for %d unit(s), %s .. %s\n",
			kind, len(unitIDs), begin.Format("2006-01-02"), end.Format("2006-01-02"))

		start := time.Now()
		switch kind {
		case "turnover":
			err = rt.turnover.Update(ctx, unitIDs, begin, end)
		case "swing":
			err = rt.swing.Update(ctx, unitIDs, begin, end)
		case "efficiency":
			err = rt.efficiency.Update(ctx, unitIDs, begin, end)
		}
		if err != nil {
			return fmt.Errorf("update %s: %w", kind, err)
		}

		fmt.Printf("Done in %s\n", time.Since(start).Round(time.Millisecond))
		return nil
	}
}

func parseDateRange() (time.Time, time.Time, error) {
	if updateBegin == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("--begin is required")
	}
	begin, err := time.Parse("2006-01-02", updateBegin)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --begin (expected YYYY-MM-DD): %w", err)
	}

	end := time.Now()
	if updateEnd != "" {
		end, err = time.Parse("2006-01-02", updateEnd)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --end (expected YYYY-MM-DD): %w", err)
		}
	}
	if end.Before(begin) {
		return time.Time{}, time.Time{}, fmt.Errorf("--end is before --begin")
	}
	return begin, end, nil
}

func parseUnits(ctx context.Context, rt *runtime) ([]int, error) {
	if updateUnits == "" {
		begin, _, err := parseDateRange()
		if err != nil {
			return nil, err
		}
		ids, err := rt.positions.ActiveUnitIDs(ctx, begin)
		if err != nil {
			return nil, fmt.Errorf("discover active units: %w", err)
		}
		return ids, nil
	}

	parts := strings.Split(updateUnits, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid unit id %q", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
