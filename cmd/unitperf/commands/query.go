package commands

import (
	"context"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/efund/unitperf/internal/contracts"
	"github.com/efund/unitperf/internal/query"
	"github.com/efund/unitperf/internal/swing"
	"github.com/efund/unitperf/internal/turnover"
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Print composite diagnostics for a set of units",
	Long: `Reads the persisted result tables and prints scale-weighted
composites across the requested units.

Subcommands:
  turnover  - composite buy/sell turnover per period
  swing     - composite swing-trade returns with mean and win rate

Example:
  go run ./cmd/unitperf query turnover --units 1,2 --begin 2024-01-01 --freq m
  go run ./cmd/unitperf query swing --units 1,2 --begin 2024-01-01 --window 3`,
}

var (
	queryFreq     string
	queryTurnType int
	queryWindow   int

	queryTurnoverCmd = &cobra.Command{
		Use:   "turnover",
		Short: "Composite buy/sell turnover",
		RunE:  runQueryTurnover,
	}

	querySwingCmd = &cobra.Command{
		Use:   "swing",
		Short: "Composite swing-trade returns",
		RunE:  runQuerySwing,
	}
)

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.AddCommand(queryTurnoverCmd)
	queryCmd.AddCommand(querySwingCmd)

	queryCmd.PersistentFlags().StringVar(&updateUnits, "units", "", "comma-separated unit ids (required)")
	queryCmd.PersistentFlags().StringVar(&updateBegin, "begin", "", "start date YYYY-MM-DD (required)")
	queryCmd.PersistentFlags().StringVar(&updateEnd, "end", "", "end date YYYY-MM-DD (default: today)")

	queryTurnoverCmd.Flags().StringVar(&queryFreq, "freq", "m", "aggregation frequency (d/w/m/q/s/a)")
	queryTurnoverCmd.Flags().IntVar(&queryTurnType, "type", 1, "turnover estimate: 1 amounts, 2 weight drift")
	querySwingCmd.Flags().IntVar(&queryWindow, "window", 1, "holding window in months")
}

func newQueryService(rt *runtime) *query.Service {
	return query.NewService(turnover.NewRepository(rt.db.Pool), swing.NewRepository(rt.db.Pool),
		rt.positions, rt.logger)
}

func runQueryTurnover(cmd *cobra.Command, args []string) error {
	begin, end, err := parseDateRange()
	if err != nil {
		return err
	}
	freq, err := contracts.ParsePeriodKind(queryFreq)
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

	points, err := newQueryService(rt).Turnover(ctx, unitIDs, begin, end, freq, queryTurnType)
	if err != nil {
		return fmt.Errorf("query turnover: %w", err)
	}

	fmt.Printf("%-12s %12s %12s %12s\n", "date", "buy_turn", "sell_turn", "net_purchase")
	for _, p := range points {
		fmt.Printf("%-12s %12s %12s %12s\n", p.Date.Format("2006-01-02"),
			formatRatio(p.BuyTurn), formatRatio(p.SellTurn), formatRatio(p.NetPurchaseRatio))
	}
	return nil
}

func runQuerySwing(cmd *cobra.Command, args []string) error {
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

	summary, err := newQueryService(rt).SwingTradeReturn(ctx, unitIDs, begin, end, queryWindow)
	if err != nil {
		return fmt.Errorf("query swing: %w", err)
	}

	fmt.Printf("%-12s %14s\n", "date", "swing_ret")
	for _, p := range summary.Points {
		fmt.Printf("%-12s %14s\n", p.Date.Format("2006-01-02"), formatRatio(p.SwingReturn))
	}
	fmt.Printf("\nmean: %s  win rate: %s\n", formatRatio(summary.Mean), formatRatio(summary.WinRate))
	return nil
}

func formatRatio(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.6f", v)
}
