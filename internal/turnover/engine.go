// Package turnover estimates daily portfolio turnover per unit two ways:
// from executed trade amounts against the prior-day net asset base, and
// from day-over-day weight drift net of pure price moves.
package turnover

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/efund/unitperf/internal/calendar"
	"github.com/efund/unitperf/internal/contracts"
	"github.com/efund/unitperf/internal/marketdata"
	"github.com/efund/unitperf/internal/positions"
	"github.com/efund/unitperf/internal/timeseries"
	"github.com/efund/unitperf/pkg/logger"
)

// lookbackWeeks of extra history loaded ahead of begin so the first
// requested day has a prior-day net asset and weight row even across
// holidays.
const lookbackWeeks = 2

// Engine computes and persists turnover rows.
type Engine struct {
	positions *positions.Repository
	quotes    *marketdata.Repository
	checker   *calendar.Checker
	results   *Repository
	logger    *logger.Logger
}

// NewEngine wires a turnover engine.
func NewEngine(pos *positions.Repository, quotes *marketdata.Repository, check *calendar.Checker,
	results *Repository, log *logger.Logger) *Engine {
	return &Engine{positions: pos, quotes: quotes, checker: check, results: results, logger: log}
}

// Update recomputes turnover for the units over [begin, end] and upserts the
// result rows. Units are independent; a unit with no data in range is
// skipped with a notice.
func (e *Engine) Update(ctx context.Context, unitIDs []int, begin, end time.Time) error {
	e.logger.Info("updating turnover...")
	t0 := begin.AddDate(0, 0, -7*lookbackWeeks)

	closeFrame, err := e.quotes.MergedFrame(ctx, "close", t0, end)
	if err != nil {
		return fmt.Errorf("failed to load close prices: %w", err)
	}
	retStock := closeFrame.PctChange()

	for _, unitID := range unitIDs {
		e.logger.WithField("unit_id", unitID).Info("updating turnover for unit")
		rows, err := e.positions.UnitStockRows(ctx, unitID, t0, end)
		if err != nil {
			return fmt.Errorf("unit %d: %w", unitID, err)
		}
		rows, err = e.checker.ScreenRows(ctx, rows, t0, end)
		if err != nil {
			return fmt.Errorf("unit %d: %w", unitID, err)
		}
		summaries, err := e.positions.UnitSummaries(ctx, []int{unitID}, t0, end)
		if err != nil {
			return fmt.Errorf("unit %d: %w", unitID, err)
		}
		if len(rows) == 0 || len(summaries) == 0 {
			e.logger.WithField("unit_id", unitID).Info("no position data in range, skipping unit")
			continue
		}

		results := Compute(unitID, rows, summaries, retStock, begin)
		if err := e.results.Save(ctx, results); err != nil {
			return fmt.Errorf("unit %d: %w", unitID, err)
		}
	}
	return nil
}

// Compute derives the turnover series of one unit from its position rows,
// daily summaries and the per-stock daily return frame. Only rows dated on
// or after begin are returned; the extra history before begin feeds the
// prior-day terms. The first day of the weight-drift estimate is defined as
// zero since there is no prior weight row to drift from.
func Compute(unitID int, rows []contracts.PositionRow, summaries []contracts.UnitSummary, retStock *timeseries.Frame, begin time.Time) []contracts.TurnoverResult {
	// unit-level series
	sumDates := make([]time.Time, len(summaries))
	netAsset := make([]float64, len(summaries))
	retFund := make([]float64, len(summaries))
	for i, s := range summaries {
		sumDates[i] = s.Date
		netAsset[i] = s.NetAsset
		retFund[i] = s.DailyReturn
	}
	naSeries := timeseries.NewSeries(sumDates, netAsset)
	prevNA := naSeries.Shift(1)
	fundRet := timeseries.NewSeries(sumDates, retFund)

	// signed trade amounts summed per date
	buyAmt := make(map[int64]float64)
	sellAmt := make(map[int64]float64)
	codesSet := make(map[string]struct{})
	var posDates []time.Time
	posDateSeen := make(map[int64]struct{})
	for _, r := range rows {
		key := timeseries.Normalize(r.Date).Unix()
		if r.Amount > 0 {
			buyAmt[key] += r.Amount
		} else if r.Amount < 0 {
			sellAmt[key] += r.Amount
		}
		codesSet[r.StockCode] = struct{}{}
		if _, ok := posDateSeen[key]; !ok {
			posDateSeen[key] = struct{}{}
			posDates = append(posDates, timeseries.Normalize(r.Date))
		}
	}
	sort.Slice(posDates, func(i, j int) bool { return posDates[i].Before(posDates[j]) })

	codes := make([]string, 0, len(codesSet))
	for c := range codesSet {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	// weight pivot over the unit's own date axis
	weight := timeseries.NewFrame(posDates, codes)
	for _, r := range rows {
		weight.Set(r.Date, r.StockCode, r.Weight)
	}

	driftBuy, driftSell := weightDrift(weight, retStock, fundRet, posDates, codes)

	// result axis: every date either side of the data knows about
	axis := timeseries.UnionDates(sumDates, posDates)

	out := make([]contracts.TurnoverResult, 0, len(axis))
	for _, d := range axis {
		if d.Before(begin) {
			continue
		}
		key := d.Unix()
		prev := prevNA.Get(d)

		res := contracts.TurnoverResult{UnitID: unitID, Date: d}
		res.BuyTurn1 = ratioOrNaN(buyAmt, key, prev)
		res.SellTurn1 = -ratioOrNaN(sellAmt, key, prev)

		if bt, ok := driftBuy[key]; ok {
			res.BuyTurn2 = bt
		} else {
			res.BuyTurn2 = math.NaN()
		}
		if st, ok := driftSell[key]; ok {
			res.SellTurn2 = st
		} else {
			res.SellTurn2 = math.NaN()
		}
		out = append(out, res)
	}
	return out
}

// weightDrift computes the buy/sell turnover implied by weight changes in
// excess of pure price drift: w_t - w_{t-1}(1+r_stock)/(1+r_fund).
func weightDrift(weight, retStock *timeseries.Frame, fundRet *timeseries.Series, posDates []time.Time, codes []string) (buy, sell map[int64]float64) {
	buy = make(map[int64]float64, len(posDates))
	sell = make(map[int64]float64, len(posDates))
	for i, d := range posDates {
		key := d.Unix()
		if i == 0 {
			// no prior weight row to drift from
			buy[key], sell[key] = 0, 0
			continue
		}
		prevDate := posDates[i-1]
		rf := fundRet.Get(d)
		var posSum, negSum float64
		for _, c := range codes {
			w := weight.Get(d, c)
			if math.IsNaN(w) {
				w = 0
			}
			w1 := weight.Get(prevDate, c)
			rs := retStock.Get(d, c)
			drifted := w1 * (1 + rs) / (1 + rf)
			if math.IsNaN(drifted) {
				drifted = 0
			}
			diff := w - drifted
			if diff > 0 {
				posSum += diff
			} else {
				negSum += diff
			}
		}
		buy[key] = posSum
		sell[key] = -negSum
	}
	return buy, sell
}

// ratioOrNaN divides the summed amount on the date by the denominator,
// propagating NaN when the date has no amount or the base is unusable.
func ratioOrNaN(amounts map[int64]float64, key int64, denom float64) float64 {
	amt, ok := amounts[key]
	if !ok || math.IsNaN(denom) || denom == 0 {
		return math.NaN()
	}
	return amt / denom
}
