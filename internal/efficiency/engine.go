// Package efficiency measures whether trading decisions added value over
// static holding: the unit's actual return, net of execution costs and
// dividends, against the return its period-start weights would have drifted
// to on prices alone.
package efficiency

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/efund/unitperf/internal/calendar"
	"github.com/efund/unitperf/internal/contracts"
	"github.com/efund/unitperf/internal/corpaction"
	"github.com/efund/unitperf/internal/marketdata"
	"github.com/efund/unitperf/internal/positions"
	"github.com/efund/unitperf/internal/resample"
	"github.com/efund/unitperf/internal/timeseries"
	"github.com/efund/unitperf/pkg/logger"
)

// RollingWindows are the forward-looking window lengths in trading days.
var RollingWindows = []int{60, 120, 243}

// PeriodicFreqs are the fixed calendar frequencies reported.
var PeriodicFreqs = []contracts.PeriodKind{contracts.Monthly, contracts.Quarterly, contracts.Annual}

// Transaction cost rates. Sells pay stamp duty plus commission, buys pay
// commission only; both stamp duty and commission were cut on the cutover
// date configured for the engine.
const (
	oldStampDuty  = 0.001
	oldCommission = 0.0008
	newStampDuty  = 0.0005
	newCommission = 0.0004
)

// Engine computes and persists trade efficiency rows.
type Engine struct {
	positions *positions.Repository
	actions   *corpaction.Repository
	quotes    *marketdata.Repository
	adjuster  *corpaction.Adjuster
	checker   *calendar.Checker
	results   *Repository
	cutover   time.Time
	logger    *logger.Logger
}

// NewEngine wires an efficiency engine. cutover is the date the lower cost
// rates take effect.
func NewEngine(pos *positions.Repository, act *corpaction.Repository, quotes *marketdata.Repository,
	adj *corpaction.Adjuster, check *calendar.Checker, results *Repository,
	cutover time.Time, log *logger.Logger) *Engine {
	return &Engine{positions: pos, actions: act, quotes: quotes, adjuster: adj, checker: check,
		results: results, cutover: timeseries.Normalize(cutover), logger: log}
}

// Update recomputes periodic and rolling trade efficiency for the units and
// upserts the result rows. History is loaded from the natural year-end two
// years back so annual periods are complete.
func (e *Engine) Update(ctx context.Context, unitIDs []int, begin, end time.Time) error {
	e.logger.Info("updating trade efficiency...")
	t0 := timeseries.Date(begin.Year()-2, time.December, 31)

	closeFrame, err := e.quotes.MergedFrame(ctx, "close", t0, end)
	if err != nil {
		return fmt.Errorf("failed to load close prices: %w", err)
	}

	for _, unitID := range unitIDs {
		log := e.logger.WithField("unit_id", unitID)
		log.Info("updating trade efficiency for unit")

		rows, err := e.loadRows(ctx, unitID, t0, end)
		if err != nil {
			return fmt.Errorf("unit %d: %w", unitID, err)
		}
		if len(rows) == 0 {
			log.Info("no usable position data in range, skipping unit")
			continue
		}

		summaries, err := e.positions.UnitSummaries(ctx, []int{unitID}, t0, end)
		if err != nil {
			return fmt.Errorf("unit %d: %w", unitID, err)
		}
		netAsset := summarySeries(summaries)

		actual := ActualReturns(rows, netAsset, e.cutover)
		weight := weightFrame(rows)

		var periodic []contracts.EfficiencyResult
		for _, freq := range PeriodicFreqs {
			periodic = append(periodic, Periodic(unitID, weight, closeFrame, actual, freq)...)
		}
		if err := e.results.SavePeriodic(ctx, periodic); err != nil {
			return fmt.Errorf("unit %d: %w", unitID, err)
		}

		var rolling []contracts.EfficiencyResult
		for _, window := range RollingWindows {
			rolling = append(rolling, Rolling(unitID, weight, closeFrame, actual, window)...)
		}
		if err := e.results.SaveRolling(ctx, rolling); err != nil {
			return fmt.Errorf("unit %d: %w", unitID, err)
		}
	}
	return nil
}

func (e *Engine) loadRows(ctx context.Context, unitID int, t0, end time.Time) ([]contracts.PositionRow, error) {
	rows, err := e.positions.UnitStockRows(ctx, unitID, t0, end)
	if err != nil {
		return nil, err
	}
	rows, err = e.checker.ScreenRows(ctx, rows, t0, end)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	listings, err := e.positions.Listings(ctx, distinctCodes(rows))
	if err != nil {
		return nil, err
	}
	rows = positions.ExcludeIPO(rows, listings)
	if len(rows) == 0 {
		return nil, nil
	}
	dates := distinctDates(rows)
	actions, err := e.actions.Actions(ctx, distinctCodes(rows), dates[0], dates[len(dates)-1])
	if err != nil {
		return nil, err
	}
	return e.adjuster.AttachDividends(rows, actions, dates), nil
}

// ActualReturns computes the unit's daily return from traded prices rather
// than closes:
//
//	(mv_t - mv_{t-1} + pnl_t + dividends_t) / net_asset_{t-1}
//
// where pnl nets the day's buy and sell cash flows after costs under the
// rate regime in force on that date. The first day is defined as zero: with
// no prior row the true value is unknowable, which slightly biases day-one
// results. Days whose prior net asset is missing or zero are dropped.
func ActualReturns(rows []contracts.PositionRow, netAsset *timeseries.Series, cutover time.Time) *timeseries.Series {
	dates := distinctDates(rows)
	mv := make(map[int64]float64)
	buy := make(map[int64]float64)
	sell := make(map[int64]float64)
	div := make(map[int64]float64)
	for _, r := range rows {
		key := timeseries.Normalize(r.Date).Unix()
		mv[key] += r.MarketValue
		if r.Amount > 0 {
			buy[key] += r.Amount
		} else if r.Amount < 0 {
			sell[key] -= r.Amount
		}
		if !math.IsNaN(r.CashReceived) {
			div[key] += r.CashReceived
		}
	}

	outDates := make([]time.Time, 0, len(dates))
	outVals := make([]float64, 0, len(dates))
	for i, d := range dates {
		if i == 0 {
			outDates = append(outDates, d)
			outVals = append(outVals, 0)
			continue
		}
		key, prevKey := d.Unix(), dates[i-1].Unix()

		stamp, commission := oldStampDuty, oldCommission
		if !d.Before(cutover) {
			stamp, commission = newStampDuty, newCommission
		}
		pnl := sell[key]*(1-stamp-commission) - buy[key]*(1+commission)

		prevNA := netAsset.Get(dates[i-1])
		if math.IsNaN(prevNA) || prevNA == 0 {
			continue
		}
		ret := (mv[key] - mv[prevKey] + pnl + div[key]) / prevNA
		if math.IsNaN(ret) {
			continue
		}
		outDates = append(outDates, d)
		outVals = append(outVals, ret)
	}
	return timeseries.NewSeries(outDates, outVals)
}

// Periodic computes actual-minus-simulated efficiency over fixed calendar
// periods. Period boundaries are the last position date of each period plus
// the first date of the history; results are dated on the natural period
// end.
func Periodic(unitID int, weight *timeseries.Frame, closeFrame *timeseries.Frame, actual *timeseries.Series, freq contracts.PeriodKind) []contracts.EfficiencyResult {
	axis := weight.Dates()
	if len(axis) == 0 {
		return nil
	}
	bounds := resample.TargetDays(axis, freq, 366, false, 0)
	if len(bounds) == 0 || !bounds[0].Equal(axis[0]) {
		bounds = append([]time.Time{axis[0]}, bounds...)
	}
	sort.Slice(bounds, func(i, j int) bool { return bounds[i].Before(bounds[j]) })

	cum := cumIndex(actual)

	out := make([]contracts.EfficiencyResult, 0, len(bounds))
	for i := 1; i < len(bounds); i++ {
		t0, t1 := bounds[i-1], bounds[i]

		// simulated: period-start weights held unchanged, price drift only
		var simulated float64
		for _, c := range weight.Codes() {
			w := weight.Get(t0, c)
			c0, c1 := closeFrame.Get(t0, c), closeFrame.Get(t1, c)
			term := w * (c1/c0 - 1)
			if !math.IsNaN(term) {
				simulated += term
			}
		}

		actualPeriod := cum.Get(t1)/cum.Get(t0) - 1
		eff := actualPeriod - simulated
		out = append(out, contracts.EfficiencyResult{
			UnitID:     unitID,
			Freq:       freq.String(),
			Date:       resample.TradingDayToNatural(t1, freq),
			Efficiency: eff,
		})
	}
	return out
}

// Rolling computes forward-looking efficiency: at each date, the realized
// versus simulated return over the next window trading days. Near the tail
// the realized window shrinks to whatever remains rather than going null.
func Rolling(unitID int, weight *timeseries.Frame, closeFrame *timeseries.Frame, actual *timeseries.Series, window int) []contracts.EfficiencyResult {
	closeDates := closeFrame.Dates()
	closeIdx := make(map[int64]int, len(closeDates))
	for i, d := range closeDates {
		closeIdx[d.Unix()] = i
	}

	actDates := actual.Dates()
	cum := cumIndex(actual)
	cumVals := cum.Values()

	out := make([]contracts.EfficiencyResult, 0, len(actDates))
	for i, t := range actDates {
		// realized forward return, tail-shrinking
		j := i + window
		if j >= len(actDates) {
			j = len(actDates) - 1
		}
		fwdActual := cumVals[j]/cumVals[i] - 1

		// simulated forward return from today's weights
		simulated := math.NaN()
		if ci, ok := closeIdx[t.Unix()]; ok {
			cj := ci + window
			if cj >= len(closeDates) {
				cj = len(closeDates) - 1
			}
			simulated = 0
			for _, c := range weight.Codes() {
				w := weight.Get(t, c)
				c0 := closeFrame.Get(t, c)
				c1 := closeFrame.Get(closeDates[cj], c)
				term := w * (c1/c0 - 1)
				if !math.IsNaN(term) {
					simulated += term
				}
			}
		}

		out = append(out, contracts.EfficiencyResult{
			UnitID:     unitID,
			WindowDays: window,
			Date:       t,
			Efficiency: fwdActual - simulated,
		})
	}
	return out
}

// cumIndex compounds daily returns into a cumulative index aligned to the
// return dates.
func cumIndex(actual *timeseries.Series) *timeseries.Series {
	vals := make([]float64, actual.Len())
	level := 1.0
	for i, r := range actual.Values() {
		level *= 1 + r
		vals[i] = level
	}
	return timeseries.NewSeries(actual.Dates(), vals)
}

func weightFrame(rows []contracts.PositionRow) *timeseries.Frame {
	dates := distinctDates(rows)
	codes := distinctCodes(rows)
	f := timeseries.NewFrame(dates, codes)
	for _, r := range rows {
		f.Set(r.Date, r.StockCode, r.Weight)
	}
	return f
}

func distinctCodes(rows []contracts.PositionRow) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range rows {
		if _, ok := seen[r.StockCode]; !ok {
			seen[r.StockCode] = struct{}{}
			out = append(out, r.StockCode)
		}
	}
	sort.Strings(out)
	return out
}

func distinctDates(rows []contracts.PositionRow) []time.Time {
	seen := make(map[int64]struct{})
	var out []time.Time
	for _, r := range rows {
		d := timeseries.Normalize(r.Date)
		if _, ok := seen[d.Unix()]; !ok {
			seen[d.Unix()] = struct{}{}
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func summarySeries(summaries []contracts.UnitSummary) *timeseries.Series {
	dates := make([]time.Time, len(summaries))
	vals := make([]float64, len(summaries))
	for i, s := range summaries {
		dates[i] = s.Date
		vals[i] = s.NetAsset
	}
	return timeseries.NewSeries(dates, vals)
}
