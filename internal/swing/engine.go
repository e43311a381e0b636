// Package swing measures round-trip trading skill. For each unit and each
// rolling window of whole months it isolates the trades that complete round
// trips (buy low / sell high or the reverse), strips out net directional
// accumulation, and expresses the realized gain against the capital actually
// engaged in the episode.
package swing

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

// Windows are the rolling window lengths, in whole months.
var Windows = []int{1, 2, 3, 4, 5, 6, 9, 12}

// lookbackMonths of extra history loaded ahead of begin so the longest
// window is fully populated on the first scheduled month-end.
const lookbackMonths = 13

// Engine computes and persists swing-trade returns.
type Engine struct {
	positions *positions.Repository
	actions   *corpaction.Repository
	quotes    *marketdata.Repository
	adjuster  *corpaction.Adjuster
	checker   *calendar.Checker
	results   *Repository
	logger    *logger.Logger
}

// NewEngine wires a swing engine.
func NewEngine(pos *positions.Repository, act *corpaction.Repository, quotes *marketdata.Repository,
	adj *corpaction.Adjuster, check *calendar.Checker, results *Repository, log *logger.Logger) *Engine {
	return &Engine{positions: pos, actions: act, quotes: quotes, adjuster: adj,
		checker: check, results: results, logger: log}
}

// Update recomputes swing-trade returns for the units over (begin, end] and
// upserts one row per (unit, window, natural month-end). A unit with no
// usable position data is skipped with a notice.
func (e *Engine) Update(ctx context.Context, unitIDs []int, begin, end time.Time) error {
	e.logger.Info("updating swing trade returns...")
	t0 := begin.AddDate(0, -lookbackMonths, 0)

	for _, unitID := range unitIDs {
		log := e.logger.WithField("unit_id", unitID)
		log.Info("updating swing trade returns for unit")

		rows, err := e.loadAdjustedRows(ctx, unitID, t0, end)
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

		var results []contracts.SwingResult
		for _, window := range Windows {
			results = append(results, Compute(unitID, rows, netAsset, window, begin)...)
		}
		if err := e.results.Save(ctx, results); err != nil {
			return fmt.Errorf("unit %d: %w", unitID, err)
		}
	}
	return nil
}

// loadAdjustedRows loads a unit's position history with IPO noise removed,
// dividends attached and the adjustment factor joined from quote history.
func (e *Engine) loadAdjustedRows(ctx context.Context, unitID int, t0, end time.Time) ([]contracts.PositionRow, error) {
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

	codes := distinctCodes(rows)
	listings, err := e.positions.Listings(ctx, codes)
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
	rows = e.adjuster.AttachDividends(rows, actions, dates)

	// quote history starts two weeks early so the first unit date has an
	// adjustment factor even across holidays
	adjFrame, err := e.quotes.MergedFrame(ctx, "adj_factor", dates[0].AddDate(0, 0, -14), end)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].AdjFactor = adjFrame.Get(rows[i].Date, rows[i].StockCode)
	}
	return rows, nil
}

// Compute derives the swing-trade return series of one unit for one window
// length. Rows must carry attached dividends and adjustment factors. The
// schedule is the last position date of each month after begin; each result
// is dated on the natural month-end and keyed (unit, window, date).
func Compute(unitID int, rows []contracts.PositionRow, netAsset *timeseries.Series, windowMonths int, begin time.Time) []contracts.SwingResult {
	dates := distinctDates(rows)
	var after []time.Time
	for _, d := range dates {
		if d.After(begin) {
			after = append(after, d)
		}
	}
	schedule := resample.TargetDays(after, resample.Monthly, 31, true, 0)

	var out []contracts.SwingResult
	for _, t := range schedule {
		total, stocks := windowReturn(rows, netAsset, t, windowMonths)
		if stocks == 0 {
			continue
		}
		out = append(out, contracts.SwingResult{
			UnitID:       unitID,
			WindowMonths: windowMonths,
			Date:         resample.TradingDayToNatural(t, resample.Monthly),
			SwingReturn:  total,
		})
	}
	return out
}

// windowReturn sums the per-stock swing returns inside the window ending at
// t. The window spans whole months: it opens strictly after the first
// calendar day of the month windowMonths-1 months before t's month.
func windowReturn(rows []contracts.PositionRow, netAsset *timeseries.Series, t time.Time, windowMonths int) (total float64, stocks int) {
	windowStart := timeseries.Date(t.Year(), t.Month(), 1).AddDate(0, -(windowMonths - 1), 0)

	byStock := make(map[string][]contracts.PositionRow)
	for _, r := range rows {
		d := timeseries.Normalize(r.Date)
		if d.After(windowStart) && !d.After(t) {
			byStock[r.StockCode] = append(byStock[r.StockCode], r)
		}
	}

	codes := make([]string, 0, len(byStock))
	for c := range byStock {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	for _, code := range codes {
		stockRows := byStock[code]
		sort.SliceStable(stockRows, func(i, j int) bool {
			return stockRows[i].Date.Before(stockRows[j].Date)
		})
		if !tradedBothWays(stockRows) {
			continue
		}
		ret := stockSwingReturn(stockRows, netAsset)
		stocks++
		if !math.IsNaN(ret) {
			total += ret
		}
	}
	return total, stocks
}

// tradedBothWays reports whether the stock has traded rows in both
// directions inside the window. Only such stocks can hold a round trip;
// one-directional activity is pure accumulation or reduction.
func tradedBothWays(stockRows []contracts.PositionRow) bool {
	var bought, sold bool
	for _, r := range stockRows {
		if r.Amount == 0 {
			continue
		}
		if r.Volume > 0 {
			bought = true
		} else {
			sold = true
		}
	}
	return bought && sold
}

// stockSwingReturn computes one stock's realized round-trip return inside
// the window.
func stockSwingReturn(stockRows []contracts.PositionRow, netAsset *timeseries.Series) float64 {
	// work on an owned snapshot: the backward scan mutates volumes
	adj := make([]contracts.PositionRow, len(stockRows))
	copy(adj, stockRows)

	// execution prices from the raw rows, then rescaled alongside the
	// share counts
	prices := make([]float64, len(adj))
	for i := range adj {
		prices[i] = adj[i].TradeVWAP()
	}
	backAdjustForSplits(adj, prices)

	var (
		trades []contracts.PositionRow
		vwaps  []float64
	)
	for i, r := range adj {
		if r.Amount != 0 {
			trades = append(trades, r)
			vwaps = append(vwaps, prices[i])
		}
	}
	if len(trades) == 0 {
		return math.NaN()
	}

	// net directional change over the window, on the adjusted share basis
	volBegin := trades[0].Position - trades[0].Volume
	volEnd := trades[len(trades)-1].Position
	volDelta := volEnd - volBegin

	// walk newest to oldest removing exactly the trades that make up the
	// net change; what remains are completed round trips
	for i := len(trades) - 1; i >= 0 && volDelta != 0; i-- {
		v := trades[i].Volume
		if sign(v) != sign(volDelta) {
			continue
		}
		if math.Abs(v) >= math.Abs(volDelta) {
			trades[i].Volume -= volDelta
			break
		}
		trades[i].Volume = 0
		volDelta -= v
	}

	// buys are negative cash flow, sells positive: a pure round trip nets
	// to its trading gain. Terms with no usable price are skipped.
	var gain float64
	for i, tr := range trades {
		term := tr.Volume * vwaps[i]
		if !math.IsNaN(term) {
			gain -= term
		}
	}

	// capital base: average net asset from the first trade to the last
	// trade still carrying volume after the scan
	tBegin := trades[0].Date
	tEnd := time.Time{}
	for i := len(trades) - 1; i >= 0; i-- {
		if trades[i].Volume != 0 {
			tEnd = trades[i].Date
			break
		}
	}
	if tEnd.IsZero() {
		return math.NaN()
	}
	assetMean := netAsset.Mean(tBegin, tEnd)
	if math.IsNaN(assetMean) || assetMean == 0 {
		return math.NaN()
	}
	return gain / assetMean
}

// backAdjustForSplits rescales share counts and execution prices onto the
// share basis in force at the window start. From each ex-date on, positions
// and volumes are divided by the compounded stock-dividend multiplier;
// execution prices are lifted back through the quote adjustment factor, so
// pre- and post-split trades net correctly against each other.
func backAdjustForSplits(adj []contracts.PositionRow, prices []float64) {
	hasSplit := false
	for _, r := range adj {
		if r.StockDivRatio > 0 {
			hasSplit = true
			break
		}
	}
	if !hasSplit {
		return
	}

	adjFactor0 := adj[0].AdjFactor
	mult := 1.0
	for i := range adj {
		if r := adj[i].StockDivRatio; r > 0 {
			mult *= 1 + r
		}
		adj[i].Position /= mult
		adj[i].Volume /= mult
		prices[i] *= adj[i].AdjFactor / adjFactor0
	}
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
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
