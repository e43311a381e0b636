// Package query serves composite read models over the persisted result
// tables. Multi-unit figures are blends of per-unit results weighted by each
// unit's share of the combined net asset base on the date.
package query

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/efund/unitperf/internal/contracts"
	"github.com/efund/unitperf/internal/positions"
	"github.com/efund/unitperf/internal/resample"
	"github.com/efund/unitperf/internal/swing"
	"github.com/efund/unitperf/internal/timeseries"
	"github.com/efund/unitperf/internal/turnover"
	"github.com/efund/unitperf/pkg/logger"
)

// TurnoverPoint is one composite turnover observation at a natural period
// end.
type TurnoverPoint struct {
	Date             time.Time `json:"date"`
	BuyTurn          float64   `json:"buy_turn"`
	SellTurn         float64   `json:"sell_turn"`
	NetPurchaseRatio float64   `json:"net_purchase_ratio"`
}

// SwingPoint is one composite swing-trade return observation.
type SwingPoint struct {
	Date        time.Time `json:"date"`
	SwingReturn float64   `json:"swing_trade_ret"`
}

// SwingSummary is the composite series plus its headline statistics.
type SwingSummary struct {
	Points  []SwingPoint `json:"points"`
	Mean    float64      `json:"ret_mean"`
	WinRate float64      `json:"win_rate"`
}

// Service answers composite queries.
type Service struct {
	turnover  *turnover.Repository
	swing     *swing.Repository
	positions *positions.Repository
	logger    *logger.Logger
}

// NewService wires a query service.
func NewService(turn *turnover.Repository, sw *swing.Repository, pos *positions.Repository, log *logger.Logger) *Service {
	return &Service{turnover: turn, swing: sw, positions: pos, logger: log}
}

// Turnover returns the scale-weighted composite turnover of the units,
// aggregated to freq and dated on natural period ends. turnType selects the
// estimate: 1 from traded amounts, 2 from weight drift.
func (s *Service) Turnover(ctx context.Context, unitIDs []int, begin, end time.Time, freq contracts.PeriodKind, turnType int) ([]TurnoverPoint, error) {
	if turnType != 1 && turnType != 2 {
		return nil, fmt.Errorf("unknown turnover type %d", turnType)
	}
	results, err := s.turnover.Range(ctx, unitIDs, begin, end)
	if err != nil {
		return nil, err
	}
	summaries, err := s.positions.UnitSummaries(ctx, unitIDs, begin, end)
	if err != nil {
		return nil, err
	}
	return CompositeTurnover(results, summaries, freq, turnType), nil
}

// SwingTradeReturn returns the scale-weighted composite swing-trade series
// for one window length, with its mean and win rate.
func (s *Service) SwingTradeReturn(ctx context.Context, unitIDs []int, begin, end time.Time, windowMonths int) (*SwingSummary, error) {
	// result rows are dated on natural period ends, which can fall after
	// the last trading day requested
	results, err := s.swing.Range(ctx, unitIDs, windowMonths, begin, resample.TradingDayToNatural(end, resample.Monthly))
	if err != nil {
		return nil, err
	}
	summaries, err := s.positions.UnitSummaries(ctx, unitIDs, begin, end)
	if err != nil {
		return nil, err
	}
	return CompositeSwing(results, summaries), nil
}

// CompositeTurnover blends per-unit daily turnover into one series: each
// unit's figures are weighted by its scale weight and summed per date, then
// the daily composite is summed into freq buckets and dated on natural
// period ends.
func CompositeTurnover(results []contracts.TurnoverResult, summaries []contracts.UnitSummary, freq contracts.PeriodKind, turnType int) []TurnoverPoint {
	weights := scaleWeightIndex(summaries)
	netPurchase := make(map[int64]map[int]float64)
	for _, su := range summaries {
		key := timeseries.Normalize(su.Date).Unix()
		if netPurchase[key] == nil {
			netPurchase[key] = make(map[int]float64)
		}
		netPurchase[key][su.UnitID] = su.NetPurchaseRatio
	}

	type daily struct{ buy, sell, net float64 }
	byDate := make(map[int64]*daily)
	var dates []time.Time
	for _, r := range results {
		key := timeseries.Normalize(r.Date).Unix()
		w, ok := weights[key][r.UnitID]
		if !ok || math.IsNaN(w) {
			continue
		}
		d, ok := byDate[key]
		if !ok {
			d = &daily{}
			byDate[key] = d
			dates = append(dates, timeseries.Normalize(r.Date))
		}
		buy, sell := r.BuyTurn1, r.SellTurn1
		if turnType == 2 {
			buy, sell = r.BuyTurn2, r.SellTurn2
		}
		if !math.IsNaN(buy) {
			d.buy += buy * w
		}
		if !math.IsNaN(sell) {
			d.sell += sell * w
		}
		if np, ok := netPurchase[key][r.UnitID]; ok && !math.IsNaN(np) {
			d.net += np * w
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	field := func(pick func(*daily) float64) *timeseries.Series {
		vals := make([]float64, len(dates))
		for i, d := range dates {
			vals[i] = pick(byDate[d.Unix()])
		}
		agg := resample.NewAggregator(timeseries.NewSeries(dates, vals), freq)
		return agg.Sum()
	}

	buySeries := field(func(d *daily) float64 { return d.buy })
	sellSeries := field(func(d *daily) float64 { return d.sell })
	netSeries := field(func(d *daily) float64 { return d.net })

	out := make([]TurnoverPoint, buySeries.Len())
	for i, d := range buySeries.Dates() {
		out[i] = TurnoverPoint{
			Date:             resample.TradingDayToNatural(d, resample.Monthly),
			BuyTurn:          buySeries.Values()[i],
			SellTurn:         sellSeries.Values()[i],
			NetPurchaseRatio: netSeries.Values()[i],
		}
	}
	return out
}

// CompositeSwing blends per-unit swing returns into one series. Result rows
// sit on natural month-ends while scale weights live on trading days, so
// each unit's weight is carried forward to the result date. Win rate counts
// positive observations against nonzero ones.
func CompositeSwing(results []contracts.SwingResult, summaries []contracts.UnitSummary) *SwingSummary {
	weights := scaleWeightSeries(summaries)

	totals := make(map[int64]float64)
	var dates []time.Time
	for _, r := range results {
		if math.IsNaN(r.SwingReturn) {
			continue
		}
		d := timeseries.Normalize(r.Date)
		w := math.NaN()
		if s, ok := weights[r.UnitID]; ok {
			w = lastAtOrBefore(s, d)
		}
		if math.IsNaN(w) {
			continue
		}
		if _, ok := totals[d.Unix()]; !ok {
			dates = append(dates, d)
		}
		totals[d.Unix()] += r.SwingReturn * w
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	summary := &SwingSummary{Mean: math.NaN(), WinRate: math.NaN()}
	var sum float64
	var wins, nonzero int
	for _, d := range dates {
		v := totals[d.Unix()]
		summary.Points = append(summary.Points, SwingPoint{Date: d, SwingReturn: v})
		sum += v
		if v > 0 {
			wins++
		}
		if v != 0 {
			nonzero++
		}
	}
	if n := len(summary.Points); n > 0 {
		summary.Mean = sum / float64(n)
	}
	if nonzero > 0 {
		summary.WinRate = float64(wins) / float64(nonzero)
	}
	return summary
}

// scaleWeightIndex maps date -> unit -> scale weight.
func scaleWeightIndex(summaries []contracts.UnitSummary) map[int64]map[int]float64 {
	out := make(map[int64]map[int]float64)
	for _, sw := range positions.ScaleWeights(summaries) {
		key := sw.Date.Unix()
		if out[key] == nil {
			out[key] = make(map[int]float64)
		}
		out[key][sw.UnitID] = sw.Weight
	}
	return out
}

// scaleWeightSeries maps unit -> scale weight series over trading days.
func scaleWeightSeries(summaries []contracts.UnitSummary) map[int]*timeseries.Series {
	byUnit := make(map[int][]positions.ScaleWeight)
	for _, sw := range positions.ScaleWeights(summaries) {
		byUnit[sw.UnitID] = append(byUnit[sw.UnitID], sw)
	}
	out := make(map[int]*timeseries.Series, len(byUnit))
	for unit, sws := range byUnit {
		dates := make([]time.Time, len(sws))
		vals := make([]float64, len(sws))
		for i, sw := range sws {
			dates[i], vals[i] = sw.Date, sw.Weight
		}
		out[unit] = timeseries.NewSeries(dates, vals)
	}
	return out
}

// lastAtOrBefore returns the latest observation at or before date, NaN when
// none exists.
func lastAtOrBefore(s *timeseries.Series, date time.Time) float64 {
	dates := s.Dates()
	i := sort.Search(len(dates), func(i int) bool { return dates[i].After(date) })
	if i == 0 {
		return math.NaN()
	}
	return s.Values()[i-1]
}
