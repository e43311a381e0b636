// Package corpaction folds cash and stock dividends into position history.
// Actions posted while the anchor market is closed are accumulated and
// credited on the next anchor trading day: cash amounts add, stock-dividend
// ratios compound.
package corpaction

import (
	"math"
	"sort"
	"time"

	"github.com/efund/unitperf/internal/contracts"
	"github.com/efund/unitperf/internal/timeseries"
	"github.com/efund/unitperf/pkg/logger"
)

// Adjuster attaches corporate actions to position rows.
type Adjuster struct {
	logger *logger.Logger
}

// NewAdjuster creates an adjuster.
func NewAdjuster(log *logger.Logger) *Adjuster {
	return &Adjuster{logger: log}
}

// perStock is the per-(date, stock) action ledger after carry-forward.
type perStock struct {
	cash  map[int64]float64 // date unix -> per-share cash dividend
	ratio map[int64]float64 // date unix -> stock dividend ratio
}

// AttachDividends sets CashDividend, StockDivRatio and CashReceived on each
// position row. anchorDates are the dates the unit actually has rows on
// (the anchor market's calendar restricted to the unit's history); an action
// whose ex-date is not an anchor date is deferred to the next anchor date
// and combined with anything already posted there. Actions with no anchor
// date left to land on are dropped with a warning.
func (a *Adjuster) AttachDividends(rows []contracts.PositionRow, actions []contracts.CorporateAction, anchorDates []time.Time) []contracts.PositionRow {
	anchors := make([]time.Time, len(anchorDates))
	for i, d := range anchorDates {
		anchors[i] = timeseries.Normalize(d)
	}
	sort.Slice(anchors, func(i, j int) bool { return anchors[i].Before(anchors[j]) })

	ledger := a.carryForward(actions, anchors)

	// prior-day holding per stock, over the unit's own date axis
	prevPos := make(map[string]map[int64]float64)
	byStock := make(map[string][]int)
	for i, r := range rows {
		byStock[r.StockCode] = append(byStock[r.StockCode], i)
	}
	for code, idxs := range byStock {
		sort.Slice(idxs, func(x, y int) bool {
			return rows[idxs[x]].Date.Before(rows[idxs[y]].Date)
		})
		m := make(map[int64]float64, len(idxs))
		for k, i := range idxs {
			if k == 0 {
				continue
			}
			m[timeseries.Normalize(rows[i].Date).Unix()] = rows[idxs[k-1]].Position
		}
		prevPos[code] = m
	}

	out := make([]contracts.PositionRow, len(rows))
	for i, r := range rows {
		r.CashDividend = math.NaN()
		r.StockDivRatio = math.NaN()
		r.CashReceived = math.NaN()
		if ps, ok := ledger[r.StockCode]; ok {
			key := timeseries.Normalize(r.Date).Unix()
			if cash, ok := ps.cash[key]; ok {
				r.CashDividend = cash
				if prev, ok := prevPos[r.StockCode][key]; ok {
					r.CashReceived = prev * cash
				}
			}
			if ratio, ok := ps.ratio[key]; ok {
				r.StockDivRatio = ratio
			}
		}
		out[i] = r
	}
	return out
}

// carryForward rolls every off-calendar action onto the next anchor date.
func (a *Adjuster) carryForward(actions []contracts.CorporateAction, anchors []time.Time) map[string]*perStock {
	anchorSet := make(map[int64]struct{}, len(anchors))
	for _, d := range anchors {
		anchorSet[d.Unix()] = struct{}{}
	}

	ledger := make(map[string]*perStock)
	get := func(code string) *perStock {
		ps, ok := ledger[code]
		if !ok {
			ps = &perStock{cash: make(map[int64]float64), ratio: make(map[int64]float64)}
			ledger[code] = ps
		}
		return ps
	}

	sorted := make([]contracts.CorporateAction, len(actions))
	copy(sorted, actions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ExDate.Before(sorted[j].ExDate) })

	for _, act := range sorted {
		ex := timeseries.Normalize(act.ExDate)
		post := ex
		if _, onCalendar := anchorSet[ex.Unix()]; !onCalendar {
			i := sort.Search(len(anchors), func(i int) bool { return anchors[i].After(ex) })
			if i == len(anchors) {
				a.logger.WithFields(map[string]interface{}{
					"stk_code": act.StockCode,
					"ex_dt":    ex.Format("2006-01-02"),
				}).Warn("corporate action past the last anchor trading day, dropping")
				continue
			}
			post = anchors[i]
		}
		ps := get(act.StockCode)
		key := post.Unix()
		if act.CashDividend > 0 {
			ps.cash[key] += act.CashDividend
		}
		if act.StockDivRatio > 0 {
			prev := ps.ratio[key]
			ps.ratio[key] = (1+prev)*(1+act.StockDivRatio) - 1
		}
	}
	return ledger
}

// SplitMultiplier returns the accumulated stock-dividend multiplier for a
// stock between refDate (exclusive) and tradeDate (inclusive): the product
// of (1 + ratio) over every action in that span. Divide share counts or
// multiply prices by it to compare pre- and post-split transactions.
func SplitMultiplier(code string, refDate, tradeDate time.Time, actions []contracts.CorporateAction) float64 {
	ref, trade := timeseries.Normalize(refDate), timeseries.Normalize(tradeDate)
	mult := 1.0
	for _, act := range actions {
		if act.StockCode != code || act.StockDivRatio <= 0 {
			continue
		}
		ex := timeseries.Normalize(act.ExDate)
		if ex.After(ref) && !ex.After(trade) {
			mult *= 1 + act.StockDivRatio
		}
	}
	return mult
}
