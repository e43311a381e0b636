// Package calendar reconciles the mainland and Hong Kong trading calendars
// so that cross-market quote tables can be merged and resampled on a single
// date index.
package calendar

import (
	"time"

	"github.com/efund/unitperf/internal/contracts"
	"github.com/efund/unitperf/internal/timeseries"
	"github.com/efund/unitperf/pkg/logger"
)

// DefaultFillLimit bounds how many anchor rows a stale value from the other
// market is carried across. Ten rows is enough to bridge any holiday cluster
// without letting a halted series leak forward indefinitely.
const DefaultFillLimit = 10

// Aligner merges frames sourced from two market calendars.
type Aligner struct {
	fillLimit int
	logger    *logger.Logger
}

// NewAligner creates an aligner with the given forward-fill limit; limit <= 0
// falls back to DefaultFillLimit.
func NewAligner(fillLimit int, log *logger.Logger) *Aligner {
	if fillLimit <= 0 {
		fillLimit = DefaultFillLimit
	}
	return &Aligner{fillLimit: fillLimit, logger: log}
}

// MergeMarkets joins a primary-market frame and a secondary-market frame on
// the anchor market's calendar. The non-anchor frame is forward-filled over
// the union of both indices, bounded by the fill limit, then both are
// restricted to exactly the anchor's dates. Columns of the two frames are
// concatenated; on a duplicated code the anchor side wins. The operation is
// deterministic: same inputs, same output.
func (a *Aligner) MergeMarkets(primary, secondary *timeseries.Frame, anchor contracts.Market) *timeseries.Frame {
	anchored, other := primary, secondary
	if anchor == contracts.MarketHKEX {
		anchored, other = secondary, primary
	}

	anchorDates := anchored.Dates()
	union := timeseries.UnionDates(anchorDates, other.Dates())
	filled := other.Reindex(union).ForwardFill(a.fillLimit).Reindex(anchorDates)

	codes := append(anchored.Codes(), filled.Codes()...)
	out := timeseries.NewFrame(anchorDates, codes)
	for _, d := range anchorDates {
		for _, c := range filled.Codes() {
			out.Set(d, c, filled.Get(d, c))
		}
		// anchor side wins on overlapping columns
		for _, c := range anchored.Codes() {
			out.Set(d, c, anchored.Get(d, c))
		}
	}
	return out
}

// ValidateDates drops position rows dated on a day absent from both
// calendars. Such rows are data-quality errors: they are logged loudly and
// excluded rather than silently snapped to the nearest trading day.
func (a *Aligner) ValidateDates(rows []contracts.PositionRow, calA, calHK []time.Time) []contracts.PositionRow {
	valid := make(map[int64]struct{}, len(calA)+len(calHK))
	for _, d := range calA {
		valid[timeseries.Normalize(d).Unix()] = struct{}{}
	}
	for _, d := range calHK {
		valid[timeseries.Normalize(d).Unix()] = struct{}{}
	}

	out := make([]contracts.PositionRow, 0, len(rows))
	for _, r := range rows {
		if _, ok := valid[timeseries.Normalize(r.Date).Unix()]; !ok {
			a.logger.WithFields(map[string]interface{}{
				"unit_id":  r.UnitID,
				"stk_code": r.StockCode,
				"date":     r.Date.Format("2006-01-02"),
			}).Error("position row dated on a non-trading day for both markets, dropping")
			continue
		}
		out = append(out, r)
	}
	return out
}
