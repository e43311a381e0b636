package positions

import (
	"sort"
	"time"

	"github.com/efund/unitperf/internal/contracts"
	"github.com/efund/unitperf/internal/timeseries"
)

// ipoSeasoningDays is the listing age past which an untouched allotment is
// considered a deliberate holding and kept.
const ipoSeasoningDays = 200

// ExcludeIPO strips IPO-allotment noise out of position history:
//
//   - rows dated before the stock's listing date are dropped;
//   - rows of an allotted stock (one with buy volume recorded before its
//     listing) are dropped while the cumulative post-listing buy volume is
//     still zero and the stock has been listed for fewer than 200 days.
//
// A stock with no known listing date cannot be classified and is kept.
func ExcludeIPO(rows []contracts.PositionRow, listings []contracts.StockListing) []contracts.PositionRow {
	listDate := make(map[string]time.Time, len(listings))
	for _, l := range listings {
		if _, ok := listDate[l.StockCode]; !ok {
			listDate[l.StockCode] = timeseries.Normalize(l.ListDate)
		}
	}

	listedDays := func(r contracts.PositionRow) (int, bool) {
		ld, ok := listDate[r.StockCode]
		if !ok {
			return 0, false
		}
		return int(timeseries.Normalize(r.Date).Sub(ld).Hours() / 24), true
	}

	// stocks with buy volume recorded before listing are allotments
	allotted := make(map[string]struct{})
	for _, r := range rows {
		if days, ok := listedDays(r); ok && days < 0 && r.Volume > 0 {
			allotted[r.StockCode] = struct{}{}
		}
	}

	// cumulative post-listing buy volume per stock, in date order
	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return rows[order[a]].Date.Before(rows[order[b]].Date)
	})
	cumBuy := make(map[string]float64)
	cumBuyAt := make([]float64, len(rows))
	for _, i := range order {
		r := rows[i]
		if days, ok := listedDays(r); !ok || days >= 0 {
			if r.Volume > 0 {
				cumBuy[r.StockCode] += r.Volume
			}
			cumBuyAt[i] = cumBuy[r.StockCode]
		}
	}

	out := make([]contracts.PositionRow, 0, len(rows))
	for _, i := range order {
		r := rows[i]
		days, known := listedDays(r)
		if known && days < 0 {
			continue
		}
		if _, isAllot := allotted[r.StockCode]; isAllot && known &&
			cumBuyAt[i] == 0 && days < ipoSeasoningDays {
			continue
		}
		out = append(out, r)
	}
	return out
}
