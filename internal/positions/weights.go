package positions

import (
	"math"
	"sort"
	"time"

	"github.com/efund/unitperf/internal/contracts"
	"github.com/efund/unitperf/internal/timeseries"
)

// ScaleWeight is the share of one unit in the combined net asset base on one
// date, used to blend per-unit results into composite figures.
type ScaleWeight struct {
	UnitID int       `json:"unit_id"`
	Date   time.Time `json:"date"`
	Weight float64   `json:"scale_weight"`
}

// ScaleWeights computes per-date net-asset weights across units. A date with
// a zero or negative combined base yields NaN weights: not computable, not
// zero.
func ScaleWeights(summaries []contracts.UnitSummary) []ScaleWeight {
	totals := make(map[int64]float64)
	for _, s := range summaries {
		totals[timeseries.Normalize(s.Date).Unix()] += s.NetAsset
	}

	out := make([]ScaleWeight, 0, len(summaries))
	for _, s := range summaries {
		key := timeseries.Normalize(s.Date).Unix()
		w := math.NaN()
		if total := totals[key]; total > 0 {
			w = s.NetAsset / total
		}
		out = append(out, ScaleWeight{
			UnitID: s.UnitID,
			Date:   timeseries.Normalize(s.Date),
			Weight: w,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].UnitID < out[j].UnitID
	})
	return out
}
