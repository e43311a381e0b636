package resample

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/efund/unitperf/internal/contracts"
)

// DeviationMethod selects the hurdle a return must fall below to count as
// downside deviation.
type DeviationMethod int

const (
	// MethodRiskFree measures deviation against a per-period risk-free
	// hurdle (annual rate divided by periods per year).
	MethodRiskFree DeviationMethod = iota
	// MethodMean measures deviation against the sample mean.
	MethodMean
)

// DownsideStd computes the semi-deviation of a return sample:
// sqrt(sum(min(r - hurdle, 0)^2) / (n - 1)). One observation or fewer
// yields NaN since the sample variance is undefined.
func DownsideStd(ret []float64, method DeviationMethod, rf float64, freq contracts.PeriodKind) float64 {
	obs := dropNaN(ret)
	if len(obs) <= 1 {
		return math.NaN()
	}
	var hurdle float64
	switch method {
	case MethodRiskFree:
		hurdle = rf / freq.PeriodsPerYear()
	case MethodMean:
		hurdle = stat.Mean(obs, nil)
	}
	var ss float64
	for _, r := range obs {
		if d := r - hurdle; d < 0 {
			ss += d * d
		}
	}
	return math.Sqrt(ss / float64(len(obs)-1))
}

// PeriodDrawdown compounds a return series into a cumulative index seeded at
// 1.0 before the first observation and returns max(1 - index/runningMax).
// The seed makes a first-day loss count as drawdown.
func PeriodDrawdown(ret []float64) float64 {
	if len(ret) == 0 {
		return math.NaN()
	}
	nav, peak, worst := 1.0, 1.0, 0.0
	for _, r := range ret {
		nav *= 1 + r
		if nav > peak {
			peak = nav
		}
		if dd := 1 - nav/peak; dd > worst || math.IsNaN(dd) {
			worst = dd
		}
	}
	return worst
}

// median of the non-NaN observations; NaN for an empty sample.
// gonum's quantile estimators follow a different interpolation convention
// than the mid-sample median persisted by the legacy reports, so the median
// is computed directly.
func median(xs []float64) float64 {
	obs := dropNaN(xs)
	n := len(obs)
	if n == 0 {
		return math.NaN()
	}
	sorted := make([]float64, n)
	copy(sorted, obs)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func dropNaN(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}
