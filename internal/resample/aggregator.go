// Package resample groups irregular daily series into calendar-period
// buckets and reduces each bucket. Every derived report in the service is
// keyed off these bucket rules, so they must not drift: weekly buckets use
// the ISO (year, week) pair, and every bucket is labeled with the last
// original timestamp it contains, never a synthetic period-end date.
package resample

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/efund/unitperf/internal/contracts"
	"github.com/efund/unitperf/internal/timeseries"
)

// bucketKey identifies one resampling bucket. Unused components are zero.
type bucketKey struct {
	a, b, c int
}

func keyOf(kind contracts.PeriodKind, t time.Time) bucketKey {
	switch kind {
	case Weekly:
		// ISO week, not calendar-year week: Dec 30 can belong to week 1
		// of the following year.
		y, w := t.ISOWeek()
		return bucketKey{a: y, b: w}
	case Monthly:
		return bucketKey{a: t.Year(), b: int(t.Month())}
	case Quarterly:
		return bucketKey{a: t.Year(), b: (int(t.Month())-1)/3 + 1}
	case Semiannual:
		h := 1
		if t.Month() > time.June {
			h = 2
		}
		return bucketKey{a: t.Year(), b: h}
	case Annual:
		return bucketKey{a: t.Year()}
	default: // Daily
		return bucketKey{a: t.Year(), b: int(t.Month()), c: t.Day()}
	}
}

// Aliases so callers can say resample.Monthly.
const (
	Daily      = contracts.Daily
	Weekly     = contracts.Weekly
	Monthly    = contracts.Monthly
	Quarterly  = contracts.Quarterly
	Semiannual = contracts.Semiannual
	Annual     = contracts.Annual
)

// Aggregator buckets a daily series once and serves all reducers from the
// same grouping. Buckets are ordered chronologically; each is labeled with
// the last original timestamp falling inside it.
type Aggregator struct {
	kind    contracts.PeriodKind
	labels  []time.Time
	buckets [][]float64
}

// NewAggregator groups the series by the bucket rule for kind.
func NewAggregator(s *timeseries.Series, kind contracts.PeriodKind) *Aggregator {
	a := &Aggregator{kind: kind}
	idx := make(map[bucketKey]int)
	for i, d := range s.Dates() {
		k := keyOf(kind, d)
		j, ok := idx[k]
		if !ok {
			j = len(a.buckets)
			idx[k] = j
			a.buckets = append(a.buckets, nil)
			a.labels = append(a.labels, d)
		}
		a.buckets[j] = append(a.buckets[j], s.Values()[i])
		a.labels[j] = d
	}
	return a
}

// Len returns the number of buckets.
func (a *Aggregator) Len() int { return len(a.labels) }

func (a *Aggregator) reduce(fn func([]float64) float64) *timeseries.Series {
	vals := make([]float64, len(a.buckets))
	for i, b := range a.buckets {
		vals[i] = fn(b)
	}
	return timeseries.NewSeries(a.labels, vals)
}

// Sum reduces each bucket to the sum of its non-NaN values (0 for an
// all-NaN bucket).
func (a *Aggregator) Sum() *timeseries.Series {
	return a.reduce(func(b []float64) float64 {
		var s float64
		for _, v := range b {
			if !math.IsNaN(v) {
				s += v
			}
		}
		return s
	})
}

// Mean reduces each bucket to its mean over non-NaN values.
func (a *Aggregator) Mean() *timeseries.Series {
	return a.reduce(func(b []float64) float64 {
		obs := dropNaN(b)
		if len(obs) == 0 {
			return math.NaN()
		}
		return stat.Mean(obs, nil)
	})
}

// Median reduces each bucket to its median over non-NaN values.
func (a *Aggregator) Median() *timeseries.Series {
	return a.reduce(median)
}

// Count reduces each bucket to its number of non-NaN values.
func (a *Aggregator) Count() *timeseries.Series {
	return a.reduce(func(b []float64) float64 {
		return float64(len(dropNaN(b)))
	})
}

// LastValue reduces each bucket to its final observation.
func (a *Aggregator) LastValue() *timeseries.Series {
	return a.reduce(func(b []float64) float64 {
		return b[len(b)-1]
	})
}

// Change reduces each bucket to its final observation and differences the
// result across buckets. A non-negative period looks back that many buckets;
// a negative period looks forward. With pct the delta is expressed as a
// fractional change.
func (a *Aggregator) Change(pct bool, period int) *timeseries.Series {
	last := make([]float64, len(a.buckets))
	for i, b := range a.buckets {
		last[i] = b[len(b)-1]
	}
	vals := make([]float64, len(last))
	for i := range last {
		cur, other := last[i], math.NaN()
		if period >= 0 {
			if j := i - period; j >= 0 {
				other = last[j]
			}
			if pct {
				vals[i] = cur/other - 1
			} else {
				vals[i] = cur - other
			}
		} else {
			if j := i - period; j < len(last) {
				other = last[j]
			}
			if pct {
				vals[i] = other/cur - 1
			} else {
				vals[i] = other - cur
			}
		}
	}
	return timeseries.NewSeries(a.labels, vals)
}

// Std reduces each bucket to its sample standard deviation (NaN for fewer
// than two observations).
func (a *Aggregator) Std() *timeseries.Series {
	return a.reduce(func(b []float64) float64 {
		obs := dropNaN(b)
		if len(obs) <= 1 {
			return math.NaN()
		}
		return stat.StdDev(obs, nil)
	})
}

// DownsideStd reduces each bucket of daily returns to its semi-deviation
// against a daily risk-free hurdle. The divisor is the daily one because the
// observations inside a bucket are daily regardless of the bucket width.
func (a *Aggregator) DownsideStd(rf float64) *timeseries.Series {
	return a.reduce(func(b []float64) float64 {
		return DownsideStd(b, MethodRiskFree, rf, contracts.Daily)
	})
}

// MaxDrawdown reduces each bucket of returns to its in-period maximum
// drawdown.
func (a *Aggregator) MaxDrawdown() *timeseries.Series {
	return a.reduce(PeriodDrawdown)
}
