package resample

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efund/unitperf/internal/contracts"
	"github.com/efund/unitperf/internal/timeseries"
)

func d(y int, m time.Month, day int) time.Time { return timeseries.Date(y, m, day) }

func seq(start time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

func TestWeeklyBucketsUseISOWeek(t *testing.T) {
	// 2014-12-30 is ISO week 1 of 2015: it must share a bucket with
	// 2015-01-02, not with the rest of December.
	dates := []time.Time{d(2014, time.December, 26), d(2014, time.December, 30), d(2015, time.January, 2)}
	s := timeseries.NewSeries(dates, []float64{1, 2, 3})
	agg := NewAggregator(s, Weekly)

	require.Equal(t, 2, agg.Len())
	sum := agg.Sum()
	assert.Equal(t, 1.0, sum.Get(d(2014, time.December, 26)))
	assert.Equal(t, 5.0, sum.Get(d(2015, time.January, 2)))
}

func TestBucketLabelIsLastObservation(t *testing.T) {
	// February ends on a Friday the 26th in this sample: the bucket label
	// must be the 26th, not a synthetic month-end.
	dates := []time.Time{d(2021, time.February, 24), d(2021, time.February, 26), d(2021, time.March, 1)}
	s := timeseries.NewSeries(dates, []float64{1, 2, 3})
	agg := NewAggregator(s, Monthly)

	last := agg.LastValue()
	assert.True(t, last.Contains(d(2021, time.February, 26)))
	assert.True(t, last.Contains(d(2021, time.March, 1)))
	assert.False(t, last.Contains(d(2021, time.February, 28)))
}

func TestMonthlyRoundTrip(t *testing.T) {
	// Resampling to monthly and forward-filling back to daily must
	// reproduce each month's representative value on every later day of
	// that month.
	dates := seq(d(2024, time.March, 1), 70)
	vals := make([]float64, len(dates))
	for i := range vals {
		vals[i] = float64(i)
	}
	daily := timeseries.NewSeries(dates, vals)

	monthly := NewAggregator(daily, Monthly).LastValue()
	back := monthly.Reindex(dates).ForwardFill(0)

	// every day carries the most recent month-close value; days before the
	// first close have no value yet
	for i, day := range dates {
		want := math.NaN()
		for j, lbl := range monthly.Dates() {
			if !lbl.After(day) {
				want = monthly.Values()[j]
			}
		}
		got := back.Values()[i]
		if math.IsNaN(want) {
			assert.True(t, math.IsNaN(got), "day %v", day)
		} else {
			assert.Equal(t, want, got, "day %v", day)
		}
	}
}

func TestReducers(t *testing.T) {
	dates := seq(d(2024, time.January, 2), 4)
	s := timeseries.NewSeries(dates, []float64{1, 2, 3, math.NaN()})
	agg := NewAggregator(s, Monthly)

	assert.Equal(t, 6.0, agg.Sum().Values()[0])
	assert.Equal(t, 2.0, agg.Mean().Values()[0])
	assert.Equal(t, 2.0, agg.Median().Values()[0])
	assert.Equal(t, 3.0, agg.Count().Values()[0])
	assert.True(t, math.IsNaN(agg.LastValue().Values()[0]))
	assert.InDelta(t, 1.0, agg.Std().Values()[0], 1e-12)
}

func TestChangeForwardAndBackward(t *testing.T) {
	dates := []time.Time{
		d(2024, time.January, 31), d(2024, time.February, 29), d(2024, time.March, 29),
	}
	s := timeseries.NewSeries(dates, []float64{100, 110, 99})
	agg := NewAggregator(s, Monthly)

	back := agg.Change(true, 1)
	assert.True(t, math.IsNaN(back.Values()[0]))
	assert.InDelta(t, 0.10, back.Values()[1], 1e-12)
	assert.InDelta(t, -0.10, back.Values()[2], 1e-12)

	fwd := agg.Change(true, -1)
	assert.InDelta(t, 0.10, fwd.Values()[0], 1e-12)
	assert.InDelta(t, -0.10, fwd.Values()[1], 1e-12)
	assert.True(t, math.IsNaN(fwd.Values()[2]))

	abs := agg.Change(false, 1)
	assert.Equal(t, 10.0, abs.Values()[1])
}

func TestDownsideStd(t *testing.T) {
	// only returns below the hurdle contribute
	ret := []float64{0.01, -0.02, 0.03, -0.01}
	got := DownsideStd(ret, MethodRiskFree, 0, contracts.Daily)
	want := math.Sqrt((0.02*0.02 + 0.01*0.01) / 3)
	assert.InDelta(t, want, got, 1e-12)

	// a single observation has no sample deviation
	assert.True(t, math.IsNaN(DownsideStd([]float64{0.05}, MethodRiskFree, 0.02, contracts.Daily)))
	assert.True(t, math.IsNaN(DownsideStd(nil, MethodMean, 0, contracts.Monthly)))

	// annual hurdle is scaled by the declared frequency
	flat := []float64{0.001, 0.001}
	assert.Equal(t, 0.0, DownsideStd(flat, MethodRiskFree, 0.0, contracts.Daily))
	hurdled := DownsideStd(flat, MethodRiskFree, 0.5, contracts.Monthly) // 0.5/12 > 0.001
	assert.Greater(t, hurdled, 0.0)
}

func TestPeriodDrawdownSeedsBeforeFirstObservation(t *testing.T) {
	// a first-day loss must count as drawdown thanks to the 1.0 seed
	assert.InDelta(t, 0.10, PeriodDrawdown([]float64{-0.10, 0.05}), 1e-12)
	// monotone gains never draw down
	assert.Equal(t, 0.0, PeriodDrawdown([]float64{0.01, 0.02}))
	// peak then trough
	got := PeriodDrawdown([]float64{0.10, -0.20})
	assert.InDelta(t, 0.20, got, 1e-12)
}

func TestTradingDayToNatural(t *testing.T) {
	assert.Equal(t, d(2024, time.February, 29), TradingDayToNatural(d(2024, time.February, 15), Monthly))
	assert.Equal(t, d(2024, time.March, 31), TradingDayToNatural(d(2024, time.February, 15), Quarterly))
	assert.Equal(t, d(2024, time.June, 30), TradingDayToNatural(d(2024, time.April, 1), Quarterly))
	assert.Equal(t, d(2024, time.December, 31), TradingDayToNatural(d(2024, time.May, 10), Annual))
	assert.Equal(t, d(2024, time.May, 10), TradingDayToNatural(d(2024, time.May, 10), Daily))
}

func TestTargetDaysMonthly(t *testing.T) {
	dates := []time.Time{
		d(2024, time.January, 2), d(2024, time.January, 15), d(2024, time.January, 31),
		d(2024, time.February, 1), d(2024, time.February, 29),
	}
	first := TargetDays(dates, Monthly, 1, true, 0)
	assert.Equal(t, []time.Time{d(2024, time.January, 2), d(2024, time.February, 1)}, first)

	last := TargetDays(dates, Monthly, -1, false, 0)
	assert.Equal(t, []time.Time{d(2024, time.January, 31), d(2024, time.February, 29)}, last)

	// which_day beyond the bucket size clamps to the last available date
	clamped := TargetDays(dates, Monthly, 31, true, 0)
	assert.Equal(t, last, clamped)
}

func TestTargetDaysQuarterlyStartMonthAndTail(t *testing.T) {
	var dates []time.Time
	for m := time.January; m <= time.August; m++ {
		dates = append(dates, d(2024, m, 10), d(2024, m, 25))
	}

	// end-of-quarter schedule: months 3 and 6, plus the trailing partial
	// period's final pick (August)
	ends := TargetDays(dates, Quarterly, -1, false, 0)
	assert.Equal(t, []time.Time{
		d(2024, time.March, 25), d(2024, time.June, 25), d(2024, time.August, 25),
	}, ends)

	// begin-of-quarter schedule: months 1, 4, 7; no tail append
	begins := TargetDays(dates, Quarterly, 1, true, 0)
	assert.Equal(t, []time.Time{
		d(2024, time.January, 10), d(2024, time.April, 10), d(2024, time.July, 10),
	}, begins)

	// explicit start month shifts the filter
	shifted := TargetDays(dates, Quarterly, 1, true, 2)
	assert.Equal(t, []time.Time{
		d(2024, time.February, 10), d(2024, time.May, 10), d(2024, time.August, 10),
	}, shifted)
}

func TestTargetDaysSemiannual(t *testing.T) {
	var dates []time.Time
	for m := time.January; m <= time.December; m++ {
		dates = append(dates, d(2023, m, 15))
	}
	ends := TargetDays(dates, Semiannual, -1, false, 0)
	assert.Equal(t, []time.Time{d(2023, time.June, 15), d(2023, time.December, 15)}, ends)
}

func TestTargetDaysWeeklyAndDaily(t *testing.T) {
	// Mon Jan 8 .. Fri Jan 12 plus Mon Jan 15
	dates := append(seq(d(2024, time.January, 8), 5), d(2024, time.January, 15))
	lastPerWeek := TargetDays(dates, Weekly, -1, true, 0)
	assert.Equal(t, []time.Time{d(2024, time.January, 12), d(2024, time.January, 15)}, lastPerWeek)

	assert.Len(t, TargetDays(dates, Daily, 1, true, 0), len(dates))
}
