package efficiency

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efund/unitperf/internal/contracts"
	"github.com/efund/unitperf/internal/timeseries"
)

var cutover = timeseries.Date(2023, time.August, 28)

func d(y int, m time.Month, day int) time.Time { return timeseries.Date(y, m, day) }

func row(date time.Time, code string, mv, amount float64) contracts.PositionRow {
	return contracts.PositionRow{
		UnitID: 1, Date: date, StockCode: code, MarketValue: mv, Amount: amount,
		CashDividend: math.NaN(), StockDivRatio: math.NaN(), CashReceived: math.NaN(),
	}
}

func series(pairs map[int]float64, y int, m time.Month) *timeseries.Series {
	var dates []time.Time
	var vals []float64
	for day, v := range pairs {
		dates = append(dates, d(y, m, day))
		vals = append(vals, v)
	}
	return timeseries.NewSeries(dates, vals)
}

func TestActualReturnsFirstDayIsZero(t *testing.T) {
	rows := []contracts.PositionRow{
		row(d(2024, time.March, 1), "600519.SH", 1000, 0),
		row(d(2024, time.March, 4), "600519.SH", 1100, 0),
	}
	na := series(map[int]float64{1: 1000, 4: 1100}, 2024, time.March)

	got := ActualReturns(rows, na, cutover)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, 0.0, got.Values()[0])
	assert.InDelta(t, 0.1, got.Values()[1], 1e-12)
}

func TestActualReturnsCostRegimes(t *testing.T) {
	na := func(y int, m time.Month, d1, d2 int) *timeseries.Series {
		return series(map[int]float64{d1: 10000, d2: 10000}, y, m)
	}

	// sell of 1000 before the cutover: old stamp duty and commission
	preRows := []contracts.PositionRow{
		row(d(2023, time.August, 24), "600519.SH", 1000, 0),
		row(d(2023, time.August, 25), "600519.SH", 0, -1000),
	}
	pre := ActualReturns(preRows, na(2023, time.August, 24, 25), cutover)
	wantPre := (0 - 1000 + 1000*(1-0.001-0.0008)) / 10000
	assert.InDelta(t, wantPre, pre.Values()[1], 1e-12)

	// the same sell on the cutover date itself: new rates apply
	postRows := []contracts.PositionRow{
		row(d(2023, time.August, 25), "600519.SH", 1000, 0),
		row(cutover, "600519.SH", 0, -1000),
	}
	post := ActualReturns(postRows, series(map[int]float64{25: 10000, 28: 10000}, 2023, time.August), cutover)
	wantPost := (0 - 1000 + 1000*(1-0.0005-0.0004)) / 10000
	assert.InDelta(t, wantPost, post.Values()[1], 1e-12)

	// buys pay commission only
	buyRows := []contracts.PositionRow{
		row(d(2024, time.March, 1), "600519.SH", 0, 0),
		row(d(2024, time.March, 4), "600519.SH", 1000, 1000),
	}
	buy := ActualReturns(buyRows, series(map[int]float64{1: 10000, 4: 10000}, 2024, time.March), cutover)
	wantBuy := (1000 - 0 - 1000*(1+0.0004)) / 10000
	assert.InDelta(t, wantBuy, buy.Values()[1], 1e-12)
}

func TestActualReturnsDropsDaysWithoutBase(t *testing.T) {
	rows := []contracts.PositionRow{
		row(d(2024, time.March, 1), "600519.SH", 1000, 0),
		row(d(2024, time.March, 4), "600519.SH", 1100, 0),
		row(d(2024, time.March, 5), "600519.SH", 1200, 0),
	}
	// no net asset on March 4: March 5 has no usable prior base
	na := series(map[int]float64{1: 1000, 5: 1200}, 2024, time.March)

	got := ActualReturns(rows, na, cutover)
	require.Equal(t, 2, got.Len())
	assert.False(t, got.Contains(d(2024, time.March, 5)))
}

// buyAndHoldFixture builds a unit fully invested in one stock whose market
// value tracks the close exactly, with no trading.
func buyAndHoldFixture() (weight, closeFrame *timeseries.Frame, actual *timeseries.Series) {
	dates := []time.Time{
		d(2024, time.January, 30), d(2024, time.January, 31),
		d(2024, time.February, 1), d(2024, time.February, 2),
	}
	closes := []float64{10, 11, 11, 12}

	closeFrame = timeseries.NewFrame(dates, []string{"600519.SH"})
	weight = timeseries.NewFrame(dates, []string{"600519.SH"})
	var rows []contracts.PositionRow
	var naDates []time.Time
	var naVals []float64
	for i, dt := range dates {
		mv := 100 * closes[i]
		closeFrame.Set(dt, "600519.SH", closes[i])
		weight.Set(dt, "600519.SH", 1.0)
		rows = append(rows, row(dt, "600519.SH", mv, 0))
		naDates = append(naDates, dt)
		naVals = append(naVals, mv)
	}
	actual = ActualReturns(rows, timeseries.NewSeries(naDates, naVals), cutover)
	return weight, closeFrame, actual
}

func TestPeriodicEfficiencyZeroWithoutTrading(t *testing.T) {
	weight, closeFrame, actual := buyAndHoldFixture()

	got := Periodic(1, weight, closeFrame, actual, contracts.Monthly)
	require.Len(t, got, 2)

	// period boundaries map to natural month-ends
	assert.Equal(t, d(2024, time.January, 31), got[0].Date)
	assert.Equal(t, d(2024, time.February, 29), got[1].Date)

	// a portfolio that never trades is exactly as good as holding itself
	for _, res := range got {
		assert.InDelta(t, 0.0, res.Efficiency, 1e-12)
		assert.Equal(t, "m", res.Freq)
	}
}

func TestRollingEfficiencyZeroWithoutTrading(t *testing.T) {
	weight, closeFrame, actual := buyAndHoldFixture()

	got := Rolling(1, weight, closeFrame, actual, 2)
	require.Len(t, got, 4)
	for _, res := range got {
		assert.InDelta(t, 0.0, res.Efficiency, 1e-12)
		assert.Equal(t, 2, res.WindowDays)
	}
}

func TestRollingEfficiencyShrinksAtTail(t *testing.T) {
	weight, closeFrame, actual := buyAndHoldFixture()

	// window far longer than the history: every date still gets a value,
	// realized over whatever remains
	got := Rolling(1, weight, closeFrame, actual, 243)
	require.Len(t, got, 4)
	for _, res := range got {
		assert.False(t, math.IsNaN(res.Efficiency), "tail value must shrink, not go null")
		assert.InDelta(t, 0.0, res.Efficiency, 1e-12)
	}
}

func TestPeriodicEfficiencyDetectsTradingValue(t *testing.T) {
	weight, closeFrame, actual := buyAndHoldFixture()

	// bump the realized daily returns above the drift: positive efficiency
	boosted := make([]float64, actual.Len())
	for i, v := range actual.Values() {
		boosted[i] = v + 0.01
	}
	better := timeseries.NewSeries(actual.Dates(), boosted)

	got := Periodic(1, weight, closeFrame, better, contracts.Monthly)
	require.NotEmpty(t, got)
	for _, res := range got {
		assert.Greater(t, res.Efficiency, 0.0)
	}
}
