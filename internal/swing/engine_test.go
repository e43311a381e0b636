package swing

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efund/unitperf/internal/contracts"
	"github.com/efund/unitperf/internal/timeseries"
)

func d(day int) time.Time { return timeseries.Date(2024, time.January, day) }

func flatNetAsset(value float64) *timeseries.Series {
	var dates []time.Time
	var vals []float64
	for day := 2; day <= 31; day++ {
		dates = append(dates, d(day))
		vals = append(vals, value)
	}
	return timeseries.NewSeries(dates, vals)
}

func noAction() (float64, float64) { return math.NaN(), math.NaN() }

func row(day int, code string, pos, vol, amount float64) contracts.PositionRow {
	cash, ratio := noAction()
	return contracts.PositionRow{
		UnitID: 1, Date: d(day), StockCode: code,
		Position: pos, Volume: vol, Amount: amount,
		CashDividend: cash, StockDivRatio: ratio, CashReceived: math.NaN(),
		AdjFactor: 1.0,
	}
}

func TestPureRoundTrip(t *testing.T) {
	// buy 100 at 10, sell 100 at 12: no net change, gain 200
	rows := []contracts.PositionRow{
		row(10, "600519.SH", 100, 100, 1000),
		row(15, "600519.SH", 0, -100, -1200),
	}

	got := Compute(1, rows, flatNetAsset(10000), 1, d(2))
	require.Len(t, got, 1)
	assert.Equal(t, timeseries.Date(2024, time.January, 31), got[0].Date)
	assert.Equal(t, 1, got[0].WindowMonths)
	assert.InDelta(t, 200.0/10000, got[0].SwingReturn, 1e-12)
}

func TestOneDirectionalTradingYieldsNoSwing(t *testing.T) {
	// only buys: pure accumulation, no round trip exists
	rows := []contracts.PositionRow{
		row(10, "600519.SH", 100, 100, 1000),
		row(15, "600519.SH", 300, 200, 2200),
	}

	got := Compute(1, rows, flatNetAsset(10000), 1, d(2))
	assert.Empty(t, got)
}

func TestNetAccumulationIsTrimmedFromNewestTrade(t *testing.T) {
	// buys of 100 and 200, sell of 150: the net +150 is removed from the
	// newest same-sign trade, leaving 100+50 bought against 150 sold
	rows := []contracts.PositionRow{
		row(10, "600519.SH", 100, 100, 1000),  // buy at 10
		row(12, "600519.SH", 300, 200, 2200),  // buy at 11
		row(15, "600519.SH", 150, -150, -1800), // sell at 12
	}

	got := Compute(1, rows, flatNetAsset(10000), 1, d(2))
	require.Len(t, got, 1)
	// gain = -(100*10 + 50*11 - 150*12) = 250
	assert.InDelta(t, 250.0/10000, got[0].SwingReturn, 1e-12)
}

func TestNetReductionZeroesOlderSells(t *testing.T) {
	// start holding 300; sells of 100 and 250, buy of 50: net -300.
	// Walking backward, the sell of 250 absorbs part of the reduction and
	// the older sell is zeroed entirely.
	rows := []contracts.PositionRow{
		row(10, "600519.SH", 200, -100, -1000), // sell at 10
		row(12, "600519.SH", 250, 50, 550),     // buy at 11
		row(15, "600519.SH", 0, -250, -3000),   // sell at 12
	}

	got := Compute(1, rows, flatNetAsset(10000), 1, d(2))
	require.Len(t, got, 1)
	// volDelta = 0 - 300 = -300; newest sell -250 -> |250| < |300|: zeroed,
	// delta becomes -50; buy skipped; oldest sell -100 -> -100-(-50) = -50.
	// gain = -(-50*10 + 50*11) = -50
	assert.InDelta(t, -50.0/10000, got[0].SwingReturn, 1e-12)
}

func TestSplitBackAdjustment(t *testing.T) {
	// buy 100 at 20, then a 1-for-1 bonus doubles the share count and the
	// quote adjustment factor, then sell all 200 at 10.5. On the original
	// share basis that is 100 sold at 21 against 100 bought at 20.
	rows := []contracts.PositionRow{
		row(10, "600519.SH", 100, 100, 2000),
		row(12, "600519.SH", 200, 0, 0),
		row(15, "600519.SH", 0, -200, -2100),
	}
	rows[1].StockDivRatio = 1.0
	rows[1].AdjFactor = 2.0
	rows[2].AdjFactor = 2.0

	got := Compute(1, rows, flatNetAsset(10000), 1, d(2))
	require.Len(t, got, 1)
	assert.InDelta(t, 100.0/10000, got[0].SwingReturn, 1e-12)
}

func TestSwingReturnsSumAcrossStocks(t *testing.T) {
	rows := []contracts.PositionRow{
		// round trip gaining 200
		row(10, "600519.SH", 100, 100, 1000),
		row(15, "600519.SH", 0, -100, -1200),
		// round trip losing 100
		row(11, "0700.HK", 50, 50, 5000),
		row(16, "0700.HK", 0, -50, -4900),
	}

	got := Compute(1, rows, flatNetAsset(10000), 1, d(2))
	require.Len(t, got, 1)
	assert.InDelta(t, (200.0-100.0)/10000, got[0].SwingReturn, 1e-12)
}

func TestWindowExcludesEarlierMonths(t *testing.T) {
	// the sell lands in February; a 1-month window ending in February must
	// not see the January buy, so the stock is one-directional there
	rows := []contracts.PositionRow{
		row(10, "600519.SH", 100, 100, 1000),
		{UnitID: 1, Date: timeseries.Date(2024, time.February, 5), StockCode: "600519.SH",
			Position: 0, Volume: -100, Amount: -1200,
			CashDividend: math.NaN(), StockDivRatio: math.NaN(), CashReceived: math.NaN(), AdjFactor: 1},
	}
	na := flatNetAsset(10000)

	got := Compute(1, rows, na, 1, d(2))
	// January window sees only the buy, February window only the sell
	assert.Empty(t, got)

	// a 2-month window ending in February spans both trades
	got2 := Compute(1, rows, na, 2, d(2))
	require.NotEmpty(t, got2)
	last := got2[len(got2)-1]
	assert.Equal(t, timeseries.Date(2024, time.February, 29), last.Date)
	assert.InDelta(t, 200.0/10000, last.SwingReturn, 1e-12)
}
