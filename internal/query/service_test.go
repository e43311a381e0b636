package query

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

func TestCompositeTurnoverWeightsByScale(t *testing.T) {
	day := d(2024, time.April, 15)
	results := []contracts.TurnoverResult{
		{UnitID: 1, Date: day, BuyTurn2: 0.10, SellTurn2: 0.05},
		{UnitID: 2, Date: day, BuyTurn2: 0.20, SellTurn2: 0.10},
	}
	summaries := []contracts.UnitSummary{
		{UnitID: 1, Date: day, NetAsset: 750, NetPurchaseRatio: 0.02},
		{UnitID: 2, Date: day, NetAsset: 250, NetPurchaseRatio: -0.01},
	}

	got := CompositeTurnover(results, summaries, contracts.Monthly, 2)
	require.Len(t, got, 1)

	// natural month-end labels
	assert.Equal(t, d(2024, time.April, 30), got[0].Date)
	assert.InDelta(t, 0.75*0.10+0.25*0.20, got[0].BuyTurn, 1e-12)
	assert.InDelta(t, 0.75*0.05+0.25*0.10, got[0].SellTurn, 1e-12)
	assert.InDelta(t, 0.75*0.02+0.25*-0.01, got[0].NetPurchaseRatio, 1e-12)
}

func TestCompositeTurnoverAggregatesDailyIntoPeriods(t *testing.T) {
	results := []contracts.TurnoverResult{
		{UnitID: 1, Date: d(2024, time.April, 15), BuyTurn1: 0.10},
		{UnitID: 1, Date: d(2024, time.April, 16), BuyTurn1: 0.20},
		{UnitID: 1, Date: d(2024, time.May, 6), BuyTurn1: 0.30},
	}
	summaries := []contracts.UnitSummary{
		{UnitID: 1, Date: d(2024, time.April, 15), NetAsset: 100},
		{UnitID: 1, Date: d(2024, time.April, 16), NetAsset: 100},
		{UnitID: 1, Date: d(2024, time.May, 6), NetAsset: 100},
	}

	got := CompositeTurnover(results, summaries, contracts.Monthly, 1)
	require.Len(t, got, 2)
	// single unit: weight 1, monthly sums of the daily figures
	assert.InDelta(t, 0.30, got[0].BuyTurn, 1e-12)
	assert.InDelta(t, 0.30, got[1].BuyTurn, 1e-12)
	assert.Equal(t, d(2024, time.May, 31), got[1].Date)
}

func TestCompositeSwingCarriesWeightsForward(t *testing.T) {
	// results dated on the natural month-end, weights only on trading days
	results := []contracts.SwingResult{
		{UnitID: 1, WindowMonths: 3, Date: d(2024, time.April, 30), SwingReturn: 0.04},
		{UnitID: 2, WindowMonths: 3, Date: d(2024, time.April, 30), SwingReturn: -0.02},
	}
	summaries := []contracts.UnitSummary{
		{UnitID: 1, Date: d(2024, time.April, 26), NetAsset: 600},
		{UnitID: 2, Date: d(2024, time.April, 26), NetAsset: 400},
	}

	got := CompositeSwing(results, summaries)
	require.Len(t, got.Points, 1)
	assert.InDelta(t, 0.6*0.04+0.4*-0.02, got.Points[0].SwingReturn, 1e-12)
}

func TestCompositeSwingStatistics(t *testing.T) {
	results := []contracts.SwingResult{
		{UnitID: 1, WindowMonths: 1, Date: d(2024, time.January, 31), SwingReturn: 0.10},
		{UnitID: 1, WindowMonths: 1, Date: d(2024, time.February, 29), SwingReturn: -0.05},
		{UnitID: 1, WindowMonths: 1, Date: d(2024, time.March, 31), SwingReturn: 0.01},
	}
	summaries := []contracts.UnitSummary{
		{UnitID: 1, Date: d(2024, time.January, 31), NetAsset: 100},
	}

	got := CompositeSwing(results, summaries)
	require.Len(t, got.Points, 3)
	assert.InDelta(t, (0.10-0.05+0.01)/3, got.Mean, 1e-12)
	assert.InDelta(t, 2.0/3.0, got.WinRate, 1e-12)
}

func TestCompositeSwingEmpty(t *testing.T) {
	got := CompositeSwing(nil, nil)
	assert.Empty(t, got.Points)
	assert.True(t, math.IsNaN(got.Mean))
	assert.True(t, math.IsNaN(got.WinRate))
}
