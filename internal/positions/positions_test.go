package positions

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

func TestExcludeIPODropsPreListingRows(t *testing.T) {
	rows := []contracts.PositionRow{
		{UnitID: 1, Date: d(2024, time.March, 1), StockCode: "301999.SZ", Volume: 500},
		{UnitID: 1, Date: d(2024, time.March, 11), StockCode: "301999.SZ", Position: 500},
	}
	listings := []contracts.StockListing{
		{StockCode: "301999.SZ", ListDate: d(2024, time.March, 10)},
	}

	out := ExcludeIPO(rows, listings)
	for _, r := range out {
		assert.False(t, r.Date.Before(d(2024, time.March, 10)), "pre-listing row survived")
	}
}

func TestExcludeIPODropsUntouchedAllotment(t *testing.T) {
	// allotment bought before listing, never bought again afterwards: all
	// post-listing rows inside the seasoning window are noise
	rows := []contracts.PositionRow{
		{UnitID: 1, Date: d(2024, time.March, 1), StockCode: "301999.SZ", Volume: 500},
		{UnitID: 1, Date: d(2024, time.March, 11), StockCode: "301999.SZ", Position: 500},
		{UnitID: 1, Date: d(2024, time.March, 12), StockCode: "301999.SZ", Position: 500},
	}
	listings := []contracts.StockListing{
		{StockCode: "301999.SZ", ListDate: d(2024, time.March, 10)},
	}

	out := ExcludeIPO(rows, listings)
	assert.Empty(t, out)
}

func TestExcludeIPOKeepsAllotmentAfterPostListingBuy(t *testing.T) {
	// a deliberate post-listing buy turns the stock into a real holding
	// from that day on
	rows := []contracts.PositionRow{
		{UnitID: 1, Date: d(2024, time.March, 1), StockCode: "301999.SZ", Volume: 500},
		{UnitID: 1, Date: d(2024, time.March, 11), StockCode: "301999.SZ", Position: 500},
		{UnitID: 1, Date: d(2024, time.March, 12), StockCode: "301999.SZ", Position: 800, Volume: 300},
		{UnitID: 1, Date: d(2024, time.March, 13), StockCode: "301999.SZ", Position: 800},
	}
	listings := []contracts.StockListing{
		{StockCode: "301999.SZ", ListDate: d(2024, time.March, 10)},
	}

	out := ExcludeIPO(rows, listings)
	require.Len(t, out, 2)
	assert.Equal(t, d(2024, time.March, 12), out[0].Date)
	assert.Equal(t, d(2024, time.March, 13), out[1].Date)
}

func TestExcludeIPOKeepsSeasonedAllotment(t *testing.T) {
	// held past the seasoning window with no buys: treated as deliberate
	rows := []contracts.PositionRow{
		{UnitID: 1, Date: d(2023, time.March, 1), StockCode: "301999.SZ", Volume: 500},
		{UnitID: 1, Date: d(2024, time.March, 1), StockCode: "301999.SZ", Position: 500},
	}
	listings := []contracts.StockListing{
		{StockCode: "301999.SZ", ListDate: d(2023, time.March, 10)},
	}

	out := ExcludeIPO(rows, listings)
	require.Len(t, out, 1)
	assert.Equal(t, d(2024, time.March, 1), out[0].Date)
}

func TestExcludeIPOKeepsUnknownListing(t *testing.T) {
	rows := []contracts.PositionRow{
		{UnitID: 1, Date: d(2024, time.March, 1), StockCode: "600519.SH", Position: 100},
	}
	out := ExcludeIPO(rows, nil)
	assert.Len(t, out, 1)
}

func TestExcludeIPOLeavesOrdinaryStocksAlone(t *testing.T) {
	rows := []contracts.PositionRow{
		{UnitID: 1, Date: d(2024, time.March, 1), StockCode: "600519.SH", Position: 100},
		{UnitID: 1, Date: d(2024, time.March, 4), StockCode: "600519.SH", Position: 0, Volume: -100},
	}
	listings := []contracts.StockListing{
		{StockCode: "600519.SH", ListDate: d(2001, time.August, 27)},
	}
	out := ExcludeIPO(rows, listings)
	assert.Len(t, out, 2)
}

func TestScaleWeights(t *testing.T) {
	summaries := []contracts.UnitSummary{
		{UnitID: 1, Date: d(2024, time.June, 3), NetAsset: 300},
		{UnitID: 2, Date: d(2024, time.June, 3), NetAsset: 100},
		{UnitID: 1, Date: d(2024, time.June, 4), NetAsset: 0},
		{UnitID: 2, Date: d(2024, time.June, 4), NetAsset: 0},
	}

	got := ScaleWeights(summaries)
	require.Len(t, got, 4)
	assert.InDelta(t, 0.75, got[0].Weight, 1e-12)
	assert.InDelta(t, 0.25, got[1].Weight, 1e-12)
	// zero combined base is not computable
	assert.True(t, math.IsNaN(got[2].Weight))
	assert.True(t, math.IsNaN(got[3].Weight))
}
