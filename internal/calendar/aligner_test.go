package calendar

import (
	"math"
	"testing"
	"time"

	"github.com/efund/unitperf/internal/contracts"
	"github.com/efund/unitperf/internal/timeseries"
	"github.com/efund/unitperf/pkg/config"
	"github.com/efund/unitperf/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
}

func day(d int) time.Time {
	return timeseries.Date(2024, time.January, d)
}

func TestMergeMarketsKeepsAnchorValues(t *testing.T) {
	// A market open Jan 2-5; HK open Jan 2,3,5 (holiday Jan 4).
	a := timeseries.NewFrame([]time.Time{day(2), day(3), day(4), day(5)}, []string{"600519.SH"})
	a.Set(day(2), "600519.SH", 100)
	a.Set(day(3), "600519.SH", 101)
	a.Set(day(4), "600519.SH", 102)
	a.Set(day(5), "600519.SH", 103)

	hk := timeseries.NewFrame([]time.Time{day(2), day(3), day(5)}, []string{"0700.HK"})
	hk.Set(day(2), "0700.HK", 300)
	hk.Set(day(3), "0700.HK", 310)
	hk.Set(day(5), "0700.HK", 320)

	merged := NewAligner(10, testLogger()).MergeMarkets(a, hk, contracts.MarketSSE)

	// anchor values reproduced unchanged on every anchor date
	for _, d := range []time.Time{day(2), day(3), day(4), day(5)} {
		if got, want := merged.Get(d, "600519.SH"), a.Get(d, "600519.SH"); got != want {
			t.Errorf("anchor value at %v = %v, want %v", d, got, want)
		}
	}

	// HK holiday gap forward-filled with the last known HK value
	if got := merged.Get(day(4), "0700.HK"); got != 310 {
		t.Errorf("filled HK value = %v, want 310", got)
	}
	if got := merged.Get(day(5), "0700.HK"); got != 320 {
		t.Errorf("HK value on open day = %v, want 320", got)
	}
}

func TestMergeMarketsRestrictsToAnchorDates(t *testing.T) {
	// HK open on a mainland holiday: that date must not appear in the output.
	a := timeseries.NewFrame([]time.Time{day(2), day(4)}, []string{"600519.SH"})
	a.Set(day(2), "600519.SH", 100)
	a.Set(day(4), "600519.SH", 101)

	hk := timeseries.NewFrame([]time.Time{day(2), day(3), day(4)}, []string{"0700.HK"})
	hk.Set(day(2), "0700.HK", 300)
	hk.Set(day(3), "0700.HK", 310)
	hk.Set(day(4), "0700.HK", 320)

	merged := NewAligner(10, testLogger()).MergeMarkets(a, hk, contracts.MarketSSE)

	if merged.NumDates() != 2 {
		t.Fatalf("merged dates = %d, want 2", merged.NumDates())
	}
	if merged.HasDate(day(3)) {
		t.Error("non-anchor date leaked into merged frame")
	}
}

func TestMergeMarketsFillLimit(t *testing.T) {
	// 12 consecutive anchor days with no HK data after day 2: the fill must
	// stop after 10 rows.
	aDates := make([]time.Time, 0, 13)
	for d := 2; d <= 14; d++ {
		aDates = append(aDates, day(d))
	}
	a := timeseries.NewFrame(aDates, nil)

	hk := timeseries.NewFrame([]time.Time{day(2)}, []string{"0700.HK"})
	hk.Set(day(2), "0700.HK", 300)

	merged := NewAligner(10, testLogger()).MergeMarkets(a, hk, contracts.MarketSSE)

	if got := merged.Get(day(12), "0700.HK"); got != 300 {
		t.Errorf("value within fill limit = %v, want 300", got)
	}
	if !math.IsNaN(merged.Get(day(13), "0700.HK")) {
		t.Error("value beyond fill limit should be NaN")
	}
}

func TestMergeMarketsEmptyAnchor(t *testing.T) {
	a := timeseries.NewFrame(nil, nil)
	hk := timeseries.NewFrame([]time.Time{day(2)}, []string{"0700.HK"})
	hk.Set(day(2), "0700.HK", 300)

	merged := NewAligner(10, testLogger()).MergeMarkets(a, hk, contracts.MarketSSE)
	if merged.NumDates() != 0 {
		t.Errorf("empty anchor should produce empty index, got %d dates", merged.NumDates())
	}
}

func TestMergeMarketsDeterministic(t *testing.T) {
	a := timeseries.NewFrame([]time.Time{day(2), day(3)}, []string{"600519.SH"})
	a.Set(day(2), "600519.SH", 100)
	a.Set(day(3), "600519.SH", 101)
	hk := timeseries.NewFrame([]time.Time{day(2)}, []string{"0700.HK"})
	hk.Set(day(2), "0700.HK", 300)

	al := NewAligner(10, testLogger())
	m1 := al.MergeMarkets(a, hk, contracts.MarketSSE)
	m2 := al.MergeMarkets(a, hk, contracts.MarketSSE)

	for _, d := range m1.Dates() {
		for _, c := range m1.Codes() {
			v1, v2 := m1.Get(d, c), m2.Get(d, c)
			if v1 != v2 && !(math.IsNaN(v1) && math.IsNaN(v2)) {
				t.Errorf("nondeterministic merge at (%v, %s): %v vs %v", d, c, v1, v2)
			}
		}
	}
}

func TestValidateDatesDropsOrphanRows(t *testing.T) {
	rows := []contracts.PositionRow{
		{UnitID: 1, StockCode: "600519.SH", Date: day(2)},
		{UnitID: 1, StockCode: "600519.SH", Date: day(6)}, // Saturday: neither calendar
		{UnitID: 1, StockCode: "0700.HK", Date: day(3)},
	}
	calA := []time.Time{day(2), day(4)}
	calHK := []time.Time{day(2), day(3)}

	got := NewAligner(10, testLogger()).ValidateDates(rows, calA, calHK)
	if len(got) != 2 {
		t.Fatalf("kept %d rows, want 2", len(got))
	}
	for _, r := range got {
		if r.Date.Equal(day(6)) {
			t.Error("orphan row survived validation")
		}
	}
}
