package resample

import (
	"sort"
	"time"

	"github.com/efund/unitperf/internal/contracts"
	"github.com/efund/unitperf/internal/timeseries"
)

// TradingDayToNatural maps a trading-day timestamp to the last calendar day
// of its month, quarter or year. Results dated this way stay comparable
// across the two markets' differing trading calendars. Kinds finer than
// monthly are returned unchanged.
func TradingDayToNatural(t time.Time, kind contracts.PeriodKind) time.Time {
	t = timeseries.Normalize(t)
	switch kind {
	case Monthly:
		return timeseries.Date(t.Year(), t.Month()+1, 0)
	case Quarterly:
		endMonth := time.Month(((int(t.Month())-1)/3)*3 + 3)
		return timeseries.Date(t.Year(), endMonth+1, 0)
	case Annual:
		return timeseries.Date(t.Year(), time.December, 31)
	default:
		return t
	}
}

// TradingDaysToNatural maps every date in the slice via TradingDayToNatural.
func TradingDaysToNatural(dates []time.Time, kind contracts.PeriodKind) []time.Time {
	out := make([]time.Time, len(dates))
	for i, d := range dates {
		out[i] = TradingDayToNatural(d, kind)
	}
	return out
}

// TargetDays selects one scheduling date per period bucket: the whichDay-th
// available date, where -1 (or any value past the bucket size, the legacy
// markers 31 and 366 included) means the last available date.
//
// For quarterly and semiannual kinds the monthly picks are further filtered
// to the buckets whose month matches the configured start month (startMonth
// <= 0 selects the legacy default: the first month of the period when begin
// is true, otherwise the last). When begin is false the overall final
// monthly pick is appended if the filter dropped it, so a partial trailing
// period still gets a scheduling date.
func TargetDays(dates []time.Time, kind contracts.PeriodKind, whichDay int, begin bool, startMonth int) []time.Time {
	norm := make([]time.Time, len(dates))
	for i, d := range dates {
		norm[i] = timeseries.Normalize(d)
	}
	sort.Slice(norm, func(i, j int) bool { return norm[i].Before(norm[j]) })

	switch kind {
	case Daily:
		return norm
	case Weekly:
		if whichDay == -1 {
			whichDay = 5
		}
		return pickPerBucket(norm, Weekly, whichDay)
	case Annual:
		if whichDay == -1 {
			whichDay = 366
		}
		return pickPerBucket(norm, Annual, whichDay)
	default:
		if whichDay == -1 {
			whichDay = 31
		}
		monthly := pickPerBucket(norm, Monthly, whichDay)
		if kind == Monthly || len(monthly) == 0 {
			return monthly
		}

		span := 3
		if kind == Semiannual {
			span = 6
		}
		if startMonth <= 0 {
			if begin {
				startMonth = 1
			} else {
				startMonth = span
			}
		}
		last := monthly[len(monthly)-1]
		out := make([]time.Time, 0, len(monthly)/span+1)
		for _, d := range monthly {
			if (int(d.Month())-startMonth)%span == 0 {
				out = append(out, d)
			}
		}
		if !begin && (len(out) == 0 || !out[len(out)-1].Equal(last)) {
			out = append(out, last)
		}
		return out
	}
}

// pickPerBucket picks the which-th date (1-based, clamped to the bucket
// size) from each chronological bucket.
func pickPerBucket(sorted []time.Time, kind contracts.PeriodKind, which int) []time.Time {
	var (
		out    []time.Time
		keys   = make(map[bucketKey]int)
		bucket [][]time.Time
	)
	for _, d := range sorted {
		k := keyOf(kind, d)
		j, ok := keys[k]
		if !ok {
			j = len(bucket)
			keys[k] = j
			bucket = append(bucket, nil)
		}
		bucket[j] = append(bucket[j], d)
	}
	for _, b := range bucket {
		i := which
		if i > len(b) {
			i = len(b)
		}
		if i < 1 {
			i = 1
		}
		out = append(out, b[i-1])
	}
	return out
}
