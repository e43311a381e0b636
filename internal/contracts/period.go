package contracts

import "fmt"

// PeriodKind is the closed set of resampling frequencies. It replaces the
// legacy string-keyed dispatch: every switch over PeriodKind is exhaustive
// and an unknown value is a configuration error that aborts the unit.
type PeriodKind int

const (
	Daily PeriodKind = iota
	Weekly
	Monthly
	Quarterly
	Semiannual
	Annual
)

// ParsePeriodKind normalizes the frequency aliases accepted by the legacy
// service ('d', 'w', 'm', 'q', 's', 'a' and their long forms).
func ParsePeriodKind(s string) (PeriodKind, error) {
	switch s {
	case "d", "D", "day", "Day", "daily":
		return Daily, nil
	case "w", "W", "week", "Week", "weekly":
		return Weekly, nil
	case "m", "M", "month", "Month", "monthly":
		return Monthly, nil
	case "q", "Q", "quarter", "Quarter", "quarterly":
		return Quarterly, nil
	case "s", "S", "semiannual", "Semiannual", "semiannually":
		return Semiannual, nil
	case "a", "A", "annual", "Annual", "y", "year", "yearly", "annually":
		return Annual, nil
	default:
		return Daily, fmt.Errorf("unknown period kind %q", s)
	}
}

// String returns the canonical short code used in persisted result rows.
func (k PeriodKind) String() string {
	switch k {
	case Daily:
		return "d"
	case Weekly:
		return "w"
	case Monthly:
		return "m"
	case Quarterly:
		return "q"
	case Semiannual:
		return "s"
	case Annual:
		return "a"
	default:
		return fmt.Sprintf("PeriodKind(%d)", int(k))
	}
}

// PeriodsPerYear returns the annualization divisor for the frequency:
// 243 trading days, 50 weeks, 12 months, 4 quarters, 2 half-years, 1 year.
func (k PeriodKind) PeriodsPerYear() float64 {
	switch k {
	case Daily:
		return 243
	case Weekly:
		return 50
	case Monthly:
		return 12
	case Quarterly:
		return 4
	case Semiannual:
		return 2
	case Annual:
		return 1
	default:
		return 243
	}
}
