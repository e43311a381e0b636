package contracts

import (
	"math"
	"testing"
	"time"
)

func TestParsePeriodKind(t *testing.T) {
	tests := []struct {
		input   string
		want    PeriodKind
		wantErr bool
	}{
		{"d", Daily, false},
		{"daily", Daily, false},
		{"w", Weekly, false},
		{"Week", Weekly, false},
		{"m", Monthly, false},
		{"monthly", Monthly, false},
		{"q", Quarterly, false},
		{"s", Semiannual, false},
		{"semiannually", Semiannual, false},
		{"a", Annual, false},
		{"y", Annual, false},
		{"yearly", Annual, false},
		{"fortnightly", Daily, true},
		{"", Daily, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePeriodKind(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePeriodKind(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParsePeriodKind(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestPeriodsPerYear(t *testing.T) {
	tests := []struct {
		kind PeriodKind
		want float64
	}{
		{Daily, 243},
		{Weekly, 50},
		{Monthly, 12},
		{Quarterly, 4},
		{Semiannual, 2},
		{Annual, 1},
	}

	for _, tt := range tests {
		if got := tt.kind.PeriodsPerYear(); got != tt.want {
			t.Errorf("%v.PeriodsPerYear() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestNormalizeMarket(t *testing.T) {
	tests := []struct {
		input string
		want  Market
	}{
		{"HK", MarketHKEX},
		{"hk", MarketHKEX},
		{"HKEX", MarketHKEX},
		{"A", MarketSSE},
		{"a", MarketSSE},
		{"SSE", MarketSSE},
		{"SZSE", Market("SZSE")},
	}

	for _, tt := range tests {
		if got := NormalizeMarket(tt.input); got != tt.want {
			t.Errorf("NormalizeMarket(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestUnifyStockCode(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"002050", "002050.SZ"},
		{"300750", "300750.SZ"},
		{"600519", "600519.SH"},
		{"688111", "688111.SH"},
		{"830799", "830799.BJ"},
		{"430047", "430047.BJ"},
		{"00700", "0700.HK"},
		{"600519.SH", "600519.SH"},
		{"0700.HK", "0700.HK"},
	}

	for _, tt := range tests {
		if got := UnifyStockCode(tt.input); got != tt.want {
			t.Errorf("UnifyStockCode(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestStockArea(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"002050.SZ", "A"},
		{"600519.SH", "A"},
		{"830799.BJ", "A"},
		{"0700.HK", "HK"},
		{"AAPL.O", "US"},
		{"BRK.N", "US"},
		{"noexchange", ""},
	}

	for _, tt := range tests {
		if got := StockArea(tt.code); got != tt.want {
			t.Errorf("StockArea(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestTradeVWAP(t *testing.T) {
	row := PositionRow{Volume: 1000, Amount: 12500}
	if got := row.TradeVWAP(); got != 12.5 {
		t.Errorf("TradeVWAP() = %v, want 12.5", got)
	}

	empty := PositionRow{}
	if !math.IsNaN(empty.TradeVWAP()) {
		t.Error("TradeVWAP() with zero volume should be NaN")
	}
}

func TestCorporateActionIsNoop(t *testing.T) {
	noop := CorporateAction{StockCode: "600519.SH", ExDate: time.Now()}
	if !noop.IsNoop() {
		t.Error("zero-value action should be a no-op")
	}

	cash := CorporateAction{CashDividend: 1.5}
	if cash.IsNoop() {
		t.Error("cash dividend is not a no-op")
	}

	split := CorporateAction{StockDivRatio: 0.5}
	if split.IsNoop() {
		t.Error("stock dividend is not a no-op")
	}
}
