package contracts

import "strings"

// Market identifies a trading calendar source.
type Market string

const (
	MarketSSE  Market = "SSE"  // primary exchange calendar (mainland)
	MarketHKEX Market = "HKEX" // Hong Kong
)

// NormalizeMarket maps the aliases accepted by the legacy service onto the
// canonical exchange codes: HK/hk -> HKEX, A/a -> SSE. Unknown strings pass
// through unchanged so exotic calendars stay queryable.
func NormalizeMarket(s string) Market {
	switch s {
	case "HK", "hk":
		return MarketHKEX
	case "A", "a":
		return MarketSSE
	default:
		return Market(s)
	}
}

// StockArea reports which market family a stock code belongs to, by its
// exchange suffix: SZ/SH/BJ/NB are mainland, O/N are US, anything else maps
// onto itself (HK in particular).
func StockArea(stockCode string) string {
	idx := strings.LastIndex(stockCode, ".")
	if idx < 0 {
		return ""
	}
	suffix := stockCode[idx+1:]
	switch suffix {
	case "SZ", "SH", "BJ", "NB":
		return "A"
	case "O", "N":
		return "US"
	default:
		return suffix
	}
}

// IsHongKong reports whether the stock trades on HKEX.
func IsHongKong(stockCode string) bool {
	return strings.HasSuffix(stockCode, ".HK")
}

// UnifyStockCode adds the exchange suffix to bare numeric codes and restores
// leading zeros: 6-digit codes are mainland (00/30 -> SZ, 60/68 -> SH,
// 8x/4x -> BJ), 5-digit codes starting with 0 are Hong Kong.
func UnifyStockCode(code string) string {
	if strings.Contains(code, ".") {
		return code
	}
	switch len(code) {
	case 6:
		switch {
		case code[0:2] == "00" || code[0:2] == "30":
			return code + ".SZ"
		case code[0:2] == "60" || code[0:2] == "68":
			return code + ".SH"
		case code[0] == '8' || code[0] == '4':
			return code + ".BJ"
		}
	case 5:
		if code[0] == '0' {
			return code[1:] + ".HK"
		}
	}
	return code
}
