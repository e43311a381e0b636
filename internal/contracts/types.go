package contracts

import (
	"math"
	"time"
)

// TradingDay represents one open day of one market. Raw fact rows are
// immutable: they are owned by the ingestion side and only read here.
type TradingDay struct {
	Date   time.Time `json:"date"`
	Market Market    `json:"market"`
}

// PriceRow is one quote row per stock per trading day per market.
// AdjFactor is the cumulative split/dividend adjustment multiplier, stepped
// at each corporate action.
type PriceRow struct {
	Date      time.Time `json:"date"`
	StockCode string    `json:"stk_code"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	PreClose  float64   `json:"pre_close"`
	Volume    float64   `json:"vol"`
	Amount    float64   `json:"amount"`
	AdjFactor float64   `json:"adj_factor"`
	VWAP      float64   `json:"vwap"`
}

// Valid reports whether the row satisfies the price invariants.
func (p *PriceRow) Valid() bool {
	return p.StockCode != "" && p.AdjFactor > 0
}

// CorporateAction is a cash dividend and/or stock dividend (split) posted on
// an ex-date. An action with zero cash and zero ratio is a no-op and dropped
// on load.
type CorporateAction struct {
	StockCode     string    `json:"stk_code"`
	ExDate        time.Time `json:"ex_dt"`
	CashDividend  float64   `json:"cash_div"` // per share, pre tax
	StockDivRatio float64   `json:"stk_div"`  // new shares per held share
}

// IsNoop reports whether the action has no economic effect.
func (a *CorporateAction) IsNoop() bool {
	return a.CashDividend <= 0 && a.StockDivRatio <= 0
}

// PositionRow is one holding/trade row per unit per date per stock.
// Volume and Amount are signed: positive buys, negative sells.
type PositionRow struct {
	UnitID      int       `json:"unit_id"`
	Date        time.Time `json:"date"`
	StockCode   string    `json:"stk_code"`
	Weight      float64   `json:"weight"`
	MarketValue float64   `json:"mv"`
	Position    float64   `json:"position"` // shares held at end of day
	Volume      float64   `json:"vol"`      // shares traded that day, signed
	Amount      float64   `json:"amount"`   // cash traded that day, signed

	// Attached by the corporate action adjuster; NaN when no action.
	CashDividend  float64 `json:"cash_dividend"`
	StockDivRatio float64 `json:"stock_div_ratio"`
	// CashReceived is the dividend cash credited on this date: the prior
	// day's holding times the per-share cash dividend. NaN when no action.
	CashReceived float64 `json:"cash_received"`
	// AdjFactor is the stock's cumulative price adjustment factor on this
	// date, attached from quote history. NaN when no quote row matched.
	AdjFactor float64 `json:"adj_factor"`
}

// TradeVWAP returns the average execution price of the row's trades, or NaN
// when nothing traded.
func (p *PositionRow) TradeVWAP() float64 {
	if p.Volume == 0 {
		return math.NaN()
	}
	return p.Amount / p.Volume
}

// UnitSummary is one row per unit per date.
type UnitSummary struct {
	UnitID           int       `json:"unit_id"`
	Date             time.Time `json:"date"`
	NetAsset         float64   `json:"net_asset"`
	DailyReturn      float64   `json:"ret_daily"`
	NetPurchaseRatio float64   `json:"net_purchase_ratio"`
}

// StockListing carries the listing date of a stock, used to strip IPO
// allotments out of position history.
type StockListing struct {
	StockCode string    `json:"stk_code"`
	ListDate  time.Time `json:"list_date"`
}

// SwingResult is a derived row: swing-trade return of one unit for one window
// length at one (natural) month-end date. Keyed by (unit_id, window, date)
// and idempotently replaced on recompute.
type SwingResult struct {
	UnitID       int       `json:"unit_id"`
	WindowMonths int       `json:"window"`
	Date         time.Time `json:"date"`
	SwingReturn  float64   `json:"swing_trade_ret"`
}

// EfficiencyResult is a derived row: actual minus simulated buy-and-hold
// return. Periodic results carry Freq; rolling results carry WindowDays.
type EfficiencyResult struct {
	UnitID     int       `json:"unit_id"`
	Freq       string    `json:"freq,omitempty"`
	WindowDays int       `json:"window,omitempty"`
	Date       time.Time `json:"date"`
	Efficiency float64   `json:"efficiency"`
}

// TurnoverResult is a derived row: daily buy/sell turnover of one unit,
// estimated both from traded amounts and from weight drift.
type TurnoverResult struct {
	UnitID    int       `json:"unit_id"`
	Date      time.Time `json:"date"`
	BuyTurn1  float64   `json:"buy_turn1"` // traded amount / prior net asset
	SellTurn1 float64   `json:"sell_turn1"`
	BuyTurn2  float64   `json:"buy_turn2"` // weight drift
	SellTurn2 float64   `json:"sell_turn2"`
}
