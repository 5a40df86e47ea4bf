package types

import (
	"time"
)

// Action is the side of a trade record or order.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// TradeRecord is a completed trade as consumed by the performance evaluator.
// Action is kept as a free string so records from outside can be rejected at evaluation time.
type TradeRecord struct {
	Action Action `yaml:"action" json:"action" csv:"action"`
	// Quantity is expected to be positive. It is not validated.
	Quantity int `yaml:"quantity" json:"quantity" csv:"quantity"`
	// FillPrice is the price at which the order was executed
	FillPrice float64 `yaml:"fill_price" json:"fill_price" csv:"fill_price"`
	// CurrentPrice is the market price the trade is marked against
	CurrentPrice float64 `yaml:"current_price" json:"current_price" csv:"current_price"`
}

// PerformanceSummary is recomputed from a list of trade records on every call.
type PerformanceSummary struct {
	TotalPnL           float64 `yaml:"total_pnl" json:"total_pnl"`
	NumTrades          int     `yaml:"num_trades" json:"num_trades"`
	AveragePnLPerTrade float64 `yaml:"average_pnl_per_trade" json:"average_pnl_per_trade"`
}

// Fill is the outcome of an order once it reached a terminal status.
type Fill struct {
	OrderID  string `yaml:"order_id" json:"order_id"`
	Symbol   string `yaml:"symbol" json:"symbol"`
	Action   Action `yaml:"action" json:"action"`
	Quantity int    `yaml:"quantity" json:"quantity"`
	// FillPrice is the average fill price. Zero when nothing was filled.
	FillPrice float64     `yaml:"fill_price" json:"fill_price"`
	Status    OrderStatus `yaml:"status" json:"status"`
	FilledAt  time.Time   `yaml:"filled_at" json:"filled_at"`
}

// IsFilled reports whether the order was completely filled.
func (f Fill) IsFilled() bool {
	return f.Status == OrderStatusFilled
}

// TradeRecord marks the fill against currentPrice.
func (f Fill) TradeRecord(currentPrice float64) TradeRecord {
	return TradeRecord{
		Action:       f.Action,
		Quantity:     f.Quantity,
		FillPrice:    f.FillPrice,
		CurrentPrice: currentPrice,
	}
}
