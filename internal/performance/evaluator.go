// Package performance computes realized P&L from completed trade records.
// Nothing is persisted: every call recomputes from the records it is given.
package performance

import (
	"math"

	"github.com/rxtech-lab/argo-crossover/internal/types"
	"github.com/rxtech-lab/argo-crossover/pkg/errors"
	"github.com/shopspring/decimal"
)

// PnLOf returns the profit or loss of a single trade marked at currentPrice.
//
// BUY:  (currentPrice - fillPrice) * quantity
// SELL: (fillPrice - currentPrice) * quantity
//
// Any other action fails with ErrCodeInvalidAction and a NaN or infinite price with
// ErrCodeInvalidParameter. quantity is not validated; a negative quantity flips the sign
// of the result.
func PnLOf(action types.Action, quantity int, fillPrice, currentPrice float64) (float64, error) {
	pnl, err := pnlOf(action, quantity, fillPrice, currentPrice)
	if err != nil {
		return 0, err
	}

	result, _ := pnl.Float64()

	return result, nil
}

func pnlOf(action types.Action, quantity int, fillPrice, currentPrice float64) (decimal.Decimal, error) {
	if !finite(fillPrice) || !finite(currentPrice) {
		return decimal.Zero, errors.Newf(errors.ErrCodeInvalidParameter,
			"prices must be finite numbers, got fill %v and current %v", fillPrice, currentPrice)
	}

	qty := decimal.NewFromInt(int64(quantity))
	fill := decimal.NewFromFloat(fillPrice)
	current := decimal.NewFromFloat(currentPrice)

	switch action {
	case types.ActionBuy:
		return current.Sub(fill).Mul(qty), nil
	case types.ActionSell:
		return fill.Sub(current).Mul(qty), nil
	default:
		return decimal.Zero, errors.Newf(errors.ErrCodeInvalidAction, "action must be BUY or SELL, got %q", action)
	}
}

// Accumulate returns the summed P&L of trades, 0 for an empty list.
// The first record with an invalid action aborts the whole sum.
func Accumulate(trades []types.TradeRecord) (float64, error) {
	total, err := accumulate(trades)
	if err != nil {
		return 0, err
	}

	result, _ := total.Float64()

	return result, nil
}

func accumulate(trades []types.TradeRecord) (decimal.Decimal, error) {
	total := decimal.Zero

	for i, trade := range trades {
		pnl, err := pnlOf(trade.Action, trade.Quantity, trade.FillPrice, trade.CurrentPrice)
		if err != nil {
			return decimal.Zero, errors.Wrapf(errors.GetCode(err), err, "trade %d", i)
		}

		total = total.Add(pnl)
	}

	return total, nil
}

// Evaluate summarizes trades. The average is 0 when there are no trades.
func Evaluate(trades []types.TradeRecord) (types.PerformanceSummary, error) {
	total, err := accumulate(trades)
	if err != nil {
		return types.PerformanceSummary{}, err
	}

	numTrades := len(trades)
	average := decimal.Zero

	if numTrades > 0 {
		average = total.Div(decimal.NewFromInt(int64(numTrades)))
	}

	totalPnL, _ := total.Float64()
	averagePnL, _ := average.Float64()

	return types.PerformanceSummary{
		TotalPnL:           totalPnL,
		NumTrades:          numTrades,
		AveragePnLPerTrade: averagePnL,
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
