package strategy

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-crossover/internal/indicator"
	"github.com/rxtech-lab/argo-crossover/internal/types"
	"github.com/rxtech-lab/argo-crossover/pkg/errors"
)

// ComputeSignalSeries annotates bars with the fast and slow simple moving averages of
// their close prices and the crossover event on each bar.
//
// Bars before both windows are full are dropped from the result. Crossovers are detected
// against the previous row of the returned series, so the first returned row is always
// SignalTypeNone. An empty result is returned when there are fewer than
// max(fastPeriod, slowPeriod) bars. A NaN or infinite close fails with
// ErrCodeInvalidParameter. bars is not modified.
func ComputeSignalSeries(bars []types.Bar, fastPeriod, slowPeriod int) ([]types.SignalState, error) {
	if fastPeriod < 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "fast period must be at least 1, got %d", fastPeriod)
	}

	if slowPeriod < 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "slow period must be at least 1, got %d", slowPeriod)
	}

	closes := types.Closes(bars)
	for i, c := range closes {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "close of bar %d is not a finite number: %v", i, c)
		}
	}

	fast, err := indicator.SimpleMovingAverage(closes, fastPeriod)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid fast period", err)
	}

	slow, err := indicator.SimpleMovingAverage(closes, slowPeriod)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid slow period", err)
	}

	series := make([]types.SignalState, 0, len(bars))

	for i, bar := range bars {
		if fast[i].IsNone() || slow[i].IsNone() {
			continue
		}

		state := types.SignalState{
			Time:      bar.Time,
			Close:     bar.Close,
			FastMA:    fast[i].Unwrap(),
			SlowMA:    slow[i].Unwrap(),
			Signal:    types.SignalTypeNone,
			BuyPrice:  optional.None[float64](),
			SellPrice: optional.None[float64](),
		}

		if len(series) > 0 {
			state.Signal = crossover(series[len(series)-1], state)
		}

		switch state.Signal {
		case types.SignalTypeBuy:
			state.BuyPrice = optional.Some(bar.Close)
		case types.SignalTypeSell:
			state.SellPrice = optional.Some(bar.Close)
		case types.SignalTypeNone:
		}

		series = append(series, state)
	}

	return series, nil
}

func crossover(prev, curr types.SignalState) types.SignalType {
	switch {
	case curr.FastMA > curr.SlowMA && prev.FastMA <= prev.SlowMA:
		return types.SignalTypeBuy
	case curr.FastMA < curr.SlowMA && prev.FastMA >= prev.SlowMA:
		return types.SignalTypeSell
	default:
		return types.SignalTypeNone
	}
}

// DecideTrade compares the levels of the two averages on the last row of series with the
// current position. It does not look at the crossover flags.
//
// BUY when fast > slow and the position is flat or short, SELL when fast < slow and the
// position is long, HOLD otherwise. An empty series is HOLD. currentPosition must be
// fetched by the caller immediately before the call.
func DecideTrade(series []types.SignalState, currentPosition float64) types.Decision {
	if len(series) == 0 {
		return types.DecisionHold
	}

	last := series[len(series)-1]

	switch {
	case last.FastMA > last.SlowMA && currentPosition <= 0:
		return types.DecisionBuy
	case last.FastMA < last.SlowMA && currentPosition > 0:
		return types.DecisionSell
	default:
		return types.DecisionHold
	}
}
