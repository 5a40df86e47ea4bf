package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// SignalType is the crossover event detected on a bar.
type SignalType string

const (
	// SignalTypeNone means the averages did not cross on this bar
	SignalTypeNone SignalType = "NONE"
	// SignalTypeBuy means the fast average crossed above the slow average
	SignalTypeBuy SignalType = "BUY"
	// SignalTypeSell means the fast average crossed below the slow average
	SignalTypeSell SignalType = "SELL"
)

// Direction returns +1 for BUY, -1 for SELL and 0 otherwise.
func (s SignalType) Direction() int {
	switch s {
	case SignalTypeBuy:
		return 1
	case SignalTypeSell:
		return -1
	default:
		return 0
	}
}

// Decision is the trade decision taken from the latest averages and the current position.
type Decision string

const (
	DecisionBuy  Decision = "BUY"
	DecisionSell Decision = "SELL"
	DecisionHold Decision = "HOLD"
)

// Action returns the order action for the decision. HOLD has no action.
func (d Decision) Action() (Action, bool) {
	switch d {
	case DecisionBuy:
		return ActionBuy, true
	case DecisionSell:
		return ActionSell, true
	default:
		return "", false
	}
}

// SignalState is one retained row of the annotated series.
// Rows before both moving-average windows are full are never produced, so
// FastMA and SlowMA are always defined.
type SignalState struct {
	// Time of the bar this row belongs to
	Time time.Time
	// Close price of the bar
	Close float64
	// FastMA is the fast simple moving average ending at this bar
	FastMA float64
	// SlowMA is the slow simple moving average ending at this bar
	SlowMA float64
	// Signal is the crossover event on this bar
	Signal SignalType
	// BuyPrice is the close price when Signal is BUY. Used for plotting only.
	BuyPrice optional.Option[float64]
	// SellPrice is the close price when Signal is SELL. Used for plotting only.
	SellPrice optional.Option[float64]
}

// ReturnPoint compares cumulative buy-and-hold return with the return of following the
// crossover signals, one point per retained row.
type ReturnPoint struct {
	Time time.Time
	// AssetReturn is the cumulative growth of one unit held through the series
	AssetReturn float64
	// StrategyReturn is None on the first row, which has no previous signal
	StrategyReturn optional.Option[float64]
}
