package performance

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-crossover/internal/types"
)

// CompareReturns compares holding the asset through series with following its signals.
//
// AssetReturn is the cumulative product of (1 + pct_change(close)). StrategyReturn is the
// cumulative product of (1 + pct_change(close) * -direction(previous signal)), where a BUY
// has direction +1 and a SELL -1. The first row has no percentage change: its AssetReturn
// is 1 and its StrategyReturn is None.
func CompareReturns(series []types.SignalState) []types.ReturnPoint {
	points := make([]types.ReturnPoint, 0, len(series))
	asset := 1.0
	strategy := 1.0

	for i, row := range series {
		if i == 0 {
			points = append(points, types.ReturnPoint{
				Time:           row.Time,
				AssetReturn:    asset,
				StrategyReturn: optional.None[float64](),
			})

			continue
		}

		prev := series[i-1]

		change := 0.0
		if prev.Close != 0 {
			change = row.Close/prev.Close - 1
		}

		asset *= 1 + change
		strategy *= 1 + change*float64(-prev.Signal.Direction())

		points = append(points, types.ReturnPoint{
			Time:           row.Time,
			AssetReturn:    asset,
			StrategyReturn: optional.Some(strategy),
		})
	}

	return points
}
