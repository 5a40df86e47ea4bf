package indicator

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-crossover/pkg/errors"
	"github.com/shopspring/decimal"
)

// MA implements Simple Moving Average calculation over a trailing window of fixed size.
type MA struct {
	period int
}

// NewMA creates a new MA indicator for the given period.
func NewMA(period int) (*MA, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	return &MA{
		period: period,
	}, nil
}

// Period returns the window size.
func (m *MA) Period() int {
	return m.period
}

// Series returns the moving average ending at every index of values.
// Index i is None while fewer than period values are available (i+1 < period).
// A NaN or infinite value fails with ErrCodeInvalidParameter.
//
// The window sum is kept as a decimal so that adding the newest value and removing the
// oldest never accumulates rounding error; a constant input yields exactly that constant.
func (m *MA) Series(values []float64) ([]optional.Option[float64], error) {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "value %d is not a finite number: %v", i, v)
		}
	}

	result := make([]optional.Option[float64], len(values))
	divisor := decimal.NewFromInt(int64(m.period))
	sum := decimal.Zero

	for i, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
		if i >= m.period {
			sum = sum.Sub(decimal.NewFromFloat(values[i-m.period]))
		}

		if i+1 < m.period {
			result[i] = optional.None[float64]()

			continue
		}

		mean, _ := sum.Div(divisor).Float64()
		result[i] = optional.Some(mean)
	}

	return result, nil
}

// SimpleMovingAverage is a shorthand for NewMA(period) followed by Series(values).
func SimpleMovingAverage(values []float64, period int) ([]optional.Option[float64], error) {
	ma, err := NewMA(period)
	if err != nil {
		return nil, err
	}

	return ma.Series(values)
}
