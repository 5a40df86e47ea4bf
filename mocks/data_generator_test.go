package mocks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarGenerator_Generate(t *testing.T) {
	config := DefaultBarConfig()
	config.Count = 100

	bars := NewBarGenerator(42).Generate(config)
	require.Len(t, bars, 100)

	for i, b := range bars {
		assert.Equal(t, config.Symbol, b.Symbol)
		assert.Positive(t, b.Close, "close at %d", i)
		assert.GreaterOrEqual(t, b.High, b.Low, "high < low at %d", i)
		assert.GreaterOrEqual(t, b.High, b.Close)
		assert.LessOrEqual(t, b.Low, b.Close)

		if i > 0 {
			assert.Equal(t, config.Interval, b.Time.Sub(bars[i-1].Time))
		}
	}
}

func TestBarGenerator_Reproducibility(t *testing.T) {
	config := DefaultBarConfig()

	assert.Equal(t, NewBarGenerator(7).Generate(config), NewBarGenerator(7).Generate(config))
	assert.NotEqual(t, NewBarGenerator(7).Generate(config), NewBarGenerator(8).Generate(config))
}

func TestBarGenerator_Regimes(t *testing.T) {
	config := DefaultBarConfig()
	config.Volatility = 0
	config.Count = 40
	config.RegimeLength = 20

	bars := NewBarGenerator(1).Generate(config)

	assert.Greater(t, bars[19].Close, bars[0].Close)
	assert.Less(t, bars[39].Close, bars[19].Close)
}

func TestTrendingBars(t *testing.T) {
	bars := TrendingBars("SPY", 250)
	require.Len(t, bars, 250)
	assert.Equal(t, "SPY", bars[0].Symbol)
	assert.Equal(t, time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC), bars[0].Time)
}
