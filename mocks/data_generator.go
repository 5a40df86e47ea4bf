package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-crossover/internal/types"
)

// BarGenerator generates synthetic OHLCV bars for tests.
type BarGenerator struct {
	rng *rand.Rand
}

// NewBarGenerator creates a new BarGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewBarGenerator(seed int64) *BarGenerator {
	return &BarGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// BarConfig configures how bars are generated.
type BarConfig struct {
	// Symbol is the trading symbol (e.g., "SPY", "BTCUSDT")
	Symbol string
	// StartTime is the time of the first bar
	StartTime time.Time
	// Interval is the duration between each bar
	Interval time.Duration
	// Count is the number of bars to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility is the standard deviation of the per-bar return (0.01 = 1%)
	Volatility float64
	// Drift is the expected per-bar return
	Drift float64
	// RegimeLength flips the sign of Drift every RegimeLength bars. 0 keeps it fixed.
	RegimeLength int
	// VolumeBase is the average volume per bar
	VolumeBase float64
}

// DefaultBarConfig returns hourly bars that trend up and down in turns, so that a
// 10/30 moving average pair crosses a few times.
func DefaultBarConfig() BarConfig {
	return BarConfig{
		Symbol:       "TEST",
		StartTime:    time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC),
		Interval:     time.Hour,
		Count:        500,
		InitialPrice: 100.0,
		Volatility:   0.002,
		Drift:        0.004,
		RegimeLength: 80,
		VolumeBase:   10000,
	}
}

// Generate creates bars following a geometric random walk.
func (g *BarGenerator) Generate(config BarConfig) []types.Bar {
	bars := make([]types.Bar, config.Count)
	price := config.InitialPrice
	drift := config.Drift

	for i := range bars {
		if config.RegimeLength > 0 && i > 0 && i%config.RegimeLength == 0 {
			drift = -drift
		}

		open := price
		// Box-Muller transform for a standard normal sample
		u1 := 1 - g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		closePrice := open * (1 + drift + config.Volatility*z)
		if closePrice <= 0 {
			closePrice = open * 0.99
		}

		spread := g.rng.Float64() * config.Volatility * open
		high := math.Max(open, closePrice) + spread
		low := math.Max(math.Min(open, closePrice)-spread, math.Min(open, closePrice)*0.99)

		bars[i] = types.Bar{
			Time:   config.StartTime.Add(time.Duration(i) * config.Interval),
			Symbol: config.Symbol,
			Open:   roundToDecimals(open, 4),
			High:   roundToDecimals(high, 4),
			Low:    roundToDecimals(low, 4),
			Close:  roundToDecimals(closePrice, 4),
			Volume: roundToDecimals(config.VolumeBase*(0.5+g.rng.Float64()), 2),
		}

		price = closePrice
	}

	return bars
}

// TrendingBars generates count bars for symbol with DefaultBarConfig and a fixed seed.
func TrendingBars(symbol string, count int) []types.Bar {
	config := DefaultBarConfig()
	config.Symbol = symbol
	config.Count = count

	return NewBarGenerator(42).Generate(config)
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
