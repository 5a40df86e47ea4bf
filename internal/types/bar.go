package types

import (
	"math"
	"time"
)

// Bar is one OHLCV observation for a fixed time interval.
// A []Bar is ordered by Time, strictly increasing, and is never modified once received.
type Bar struct {
	Time   time.Time `csv:"time" json:"time"`
	Symbol string    `csv:"symbol" json:"symbol"`
	Open   float64   `csv:"open" json:"open"`
	High   float64   `csv:"high" json:"high"`
	Low    float64   `csv:"low" json:"low"`
	Close  float64   `csv:"close" json:"close"`
	Volume float64   `csv:"volume" json:"volume"`
}

// Finite reports whether every price and the volume of b is a finite number.
func (b Bar) Finite() bool {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

// Closes returns the close prices of bars in order.
func Closes(bars []Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	return closes
}
