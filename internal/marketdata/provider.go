package marketdata

import (
	"context"
	"slices"

	"github.com/rxtech-lab/argo-crossover/internal/types"
	"github.com/rxtech-lab/argo-crossover/pkg/errors"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderBinance ProviderType = "binance"
	ProviderPolygon ProviderType = "polygon"
	ProviderCSV     ProviderType = "csv"
)

// Provider fetches historical bars.
type Provider interface {
	// Bars returns the bars of q ordered by time, oldest first, without duplicate timestamps.
	// An empty result is not an error.
	Bars(ctx context.Context, q Query) ([]types.Bar, error)
}

// ProviderConfig carries the settings any of the providers may need.
type ProviderConfig struct {
	// PolygonAPIKey is required by the polygon provider
	PolygonAPIKey string
	// BinanceBaseURL overrides the binance REST endpoint
	BinanceBaseURL string
	// CSVPath is the file read by the csv provider
	CSVPath string
}

// NewProvider creates a new market data provider based on the provider type.
func NewProvider(providerType ProviderType, config ProviderConfig) (Provider, error) {
	switch providerType {
	case ProviderBinance:
		return NewBinanceProvider(config.BinanceBaseURL), nil
	case ProviderPolygon:
		provider, err := NewPolygonProvider(config.PolygonAPIKey)
		if err != nil {
			return nil, err
		}

		return provider, nil
	case ProviderCSV:
		provider, err := NewCSVProvider(config.CSVPath)
		if err != nil {
			return nil, err
		}

		return provider, nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", providerType)
	}
}

// normalize sorts bars by time and keeps the first bar of every timestamp.
func normalize(bars []types.Bar) []types.Bar {
	slices.SortStableFunc(bars, func(a, b types.Bar) int {
		return a.Time.Compare(b.Time)
	})

	return slices.CompactFunc(bars, func(a, b types.Bar) bool {
		return a.Time.Equal(b.Time)
	})
}
