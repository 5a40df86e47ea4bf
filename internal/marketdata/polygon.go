package marketdata

import (
	"context"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-crossover/internal/types"
	"github.com/rxtech-lab/argo-crossover/pkg/errors"
)

const polygonAggsLimit = 50000

// PolygonAggsIterator walks a paginated aggregates response.
type PolygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// PolygonAPIClient is the subset of the polygon REST client used here.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator
}

type polygonAPIClient struct {
	client *polygon.Client
}

func (c *polygonAPIClient) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator {
	return c.client.ListAggs(ctx, params, options...)
}

// PolygonProvider reads aggregate bars from polygon.io.
// TRADES bars are unadjusted, ADJUSTED_LAST bars are split adjusted.
type PolygonProvider struct {
	apiClient PolygonAPIClient
}

// NewPolygonProvider creates a provider authenticated with apiKey.
func NewPolygonProvider(apiKey string) (*PolygonProvider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "polygon apiKey is required")
	}

	return NewPolygonProviderWithAPI(&polygonAPIClient{client: polygon.New(apiKey)}), nil
}

// NewPolygonProviderWithAPI creates a provider on top of apiClient.
func NewPolygonProviderWithAPI(apiClient PolygonAPIClient) *PolygonProvider {
	return &PolygonProvider{apiClient: apiClient}
}

func (p *PolygonProvider) Bars(ctx context.Context, q Query) ([]types.Bar, error) {
	start, end, err := q.Window()
	if err != nil {
		return nil, err
	}

	var adjusted bool

	switch q.DataType {
	case DataTypeTrades:
		adjusted = false
	case DataTypeAdjustedLast:
		adjusted = true
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidDataType, "polygon serves %s and %s bars, got %s", DataTypeTrades, DataTypeAdjustedLast, q.DataType)
	}

	multiplier, timespan := q.BarSize.Polygon()

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     q.Symbol,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithAdjusted(adjusted).WithOrder(models.Asc).WithLimit(polygonAggsLimit)

	iter := p.apiClient.ListAggs(ctx, params)

	var bars []types.Bar

	for iter.Next() {
		agg := iter.Item()
		bars = append(bars, types.Bar{
			Time:   time.Time(agg.Timestamp).UTC(),
			Symbol: q.Symbol,
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		})
	}

	if err := iter.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch %s aggregates from polygon", q.Symbol)
	}

	return normalize(bars), nil
}
