package marketdata

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/argo-crossover/internal/types"
	"github.com/rxtech-lab/argo-crossover/pkg/errors"
)

// binanceKlinesLimit is the largest page the klines endpoint returns.
const binanceKlinesLimit = 1000

// BinanceKlinesService is the subset of the go-binance klines service used here.
type BinanceKlinesService interface {
	Symbol(symbol string) BinanceKlinesService
	Interval(interval string) BinanceKlinesService
	StartTime(startTime int64) BinanceKlinesService
	EndTime(endTime int64) BinanceKlinesService
	Limit(limit int) BinanceKlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// BinanceAPIClient creates klines services.
type BinanceAPIClient interface {
	NewKlinesService() BinanceKlinesService
}

type binanceAPIClient struct {
	client *binance.Client
}

func (c *binanceAPIClient) NewKlinesService() BinanceKlinesService {
	return &binanceKlinesService{service: c.client.NewKlinesService()}
}

type binanceKlinesService struct {
	service *binance.KlinesService
}

func (s *binanceKlinesService) Symbol(symbol string) BinanceKlinesService {
	s.service.Symbol(symbol)

	return s
}

func (s *binanceKlinesService) Interval(interval string) BinanceKlinesService {
	s.service.Interval(interval)

	return s
}

func (s *binanceKlinesService) StartTime(startTime int64) BinanceKlinesService {
	s.service.StartTime(startTime)

	return s
}

func (s *binanceKlinesService) EndTime(endTime int64) BinanceKlinesService {
	s.service.EndTime(endTime)

	return s
}

func (s *binanceKlinesService) Limit(limit int) BinanceKlinesService {
	s.service.Limit(limit)

	return s
}

func (s *binanceKlinesService) Do(ctx context.Context) ([]*binance.Kline, error) {
	return s.service.Do(ctx)
}

// BinanceProvider reads klines from the Binance spot REST API. Only TRADES bars exist there.
type BinanceProvider struct {
	apiClient BinanceAPIClient
}

// NewBinanceProvider creates a provider for the public klines endpoint.
// baseURL overrides the default endpoint when not empty.
func NewBinanceProvider(baseURL string) *BinanceProvider {
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = baseURL
	}

	return NewBinanceProviderWithAPI(&binanceAPIClient{client: client})
}

// NewBinanceProviderWithAPI creates a provider on top of apiClient.
func NewBinanceProviderWithAPI(apiClient BinanceAPIClient) *BinanceProvider {
	return &BinanceProvider{apiClient: apiClient}
}

// Bars pages through the klines of q until the end of the window is reached.
func (p *BinanceProvider) Bars(ctx context.Context, q Query) ([]types.Bar, error) {
	start, end, err := q.Window()
	if err != nil {
		return nil, err
	}

	if q.DataType != DataTypeTrades {
		return nil, errors.Newf(errors.ErrCodeInvalidDataType, "binance only serves %s bars, got %s", DataTypeTrades, q.DataType)
	}

	interval, err := q.BarSize.BinanceInterval()
	if err != nil {
		return nil, err
	}

	endMillis := end.UnixMilli()
	currentStart := start.UnixMilli()

	var bars []types.Bar

	for currentStart < endMillis {
		klines, err := p.apiClient.NewKlinesService().
			Symbol(q.Symbol).
			Interval(interval).
			StartTime(currentStart).
			EndTime(endMillis).
			Limit(binanceKlinesLimit).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch %s klines from binance", q.Symbol)
		}

		for _, k := range klines {
			bar, err := klineToBar(q.Symbol, k)
			if err != nil {
				return nil, err
			}

			bars = append(bars, bar)
		}

		// a short page is the last one
		if len(klines) < binanceKlinesLimit {
			break
		}

		next := klines[len(klines)-1].CloseTime + 1
		if next <= currentStart {
			break
		}

		currentStart = next
	}

	return normalize(bars), nil
}

// klineToBar converts a binance kline, stamped with its open time.
func klineToBar(symbol string, k *binance.Kline) (types.Bar, error) {
	values := make([]float64, 5)

	for i, raw := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return types.Bar{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid kline value %q", raw)
		}

		values[i] = v
	}

	return types.Bar{
		Time:   time.UnixMilli(k.OpenTime).UTC(),
		Symbol: symbol,
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}, nil
}
