package broker

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/argo-crossover/internal/logger"
	"github.com/rxtech-lab/argo-crossover/internal/types"
	"github.com/rxtech-lab/argo-crossover/pkg/errors"
	"go.uber.org/zap"
)

const (
	// BinanceLiveURL is the spot REST endpoint for live trading.
	BinanceLiveURL = "https://api.binance.com"
	// BinanceTestnetURL is the spot testnet endpoint used for paper trading.
	BinanceTestnetURL = "https://testnet.binance.vision"
)

// quoteAssets are stripped from a symbol to find the asset a position is held in.
var quoteAssets = []string{"USDT", "BUSD", "USDC", "FDUSD", "USD", "BTC", "ETH"}

// Service interfaces for mocking the Binance API

// CreateOrderService interface for creating orders.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side binance.SideType) CreateOrderService
	Type(orderType binance.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	NewClientOrderID(id string) CreateOrderService
	Do(ctx context.Context) (*binance.CreateOrderResponse, error)
}

// GetOrderService interface for querying a single order.
type GetOrderService interface {
	Symbol(symbol string) GetOrderService
	OrderID(orderID int64) GetOrderService
	Do(ctx context.Context) (*binance.Order, error)
}

// GetAccountService interface for getting account info.
type GetAccountService interface {
	Do(ctx context.Context) (*binance.Account, error)
}

// ListPricesService interface for the latest price of a symbol.
type ListPricesService interface {
	Symbol(symbol string) ListPricesService
	Do(ctx context.Context) ([]*binance.SymbolPrice, error)
}

// ServerTimeService interface for the exchange clock.
type ServerTimeService interface {
	Do(ctx context.Context) (int64, error)
}

// BinanceClient interface abstracts the Binance client for testing.
type BinanceClient interface {
	NewCreateOrderService() CreateOrderService
	NewGetOrderService() GetOrderService
	NewGetAccountService() GetAccountService
	NewListPricesService() ListPricesService
	NewServerTimeService() ServerTimeService
}

// realBinanceClient wraps the actual binance.Client.
type realBinanceClient struct {
	client *binance.Client
}

func (r *realBinanceClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realBinanceClient) NewGetOrderService() GetOrderService {
	return &realGetOrderService{service: r.client.NewGetOrderService()}
}

func (r *realBinanceClient) NewGetAccountService() GetAccountService {
	return &realGetAccountService{service: r.client.NewGetAccountService()}
}

func (r *realBinanceClient) NewListPricesService() ListPricesService {
	return &realListPricesService{service: r.client.NewListPricesService()}
}

func (r *realBinanceClient) NewServerTimeService() ServerTimeService {
	return &realServerTimeService{service: r.client.NewServerTimeService()}
}

type realCreateOrderService struct {
	service *binance.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) NewClientOrderID(id string) CreateOrderService {
	s.service = s.service.NewClientOrderID(id)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realGetOrderService struct {
	service *binance.GetOrderService
}

func (s *realGetOrderService) Symbol(symbol string) GetOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realGetOrderService) OrderID(orderID int64) GetOrderService {
	s.service = s.service.OrderID(orderID)

	return s
}

func (s *realGetOrderService) Do(ctx context.Context) (*binance.Order, error) {
	return s.service.Do(ctx)
}

type realGetAccountService struct {
	service *binance.GetAccountService
}

func (s *realGetAccountService) Do(ctx context.Context) (*binance.Account, error) {
	return s.service.Do(ctx)
}

type realListPricesService struct {
	service *binance.ListPricesService
}

func (s *realListPricesService) Symbol(symbol string) ListPricesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realListPricesService) Do(ctx context.Context) ([]*binance.SymbolPrice, error) {
	return s.service.Do(ctx)
}

type realServerTimeService struct {
	service *binance.ServerTimeService
}

func (s *realServerTimeService) Do(ctx context.Context) (int64, error) {
	return s.service.Do(ctx)
}

// BinanceConfig contains the credentials and endpoint of a Binance account.
type BinanceConfig struct {
	APIKey    string `validate:"required"`
	SecretKey string `validate:"required"`
	// BaseURL is BinanceLiveURL, BinanceTestnetURL or a local gateway
	BaseURL string `validate:"required,url"`
	// BaseAsset overrides the asset positions are read from. Derived from the symbol when empty.
	BaseAsset string
}

// BinanceBroker trades spot symbols on Binance. It is stateless apart from the connected flag;
// every query goes to the exchange.
type BinanceBroker struct {
	client    BinanceClient
	baseAsset string
	logger    *logger.Logger

	mu        sync.Mutex
	connected bool
}

// NewBinanceBroker creates a broker for config. Connect must be called before use.
func NewBinanceBroker(config BinanceConfig, log *logger.Logger) (*BinanceBroker, error) {
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid binance broker config", err)
	}

	client := binance.NewClient(config.APIKey, config.SecretKey)
	client.BaseURL = config.BaseURL

	return newBinanceBrokerWithClient(&realBinanceClient{client: client}, config.BaseAsset, log), nil
}

// newBinanceBrokerWithClient creates a broker with a custom client.
// This is used for testing with mock clients.
func newBinanceBrokerWithClient(client BinanceClient, baseAsset string, log *logger.Logger) *BinanceBroker {
	if log == nil {
		log = logger.NewNop()
	}

	return &BinanceBroker{
		client:    client,
		baseAsset: baseAsset,
		logger:    log,
		mu:        sync.Mutex{},
		connected: false,
	}
}

// Connect checks that the exchange is reachable and the credentials are accepted.
func (b *BinanceBroker) Connect(ctx context.Context) error {
	if _, err := b.client.NewGetAccountService().Do(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeConnectionFailed, "failed to connect to Binance API", err)
	}

	b.mu.Lock()
	b.connected = true
	b.mu.Unlock()

	b.logger.Info("Connected to broker", zap.String("broker", string(BrokerBinance)))

	return nil
}

// Disconnect marks the session closed. The REST client holds no connection of its own.
func (b *BinanceBroker) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.connected {
		b.logger.Info("Disconnected from broker", zap.String("broker", string(BrokerBinance)))
	}

	b.connected = false

	return nil
}

func (b *BinanceBroker) ensureConnected() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return errors.New(errors.ErrCodeBrokerNotConnected, "broker is not connected")
	}

	return nil
}

func (b *BinanceBroker) CurrentTime(ctx context.Context) (time.Time, error) {
	if err := b.ensureConnected(); err != nil {
		return time.Time{}, err
	}

	millis, err := b.client.NewServerTimeService().Do(ctx)
	if err != nil {
		return time.Time{}, errors.Wrap(errors.ErrCodeConnectionFailed, "failed to get server time from Binance", err)
	}

	return time.UnixMilli(millis).UTC(), nil
}

// Position returns free plus locked balance of the symbol's base asset.
func (b *BinanceBroker) Position(ctx context.Context, symbol string) (float64, error) {
	if err := b.ensureConnected(); err != nil {
		return 0, err
	}

	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodePositionNotFound, "failed to get account info from Binance", err)
	}

	asset := b.baseAsset
	if asset == "" {
		asset = BaseAsset(symbol)
	}

	for _, balance := range account.Balances {
		if balance.Asset != asset {
			continue
		}

		free, _ := strconv.ParseFloat(balance.Free, 64)
		locked, _ := strconv.ParseFloat(balance.Locked, 64)

		return free + locked, nil
	}

	return 0, nil
}

func (b *BinanceBroker) LastPrice(ctx context.Context, symbol string) (float64, error) {
	if err := b.ensureConnected(); err != nil {
		return 0, err
	}

	prices, err := b.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeMarketDataMissing, err, "failed to get %s price from Binance", symbol)
	}

	for _, p := range prices {
		if p.Symbol != symbol {
			continue
		}

		price, err := strconv.ParseFloat(p.Price, 64)
		if err != nil {
			return 0, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid price %q", p.Price)
		}

		return price, nil
	}

	return 0, errors.Newf(errors.ErrCodeMarketDataMissing, "no price for %s", symbol)
}

func (b *BinanceBroker) SubmitMarketOrder(ctx context.Context, req types.OrderRequest) (string, error) {
	if err := b.ensureConnected(); err != nil {
		return "", err
	}

	if err := req.Validate(); err != nil {
		return "", err
	}

	var side binance.SideType

	switch req.Action {
	case types.ActionBuy:
		side = binance.SideTypeBuy
	case types.ActionSell:
		side = binance.SideTypeSell
	default:
		return "", errors.Newf(errors.ErrCodeInvalidOrder, "unsupported order side: %s", req.Action)
	}

	resp, err := b.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(side).
		Type(binance.OrderTypeMarket).
		Quantity(strconv.Itoa(req.Quantity)).
		NewClientOrderID(req.ID).
		Do(ctx)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeOrderFailed, "failed to place order on Binance", err)
	}

	orderID := strconv.FormatInt(resp.OrderID, 10)

	b.logger.Info("Order submitted",
		zap.String("symbol", req.Symbol),
		zap.String("action", string(req.Action)),
		zap.Int("quantity", req.Quantity),
		zap.String("order_id", orderID),
	)

	return orderID, nil
}

func (b *BinanceBroker) OrderStatus(ctx context.Context, symbol, orderID string) (OrderState, error) {
	if err := b.ensureConnected(); err != nil {
		return OrderState{}, err
	}

	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return OrderState{}, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid order ID format", err)
	}

	order, err := b.client.NewGetOrderService().Symbol(symbol).OrderID(id).Do(ctx)
	if err != nil {
		return OrderState{}, errors.Wrap(errors.ErrCodeOrderFailed, "failed to get order from Binance", err)
	}

	executed, _ := strconv.ParseFloat(order.ExecutedQuantity, 64)
	quote, _ := strconv.ParseFloat(order.CummulativeQuoteQuantity, 64)

	var average float64
	if executed > 0 {
		average = quote / executed
	}

	return OrderState{
		Status:         mapBinanceOrderStatus(order.Status),
		FilledQuantity: executed,
		AveragePrice:   average,
		RawStatus:      string(order.Status),
		UpdatedAt:      time.UnixMilli(order.UpdateTime).UTC(),
	}, nil
}

// BaseAsset strips a known quote asset from a spot symbol, BTCUSDT -> BTC.
// Symbols without a known quote asset are returned unchanged.
func BaseAsset(symbol string) string {
	for _, quote := range quoteAssets {
		if base, ok := strings.CutSuffix(symbol, quote); ok && base != "" {
			return base
		}
	}

	return symbol
}

// mapBinanceOrderStatus maps Binance order status to our OrderStatus type.
func mapBinanceOrderStatus(status binance.OrderStatusType) types.OrderStatus {
	switch status {
	case binance.OrderStatusTypeNew, binance.OrderStatusTypePartiallyFilled, binance.OrderStatusTypePendingCancel:
		return types.OrderStatusPending
	case binance.OrderStatusTypeFilled:
		return types.OrderStatusFilled
	case binance.OrderStatusTypeCanceled:
		return types.OrderStatusCancelled
	case binance.OrderStatusTypeRejected:
		return types.OrderStatusRejected
	default:
		return types.OrderStatusFailed
	}
}

// Ensure BinanceBroker implements Broker.
var _ Broker = (*BinanceBroker)(nil)
