package broker

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-crossover/internal/logger"
	"github.com/rxtech-lab/argo-crossover/internal/types"
	"github.com/rxtech-lab/argo-crossover/pkg/errors"
	"go.uber.org/zap"
)

// PaperBroker is an in-memory broker. Market orders fill immediately and completely at the
// last price set for their symbol.
type PaperBroker struct {
	logger *logger.Logger
	now    func() time.Time

	mu        sync.Mutex
	connected bool
	prices    map[string]float64
	positions map[string]float64
	orders    map[string]OrderState
	nextID    int64
}

// NewPaperBroker creates an empty paper account.
func NewPaperBroker(log *logger.Logger) *PaperBroker {
	if log == nil {
		log = logger.NewNop()
	}

	return &PaperBroker{
		logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
		mu:        sync.Mutex{},
		connected: false,
		prices:    make(map[string]float64),
		positions: make(map[string]float64),
		orders:    make(map[string]OrderState),
		nextID:    0,
	}
}

// SetPrice sets the last price of symbol.
func (p *PaperBroker) SetPrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.prices[symbol] = price
}

// SetPosition overrides the position held in symbol.
func (p *PaperBroker) SetPosition(symbol string, quantity float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.positions[symbol] = quantity
}

func (p *PaperBroker) Connect(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.connected = true

	return nil
}

func (p *PaperBroker) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.connected = false

	return nil
}

// checkConnected must be called with mu held.
func (p *PaperBroker) checkConnected() error {
	if !p.connected {
		return errors.New(errors.ErrCodeBrokerNotConnected, "broker is not connected")
	}

	return nil
}

func (p *PaperBroker) CurrentTime(_ context.Context) (time.Time, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkConnected(); err != nil {
		return time.Time{}, err
	}

	return p.now(), nil
}

func (p *PaperBroker) Position(_ context.Context, symbol string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkConnected(); err != nil {
		return 0, err
	}

	return p.positions[symbol], nil
}

func (p *PaperBroker) LastPrice(_ context.Context, symbol string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkConnected(); err != nil {
		return 0, err
	}

	price, ok := p.prices[symbol]
	if !ok {
		return 0, errors.Newf(errors.ErrCodeMarketDataMissing, "no price for %s", symbol)
	}

	return price, nil
}

func (p *PaperBroker) SubmitMarketOrder(_ context.Context, req types.OrderRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkConnected(); err != nil {
		return "", err
	}

	p.nextID++
	orderID := strconv.FormatInt(p.nextID, 10)

	price, ok := p.prices[req.Symbol]
	if !ok {
		p.orders[orderID] = OrderState{
			Status:    types.OrderStatusRejected,
			RawStatus: "NO_PRICE",
			UpdatedAt: p.now(),
		}

		p.logger.Warn("Paper order rejected, no price", zap.String("symbol", req.Symbol), zap.String("order_id", orderID))

		return orderID, nil
	}

	quantity := float64(req.Quantity)
	if req.Action == types.ActionSell {
		quantity = -quantity
	}

	p.positions[req.Symbol] += quantity
	p.orders[orderID] = OrderState{
		Status:         types.OrderStatusFilled,
		FilledQuantity: float64(req.Quantity),
		AveragePrice:   price,
		RawStatus:      string(types.OrderStatusFilled),
		UpdatedAt:      p.now(),
	}

	p.logger.Debug("Paper order filled",
		zap.String("symbol", req.Symbol),
		zap.String("action", string(req.Action)),
		zap.Int("quantity", req.Quantity),
		zap.Float64("price", price),
	)

	return orderID, nil
}

func (p *PaperBroker) OrderStatus(_ context.Context, _ string, orderID string) (OrderState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkConnected(); err != nil {
		return OrderState{}, err
	}

	state, ok := p.orders[orderID]
	if !ok {
		return OrderState{}, errors.Newf(errors.ErrCodeDataNotFound, "order not found: %s", orderID)
	}

	return state, nil
}

// Ensure PaperBroker implements Broker.
var _ Broker = (*PaperBroker)(nil)
