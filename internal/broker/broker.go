// Package broker submits market orders and reports positions, prices and order status.
//
// A Broker is constructed by the caller and passed to the strategy; there is no shared
// connection. Implementations must be safe to call from a single goroutine at a time.
package broker

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-crossover/internal/types"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// BrokerType defines the type of broker.
type BrokerType string

const (
	BrokerBinance BrokerType = "binance"
	BrokerPaper   BrokerType = "paper"
)

// OrderState is a snapshot of an order as reported by the broker.
type OrderState struct {
	Status types.OrderStatus
	// FilledQuantity is the executed quantity so far
	FilledQuantity float64
	// AveragePrice is the average fill price, 0 when nothing is filled
	AveragePrice float64
	// RawStatus is the status string used by the broker itself
	RawStatus string
	UpdatedAt time.Time
}

// Broker is a brokerage account.
type Broker interface {
	// Connect opens the session and verifies credentials.
	Connect(ctx context.Context) error
	// Disconnect closes the session. It is safe to call more than once.
	Disconnect() error
	// CurrentTime returns the broker's clock.
	CurrentTime(ctx context.Context) (time.Time, error)
	// Position returns the signed quantity held for symbol, 0 when flat.
	Position(ctx context.Context, symbol string) (float64, error)
	// LastPrice returns the latest traded price of symbol.
	LastPrice(ctx context.Context, symbol string) (float64, error)
	// SubmitMarketOrder submits req and returns the broker's order id.
	SubmitMarketOrder(ctx context.Context, req types.OrderRequest) (string, error)
	// OrderStatus returns the current state of an order.
	OrderStatus(ctx context.Context, symbol, orderID string) (OrderState, error)
}
