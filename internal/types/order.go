package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-crossover/pkg/errors"
)

type OrderType string

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRejected  OrderStatus = "REJECTED"
	OrderStatusFailed    OrderStatus = "FAILED"
)

const (
	OrderTypeMarket OrderType = "MARKET"
)

// IsTerminal reports whether the order will not change status anymore.
func (s OrderStatus) IsTerminal() bool {
	return s != OrderStatusPending
}

// OrderRequest is a market order the strategy asks the broker to submit.
type OrderRequest struct {
	ID        string    `yaml:"id" json:"id" validate:"required,uuid"`
	Symbol    string    `yaml:"symbol" json:"symbol" validate:"required"`
	Action    Action    `yaml:"action" json:"action" validate:"required,oneof=BUY SELL"`
	Quantity  int       `yaml:"quantity" json:"quantity" validate:"required,gt=0"`
	OrderType OrderType `yaml:"order_type" json:"order_type" validate:"required,oneof=MARKET"`
}

// Validate validates the OrderRequest struct.
func (o *OrderRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order request", err)
	}

	return nil
}
