package broker

import (
	"context"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rxtech-lab/argo-crossover/internal/types"
	"github.com/rxtech-lab/argo-crossover/pkg/errors"
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultWaitTimeout  = 2 * time.Minute
)

// WaitOptions controls how long and how often an order is polled.
type WaitOptions struct {
	PollInterval time.Duration
	Timeout      time.Duration
	// OnPoll is called with every non-terminal state. Optional.
	OnPoll func(OrderState)
}

// DefaultWaitOptions polls every 500ms for up to two minutes.
func DefaultWaitOptions() WaitOptions {
	return WaitOptions{
		PollInterval: DefaultPollInterval,
		Timeout:      DefaultWaitTimeout,
		OnPoll:       nil,
	}
}

var errOrderPending = errors.New(errors.ErrCodeOrderTimeout, "order is still pending")

// WaitForTerminal polls the order until it is filled, cancelled, rejected or failed.
//
// A failing status query stops the wait with that error. Running out of time or a cancelled
// ctx stops it with ErrCodeOrderTimeout.
func WaitForTerminal(ctx context.Context, b Broker, symbol, orderID string, opts WaitOptions) (OrderState, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(opts.PollInterval), ctx)

	state, err := backoff.RetryWithData(func() (OrderState, error) {
		state, err := b.OrderStatus(ctx, symbol, orderID)
		if err != nil {
			if ctx.Err() != nil {
				return OrderState{}, backoff.Permanent(ctx.Err())
			}

			return OrderState{}, backoff.Permanent(err)
		}

		if !state.Status.IsTerminal() {
			if opts.OnPoll != nil {
				opts.OnPoll(state)
			}

			return state, errOrderPending
		}

		return state, nil
	}, policy)
	if err != nil {
		if ctx.Err() != nil {
			return OrderState{}, errors.Wrapf(errors.ErrCodeOrderTimeout, ctx.Err(), "order %s did not finish", orderID)
		}

		return OrderState{}, err
	}

	return state, nil
}

// PlaceAndWait submits req and waits for the order to finish.
//
// An order that ends cancelled, rejected or failed is not an error: the returned Fill carries
// that status and whatever quantity was executed. An executed quantity that is not a whole
// number of units fails with ErrCodeOrderFailed, since a Fill cannot carry it.
func PlaceAndWait(ctx context.Context, b Broker, req types.OrderRequest, opts WaitOptions) (types.Fill, error) {
	orderID, err := b.SubmitMarketOrder(ctx, req)
	if err != nil {
		return types.Fill{}, err
	}

	state, err := WaitForTerminal(ctx, b, req.Symbol, orderID, opts)
	if err != nil {
		return types.Fill{}, err
	}

	quantity := state.FilledQuantity
	if quantity != math.Trunc(quantity) || math.IsInf(quantity, 0) {
		return types.Fill{}, errors.Newf(errors.ErrCodeOrderFailed,
			"order %s executed a fractional quantity %v with status %s", orderID, quantity, state.Status)
	}

	return types.Fill{
		OrderID:   orderID,
		Symbol:    req.Symbol,
		Action:    req.Action,
		Quantity:  int(quantity),
		FillPrice: state.AveragePrice,
		Status:    state.Status,
		FilledAt:  state.UpdatedAt,
	}, nil
}
