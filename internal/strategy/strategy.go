package strategy

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-crossover/internal/broker"
	"github.com/rxtech-lab/argo-crossover/internal/ledger"
	"github.com/rxtech-lab/argo-crossover/internal/logger"
	"github.com/rxtech-lab/argo-crossover/internal/marketdata"
	"github.com/rxtech-lab/argo-crossover/internal/performance"
	"github.com/rxtech-lab/argo-crossover/internal/types"
	"github.com/rxtech-lab/argo-crossover/pkg/errors"
	"go.uber.org/zap"
)

// Strategy fetches data, places orders and evaluates its own trades.
type Strategy interface {
	// Name returns the name of the strategy
	Name() string
	// GetData fetches the historical bars the strategy decides on.
	GetData(ctx context.Context) ([]types.Bar, error)
	// PlaceOrder submits a market order and waits until it reaches a terminal status.
	PlaceOrder(ctx context.Context, action types.Action, quantity int) (types.Fill, error)
	// EvaluatePerformance summarizes the realized P&L of trades.
	EvaluatePerformance(trades []types.TradeRecord) (types.PerformanceSummary, error)
}

// Config holds the settings of a MovingAverageStrategy.
type Config struct {
	Symbol     string              `validate:"required"`
	FastPeriod int                 `validate:"gt=0"`
	SlowPeriod int                 `validate:"gt=0"`
	Quantity   int                 `validate:"gt=0"`
	Duration   string              `validate:"required"`
	BarSize    marketdata.BarSize  `validate:"required"`
	DataType   marketdata.DataType `validate:"required"`
	// Trade enables order submission. When false Run only logs the order it would place.
	Trade bool
	Wait  broker.WaitOptions
}

// DefaultConfig returns a 10/30 crossover on 60 days of hourly trade bars, trading 10 units.
func DefaultConfig(symbol string) Config {
	return Config{
		Symbol:     symbol,
		FastPeriod: 10,
		SlowPeriod: 30,
		Quantity:   10,
		Duration:   "60 D",
		BarSize:    marketdata.BarSizeOneHour,
		DataType:   marketdata.DataTypeTrades,
		Trade:      false,
		Wait:       broker.DefaultWaitOptions(),
	}
}

// Analysis is the outcome of running the signal engine on one batch of bars.
type Analysis struct {
	Series   []types.SignalState
	Position float64
	Decision types.Decision
}

// Last returns the latest row of the series.
func (a Analysis) Last() optional.Option[types.SignalState] {
	if len(a.Series) == 0 {
		return optional.None[types.SignalState]()
	}

	return optional.Some(a.Series[len(a.Series)-1])
}

// RunResult is the outcome of one Run.
type RunResult struct {
	Analysis
	// Bars is the number of bars fetched
	Bars int
	// Fill is set when an order was submitted
	Fill optional.Option[types.Fill]
}

// MovingAverageStrategy trades the crossover of a fast and a slow simple moving average.
type MovingAverageStrategy struct {
	config   Config
	provider marketdata.Provider
	broker   broker.Broker
	ledger   ledger.Ledger
	log      *logger.Logger
}

var _ Strategy = (*MovingAverageStrategy)(nil)

// NewMovingAverageStrategy composes a strategy from its collaborators. ledger may be nil,
// in which case fills are not recorded. A nil log discards output.
func NewMovingAverageStrategy(
	config Config,
	provider marketdata.Provider,
	b broker.Broker,
	l ledger.Ledger,
	log *logger.Logger,
) (*MovingAverageStrategy, error) {
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid strategy config", err)
	}

	if provider == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "market data provider is required")
	}

	if b == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "broker is required")
	}

	if log == nil {
		log = logger.NewNop()
	}

	return &MovingAverageStrategy{
		config:   config,
		provider: provider,
		broker:   b,
		ledger:   l,
		log:      log,
	}, nil
}

func (s *MovingAverageStrategy) Name() string {
	return "MovingAverageCrossover"
}

// Query returns the market data query built from the config.
func (s *MovingAverageStrategy) Query() marketdata.Query {
	return marketdata.Query{
		Symbol:   s.config.Symbol,
		Duration: s.config.Duration,
		BarSize:  s.config.BarSize,
		DataType: s.config.DataType,
	}
}

func (s *MovingAverageStrategy) GetData(ctx context.Context) ([]types.Bar, error) {
	query := s.Query()
	if err := query.Validate(); err != nil {
		return nil, err
	}

	bars, err := s.provider.Bars(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeHistoricalDataFailed, err, "failed to fetch bars for %s", query.Symbol)
	}

	s.log.Debug("Fetched bars",
		zap.String("symbol", query.Symbol),
		zap.String("bar_size", string(query.BarSize)),
		zap.Int("count", len(bars)),
	)

	return bars, nil
}

// Analyze computes the signal series of bars and decides against a freshly fetched position.
func (s *MovingAverageStrategy) Analyze(ctx context.Context, bars []types.Bar) (Analysis, error) {
	series, err := ComputeSignalSeries(bars, s.config.FastPeriod, s.config.SlowPeriod)
	if err != nil {
		return Analysis{}, err
	}

	position, err := s.broker.Position(ctx, s.config.Symbol)
	if err != nil {
		return Analysis{}, err
	}

	analysis := Analysis{
		Series:   series,
		Position: position,
		Decision: DecideTrade(series, position),
	}

	fields := []zap.Field{
		zap.String("symbol", s.config.Symbol),
		zap.Float64("position", position),
		zap.String("decision", string(analysis.Decision)),
	}

	if last, err := analysis.Last().Take(); err == nil {
		fields = append(fields,
			zap.Time("time", last.Time),
			zap.Float64("close", last.Close),
			zap.Float64("fast_ma", last.FastMA),
			zap.Float64("slow_ma", last.SlowMA),
		)
	}

	s.log.Info("Moving average crossover", fields...)

	return analysis, nil
}

func (s *MovingAverageStrategy) PlaceOrder(ctx context.Context, action types.Action, quantity int) (types.Fill, error) {
	req := types.OrderRequest{
		ID:        uuid.New().String(),
		Symbol:    s.config.Symbol,
		Action:    action,
		Quantity:  quantity,
		OrderType: types.OrderTypeMarket,
	}

	if err := req.Validate(); err != nil {
		return types.Fill{}, err
	}

	s.log.Info("Placing order",
		zap.String("id", req.ID),
		zap.String("symbol", req.Symbol),
		zap.String("action", string(req.Action)),
		zap.Int("quantity", req.Quantity),
	)

	fill, err := broker.PlaceAndWait(ctx, s.broker, req, s.config.Wait)
	if err != nil {
		return types.Fill{}, err
	}

	if fill.IsFilled() {
		s.log.Info("Order filled",
			zap.String("order_id", fill.OrderID),
			zap.Int("quantity", fill.Quantity),
			zap.Float64("fill_price", fill.FillPrice),
		)
	} else {
		s.log.Warn("Order finished without a fill",
			zap.String("order_id", fill.OrderID),
			zap.String("status", string(fill.Status)),
			zap.Int("filled_quantity", fill.Quantity),
		)
	}

	if s.ledger != nil {
		if err := s.ledger.Record(ctx, fill); err != nil {
			return fill, err
		}
	}

	return fill, nil
}

func (s *MovingAverageStrategy) EvaluatePerformance(trades []types.TradeRecord) (types.PerformanceSummary, error) {
	summary, err := performance.Evaluate(trades)
	if err != nil {
		return types.PerformanceSummary{}, err
	}

	s.log.Info("Performance",
		zap.Float64("total_pnl", summary.TotalPnL),
		zap.Int("num_trades", summary.NumTrades),
		zap.Float64("average_pnl_per_trade", summary.AveragePnLPerTrade),
	)

	return summary, nil
}

// Performance marks the recorded fills of the symbol to the broker's last price and
// evaluates them. Orders that executed nothing are skipped. It needs a ledger.
func (s *MovingAverageStrategy) Performance(ctx context.Context) (types.PerformanceSummary, error) {
	if s.ledger == nil {
		return types.PerformanceSummary{}, errors.New(errors.ErrCodeMissingParameter, "a ledger is required to evaluate fills")
	}

	fills, err := s.ledger.Fills(ctx, s.config.Symbol)
	if err != nil {
		return types.PerformanceSummary{}, err
	}

	if len(fills) == 0 {
		return s.EvaluatePerformance(nil)
	}

	price, err := s.broker.LastPrice(ctx, s.config.Symbol)
	if err != nil {
		return types.PerformanceSummary{}, err
	}

	return s.EvaluatePerformance(TradeRecords(fills, price))
}

// TradeRecords marks fills to currentPrice, skipping fills with no executed quantity.
func TradeRecords(fills []types.Fill, currentPrice float64) []types.TradeRecord {
	trades := make([]types.TradeRecord, 0, len(fills))

	for _, fill := range fills {
		if fill.Quantity == 0 {
			continue
		}

		trades = append(trades, fill.TradeRecord(currentPrice))
	}

	return trades
}

// Run fetches bars, decides, and places the order when trading is enabled.
// With trading disabled the intended order is only logged.
func (s *MovingAverageStrategy) Run(ctx context.Context) (RunResult, error) {
	bars, err := s.GetData(ctx)
	if err != nil {
		return RunResult{}, err
	}

	if len(bars) == 0 {
		return RunResult{}, errors.Newf(errors.ErrCodeNoDataFound, "no bars returned for %s", s.config.Symbol)
	}

	analysis, err := s.Analyze(ctx, bars)
	if err != nil {
		return RunResult{}, err
	}

	result := RunResult{
		Analysis: analysis,
		Bars:     len(bars),
		Fill:     optional.None[types.Fill](),
	}

	action, ok := analysis.Decision.Action()
	if !ok {
		return result, nil
	}

	if !s.config.Trade {
		s.log.Info("Dry run, order not submitted",
			zap.String("symbol", s.config.Symbol),
			zap.String("action", string(action)),
			zap.Int("quantity", s.config.Quantity),
		)

		return result, nil
	}

	fill, err := s.PlaceOrder(ctx, action, s.config.Quantity)
	if err != nil {
		return result, err
	}

	result.Fill = optional.Some(fill)

	return result, nil
}
