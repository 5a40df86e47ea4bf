package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-crossover/internal/broker"
	"github.com/rxtech-lab/argo-crossover/internal/marketdata"
	"github.com/rxtech-lab/argo-crossover/internal/types"
	"github.com/rxtech-lab/argo-crossover/mocks"
	"github.com/rxtech-lab/argo-crossover/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type MovingAverageStrategyTestSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	provider *mocks.MockProvider
	broker   *mocks.MockBroker
	ledger   *mocks.MockLedger
	ctx      context.Context
}

func TestMovingAverageStrategySuite(t *testing.T) {
	suite.Run(t, new(MovingAverageStrategyTestSuite))
}

func (suite *MovingAverageStrategyTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.provider = mocks.NewMockProvider(suite.ctrl)
	suite.broker = mocks.NewMockBroker(suite.ctrl)
	suite.ledger = mocks.NewMockLedger(suite.ctrl)
	suite.ctx = context.Background()
}

func (suite *MovingAverageStrategyTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *MovingAverageStrategyTestSuite) config(trade bool) Config {
	config := DefaultConfig("AAPL")
	config.FastPeriod = 3
	config.SlowPeriod = 5
	config.Trade = trade
	config.Wait = broker.WaitOptions{PollInterval: time.Millisecond, Timeout: time.Second, OnPoll: nil}

	return config
}

func (suite *MovingAverageStrategyTestSuite) newStrategy(config Config) *MovingAverageStrategy {
	s, err := NewMovingAverageStrategy(config, suite.provider, suite.broker, suite.ledger, nil)
	suite.Require().NoError(err)

	return s
}

func (suite *MovingAverageStrategyTestSuite) rising() []types.Bar {
	return barsFromCloses(linearCloses(100, 120)...)
}

func (suite *MovingAverageStrategyTestSuite) falling() []types.Bar {
	return barsFromCloses(linearCloses(120, 100)...)
}

func (suite *MovingAverageStrategyTestSuite) TestNewValidatesConfig() {
	config := suite.config(false)
	config.Symbol = ""

	_, err := NewMovingAverageStrategy(config, suite.provider, suite.broker, nil, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))

	config = suite.config(false)
	config.FastPeriod = 0
	_, err = NewMovingAverageStrategy(config, suite.provider, suite.broker, nil, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))

	_, err = NewMovingAverageStrategy(suite.config(false), nil, suite.broker, nil, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))

	_, err = NewMovingAverageStrategy(suite.config(false), suite.provider, nil, nil, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))
}

func (suite *MovingAverageStrategyTestSuite) TestName() {
	suite.Equal("MovingAverageCrossover", suite.newStrategy(suite.config(false)).Name())
}

func (suite *MovingAverageStrategyTestSuite) TestGetDataBuildsQuery() {
	bars := suite.rising()
	suite.provider.EXPECT().Bars(gomock.Any(), marketdata.Query{
		Symbol:   "AAPL",
		Duration: "60 D",
		BarSize:  marketdata.BarSizeOneHour,
		DataType: marketdata.DataTypeTrades,
	}).Return(bars, nil)

	got, err := suite.newStrategy(suite.config(false)).GetData(suite.ctx)
	suite.NoError(err)
	suite.Equal(bars, got)
}

func (suite *MovingAverageStrategyTestSuite) TestGetDataRejectsInvalidQuery() {
	config := suite.config(false)
	config.BarSize = "7 mins"

	_, err := suite.newStrategy(config).GetData(suite.ctx)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidBarSize))
}

func (suite *MovingAverageStrategyTestSuite) TestGetDataProviderError() {
	suite.provider.EXPECT().Bars(gomock.Any(), gomock.Any()).
		Return(nil, errors.New(errors.ErrCodeDataSourceUnavailable, "down"))

	_, err := suite.newStrategy(suite.config(false)).GetData(suite.ctx)
	suite.True(errors.HasCode(err, errors.ErrCodeHistoricalDataFailed))
	suite.Contains(err.Error(), "down")
}

func (suite *MovingAverageStrategyTestSuite) TestRunNoData() {
	suite.provider.EXPECT().Bars(gomock.Any(), gomock.Any()).Return([]types.Bar{}, nil)

	_, err := suite.newStrategy(suite.config(true)).Run(suite.ctx)
	suite.True(errors.HasCode(err, errors.ErrCodeNoDataFound))
}

func (suite *MovingAverageStrategyTestSuite) TestRunNotEnoughBarsHolds() {
	suite.provider.EXPECT().Bars(gomock.Any(), gomock.Any()).Return(barsFromCloses(1, 2, 3), nil)
	suite.broker.EXPECT().Position(gomock.Any(), "AAPL").Return(0.0, nil)

	result, err := suite.newStrategy(suite.config(true)).Run(suite.ctx)
	suite.NoError(err)
	suite.Empty(result.Series)
	suite.True(result.Last().IsNone())
	suite.Equal(types.DecisionHold, result.Decision)
	suite.True(result.Fill.IsNone())
}

func (suite *MovingAverageStrategyTestSuite) TestRunDryRunDoesNotTrade() {
	suite.provider.EXPECT().Bars(gomock.Any(), gomock.Any()).Return(suite.rising(), nil)
	suite.broker.EXPECT().Position(gomock.Any(), "AAPL").Return(0.0, nil)

	result, err := suite.newStrategy(suite.config(false)).Run(suite.ctx)
	suite.NoError(err)
	suite.Equal(types.DecisionBuy, result.Decision)
	suite.Equal(21, result.Bars)
	suite.Len(result.Series, 17)
	suite.True(result.Fill.IsNone())
}

func (suite *MovingAverageStrategyTestSuite) TestRunHoldsWhenAlreadyLong() {
	suite.provider.EXPECT().Bars(gomock.Any(), gomock.Any()).Return(suite.rising(), nil)
	suite.broker.EXPECT().Position(gomock.Any(), "AAPL").Return(10.0, nil)

	result, err := suite.newStrategy(suite.config(true)).Run(suite.ctx)
	suite.NoError(err)
	suite.Equal(types.DecisionHold, result.Decision)
	suite.Equal(10.0, result.Position)
	suite.True(result.Fill.IsNone())
}

func (suite *MovingAverageStrategyTestSuite) TestRunBuys() {
	var submitted types.OrderRequest

	suite.provider.EXPECT().Bars(gomock.Any(), gomock.Any()).Return(suite.rising(), nil)
	suite.broker.EXPECT().Position(gomock.Any(), "AAPL").Return(0.0, nil)
	suite.broker.EXPECT().SubmitMarketOrder(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req types.OrderRequest) (string, error) {
			submitted = req

			return "42", nil
		})

	filledAt := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
	gomock.InOrder(
		suite.broker.EXPECT().OrderStatus(gomock.Any(), "AAPL", "42").
			Return(broker.OrderState{Status: types.OrderStatusPending, RawStatus: "NEW"}, nil),
		suite.broker.EXPECT().OrderStatus(gomock.Any(), "AAPL", "42").
			Return(broker.OrderState{
				Status:         types.OrderStatusFilled,
				FilledQuantity: 10,
				AveragePrice:   120.5,
				RawStatus:      "FILLED",
				UpdatedAt:      filledAt,
			}, nil),
	)

	expected := types.Fill{
		OrderID:   "42",
		Symbol:    "AAPL",
		Action:    types.ActionBuy,
		Quantity:  10,
		FillPrice: 120.5,
		Status:    types.OrderStatusFilled,
		FilledAt:  filledAt,
	}
	suite.ledger.EXPECT().Record(gomock.Any(), expected).Return(nil)

	result, err := suite.newStrategy(suite.config(true)).Run(suite.ctx)
	suite.Require().NoError(err)

	suite.Equal(types.ActionBuy, submitted.Action)
	suite.Equal(10, submitted.Quantity)
	suite.Equal(types.OrderTypeMarket, submitted.OrderType)
	_, uuidErr := uuid.Parse(submitted.ID)
	suite.NoError(uuidErr)

	fill, err := result.Fill.Take()
	suite.Require().NoError(err)
	suite.Equal(expected, fill)
}

func (suite *MovingAverageStrategyTestSuite) TestRunSellsWhenLong() {
	suite.provider.EXPECT().Bars(gomock.Any(), gomock.Any()).Return(suite.falling(), nil)
	suite.broker.EXPECT().Position(gomock.Any(), "AAPL").Return(10.0, nil)
	suite.broker.EXPECT().SubmitMarketOrder(gomock.Any(), gomock.Any()).Return("7", nil)
	suite.broker.EXPECT().OrderStatus(gomock.Any(), "AAPL", "7").
		Return(broker.OrderState{Status: types.OrderStatusFilled, FilledQuantity: 10, AveragePrice: 100}, nil)
	suite.ledger.EXPECT().Record(gomock.Any(), gomock.Any()).Return(nil)

	result, err := suite.newStrategy(suite.config(true)).Run(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(types.DecisionSell, result.Decision)

	fill, err := result.Fill.Take()
	suite.Require().NoError(err)
	suite.Equal(types.ActionSell, fill.Action)
}

func (suite *MovingAverageStrategyTestSuite) TestRunRejectedOrderIsNotAnError() {
	suite.provider.EXPECT().Bars(gomock.Any(), gomock.Any()).Return(suite.rising(), nil)
	suite.broker.EXPECT().Position(gomock.Any(), "AAPL").Return(-5.0, nil)
	suite.broker.EXPECT().SubmitMarketOrder(gomock.Any(), gomock.Any()).Return("9", nil)
	suite.broker.EXPECT().OrderStatus(gomock.Any(), "AAPL", "9").
		Return(broker.OrderState{Status: types.OrderStatusRejected, RawStatus: "REJECTED"}, nil)
	suite.ledger.EXPECT().Record(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, fill types.Fill) error {
			suite.Equal(types.OrderStatusRejected, fill.Status)
			suite.Zero(fill.Quantity)

			return nil
		})

	result, err := suite.newStrategy(suite.config(true)).Run(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(types.DecisionBuy, result.Decision, "a short position is bought back")

	fill, err := result.Fill.Take()
	suite.Require().NoError(err)
	suite.False(fill.IsFilled())
}

func (suite *MovingAverageStrategyTestSuite) TestRunSubmitError() {
	suite.provider.EXPECT().Bars(gomock.Any(), gomock.Any()).Return(suite.rising(), nil)
	suite.broker.EXPECT().Position(gomock.Any(), "AAPL").Return(0.0, nil)
	suite.broker.EXPECT().SubmitMarketOrder(gomock.Any(), gomock.Any()).
		Return("", errors.New(errors.ErrCodeOrderFailed, "insufficient balance"))

	result, err := suite.newStrategy(suite.config(true)).Run(suite.ctx)
	suite.True(errors.HasCode(err, errors.ErrCodeOrderFailed))
	suite.Equal(types.DecisionBuy, result.Decision)
	suite.True(result.Fill.IsNone())
}

func (suite *MovingAverageStrategyTestSuite) TestRunWithoutLedger() {
	suite.provider.EXPECT().Bars(gomock.Any(), gomock.Any()).Return(suite.rising(), nil)
	suite.broker.EXPECT().Position(gomock.Any(), "AAPL").Return(0.0, nil)
	suite.broker.EXPECT().SubmitMarketOrder(gomock.Any(), gomock.Any()).Return("1", nil)
	suite.broker.EXPECT().OrderStatus(gomock.Any(), "AAPL", "1").
		Return(broker.OrderState{Status: types.OrderStatusFilled, FilledQuantity: 10, AveragePrice: 120}, nil)

	s, err := NewMovingAverageStrategy(suite.config(true), suite.provider, suite.broker, nil, nil)
	suite.Require().NoError(err)

	result, err := s.Run(suite.ctx)
	suite.NoError(err)
	suite.True(result.Fill.IsSome())
}

func (suite *MovingAverageStrategyTestSuite) TestAnalyzePositionError() {
	suite.broker.EXPECT().Position(gomock.Any(), "AAPL").
		Return(0.0, errors.New(errors.ErrCodeBrokerNotConnected, "not connected"))

	_, err := suite.newStrategy(suite.config(false)).Analyze(suite.ctx, suite.rising())
	suite.True(errors.HasCode(err, errors.ErrCodeBrokerNotConnected))
}

func (suite *MovingAverageStrategyTestSuite) TestAnalyzeGeneratedBars() {
	bars := mocks.TrendingBars("BTCUSDT", 500)
	suite.broker.EXPECT().Position(gomock.Any(), "AAPL").Return(0.0, nil)

	config := DefaultConfig("AAPL")
	s, err := NewMovingAverageStrategy(config, suite.provider, suite.broker, nil, nil)
	suite.Require().NoError(err)

	analysis, err := s.Analyze(suite.ctx, bars)
	suite.Require().NoError(err)
	suite.Len(analysis.Series, 500-config.SlowPeriod+1)
	suite.Equal(DecideTrade(analysis.Series, 0), analysis.Decision)
	suite.Equal(bars[len(bars)-1].Time, analysis.Last().Unwrap().Time)
}

func (suite *MovingAverageStrategyTestSuite) TestPlaceOrderRejectsInvalidQuantity() {
	_, err := suite.newStrategy(suite.config(true)).PlaceOrder(suite.ctx, types.ActionBuy, 0)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidOrder))
}

func (suite *MovingAverageStrategyTestSuite) TestPerformance() {
	suite.ledger.EXPECT().Fills(gomock.Any(), "AAPL").Return([]types.Fill{
		{OrderID: "1", Symbol: "AAPL", Action: types.ActionBuy, Quantity: 10, FillPrice: 100, Status: types.OrderStatusFilled},
		{OrderID: "2", Symbol: "AAPL", Action: types.ActionSell, Quantity: 5, FillPrice: 120, Status: types.OrderStatusFilled},
		{OrderID: "3", Symbol: "AAPL", Action: types.ActionBuy, Quantity: 0, Status: types.OrderStatusRejected},
	}, nil)
	suite.broker.EXPECT().LastPrice(gomock.Any(), "AAPL").Return(110.0, nil)

	summary, err := suite.newStrategy(suite.config(false)).Performance(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(types.PerformanceSummary{TotalPnL: 150, NumTrades: 2, AveragePnLPerTrade: 75}, summary)
}

func (suite *MovingAverageStrategyTestSuite) TestPerformanceWithoutFills() {
	suite.ledger.EXPECT().Fills(gomock.Any(), "AAPL").Return(nil, nil)

	summary, err := suite.newStrategy(suite.config(false)).Performance(suite.ctx)
	suite.NoError(err)
	suite.Equal(types.PerformanceSummary{}, summary)
}

func (suite *MovingAverageStrategyTestSuite) TestPerformanceNeedsLedger() {
	s, err := NewMovingAverageStrategy(suite.config(false), suite.provider, suite.broker, nil, nil)
	suite.Require().NoError(err)

	_, err = s.Performance(suite.ctx)
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))
}

func (suite *MovingAverageStrategyTestSuite) TestEvaluatePerformanceInvalidAction() {
	_, err := suite.newStrategy(suite.config(false)).EvaluatePerformance([]types.TradeRecord{
		{Action: "HOLD", Quantity: 1, FillPrice: 1, CurrentPrice: 2},
	})
	suite.True(errors.IsInvalidAction(err))
}

func (suite *MovingAverageStrategyTestSuite) TestTradeRecords() {
	fills := []types.Fill{
		{Action: types.ActionBuy, Quantity: 10, FillPrice: 100, Status: types.OrderStatusFilled},
		{Action: types.ActionSell, Quantity: 0, Status: types.OrderStatusCancelled},
		{Action: types.ActionSell, Quantity: 3, FillPrice: 105, Status: types.OrderStatusCancelled},
	}

	suite.Equal([]types.TradeRecord{
		{Action: types.ActionBuy, Quantity: 10, FillPrice: 100, CurrentPrice: 101},
		{Action: types.ActionSell, Quantity: 3, FillPrice: 105, CurrentPrice: 101},
	}, TradeRecords(fills, 101))
}
