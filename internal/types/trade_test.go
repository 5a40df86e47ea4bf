package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type TradeTestSuite struct {
	suite.Suite
}

func TestTradeSuite(t *testing.T) {
	suite.Run(t, new(TradeTestSuite))
}

func (suite *TradeTestSuite) TestFillTradeRecord() {
	fill := Fill{
		OrderID:   "42",
		Symbol:    "AAPL",
		Action:    ActionBuy,
		Quantity:  10,
		FillPrice: 100.0,
		Status:    OrderStatusFilled,
		FilledAt:  time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC),
	}

	record := fill.TradeRecord(110.0)
	suite.Equal(TradeRecord{
		Action:       ActionBuy,
		Quantity:     10,
		FillPrice:    100.0,
		CurrentPrice: 110.0,
	}, record)
}

func (suite *TradeTestSuite) TestFillIsFilled() {
	suite.True(Fill{Status: OrderStatusFilled}.IsFilled())
	suite.False(Fill{Status: OrderStatusCancelled}.IsFilled())
	suite.False(Fill{Status: OrderStatusPending}.IsFilled())
}

func (suite *TradeTestSuite) TestCloses() {
	bars := []Bar{{Close: 1}, {Close: 2.5}, {Close: 3}}
	suite.Equal([]float64{1, 2.5, 3}, Closes(bars))
	suite.Empty(Closes(nil))
}
