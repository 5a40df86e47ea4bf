package types

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type SignalTestSuite struct {
	suite.Suite
}

func TestSignalSuite(t *testing.T) {
	suite.Run(t, new(SignalTestSuite))
}

func (suite *SignalTestSuite) TestSignalTypeConstants() {
	suite.Equal(SignalType("NONE"), SignalTypeNone)
	suite.Equal(SignalType("BUY"), SignalTypeBuy)
	suite.Equal(SignalType("SELL"), SignalTypeSell)
}

func (suite *SignalTestSuite) TestSignalDirection() {
	suite.Equal(1, SignalTypeBuy.Direction())
	suite.Equal(-1, SignalTypeSell.Direction())
	suite.Equal(0, SignalTypeNone.Direction())
	suite.Equal(0, SignalType("").Direction())
}

func (suite *SignalTestSuite) TestDecisionAction() {
	action, ok := DecisionBuy.Action()
	suite.True(ok)
	suite.Equal(ActionBuy, action)

	action, ok = DecisionSell.Action()
	suite.True(ok)
	suite.Equal(ActionSell, action)

	_, ok = DecisionHold.Action()
	suite.False(ok)
}

func (suite *SignalTestSuite) TestSignalStateZeroValues() {
	state := SignalState{}

	suite.True(state.Time.IsZero())
	suite.Empty(string(state.Signal))
	suite.True(state.BuyPrice.IsNone())
	suite.True(state.SellPrice.IsNone())
}
