package mockserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-crossover/internal/types"
	"github.com/stretchr/testify/suite"
)

type MockServerTestSuite struct {
	suite.Suite
	server *MockBinanceServer
	http   *httptest.Server
}

func TestMockServerSuite(t *testing.T) {
	suite.Run(t, new(MockServerTestSuite))
}

func (suite *MockServerTestSuite) SetupTest() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, 5)

	for i := range bars {
		bars[i] = types.Bar{Time: start.Add(time.Duration(i) * time.Hour), Symbol: "BTCUSDT", Close: float64(100 + i)}
	}

	suite.server = NewMockBinanceServer(ServerConfig{
		InitialBalances: map[string]float64{"USDT": 1000},
		Prices:          map[string]float64{"BTCUSDT": 50},
		Klines:          map[string][]types.Bar{"BTCUSDT": bars},
		PendingPolls:    1,
		RejectOrders:    false,
	})
	suite.http = httptest.NewServer(suite.server.Handler())
}

func (suite *MockServerTestSuite) TearDownTest() {
	suite.http.Close()
}

func (suite *MockServerTestSuite) getJSON(path string, v any) int {
	resp, err := http.Get(suite.http.URL + path)
	suite.Require().NoError(err)
	defer resp.Body.Close()

	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(v))

	return resp.StatusCode
}

func (suite *MockServerTestSuite) TestKlinesWindowAndLimit() {
	start := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC).UnixMilli()

	var klines [][]any
	status := suite.getJSON("/api/v3/klines?symbol=BTCUSDT&interval=1h&limit=2&startTime="+
		strconv.FormatInt(start, 10), &klines)
	suite.Equal(http.StatusOK, status)
	suite.Require().Len(klines, 2)
	suite.Equal("101.00000000", klines[0][4])
	suite.Equal(float64(start+time.Hour.Milliseconds()-1), klines[0][6])
}

func (suite *MockServerTestSuite) TestKlinesInvalidInterval() {
	var body map[string]any
	status := suite.getJSON("/api/v3/klines?symbol=BTCUSDT&interval=x", &body)
	suite.Equal(http.StatusBadRequest, status)
	suite.Contains(body, "code")
}

func (suite *MockServerTestSuite) TestTickerPrice() {
	var price map[string]string
	suite.Equal(http.StatusOK, suite.getJSON("/api/v3/ticker/price?symbol=BTCUSDT", &price))
	suite.Equal("50.00000000", price["price"])
}

func (suite *MockServerTestSuite) TestMarketOrderLifecycle() {
	resp, err := http.PostForm(suite.http.URL+"/api/v3/order", url.Values{
		"symbol":           {"BTCUSDT"},
		"side":             {"BUY"},
		"type":             {"MARKET"},
		"quantity":         {"2"},
		"newClientOrderId": {"client-1"},
	})
	suite.Require().NoError(err)
	defer resp.Body.Close()

	var created map[string]any
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&created))
	suite.Equal("NEW", created["status"])
	suite.Equal("client-1", created["clientOrderId"])

	var order map[string]any
	suite.getJSON("/api/v3/order?symbol=BTCUSDT&orderId=1001", &order)
	suite.Equal("NEW", order["status"])

	suite.getJSON("/api/v3/order?symbol=BTCUSDT&orderId=1001", &order)
	suite.Equal("FILLED", order["status"])
	suite.Equal("2.00000000", order["executedQty"])
	suite.Equal("100.00000000", order["cummulativeQuoteQty"])

	suite.InDelta(900.0, suite.server.GetBalance("USDT").Free, 1e-9)
	suite.InDelta(2.0, suite.server.GetBalance("BTC").Free, 1e-9)
	suite.Equal(2, suite.server.Requests("/api/v3/order")-1)
}

func (suite *MockServerTestSuite) TestInsufficientBalance() {
	resp, err := http.PostForm(suite.http.URL+"/api/v3/order", url.Values{
		"symbol":   {"BTCUSDT"},
		"side":     {"SELL"},
		"type":     {"MARKET"},
		"quantity": {"1"},
	})
	suite.Require().NoError(err)
	defer resp.Body.Close()

	suite.Equal(http.StatusBadRequest, resp.StatusCode)
	suite.Empty(suite.server.Orders())
}

func (suite *MockServerTestSuite) TestUnknownOrder() {
	var body map[string]any
	suite.Equal(http.StatusBadRequest, suite.getJSON("/api/v3/order?symbol=BTCUSDT&orderId=5", &body))
}

func (suite *MockServerTestSuite) TestSplitSymbol() {
	base, quote := splitSymbol("ETHBTC")
	suite.Equal("ETH", base)
	suite.Equal("BTC", quote)

	base, quote = splitSymbol("ABCD")
	suite.Equal("AB", base)
	suite.Equal("CD", quote)
}
