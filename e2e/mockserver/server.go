// Package mockserver provides a mock Binance REST server for end-to-end tests.
// It serves klines from a fixed bar series and fills market orders at a settable price.
package mockserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/argo-crossover/internal/types"
)

// MockBinanceServer provides a mock Binance server for testing.
type MockBinanceServer struct {
	mu sync.RWMutex

	httpServer *http.Server
	listener   net.Listener

	balances   map[string]*Balance
	orders     map[int64]*Order
	orderIDSeq int64
	prices     map[string]float64
	klines     map[string][]types.Bar

	pendingPolls int
	rejectOrders bool
	requests     map[string]int
}

// Balance represents an account balance.
type Balance struct {
	Asset  string
	Free   float64
	Locked float64
}

// OrderStatus represents the status of an order.
type OrderStatus string

const (
	OrderStatusNew      OrderStatus = "NEW"
	OrderStatusFilled   OrderStatus = "FILLED"
	OrderStatusRejected OrderStatus = "REJECTED"
)

// Order represents a market order placed on the server.
type Order struct {
	OrderID       int64
	ClientOrderID string
	Symbol        string
	Side          string
	Quantity      float64
	Price         float64
	Status        OrderStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
	// polls counts status queries answered while the order was still NEW
	polls int
}

// ServerConfig holds configuration for the mock server.
type ServerConfig struct {
	// InitialBalances maps asset to initial balance amount
	InitialBalances map[string]float64
	// Prices maps symbol to the price market orders fill at
	Prices map[string]float64
	// Klines maps symbol to the bars served by /api/v3/klines
	Klines map[string][]types.Bar
	// PendingPolls is how many status queries report an order as NEW before it fills
	PendingPolls int
	// RejectOrders makes every order end REJECTED
	RejectOrders bool
}

// NewMockBinanceServer creates a new mock Binance server.
func NewMockBinanceServer(config ServerConfig) *MockBinanceServer {
	server := &MockBinanceServer{
		mu:           sync.RWMutex{},
		httpServer:   nil,
		listener:     nil,
		balances:     make(map[string]*Balance),
		orders:       make(map[int64]*Order),
		orderIDSeq:   1000,
		prices:       make(map[string]float64),
		klines:       make(map[string][]types.Bar),
		pendingPolls: config.PendingPolls,
		rejectOrders: config.RejectOrders,
		requests:     make(map[string]int),
	}

	for asset, amount := range config.InitialBalances {
		server.balances[asset] = &Balance{Asset: asset, Free: amount, Locked: 0}
	}

	for symbol, price := range config.Prices {
		server.prices[symbol] = price
	}

	for symbol, bars := range config.Klines {
		server.klines[symbol] = bars
	}

	return server
}

// Handler returns the router serving the REST endpoints.
func (s *MockBinanceServer) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.countRequests)

	router.HandleFunc("/api/v3/time", s.handleTime).Methods(http.MethodGet)
	router.HandleFunc("/api/v3/ticker/price", s.handleTickerPrice).Methods(http.MethodGet)
	router.HandleFunc("/api/v3/klines", s.handleKlines).Methods(http.MethodGet)
	router.HandleFunc("/api/v3/account", s.handleAccount).Methods(http.MethodGet)
	router.HandleFunc("/api/v3/order", s.handleCreateOrder).Methods(http.MethodPost)
	router.HandleFunc("/api/v3/order", s.handleGetOrder).Methods(http.MethodGet)

	return router
}

// Start starts the mock server on the given address.
// If address is empty or ":0", a random available port is used.
func (s *MockBinanceServer) Start(address string) error {
	if address == "" {
		address = "127.0.0.1:0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			fmt.Printf("HTTP server error: %v\n", err)
		}
	}()

	return nil
}

// Stop stops the mock server.
func (s *MockBinanceServer) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

// BaseURL returns the base URL for the server.
func (s *MockBinanceServer) BaseURL() string {
	if s.listener == nil {
		return ""
	}

	return "http://" + s.listener.Addr().String()
}

// SetPrice sets the current price for a symbol.
func (s *MockBinanceServer) SetPrice(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = price
}

// GetBalance returns the balance for an asset, nil when the account never held it.
func (s *MockBinanceServer) GetBalance(asset string) *Balance {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if bal, ok := s.balances[asset]; ok {
		return &Balance{Asset: bal.Asset, Free: bal.Free, Locked: bal.Locked}
	}

	return nil
}

// Orders returns a copy of every order, oldest first.
func (s *MockBinanceServer) Orders() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]Order, 0, len(s.orders))
	for id := int64(1001); id <= s.orderIDSeq; id++ {
		if order, ok := s.orders[id]; ok {
			orders = append(orders, *order)
		}
	}

	return orders
}

// Requests returns how many requests hit path.
func (s *MockBinanceServer) Requests(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.requests[path]
}

func (s *MockBinanceServer) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.URL.Path]++
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

// writeError answers with the error body the exchange uses.
func writeError(w http.ResponseWriter, status int, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"code": code, "msg": msg})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 8, 64)
}

// handleTime handles GET /api/v3/time
func (s *MockBinanceServer) handleTime(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]int64{"serverTime": time.Now().UnixMilli()})
}

// handleTickerPrice handles GET /api/v3/ticker/price
func (s *MockBinanceServer) handleTickerPrice(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type priceResponse struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}

	symbol := r.URL.Query().Get("symbol")
	if symbol != "" {
		price, ok := s.prices[symbol]
		if !ok {
			writeError(w, http.StatusBadRequest, -1121, "Invalid symbol.")

			return
		}

		writeJSON(w, priceResponse{Symbol: symbol, Price: formatFloat(price)})

		return
	}

	response := make([]priceResponse, 0, len(s.prices))
	for sym, price := range s.prices {
		response = append(response, priceResponse{Symbol: sym, Price: formatFloat(price)})
	}

	writeJSON(w, response)
}

// handleKlines handles GET /api/v3/klines
func (s *MockBinanceServer) handleKlines(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	symbol := query.Get("symbol")
	interval := parseInterval(query.Get("interval"))

	if symbol == "" || interval == 0 {
		writeError(w, http.StatusBadRequest, -1100, "Illegal characters found in parameter.")

		return
	}

	start := parseMillis(query.Get("startTime"), time.Time{})
	end := parseMillis(query.Get("endTime"), time.Now())

	limit := 500
	if v, err := strconv.Atoi(query.Get("limit")); err == nil && v > 0 {
		limit = min(v, 1000)
	}

	s.mu.RLock()
	bars := s.klines[symbol]
	s.mu.RUnlock()

	klines := make([][]any, 0, limit)

	for _, bar := range bars {
		if bar.Time.Before(start) || bar.Time.After(end) {
			continue
		}

		if len(klines) == limit {
			break
		}

		// [openTime, open, high, low, close, volume, closeTime, quoteVolume, trades, takerBase, takerQuote, ignore]
		klines = append(klines, []any{
			bar.Time.UnixMilli(),
			formatFloat(bar.Open),
			formatFloat(bar.High),
			formatFloat(bar.Low),
			formatFloat(bar.Close),
			formatFloat(bar.Volume),
			bar.Time.Add(interval).UnixMilli() - 1,
			"0",
			0,
			"0",
			"0",
			"0",
		})
	}

	writeJSON(w, klines)
}

// handleAccount handles GET /api/v3/account
func (s *MockBinanceServer) handleAccount(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type balanceResponse struct {
		Asset  string `json:"asset"`
		Free   string `json:"free"`
		Locked string `json:"locked"`
	}

	balances := make([]balanceResponse, 0, len(s.balances))
	for _, bal := range s.balances {
		balances = append(balances, balanceResponse{
			Asset:  bal.Asset,
			Free:   formatFloat(bal.Free),
			Locked: formatFloat(bal.Locked),
		})
	}

	writeJSON(w, map[string]any{
		"makerCommission": 10,
		"takerCommission": 10,
		"canTrade":        true,
		"canWithdraw":     true,
		"canDeposit":      true,
		"updateTime":      time.Now().UnixMilli(),
		"accountType":     "SPOT",
		"balances":        balances,
	})
}

// handleCreateOrder handles POST /api/v3/order. Only market orders are accepted.
func (s *MockBinanceServer) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, -1100, "Failed to parse form")

		return
	}

	symbol := r.FormValue("symbol")
	side := r.FormValue("side")

	if symbol == "" || side == "" || r.FormValue("quantity") == "" {
		writeError(w, http.StatusBadRequest, -1102, "Mandatory parameter was not sent.")

		return
	}

	if r.FormValue("type") != "MARKET" {
		writeError(w, http.StatusBadRequest, -1116, "Invalid orderType.")

		return
	}

	quantity, err := strconv.ParseFloat(r.FormValue("quantity"), 64)
	if err != nil || quantity <= 0 {
		writeError(w, http.StatusBadRequest, -1013, "Invalid quantity.")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	price, ok := s.prices[symbol]
	if !ok {
		writeError(w, http.StatusBadRequest, -1121, "Invalid symbol.")

		return
	}

	s.orderIDSeq++
	now := time.Now()
	order := &Order{
		OrderID:       s.orderIDSeq,
		ClientOrderID: r.FormValue("newClientOrderId"),
		Symbol:        symbol,
		Side:          side,
		Quantity:      quantity,
		Price:         price,
		Status:        OrderStatusNew,
		CreatedAt:     now,
		UpdatedAt:     now,
		polls:         0,
	}

	switch {
	case s.rejectOrders:
		order.Status = OrderStatusRejected
	case !s.settle(order):
		writeError(w, http.StatusBadRequest, -2010, "Account has insufficient balance for requested action.")

		return
	case s.pendingPolls == 0:
		order.Status = OrderStatusFilled
	}

	s.orders[order.OrderID] = order

	writeJSON(w, s.orderResponse(order))
}

// settle moves the balances of a market order. It reports false when the account cannot pay.
func (s *MockBinanceServer) settle(order *Order) bool {
	base, quote := splitSymbol(order.Symbol)
	cost := order.Price * order.Quantity

	from, to := quote, base
	debit, credit := cost, order.Quantity

	if order.Side == "SELL" {
		from, to = base, quote
		debit, credit = order.Quantity, cost
	}

	bal := s.balances[from]
	if bal == nil || bal.Free < debit {
		return false
	}

	bal.Free -= debit

	if _, ok := s.balances[to]; !ok {
		s.balances[to] = &Balance{Asset: to, Free: 0, Locked: 0}
	}

	s.balances[to].Free += credit

	return true
}

// handleGetOrder handles GET /api/v3/order
func (s *MockBinanceServer) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(r.URL.Query().Get("orderId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, -1102, "Mandatory parameter 'orderId' was not sent.")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok || order.Symbol != r.URL.Query().Get("symbol") {
		writeError(w, http.StatusBadRequest, -2013, "Order does not exist.")

		return
	}

	if order.Status == OrderStatusNew {
		order.polls++
		if order.polls > s.pendingPolls {
			order.Status = OrderStatusFilled
			order.UpdatedAt = time.Now()
		}
	}

	writeJSON(w, s.orderResponse(order))
}

func (s *MockBinanceServer) orderResponse(order *Order) map[string]any {
	executed := 0.0
	if order.Status == OrderStatusFilled {
		executed = order.Quantity
	}

	return map[string]any{
		"symbol":              order.Symbol,
		"orderId":             order.OrderID,
		"clientOrderId":       order.ClientOrderID,
		"transactTime":        order.CreatedAt.UnixMilli(),
		"price":               "0.00000000",
		"origQty":             formatFloat(order.Quantity),
		"executedQty":         formatFloat(executed),
		"cummulativeQuoteQty": formatFloat(executed * order.Price),
		"status":              string(order.Status),
		"timeInForce":         "GTC",
		"type":                "MARKET",
		"side":                order.Side,
		"time":                order.CreatedAt.UnixMilli(),
		"updateTime":          order.UpdatedAt.UnixMilli(),
		"isWorking":           order.Status == OrderStatusNew,
	}
}

// splitSymbol returns the base and quote assets of a symbol like BTCUSDT.
func splitSymbol(symbol string) (string, string) {
	for _, quote := range []string{"USDT", "BUSD", "BTC", "ETH", "BNB"} {
		if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
			return strings.TrimSuffix(symbol, quote), quote
		}
	}

	return symbol[:len(symbol)/2], symbol[len(symbol)/2:]
}

func parseMillis(v string, fallback time.Time) time.Time {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}

	return time.UnixMilli(ms)
}

func parseInterval(interval string) time.Duration {
	if len(interval) < 2 {
		return 0
	}

	num, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil {
		return 0
	}

	switch interval[len(interval)-1:] {
	case "s":
		return time.Duration(num) * time.Second
	case "m":
		return time.Duration(num) * time.Minute
	case "h":
		return time.Duration(num) * time.Hour
	case "d":
		return time.Duration(num) * 24 * time.Hour
	case "w":
		return time.Duration(num) * 7 * 24 * time.Hour
	case "M":
		return time.Duration(num) * 30 * 24 * time.Hour
	default:
		return 0
	}
}
