package main

import (
	"context"

	"github.com/rxtech-lab/argo-crossover/internal/broker"
	"github.com/rxtech-lab/argo-crossover/internal/config"
	"github.com/rxtech-lab/argo-crossover/internal/ledger"
	"github.com/rxtech-lab/argo-crossover/internal/logger"
	"github.com/rxtech-lab/argo-crossover/internal/marketdata"
	"github.com/rxtech-lab/argo-crossover/internal/strategy"
	"github.com/rxtech-lab/argo-crossover/internal/types"
	"github.com/rxtech-lab/argo-crossover/pkg/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// app holds the collaborators built from the configuration for one command.
type app struct {
	config   config.Config
	log      *logger.Logger
	provider marketdata.Provider
	broker   broker.Broker
	ledger   ledger.Ledger
}

// loadConfig reads the configuration and applies the command-line overrides.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.String("config"), cmd.String("env-file"))
	if err != nil {
		return config.Config{}, err
	}

	if symbol := cmd.String("symbol"); symbol != "" {
		cfg.Strategy.Symbol = symbol
	}

	if level := cmd.String("log-level"); level != "" {
		cfg.LogLevel = level
	}

	if cmd.Bool("trade") {
		cfg.Strategy.Trade = true
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}

// newApp builds and connects the collaborators of cfg. Close must be called when done.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	log, err := logger.NewLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	provider, err := marketdata.NewProvider(marketdata.ProviderType(cfg.MarketData.Provider), marketdata.ProviderConfig{
		PolygonAPIKey:  cfg.MarketData.PolygonAPIKey,
		BinanceBaseURL: cfg.MarketData.BaseURL,
		CSVPath:        cfg.MarketData.CSVPath,
	})
	if err != nil {
		return nil, err
	}

	a := &app{
		config:   cfg,
		log:      log,
		provider: provider,
		broker:   nil,
		ledger:   nil,
	}

	if cfg.Ledger.Path != "" {
		l, err := ledger.Open(cfg.Ledger.Path, log)
		if err != nil {
			return nil, err
		}

		a.ledger = l
	}

	if err := a.connect(ctx); err != nil {
		a.Close()

		return nil, err
	}

	return a, nil
}

// connect builds the configured broker and opens its session.
func (a *app) connect(ctx context.Context) error {
	switch broker.BrokerType(a.config.Broker.Type) {
	case broker.BrokerPaper:
		paper := broker.NewPaperBroker(a.log)

		// The paper account lives in memory, so the position is rebuilt from recorded fills
		// and every fetch of bars marks the price.
		if err := a.restorePaperPosition(ctx, paper); err != nil {
			return err
		}

		a.provider = &pricingProvider{Provider: a.provider, paper: paper}
		a.broker = paper
	case broker.BrokerBinance:
		endpoint := a.config.Broker.Endpoint()
		a.log.Info("Connecting to broker",
			zap.String("mode", string(endpoint.Mode)),
			zap.String("base_url", endpoint.BaseURL),
			zap.Int("client_id", endpoint.ClientID),
		)

		b, err := broker.NewBinanceBroker(broker.BinanceConfig{
			APIKey:    endpoint.APIKey,
			SecretKey: endpoint.SecretKey,
			BaseURL:   endpoint.BaseURL,
			BaseAsset: a.config.Broker.BaseAsset,
		}, a.log)
		if err != nil {
			return err
		}

		a.broker = b
	default:
		return errors.Newf(errors.ErrCodeUnsupportedBroker, "unsupported broker: %s", a.config.Broker.Type)
	}

	return a.broker.Connect(ctx)
}

func (a *app) restorePaperPosition(ctx context.Context, paper *broker.PaperBroker) error {
	if a.ledger == nil {
		return nil
	}

	fills, err := a.ledger.Fills(ctx, a.config.Strategy.Symbol)
	if err != nil {
		return err
	}

	paper.SetPosition(a.config.Strategy.Symbol, netPosition(fills))

	return nil
}

// strategy builds the crossover strategy. onPoll is called while an order is pending.
func (a *app) strategy(onPoll func(broker.OrderState)) (*strategy.MovingAverageStrategy, error) {
	wait := broker.DefaultWaitOptions()
	wait.OnPoll = onPoll

	return strategy.NewMovingAverageStrategy(strategyConfig(a.config.Strategy, wait), a.provider, a.broker, a.ledger, a.log)
}

// Close disconnects the broker and closes the ledger.
func (a *app) Close() {
	if a.broker != nil {
		spinner := newSpinner("Disconnecting")
		if err := a.broker.Disconnect(); err != nil {
			a.log.Warn("Failed to disconnect", zap.Error(err))
		}
		spinner.Finish()
	}

	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			a.log.Warn("Failed to close ledger", zap.Error(err))
		}
	}

	_ = a.log.Sync()
}

func strategyConfig(cfg config.StrategyConfig, wait broker.WaitOptions) strategy.Config {
	return strategy.Config{
		Symbol:     cfg.Symbol,
		FastPeriod: cfg.FastPeriod,
		SlowPeriod: cfg.SlowPeriod,
		Quantity:   cfg.Quantity,
		Duration:   cfg.Duration,
		BarSize:    marketdata.BarSize(cfg.BarSize),
		DataType:   marketdata.DataType(cfg.DataType),
		Trade:      cfg.Trade,
		Wait:       wait,
	}
}

// netPosition is the quantity bought minus the quantity sold across fills.
func netPosition(fills []types.Fill) float64 {
	position := 0.0

	for _, fill := range fills {
		switch fill.Action {
		case types.ActionBuy:
			position += float64(fill.Quantity)
		case types.ActionSell:
			position -= float64(fill.Quantity)
		}
	}

	return position
}

// pricingProvider marks the paper broker at the last close of every batch of bars.
type pricingProvider struct {
	marketdata.Provider
	paper *broker.PaperBroker
}

func (p *pricingProvider) Bars(ctx context.Context, q marketdata.Query) ([]types.Bar, error) {
	bars, err := p.Provider.Bars(ctx, q)
	if err != nil {
		return nil, err
	}

	if len(bars) > 0 {
		p.paper.SetPrice(q.Symbol, bars[len(bars)-1].Close)
	}

	return bars, nil
}
