package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rxtech-lab/argo-crossover/internal/config"
	"github.com/rxtech-lab/argo-crossover/internal/export"
	"github.com/rxtech-lab/argo-crossover/internal/performance"
	"github.com/rxtech-lab/argo-crossover/internal/version"
	"github.com/rxtech-lab/argo-crossover/pkg/errors"
	"github.com/urfave/cli/v3"
)

// runAction fetches bars, decides and, with --trade, places the order and waits for it.
func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	spinner := newSpinner("Waiting for order")

	s, err := a.strategy(spinner.OnPoll)
	if err != nil {
		return err
	}

	result, err := s.Run(ctx)
	spinner.Finish()

	if err != nil {
		return err
	}

	fmt.Println(renderAnalysis(cfg.Strategy.Symbol, result.Analysis))

	if fill, err := result.Fill.Take(); err == nil {
		fmt.Println(renderFill(fill))
	} else if !cfg.Strategy.Trade {
		fmt.Println(LabelStyle.Render("Dry run: pass --trade to submit orders"))
	}

	return nil
}

// analyzeAction prints the latest rows of the signal series and the decision without trading.
func analyzeAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.strategy(nil)
	if err != nil {
		return err
	}

	bars, err := s.GetData(ctx)
	if err != nil {
		return err
	}

	analysis, err := s.Analyze(ctx, bars)
	if err != nil {
		return err
	}

	fmt.Println(renderSeries(analysis.Series, int(cmd.Int("rows"))))
	fmt.Println(renderAnalysis(cfg.Strategy.Symbol, analysis))

	if path := cmd.String("export"); path != "" {
		if err := export.WriteSeriesCSVFile(path, analysis.Series, performance.CompareReturns(analysis.Series)); err != nil {
			return err
		}

		fmt.Println(LabelStyle.Render("Series written to " + path))
	}

	return nil
}

// evaluateAction marks the recorded fills to the last price and prints the P&L.
func evaluateAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.Ledger.Path == "" {
		return errors.New(errors.ErrCodeMissingParameter, "evaluate needs ledger.path in the configuration")
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.strategy(nil)
	if err != nil {
		return err
	}

	// The paper broker only knows a price once bars were fetched.
	if _, ok := a.provider.(*pricingProvider); ok {
		if _, err := s.GetData(ctx); err != nil {
			return err
		}
	}

	summary, err := s.Performance(ctx)
	if err != nil {
		return err
	}

	fmt.Println(renderSummary(cfg.Strategy.Symbol, summary))

	if path := cmd.String("output"); path != "" {
		if err := export.WriteSummaryYAML(path, summary); err != nil {
			return err
		}

		fmt.Println(LabelStyle.Render("Summary written to " + path))
	}

	return nil
}

func schemaAction(_ context.Context, _ *cli.Command) error {
	schema, err := config.Schema()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "crossover",
		Usage:   "Trade the crossover of a fast and a slow simple moving average",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Sources: cli.EnvVars("CROSSOVER_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to the .env file with credentials",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "symbol",
				Aliases: []string{"s"},
				Usage:   "Symbol to trade, overrides strategy.symbol",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn or error",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Fetch bars, decide and optionally place the order",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "trade",
						Usage: "Submit the order instead of only logging it",
					},
				},
				Action: runAction,
			},
			{
				Name:  "analyze",
				Usage: "Print the latest moving averages and the decision",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "rows",
						Usage: "Number of rows of the series to print",
						Value: 5,
					},
					&cli.StringFlag{
						Name:    "export",
						Aliases: []string{"e"},
						Usage:   "Write the whole series to a CSV file",
					},
				},
				Action: analyzeAction,
			},
			{
				Name:  "evaluate",
				Usage: "Evaluate the P&L of the recorded fills at the current price",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the summary to a YAML file",
					},
				},
				Action: evaluateAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the configuration file",
				Action: schemaAction,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
