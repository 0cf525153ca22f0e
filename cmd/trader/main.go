package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/argo-decision/internal/combiner"
	"github.com/rxtech-lab/argo-decision/internal/engine"
	"github.com/rxtech-lab/argo-decision/internal/feed"
	"github.com/rxtech-lab/argo-decision/internal/history"
	"github.com/rxtech-lab/argo-decision/internal/logger"
	"github.com/rxtech-lab/argo-decision/internal/regime"
	"github.com/rxtech-lab/argo-decision/internal/risk"
	"github.com/rxtech-lab/argo-decision/internal/server"
	"github.com/rxtech-lab/argo-decision/internal/trader"
	"github.com/rxtech-lab/argo-decision/pkg/errors"
)

func runAction(ctx context.Context, cmd *cli.Command) error {
	config, err := trader.LoadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	l, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer l.Sync() //nolint:errcheck // best-effort flush on shutdown

	market, err := buildMarketSource(config)
	if err != nil {
		return err
	}

	broker := feed.NewPaperBroker(config.InitialEquity, l)
	detector := regime.NewDetector(l)
	riskEngine := risk.NewEngine(config.MaxRiskPerTrade, config.MaxLeverage, l)

	sentimentEngine := engine.NewSentimentEngine(feed.NewAlternativeMeFetcher(config.OnChainEndpoint), l)

	providers := []engine.FactorProvider{
		engine.NewTechnicalEngine(l),
		engine.NewOrderFlowEngine(feed.NewBinanceOrderFlowFetcher(), config.Symbol, l),
		sentimentEngine,
	}

	var macroEngine *engine.MacroEngine

	if config.MacroEndpoint != "" {
		macroFetcher, err := feed.NewHTTPMacroFetcher(config.MacroEndpoint)
		if err != nil {
			return err
		}

		macroEngine = engine.NewMacroEngine(macroFetcher, l)
		providers = append(providers, macroEngine)
	}

	var macroVeto combiner.MacroVeto
	if macroEngine != nil {
		macroVeto = macroEngine
	}

	fusion, err := combiner.NewCombiner(config.Weights, providers, macroVeto, config.EngineTimeout(), l)
	if err != nil {
		return err
	}

	deps := trader.Dependencies{
		Market:    market,
		Account:   broker,
		Executor:  broker,
		Detector:  detector,
		Combiner:  fusion,
		Risk:      riskEngine,
		Sentiment: sentimentEngine,
	}
	if macroEngine != nil {
		deps.Macro = macroEngine
	}

	var recorder *history.Recorder

	if config.HistoryPath != "" {
		recorder, err = history.NewRecorder(config.HistoryPath, l)
		if err != nil {
			return err
		}
		defer recorder.Close()

		deps.Recorder = recorder
	}

	loop := trader.New(config, deps, l)

	if config.ListenAddr != "" {
		var decisions server.DecisionSource
		if recorder != nil {
			decisions = recorder
		}

		api := server.New(config.Symbol, loop, detector, riskEngine, decisions, l)
		if err := api.Start(config.ListenAddr); err != nil {
			return fmt.Errorf("failed to start status API: %w", err)
		}

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := api.Stop(shutdownCtx); err != nil {
				log.Printf("status API shutdown error: %v", err)
			}
		}()
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return loop.Run(runCtx)
}

func buildMarketSource(config trader.Config) (feed.MarketDataSource, error) {
	switch config.Provider {
	case trader.ProviderPolygon:
		return feed.NewPolygonMarketSource(config.PolygonAPIKey, config.Symbol)
	case trader.ProviderBinance, trader.ProviderPaper:
		// The paper provider trades against live public Binance data.
		return feed.NewBinanceMarketSource(config.Symbol, config.Interval), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unknown provider %q", config.Provider)
	}
}

func schemaAction(_ context.Context, _ *cli.Command) error {
	schema, err := trader.GenerateSchema()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "argo-decision",
		Usage: "Multi-factor trading decision engine",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the decision loop",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the YAML configuration file",
						Required: true,
					},
				},
				Action: runAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema for the configuration file",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
