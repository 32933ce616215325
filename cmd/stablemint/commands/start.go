package commands

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stablemint/stablemint/internal/api"
	"github.com/stablemint/stablemint/internal/config"
	"github.com/stablemint/stablemint/internal/engine"
	"github.com/stablemint/stablemint/internal/logging"
	"github.com/stablemint/stablemint/internal/monitoring"
	"github.com/stablemint/stablemint/internal/oracle"
	"github.com/stablemint/stablemint/internal/token"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a stablemint node",
	Long: `Start assembles an engine from the configured collateral set and
serves its HTTP API and Prometheus metrics until interrupted. Tokens and
price feeds are in-process; this is a demo deployment of the engine, not
a chain-connected one.`,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	eng, err := buildEngine(logger, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Monitoring.Enabled {
		exporter := monitoring.NewExporter(logger, monitoring.Config{
			Enabled:    cfg.Monitoring.Enabled,
			ListenAddr: cfg.Monitoring.ListenAddr,
			Namespace:  cfg.Monitoring.Namespace,
		})
		events := eng.Events().Subscribe()
		go func() {
			defer eng.Events().Unsubscribe(events)
			exporter.Watch(ctx, events)
		}()
		if err := exporter.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = exporter.Stop(shutdownCtx)
		}()
	}

	if cfg.API.Enabled {
		server := api.NewServer(logger, api.Config{
			Enabled:    cfg.API.Enabled,
			ListenAddr: cfg.API.ListenAddr,
		}, eng)
		if err := server.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = server.Stop(shutdownCtx)
		}()
	}

	logger.Info("Stablemint started",
		zap.Strings("collateral", eng.RegisteredTokens()),
		zap.String("stablecoin", cfg.Stable.Symbol),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutting down", zap.String("signal", sig.String()))
	return nil
}

// buildEngine assembles tokens, feeds and the engine from configuration.
func buildEngine(logger *zap.Logger, cfg *config.Config) (*engine.Engine, error) {
	tokens := make([]token.Token, 0, len(cfg.Collateral))
	feeds := make([]oracle.PriceFeed, 0, len(cfg.Collateral))

	for _, col := range cfg.Collateral {
		price, ok := new(big.Int).SetString(col.InitialPrice, 10)
		if !ok || price.Sign() <= 0 {
			return nil, fmt.Errorf("collateral %s: bad initial_price %q", col.Symbol, col.InitialPrice)
		}
		feeds = append(feeds, oracle.NewStaticFeed(price, col.FeedDecimals))
		tokens = append(tokens, token.NewMemoryToken(col.Symbol))
	}

	stable := token.NewStableToken(cfg.Stable.Symbol)
	stable.AuthorizeMinter(engine.VaultAccount)

	adapter := oracle.NewAdapter(cfg.Oracle.StaleAfter)
	return engine.New(logger, tokens, feeds, stable, adapter)
}
