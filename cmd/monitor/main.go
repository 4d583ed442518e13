package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"settlementScope/internal/alert"
	"settlementScope/internal/chain"
	"settlementScope/internal/classify"
	"settlementScope/internal/config"
	"settlementScope/internal/orderbook"
	"settlementScope/internal/pipeline"
	"settlementScope/internal/simulate"
	"settlementScope/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "monitor",
		Short:        "Internalized-transfer imbalance monitor",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run <tx-hash>",
		Short: "Process one settlement transaction",
		Args:  cobra.ExactArgs(1),
		RunE:  runPipeline,
	}
	addPipelineFlags(runCmd)
	root.AddCommand(runCmd)

	backfillCmd := &cobra.Command{
		Use:   "backfill",
		Short: "Drain buffered receipts below the confirmation horizon",
		RunE:  runBackfill,
	}
	addPipelineFlags(backfillCmd)
	root.AddCommand(backfillCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "Ethereum RPC URL")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("settlement-contract", config.DefaultSettlementContract, "settlement contract address")
	cmd.Flags().String("weth-address", config.DefaultWETHAddress, "canonical WETH contract address")
	cmd.Flags().String("orderbook-url", orderbook.ProdCompetitionURL, "primary competition endpoint")
	cmd.Flags().String("orderbook-barn-url", orderbook.BarnCompetitionURL, "fallback competition endpoint")
	cmd.Flags().String("simulator", "enso", "simulation backend (enso, tenderly)")
	cmd.Flags().String("enso-url", "", "Enso simulation API URL")
	cmd.Flags().String("enso-access-key", "", "Enso API access key")
	cmd.Flags().String("tenderly-user", "", "Tenderly user")
	cmd.Flags().String("tenderly-project", "", "Tenderly project")
	cmd.Flags().String("tenderly-access-key", "", "Tenderly access key")
	cmd.Flags().String("slack-webhook", "", "Slack webhook URL for alerts")
	cmd.Flags().Int64("confirmation-blocks", pipeline.DefaultConfirmationBlocks, "finality horizon in blocks")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

type components struct {
	cfg         config.Config
	logger      *zap.Logger
	chainClient *chain.Client
	store       *postgres.Store
	coordinator *pipeline.Coordinator
}

func (c *components) Close() {
	if c.store != nil {
		c.store.Close()
	}
	if c.chainClient != nil {
		c.chainClient.Close()
	}
	if c.logger != nil {
		c.logger.Sync()
	}
}

func buildComponents(ctx context.Context, cmd *cobra.Command) (*components, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		chainClient.Close()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	classifier, err := classify.NewClassifier(cfg.SettlementContract, cfg.WETHAddress)
	if err != nil {
		store.Close()
		chainClient.Close()
		return nil, err
	}

	simulator, err := newSimulator(cfg)
	if err != nil {
		store.Close()
		chainClient.Close()
		return nil, err
	}

	coordinator, err := pipeline.NewCoordinator(pipeline.Config{
		SettlementContract: cfg.SettlementContract,
		ConfirmationBlocks: cfg.ConfirmationBlocks,
	}, pipeline.Deps{
		Classifier:   classifier,
		Store:        store,
		Competition:  orderbook.NewClient(cfg.OrderbookURL, cfg.OrderbookBarnURL, logger),
		Orchestrator: simulate.NewOrchestrator(simulator, logger),
		Receipts:     chainClient,
		Notifier:     alert.NewSlackNotifier(cfg.SlackWebhook, logger),
		Logger:       logger,
	})
	if err != nil {
		store.Close()
		chainClient.Close()
		return nil, err
	}

	return &components{
		cfg:         cfg,
		logger:      logger,
		chainClient: chainClient,
		store:       store,
		coordinator: coordinator,
	}, nil
}

func newSimulator(cfg config.Config) (simulate.Simulator, error) {
	switch cfg.Simulator {
	case "enso":
		if cfg.EnsoURL == "" {
			return nil, fmt.Errorf("enso url is required")
		}
		return simulate.NewEnsoSimulator(cfg.EnsoURL, cfg.EnsoAccessKey), nil
	case "tenderly":
		if cfg.TenderlyUser == "" || cfg.TenderlyProject == "" || cfg.TenderlyAccessKey == "" {
			return nil, fmt.Errorf("tenderly user, project and access key are required")
		}
		return simulate.NewTenderlySimulator(cfg.TenderlyUser, cfg.TenderlyProject, cfg.TenderlyAccessKey), nil
	default:
		return nil, fmt.Errorf("unsupported simulator: %s", cfg.Simulator)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
