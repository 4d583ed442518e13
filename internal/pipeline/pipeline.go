package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"settlementScope/internal/classify"
	"settlementScope/internal/imbalance"
	"settlementScope/internal/model"
	"settlementScope/internal/simulate"
	"settlementScope/internal/storage"
)

// DefaultConfirmationBlocks is the finality horizon for buffered receipts.
// The backend services assume 64 blocks for finalization; we use a little
// more to assume competition-data availability.
const DefaultConfirmationBlocks = 70

// CompetitionSource returns the winning solver's submission for a settled
// transaction hash.
type CompetitionSource interface {
	GetWinningSettlement(ctx context.Context, txHash string) (model.WinningSettlementData, error)
}

// ReceiptSource fetches mined transactions in the pipeline's input shape.
type ReceiptSource interface {
	TxData(ctx context.Context, txHash string) (model.MinimalTxData, error)
}

// Notifier pushes operational alerts.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Config holds the coordinator's static settings.
type Config struct {
	SettlementContract string
	ConfirmationBlocks int64
}

// Deps are the coordinator's collaborators. Receipts and Notifier are
// optional; without Receipts the reorg guard and receipt buffering are
// skipped, without Notifier alerts only go to the log.
type Deps struct {
	Classifier   *classify.Classifier
	Store        storage.Store
	Competition  CompetitionSource
	Orchestrator *simulate.Orchestrator
	Receipts     ReceiptSource
	Notifier     Notifier
	Logger       *zap.Logger
}

// Coordinator runs the per-transaction imbalance pipeline: dedup check,
// classification, competition lookup, dual simulation, imbalance diff and
// atomic persistence.
type Coordinator struct {
	cfg  Config
	deps Deps
}

func NewCoordinator(cfg Config, deps Deps) (*Coordinator, error) {
	if cfg.SettlementContract == "" {
		return nil, fmt.Errorf("settlement contract address is required")
	}
	if deps.Classifier == nil || deps.Store == nil || deps.Competition == nil || deps.Orchestrator == nil {
		return nil, fmt.Errorf("classifier, store, competition source and orchestrator are required")
	}
	if cfg.ConfirmationBlocks <= 0 {
		cfg.ConfirmationBlocks = DefaultConfirmationBlocks
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	cfg.SettlementContract = strings.ToLower(cfg.SettlementContract)
	return &Coordinator{cfg: cfg, deps: deps}, nil
}

// Prepare buffers a fresh settlement receipt and returns every buffered
// receipt old enough to be processed. Receipts without trade events (e.g.
// fee withdrawals) are not buffered.
func (c *Coordinator) Prepare(ctx context.Context, txHash string) ([]model.MinimalTxData, error) {
	if c.deps.Receipts == nil {
		return nil, fmt.Errorf("receipt source is not configured")
	}

	txData, err := c.deps.Receipts.TxData(ctx, txHash)
	if err != nil {
		return nil, err
	}

	events := c.deps.Classifier.Classify(txData.Logs)
	if len(events.Trades) > 0 {
		if err := c.deps.Store.InsertTxReceipt(ctx, txData); err != nil {
			return nil, fmt.Errorf("buffer receipt: %w", err)
		}
	} else {
		c.deps.Logger.Info("no trades in batch", zap.String("tx_hash", txHash))
	}

	return c.deps.Store.UnprocessedReceipts(ctx, txData.BlockNumber-c.cfg.ConfirmationBlocks)
}

// Process runs the full pipeline for one transaction. Settlements in the
// same transaction are processed independently: a failure on one is logged
// and alerted but never blocks the others.
func (c *Coordinator) Process(ctx context.Context, txData model.MinimalTxData) error {
	logger := c.deps.Logger.With(zap.String("tx_hash", txData.Hash))
	logger.Info("processing settlement transaction")

	exists, err := c.deps.Store.RecordExists(ctx, txData.Hash)
	if err != nil {
		return fmt.Errorf("dedup check: %w", err)
	}
	if exists {
		logger.Warn("event record exists, skipping")
		return c.markProcessed(ctx, txData.Hash)
	}

	events := c.deps.Classifier.Classify(txData.Logs)
	if len(events.Settlements) == 0 {
		logger.Info("no settlement events in transaction")
		return c.markProcessed(ctx, txData.Hash)
	}

	// Multiple settlements in one transaction are rare but legitimate.
	for _, settlement := range events.Settlements {
		if err := c.processSettlement(ctx, txData, settlement); err != nil {
			logger.Error("settlement processing failed",
				zap.Int("log_index", settlement.LogIndex),
				zap.Error(err),
			)
			c.alert(ctx, fmt.Sprintf("settlement pipeline failed for %s (log %d): %v", txData.Hash, settlement.LogIndex, err))
		}
	}

	return nil
}

func (c *Coordinator) processSettlement(ctx context.Context, txData model.MinimalTxData, settlement model.SettlementEvent) error {
	logger := c.deps.Logger.With(zap.String("tx_hash", txData.Hash), zap.Int("log_index", settlement.LogIndex))
	meta := model.EventMeta{TxHash: txData.Hash, BlockNumber: txData.BlockNumber}

	competition, err := c.deps.Competition.GetWinningSettlement(ctx, txData.Hash)
	if err != nil {
		return c.handleSimulationFailure(ctx, txData, meta, settlement, err)
	}

	if !competition.Internalized() {
		// Nothing was removed before submission, so there is nothing to
		// simulate and no imbalance.
		logger.Info("batch was not internalized")
		return c.ignoreDuplicate(c.deps.Store.InsertSettlement(ctx, meta, settlement), logger)
	}

	pair, err := c.deps.Orchestrator.SimulateBoth(ctx, simulate.Request{
		FullCallData:    competition.FullCallData,
		ReducedCallData: competition.ReducedCallData,
		ContractAddress: c.cfg.SettlementContract,
		Sender:          strings.ToLower(txData.From),
		Value:           "0",
		StartBlock:      competition.SimulationBlock,
		MaxAttempts:     simulate.AttemptBudget(txData.BlockNumber, competition.SimulationBlock),
	})
	if err != nil {
		return c.handleSimulationFailure(ctx, txData, meta, settlement, err)
	}

	imbalances := c.internalizedImbalance(pair)
	logger.Info("computed internalized imbalances", zap.Int("tokens", len(imbalances)))

	return c.ignoreDuplicate(c.deps.Store.InsertPipelineResults(ctx, storage.PipelineResults{
		WinningSettlement: competition,
		Full:              pair.Full,
		Reduced:           pair.Reduced,
		Imbalances:        imbalances,
		EventMeta:         meta,
		SettlementEvent:   settlement,
	}), logger)
}

// internalizedImbalance classifies each simulation's logs, aggregates the
// transfers relative to the settlement contract and diffs full against
// reduced.
func (c *Coordinator) internalizedImbalance(pair simulate.Pair) []model.TokenImbalance {
	fullEvents := c.deps.Classifier.Classify(pair.Full.Logs)
	reducedEvents := c.deps.Classifier.Classify(pair.Reduced.Logs)

	fullMap := imbalance.FromSimulation(fullEvents.Transfers, pair.Full, c.cfg.SettlementContract)
	reducedMap := imbalance.FromSimulation(reducedEvents.Transfers, pair.Reduced, c.cfg.SettlementContract)

	return imbalance.Diff(fullMap, reducedMap)
}

// handleSimulationFailure distinguishes a forked-away block from a genuine
// failure. A re-fetched receipt with no logs means the block was reorged:
// record the settlement with no imbalances and move on.
func (c *Coordinator) handleSimulationFailure(ctx context.Context, txData model.MinimalTxData, meta model.EventMeta, settlement model.SettlementEvent, cause error) error {
	if c.deps.Receipts == nil {
		return cause
	}

	refetched, err := c.deps.Receipts.TxData(ctx, txData.Hash)
	if err != nil {
		return errors.Join(cause, err)
	}
	if len(refetched.Logs) > 0 {
		return cause
	}

	c.deps.Logger.Warn("block appears forked, assuming no internalized transfers",
		zap.String("tx_hash", txData.Hash),
		zap.Error(cause),
	)
	return c.ignoreDuplicate(c.deps.Store.InsertSettlement(ctx, meta, settlement), c.deps.Logger)
}

// ignoreDuplicate treats a storage uniqueness violation as a no-op success:
// a racing trigger already recorded this settlement.
func (c *Coordinator) ignoreDuplicate(err error, logger *zap.Logger) error {
	if errors.Is(err, storage.ErrDuplicateRecord) {
		logger.Info("record already written by concurrent trigger")
		return nil
	}
	return err
}

func (c *Coordinator) markProcessed(ctx context.Context, txHash string) error {
	return c.deps.Store.MarkReceiptProcessed(ctx, txHash)
}

func (c *Coordinator) alert(ctx context.Context, message string) {
	if c.deps.Notifier == nil {
		return
	}
	if err := c.deps.Notifier.Notify(ctx, message); err != nil {
		c.deps.Logger.Warn("alert delivery failed", zap.Error(err))
	}
}
