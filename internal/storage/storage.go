package storage

import (
	"context"
	"errors"

	"settlementScope/internal/model"
)

// ErrDuplicateRecord surfaces a uniqueness violation on concurrent double
// processing of the same transaction. Callers treat it as a no-op success.
var ErrDuplicateRecord = errors.New("record already exists")

// PipelineResults is everything one settlement produces. It is persisted
// atomically: imbalances, both simulation artifacts and the settlement
// event succeed or fail together.
type PipelineResults struct {
	WinningSettlement model.WinningSettlementData
	Full              model.SimulationData
	Reduced           model.SimulationData
	Imbalances        []model.TokenImbalance
	EventMeta         model.EventMeta
	SettlementEvent   model.SettlementEvent
}

// Store defines the persistence boundary of the pipeline. Uniqueness on
// transaction hash at the storage layer is the true dedup guard; the
// pipeline's RecordExists check is only an optimization.
type Store interface {
	RecordExists(ctx context.Context, txHash string) (bool, error)
	InsertPipelineResults(ctx context.Context, results PipelineResults) error
	// InsertSettlement records a settlement that produced no imbalances and
	// marks its receipt processed.
	InsertSettlement(ctx context.Context, meta model.EventMeta, event model.SettlementEvent) error
	InsertTxReceipt(ctx context.Context, tx model.MinimalTxData) error
	UnprocessedReceipts(ctx context.Context, beforeBlock int64) ([]model.MinimalTxData, error)
	MarkReceiptProcessed(ctx context.Context, txHash string) error
}
