package postgres

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"settlementScope/internal/model"
	"settlementScope/internal/storage"
)

// Store provides Postgres persistence for settlement events, internalized
// imbalances and simulation artifacts. The settlements table is
// uniqueness-constrained on (tx_hash, log_index) so racing duplicate
// inserts fail loudly instead of double counting.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// RecordExists reports whether a settlement row exists for the hash.
func (s *Store) RecordExists(ctx context.Context, txHash string) (bool, error) {
	hash, err := hexToBytes(txHash)
	if err != nil {
		return false, err
	}

	var exists bool
	row := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM settlements WHERE tx_hash = $1)`, hash)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// InsertPipelineResults writes imbalances, both simulation artifacts and
// the settlement event in one transaction, then marks the receipt
// processed. Partial writes are never observable.
func (s *Store) InsertPipelineResults(ctx context.Context, results storage.PipelineResults) error {
	txHash, err := hexToBytes(results.EventMeta.TxHash)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, imbalance := range results.Imbalances {
		token, err := hexToBytes(imbalance.Token)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO internalized_imbalances (tx_hash, token, amount)
			VALUES ($1, $2, $3)
		`, txHash, token, imbalance.Amount.String())
	}

	br := tx.SendBatch(ctx, batch)
	for range results.Imbalances {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return wrapDuplicate(err)
		}
	}
	if err := br.Close(); err != nil {
		return wrapDuplicate(err)
	}

	fullJSON, err := json.Marshal(results.Full)
	if err != nil {
		return fmt.Errorf("marshal full simulation: %w", err)
	}
	reducedJSON, err := json.Marshal(results.Reduced)
	if err != nil {
		return fmt.Errorf("marshal reduced simulation: %w", err)
	}
	winningJSON, err := json.Marshal(results.WinningSettlement)
	if err != nil {
		return fmt.Errorf("marshal winning settlement: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO settlement_simulations (tx_hash, complete, reduced, winning_settlement)
		VALUES ($1, $2, $3, $4)
	`, txHash, fullJSON, reducedJSON, winningJSON); err != nil {
		return wrapDuplicate(err)
	}

	if err := insertSettlementEvent(ctx, tx, results.EventMeta, results.SettlementEvent); err != nil {
		return err
	}
	if err := markProcessed(ctx, tx, txHash); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// InsertSettlement records a settlement without imbalances (nothing was
// internalized, or the block was forked away) and marks the receipt
// processed.
func (s *Store) InsertSettlement(ctx context.Context, meta model.EventMeta, event model.SettlementEvent) error {
	txHash, err := hexToBytes(meta.TxHash)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := insertSettlementEvent(ctx, tx, meta, event); err != nil {
		return err
	}
	if err := markProcessed(ctx, tx, txHash); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// InsertTxReceipt buffers a receipt for later processing. Re-inserting the
// same hash is a no-op.
func (s *Store) InsertTxReceipt(ctx context.Context, txData model.MinimalTxData) error {
	hash, err := hexToBytes(txData.Hash)
	if err != nil {
		return err
	}
	data, err := json.Marshal(txData)
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO tx_receipts (hash, block_number, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (hash) DO NOTHING
	`, hash, txData.BlockNumber, data)
	return err
}

// UnprocessedReceipts returns buffered receipts mined strictly before the
// given block, i.e. old enough to be considered final.
func (s *Store) UnprocessedReceipts(ctx context.Context, beforeBlock int64) ([]model.MinimalTxData, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT data FROM tx_receipts
		WHERE processed = false AND block_number < $1
		ORDER BY block_number
	`, beforeBlock)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var receipts []model.MinimalTxData
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var receipt model.MinimalTxData
		if err := json.Unmarshal(data, &receipt); err != nil {
			return nil, fmt.Errorf("unmarshal receipt: %w", err)
		}
		receipts = append(receipts, receipt)
	}
	return receipts, rows.Err()
}

// MarkReceiptProcessed flags a buffered receipt as handled.
func (s *Store) MarkReceiptProcessed(ctx context.Context, txHash string) error {
	hash, err := hexToBytes(txHash)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `UPDATE tx_receipts SET processed = true WHERE hash = $1`, hash)
	return err
}

func insertSettlementEvent(ctx context.Context, tx pgx.Tx, meta model.EventMeta, event model.SettlementEvent) error {
	txHash, err := hexToBytes(meta.TxHash)
	if err != nil {
		return err
	}
	solver, err := hexToBytes(event.Solver)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO settlements (tx_hash, solver, block_number, log_index)
		VALUES ($1, $2, $3, $4)
	`, txHash, solver, meta.BlockNumber, event.LogIndex); err != nil {
		return wrapDuplicate(err)
	}
	return nil
}

func markProcessed(ctx context.Context, tx pgx.Tx, hash []byte) error {
	_, err := tx.Exec(ctx, `UPDATE tx_receipts SET processed = true WHERE hash = $1`, hash)
	return err
}

func wrapDuplicate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", storage.ErrDuplicateRecord, pgErr.ConstraintName)
	}
	return err
}

func hexToBytes(value string) ([]byte, error) {
	trimmed := strings.TrimPrefix(strings.ToLower(value), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid hex value %q: %w", value, err)
	}
	return decoded, nil
}
