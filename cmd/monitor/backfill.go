package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func runBackfill(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comp, err := buildComponents(ctx, cmd)
	if err != nil {
		return err
	}
	defer comp.Close()

	latest, err := comp.chainClient.LatestBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("get latest block: %w", err)
	}

	horizon := int64(latest) - comp.cfg.ConfirmationBlocks
	receipts, err := comp.store.UnprocessedReceipts(ctx, horizon)
	if err != nil {
		return fmt.Errorf("load unprocessed receipts: %w", err)
	}

	comp.logger.Info("backfill start",
		zap.Int64("horizon", horizon),
		zap.Int("receipts", len(receipts)),
	)

	for _, receipt := range receipts {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := comp.coordinator.Process(ctx, receipt); err != nil {
			return err
		}
	}

	comp.logger.Info("backfill complete", zap.Int("receipts", len(receipts)))
	return nil
}
