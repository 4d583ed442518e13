package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comp, err := buildComponents(ctx, cmd)
	if err != nil {
		return err
	}
	defer comp.Close()

	txHash := args[0]
	comp.logger.Info("pipeline run", zap.String("tx_hash", txHash))

	ready, err := comp.coordinator.Prepare(ctx, txHash)
	if err != nil {
		return err
	}
	comp.logger.Info("receipts ready for processing", zap.Int("count", len(ready)))

	for _, receipt := range ready {
		if err := comp.coordinator.Process(ctx, receipt); err != nil {
			return err
		}
	}

	return nil
}
