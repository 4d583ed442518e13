package simulate

import (
	"context"

	"go.uber.org/zap"

	"settlementScope/internal/model"
)

// DefaultAttempts is the retry budget used when the competition's
// simulation block is unknown.
const DefaultAttempts = 3

// Request is a dual simulation of the full (pre-internalization) and
// reduced (as-submitted) call-data variants of one settlement.
type Request struct {
	FullCallData    string
	ReducedCallData string
	ContractAddress string
	Sender          string
	Value           string
	StartBlock      int64
	MaxAttempts     int
}

// Pair holds the two comparable simulation results of a Request.
type Pair struct {
	Full    model.SimulationData
	Reduced model.SimulationData
}

// Orchestrator runs both call-data variants of a settlement through a
// simulator, retrying across adjacent blocks.
type Orchestrator struct {
	simulator Simulator
	logger    *zap.Logger
}

func NewOrchestrator(simulator Simulator, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{simulator: simulator, logger: logger}
}

// SimulateBoth simulates both variants at matching block numbers. Attempt i
// runs at StartBlock+i; an attempt succeeds only when both variants do.
// Some blocks fail to simulate while an adjacent one succeeds, and nothing
// material changes block-to-block for this accounting, so each failed
// attempt moves one block forward. When the whole budget is exhausted both
// variants degrade to the null simulation: total simulation failure tracks
// reorg and availability issues, not a real accounting signal.
func (o *Orchestrator) SimulateBoth(ctx context.Context, req Request) (Pair, error) {
	attempts := req.MaxAttempts
	if attempts < 1 {
		attempts = DefaultAttempts
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Pair{}, err
		}

		block := req.StartBlock + int64(attempt)
		pair, err := o.simulatePairAt(ctx, req, block)
		if err == nil {
			return pair, nil
		}
		o.logger.Warn("simulation attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Int64("block", block),
			zap.Error(err),
		)
	}

	o.logger.Warn("all simulation attempts failed, assuming no internalized transfers",
		zap.Int("attempts", attempts),
		zap.Int64("start_block", req.StartBlock),
	)
	return Pair{Full: NullSimulation(), Reduced: NullSimulation()}, nil
}

func (o *Orchestrator) simulatePairAt(ctx context.Context, req Request, block int64) (Pair, error) {
	common := Params{
		ContractAddress: req.ContractAddress,
		Sender:          req.Sender,
		Value:           req.Value,
		BlockNumber:     block,
	}

	full := common
	full.CallData = req.FullCallData
	fullResult, err := o.simulator.Simulate(ctx, full)
	if err != nil {
		return Pair{}, err
	}

	reduced := common
	reduced.CallData = req.ReducedCallData
	reducedResult, err := o.simulator.Simulate(ctx, reduced)
	if err != nil {
		return Pair{}, err
	}

	return Pair{Full: fullResult, Reduced: reducedResult}, nil
}

// AttemptBudget derives the retry budget from the distance between the
// transaction's mined block and the competition's claimed simulation block.
// Unknown simulation blocks fall back to DefaultAttempts.
func AttemptBudget(txBlock, simulationBlock int64) int {
	if simulationBlock <= 0 {
		return DefaultAttempts
	}
	budget := txBlock - simulationBlock + 1
	if budget < 1 {
		return 1
	}
	return int(budget)
}
