package simulate

import (
	"context"
	"math/big"

	"settlementScope/internal/model"
)

// GasLimit is the gas budget handed to simulation vendors. Settlements fit
// comfortably below it.
const GasLimit = 10_000_000

// Params describes one simulated execution: callData sent from Sender to
// ContractAddress with Value, executed against the state at BlockNumber.
type Params struct {
	ContractAddress string
	Sender          string
	CallData        string
	Value           string
	BlockNumber     int64
}

// Simulator executes call data against historical chain state and returns
// the emitted logs, gas usage and native-asset balance deltas.
type Simulator interface {
	Simulate(ctx context.Context, params Params) (model.SimulationData, error)
}

// NullSimulation is the placeholder returned when every simulation attempt
// failed. The -1 block number distinguishes it from a genuine empty result.
func NullSimulation() model.SimulationData {
	return model.SimulationData{
		BlockNumber: -1,
		GasUsed:     0,
		Logs:        []model.EventLog{},
		EthDelta:    map[string]*big.Int{},
	}
}
