package model

import "math/big"

// SimulationData is the result of one simulated execution.
type SimulationData struct {
	// ID is the vendor-assigned simulation identifier.
	ID string `json:"sim_id"`
	// BlockNumber is the block the simulation ran at, or -1 for the null
	// simulation returned when every attempt failed.
	BlockNumber int64      `json:"block_number"`
	GasUsed     uint64     `json:"gas_used"`
	Logs        []EventLog `json:"logs"`
	// EthDelta maps lower-cased addresses to their signed native-asset
	// balance change.
	EthDelta map[string]*big.Int `json:"eth_delta"`
}

// WinningSettlementData is the winning solver's submission for a settled
// batch, as recorded by the orderbook competition endpoints.
type WinningSettlementData struct {
	// SimulationBlock is the block the solution was simulated at during the
	// competition.
	SimulationBlock int64  `json:"simulation_block"`
	Solver          string `json:"solver"`
	// ReducedCallData is the call data as submitted on-chain, after
	// internalized interactions were removed.
	ReducedCallData string `json:"reduced_call_data"`
	// FullCallData is the pre-internalization call data. Empty means the
	// settlement was not internalized at all and no simulation is needed.
	FullCallData string `json:"full_call_data,omitempty"`
}

// Internalized reports whether any interactions were removed before
// submission.
func (w WinningSettlementData) Internalized() bool {
	return w.FullCallData != ""
}
