package imbalance

import (
	"math/big"
	"strings"

	"settlementScope/internal/model"
)

// ETHToken is the pseudo-token key used to account native-asset deltas
// alongside token transfers.
const ETHToken = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

// Map accumulates signed per-token amounts, keyed by lower-cased token
// address. Built fresh per computation and never shared.
type Map map[string]*big.Int

// AggregateTransfers reduces transfers into a per-token net amount relative
// to the focal account: incoming adds, outgoing subtracts, anything not
// touching the focal account is skipped. Entries that net to zero are kept
// at this stage; zero suppression happens at diff time.
func AggregateTransfers(transfers []model.TransferEvent, focalAccount string) Map {
	focalAccount = strings.ToLower(focalAccount)
	accumulator := make(Map)

	for _, transfer := range transfers {
		token := strings.ToLower(transfer.Token)
		to := strings.ToLower(transfer.To)
		from := strings.ToLower(transfer.From)

		switch focalAccount {
		case to:
			add(accumulator, token, transfer.Amount)
		case from:
			sub(accumulator, token, transfer.Amount)
		}
	}

	return accumulator
}

// FromSimulation builds the imbalance map for one simulation variant: the
// aggregate of its classified transfers plus the simulator-reported native
// asset delta for the focal account, folded in under ETHToken when non-zero.
func FromSimulation(transfers []model.TransferEvent, simulation model.SimulationData, focalAccount string) Map {
	focalAccount = strings.ToLower(focalAccount)
	result := AggregateTransfers(transfers, focalAccount)

	if delta, ok := simulation.EthDelta[focalAccount]; ok && delta != nil && delta.Sign() != 0 {
		result[ETHToken] = new(big.Int).Set(delta)
	}

	return result
}

// Diff computes mapA - mapB per token over the union of both key sets,
// dropping zero results. Diff(a, b) is the pointwise negation of Diff(b, a).
// Result order follows map iteration and is not guaranteed.
func Diff(mapA, mapB Map) []model.TokenImbalance {
	keys := make(map[string]struct{}, len(mapA)+len(mapB))
	for token := range mapA {
		keys[token] = struct{}{}
	}
	for token := range mapB {
		keys[token] = struct{}{}
	}

	result := make([]model.TokenImbalance, 0, len(keys))
	for token := range keys {
		difference := new(big.Int).Sub(valueOrZero(mapA, token), valueOrZero(mapB, token))
		if difference.Sign() == 0 {
			// No point in recording zeros.
			continue
		}
		result = append(result, model.TokenImbalance{Token: token, Amount: difference})
	}
	return result
}

func valueOrZero(m Map, token string) *big.Int {
	if value, ok := m[token]; ok && value != nil {
		return value
	}
	return new(big.Int)
}

func add(m Map, token string, amount *big.Int) {
	if amount == nil {
		return
	}
	current, ok := m[token]
	if !ok {
		current = new(big.Int)
	}
	m[token] = new(big.Int).Add(current, amount)
}

func sub(m Map, token string, amount *big.Int) {
	if amount == nil {
		return
	}
	current, ok := m[token]
	if !ok {
		current = new(big.Int)
	}
	m[token] = new(big.Int).Sub(current, amount)
}
