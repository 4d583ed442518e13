package model

import "math/big"

// EventLog is the undecoded unit of event data consumed by the classifier.
// Addresses, topics and data are 0x-prefixed hex strings.
type EventLog struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

// TransferEvent is a decoded token transfer. WETH deposits and withdrawals
// are synthesized into this shape with the zero address on the minted or
// burned side. Addresses are lower-cased on construction.
type TransferEvent struct {
	Token  string   `json:"token"`
	From   string   `json:"from"`
	To     string   `json:"to"`
	Amount *big.Int `json:"amount"`
}

// TradeEvent marks that a user order was matched in a settlement. Only the
// owner is needed, for batch classification.
type TradeEvent struct {
	Owner string `json:"owner"`
}

// SettlementEvent is one Settlement emission inside a transaction. LogIndex
// is the log's position within the full receipt log list, so the last
// settlement of a batch can be located deterministically.
type SettlementEvent struct {
	Solver   string `json:"solver"`
	LogIndex int    `json:"log_index"`
}

// EventMeta ties persisted records back to their transaction.
type EventMeta struct {
	TxHash      string `json:"tx_hash"`
	BlockNumber int64  `json:"block_number"`
}

// TokenImbalance is one signed per-token entry of an imbalance diff.
type TokenImbalance struct {
	Token  string   `json:"token"`
	Amount *big.Int `json:"amount"`
}
