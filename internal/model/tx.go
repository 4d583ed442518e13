package model

// MinimalTxData is the projection of a mined transaction receipt needed for
// imbalance accounting. It is deliberately decoupled from any chain-client
// or simulation-vendor receipt representation so the pipeline has a single
// canonical input shape.
type MinimalTxData struct {
	BlockNumber int64      `json:"block_number"`
	From        string     `json:"from"`
	Hash        string     `json:"hash"`
	Logs        []EventLog `json:"logs"`
}
