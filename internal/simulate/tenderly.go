package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"settlementScope/internal/model"
)

const tenderlyBaseURL = "https://api.tenderly.co/api"

// TenderlySimulator talks to the hosted Tenderly simulation API.
// Native-asset deltas come from the reported balance diffs.
type TenderlySimulator struct {
	baseURL    string
	user       string
	project    string
	accessKey  string
	httpClient *http.Client
}

func NewTenderlySimulator(user, project, accessKey string) *TenderlySimulator {
	return &TenderlySimulator{
		baseURL:    tenderlyBaseURL,
		user:       user,
		project:    project,
		accessKey:  accessKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type tenderlyRequest struct {
	NetworkID   string `json:"network_id"`
	From        string `json:"from"`
	To          string `json:"to"`
	Input       string `json:"input"`
	BlockNumber int64  `json:"block_number"`
	Gas         uint64 `json:"gas"`
	GasPrice    string `json:"gas_price"`
	Value       string `json:"value"`
	// Saved simulations can be referred back to by ID later.
	SaveIfFails bool `json:"save_if_fails"`
	Save        bool `json:"save"`
}

type tenderlyResponse struct {
	Transaction struct {
		Hash            string `json:"hash"`
		TransactionInfo struct {
			BlockNumber int64 `json:"block_number"`
			Logs        []struct {
				Raw model.EventLog `json:"raw"`
			} `json:"logs"`
			BalanceDiff []tenderlyBalanceDiff `json:"balance_diff"`
		} `json:"transaction_info"`
	} `json:"transaction"`
	Simulation struct {
		ID      string `json:"id"`
		GasUsed uint64 `json:"gas_used"`
	} `json:"simulation"`
}

type tenderlyBalanceDiff struct {
	Address  string          `json:"address"`
	Original json.RawMessage `json:"original"`
	Dirty    json.RawMessage `json:"dirty"`
}

// Simulate runs the call data at the requested block.
func (s *TenderlySimulator) Simulate(ctx context.Context, params Params) (model.SimulationData, error) {
	body, err := json.Marshal(tenderlyRequest{
		NetworkID:   "1",
		From:        params.Sender,
		To:          params.ContractAddress,
		Input:       params.CallData,
		BlockNumber: params.BlockNumber,
		Gas:         GasLimit,
		GasPrice:    "0",
		Value:       valueOrDefault(params.Value),
		SaveIfFails: true,
		Save:        true,
	})
	if err != nil {
		return model.SimulationData{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/account/%s/project/%s/simulate", s.baseURL, s.user, s.project)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return model.SimulationData{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Access-Key", s.accessKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return model.SimulationData{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.SimulationData{}, fmt.Errorf("tenderly simulation: unexpected status %d", resp.StatusCode)
	}

	var parsed tenderlyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return model.SimulationData{}, fmt.Errorf("decode response: %w", err)
	}

	return parseTenderlySimulation(parsed)
}

func parseTenderlySimulation(parsed tenderlyResponse) (model.SimulationData, error) {
	info := parsed.Transaction.TransactionInfo

	logs := make([]model.EventLog, 0, len(info.Logs))
	for _, entry := range info.Logs {
		logs = append(logs, entry.Raw)
	}

	ethDelta := make(map[string]*big.Int, len(info.BalanceDiff))
	for _, diff := range info.BalanceDiff {
		original, err := bigFromJSON(diff.Original)
		if err != nil {
			return model.SimulationData{}, fmt.Errorf("balance diff for %s: %w", diff.Address, err)
		}
		dirty, err := bigFromJSON(diff.Dirty)
		if err != nil {
			return model.SimulationData{}, fmt.Errorf("balance diff for %s: %w", diff.Address, err)
		}
		ethDelta[strings.ToLower(diff.Address)] = new(big.Int).Sub(dirty, original)
	}

	return model.SimulationData{
		ID:          fmt.Sprintf("tenderly-%s", parsed.Simulation.ID),
		BlockNumber: info.BlockNumber,
		GasUsed:     parsed.Simulation.GasUsed,
		Logs:        logs,
		EthDelta:    ethDelta,
	}, nil
}

// bigFromJSON accepts balances encoded as either JSON numbers or strings.
func bigFromJSON(raw json.RawMessage) (*big.Int, error) {
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if text == "" || text == "null" {
		return new(big.Int), nil
	}
	return parseBigValue(text)
}
