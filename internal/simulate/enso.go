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

// EnsoSimulator talks to a self-hosted Enso transaction-simulation API.
// Native-asset deltas are derived from the value-bearing call traces.
type EnsoSimulator struct {
	url        string
	accessKey  string
	httpClient *http.Client
}

func NewEnsoSimulator(url, accessKey string) *EnsoSimulator {
	return &EnsoSimulator{
		url:        url,
		accessKey:  accessKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type ensoRequest struct {
	ChainID     int    `json:"chainId"`
	From        string `json:"from"`
	To          string `json:"to"`
	Data        string `json:"data"`
	GasLimit    uint64 `json:"gasLimit"`
	BlockNumber int64  `json:"blockNumber"`
	Value       string `json:"value"`
}

type ensoResponse struct {
	SimulationID string           `json:"simulationId"`
	GasUsed      uint64           `json:"gasUsed"`
	BlockNumber  int64            `json:"blockNumber"`
	Success      bool             `json:"success"`
	Trace        []callTrace      `json:"trace"`
	Logs         []model.EventLog `json:"logs"`
}

type callTrace struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
}

// Simulate runs the call data at the requested block.
func (s *EnsoSimulator) Simulate(ctx context.Context, params Params) (model.SimulationData, error) {
	body, err := json.Marshal(ensoRequest{
		ChainID:     1,
		From:        params.Sender,
		To:          params.ContractAddress,
		Data:        params.CallData,
		GasLimit:    GasLimit,
		BlockNumber: params.BlockNumber,
		Value:       valueOrDefault(params.Value),
	})
	if err != nil {
		return model.SimulationData{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return model.SimulationData{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.accessKey != "" {
		req.Header.Set("X-API-KEY", s.accessKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return model.SimulationData{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.SimulationData{}, fmt.Errorf("enso simulation: unexpected status %d", resp.StatusCode)
	}

	var parsed ensoResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return model.SimulationData{}, fmt.Errorf("decode response: %w", err)
	}
	if !parsed.Success {
		return model.SimulationData{}, fmt.Errorf("enso simulation %s reverted", parsed.SimulationID)
	}

	logs := parsed.Logs
	if logs == nil {
		logs = []model.EventLog{}
	}

	return model.SimulationData{
		ID:          fmt.Sprintf("enso-%s", parsed.SimulationID),
		BlockNumber: parsed.BlockNumber,
		GasUsed:     parsed.GasUsed,
		Logs:        logs,
		EthDelta:    ethDeltaFromTraces(parsed.Trace),
	}, nil
}

// ethDeltaFromTraces folds value-bearing call traces into per-address
// signed native-asset deltas.
func ethDeltaFromTraces(traces []callTrace) map[string]*big.Int {
	accumulator := make(map[string]*big.Int)
	for _, trace := range traces {
		amount, err := parseBigValue(trace.Value)
		if err != nil || amount.Sign() <= 0 {
			continue
		}

		to := strings.ToLower(trace.To)
		from := strings.ToLower(trace.From)
		accumulator[to] = new(big.Int).Add(deltaOrZero(accumulator, to), amount)
		accumulator[from] = new(big.Int).Sub(deltaOrZero(accumulator, from), amount)
	}
	return accumulator
}

func deltaOrZero(deltas map[string]*big.Int, address string) *big.Int {
	if value, ok := deltas[address]; ok {
		return value
	}
	return new(big.Int)
}

func parseBigValue(value string) (*big.Int, error) {
	if value == "" {
		return new(big.Int), nil
	}
	base := 10
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		value = value[2:]
		base = 16
	}
	parsed, ok := new(big.Int).SetString(value, base)
	if !ok {
		return nil, fmt.Errorf("invalid trace value: %s", value)
	}
	return parsed, nil
}

func valueOrDefault(value string) string {
	if value == "" {
		return "0"
	}
	return value
}
