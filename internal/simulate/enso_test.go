package simulate

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"settlementScope/internal/model"
)

func TestEnsoSimulate(t *testing.T) {
	var captured ensoRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != "secret" {
			t.Errorf("missing access key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ensoResponse{
			SimulationID: "abc123",
			GasUsed:      821_000,
			BlockNumber:  19_000_000,
			Success:      true,
			Trace: []callTrace{
				{From: "0xAAA0000000000000000000000000000000000001", To: "0xBBB0000000000000000000000000000000000002", Value: "0x64"},
			},
			Logs: []model.EventLog{{Address: "0x01", Topics: []string{"0x02"}, Data: "0x"}},
		})
	}))
	defer server.Close()

	simulator := NewEnsoSimulator(server.URL, "secret")
	result, err := simulator.Simulate(context.Background(), Params{
		ContractAddress: "0x9008d19f58aabd9ed0d60971565aa8510560ab41",
		Sender:          "0xb20b86c4e6deeb432a22d773a221898bbbd03036",
		CallData:        "0x13d79a0b",
		BlockNumber:     19_000_000,
	})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}

	if captured.GasLimit != GasLimit || captured.ChainID != 1 || captured.Value != "0" {
		t.Fatalf("request mismatch: %+v", captured)
	}
	if result.ID != "enso-abc123" || result.GasUsed != 821_000 || result.BlockNumber != 19_000_000 {
		t.Fatalf("result mismatch: %+v", result)
	}
	if len(result.Logs) != 1 {
		t.Fatalf("logs not carried over: %+v", result.Logs)
	}
	if result.EthDelta["0xbbb0000000000000000000000000000000000002"].Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("eth delta mismatch: %v", result.EthDelta)
	}
}

func TestEnsoSimulateRevertIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(ensoResponse{SimulationID: "dead", Success: false})
	}))
	defer server.Close()

	simulator := NewEnsoSimulator(server.URL, "")
	if _, err := simulator.Simulate(context.Background(), Params{}); err == nil {
		t.Fatalf("reverted simulation must be an error")
	}
}

func TestEthDeltaFromTraces(t *testing.T) {
	sender := "0xaaa0000000000000000000000000000000000001"
	receiver := "0xbbb0000000000000000000000000000000000002"

	deltas := ethDeltaFromTraces([]callTrace{
		{From: sender, To: receiver, Value: "100"},
		{From: receiver, To: sender, Value: "0x1e"},
		// Zero-value calls carry no native asset.
		{From: sender, To: receiver, Value: "0x0"},
		{From: sender, To: receiver, Value: ""},
	})

	if deltas[receiver].Cmp(big.NewInt(70)) != 0 {
		t.Fatalf("receiver delta mismatch: %s", deltas[receiver])
	}
	if deltas[sender].Cmp(big.NewInt(-70)) != 0 {
		t.Fatalf("sender delta mismatch: %s", deltas[sender])
	}
}
