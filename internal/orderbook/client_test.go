package orderbook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const competitionJSON = `{
	"competitionSimulationBlock": 19000000,
	"solutions": [
		{"solverAddress": "0x1111111111111111111111111111111111111111", "callData": "0xaa"},
		{"solverAddress": "0xB20B86C4e6DEEB432A22D773a221898bBBD03036", "callData": "0xbb", "uninternalizedCallData": "0xcc"}
	]
}`

func TestGetWinningSettlementPicksLastSolution(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(competitionJSON))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", nil)
	data, err := client.GetWinningSettlement(context.Background(), "0xdeadbeef")
	if err != nil {
		t.Fatalf("get winning settlement: %v", err)
	}

	if data.Solver != "0xb20b86c4e6deeb432a22d773a221898bbbd03036" {
		t.Fatalf("solver mismatch: %s", data.Solver)
	}
	if data.ReducedCallData != "0xbb" || data.FullCallData != "0xcc" {
		t.Fatalf("call data mismatch: %+v", data)
	}
	if data.SimulationBlock != 19000000 {
		t.Fatalf("simulation block mismatch: %d", data.SimulationBlock)
	}
	if !data.Internalized() {
		t.Fatalf("uninternalized call data present, batch must count as internalized")
	}
}

func TestGetWinningSettlementFallsBackToSecondary(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer primary.Close()

	var fallbackHits int
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fallbackHits++
		w.Write([]byte(competitionJSON))
	}))
	defer fallback.Close()

	client := NewClient(primary.URL, fallback.URL, nil)
	data, err := client.GetWinningSettlement(context.Background(), "0xdeadbeef")
	if err != nil {
		t.Fatalf("get winning settlement: %v", err)
	}
	if fallbackHits != 1 {
		t.Fatalf("fallback hits = %d", fallbackHits)
	}
	if data.ReducedCallData != "0xbb" {
		t.Fatalf("call data mismatch: %+v", data)
	}
}

func TestGetWinningSettlementNotFoundAnywhere(t *testing.T) {
	notFound := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	primary := httptest.NewServer(notFound)
	defer primary.Close()
	fallback := httptest.NewServer(notFound)
	defer fallback.Close()

	client := NewClient(primary.URL, fallback.URL, nil)
	_, err := client.GetWinningSettlement(context.Background(), "0xdeadbeef")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetWinningSettlementEmptySolutionsIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"competitionSimulationBlock": 19000000, "solutions": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", nil)
	_, err := client.GetWinningSettlement(context.Background(), "0xdeadbeef")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetWinningSettlementServerErrorStopsFallback(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer primary.Close()

	var fallbackHits int
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fallbackHits++
		w.Write([]byte(competitionJSON))
	}))
	defer fallback.Close()

	client := NewClient(primary.URL, fallback.URL, nil)
	_, err := client.GetWinningSettlement(context.Background(), "0xdeadbeef")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("a hard failure must surface, got %v", err)
	}
	if fallbackHits != 0 {
		t.Fatalf("fallback must not be consulted after a hard failure")
	}
}
