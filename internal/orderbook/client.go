package orderbook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"settlementScope/internal/model"
)

// Default competition endpoints.
const (
	ProdCompetitionURL = "https://api.cow.fi/mainnet/api/v1/solver_competition/by_tx_hash"
	BarnCompetitionURL = "https://barn.api.cow.fi/mainnet/api/v1/solver_competition/by_tx_hash"
)

// ErrNotFound means no competition data exists at any configured source. A
// mined settlement must have competition data recorded by the time it is
// finalized, so callers treat this as exceptional, not as an empty state.
var ErrNotFound = errors.New("competition data not found")

// Client fetches winning-settlement competition data, trying the primary
// endpoint first and falling back to the secondary.
type Client struct {
	primaryURL  string
	fallbackURL string
	httpClient  *http.Client
	logger      *zap.Logger
}

func NewClient(primaryURL, fallbackURL string, logger *zap.Logger) *Client {
	if primaryURL == "" {
		primaryURL = ProdCompetitionURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		primaryURL:  primaryURL,
		fallbackURL: fallbackURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		logger:      logger,
	}
}

// The orderbook stores all solution submissions sorted by the objective
// criteria; the winning solution is the last entry.
type competitionResponse struct {
	CompetitionSimulationBlock int64 `json:"competitionSimulationBlock"`
	Solutions                  []struct {
		SolverAddress          string `json:"solverAddress"`
		CallData               string `json:"callData"`
		UninternalizedCallData string `json:"uninternalizedCallData"`
	} `json:"solutions"`
}

// GetWinningSettlement returns the winning solver's full and reduced call
// data for a settled transaction. Absence from every source yields
// ErrNotFound.
func (c *Client) GetWinningSettlement(ctx context.Context, txHash string) (model.WinningSettlementData, error) {
	for _, base := range []string{c.primaryURL, c.fallbackURL} {
		if base == "" {
			continue
		}
		data, found, err := c.fetch(ctx, base, txHash)
		if err != nil {
			return model.WinningSettlementData{}, err
		}
		if found {
			return data, nil
		}
		c.logger.Debug("competition not found at source",
			zap.String("source", base),
			zap.String("tx_hash", txHash),
		)
	}
	return model.WinningSettlementData{}, fmt.Errorf("no competition found for %s: %w", txHash, ErrNotFound)
}

func (c *Client) fetch(ctx context.Context, base, txHash string) (model.WinningSettlementData, bool, error) {
	url := fmt.Sprintf("%s/%s", strings.TrimSuffix(base, "/"), txHash)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.WinningSettlementData{}, false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.WinningSettlementData{}, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return model.WinningSettlementData{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return model.WinningSettlementData{}, false, fmt.Errorf("competition request %s: unexpected status %d", url, resp.StatusCode)
	}

	var parsed competitionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return model.WinningSettlementData{}, false, fmt.Errorf("decode competition response: %w", err)
	}
	if len(parsed.Solutions) == 0 {
		return model.WinningSettlementData{}, false, nil
	}

	winning := parsed.Solutions[len(parsed.Solutions)-1]
	return model.WinningSettlementData{
		SimulationBlock: parsed.CompetitionSimulationBlock,
		Solver:          strings.ToLower(winning.SolverAddress),
		ReducedCallData: winning.CallData,
		FullCallData:    winning.UninternalizedCallData,
	}, true, nil
}
