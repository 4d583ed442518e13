package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"settlementScope/internal/model"
)

// ErrTxNotFound means the transaction hash is unknown to the node.
var ErrTxNotFound = errors.New("transaction not found")

// Client wraps go-ethereum RPC and projects receipts into the minimal
// transaction shape the pipeline consumes.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// TxData fetches a transaction receipt and reduces it to MinimalTxData.
func (c *Client) TxData(ctx context.Context, txHash string) (model.MinimalTxData, error) {
	hash := common.HexToHash(txHash)

	receipt, err := c.ethClient.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return model.MinimalTxData{}, fmt.Errorf("receipt %s: %w", txHash, ErrTxNotFound)
		}
		return model.MinimalTxData{}, fmt.Errorf("fetch receipt %s: %w", txHash, err)
	}

	tx, _, err := c.ethClient.TransactionByHash(ctx, hash)
	if err != nil {
		return model.MinimalTxData{}, fmt.Errorf("fetch transaction %s: %w", txHash, err)
	}
	sender, err := c.ethClient.TransactionSender(ctx, tx, receipt.BlockHash, receipt.TransactionIndex)
	if err != nil {
		return model.MinimalTxData{}, fmt.Errorf("recover sender %s: %w", txHash, err)
	}

	logs := make([]model.EventLog, 0, len(receipt.Logs))
	for _, lg := range receipt.Logs {
		topics := make([]string, 0, len(lg.Topics))
		for _, topic := range lg.Topics {
			topics = append(topics, topic.Hex())
		}
		logs = append(logs, model.EventLog{
			Address: lg.Address.Hex(),
			Topics:  topics,
			Data:    hexutil.Encode(lg.Data),
		})
	}

	return model.MinimalTxData{
		BlockNumber: receipt.BlockNumber.Int64(),
		From:        sender.Hex(),
		Hash:        hash.Hex(),
		Logs:        logs,
	}, nil
}
