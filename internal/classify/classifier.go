package classify

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"settlementScope/internal/model"
)

// WETHTokenAddress is the canonical wrapped-native-asset contract on mainnet.
const WETHTokenAddress = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"

// ZeroAddress marks the minted or burned side of a synthesized wrap transfer.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// ClassifiedEvents partitions a transaction's logs into the three event
// kinds relevant to imbalance accounting. Everything else is dropped.
type ClassifiedEvents struct {
	Trades      []model.TradeEvent
	Transfers   []model.TransferEvent
	Settlements []model.SettlementEvent
}

// Classifier decodes raw event logs into typed domain events. It is
// stateless after construction and safe for concurrent use.
type Classifier struct {
	erc20      abi.ABI
	weth       abi.ABI
	settlement abi.ABI

	transferTopic   common.Hash
	depositTopic    common.Hash
	withdrawalTopic common.Hash
	tradeTopic      common.Hash
	settlementTopic common.Hash

	settlementContract string
	wethAddress        string
}

// NewClassifier builds a classifier keyed to the given settlement contract.
// The WETH address defaults to the canonical mainnet contract when empty.
func NewClassifier(settlementContract, wethAddress string) (*Classifier, error) {
	if settlementContract == "" {
		return nil, fmt.Errorf("settlement contract address is required")
	}
	if wethAddress == "" {
		wethAddress = WETHTokenAddress
	}

	erc20, err := erc20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	weth, err := weth9ABI()
	if err != nil {
		return nil, fmt.Errorf("parse weth9 abi: %w", err)
	}
	settlement, err := settlementABI()
	if err != nil {
		return nil, fmt.Errorf("parse settlement abi: %w", err)
	}

	return &Classifier{
		erc20:              erc20,
		weth:               weth,
		settlement:         settlement,
		transferTopic:      erc20.Events["Transfer"].ID,
		depositTopic:       weth.Events["Deposit"].ID,
		withdrawalTopic:    weth.Events["Withdrawal"].ID,
		tradeTopic:         settlement.Events["Trade"].ID,
		settlementTopic:    settlement.Events["Settlement"].ID,
		settlementContract: strings.ToLower(settlementContract),
		wethAddress:        strings.ToLower(wethAddress),
	}, nil
}

// Classify partitions logs into trades, transfers and settlements. Token
// transfers are kept only when they touch the settlement contract.
// Malformed logs of a recognized topic are ignored, never an error. A
// settlement event's log index is the log's position in the input sequence.
func (c *Classifier) Classify(logs []model.EventLog) ClassifiedEvents {
	result := ClassifiedEvents{}

	for index, lg := range logs {
		topic, ok := topic0(lg)
		if !ok {
			continue
		}

		switch topic {
		case c.transferTopic:
			transfer, err := c.parseTransfer(lg)
			if err != nil {
				continue
			}
			if c.involvesSettlement(transfer) {
				result.Transfers = append(result.Transfers, transfer)
			}
		case c.depositTopic, c.withdrawalTopic:
			// Other contracts emit same-shaped events. Only the canonical
			// WETH contract's wraps count.
			if strings.ToLower(lg.Address) != c.wethAddress {
				continue
			}
			transfer, err := c.parseWrap(lg, topic == c.depositTopic)
			if err != nil {
				continue
			}
			if c.involvesSettlement(transfer) {
				result.Transfers = append(result.Transfers, transfer)
			}
		case c.tradeTopic:
			trade, err := c.parseTrade(lg)
			if err != nil {
				continue
			}
			result.Trades = append(result.Trades, trade)
		case c.settlementTopic:
			settlement, err := c.parseSettlement(lg, index)
			if err != nil {
				continue
			}
			result.Settlements = append(result.Settlements, settlement)
		}
	}

	return result
}

func (c *Classifier) involvesSettlement(transfer model.TransferEvent) bool {
	return transfer.To == c.settlementContract || transfer.From == c.settlementContract
}

func (c *Classifier) parseTransfer(lg model.EventLog) (model.TransferEvent, error) {
	event := c.erc20.Events["Transfer"]

	var indexed struct {
		From common.Address
		To   common.Address
	}
	topics, err := indexedTopics(event, lg.Topics)
	if err != nil {
		return model.TransferEvent{}, err
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), topics); err != nil {
		return model.TransferEvent{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, lg.Data)
	if err != nil {
		return model.TransferEvent{}, err
	}
	if len(values) != 1 {
		return model.TransferEvent{}, fmt.Errorf("unexpected transfer values: %d", len(values))
	}
	amount, err := asBigInt(values[0])
	if err != nil {
		return model.TransferEvent{}, err
	}

	return model.TransferEvent{
		Token:  strings.ToLower(lg.Address),
		From:   strings.ToLower(indexed.From.Hex()),
		To:     strings.ToLower(indexed.To.Hex()),
		Amount: amount,
	}, nil
}

func (c *Classifier) parseWrap(lg model.EventLog, isDeposit bool) (model.TransferEvent, error) {
	name := "Withdrawal"
	if isDeposit {
		name = "Deposit"
	}
	event := c.weth.Events[name]

	var indexed struct {
		Dst common.Address
		Src common.Address
	}
	topics, err := indexedTopics(event, lg.Topics)
	if err != nil {
		return model.TransferEvent{}, err
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), topics); err != nil {
		return model.TransferEvent{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, lg.Data)
	if err != nil {
		return model.TransferEvent{}, err
	}
	if len(values) != 1 {
		return model.TransferEvent{}, fmt.Errorf("unexpected %s values: %d", name, len(values))
	}
	amount, err := asBigInt(values[0])
	if err != nil {
		return model.TransferEvent{}, err
	}

	// A deposit mints WETH to the depositor, a withdrawal burns it from the
	// withdrawer.
	from := strings.ToLower(indexed.Src.Hex())
	to := ZeroAddress
	if isDeposit {
		from = ZeroAddress
		to = strings.ToLower(indexed.Dst.Hex())
	}

	return model.TransferEvent{
		Token:  strings.ToLower(lg.Address),
		From:   from,
		To:     to,
		Amount: amount,
	}, nil
}

func (c *Classifier) parseTrade(lg model.EventLog) (model.TradeEvent, error) {
	event := c.settlement.Events["Trade"]

	var indexed struct {
		Owner common.Address
	}
	topics, err := indexedTopics(event, lg.Topics)
	if err != nil {
		return model.TradeEvent{}, err
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), topics); err != nil {
		return model.TradeEvent{}, fmt.Errorf("parse topics: %w", err)
	}

	return model.TradeEvent{Owner: strings.ToLower(indexed.Owner.Hex())}, nil
}

func (c *Classifier) parseSettlement(lg model.EventLog, index int) (model.SettlementEvent, error) {
	event := c.settlement.Events["Settlement"]

	var indexed struct {
		Solver common.Address
	}
	topics, err := indexedTopics(event, lg.Topics)
	if err != nil {
		return model.SettlementEvent{}, err
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), topics); err != nil {
		return model.SettlementEvent{}, fmt.Errorf("parse topics: %w", err)
	}

	return model.SettlementEvent{
		Solver:   strings.ToLower(indexed.Solver.Hex()),
		LogIndex: index,
	}, nil
}

func topic0(lg model.EventLog) (common.Hash, bool) {
	if len(lg.Topics) == 0 {
		return common.Hash{}, false
	}
	data, err := hexutil.Decode(lg.Topics[0])
	if err != nil || len(data) != 32 {
		return common.Hash{}, false
	}
	return common.BytesToHash(data), true
}

func indexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}

	out := make([]common.Hash, 0, indexedCount)
	for _, topic := range topics[1:] {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}

func asBigInt(value interface{}) (*big.Int, error) {
	parsed, ok := value.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("expected big.Int, got %T", value)
	}
	return parsed, nil
}
