package classify

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"settlementScope/internal/model"
)

const testSettlementContract = "0x9008d19f58aabd9ed0d60971565aa8510560ab41"

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	classifier, err := NewClassifier(testSettlementContract, "")
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}
	return classifier
}

func buildLog(address common.Address, topic0 common.Hash, indexed []common.Hash, data []byte) model.EventLog {
	topics := make([]string, 0, len(indexed)+1)
	topics = append(topics, topic0.Hex())
	for _, topic := range indexed {
		topics = append(topics, topic.Hex())
	}
	return model.EventLog{
		Address: address.Hex(),
		Topics:  topics,
		Data:    hexutil.Encode(data),
	}
}

func topicFromAddress(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func TestClassifyTradeEvent(t *testing.T) {
	classifier := newTestClassifier(t)
	owner := common.HexToAddress("0xd5553c9726ea28e7ebedfe9879cf8ab4d061dbf0")

	result := classifier.Classify([]model.EventLog{
		buildLog(
			common.HexToAddress(testSettlementContract),
			classifier.tradeTopic,
			[]common.Hash{topicFromAddress(owner)},
			nil,
		),
	})

	if len(result.Trades) != 1 || result.Trades[0].Owner != "0xd5553c9726ea28e7ebedfe9879cf8ab4d061dbf0" {
		t.Fatalf("trades mismatch: %+v", result.Trades)
	}
	if len(result.Transfers) != 0 || len(result.Settlements) != 0 {
		t.Fatalf("unexpected partition: %+v", result)
	}
}

func TestClassifyRelevantTransfer(t *testing.T) {
	classifier := newTestClassifier(t)
	token := common.HexToAddress("0x6b175474e89094c44da98b954eedeac495271d0f")
	counterparty := common.HexToAddress("0x0000000000000000000000000000000000000001")
	stranger := common.HexToAddress("0x0000000000000000000000000000000000000002")

	amount, err := classifier.erc20.Events["Transfer"].Inputs.NonIndexed().Pack(big.NewInt(4096))
	if err != nil {
		t.Fatalf("pack transfer: %v", err)
	}

	relevant := buildLog(token, classifier.transferTopic, []common.Hash{
		topicFromAddress(counterparty),
		topicFromAddress(common.HexToAddress(testSettlementContract)),
	}, amount)
	irrelevant := buildLog(token, classifier.transferTopic, []common.Hash{
		topicFromAddress(counterparty),
		topicFromAddress(stranger),
	}, amount)

	result := classifier.Classify([]model.EventLog{relevant, irrelevant})

	if len(result.Transfers) != 1 {
		t.Fatalf("expected 1 transfer, got %d", len(result.Transfers))
	}
	transfer := result.Transfers[0]
	if transfer.To != testSettlementContract {
		t.Fatalf("transfer to mismatch: %s", transfer.To)
	}
	if transfer.From != "0x0000000000000000000000000000000000000001" {
		t.Fatalf("transfer from mismatch: %s", transfer.From)
	}
	if transfer.Token != "0x6b175474e89094c44da98b954eedeac495271d0f" {
		t.Fatalf("transfer token mismatch: %s", transfer.Token)
	}
	if transfer.Amount.Cmp(big.NewInt(4096)) != 0 {
		t.Fatalf("transfer amount mismatch: %s", transfer.Amount)
	}
}

func TestClassifyMultipleSettlements(t *testing.T) {
	classifier := newTestClassifier(t)
	solverA := common.HexToAddress("0xb20b86c4e6deeb432a22d773a221898bbbd03036")
	solverB := common.HexToAddress("0xc9ec550bea1c64d779a73db2d25e0a41d4661c6a")
	owner := common.HexToAddress("0xd5553c9726ea28e7ebedfe9879cf8ab4d061dbf0")
	settlementAddr := common.HexToAddress(testSettlementContract)

	result := classifier.Classify([]model.EventLog{
		buildLog(settlementAddr, classifier.tradeTopic, []common.Hash{topicFromAddress(owner)}, nil),
		buildLog(settlementAddr, classifier.settlementTopic, []common.Hash{topicFromAddress(solverA)}, nil),
		buildLog(settlementAddr, classifier.tradeTopic, []common.Hash{topicFromAddress(owner)}, nil),
		buildLog(settlementAddr, classifier.settlementTopic, []common.Hash{topicFromAddress(solverB)}, nil),
	})

	if len(result.Settlements) != 2 {
		t.Fatalf("expected 2 settlements, got %d", len(result.Settlements))
	}
	// The log index is the position in the original sequence, not the count
	// of settlements seen so far.
	if result.Settlements[0].LogIndex != 1 || result.Settlements[1].LogIndex != 3 {
		t.Fatalf("settlement log indices mismatch: %+v", result.Settlements)
	}
	if result.Settlements[0].Solver != "0xb20b86c4e6deeb432a22d773a221898bbbd03036" {
		t.Fatalf("solver mismatch: %s", result.Settlements[0].Solver)
	}
}

func TestClassifyWethDeposit(t *testing.T) {
	classifier := newTestClassifier(t)
	weth := common.HexToAddress(WETHTokenAddress)
	settlementAddr := common.HexToAddress(testSettlementContract)

	wad, err := classifier.weth.Events["Deposit"].Inputs.NonIndexed().Pack(big.NewInt(7500))
	if err != nil {
		t.Fatalf("pack deposit: %v", err)
	}

	deposit := buildLog(weth, classifier.depositTopic, []common.Hash{topicFromAddress(settlementAddr)}, wad)
	// Same-shaped event from another contract must not count.
	impostor := buildLog(
		common.HexToAddress("0x1111111111111111111111111111111111111111"),
		classifier.depositTopic,
		[]common.Hash{topicFromAddress(settlementAddr)},
		wad,
	)

	result := classifier.Classify([]model.EventLog{deposit, impostor})

	if len(result.Transfers) != 1 {
		t.Fatalf("expected 1 transfer, got %d", len(result.Transfers))
	}
	transfer := result.Transfers[0]
	if transfer.From != ZeroAddress {
		t.Fatalf("deposit should mint from zero address: %s", transfer.From)
	}
	if transfer.To != testSettlementContract {
		t.Fatalf("deposit to mismatch: %s", transfer.To)
	}
	if transfer.Amount.Cmp(big.NewInt(7500)) != 0 {
		t.Fatalf("deposit amount mismatch: %s", transfer.Amount)
	}
}

func TestClassifyWethWithdrawal(t *testing.T) {
	classifier := newTestClassifier(t)
	weth := common.HexToAddress(WETHTokenAddress)
	settlementAddr := common.HexToAddress(testSettlementContract)

	wad, err := classifier.weth.Events["Withdrawal"].Inputs.NonIndexed().Pack(big.NewInt(300))
	if err != nil {
		t.Fatalf("pack withdrawal: %v", err)
	}

	result := classifier.Classify([]model.EventLog{
		buildLog(weth, classifier.withdrawalTopic, []common.Hash{topicFromAddress(settlementAddr)}, wad),
	})

	if len(result.Transfers) != 1 {
		t.Fatalf("expected 1 transfer, got %d", len(result.Transfers))
	}
	transfer := result.Transfers[0]
	if transfer.From != testSettlementContract || transfer.To != ZeroAddress {
		t.Fatalf("withdrawal direction mismatch: %+v", transfer)
	}
}

func TestClassifyIgnoresMalformedAndUnknown(t *testing.T) {
	classifier := newTestClassifier(t)
	settlementAddr := common.HexToAddress(testSettlementContract)

	logs := []model.EventLog{
		// Unknown topic.
		{
			Address: WETHTokenAddress,
			Topics:  []string{"0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925"},
			Data:    "0x",
		},
		// Transfer topic with a missing indexed topic.
		buildLog(settlementAddr, classifier.transferTopic, []common.Hash{topicFromAddress(settlementAddr)}, nil),
		// Withdrawal topic from the WETH contract with truncated data.
		buildLog(common.HexToAddress(WETHTokenAddress), classifier.withdrawalTopic, []common.Hash{topicFromAddress(settlementAddr)}, nil),
		// No topics at all.
		{Address: WETHTokenAddress, Topics: nil, Data: "0x"},
	}

	result := classifier.Classify(logs)
	if len(result.Trades) != 0 || len(result.Transfers) != 0 || len(result.Settlements) != 0 {
		t.Fatalf("malformed logs must be ignored: %+v", result)
	}
}
