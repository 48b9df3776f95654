package types

import (
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// Receipt status codes, identical to the consensus encoding.
const (
	ReceiptStatusFailed     = uint64(0)
	ReceiptStatusSuccessful = uint64(1)
)

// Receipt is the post-execution record of a transaction. The deposit fields
// are populated only for receipts built from deposit transactions and stay
// nil for every other variant.
type Receipt struct {
	Type              byte
	Status            uint64
	CumulativeGasUsed uint64
	Bloom             ethtypes.Bloom
	Logs              []*ethtypes.Log

	TxHash           common.Hash
	ContractAddress  common.Address
	GasUsed          uint64
	TransactionIndex uint

	// Blob transaction fields.
	BlobGasUsed  uint64
	BlobGasPrice *uint256.Int

	// Rollup deposit fields.
	DepositNonce          *uint64
	DepositReceiptVersion *uint64
}

// CreateBloom builds the receipt's log bloom from its logs.
func CreateBloom(logs []*ethtypes.Log) ethtypes.Bloom {
	var b ethtypes.Bloom
	for _, l := range logs {
		b.Add(l.Address.Bytes())
		for _, topic := range l.Topics {
			b.Add(topic.Bytes())
		}
	}
	return b
}
