package vm

import (
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// TxEnv is the canonical execution input consumed by the VM engine. It is
// produced once per transaction at the adapter boundary and fully populated:
// no field defaults in a way that diverges from the envelope's consensus
// semantics. Downstream components never look at the original envelope.
type TxEnv struct {
	Type byte
	Hash common.Hash

	Caller   common.Address
	Nonce    uint64
	GasLimit uint64

	// Fee fields. GasPrice is set for legacy transactions; fee-market
	// transactions set the cap pair and leave GasPrice nil.
	GasPrice  *uint256.Int
	GasFeeCap *uint256.Int
	GasTipCap *uint256.Int

	To    *common.Address // nil means contract creation
	Value *uint256.Int
	Data  []byte

	AccessList ethtypes.AccessList

	// Blob-carrying fields.
	BlobHashes []common.Hash
	BlobFeeCap *uint256.Int

	// Account-delegation authorizations.
	AuthList []ethtypes.SetCodeAuthorization

	// Rollup extension fields.
	IsDeposit  bool
	SourceHash common.Hash
	Mint       *uint256.Int
	IsSystemTx bool
	// EncodedTx holds the original wire bytes of the transaction for fee
	// models that charge by raw encoded length (the rollup L1 data fee).
	EncodedTx []byte
}

// CreatesContract reports whether the input deploys a new contract.
func (env *TxEnv) CreatesContract() bool { return env.To == nil }

// EffectiveGasPrice resolves the per-gas price actually paid under the given
// base fee. Legacy transactions pay their gas price outright; fee-market
// transactions pay min(tipCap+baseFee, feeCap). Deposits pay no gas fee.
func (env *TxEnv) EffectiveGasPrice(baseFee *uint256.Int) *uint256.Int {
	if env.IsDeposit {
		return new(uint256.Int)
	}
	if env.GasPrice != nil {
		return new(uint256.Int).Set(env.GasPrice)
	}
	if env.GasFeeCap == nil {
		return new(uint256.Int)
	}
	if baseFee == nil {
		return new(uint256.Int).Set(env.GasFeeCap)
	}
	tip := env.GasTipCap
	if tip == nil {
		tip = new(uint256.Int)
	}
	price := new(uint256.Int).Add(tip, baseFee)
	if price.Gt(env.GasFeeCap) {
		price.Set(env.GasFeeCap)
	}
	return price
}

// BlockContext is the per-block immutable environment shared by every
// transaction executed within the block.
type BlockContext struct {
	Number   uint64
	Time     uint64
	GasLimit uint64
	Coinbase common.Address
	Random   common.Hash

	BaseFee *uint256.Int

	ExcessBlobGas uint64
	BlobBaseFee   *uint256.Int

	Spec SpecID
}
