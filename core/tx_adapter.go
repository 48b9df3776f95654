package core

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/clydemeng/evmbridge/core/types"
	"github.com/clydemeng/evmbridge/core/vm"
)

var (
	errDepositNeedsEncoding = errors.New("deposit transaction requires its original encoded bytes")
)

// TxEnvFromTransaction maps a decoded transaction envelope to the canonical
// execution input. The switch over variants is exhaustive: an envelope type
// without a mapping is a ConversionError wrapping ErrTxTypeNotSupported, and
// the caller records the transaction as excluded rather than guessing
// defaults.
//
// Sender recovery happens upstream; the recovered address is passed in. For
// deposits the sender comes from the deposit event itself and the caller
// argument is ignored.
func TxEnvFromTransaction(tx *types.Transaction, caller common.Address, spec vm.SpecID) (*vm.TxEnv, error) {
	env := &vm.TxEnv{
		Type:   tx.Type(),
		Hash:   tx.Hash(),
		Caller: caller,
	}
	switch t := tx.VariantData().(type) {
	case *types.LegacyTx:
		env.Nonce = t.Nonce
		env.GasLimit = t.Gas
		env.GasPrice = u256OrZero(t.GasPrice)
		env.To = t.To
		env.Value = u256OrZero(t.Value)
		env.Data = t.Data

	case *types.DynamicFeeTx:
		env.Nonce = t.Nonce
		env.GasLimit = t.Gas
		env.GasFeeCap = u256OrZero(t.GasFeeCap)
		env.GasTipCap = u256OrZero(t.GasTipCap)
		env.To = t.To
		env.Value = u256OrZero(t.Value)
		env.Data = t.Data
		env.AccessList = t.AccessList

	case *types.BlobTx:
		env.Nonce = t.Nonce
		env.GasLimit = t.Gas
		env.GasFeeCap = u256OrZero(t.GasFeeCap)
		env.GasTipCap = u256OrZero(t.GasTipCap)
		to := t.To
		env.To = &to
		env.Value = u256OrZero(t.Value)
		env.Data = t.Data
		env.AccessList = t.AccessList
		env.BlobHashes = t.BlobHashes
		env.BlobFeeCap = u256OrZero(t.BlobFeeCap)

	case *types.SetCodeTx:
		env.Nonce = t.Nonce
		env.GasLimit = t.Gas
		env.GasFeeCap = u256OrZero(t.GasFeeCap)
		env.GasTipCap = u256OrZero(t.GasTipCap)
		to := t.To
		env.To = &to
		env.Value = u256OrZero(t.Value)
		env.Data = t.Data
		env.AccessList = t.AccessList
		env.AuthList = t.AuthList

	case *types.DepositTx:
		if t.IsSystemTransaction && spec.Enabled(vm.SpecRegolith) {
			return nil, &ConversionError{TxType: tx.Type(), Reason: vm.ErrSystemTxDisabled}
		}
		encoded := tx.EncodedBytes()
		if encoded == nil {
			return nil, &ConversionError{TxType: tx.Type(), Reason: errDepositNeedsEncoding}
		}
		env.Caller = t.From
		env.GasLimit = t.Gas
		env.To = t.To
		env.Value = u256OrZero(t.Value)
		env.Data = t.Data
		env.IsDeposit = true
		env.SourceHash = t.SourceHash
		env.Mint = u256OrZero(t.Mint)
		env.IsSystemTx = t.IsSystemTransaction
		env.EncodedTx = encoded

	default:
		return nil, &ConversionError{TxType: tx.Type(), Reason: types.ErrTxTypeNotSupported}
	}
	return env, nil
}

// TxEnvFromTransactionWithEncoded is the conversion path for callers that
// still hold the original wire bytes. The bytes are attached to the envelope
// first so fee models charging by encoded length see exactly what was on the
// wire.
func TxEnvFromTransactionWithEncoded(tx *types.Transaction, encoded []byte, caller common.Address, spec vm.SpecID) (*vm.TxEnv, error) {
	wrapped := types.NewTransactionWithEncoded(tx.VariantData(), encoded)
	return TxEnvFromTransaction(wrapped, caller, spec)
}

func u256OrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
