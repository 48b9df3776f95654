package core

import (
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"

	"github.com/clydemeng/evmbridge/core/types"
	"github.com/clydemeng/evmbridge/core/vm"
)

// ReceiptBuilderCtx carries everything a receipt builder may consult after a
// transaction executed: the canonical input, the execution result and the
// post-execution state. Tx is the original envelope when the caller still
// has it; builders must not rely on it.
type ReceiptBuilderCtx struct {
	Tx     *types.Transaction
	Env    *vm.TxEnv
	Result *types.ExecutionResult
	State  vm.StateDB
	Block  *vm.BlockContext

	CumulativeGasUsed uint64
	TxIndex           uint
}

// ReceiptBuilder turns an execution result into the chain-variant receipt.
// Implementations decide which extension fields to populate; fields foreign
// to the variant stay at their zero value.
type ReceiptBuilder interface {
	BuildReceipt(ctx *ReceiptBuilderCtx) *types.Receipt
}

// EthReceiptBuilder builds canonical Ethereum receipts. It never populates
// rollup deposit fields.
type EthReceiptBuilder struct{}

func (b *EthReceiptBuilder) BuildReceipt(ctx *ReceiptBuilderCtx) *types.Receipt {
	receipt := &types.Receipt{
		Type:              ctx.Env.Type,
		CumulativeGasUsed: ctx.CumulativeGasUsed,
		Logs:              ctx.Result.Logs,
		Bloom:             types.CreateBloom(ctx.Result.Logs),
		TxHash:            ctx.Env.Hash,
		GasUsed:           ctx.Result.UsedGas,
		TransactionIndex:  ctx.TxIndex,
	}
	if ctx.Result.Failed() {
		receipt.Status = types.ReceiptStatusFailed
	} else {
		receipt.Status = types.ReceiptStatusSuccessful
	}
	if ctx.Env.CreatesContract() {
		receipt.ContractAddress = crypto.CreateAddress(ctx.Env.Caller, ctx.Env.Nonce)
	}
	if n := len(ctx.Env.BlobHashes); n > 0 {
		receipt.BlobGasUsed = uint64(n) * params.BlobTxBlobGasPerBlob
		receipt.BlobGasPrice = ctx.Block.BlobBaseFee
	}
	return receipt
}

// OpReceiptBuilder builds rollup receipts: canonical fields plus the deposit
// nonce and, from Canyon onwards, the deposit receipt version.
type OpReceiptBuilder struct {
	eth EthReceiptBuilder
}

func (b *OpReceiptBuilder) BuildReceipt(ctx *ReceiptBuilderCtx) *types.Receipt {
	receipt := b.eth.BuildReceipt(ctx)
	if !ctx.Env.IsDeposit {
		return receipt
	}
	// The engine bumped the sender nonce during execution; the nonce the
	// deposit executed with is one below the post-state value.
	nonce := ctx.State.GetNonce(ctx.Env.Caller) - 1
	receipt.DepositNonce = &nonce
	if ctx.Env.CreatesContract() {
		// Deposits carry no envelope nonce; the created address derives from
		// the account nonce the deposit executed with.
		receipt.ContractAddress = crypto.CreateAddress(ctx.Env.Caller, nonce)
	}
	if ctx.Block.Spec.Enabled(vm.SpecCanyon) {
		version := uint64(1)
		receipt.DepositReceiptVersion = &version
	}
	return receipt
}
