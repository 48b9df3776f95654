package vm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"

	"github.com/clydemeng/evmbridge/core/types"
	"github.com/clydemeng/evmbridge/tracing"
)

// txAuthTupleGas is the per-authorization base cost of EIP-7702.
const txAuthTupleGas = 12500

// TransferEngine is the in-tree reference engine. It validates and applies
// plain value transfers, direct precompile calls and deposit semantics with
// full gas accounting, but it does not interpret contract bytecode: a call
// into a code-bearing account halts with ErrUnsupportedCode. The opcode
// interpreter is an external collaborator plugged in through the same Engine
// interface.
type TransferEngine struct{}

// NewTransferEngine returns the reference engine.
func NewTransferEngine() *TransferEngine { return &TransferEngine{} }

// Name implements Engine.
func (e *TransferEngine) Name() string { return "transfer" }

// Run implements Engine.
func (e *TransferEngine) Run(env *TxEnv, host *Host) (*types.ExecutionResult, error) {
	if env.IsDeposit {
		return e.runDeposit(env, host)
	}
	state := host.State

	// Validation phase: nothing below may mutate state until every check
	// passed, so an invalid transaction leaves no trace.
	stateNonce := state.GetNonce(env.Caller)
	if stateNonce > env.Nonce {
		return nil, fmt.Errorf("%w: address %v, tx: %d state: %d", ErrNonceTooLow, env.Caller, env.Nonce, stateNonce)
	}
	if stateNonce < env.Nonce {
		return nil, fmt.Errorf("%w: address %v, tx: %d state: %d", ErrNonceTooHigh, env.Caller, env.Nonce, stateNonce)
	}
	gasPrice := env.EffectiveGasPrice(host.Block.BaseFee)
	intrinsic, err := IntrinsicGas(env, host.Block.Spec)
	if err != nil {
		return nil, err
	}
	if env.GasLimit < intrinsic {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrIntrinsicGas, env.GasLimit, intrinsic)
	}
	cost := new(uint256.Int).SetUint64(env.GasLimit)
	cost.Mul(cost, gasPrice)
	if env.Value != nil {
		cost.Add(cost, env.Value)
	}
	if n := len(env.BlobHashes); n > 0 && host.Block.BlobBaseFee != nil {
		blobFee := new(uint256.Int).SetUint64(uint64(n) * params.BlobTxBlobGasPerBlob)
		blobFee.Mul(blobFee, host.Block.BlobBaseFee)
		cost.Add(cost, blobFee)
	}
	if state.GetBalance(env.Caller).Lt(cost) {
		return nil, fmt.Errorf("%w: address %v have %v want %v", ErrInsufficientFunds, env.Caller, state.GetBalance(env.Caller), cost)
	}

	// Buy gas and bump the nonce. These survive a reverted call frame.
	upfront := new(uint256.Int).SetUint64(env.GasLimit)
	upfront.Mul(upfront, gasPrice)
	state.SubBalance(env.Caller, upfront, tracing.BalanceChangeFee)
	state.SetNonce(env.Caller, env.Nonce+1, tracing.NonceChangeExecution)

	dest := common.Address{}
	if env.To != nil {
		dest = *env.To
	} else {
		dest = crypto.CreateAddress(env.Caller, env.Nonce)
	}
	if hooks := host.Hooks; hooks != nil && hooks.OnEnter != nil {
		hooks.OnEnter(0, env.Caller, dest, env.Data, env.GasLimit-intrinsic, env.Value)
	}

	frameSnap := state.Snapshot()
	gasRemaining := env.GasLimit - intrinsic
	result := &types.ExecutionResult{Kind: types.ResultSuccess}

	switch {
	case env.CreatesContract():
		if len(env.Data) > 0 {
			// Running init code needs the interpreter.
			result.Kind = types.ResultHalt
			result.Err = ErrUnsupportedCode
			gasRemaining = 0
		} else {
			state.CreateAccount(dest)
			state.SetNonce(dest, 1, tracing.NonceChangeContractCreation)
			transferValue(state, env.Caller, dest, env.Value)
		}
	case host.Precompiles != nil && host.Precompiles.Contains(dest):
		transferValue(state, env.Caller, dest, env.Value)
		outcome := host.Precompiles.Run(dest, env.Data, gasRemaining, &CallContext{
			Caller:  env.Caller,
			Address: dest,
			Value:   env.Value,
		})
		gasRemaining -= outcome.GasUsed
		result.ReturnData = outcome.Output
		switch outcome.Err {
		case nil:
		case ErrOutOfGas:
			result.Kind = types.ResultHalt
			result.Err = outcome.Err
		default:
			result.Kind = types.ResultRevert
			result.Err = ErrExecutionReverted
		}
	case state.GetCodeSize(dest) > 0:
		// Interpreting deployed bytecode is out of this engine's scope.
		result.Kind = types.ResultHalt
		result.Err = ErrUnsupportedCode
		gasRemaining = 0
	default:
		transferValue(state, env.Caller, dest, env.Value)
	}

	if result.Failed() {
		state.RevertToSnapshot(frameSnap)
	}
	gasUsed := env.GasLimit - gasRemaining

	if hooks := host.Hooks; hooks != nil && hooks.OnExit != nil {
		hooks.OnExit(0, result.ReturnData, gasUsed-intrinsic, result.Err, result.Kind == types.ResultRevert)
	}

	// Refund the unused gas and pay the coinbase its tip.
	if gasRemaining > 0 {
		refund := new(uint256.Int).SetUint64(gasRemaining)
		refund.Mul(refund, gasPrice)
		state.AddBalance(env.Caller, refund, tracing.BalanceChangeGasRefund)
	}
	tip := new(uint256.Int).Set(gasPrice)
	if host.Block.BaseFee != nil && tip.Gt(host.Block.BaseFee) {
		tip.Sub(tip, host.Block.BaseFee)
	} else if host.Block.BaseFee != nil {
		tip.Clear()
	}
	if !tip.IsZero() {
		fee := new(uint256.Int).SetUint64(gasUsed)
		fee.Mul(fee, tip)
		state.AddBalance(host.Block.Coinbase, fee, tracing.BalanceChangeReward)
	}

	result.UsedGas = gasUsed
	result.TouchedAccounts = []common.Address{env.Caller, dest, host.Block.Coinbase}
	return result, nil
}

// runDeposit applies a rollup deposit. Deposits carry no signature and pay
// no gas fee here; the mint is credited before the transfer and a failed
// deposit is still included with its gas limit consumed.
func (e *TransferEngine) runDeposit(env *TxEnv, host *Host) (*types.ExecutionResult, error) {
	state := host.State

	if env.Mint != nil && !env.Mint.IsZero() {
		state.AddBalance(env.Caller, env.Mint, tracing.BalanceChangeDepositMint)
	}
	nonce := state.GetNonce(env.Caller)
	state.SetNonce(env.Caller, nonce+1, tracing.NonceChangeDeposit)

	dest := common.Address{}
	if env.To != nil {
		dest = *env.To
	} else {
		dest = crypto.CreateAddress(env.Caller, nonce)
	}
	if hooks := host.Hooks; hooks != nil && hooks.OnEnter != nil {
		hooks.OnEnter(0, env.Caller, dest, env.Data, env.GasLimit, env.Value)
	}

	frameSnap := state.Snapshot()
	result := &types.ExecutionResult{Kind: types.ResultSuccess}
	intrinsic, err := IntrinsicGas(env, host.Block.Spec)
	if err != nil || env.GasLimit < intrinsic {
		result.Kind = types.ResultHalt
		result.Err = ErrIntrinsicGas
	} else if env.Value != nil && state.GetBalance(env.Caller).Lt(env.Value) {
		result.Kind = types.ResultHalt
		result.Err = ErrInsufficientFunds
	} else if state.GetCodeSize(dest) > 0 {
		result.Kind = types.ResultHalt
		result.Err = ErrUnsupportedCode
	} else {
		transferValue(state, env.Caller, dest, env.Value)
		result.UsedGas = intrinsic
	}
	if result.Failed() {
		// The mint and the nonce bump stand even when the deposit fails.
		state.RevertToSnapshot(frameSnap)
		result.UsedGas = env.GasLimit
	}
	if hooks := host.Hooks; hooks != nil && hooks.OnExit != nil {
		hooks.OnExit(0, nil, result.UsedGas, result.Err, false)
	}
	result.TouchedAccounts = []common.Address{env.Caller, dest}
	return result, nil
}

func transferValue(state StateDB, from, to common.Address, value *uint256.Int) {
	if value == nil || value.IsZero() {
		return
	}
	state.SubBalance(from, value, tracing.BalanceChangeTransfer)
	state.AddBalance(to, value, tracing.BalanceChangeTransfer)
}

// IntrinsicGas computes the pre-execution gas cost of an input under the
// given spec: the base cost, call data cost, access list cost and, for
// account-delegation transactions, the per-authorization cost.
func IntrinsicGas(env *TxEnv, spec SpecID) (uint64, error) {
	var gas uint64
	if env.CreatesContract() && spec.Enabled(SpecHomestead) {
		gas = params.TxGasContractCreation
	} else {
		gas = params.TxGas
	}
	dataLen := uint64(len(env.Data))
	if dataLen > 0 {
		var nz uint64
		for _, byt := range env.Data {
			if byt != 0 {
				nz++
			}
		}
		nonZeroGas := params.TxDataNonZeroGasFrontier
		if spec.Enabled(SpecIstanbul) {
			nonZeroGas = params.TxDataNonZeroGasEIP2028
		}
		if (params.MaxGasLimit-gas)/nonZeroGas < nz {
			return 0, ErrIntrinsicGas
		}
		gas += nz * nonZeroGas

		z := dataLen - nz
		if (params.MaxGasLimit-gas)/params.TxDataZeroGas < z {
			return 0, ErrIntrinsicGas
		}
		gas += z * params.TxDataZeroGas

		if env.CreatesContract() && spec.Enabled(SpecShanghai) {
			lenWords := (dataLen + 31) / 32
			gas += lenWords * params.InitCodeWordGas
		}
	}
	if env.AccessList != nil {
		gas += uint64(len(env.AccessList)) * params.TxAccessListAddressGas
		gas += uint64(env.AccessList.StorageKeys()) * params.TxAccessListStorageKeyGas
	}
	if len(env.AuthList) > 0 {
		gas += uint64(len(env.AuthList)) * txAuthTupleGas
	}
	return gas, nil
}
