package core

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/clydemeng/evmbridge/core/types"
	"github.com/clydemeng/evmbridge/core/vm"
	"github.com/clydemeng/evmbridge/state"
	"github.com/clydemeng/evmbridge/tracing"
)

// ChainVariant selects the chain family an executor produces blocks for.
type ChainVariant int

const (
	ChainVariantEth ChainVariant = iota
	ChainVariantOptimism
)

func (v ChainVariant) String() string {
	switch v {
	case ChainVariantEth:
		return "eth"
	case ChainVariantOptimism:
		return "optimism"
	}
	return fmt.Sprintf("unknown(%d)", int(v))
}

// ExecutorState is the lifecycle position of a BlockExecutor.
type ExecutorState int

const (
	StateIdle ExecutorState = iota
	StateExecuting
	StateFinalized
	StateAborted
)

func (s ExecutorState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExecuting:
		return "executing"
	case StateFinalized:
		return "finalized"
	case StateAborted:
		return "aborted"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// ExcludedTx records a transaction the executor rejected without aborting
// the block: conversion failures, validity failures and gas-pool exhaustion.
type ExcludedTx struct {
	Hash common.Hash
	Err  error
}

// BlockExecutorFactory builds executors for one chain variant. The factory is
// immutable and safe to share; variant-specific behavior (receipt extension
// fields, deposit handling) lives in the receipt builder it selects.
type BlockExecutorFactory struct {
	variant ChainVariant
	engine  vm.Engine
}

// NewBlockExecutorFactory binds a chain variant to a VM engine. A nil engine
// selects the in-tree transfer engine.
func NewBlockExecutorFactory(variant ChainVariant, engine vm.Engine) *BlockExecutorFactory {
	if engine == nil {
		engine = vm.NewTransferEngine()
	}
	return &BlockExecutorFactory{variant: variant, engine: engine}
}

// Variant returns the chain variant the factory builds for.
func (f *BlockExecutorFactory) Variant() ChainVariant { return f.variant }

// ReceiptBuilder returns the variant's receipt builder.
func (f *BlockExecutorFactory) ReceiptBuilder() ReceiptBuilder {
	if f.variant == ChainVariantOptimism {
		return &OpReceiptBuilder{}
	}
	return &EthReceiptBuilder{}
}

// NewBlockExecutor creates an executor for one block over the given state.
func (f *BlockExecutorFactory) NewBlockExecutor(ctx *ExecutionContext, statedb vm.StateDB) *BlockExecutor {
	return &BlockExecutor{
		ctx:     ctx,
		state:   statedb,
		engine:  f.engine,
		builder: f.ReceiptBuilder(),
		variant: f.variant,
	}
}

// BlockExecutor applies a block's transactions one at a time and accumulates
// receipts, logs and gas. It is a strict state machine: Idle until the first
// transaction, Executing until Finalize, and Aborted permanently once the
// engine or the state store fails fatally.
type BlockExecutor struct {
	ctx     *ExecutionContext
	state   vm.StateDB
	engine  vm.Engine
	builder ReceiptBuilder
	variant ChainVariant

	status     ExecutorState
	abortCause error

	receipts []*types.Receipt
	excluded []ExcludedTx
	gasUsed  uint64
	txIndex  int
}

// State returns the executor's lifecycle position.
func (b *BlockExecutor) State() ExecutorState { return b.status }

// ExcludedTxs returns the transactions rejected so far, in submission order.
func (b *BlockExecutor) ExcludedTxs() []ExcludedTx { return b.excluded }

// GasUsed returns the cumulative gas consumed by committed transactions.
func (b *BlockExecutor) GasUsed() uint64 { return b.gasUsed }

func (b *BlockExecutor) checkExecutable(op string) error {
	switch b.status {
	case StateAborted:
		return &AbortError{Cause: b.abortCause}
	case StateFinalized:
		return &LifecycleViolationError{Op: op, State: b.status}
	case StateIdle:
		b.ctx.seal()
		b.status = StateExecuting
	}
	return nil
}

func (b *BlockExecutor) abort(cause error) error {
	b.status = StateAborted
	b.abortCause = cause
	log.Warn("block execution aborted", "number", b.ctx.Block.Number, "err", cause)
	return &AbortError{Cause: cause}
}

// exclude records a recoverable per-transaction failure. The block stays
// executable.
func (b *BlockExecutor) exclude(hash common.Hash, err error) error {
	b.excluded = append(b.excluded, ExcludedTx{Hash: hash, Err: err})
	log.Debug("transaction excluded", "hash", hash, "err", err)
	return err
}

// prefetcher is satisfied by state implementations that support cache
// warm-up, notably state.Overlay.
type prefetcher interface {
	Prefetch([]state.BatchKey)
}

// runOnState converts nothing and validates nothing itself; it wires the
// host, fires the tx-level hooks and delegates to the engine. The logs the
// transaction emitted are sliced out of the state's log stream afterwards.
func (b *BlockExecutor) runOnState(env *vm.TxEnv, st vm.StateDB, hooks *tracing.Hooks) (*types.ExecutionResult, error) {
	if p, ok := st.(prefetcher); ok {
		keys := []state.BatchKey{
			{Address: env.Caller},
			{Address: b.ctx.Block.Coinbase},
		}
		if env.To != nil {
			keys = append(keys, state.BatchKey{Address: *env.To})
		}
		p.Prefetch(keys)
	}
	if hooks != nil && hooks.OnTxStart != nil {
		hooks.OnTxStart(b.ctx.vmContext(st), env.Hash, env.Caller)
	}
	st.SetTxContext(env.Hash, b.txIndex)
	logsBefore := len(st.Logs())

	result, err := b.engine.Run(env, &vm.Host{
		State:       st,
		Block:       b.ctx.Block,
		Precompiles: b.ctx.Precompiles,
		Hooks:       hooks,
	})
	if hooks != nil && hooks.OnTxEnd != nil {
		hooks.OnTxEnd(result, err)
	}
	if err != nil {
		return nil, err
	}
	result.Logs = st.Logs()[logsBefore:]
	return result, nil
}

// ExecuteTx applies one canonical execution input against the block state.
// Transaction-validity failures are recoverable: the transaction is recorded
// as excluded and the executor stays usable. Errors wrapping ErrEngineFatal
// poison the executor permanently.
func (b *BlockExecutor) ExecuteTx(env *vm.TxEnv) (*types.ExecutionResult, error) {
	if err := b.checkExecutable("ExecuteTx"); err != nil {
		return nil, err
	}
	if env.GasLimit > b.ctx.Block.GasLimit-b.gasUsed {
		return nil, b.exclude(env.Hash, fmt.Errorf("%w: have %d, want %d", vm.ErrGasLimitReached, b.ctx.Block.GasLimit-b.gasUsed, env.GasLimit))
	}
	result, err := b.runOnState(env, b.state, b.ctx.Hooks)
	if err != nil {
		if IsFatal(err) {
			return nil, b.abort(err)
		}
		return nil, b.exclude(env.Hash, &ExecutionError{TxHash: env.Hash, Reason: err})
	}
	b.commitResult(env, result)
	return result, nil
}

// ExecuteTxWithCommitCondition executes the input speculatively on a
// copy-on-write overlay with buffered inspector hooks, then consults the
// predicate. If it accepts, the overlay flushes into the block state and the
// hooks replay; otherwise every trace of the execution is dropped and the
// call returns a nil result. The parent state is observably unchanged on the
// discard path.
func (b *BlockExecutor) ExecuteTxWithCommitCondition(env *vm.TxEnv, commit func(*types.ExecutionResult) bool) (*types.ExecutionResult, error) {
	if err := b.checkExecutable("ExecuteTxWithCommitCondition"); err != nil {
		return nil, err
	}
	if env.GasLimit > b.ctx.Block.GasLimit-b.gasUsed {
		return nil, b.exclude(env.Hash, fmt.Errorf("%w: have %d, want %d", vm.ErrGasLimitReached, b.ctx.Block.GasLimit-b.gasUsed, env.GasLimit))
	}
	overlay := state.NewOverlay(b.state)
	buffered := tracing.NewBufferedHooks(b.ctx.Hooks)

	result, err := b.runOnState(env, overlay, buffered.Hooks())
	if err != nil {
		overlay.Discard()
		buffered.Discard()
		if IsFatal(err) {
			return nil, b.abort(err)
		}
		return nil, b.exclude(env.Hash, &ExecutionError{TxHash: env.Hash, Reason: err})
	}
	if !commit(result) {
		overlay.Discard()
		buffered.Discard()
		log.Debug("speculative transaction discarded", "hash", env.Hash)
		return nil, nil
	}
	overlay.Flush()
	buffered.Flush()
	b.commitResult(env, result)
	return result, nil
}

// commitResult accumulates gas, builds the receipt and advances the index.
func (b *BlockExecutor) commitResult(env *vm.TxEnv, result *types.ExecutionResult) {
	b.gasUsed += result.UsedGas
	receipt := b.builder.BuildReceipt(&ReceiptBuilderCtx{
		Env:               env,
		Result:            result,
		State:             b.state,
		Block:             b.ctx.Block,
		CumulativeGasUsed: b.gasUsed,
		TxIndex:           uint(b.txIndex),
	})
	b.receipts = append(b.receipts, receipt)
	b.txIndex++
	log.Debug("executed transaction", "hash", env.Hash, "index", b.txIndex-1,
		"kind", result.Kind, "gasUsed", result.UsedGas, "engine", b.engine.Name())
}

// ExecuteTransaction converts a decoded envelope and executes it. Conversion
// failures are recorded as excluded transactions, like validity failures.
func (b *BlockExecutor) ExecuteTransaction(tx *types.Transaction, sender common.Address) (*types.ExecutionResult, error) {
	env, err := TxEnvFromTransaction(tx, sender, b.ctx.Block.Spec)
	if err != nil {
		if lcErr := b.checkExecutable("ExecuteTransaction"); lcErr != nil {
			return nil, lcErr
		}
		return nil, b.exclude(tx.Hash(), err)
	}
	return b.ExecuteTx(env)
}

// Finalize closes the block and returns the aggregated output. The executor
// accepts no further work afterwards; finalizing twice is a lifecycle
// violation and finalizing an aborted executor returns the abort cause.
func (b *BlockExecutor) Finalize() (*types.BlockExecutionOutput, error) {
	switch b.status {
	case StateAborted:
		return nil, &AbortError{Cause: b.abortCause}
	case StateFinalized:
		return nil, &LifecycleViolationError{Op: "Finalize", State: b.status}
	}
	b.status = StateFinalized
	output := &types.BlockExecutionOutput{
		Receipts: b.receipts,
		Logs:     b.state.Logs(),
		GasUsed:  b.gasUsed,
	}
	log.Debug("block finalized", "number", b.ctx.Block.Number,
		"txs", len(b.receipts), "excluded", len(b.excluded), "gasUsed", b.gasUsed)
	return output, nil
}
