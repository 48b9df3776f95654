package core

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/clydemeng/evmbridge/core/vm"
	"github.com/clydemeng/evmbridge/tracing"
)

// ExecutionContext bundles everything that stays fixed across one block:
// the block environment, the precompile set resolved for the block's spec and
// the optional inspector hooks. It is assembled once when the executor is
// created and sealed before the first transaction executes, after which the
// precompile snapshot is immutable.
type ExecutionContext struct {
	Block       *vm.BlockContext
	Precompiles *vm.PrecompileSet
	Hooks       *tracing.Hooks

	sealed bool
}

// NewExecutionContext resolves the precompile set for the block's spec and
// binds the optional hooks.
func NewExecutionContext(block *vm.BlockContext, hooks *tracing.Hooks) *ExecutionContext {
	return &ExecutionContext{
		Block:       block,
		Precompiles: vm.ActivePrecompiles(block.Spec),
		Hooks:       hooks,
	}
}

// SetPrecompile installs (or removes, with a nil contract) a precompile at
// addr in this block's snapshot. It is only legal before the first
// transaction executes; afterwards the snapshot is sealed and the call
// reports a lifecycle violation.
func (ctx *ExecutionContext) SetPrecompile(addr common.Address, c vm.PrecompiledContract) error {
	if ctx.sealed {
		return &LifecycleViolationError{Op: "SetPrecompile", State: StateExecuting}
	}
	ctx.Precompiles.Override(addr, c)
	return nil
}

// CallPrecompile dispatches a direct call against the block's precompile
// snapshot, outside any transaction. Dispatch failures are returned as a
// *PrecompileError wrapping the vm sentinel; the reported gas follows the
// set's consumption rules (all gas on out-of-gas, metered gas on revert).
func (ctx *ExecutionContext) CallPrecompile(addr common.Address, input []byte, gas uint64, cc *vm.CallContext) ([]byte, uint64, error) {
	outcome := ctx.Precompiles.Run(addr, input, gas, cc)
	if outcome.Failed() {
		return nil, outcome.GasUsed, &PrecompileError{Addr: addr, Reason: outcome.Err}
	}
	return outcome.Output, outcome.GasUsed, nil
}

// seal freezes the precompile snapshot. The block executor calls this before
// running the first transaction.
func (ctx *ExecutionContext) seal() { ctx.sealed = true }

// vmContext builds the per-transaction inspector context from the block data.
func (ctx *ExecutionContext) vmContext(state tracing.StateReader) *tracing.VMContext {
	return &tracing.VMContext{
		Coinbase:    ctx.Block.Coinbase,
		BlockNumber: ctx.Block.Number,
		Time:        ctx.Block.Time,
		BaseFee:     ctx.Block.BaseFee,
		StateDB:     state,
	}
}
