package vm

import (
	"github.com/clydemeng/evmbridge/core/types"
	"github.com/clydemeng/evmbridge/tracing"
)

// Host bundles the capabilities the block executor hands to the engine for
// one transaction: mutable state, the block environment, the precompile set
// resolved for the block's spec and the optional inspector hooks.
type Host struct {
	State       StateDB
	Block       *BlockContext
	Precompiles *PrecompileSet
	Hooks       *tracing.Hooks
}

// Engine is the external VM capability interface. Implementations perform
// opcode interpretation and gas metering; this layer never reimplements
// either. Run applies one canonical execution input against the host state
// and returns the outcome.
//
// Errors fall in two classes: transaction-invalidity errors (nonce, funds,
// intrinsic gas) leave the state untouched and are recoverable per
// transaction, while errors wrapping ErrEngineFatal poison the executor.
type Engine interface {
	// Name returns a short human identifier ("transfer", "revm", ...).
	Name() string

	// Run executes the input synchronously. It must not suspend; precompile
	// calls and inspector callbacks complete fully before it returns.
	Run(env *TxEnv, host *Host) (*types.ExecutionResult, error)
}
