// Package tracing exposes the synchronous inspection hook surface invoked by
// the block executor and the VM engine at defined execution checkpoints.
package tracing

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/clydemeng/evmbridge/core/types"
)

// StateReader is the minimal read-only state access handed to inspectors.
type StateReader interface {
	GetBalance(common.Address) *uint256.Int
	GetNonce(common.Address) uint64
	GetCode(common.Address) []byte
}

// VMContext exposes block-level data to inspectors at transaction start.
type VMContext struct {
	Coinbase    common.Address
	BlockNumber uint64
	Time        uint64
	BaseFee     *uint256.Int
	StateDB     StateReader
}

// Hooks is the set of callbacks an inspector may register. Every field is
// optional; nil hooks are skipped. All hooks run synchronously and to
// completion before control returns to the engine, in call order.
type Hooks struct {
	// OnTxStart fires before a transaction's execution input is handed to
	// the VM engine.
	OnTxStart func(vm *VMContext, txHash common.Hash, from common.Address)
	// OnTxEnd fires after execution finished, with the result or the
	// transaction-level error.
	OnTxEnd func(result *types.ExecutionResult, err error)
	// OnEnter fires when a call frame is entered, including the top-level
	// frame and precompile invocations.
	OnEnter func(depth int, from, to common.Address, input []byte, gas uint64, value *uint256.Int)
	// OnExit fires when a call frame returns.
	OnExit func(depth int, output []byte, gasUsed uint64, err error, reverted bool)
	// OnOpcode fires per interpreter step for engines that support
	// step-level tracing.
	OnOpcode func(pc uint64, op byte, gas, cost uint64, depth int)
}
