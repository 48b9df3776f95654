package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// ResultKind is the coarse outcome classification of a single execution.
type ResultKind uint8

const (
	// ResultSuccess means the transaction executed to completion and its
	// state changes were kept.
	ResultSuccess ResultKind = iota
	// ResultRevert means execution reverted; gas up to the revert point was
	// consumed and state was rolled back to the call boundary.
	ResultRevert
	// ResultHalt means execution stopped on an unrecoverable VM condition
	// (invalid opcode, out of gas, stack violation); all gas is consumed.
	ResultHalt
)

func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "success"
	case ResultRevert:
		return "revert"
	case ResultHalt:
		return "halt"
	}
	return fmt.Sprintf("unknown(%d)", uint8(k))
}

// ExecutionResult is the outcome of applying one canonical execution input
// to state via the VM engine.
type ExecutionResult struct {
	Kind       ResultKind
	UsedGas    uint64
	Err        error  // halt or revert reason, nil on success
	ReturnData []byte // returned data from the call, or revert reason payload
	Logs       []*ethtypes.Log

	// TouchedAccounts summarises which accounts the execution mutated. It is
	// advisory (used for warm-up and inspection), not consensus data.
	TouchedAccounts []common.Address
}

// Failed reports whether the execution ended in revert or halt.
func (r *ExecutionResult) Failed() bool { return r.Kind != ResultSuccess }

// Revert returns the revert reason payload for reverted executions and nil
// otherwise.
func (r *ExecutionResult) Revert() []byte {
	if r.Kind != ResultRevert {
		return nil
	}
	return r.ReturnData
}

// BlockExecutionOutput aggregates everything produced by executing one block.
type BlockExecutionOutput struct {
	Receipts []*Receipt
	Logs     []*ethtypes.Log
	GasUsed  uint64
}
