package core

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/clydemeng/evmbridge/core/vm"
)

// ConversionError reports that a transaction envelope could not be mapped to
// a canonical execution input. It is recoverable at transaction granularity.
type ConversionError struct {
	TxType byte
	Reason error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert transaction type 0x%02x: %v", e.TxType, e.Reason)
}

func (e *ConversionError) Unwrap() error { return e.Reason }

// PrecompileError wraps a precompile dispatch failure (not-found, out of
// gas, internal revert) with the address that produced it. Recoverable at
// transaction granularity.
type PrecompileError struct {
	Addr   common.Address
	Reason error
}

func (e *PrecompileError) Error() string {
	return fmt.Sprintf("precompile %s: %v", e.Addr.Hex(), e.Reason)
}

func (e *PrecompileError) Unwrap() error { return e.Reason }

// ExecutionError wraps a recoverable engine-reported failure (validity
// rejection, unsupported input) for a specific transaction. The executor
// records it against the excluded transaction.
type ExecutionError struct {
	TxHash common.Hash
	Reason error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution of %s failed: %v", e.TxHash.Hex(), e.Reason)
}

func (e *ExecutionError) Unwrap() error { return e.Reason }

// LifecycleViolationError reports an operation invoked in an executor state
// that does not permit it.
type LifecycleViolationError struct {
	Op    string
	State ExecutorState
}

func (e *LifecycleViolationError) Error() string {
	return fmt.Sprintf("executor: %s not allowed in state %s", e.Op, e.State)
}

// AbortError wraps the fatal cause that drove an executor to its Aborted
// state. Every operation after the abort returns the same wrapped cause.
type AbortError struct {
	Cause error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("executor aborted: %v", e.Cause)
}

func (e *AbortError) Unwrap() error { return e.Cause }

// IsFatal reports whether err must poison the executor rather than just fail
// the transaction.
func IsFatal(err error) bool {
	return errors.Is(err, vm.ErrEngineFatal)
}
