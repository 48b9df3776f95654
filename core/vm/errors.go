package vm

import "errors"

// Precompile dispatch failure modes.
var (
	// ErrPrecompileNotFound means the address is not active for the spec the
	// call was resolved against.
	ErrPrecompileNotFound = errors.New("precompile not found for active spec")
	// ErrOutOfGas means the supplied gas did not cover the precompile's
	// required gas; all supplied gas is consumed.
	ErrOutOfGas = errors.New("out of gas")
	// ErrPrecompileReverted means the precompile itself rejected the input;
	// only the metered gas is consumed.
	ErrPrecompileReverted = errors.New("precompile reverted")
)

// Transaction validity errors. These are recoverable at transaction
// granularity: the block executor records the transaction as excluded and
// continues with the rest of the block.
var (
	ErrNonceTooLow       = errors.New("nonce too low")
	ErrNonceTooHigh      = errors.New("nonce too high")
	ErrInsufficientFunds = errors.New("insufficient funds for gas * price + value")
	ErrIntrinsicGas      = errors.New("intrinsic gas too low")
	ErrGasLimitReached   = errors.New("gas limit reached")
	ErrSystemTxDisabled  = errors.New("system transactions not supported after Regolith")
)

// Engine-level conditions.
var (
	// ErrEngineFatal marks unrecoverable engine or state-store failures.
	// Errors wrapping it drive the block executor to its Aborted state.
	ErrEngineFatal = errors.New("fatal engine failure")
	// ErrUnsupportedCode is returned by engines that do not interpret
	// contract bytecode when a call targets a code-bearing account.
	ErrUnsupportedCode = errors.New("engine cannot interpret contract code")
	// ErrExecutionReverted is the halt reason for reverted frames.
	ErrExecutionReverted = errors.New("execution reverted")
)
