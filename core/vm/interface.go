package vm

import (
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/clydemeng/evmbridge/tracing"
)

// StateDB is the mutable state capability handed to the engine for the
// duration of one transaction. The persistent backend behind it is outside
// this layer; implementations must support cheap snapshot/rollback so the
// speculative commit path stays proportional to the number of changed keys.
type StateDB interface {
	Exist(common.Address) bool
	Empty(common.Address) bool
	CreateAccount(common.Address)

	GetBalance(common.Address) *uint256.Int
	SetBalance(common.Address, *uint256.Int, tracing.BalanceChangeReason)
	AddBalance(common.Address, *uint256.Int, tracing.BalanceChangeReason)
	SubBalance(common.Address, *uint256.Int, tracing.BalanceChangeReason)

	GetNonce(common.Address) uint64
	SetNonce(common.Address, uint64, tracing.NonceChangeReason)

	GetCode(common.Address) []byte
	SetCode(common.Address, []byte)
	GetCodeHash(common.Address) common.Hash
	GetCodeSize(common.Address) int

	GetState(common.Address, common.Hash) common.Hash
	SetState(common.Address, common.Hash, common.Hash)
	// SetStorage replaces the account's entire storage with the given slots.
	// Every slot not named is cleared.
	SetStorage(common.Address, map[common.Hash]common.Hash)

	// SetTxContext sets the hash and index attributed to logs emitted while
	// the current transaction executes.
	SetTxContext(txHash common.Hash, txIndex int)
	AddLog(*ethtypes.Log)
	// Logs returns every log recorded so far, in emission order.
	Logs() []*ethtypes.Log

	Snapshot() int
	RevertToSnapshot(int)
}
