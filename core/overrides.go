package core

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/clydemeng/evmbridge/core/vm"
	"github.com/clydemeng/evmbridge/tracing"
)

// OverrideAccount indicates the overriding fields of one account before
// execution. State and StateDiff are mutually exclusive: State stands for the
// account's entire storage, StateDiff patches individual slots on top of the
// existing storage.
type OverrideAccount struct {
	Nonce     *uint64
	Code      []byte
	Balance   *uint256.Int
	State     map[common.Hash]common.Hash
	StateDiff map[common.Hash]common.Hash
}

// StateOverride is a set of per-account overrides applied before execution.
type StateOverride map[common.Address]OverrideAccount

// Apply writes the overrides into db. An account carrying both State and
// StateDiff is rejected before anything is written.
func (so StateOverride) Apply(db vm.StateDB) error {
	for addr, account := range so {
		if account.State != nil && account.StateDiff != nil {
			return fmt.Errorf("account %s has both 'state' and 'stateDiff'", addr.Hex())
		}
	}
	for addr, account := range so {
		if account.Nonce != nil {
			db.SetNonce(addr, *account.Nonce, tracing.NonceChangeOverride)
		}
		if account.Code != nil {
			db.SetCode(addr, account.Code)
		}
		if account.Balance != nil {
			db.SetBalance(addr, account.Balance, tracing.BalanceChangeOverride)
		}
		if account.State != nil {
			// Full replacement: the account's previous storage is cleared so
			// no stale slot survives the override.
			db.SetStorage(addr, account.State)
		}
		if account.StateDiff != nil {
			for slot, value := range account.StateDiff {
				db.SetState(addr, slot, value)
			}
		}
	}
	return nil
}

// BlockOverrides replaces fields of the block environment for simulation.
// Nil fields keep the original value.
type BlockOverrides struct {
	Number   *uint64
	Time     *uint64
	GasLimit *uint64
	Coinbase *common.Address
	Random   *common.Hash
	BaseFee  *uint256.Int
}

// Apply returns a copy of block with the overrides substituted in. The
// original context is never mutated; executors created earlier keep seeing
// the unmodified block.
func (bo *BlockOverrides) Apply(block *vm.BlockContext) *vm.BlockContext {
	patched := *block
	if bo == nil {
		return &patched
	}
	if bo.Number != nil {
		patched.Number = *bo.Number
	}
	if bo.Time != nil {
		patched.Time = *bo.Time
	}
	if bo.GasLimit != nil {
		patched.GasLimit = *bo.GasLimit
	}
	if bo.Coinbase != nil {
		patched.Coinbase = *bo.Coinbase
	}
	if bo.Random != nil {
		patched.Random = *bo.Random
	}
	if bo.BaseFee != nil {
		patched.BaseFee = new(uint256.Int).Set(bo.BaseFee)
	}
	return &patched
}
