package state

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/clydemeng/evmbridge/tracing"
)

func TestOverlayReadsThroughToParent(t *testing.T) {
	parent := NewMemDB()
	parent.SetBalance(addrA, uint256.NewInt(500), tracing.BalanceChangeUnspecified)
	parent.SetNonce(addrA, 4, tracing.NonceChangeUnspecified)
	parent.SetState(addrA, common.Hash{0x01}, common.Hash{0x02})

	ov := NewOverlay(parent)
	if got := ov.GetBalance(addrA); !got.Eq(uint256.NewInt(500)) {
		t.Fatalf("balance read-through: got %v want 500", got)
	}
	if ov.GetNonce(addrA) != 4 {
		t.Fatalf("nonce read-through: got %d want 4", ov.GetNonce(addrA))
	}
	if ov.GetState(addrA, common.Hash{0x01}) != (common.Hash{0x02}) {
		t.Fatalf("storage read-through failed")
	}
}

func TestOverlayDiscardLeavesParentUntouched(t *testing.T) {
	parent := NewMemDB()
	parent.SetBalance(addrA, uint256.NewInt(500), tracing.BalanceChangeUnspecified)
	before := parent.Fingerprint()

	ov := NewOverlay(parent)
	ov.SetBalance(addrA, uint256.NewInt(1), tracing.BalanceChangeTransfer)
	ov.SetNonce(addrB, 7, tracing.NonceChangeExecution)
	ov.SetState(addrB, common.Hash{0x03}, common.Hash{0x04})
	ov.SetCode(addrB, []byte{0x01})
	ov.AddLog(&ethtypes.Log{Address: addrB})
	ov.Discard()

	if parent.Fingerprint() != before {
		t.Fatalf("discard leaked writes into the parent")
	}
	if len(parent.Logs()) != 0 {
		t.Fatalf("discard leaked logs into the parent")
	}
}

func TestOverlayFlushAppliesWrites(t *testing.T) {
	parent := NewMemDB()
	parent.SetBalance(addrA, uint256.NewInt(500), tracing.BalanceChangeUnspecified)

	ov := NewOverlay(parent)
	ov.SubBalance(addrA, uint256.NewInt(100), tracing.BalanceChangeTransfer)
	ov.AddBalance(addrB, uint256.NewInt(100), tracing.BalanceChangeTransfer)
	ov.SetState(addrB, common.Hash{0x05}, common.Hash{0x06})
	ov.SetCode(addrB, []byte{0xfe})
	ov.AddLog(&ethtypes.Log{Address: addrB})
	ov.Flush()

	if got := parent.GetBalance(addrA); !got.Eq(uint256.NewInt(400)) {
		t.Fatalf("sender balance after flush: got %v want 400", got)
	}
	if got := parent.GetBalance(addrB); !got.Eq(uint256.NewInt(100)) {
		t.Fatalf("recipient balance after flush: got %v want 100", got)
	}
	if parent.GetState(addrB, common.Hash{0x05}) != (common.Hash{0x06}) {
		t.Fatalf("storage not flushed")
	}
	if !bytes.Equal(parent.GetCode(addrB), []byte{0xfe}) {
		t.Fatalf("code not flushed")
	}
	if len(parent.Logs()) != 1 {
		t.Fatalf("logs not flushed: got %d", len(parent.Logs()))
	}
}

func TestOverlaySnapshotRevert(t *testing.T) {
	parent := NewMemDB()
	parent.SetBalance(addrA, uint256.NewInt(10), tracing.BalanceChangeUnspecified)

	ov := NewOverlay(parent)
	ov.SetBalance(addrA, uint256.NewInt(20), tracing.BalanceChangeUnspecified)
	snap := ov.Snapshot()
	ov.SetBalance(addrA, uint256.NewInt(30), tracing.BalanceChangeUnspecified)
	ov.SetState(addrB, common.Hash{0x01}, common.Hash{0x02})

	ov.RevertToSnapshot(snap)
	if got := ov.GetBalance(addrA); !got.Eq(uint256.NewInt(20)) {
		t.Fatalf("overlay revert: got %v want 20", got)
	}
	if ov.GetState(addrB, common.Hash{0x01}) != (common.Hash{}) {
		t.Fatalf("overlay storage revert failed")
	}
}

func TestOverlayPrefetchWarmsCaches(t *testing.T) {
	parent := NewMemDB()
	parent.SetBalance(addrA, uint256.NewInt(123), tracing.BalanceChangeUnspecified)
	parent.SetState(addrA, common.Hash{0x09}, common.Hash{0x0a})

	ov := NewOverlay(parent)
	ov.Prefetch([]BatchKey{
		{Address: addrA, Slot: common.Hash{0x09}},
		{Address: addrB},
	})
	accMiss, storMiss := ov.Misses()
	if accMiss != 2 || storMiss != 1 {
		t.Fatalf("prefetch misses: got acc=%d stor=%d want acc=2 stor=1", accMiss, storMiss)
	}

	// Repeated reads resolve from the cache: no further misses.
	ov.GetBalance(addrA)
	ov.GetState(addrA, common.Hash{0x09})
	ov.GetNonce(addrB)
	accMiss2, storMiss2 := ov.Misses()
	if accMiss2 != accMiss || storMiss2 != storMiss {
		t.Fatalf("cached reads still missed: acc %d->%d stor %d->%d", accMiss, accMiss2, storMiss, storMiss2)
	}
}

func TestOverlayLogAttribution(t *testing.T) {
	parent := NewMemDB()
	ov := NewOverlay(parent)
	ov.SetTxContext(common.Hash{0x42}, 5)
	ov.AddLog(&ethtypes.Log{Address: addrA})

	logs := ov.Logs()
	if len(logs) != 1 || logs[0].TxHash != (common.Hash{0x42}) || logs[0].TxIndex != 5 {
		t.Fatalf("overlay log attribution wrong: %+v", logs)
	}
}

func TestOverlaySetStorageReplaces(t *testing.T) {
	parent := NewMemDB()
	parent.SetState(addrA, common.Hash{0x01}, common.Hash{0xaa})
	parent.SetState(addrA, common.Hash{0x02}, common.Hash{0xbb})
	before := parent.Fingerprint()

	ov := NewOverlay(parent)
	snap := ov.Snapshot()
	ov.SetStorage(addrA, map[common.Hash]common.Hash{{0x03}: {0xcc}})
	if ov.GetState(addrA, common.Hash{0x01}) != (common.Hash{}) {
		t.Fatalf("replaced storage still serves the parent's slot")
	}
	if ov.GetState(addrA, common.Hash{0x03}) != (common.Hash{0xcc}) {
		t.Fatalf("replacement slot missing")
	}
	if parent.Fingerprint() != before {
		t.Fatalf("pending replacement touched the parent")
	}

	// Reverting the wipe restores read-through to the parent.
	ov.RevertToSnapshot(snap)
	if ov.GetState(addrA, common.Hash{0x01}) != (common.Hash{0xaa}) {
		t.Fatalf("revert did not restore read-through")
	}

	ov.SetStorage(addrA, map[common.Hash]common.Hash{{0x03}: {0xcc}})
	ov.Flush()
	if parent.GetState(addrA, common.Hash{0x01}) != (common.Hash{}) ||
		parent.GetState(addrA, common.Hash{0x02}) != (common.Hash{}) {
		t.Fatalf("stale slots survived the flush")
	}
	if parent.GetState(addrA, common.Hash{0x03}) != (common.Hash{0xcc}) {
		t.Fatalf("replacement slot not flushed")
	}
}
