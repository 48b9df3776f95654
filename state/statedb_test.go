package state

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/clydemeng/evmbridge/tracing"
)

var (
	addrA = common.HexToAddress("0x000000000000000000000000000000000000aaaa")
	addrB = common.HexToAddress("0x000000000000000000000000000000000000bbbb")
)

func TestMemDBSnapshotRevert(t *testing.T) {
	db := NewMemDB()
	db.SetBalance(addrA, uint256.NewInt(100), tracing.BalanceChangeUnspecified)
	db.SetNonce(addrA, 1, tracing.NonceChangeUnspecified)

	snap := db.Snapshot()
	db.SetBalance(addrA, uint256.NewInt(50), tracing.BalanceChangeTransfer)
	db.SetNonce(addrA, 2, tracing.NonceChangeExecution)
	db.SetState(addrA, common.Hash{0x01}, common.Hash{0x02})
	db.CreateAccount(addrB)

	db.RevertToSnapshot(snap)
	if got := db.GetBalance(addrA); !got.Eq(uint256.NewInt(100)) {
		t.Fatalf("balance not reverted: %v", got)
	}
	if db.GetNonce(addrA) != 1 {
		t.Fatalf("nonce not reverted: %d", db.GetNonce(addrA))
	}
	if db.GetState(addrA, common.Hash{0x01}) != (common.Hash{}) {
		t.Fatalf("storage not reverted")
	}
	if db.Exist(addrB) {
		t.Fatalf("created account survived revert")
	}
}

func TestMemDBNestedSnapshots(t *testing.T) {
	db := NewMemDB()
	db.SetBalance(addrA, uint256.NewInt(1), tracing.BalanceChangeUnspecified)
	outer := db.Snapshot()
	db.SetBalance(addrA, uint256.NewInt(2), tracing.BalanceChangeUnspecified)
	inner := db.Snapshot()
	db.SetBalance(addrA, uint256.NewInt(3), tracing.BalanceChangeUnspecified)

	db.RevertToSnapshot(inner)
	if got := db.GetBalance(addrA); !got.Eq(uint256.NewInt(2)) {
		t.Fatalf("inner revert: got %v want 2", got)
	}
	db.RevertToSnapshot(outer)
	if got := db.GetBalance(addrA); !got.Eq(uint256.NewInt(1)) {
		t.Fatalf("outer revert: got %v want 1", got)
	}
}

func TestMemDBCode(t *testing.T) {
	db := NewMemDB()
	code := []byte{0x60, 0x00, 0x60, 0x00, 0xfd}
	db.SetCode(addrA, code)

	if got := db.GetCodeSize(addrA); got != len(code) {
		t.Fatalf("code size: got %d want %d", got, len(code))
	}
	if db.GetCodeHash(addrA) == ethtypes.EmptyCodeHash {
		t.Fatalf("code hash not set")
	}
	if db.GetCodeHash(addrB) != (common.Hash{}) {
		t.Fatalf("missing account must report zero code hash")
	}
}

func TestMemDBLogs(t *testing.T) {
	db := NewMemDB()
	db.SetTxContext(common.Hash{0xaa}, 3)
	db.AddLog(&ethtypes.Log{Address: addrA})
	db.AddLog(&ethtypes.Log{Address: addrB})

	logs := db.Logs()
	if len(logs) != 2 {
		t.Fatalf("log count: got %d want 2", len(logs))
	}
	if logs[0].TxHash != (common.Hash{0xaa}) || logs[0].TxIndex != 3 {
		t.Fatalf("log attribution wrong: %+v", logs[0])
	}
	if logs[0].Index != 0 || logs[1].Index != 1 {
		t.Fatalf("log indices not sequential")
	}
}

func TestMemDBFingerprint(t *testing.T) {
	build := func() *MemDB {
		db := NewMemDB()
		db.SetBalance(addrA, uint256.NewInt(7), tracing.BalanceChangeUnspecified)
		db.SetState(addrA, common.Hash{0x01}, common.Hash{0x02})
		db.SetNonce(addrB, 9, tracing.NonceChangeUnspecified)
		return db
	}
	if build().Fingerprint() != build().Fingerprint() {
		t.Fatalf("identical states produce different fingerprints")
	}
	other := build()
	other.SetBalance(addrA, uint256.NewInt(8), tracing.BalanceChangeUnspecified)
	if other.Fingerprint() == build().Fingerprint() {
		t.Fatalf("diverged states share a fingerprint")
	}
}

func TestMemDBSetStorageReplaces(t *testing.T) {
	db := NewMemDB()
	db.SetState(addrA, common.Hash{0x01}, common.Hash{0xaa})
	snap := db.Snapshot()

	db.SetStorage(addrA, map[common.Hash]common.Hash{{0x02}: {0xbb}})
	if db.GetState(addrA, common.Hash{0x01}) != (common.Hash{}) {
		t.Fatalf("stale slot survived the storage replacement")
	}
	if db.GetState(addrA, common.Hash{0x02}) != (common.Hash{0xbb}) {
		t.Fatalf("replacement slot missing")
	}

	db.RevertToSnapshot(snap)
	if db.GetState(addrA, common.Hash{0x01}) != (common.Hash{0xaa}) {
		t.Fatalf("revert did not restore the replaced storage")
	}
	if db.GetState(addrA, common.Hash{0x02}) != (common.Hash{}) {
		t.Fatalf("revert kept a slot from the replacement")
	}
}
