// Package state provides the in-memory state backend and the copy-on-write
// overlay used for speculative transaction execution.
package state

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/clydemeng/evmbridge/tracing"
)

type account struct {
	balance  *uint256.Int
	nonce    uint64
	code     []byte
	codeHash common.Hash
	storage  map[common.Hash]common.Hash
}

func newAccount() *account {
	return &account{
		balance:  new(uint256.Int),
		codeHash: ethtypes.EmptyCodeHash,
		storage:  make(map[common.Hash]common.Hash),
	}
}

// MemDB is a journaled in-memory implementation of vm.StateDB. Every mutation
// pushes an undo closure so snapshots revert in O(changes), the same shape the
// overlay uses for its block-level journal.
type MemDB struct {
	accounts map[common.Address]*account

	journal        []func()
	validRevisions []revision
	nextRevisionID int

	txHash   common.Hash
	txIndex  int
	logs     []*ethtypes.Log
	logIndex uint
}

type revision struct {
	id           int
	journalIndex int
}

// NewMemDB returns an empty in-memory state.
func NewMemDB() *MemDB {
	return &MemDB{accounts: make(map[common.Address]*account)}
}

func (m *MemDB) getAccount(addr common.Address) *account {
	return m.accounts[addr]
}

func (m *MemDB) getOrNewAccount(addr common.Address) *account {
	if acc := m.accounts[addr]; acc != nil {
		return acc
	}
	acc := newAccount()
	m.accounts[addr] = acc
	m.journal = append(m.journal, func() { delete(m.accounts, addr) })
	return acc
}

// Exist reports whether the account is present in the state.
func (m *MemDB) Exist(addr common.Address) bool {
	return m.getAccount(addr) != nil
}

// Empty reports whether the account is empty per EIP-161.
func (m *MemDB) Empty(addr common.Address) bool {
	acc := m.getAccount(addr)
	if acc == nil {
		return true
	}
	return acc.nonce == 0 && acc.balance.IsZero() && len(acc.code) == 0
}

// CreateAccount ensures an account object exists at addr. An existing balance
// is carried over.
func (m *MemDB) CreateAccount(addr common.Address) {
	m.getOrNewAccount(addr)
}

func (m *MemDB) GetBalance(addr common.Address) *uint256.Int {
	if acc := m.getAccount(addr); acc != nil {
		return new(uint256.Int).Set(acc.balance)
	}
	return new(uint256.Int)
}

func (m *MemDB) SetBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) {
	acc := m.getOrNewAccount(addr)
	prev := new(uint256.Int).Set(acc.balance)
	m.journal = append(m.journal, func() { acc.balance = prev })
	acc.balance = new(uint256.Int).Set(amount)
}

func (m *MemDB) AddBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason) {
	if amount == nil {
		return
	}
	next := new(uint256.Int).Add(m.GetBalance(addr), amount)
	m.SetBalance(addr, next, reason)
}

func (m *MemDB) SubBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason) {
	if amount == nil {
		return
	}
	next := new(uint256.Int).Sub(m.GetBalance(addr), amount)
	m.SetBalance(addr, next, reason)
}

func (m *MemDB) GetNonce(addr common.Address) uint64 {
	if acc := m.getAccount(addr); acc != nil {
		return acc.nonce
	}
	return 0
}

func (m *MemDB) SetNonce(addr common.Address, nonce uint64, _ tracing.NonceChangeReason) {
	acc := m.getOrNewAccount(addr)
	prev := acc.nonce
	m.journal = append(m.journal, func() { acc.nonce = prev })
	acc.nonce = nonce
}

func (m *MemDB) GetCode(addr common.Address) []byte {
	if acc := m.getAccount(addr); acc != nil && len(acc.code) > 0 {
		return append([]byte(nil), acc.code...)
	}
	return nil
}

func (m *MemDB) SetCode(addr common.Address, code []byte) {
	acc := m.getOrNewAccount(addr)
	prevCode, prevHash := acc.code, acc.codeHash
	m.journal = append(m.journal, func() { acc.code, acc.codeHash = prevCode, prevHash })
	acc.code = append([]byte(nil), code...)
	if len(code) == 0 {
		acc.codeHash = ethtypes.EmptyCodeHash
	} else {
		acc.codeHash = crypto.Keccak256Hash(code)
	}
}

func (m *MemDB) GetCodeHash(addr common.Address) common.Hash {
	if acc := m.getAccount(addr); acc != nil {
		return acc.codeHash
	}
	return common.Hash{}
}

func (m *MemDB) GetCodeSize(addr common.Address) int {
	if acc := m.getAccount(addr); acc != nil {
		return len(acc.code)
	}
	return 0
}

func (m *MemDB) GetState(addr common.Address, slot common.Hash) common.Hash {
	if acc := m.getAccount(addr); acc != nil {
		return acc.storage[slot]
	}
	return common.Hash{}
}

func (m *MemDB) SetState(addr common.Address, slot, value common.Hash) {
	acc := m.getOrNewAccount(addr)
	prev, had := acc.storage[slot]
	m.journal = append(m.journal, func() {
		if had {
			acc.storage[slot] = prev
		} else {
			delete(acc.storage, slot)
		}
	})
	if value == (common.Hash{}) {
		delete(acc.storage, slot)
	} else {
		acc.storage[slot] = value
	}
}

// SetStorage replaces the account's entire storage with the given slots.
// Pre-existing slots not named in the replacement read back as zero.
func (m *MemDB) SetStorage(addr common.Address, storage map[common.Hash]common.Hash) {
	acc := m.getOrNewAccount(addr)
	prev := acc.storage
	m.journal = append(m.journal, func() { acc.storage = prev })
	acc.storage = make(map[common.Hash]common.Hash, len(storage))
	for slot, value := range storage {
		if value != (common.Hash{}) {
			acc.storage[slot] = value
		}
	}
}

// SetTxContext sets the hash and index attributed to logs emitted by the
// transaction currently executing.
func (m *MemDB) SetTxContext(txHash common.Hash, txIndex int) {
	m.txHash = txHash
	m.txIndex = txIndex
}

func (m *MemDB) AddLog(log *ethtypes.Log) {
	log.TxHash = m.txHash
	log.TxIndex = uint(m.txIndex)
	log.Index = m.logIndex
	m.logIndex++
	m.journal = append(m.journal, func() {
		m.logs = m.logs[:len(m.logs)-1]
		m.logIndex--
	})
	m.logs = append(m.logs, log)
}

// Logs returns every log recorded so far, in emission order.
func (m *MemDB) Logs() []*ethtypes.Log {
	return m.logs
}

// Snapshot returns an identifier for the current state revision.
func (m *MemDB) Snapshot() int {
	id := m.nextRevisionID
	m.nextRevisionID++
	m.validRevisions = append(m.validRevisions, revision{id, len(m.journal)})
	return id
}

// RevertToSnapshot unwinds every change recorded after the given revision.
func (m *MemDB) RevertToSnapshot(id int) {
	idx := sort.Search(len(m.validRevisions), func(i int) bool {
		return m.validRevisions[i].id >= id
	})
	if idx == len(m.validRevisions) || m.validRevisions[idx].id != id {
		panic("revision id cannot be reverted")
	}
	target := m.validRevisions[idx].journalIndex
	for i := len(m.journal) - 1; i >= target; i-- {
		m.journal[i]()
	}
	m.journal = m.journal[:target]
	m.validRevisions = m.validRevisions[:idx]
}

// Fingerprint hashes the full state content in deterministic order. Two
// states with identical accounts, storage and logs produce the same digest,
// which makes it the equality witness for discarded speculative work.
func (m *MemDB) Fingerprint() common.Hash {
	addrs := make([]common.Address, 0, len(m.accounts))
	for addr := range m.accounts {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return string(addrs[i][:]) < string(addrs[j][:])
	})

	var buf []byte
	for _, addr := range addrs {
		acc := m.accounts[addr]
		buf = append(buf, addr[:]...)
		bal := acc.balance.Bytes32()
		buf = append(buf, bal[:]...)
		var nb [8]byte
		for i := 0; i < 8; i++ {
			nb[i] = byte(acc.nonce >> (56 - 8*i))
		}
		buf = append(buf, nb[:]...)
		buf = append(buf, acc.codeHash[:]...)

		slots := make([]common.Hash, 0, len(acc.storage))
		for slot := range acc.storage {
			slots = append(slots, slot)
		}
		sort.Slice(slots, func(i, j int) bool {
			return string(slots[i][:]) < string(slots[j][:])
		})
		for _, slot := range slots {
			val := acc.storage[slot]
			buf = append(buf, slot[:]...)
			buf = append(buf, val[:]...)
		}
	}
	for _, log := range m.logs {
		buf = append(buf, log.Address[:]...)
		for _, topic := range log.Topics {
			buf = append(buf, topic[:]...)
		}
		buf = append(buf, log.Data...)
	}
	return crypto.Keccak256Hash(buf)
}
