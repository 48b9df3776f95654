package state

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"

	"github.com/clydemeng/evmbridge/core/vm"
	"github.com/clydemeng/evmbridge/tracing"
)

// codeCacheSize bounds the shared codeHash -> bytecode cache.
const codeCacheSize = 1024

// overlayAccount is the pending (balance, nonce, codeHash) triple for an
// account touched through the overlay. It records the final values to write
// at flush time, not a diff.
type overlayAccount struct {
	balance  *uint256.Int
	nonce    uint64
	codeHash common.Hash
	created  bool
}

type cachedBasic struct {
	balance  *uint256.Int
	nonce    uint64
	codeHash common.Hash
	exists   bool
}

// Overlay is a copy-on-write view over a parent StateDB. Reads fall through
// to the parent and are cached; writes land in pending maps that never touch
// the parent until Flush. Discard drops the pending maps, leaving the parent
// byte-identical to before the overlay existed. This is the isolation
// mechanism behind commit-condition execution.
type Overlay struct {
	parent vm.StateDB

	pendingBasic   map[common.Address]*overlayAccount
	pendingCode    map[common.Address][]byte
	pendingStorage map[common.Address]map[common.Hash]common.Hash
	// wipedStorage marks accounts whose storage was replaced wholesale.
	// Reads of slots absent from pendingStorage return zero instead of
	// falling through to the parent.
	wipedStorage map[common.Address]bool

	// Read-through caches. Entries are only ever the parent's values; pending
	// writes shadow them.
	basicCache   map[common.Address]*cachedBasic
	storageCache map[common.Address]map[common.Hash]common.Hash
	codeCache    *lru.Cache

	txHash  common.Hash
	txIndex int
	logs    []*ethtypes.Log

	journal        []func()
	validRevisions []revision
	nextRevisionID int

	accountMisses int64
	storageMisses int64
}

// NewOverlay wraps parent in a fresh overlay with empty pending state.
func NewOverlay(parent vm.StateDB) *Overlay {
	cache, _ := lru.New(codeCacheSize)
	return &Overlay{
		parent:         parent,
		pendingBasic:   make(map[common.Address]*overlayAccount),
		pendingCode:    make(map[common.Address][]byte),
		pendingStorage: make(map[common.Address]map[common.Hash]common.Hash),
		wipedStorage:   make(map[common.Address]bool),
		basicCache:     make(map[common.Address]*cachedBasic),
		storageCache:   make(map[common.Address]map[common.Hash]common.Hash),
		codeCache:      cache,
	}
}

// loadBasic resolves the parent's account info for addr, caching it.
func (o *Overlay) loadBasic(addr common.Address) *cachedBasic {
	if cached, ok := o.basicCache[addr]; ok {
		return cached
	}
	o.accountMisses++
	overlayAccountMissCounter.Inc(1)
	cached := &cachedBasic{
		balance:  o.parent.GetBalance(addr),
		nonce:    o.parent.GetNonce(addr),
		codeHash: o.parent.GetCodeHash(addr),
		exists:   o.parent.Exist(addr),
	}
	o.basicCache[addr] = cached
	return cached
}

// ensurePending materialises a pending entry for addr seeded from the
// parent's current values.
func (o *Overlay) ensurePending(addr common.Address) *overlayAccount {
	if acc, ok := o.pendingBasic[addr]; ok {
		return acc
	}
	base := o.loadBasic(addr)
	acc := &overlayAccount{
		balance:  new(uint256.Int).Set(base.balance),
		nonce:    base.nonce,
		codeHash: base.codeHash,
	}
	o.pendingBasic[addr] = acc
	o.journal = append(o.journal, func() { delete(o.pendingBasic, addr) })
	return acc
}

func (o *Overlay) Exist(addr common.Address) bool {
	if _, ok := o.pendingBasic[addr]; ok {
		return true
	}
	return o.loadBasic(addr).exists
}

func (o *Overlay) Empty(addr common.Address) bool {
	return o.GetNonce(addr) == 0 && o.GetBalance(addr).IsZero() && o.GetCodeSize(addr) == 0
}

func (o *Overlay) CreateAccount(addr common.Address) {
	acc := o.ensurePending(addr)
	prev := acc.created
	o.journal = append(o.journal, func() { acc.created = prev })
	acc.created = true
}

func (o *Overlay) GetBalance(addr common.Address) *uint256.Int {
	if acc, ok := o.pendingBasic[addr]; ok {
		return new(uint256.Int).Set(acc.balance)
	}
	return new(uint256.Int).Set(o.loadBasic(addr).balance)
}

func (o *Overlay) SetBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) {
	acc := o.ensurePending(addr)
	prev := new(uint256.Int).Set(acc.balance)
	o.journal = append(o.journal, func() { acc.balance = prev })
	acc.balance = new(uint256.Int).Set(amount)
}

func (o *Overlay) AddBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason) {
	if amount == nil {
		return
	}
	o.SetBalance(addr, new(uint256.Int).Add(o.GetBalance(addr), amount), reason)
}

func (o *Overlay) SubBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason) {
	if amount == nil {
		return
	}
	o.SetBalance(addr, new(uint256.Int).Sub(o.GetBalance(addr), amount), reason)
}

func (o *Overlay) GetNonce(addr common.Address) uint64 {
	if acc, ok := o.pendingBasic[addr]; ok {
		return acc.nonce
	}
	return o.loadBasic(addr).nonce
}

func (o *Overlay) SetNonce(addr common.Address, nonce uint64, _ tracing.NonceChangeReason) {
	acc := o.ensurePending(addr)
	prev := acc.nonce
	o.journal = append(o.journal, func() { acc.nonce = prev })
	acc.nonce = nonce
}

func (o *Overlay) GetCode(addr common.Address) []byte {
	if code, ok := o.pendingCode[addr]; ok {
		return append([]byte(nil), code...)
	}
	hash := o.GetCodeHash(addr)
	if hash == (common.Hash{}) || hash == ethtypes.EmptyCodeHash {
		return nil
	}
	if cached, ok := o.codeCache.Get(hash); ok {
		return append([]byte(nil), cached.([]byte)...)
	}
	code := o.parent.GetCode(addr)
	if len(code) > 0 {
		o.codeCache.Add(hash, append([]byte(nil), code...))
	}
	return code
}

func (o *Overlay) SetCode(addr common.Address, code []byte) {
	acc := o.ensurePending(addr)
	prevHash := acc.codeHash
	prevCode, hadCode := o.pendingCode[addr]
	o.journal = append(o.journal, func() {
		acc.codeHash = prevHash
		if hadCode {
			o.pendingCode[addr] = prevCode
		} else {
			delete(o.pendingCode, addr)
		}
	})
	o.pendingCode[addr] = append([]byte(nil), code...)
	if len(code) == 0 {
		acc.codeHash = ethtypes.EmptyCodeHash
	} else {
		acc.codeHash = crypto.Keccak256Hash(code)
		o.codeCache.Add(acc.codeHash, append([]byte(nil), code...))
	}
}

func (o *Overlay) GetCodeHash(addr common.Address) common.Hash {
	if acc, ok := o.pendingBasic[addr]; ok {
		return acc.codeHash
	}
	return o.loadBasic(addr).codeHash
}

func (o *Overlay) GetCodeSize(addr common.Address) int {
	if code, ok := o.pendingCode[addr]; ok {
		return len(code)
	}
	hash := o.GetCodeHash(addr)
	if hash == (common.Hash{}) || hash == ethtypes.EmptyCodeHash {
		return 0
	}
	return len(o.GetCode(addr))
}

func (o *Overlay) GetState(addr common.Address, slot common.Hash) common.Hash {
	if slots, ok := o.pendingStorage[addr]; ok {
		if val, ok := slots[slot]; ok {
			return val
		}
	}
	if o.wipedStorage[addr] {
		return common.Hash{}
	}
	if slots, ok := o.storageCache[addr]; ok {
		if val, ok := slots[slot]; ok {
			return val
		}
	}
	o.storageMisses++
	overlayStorageMissCounter.Inc(1)
	val := o.parent.GetState(addr, slot)
	slots := o.storageCache[addr]
	if slots == nil {
		slots = make(map[common.Hash]common.Hash)
		o.storageCache[addr] = slots
	}
	slots[slot] = val
	return val
}

func (o *Overlay) SetState(addr common.Address, slot, value common.Hash) {
	slots := o.pendingStorage[addr]
	if slots == nil {
		slots = make(map[common.Hash]common.Hash)
		o.pendingStorage[addr] = slots
	}
	prev, had := slots[slot]
	o.journal = append(o.journal, func() {
		if had {
			slots[slot] = prev
		} else {
			delete(slots, slot)
		}
	})
	slots[slot] = value
}

// SetStorage replaces the account's entire storage. The wipe is pending like
// any other write: the parent's storage is untouched until Flush and the
// overlay answers zero for every slot outside the replacement.
func (o *Overlay) SetStorage(addr common.Address, storage map[common.Hash]common.Hash) {
	prevSlots, hadSlots := o.pendingStorage[addr]
	prevWiped := o.wipedStorage[addr]
	o.journal = append(o.journal, func() {
		if hadSlots {
			o.pendingStorage[addr] = prevSlots
		} else {
			delete(o.pendingStorage, addr)
		}
		if prevWiped {
			o.wipedStorage[addr] = true
		} else {
			delete(o.wipedStorage, addr)
		}
	})
	o.wipedStorage[addr] = true
	slots := make(map[common.Hash]common.Hash, len(storage))
	for slot, value := range storage {
		slots[slot] = value
	}
	o.pendingStorage[addr] = slots
}

// SetTxContext forwards the attribution context to the parent as well, so
// logs replayed at flush time land under the right transaction.
func (o *Overlay) SetTxContext(txHash common.Hash, txIndex int) {
	o.txHash = txHash
	o.txIndex = txIndex
	o.parent.SetTxContext(txHash, txIndex)
}

func (o *Overlay) AddLog(log *ethtypes.Log) {
	log.TxHash = o.txHash
	log.TxIndex = uint(o.txIndex)
	log.Index = uint(len(o.logs))
	o.journal = append(o.journal, func() { o.logs = o.logs[:len(o.logs)-1] })
	o.logs = append(o.logs, log)
}

// Logs returns the logs buffered in this overlay only.
func (o *Overlay) Logs() []*ethtypes.Log {
	return o.logs
}

func (o *Overlay) Snapshot() int {
	id := o.nextRevisionID
	o.nextRevisionID++
	o.validRevisions = append(o.validRevisions, revision{id, len(o.journal)})
	return id
}

func (o *Overlay) RevertToSnapshot(id int) {
	idx := sort.Search(len(o.validRevisions), func(i int) bool {
		return o.validRevisions[i].id >= id
	})
	if idx == len(o.validRevisions) || o.validRevisions[idx].id != id {
		panic("revision id cannot be reverted")
	}
	target := o.validRevisions[idx].journalIndex
	for i := len(o.journal) - 1; i >= target; i-- {
		o.journal[i]()
	}
	o.journal = o.journal[:target]
	o.validRevisions = o.validRevisions[:idx]
}

// Flush applies every pending change to the parent and clears the overlay.
// Values identical to the parent's current state are skipped so the parent's
// own journal does not record no-op writes.
func (o *Overlay) Flush() {
	for addr, acc := range o.pendingBasic {
		if acc.created && !o.parent.Exist(addr) {
			o.parent.CreateAccount(addr)
		}
		if !o.parent.GetBalance(addr).Eq(acc.balance) {
			o.parent.SetBalance(addr, acc.balance, tracing.BalanceChangeTransfer)
		}
		if o.parent.GetNonce(addr) != acc.nonce {
			o.parent.SetNonce(addr, acc.nonce, tracing.NonceChangeExecution)
		}
		if code, ok := o.pendingCode[addr]; ok && o.parent.GetCodeHash(addr) != acc.codeHash {
			o.parent.SetCode(addr, code)
		}
	}
	for addr, slots := range o.pendingStorage {
		if o.wipedStorage[addr] {
			o.parent.SetStorage(addr, slots)
			continue
		}
		for slot, val := range slots {
			if o.parent.GetState(addr, slot) != val {
				o.parent.SetState(addr, slot, val)
			}
		}
	}
	for _, log := range o.logs {
		o.parent.AddLog(log)
	}
	o.reset()
}

// Misses returns how many account and storage reads fell through to the
// parent over this overlay's lifetime.
func (o *Overlay) Misses() (accounts, storage int64) {
	return o.accountMisses, o.storageMisses
}

// Discard drops every pending change without touching the parent.
func (o *Overlay) Discard() {
	o.reset()
}

func (o *Overlay) reset() {
	o.pendingBasic = make(map[common.Address]*overlayAccount)
	o.pendingCode = make(map[common.Address][]byte)
	o.pendingStorage = make(map[common.Address]map[common.Hash]common.Hash)
	o.wipedStorage = make(map[common.Address]bool)
	o.logs = nil
	o.journal = nil
	o.validRevisions = nil
}
