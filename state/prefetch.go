package state

import "github.com/ethereum/go-ethereum/common"

// BatchKey identifies an (address, storage slot) tuple to be prefetched into
// the overlay's read caches. An all-zero Slot indicates that only the account
// info (balance, nonce, code hash) should be primed without touching storage.
type BatchKey struct {
	Address common.Address
	Slot    common.Hash
}

// Prefetch warms the overlay's read caches for the given keys so subsequent
// execution resolves them without hitting the parent. Best-effort: unknown
// accounts and slots simply cache their zero values, and an empty slice is a
// no-op.
func (o *Overlay) Prefetch(keys []BatchKey) {
	for _, k := range keys {
		o.loadBasic(k.Address)
		if k.Slot != (common.Hash{}) {
			o.GetState(k.Address, k.Slot)
		}
	}
}
