package state

import "github.com/ethereum/go-ethereum/metrics"

// Overlay cache-miss counters. A miss means the overlay had to fall through
// to the parent state; prefetching exists to keep these low on hot paths.
var (
	overlayAccountMissCounter = metrics.NewRegisteredCounter("evmbridge/overlay/account/miss", nil)
	overlayStorageMissCounter = metrics.NewRegisteredCounter("evmbridge/overlay/storage/miss", nil)
)

// ResetProfileCounters zeros the overlay miss counters.
func ResetProfileCounters() {
	overlayAccountMissCounter.Clear()
	overlayStorageMissCounter.Clear()
}

// ProfileCounters returns (accountMisses, storageMisses) since last reset.
func ProfileCounters() (int64, int64) {
	return overlayAccountMissCounter.Snapshot().Count(), overlayStorageMissCounter.Snapshot().Count()
}
