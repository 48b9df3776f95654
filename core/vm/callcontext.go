package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// CallContext carries the minimal frame-level fields a precompile may need
// beyond its raw input bytes: who is calling, which address was targeted and
// how much value rides on the call. It is intentionally lightweight so that
// the dispatch layer stays engine-agnostic.
type CallContext struct {
	Caller  common.Address
	Address common.Address
	Value   *uint256.Int
}
