package tracing

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/clydemeng/evmbridge/core/types"
)

// BufferedHooks wraps a Hooks target and records every checkpoint instead of
// forwarding it. The recording is replayed onto the target with Flush, or
// dropped with Discard. The speculative execution path uses this so that an
// inspector never observes work that was later thrown away.
type BufferedHooks struct {
	target *Hooks
	replay []func(*Hooks)
}

// NewBufferedHooks builds a buffer in front of target. A nil target yields a
// buffer whose Hooks() is nil, so callers can pass it through unchanged.
func NewBufferedHooks(target *Hooks) *BufferedHooks {
	return &BufferedHooks{target: target}
}

// Hooks returns the recording hook set, or nil when there is no target.
func (b *BufferedHooks) Hooks() *Hooks {
	if b.target == nil {
		return nil
	}
	return &Hooks{
		OnTxStart: func(vm *VMContext, txHash common.Hash, from common.Address) {
			b.replay = append(b.replay, func(h *Hooks) {
				if h.OnTxStart != nil {
					h.OnTxStart(vm, txHash, from)
				}
			})
		},
		OnTxEnd: func(result *types.ExecutionResult, err error) {
			b.replay = append(b.replay, func(h *Hooks) {
				if h.OnTxEnd != nil {
					h.OnTxEnd(result, err)
				}
			})
		},
		OnEnter: func(depth int, from, to common.Address, input []byte, gas uint64, value *uint256.Int) {
			input = append([]byte(nil), input...)
			b.replay = append(b.replay, func(h *Hooks) {
				if h.OnEnter != nil {
					h.OnEnter(depth, from, to, input, gas, value)
				}
			})
		},
		OnExit: func(depth int, output []byte, gasUsed uint64, err error, reverted bool) {
			output = append([]byte(nil), output...)
			b.replay = append(b.replay, func(h *Hooks) {
				if h.OnExit != nil {
					h.OnExit(depth, output, gasUsed, err, reverted)
				}
			})
		},
		OnOpcode: func(pc uint64, op byte, gas, cost uint64, depth int) {
			b.replay = append(b.replay, func(h *Hooks) {
				if h.OnOpcode != nil {
					h.OnOpcode(pc, op, gas, cost, depth)
				}
			})
		},
	}
}

// Flush replays all recorded checkpoints onto the target in call order and
// clears the buffer.
func (b *BufferedHooks) Flush() {
	if b.target == nil {
		return
	}
	for _, fn := range b.replay {
		fn(b.target)
	}
	b.replay = nil
}

// Discard drops all recorded checkpoints.
func (b *BufferedHooks) Discard() {
	b.replay = nil
}
