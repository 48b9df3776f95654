package vm

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
)

// PrecompiledContract is a built-in contract implemented natively rather
// than as interpreted bytecode.
type PrecompiledContract interface {
	// RequiredGas returns the gas the contract charges for the given input.
	RequiredGas(input []byte) uint64
	// Run executes the contract. A returned error means the precompile
	// rejected the input; the metered gas is still consumed.
	Run(input []byte) ([]byte, error)
}

// ContextualPrecompiledContract is implemented by precompiles that need
// frame-level context (caller, target, call value) in addition to the raw
// input bytes.
type ContextualPrecompiledContract interface {
	PrecompiledContract
	RunWithContext(ctx *CallContext, input []byte) ([]byte, error)
}

// PrecompileOutcome is the result of dispatching a precompile call.
type PrecompileOutcome struct {
	Output  []byte
	GasUsed uint64
	Err     error
}

// Failed reports whether the dispatch ended in any failure mode.
func (o *PrecompileOutcome) Failed() bool { return o.Err != nil }

// PrecompileSet is the snapshot of built-in contracts active under one
// SpecID. It is computed once per block and shared read-only afterwards;
// overrides are only legal before the first transaction executes, which the
// execution context enforces. Address uniqueness within a snapshot is
// guaranteed by construction (one map entry per address).
type PrecompileSet struct {
	spec      SpecID
	contracts map[common.Address]PrecompiledContract
}

// Spec returns the SpecID the set was resolved for.
func (p *PrecompileSet) Spec() SpecID { return p.spec }

// Addresses returns the set of active precompile addresses.
func (p *PrecompileSet) Addresses() mapset.Set[common.Address] {
	s := mapset.NewThreadUnsafeSet[common.Address]()
	for addr := range p.contracts {
		s.Add(addr)
	}
	return s
}

// Contains reports whether addr dispatches to a precompile under this spec.
func (p *PrecompileSet) Contains(addr common.Address) bool {
	_, ok := p.contracts[addr]
	return ok
}

// Override installs (or, with a nil contract, removes) a precompile at the
// given address. The execution context gates when this may be called.
func (p *PrecompileSet) Override(addr common.Address, c PrecompiledContract) {
	if c == nil {
		delete(p.contracts, addr)
		return
	}
	p.contracts[addr] = c
}

// Run dispatches a call to the precompile at addr. The failure modes are:
// ErrPrecompileNotFound (address not active for this spec, no gas consumed),
// ErrOutOfGas (all supplied gas consumed, empty output) and
// ErrPrecompileReverted (metered gas consumed, empty output).
func (p *PrecompileSet) Run(addr common.Address, input []byte, suppliedGas uint64, cc *CallContext) *PrecompileOutcome {
	contract, ok := p.contracts[addr]
	if !ok {
		return &PrecompileOutcome{Err: ErrPrecompileNotFound}
	}
	gasCost := contract.RequiredGas(input)
	if gasCost > suppliedGas {
		return &PrecompileOutcome{GasUsed: suppliedGas, Err: ErrOutOfGas}
	}
	var (
		output []byte
		err    error
	)
	if ctxContract, ok := contract.(ContextualPrecompiledContract); ok && cc != nil {
		output, err = ctxContract.RunWithContext(cc, input)
	} else {
		output, err = contract.Run(input)
	}
	if err != nil {
		return &PrecompileOutcome{GasUsed: gasCost, Err: ErrPrecompileReverted}
	}
	return &PrecompileOutcome{Output: output, GasUsed: gasCost}
}

// Precompile addresses. The low range is the canonical Ethereum table; the
// 0x100 range holds rollup additions.
var (
	ecrecoverAddr       = common.BytesToAddress([]byte{0x01})
	sha256Addr          = common.BytesToAddress([]byte{0x02})
	ripemd160Addr       = common.BytesToAddress([]byte{0x03})
	identityAddr        = common.BytesToAddress([]byte{0x04})
	modexpAddr          = common.BytesToAddress([]byte{0x05})
	blake2FAddr         = common.BytesToAddress([]byte{0x09})
	pointEvaluationAddr = common.BytesToAddress([]byte{0x0a})
	p256VerifyAddr      = common.BytesToAddress([]byte{0x01, 0x00})
)

// ActivePrecompiles computes the precompile snapshot for a spec. The table
// is keyed by (address, spec): addresses appear at their activation fork and
// pricing rules switch with the spec, never with a cached default.
func ActivePrecompiles(spec SpecID) *PrecompileSet {
	contracts := map[common.Address]PrecompiledContract{
		ecrecoverAddr: &ecrecover{},
		sha256Addr:    &sha256hash{},
		ripemd160Addr: &ripemd160hash{},
		identityAddr:  &dataCopy{},
	}
	if spec.Enabled(SpecByzantium) {
		contracts[modexpAddr] = &bigModExp{eip2565: spec.Enabled(SpecBerlin)}
	}
	if spec.Enabled(SpecIstanbul) {
		contracts[blake2FAddr] = &blake2F{}
	}
	if spec.Enabled(SpecCancun) {
		contracts[pointEvaluationAddr] = &kzgPointEvaluation{}
	}
	// RIP-7212 secp256r1 verification, rollup-only from Fjord.
	if spec.Enabled(SpecFjord) {
		contracts[p256VerifyAddr] = &p256Verify{}
	}
	return &PrecompileSet{spec: spec, contracts: contracts}
}
