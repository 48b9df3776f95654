package vm_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"

	"github.com/clydemeng/evmbridge/core/types"
	"github.com/clydemeng/evmbridge/core/vm"
	"github.com/clydemeng/evmbridge/state"
)

var (
	testSender   = common.HexToAddress("0xaaaa000000000000000000000000000000000001")
	testDest     = common.HexToAddress("0xbbbb000000000000000000000000000000000002")
	testCoinbase = common.HexToAddress("0xcccc000000000000000000000000000000000003")
)

func newTestHost(db vm.StateDB, spec vm.SpecID) *vm.Host {
	return &vm.Host{
		State: db,
		Block: &vm.BlockContext{
			Number:   1,
			Time:     1_700_000_000,
			GasLimit: 30_000_000,
			Coinbase: testCoinbase,
			Spec:     spec,
		},
		Precompiles: vm.ActivePrecompiles(spec),
	}
}

func fund(db *state.MemDB, addr common.Address, wei uint64) {
	db.SetBalance(addr, uint256.NewInt(wei), 0)
}

func TestTransferEngineLegacyTransfer(t *testing.T) {
	db := state.NewMemDB()
	fund(db, testSender, 1_000_000_000)

	engine := vm.NewTransferEngine()
	env := &vm.TxEnv{
		Type:     types.LegacyTxType,
		Caller:   testSender,
		Nonce:    0,
		GasLimit: 21000,
		GasPrice: uint256.NewInt(1),
		To:       &testDest,
		Value:    uint256.NewInt(1000),
	}
	result, err := engine.Run(env, newTestHost(db, vm.SpecCancun))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Kind != types.ResultSuccess {
		t.Fatalf("kind: got %s want success (err=%v)", result.Kind, result.Err)
	}
	if result.UsedGas != params.TxGas {
		t.Fatalf("gas used: got %d want %d", result.UsedGas, params.TxGas)
	}
	if got := db.GetBalance(testDest); !got.Eq(uint256.NewInt(1000)) {
		t.Fatalf("recipient balance: got %v want 1000", got)
	}
	// No base fee: the full gas price goes to the coinbase.
	if got := db.GetBalance(testCoinbase); !got.Eq(uint256.NewInt(21000)) {
		t.Fatalf("coinbase balance: got %v want 21000", got)
	}
	wantSender := uint256.NewInt(1_000_000_000 - 1000 - 21000)
	if got := db.GetBalance(testSender); !got.Eq(wantSender) {
		t.Fatalf("sender balance: got %v want %v", got, wantSender)
	}
	if db.GetNonce(testSender) != 1 {
		t.Fatalf("sender nonce not bumped")
	}
}

func TestTransferEngineNonceValidation(t *testing.T) {
	db := state.NewMemDB()
	fund(db, testSender, 1_000_000_000)
	db.SetNonce(testSender, 5, 0)

	engine := vm.NewTransferEngine()
	host := newTestHost(db, vm.SpecCancun)
	env := &vm.TxEnv{
		Caller:   testSender,
		Nonce:    3,
		GasLimit: 21000,
		GasPrice: uint256.NewInt(1),
		To:       &testDest,
		Value:    uint256.NewInt(0),
	}
	before := db.Fingerprint()
	if _, err := engine.Run(env, host); !errors.Is(err, vm.ErrNonceTooLow) {
		t.Fatalf("expected ErrNonceTooLow, got %v", err)
	}
	env.Nonce = 9
	if _, err := engine.Run(env, host); !errors.Is(err, vm.ErrNonceTooHigh) {
		t.Fatalf("expected ErrNonceTooHigh, got %v", err)
	}
	if db.Fingerprint() != before {
		t.Fatalf("invalid transaction mutated state")
	}
}

func TestTransferEngineInsufficientFunds(t *testing.T) {
	db := state.NewMemDB()
	fund(db, testSender, 100) // cannot even buy gas

	engine := vm.NewTransferEngine()
	env := &vm.TxEnv{
		Caller:   testSender,
		GasLimit: 21000,
		GasPrice: uint256.NewInt(1),
		To:       &testDest,
		Value:    uint256.NewInt(1),
	}
	if _, err := engine.Run(env, newTestHost(db, vm.SpecCancun)); !errors.Is(err, vm.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestTransferEngineDeposit(t *testing.T) {
	db := state.NewMemDB()

	engine := vm.NewTransferEngine()
	env := &vm.TxEnv{
		Type:      types.DepositTxType,
		Caller:    testSender,
		GasLimit:  100000,
		To:        &testDest,
		Value:     uint256.NewInt(700),
		IsDeposit: true,
		Mint:      uint256.NewInt(1000),
	}
	result, err := engine.Run(env, newTestHost(db, vm.SpecRegolith))
	if err != nil {
		t.Fatalf("deposit run failed: %v", err)
	}
	if result.Kind != types.ResultSuccess {
		t.Fatalf("kind: got %s want success (err=%v)", result.Kind, result.Err)
	}
	if result.UsedGas != params.TxGas {
		t.Fatalf("deposit gas used: got %d want %d", result.UsedGas, params.TxGas)
	}
	// Mint credited to the sender, then value moved to the recipient, and no
	// gas fee charged anywhere.
	if got := db.GetBalance(testSender); !got.Eq(uint256.NewInt(300)) {
		t.Fatalf("sender balance: got %v want 300", got)
	}
	if got := db.GetBalance(testDest); !got.Eq(uint256.NewInt(700)) {
		t.Fatalf("recipient balance: got %v want 700", got)
	}
	if got := db.GetBalance(testCoinbase); !got.IsZero() {
		t.Fatalf("coinbase charged a fee on a deposit: %v", got)
	}
	if db.GetNonce(testSender) != 1 {
		t.Fatalf("deposit did not bump the account nonce")
	}
}

func TestTransferEngineFailedDepositKeepsMint(t *testing.T) {
	db := state.NewMemDB()
	db.SetCode(testDest, []byte{0x60, 0x00}) // code-bearing target halts

	engine := vm.NewTransferEngine()
	env := &vm.TxEnv{
		Caller:    testSender,
		GasLimit:  50000,
		To:        &testDest,
		Value:     uint256.NewInt(1),
		IsDeposit: true,
		Mint:      uint256.NewInt(1000),
	}
	result, err := engine.Run(env, newTestHost(db, vm.SpecRegolith))
	if err != nil {
		t.Fatalf("deposit run failed: %v", err)
	}
	if !result.Failed() {
		t.Fatalf("expected failed deposit")
	}
	if result.UsedGas != env.GasLimit {
		t.Fatalf("failed deposit gas: got %d want full limit %d", result.UsedGas, env.GasLimit)
	}
	if got := db.GetBalance(testSender); !got.Eq(uint256.NewInt(1000)) {
		t.Fatalf("mint rolled back on failed deposit: %v", got)
	}
	if db.GetNonce(testSender) != 1 {
		t.Fatalf("nonce rolled back on failed deposit")
	}
}

func TestTransferEnginePrecompileCall(t *testing.T) {
	db := state.NewMemDB()
	fund(db, testSender, 10_000_000)

	identity := common.BytesToAddress([]byte{0x04})
	input := []byte("thirty-two bytes of input data!!")

	engine := vm.NewTransferEngine()
	env := &vm.TxEnv{
		Caller:   testSender,
		GasLimit: 100000,
		GasPrice: uint256.NewInt(1),
		To:       &identity,
		Value:    uint256.NewInt(0),
		Data:     input,
	}
	result, err := engine.Run(env, newTestHost(db, vm.SpecCancun))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Kind != types.ResultSuccess {
		t.Fatalf("kind: got %s want success (err=%v)", result.Kind, result.Err)
	}
	if !bytes.Equal(result.ReturnData, input) {
		t.Fatalf("identity output mismatch")
	}
	// 21000 base + 16 per non-zero calldata byte + the identity contract gas.
	wantGas := params.TxGas + uint64(len(input))*params.TxDataNonZeroGasEIP2028 +
		params.IdentityBaseGas + params.IdentityPerWordGas
	if result.UsedGas != wantGas {
		t.Fatalf("gas used: got %d want %d", result.UsedGas, wantGas)
	}
}

func TestTransferEngineUnsupportedCode(t *testing.T) {
	db := state.NewMemDB()
	fund(db, testSender, 10_000_000)
	db.SetCode(testDest, []byte{0x60, 0x00, 0x60, 0x00})

	engine := vm.NewTransferEngine()
	env := &vm.TxEnv{
		Caller:   testSender,
		GasLimit: 50000,
		GasPrice: uint256.NewInt(1),
		To:       &testDest,
		Value:    uint256.NewInt(500),
	}
	result, err := engine.Run(env, newTestHost(db, vm.SpecCancun))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Kind != types.ResultHalt || !errors.Is(result.Err, vm.ErrUnsupportedCode) {
		t.Fatalf("expected unsupported-code halt, got kind=%s err=%v", result.Kind, result.Err)
	}
	if result.UsedGas != env.GasLimit {
		t.Fatalf("halt must consume all gas: got %d want %d", result.UsedGas, env.GasLimit)
	}
	// The frame rolled back: no value moved, but the nonce bump and the gas
	// fee stand.
	if got := db.GetBalance(testDest); !got.IsZero() {
		t.Fatalf("value transferred despite halt: %v", got)
	}
	if db.GetNonce(testSender) != 1 {
		t.Fatalf("nonce bump lost on halt")
	}
}

func TestIntrinsicGas(t *testing.T) {
	env := &vm.TxEnv{To: &testDest, Data: []byte{0x01, 0x00, 0x02}}
	gas, err := vm.IntrinsicGas(env, vm.SpecCancun)
	if err != nil {
		t.Fatalf("intrinsic gas failed: %v", err)
	}
	want := params.TxGas + 2*params.TxDataNonZeroGasEIP2028 + params.TxDataZeroGas
	if gas != want {
		t.Fatalf("intrinsic gas: got %d want %d", gas, want)
	}

	// Pre-Istanbul pricing charges 68 per non-zero byte.
	gas, err = vm.IntrinsicGas(env, vm.SpecByzantium)
	if err != nil {
		t.Fatalf("intrinsic gas failed: %v", err)
	}
	want = params.TxGas + 2*params.TxDataNonZeroGasFrontier + params.TxDataZeroGas
	if gas != want {
		t.Fatalf("pre-istanbul intrinsic gas: got %d want %d", gas, want)
	}
}
