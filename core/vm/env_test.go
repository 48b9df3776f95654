package vm

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestEffectiveGasPrice(t *testing.T) {
	legacy := &TxEnv{GasPrice: uint256.NewInt(50)}
	if got := legacy.EffectiveGasPrice(uint256.NewInt(10)); !got.Eq(uint256.NewInt(50)) {
		t.Fatalf("legacy price: got %v want 50", got)
	}

	feeMarket := &TxEnv{GasFeeCap: uint256.NewInt(100), GasTipCap: uint256.NewInt(5)}
	if got := feeMarket.EffectiveGasPrice(uint256.NewInt(40)); !got.Eq(uint256.NewInt(45)) {
		t.Fatalf("fee market price: got %v want 45", got)
	}
	if got := feeMarket.EffectiveGasPrice(uint256.NewInt(99)); !got.Eq(uint256.NewInt(100)) {
		t.Fatalf("fee cap not applied: got %v want 100", got)
	}
	if got := feeMarket.EffectiveGasPrice(nil); !got.Eq(uint256.NewInt(100)) {
		t.Fatalf("nil base fee: got %v want 100", got)
	}

	// A fee-market env without a tip cap pays the base fee alone.
	noTip := &TxEnv{GasFeeCap: uint256.NewInt(100)}
	if got := noTip.EffectiveGasPrice(uint256.NewInt(40)); !got.Eq(uint256.NewInt(40)) {
		t.Fatalf("nil tip cap: got %v want 40", got)
	}

	deposit := &TxEnv{IsDeposit: true, GasPrice: uint256.NewInt(50)}
	if !deposit.EffectiveGasPrice(uint256.NewInt(10)).IsZero() {
		t.Fatalf("deposits must pay no gas fee")
	}
}
