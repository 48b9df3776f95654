package tracing

// BalanceChangeReason is a description of the reason why a balance was changed.
type BalanceChangeReason int

const (
	BalanceChangeUnspecified BalanceChangeReason = iota
	BalanceChangeTransfer
	BalanceChangeFee
	BalanceChangeGasRefund
	BalanceChangeReward
	BalanceChangeWithdrawal
	BalanceChangeDepositMint // rollup deposit minting bridged funds
	BalanceChangeL1Fee       // rollup L1 data fee deduction
	BalanceChangeOverride    // simulation state override
)

// NonceChangeReason is a description of the reason why a nonce was changed.
type NonceChangeReason int

const (
	NonceChangeUnspecified NonceChangeReason = iota
	NonceChangeExecution
	NonceChangeContractCreation
	NonceChangeDeposit
	NonceChangeOverride
)

// String returns a human-readable string for the reason.
func (r BalanceChangeReason) String() string {
	switch r {
	case BalanceChangeUnspecified:
		return "unspecified"
	case BalanceChangeTransfer:
		return "transfer"
	case BalanceChangeFee:
		return "fee"
	case BalanceChangeGasRefund:
		return "gas_refund"
	case BalanceChangeReward:
		return "reward"
	case BalanceChangeWithdrawal:
		return "withdrawal"
	case BalanceChangeDepositMint:
		return "deposit_mint"
	case BalanceChangeL1Fee:
		return "l1_fee"
	case BalanceChangeOverride:
		return "override"
	}
	return "unknown"
}

// String returns a human-readable string for the reason.
func (r NonceChangeReason) String() string {
	switch r {
	case NonceChangeUnspecified:
		return "unspecified"
	case NonceChangeExecution:
		return "execution"
	case NonceChangeContractCreation:
		return "contract_creation"
	case NonceChangeDeposit:
		return "deposit"
	case NonceChangeOverride:
		return "override"
	}
	return "unknown"
}
