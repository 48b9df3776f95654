package types

import (
	"errors"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// Transaction type identifiers. The low range mirrors the canonical Ethereum
// envelope types; DepositTxType is the rollup extension marker.
const (
	LegacyTxType     = 0x00
	DynamicFeeTxType = 0x02
	BlobTxType       = 0x03
	SetCodeTxType    = 0x04
	DepositTxType    = 0x7e
)

// ErrTxTypeNotSupported is returned whenever an envelope carries a type this
// layer has no mapping for.
var ErrTxTypeNotSupported = errors.New("transaction type not supported")

// TxData is the underlying data of a transaction. Exactly one concrete
// variant backs every Transaction; consumers dispatch on Type() with an
// exhaustive switch.
type TxData interface {
	txType() byte
}

// Transaction is a decoded, chain-specific transaction envelope. The wire
// decoding itself happens outside this layer; callers hand over the decoded
// variant and, when the fee model needs it, the original serialized bytes.
type Transaction struct {
	inner   TxData
	encoded []byte // original wire encoding, if supplied by the caller

	hash atomic.Pointer[common.Hash]
}

// NewTransaction wraps the given variant data into an envelope.
func NewTransaction(inner TxData) *Transaction {
	return &Transaction{inner: inner}
}

// NewTransactionWithEncoded wraps the variant data and retains the original
// wire encoding alongside it. The bytes are kept verbatim; variants whose fee
// depends on the raw encoded length (deposit transactions paying an L1 data
// fee) must be constructed through this path.
func NewTransactionWithEncoded(inner TxData, encoded []byte) *Transaction {
	return &Transaction{inner: inner, encoded: append([]byte(nil), encoded...)}
}

// Type returns the envelope type identifier.
func (tx *Transaction) Type() byte { return tx.inner.txType() }

// VariantData returns the concrete variant backing the envelope. Callers
// switching on it must treat unknown variants as unsupported.
func (tx *Transaction) VariantData() TxData { return tx.inner }

// EncodedBytes returns the original wire encoding the transaction was
// constructed with, or nil if none was supplied.
func (tx *Transaction) EncodedBytes() []byte { return tx.encoded }

// Hash returns the transaction hash: keccak256 of the typed envelope. For
// transactions constructed with their original encoding the hash is computed
// over exactly those bytes.
func (tx *Transaction) Hash() common.Hash {
	if h := tx.hash.Load(); h != nil {
		return *h
	}
	var h common.Hash
	if tx.encoded != nil {
		h = crypto.Keccak256Hash(tx.encoded)
	} else {
		h = crypto.Keccak256Hash(tx.MarshalBinary())
	}
	tx.hash.Store(&h)
	return h
}

// MarshalBinary re-encodes the envelope in its canonical typed form. It is
// used as a fallback when the caller did not retain the original bytes.
func (tx *Transaction) MarshalBinary() []byte {
	if tx.encoded != nil {
		return append([]byte(nil), tx.encoded...)
	}
	payload, err := rlp.EncodeToBytes(tx.inner)
	if err != nil {
		// All variants are plain structs of RLP-encodable fields.
		panic(err)
	}
	if tx.Type() == LegacyTxType {
		return payload
	}
	return append([]byte{tx.Type()}, payload...)
}

// LegacyTx is the original Ethereum transaction shape with a single gas
// price field.
type LegacyTx struct {
	Nonce    uint64
	GasPrice *uint256.Int
	Gas      uint64
	To       *common.Address // nil means contract creation
	Value    *uint256.Int
	Data     []byte
}

func (tx *LegacyTx) txType() byte { return LegacyTxType }

// DynamicFeeTx is the EIP-1559 fee-market transaction.
type DynamicFeeTx struct {
	ChainID    uint64
	Nonce      uint64
	GasTipCap  *uint256.Int
	GasFeeCap  *uint256.Int
	Gas        uint64
	To         *common.Address
	Value      *uint256.Int
	Data       []byte
	AccessList ethtypes.AccessList
}

func (tx *DynamicFeeTx) txType() byte { return DynamicFeeTxType }

// BlobTx is the EIP-4844 blob-carrying transaction. Blob payloads travel on a
// sidecar; only the commitments are consensus-relevant here. Blob txs can
// never create contracts, so To is a value rather than a pointer.
type BlobTx struct {
	ChainID    uint64
	Nonce      uint64
	GasTipCap  *uint256.Int
	GasFeeCap  *uint256.Int
	Gas        uint64
	To         common.Address
	Value      *uint256.Int
	Data       []byte
	AccessList ethtypes.AccessList
	BlobFeeCap *uint256.Int
	BlobHashes []common.Hash
}

func (tx *BlobTx) txType() byte { return BlobTxType }

// SetCodeTx is the EIP-7702 account-delegation transaction.
type SetCodeTx struct {
	ChainID    uint64
	Nonce      uint64
	GasTipCap  *uint256.Int
	GasFeeCap  *uint256.Int
	Gas        uint64
	To         common.Address
	Value      *uint256.Int
	Data       []byte
	AccessList ethtypes.AccessList
	AuthList   []ethtypes.SetCodeAuthorization
}

func (tx *SetCodeTx) txType() byte { return SetCodeTxType }

// DepositTx is the rollup deposit transaction. It originates from a bridging
// event on the data-availability layer and carries no signature; the sender
// is taken from the deposit event itself.
type DepositTx struct {
	SourceHash          common.Hash
	From                common.Address
	To                  *common.Address
	Mint                *uint256.Int
	Value               *uint256.Int
	Gas                 uint64
	IsSystemTransaction bool
	Data                []byte
}

func (tx *DepositTx) txType() byte { return DepositTxType }

// Accessors below normalise over the variant set so that callers which only
// need common fields do not have to switch themselves. Fields that do not
// exist on a variant report their neutral value.

// Nonce returns the sender nonce carried by the envelope. Deposit
// transactions carry none; their effective nonce is the account nonce at
// execution time.
func (tx *Transaction) Nonce() uint64 {
	switch t := tx.inner.(type) {
	case *LegacyTx:
		return t.Nonce
	case *DynamicFeeTx:
		return t.Nonce
	case *BlobTx:
		return t.Nonce
	case *SetCodeTx:
		return t.Nonce
	case *DepositTx:
		return 0
	}
	return 0
}

// Gas returns the gas limit of the transaction.
func (tx *Transaction) Gas() uint64 {
	switch t := tx.inner.(type) {
	case *LegacyTx:
		return t.Gas
	case *DynamicFeeTx:
		return t.Gas
	case *BlobTx:
		return t.Gas
	case *SetCodeTx:
		return t.Gas
	case *DepositTx:
		return t.Gas
	}
	return 0
}

// To returns the recipient, or nil for contract creation.
func (tx *Transaction) To() *common.Address {
	switch t := tx.inner.(type) {
	case *LegacyTx:
		return t.To
	case *DynamicFeeTx:
		return t.To
	case *BlobTx:
		to := t.To
		return &to
	case *SetCodeTx:
		to := t.To
		return &to
	case *DepositTx:
		return t.To
	}
	return nil
}

// Value returns the amount of native currency transferred.
func (tx *Transaction) Value() *uint256.Int {
	switch t := tx.inner.(type) {
	case *LegacyTx:
		return t.Value
	case *DynamicFeeTx:
		return t.Value
	case *BlobTx:
		return t.Value
	case *SetCodeTx:
		return t.Value
	case *DepositTx:
		return t.Value
	}
	return nil
}

// Data returns the call data.
func (tx *Transaction) Data() []byte {
	switch t := tx.inner.(type) {
	case *LegacyTx:
		return t.Data
	case *DynamicFeeTx:
		return t.Data
	case *BlobTx:
		return t.Data
	case *SetCodeTx:
		return t.Data
	case *DepositTx:
		return t.Data
	}
	return nil
}

// AccessList returns the declared access list, if the variant has one.
func (tx *Transaction) AccessList() ethtypes.AccessList {
	switch t := tx.inner.(type) {
	case *DynamicFeeTx:
		return t.AccessList
	case *BlobTx:
		return t.AccessList
	case *SetCodeTx:
		return t.AccessList
	}
	return nil
}

// BlobHashes returns the versioned blob commitments of a blob transaction.
func (tx *Transaction) BlobHashes() []common.Hash {
	if t, ok := tx.inner.(*BlobTx); ok {
		return t.BlobHashes
	}
	return nil
}

// IsDeposit reports whether the envelope is a rollup deposit.
func (tx *Transaction) IsDeposit() bool {
	_, ok := tx.inner.(*DepositTx)
	return ok
}

// AsDeposit returns the deposit variant data, or nil.
func (tx *Transaction) AsDeposit() *DepositTx {
	t, _ := tx.inner.(*DepositTx)
	return t
}
