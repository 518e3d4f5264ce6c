package instruction

import (
	"github.com/gagliardetto/solana-go"
)

// Type discriminator for instruction payloads
type Type int32

const (
	TypeUnknown Type = iota
	TypeInitializeState
	TypeInitializeVault
	TypeDeposit
	TypeWithdraw
	TypeUpdateAdmin
	TypeBuyWithNative
	TypeBuyWithToken
	TypeCloseVault
	TypeCloseState
	TypeSamplePrices
	TypeWalletCredit
)

// Envelope wraps every instruction in the log
type Envelope struct {
	// Global monotonic sequence assigned by core
	Sequence int64

	// Stable idempotency key from upstream
	IdempotencyKey string

	// Instruction type discriminator
	InstrType Type

	// Source chain slot for ordering validation
	Slot uint64

	// Versioned input timestamp, epoch microseconds (NOT wall-clock)
	TimestampUs int64

	// JSON-encoded instruction-specific data
	Payload []byte

	// SHA-256 of state AFTER applying this instruction
	StateHash [32]byte

	// Previous instruction's state hash (chain integrity)
	PrevHash [32]byte
}

// Instruction is the interface all instruction payloads must implement
type Instruction interface {
	// IdempotencyKey returns the stable dedup key
	IdempotencyKey() string

	// InstructionType returns the discriminator
	InstructionType() Type

	// Authority returns the signing caller
	Authority() solana.PublicKey

	// SourceSlot returns the chain slot the instruction was observed at
	SourceSlot() uint64

	// TimestampUs returns the versioned input timestamp in epoch microseconds
	TimestampUs() int64
}

func (t Type) String() string {
	switch t {
	case TypeInitializeState:
		return "InitializeState"
	case TypeInitializeVault:
		return "InitializeVault"
	case TypeDeposit:
		return "Deposit"
	case TypeWithdraw:
		return "Withdraw"
	case TypeUpdateAdmin:
		return "UpdateAdmin"
	case TypeBuyWithNative:
		return "BuyWithNative"
	case TypeBuyWithToken:
		return "BuyWithToken"
	case TypeCloseVault:
		return "CloseVault"
	case TypeCloseState:
		return "CloseState"
	case TypeSamplePrices:
		return "SamplePrices"
	case TypeWalletCredit:
		return "WalletCredit"
	default:
		return "Unknown"
	}
}

// Base carries the fields every instruction shares. Embedded by each
// concrete instruction type.
type Base struct {
	InstrID   string           `json:"instr_id"`
	Caller    solana.PublicKey `json:"caller"`
	Slot      uint64           `json:"slot"`
	Timestamp int64            `json:"timestamp_us"` // epoch microseconds
}

func (b *Base) IdempotencyKey() string      { return b.InstrID }
func (b *Base) Authority() solana.PublicKey { return b.Caller }
func (b *Base) SourceSlot() uint64          { return b.Slot }
func (b *Base) TimestampUs() int64          { return b.Timestamp }
