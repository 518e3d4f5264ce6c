package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// JournalType represents the purpose of a journal entry
type JournalType int32

const (
	JournalTypeWalletFund JournalType = iota
	JournalTypeSaleDeposit
	JournalTypeBuyPayment
	JournalTypeBuyDelivery
	JournalTypeSweep
	JournalTypeRentEscrow
	JournalTypeRentRefund
	JournalTypeAdjustment
)

// String names the journal type for metric labels and logs
func (jt JournalType) String() string {
	switch jt {
	case JournalTypeWalletFund:
		return "wallet_fund"
	case JournalTypeSaleDeposit:
		return "sale_deposit"
	case JournalTypeBuyPayment:
		return "buy_payment"
	case JournalTypeBuyDelivery:
		return "buy_delivery"
	case JournalTypeSweep:
		return "sweep"
	case JournalTypeRentEscrow:
		return "rent_escrow"
	case JournalTypeRentRefund:
		return "rent_refund"
	case JournalTypeAdjustment:
		return "adjustment"
	default:
		return "unknown"
	}
}

// Journal represents a single double-entry journal entry
type Journal struct {
	JournalID     uuid.UUID   // Unique identifier
	BatchID       uuid.UUID   // Groups balanced entries
	InstrRef      string      // Idempotency key of source instruction
	Sequence      int64       // Global instruction sequence
	DebitAccount  AccountKey  // Account receiving debit (balance increases)
	CreditAccount AccountKey  // Account receiving credit (balance decreases)
	AssetID       AssetID     // Asset being transferred
	Amount        int64       // Base-unit amount (ALWAYS positive)
	JournalType   JournalType // Entry type
	Timestamp     int64       // Versioned input timestamp (epoch microseconds)
}

// Batch represents a balanced set of journal entries produced by one instruction
type Batch struct {
	BatchID   uuid.UUID
	InstrRef  string
	Sequence  int64
	Timestamp int64
	Journals  []Journal
}

// Validate ensures the batch is well-formed.
// Note on balance invariant: each journal entry is a balanced transfer by construction
// (a single positive amount moves from credit account to debit account). Therefore
// Σ debits == Σ credits is guaranteed per-entry. Multi-leg batches (e.g., a buy with
// its payment and delivery legs) use multiple entries under one batch_id — each
// individually balanced.
func (b *Batch) Validate() error {
	if len(b.Journals) == 0 {
		return fmt.Errorf("batch %s is empty", b.BatchID)
	}

	for _, j := range b.Journals {
		if j.Amount <= 0 {
			return fmt.Errorf("journal %s has non-positive amount: %d", j.JournalID, j.Amount)
		}

		if j.BatchID != b.BatchID {
			return fmt.Errorf("journal %s has mismatched batch_id", j.JournalID)
		}

		if j.DebitAccount == j.CreditAccount {
			return fmt.Errorf("journal %s has same debit and credit account", j.JournalID)
		}
	}

	return nil
}
