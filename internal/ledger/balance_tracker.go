package ledger

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ErrInsufficientBalance is returned by pre-checks when an account cannot
// cover a requested transfer. Callers match it with errors.Is.
var ErrInsufficientBalance = errors.New("insufficient balance")

// BalanceTracker maintains in-memory account balances
type BalanceTracker struct {
	balances map[AccountKey]int64
}

func NewBalanceTracker() *BalanceTracker {
	return &BalanceTracker{
		balances: make(map[AccountKey]int64),
	}
}

// ApplyJournal applies a single journal entry to balances
func (bt *BalanceTracker) ApplyJournal(j Journal) {
	bt.balances[j.DebitAccount] += j.Amount
	bt.balances[j.CreditAccount] -= j.Amount
}

// ApplyBatch applies all journals in a batch
func (bt *BalanceTracker) ApplyBatch(batch *Batch) error {
	if err := batch.Validate(); err != nil {
		return fmt.Errorf("invalid batch: %w", err)
	}

	for _, j := range batch.Journals {
		bt.ApplyJournal(j)
	}

	return nil
}

// GetBalance returns the current balance for an account
func (bt *BalanceTracker) GetBalance(key AccountKey) int64 {
	return bt.balances[key]
}

// SetBalance overwrites an account balance (snapshot restore only)
func (bt *BalanceTracker) SetBalance(key AccountKey, balance int64) {
	bt.balances[key] = balance
}

// === Wallet / Vault Queries ===

// GetWalletBalance returns the tracked balance of an external wallet
func (bt *BalanceTracker) GetWalletBalance(owner solana.PublicKey, assetID AssetID) int64 {
	return bt.GetBalance(NewWalletAccountKey(owner, assetID))
}

// GetVaultBalance returns a vault's main custody balance
func (bt *BalanceTracker) GetVaultBalance(address solana.PublicKey, assetID AssetID) int64 {
	return bt.GetBalance(NewVaultAccountKey(address, SubTypeMain, assetID))
}

// GetVaultRentBalance returns the rent lamports escrowed for a vault account
func (bt *BalanceTracker) GetVaultRentBalance(address solana.PublicKey) int64 {
	return bt.GetBalance(NewVaultAccountKey(address, SubTypeRent, AssetSOL))
}

// === Pre-Checks ===

// ValidateSufficientWallet checks a wallet can cover a transfer
func (bt *BalanceTracker) ValidateSufficientWallet(owner solana.PublicKey, assetID AssetID, required int64) error {
	have := bt.GetWalletBalance(owner, assetID)
	if have < required {
		return fmt.Errorf("wallet %s asset %d: have=%d, need=%d: %w",
			owner.String(), assetID, have, required, ErrInsufficientBalance)
	}
	return nil
}

// ValidateSufficientVault checks a vault can cover a transfer
func (bt *BalanceTracker) ValidateSufficientVault(address solana.PublicKey, assetID AssetID, required int64) error {
	have := bt.GetVaultBalance(address, assetID)
	if have < required {
		return fmt.Errorf("vault %s asset %d: have=%d, need=%d: %w",
			address.String(), assetID, have, required, ErrInsufficientBalance)
	}
	return nil
}

// ComputeGlobalBalance sums all account balances (should be 0 for zero-sum ledger)
func (bt *BalanceTracker) ComputeGlobalBalance() map[AssetID]int64 {
	totals := make(map[AssetID]int64)

	for key, balance := range bt.balances {
		totals[key.AssetID] += balance
	}

	return totals
}

// ValidateNonNegative checks that a specific account balance is >= 0
func (bt *BalanceTracker) ValidateNonNegative(key AccountKey) error {
	balance := bt.GetBalance(key)
	if balance < 0 {
		return fmt.Errorf("account %s has negative balance: %d", key.AccountPath(), balance)
	}
	return nil
}

// Snapshot returns a copy of all balances (for state hashing)
func (bt *BalanceTracker) Snapshot() map[AccountKey]int64 {
	snapshot := make(map[AccountKey]int64, len(bt.balances))
	for k, v := range bt.balances {
		snapshot[k] = v
	}
	return snapshot
}
