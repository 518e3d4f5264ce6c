package ledger

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// Well-known asset ids. SOL is used for every rent movement.
const (
	AssetSOL  AssetID = 1
	AssetSCY  AssetID = 2
	AssetUSDC AssetID = 3
	AssetUSDT AssetID = 4
)

// stateRentLabel names the system account that escrows the settlement
// state account's rent lamports.
const stateRentLabel = "sale_state"

// JournalGenerator creates balanced journal batches from instructions
type JournalGenerator struct {
	sequence       int64
	balanceTracker *BalanceTracker // Reference for pre-checks
}

func NewJournalGenerator(startSequence int64, tracker *BalanceTracker) *JournalGenerator {
	return &JournalGenerator{
		sequence:       startSequence,
		balanceTracker: tracker,
	}
}

// SetSequence realigns the generator after snapshot recovery
func (jg *JournalGenerator) SetSequence(seq int64) {
	jg.sequence = seq
}

func (jg *JournalGenerator) newBatch(instrRef string, timestamp int64, capacity int) *Batch {
	return &Batch{
		BatchID:   uuid.New(),
		InstrRef:  instrRef,
		Sequence:  jg.sequence,
		Timestamp: timestamp,
		Journals:  make([]Journal, 0, capacity),
	}
}

func (jg *JournalGenerator) appendJournal(b *Batch, debit, credit AccountKey, assetID AssetID, amount int64, jt JournalType) {
	b.Journals = append(b.Journals, Journal{
		JournalID:     uuid.New(),
		BatchID:       b.BatchID,
		InstrRef:      b.InstrRef,
		Sequence:      b.Sequence,
		DebitAccount:  debit,
		CreditAccount: credit,
		AssetID:       assetID,
		Amount:        amount,
		JournalType:   jt,
		Timestamp:     b.Timestamp,
	})
}

// GenerateWalletFund mirrors external funding of a tracked wallet.
// Moves funds: external:funding → wallet
func (jg *JournalGenerator) GenerateWalletFund(
	owner solana.PublicKey,
	assetID AssetID,
	amount int64,
	instrRef string,
	timestamp int64,
) (*Batch, error) {
	batch := jg.newBatch(instrRef, timestamp, 1)
	jg.appendJournal(batch,
		NewWalletAccountKey(owner, assetID),
		NewExternalAccountKey(SubTypeExternalFunding, assetID),
		assetID, amount, JournalTypeWalletFund)
	jg.sequence++
	return batch, nil
}

// GenerateSaleDeposit moves sale tokens from the admin wallet into the sale vault.
// Pre-check: admin wallet must cover the amount.
func (jg *JournalGenerator) GenerateSaleDeposit(
	admin solana.PublicKey,
	saleVault solana.PublicKey,
	assetID AssetID,
	amount int64,
	instrRef string,
	timestamp int64,
) (*Batch, error) {
	if err := jg.balanceTracker.ValidateSufficientWallet(admin, assetID, amount); err != nil {
		return nil, fmt.Errorf("deposit pre-check failed: %w", err)
	}

	batch := jg.newBatch(instrRef, timestamp, 1)
	jg.appendJournal(batch,
		NewVaultAccountKey(saleVault, SubTypeMain, assetID),
		NewWalletAccountKey(admin, assetID),
		assetID, amount, JournalTypeSaleDeposit)
	jg.sequence++
	return batch, nil
}

// GenerateVaultRentEscrow books account rent from the admin wallet into the
// vault's rent sub-account when a vault is opened.
func (jg *JournalGenerator) GenerateVaultRentEscrow(
	admin solana.PublicKey,
	vault solana.PublicKey,
	rentLamports int64,
	instrRef string,
	timestamp int64,
) (*Batch, error) {
	if err := jg.balanceTracker.ValidateSufficientWallet(admin, AssetSOL, rentLamports); err != nil {
		return nil, fmt.Errorf("rent escrow pre-check failed: %w", err)
	}

	batch := jg.newBatch(instrRef, timestamp, 1)
	jg.appendJournal(batch,
		NewVaultAccountKey(vault, SubTypeRent, AssetSOL),
		NewWalletAccountKey(admin, AssetSOL),
		AssetSOL, rentLamports, JournalTypeRentEscrow)
	jg.sequence++
	return batch, nil
}

// GenerateVaultRentRefund returns escrowed rent to the admin wallet when a
// vault account is closed. The refund amount is the full escrowed balance.
func (jg *JournalGenerator) GenerateVaultRentRefund(
	admin solana.PublicKey,
	vault solana.PublicKey,
	instrRef string,
	timestamp int64,
) (*Batch, error) {
	rent := jg.balanceTracker.GetVaultRentBalance(vault)
	if rent <= 0 {
		return nil, fmt.Errorf("vault %s rent refund: no escrowed rent: %w",
			vault.String(), ErrInsufficientBalance)
	}

	batch := jg.newBatch(instrRef, timestamp, 1)
	jg.appendJournal(batch,
		NewWalletAccountKey(admin, AssetSOL),
		NewVaultAccountKey(vault, SubTypeRent, AssetSOL),
		AssetSOL, rent, JournalTypeRentRefund)
	jg.sequence++
	return batch, nil
}

// GenerateStateRentEscrow books the settlement state account's rent from the
// wallet of the caller who initializes the state.
func (jg *JournalGenerator) GenerateStateRentEscrow(
	admin solana.PublicKey,
	rentLamports int64,
	instrRef string,
	timestamp int64,
) (*Batch, error) {
	if err := jg.balanceTracker.ValidateSufficientWallet(admin, AssetSOL, rentLamports); err != nil {
		return nil, fmt.Errorf("state rent escrow pre-check failed: %w", err)
	}

	batch := jg.newBatch(instrRef, timestamp, 1)
	jg.appendJournal(batch,
		NewSystemAccountKey(stateRentLabel, SubTypeRent, AssetSOL),
		NewWalletAccountKey(admin, AssetSOL),
		AssetSOL, rentLamports, JournalTypeRentEscrow)
	jg.sequence++
	return batch, nil
}

// GenerateStateRentRefund returns the state account's rent to the admin
// wallet when the settlement state is closed.
func (jg *JournalGenerator) GenerateStateRentRefund(
	admin solana.PublicKey,
	instrRef string,
	timestamp int64,
) (*Batch, error) {
	key := NewSystemAccountKey(stateRentLabel, SubTypeRent, AssetSOL)
	rent := jg.balanceTracker.GetBalance(key)
	if rent <= 0 {
		return nil, fmt.Errorf("state rent refund: no escrowed rent: %w", ErrInsufficientBalance)
	}

	batch := jg.newBatch(instrRef, timestamp, 1)
	jg.appendJournal(batch,
		NewWalletAccountKey(admin, AssetSOL),
		key,
		AssetSOL, rent, JournalTypeRentRefund)
	jg.sequence++
	return batch, nil
}

// GenerateBuy creates the two-leg settlement batch for a purchase:
// payment  buyer wallet → payment vault
// delivery sale vault   → buyer wallet
// Pre-checks guarantee both legs can apply, so the batch settles atomically.
func (jg *JournalGenerator) GenerateBuy(
	buyer solana.PublicKey,
	payAssetID AssetID,
	payAmount int64,
	payVault solana.PublicKey,
	saleAssetID AssetID,
	saleAmount int64,
	saleVault solana.PublicKey,
	instrRef string,
	timestamp int64,
) (*Batch, error) {
	if err := jg.balanceTracker.ValidateSufficientWallet(buyer, payAssetID, payAmount); err != nil {
		return nil, fmt.Errorf("buy payment pre-check failed: %w", err)
	}
	if err := jg.balanceTracker.ValidateSufficientVault(saleVault, saleAssetID, saleAmount); err != nil {
		return nil, fmt.Errorf("buy delivery pre-check failed: %w", err)
	}

	batch := jg.newBatch(instrRef, timestamp, 2)
	jg.appendJournal(batch,
		NewVaultAccountKey(payVault, SubTypeMain, payAssetID),
		NewWalletAccountKey(buyer, payAssetID),
		payAssetID, payAmount, JournalTypeBuyPayment)
	jg.appendJournal(batch,
		NewWalletAccountKey(buyer, saleAssetID),
		NewVaultAccountKey(saleVault, SubTypeMain, saleAssetID),
		saleAssetID, saleAmount, JournalTypeBuyDelivery)
	jg.sequence++
	return batch, nil
}

// SweepLeg names one vault to drain during a withdrawal
type SweepLeg struct {
	Vault   solana.PublicKey
	AssetID AssetID
	Amount  int64
}

// GenerateSweep drains the given vaults into the admin wallet.
// Legs with zero amounts must be filtered by the caller; an empty leg set
// returns a nil batch (the withdrawal is a no-op).
func (jg *JournalGenerator) GenerateSweep(
	admin solana.PublicKey,
	legs []SweepLeg,
	instrRef string,
	timestamp int64,
) (*Batch, error) {
	if len(legs) == 0 {
		return nil, nil
	}

	for _, leg := range legs {
		if err := jg.balanceTracker.ValidateSufficientVault(leg.Vault, leg.AssetID, leg.Amount); err != nil {
			return nil, fmt.Errorf("sweep pre-check failed: %w", err)
		}
	}

	batch := jg.newBatch(instrRef, timestamp, len(legs))
	for _, leg := range legs {
		jg.appendJournal(batch,
			NewWalletAccountKey(admin, leg.AssetID),
			NewVaultAccountKey(leg.Vault, SubTypeMain, leg.AssetID),
			leg.AssetID, leg.Amount, JournalTypeSweep)
	}
	jg.sequence++
	return batch, nil
}
