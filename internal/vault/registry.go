package vault

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"ScySettle/internal/ledger"
)

var (
	ErrAlreadyExists  = errors.New("vault already exists")
	ErrNotInitialized = errors.New("vault not initialized")
	ErrUnknownLabel   = errors.New("unknown vault label")
)

// Seed labels for custody address derivation. The same label always
// derives the same (address, bump) for a given program id.
const (
	LabelNative = "pda_sol"
	LabelSale   = "pda_spl_ata"
	LabelUSDC   = "pda_usdc_ata"
	LabelUSDT   = "pda_usdt_ata"
)

// Rent lamports for each account class, matching on-chain rent exemption.
const (
	RentNativeVault int64 = 890_880
	RentTokenVault  int64 = 2_039_280
	RentStateAcct   int64 = 1_628_640
)

type Status int32

const (
	StatusUnopened Status = iota
	StatusActive
	StatusClosed
)

// Vault is one custody account with a deterministically derived address
type Vault struct {
	Label        string
	AssetID      ledger.AssetID
	Address      solana.PublicKey
	Bump         uint8
	Status       Status
	RentLamports int64
}

// Registry tracks the four custody vaults of the sale
type Registry struct {
	programID solana.PublicKey
	vaults    map[string]*Vault
}

var labelAssets = map[string]ledger.AssetID{
	LabelNative: ledger.AssetSOL,
	LabelSale:   ledger.AssetSCY,
	LabelUSDC:   ledger.AssetUSDC,
	LabelUSDT:   ledger.AssetUSDT,
}

func NewRegistry(programID solana.PublicKey) *Registry {
	return &Registry{
		programID: programID,
		vaults:    make(map[string]*Vault, len(labelAssets)),
	}
}

// Derive computes the custody address for a seed label without opening it.
// Derivation is pure: same label and program id always yield the same pair.
func (r *Registry) Derive(label string) (solana.PublicKey, uint8, error) {
	if _, ok := labelAssets[label]; !ok {
		return solana.PublicKey{}, 0, fmt.Errorf("label %q: %w", label, ErrUnknownLabel)
	}
	addr, bump, err := solana.FindProgramAddress([][]byte{[]byte(label)}, r.programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive %q: %w", label, err)
	}
	return addr, bump, nil
}

// Open creates the vault for a label. Fails if the vault is already active.
func (r *Registry) Open(label string) (*Vault, error) {
	assetID, ok := labelAssets[label]
	if !ok {
		return nil, fmt.Errorf("label %q: %w", label, ErrUnknownLabel)
	}

	if existing, ok := r.vaults[label]; ok && existing.Status == StatusActive {
		return nil, fmt.Errorf("vault %q at %s: %w", label, existing.Address.String(), ErrAlreadyExists)
	}

	addr, bump, err := r.Derive(label)
	if err != nil {
		return nil, err
	}

	rent := RentTokenVault
	if label == LabelNative {
		rent = RentNativeVault
	}

	v := &Vault{
		Label:        label,
		AssetID:      assetID,
		Address:      addr,
		Bump:         bump,
		Status:       StatusActive,
		RentLamports: rent,
	}
	r.vaults[label] = v
	return v, nil
}

// Get returns the active vault for a label
func (r *Registry) Get(label string) (*Vault, error) {
	v, ok := r.vaults[label]
	if !ok || v.Status != StatusActive {
		return nil, fmt.Errorf("vault %q: %w", label, ErrNotInitialized)
	}
	return v, nil
}

// Close marks an active vault closed. Balance emptiness is the caller's
// responsibility; the registry only tracks lifecycle.
func (r *Registry) Close(label string) (*Vault, error) {
	v, ok := r.vaults[label]
	if !ok || v.Status != StatusActive {
		return nil, fmt.Errorf("vault %q: %w", label, ErrNotInitialized)
	}
	v.Status = StatusClosed
	return v, nil
}

// ActiveVaults returns all active vaults in deterministic label order
func (r *Registry) ActiveVaults() []*Vault {
	out := make([]*Vault, 0, len(r.vaults))
	for _, label := range []string{LabelNative, LabelSale, LabelUSDC, LabelUSDT} {
		if v, ok := r.vaults[label]; ok && v.Status == StatusActive {
			out = append(out, v)
		}
	}
	return out
}

// All returns every known vault record, active or closed, in label order
func (r *Registry) All() []*Vault {
	out := make([]*Vault, 0, len(r.vaults))
	for _, label := range AllLabels() {
		if v, ok := r.vaults[label]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Restore reinstates a vault record from a snapshot
func (r *Registry) Restore(v *Vault) {
	copied := *v
	r.vaults[v.Label] = &copied
}

// AllLabels returns every recognized seed label in deterministic order
func AllLabels() []string {
	return []string{LabelNative, LabelSale, LabelUSDC, LabelUSDT}
}

// InputLabels returns the labels of payment vaults swept by a withdrawal.
// The sale vault is never swept.
func InputLabels() []string {
	return []string{LabelNative, LabelUSDC, LabelUSDT}
}
