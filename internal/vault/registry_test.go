package vault_test

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	"ScySettle/internal/ledger"
	"ScySettle/internal/vault"
)

var testProgramID = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

// ============================================================================
// Test: derivation
// ============================================================================

func TestDerive_Deterministic(t *testing.T) {
	r1 := vault.NewRegistry(testProgramID)
	r2 := vault.NewRegistry(testProgramID)

	for _, label := range vault.AllLabels() {
		a1, b1, err := r1.Derive(label)
		if err != nil {
			t.Fatalf("Derive(%q): %v", label, err)
		}
		a2, b2, err := r2.Derive(label)
		if err != nil {
			t.Fatalf("Derive(%q): %v", label, err)
		}
		if !a1.Equals(a2) || b1 != b2 {
			t.Errorf("derivation for %q is not deterministic: (%s,%d) vs (%s,%d)",
				label, a1, b1, a2, b2)
		}
	}
}

func TestDerive_DistinctPerLabel(t *testing.T) {
	r := vault.NewRegistry(testProgramID)
	seen := make(map[solana.PublicKey]string)

	for _, label := range vault.AllLabels() {
		addr, _, err := r.Derive(label)
		if err != nil {
			t.Fatalf("Derive(%q): %v", label, err)
		}
		if prev, dup := seen[addr]; dup {
			t.Errorf("labels %q and %q derive the same address %s", prev, label, addr)
		}
		seen[addr] = label
	}
}

func TestDerive_DependsOnProgramID(t *testing.T) {
	other := solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	a1, _, _ := vault.NewRegistry(testProgramID).Derive(vault.LabelNative)
	a2, _, _ := vault.NewRegistry(other).Derive(vault.LabelNative)
	if a1.Equals(a2) {
		t.Errorf("different program ids derived the same address %s", a1)
	}
}

func TestDerive_UnknownLabel(t *testing.T) {
	r := vault.NewRegistry(testProgramID)
	_, _, err := r.Derive("pda_bogus")
	if !errors.Is(err, vault.ErrUnknownLabel) {
		t.Errorf("err = %v, want ErrUnknownLabel", err)
	}
}

// ============================================================================
// Test: lifecycle
// ============================================================================

func TestOpen_SetsAssetAndRent(t *testing.T) {
	r := vault.NewRegistry(testProgramID)

	native, err := r.Open(vault.LabelNative)
	if err != nil {
		t.Fatalf("Open native: %v", err)
	}
	if native.AssetID != ledger.AssetSOL {
		t.Errorf("native asset = %d, want %d", native.AssetID, ledger.AssetSOL)
	}
	if native.RentLamports != vault.RentNativeVault {
		t.Errorf("native rent = %d, want %d", native.RentLamports, vault.RentNativeVault)
	}

	sale, err := r.Open(vault.LabelSale)
	if err != nil {
		t.Fatalf("Open sale: %v", err)
	}
	if sale.AssetID != ledger.AssetSCY {
		t.Errorf("sale asset = %d, want %d", sale.AssetID, ledger.AssetSCY)
	}
	if sale.RentLamports != vault.RentTokenVault {
		t.Errorf("sale rent = %d, want %d", sale.RentLamports, vault.RentTokenVault)
	}
}

func TestOpen_Twice(t *testing.T) {
	r := vault.NewRegistry(testProgramID)
	if _, err := r.Open(vault.LabelUSDC); err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, err := r.Open(vault.LabelUSDC)
	if !errors.Is(err, vault.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestGet_UnopenedAndClosed(t *testing.T) {
	r := vault.NewRegistry(testProgramID)

	if _, err := r.Get(vault.LabelUSDT); !errors.Is(err, vault.ErrNotInitialized) {
		t.Errorf("unopened: err = %v, want ErrNotInitialized", err)
	}

	if _, err := r.Open(vault.LabelUSDT); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := r.Get(vault.LabelUSDT); err != nil {
		t.Errorf("active: err = %v, want nil", err)
	}

	if _, err := r.Close(vault.LabelUSDT); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := r.Get(vault.LabelUSDT); !errors.Is(err, vault.ErrNotInitialized) {
		t.Errorf("closed: err = %v, want ErrNotInitialized", err)
	}
}

func TestClose_NotActive(t *testing.T) {
	r := vault.NewRegistry(testProgramID)
	if _, err := r.Close(vault.LabelNative); !errors.Is(err, vault.ErrNotInitialized) {
		t.Errorf("err = %v, want ErrNotInitialized", err)
	}
}

func TestActiveVaults_Order(t *testing.T) {
	r := vault.NewRegistry(testProgramID)

	// Open out of order; listing is always label order.
	for _, label := range []string{vault.LabelUSDT, vault.LabelNative, vault.LabelSale, vault.LabelUSDC} {
		if _, err := r.Open(label); err != nil {
			t.Fatalf("Open(%q): %v", label, err)
		}
	}

	active := r.ActiveVaults()
	want := vault.AllLabels()
	if len(active) != len(want) {
		t.Fatalf("len(active) = %d, want %d", len(active), len(want))
	}
	for i, v := range active {
		if v.Label != want[i] {
			t.Errorf("active[%d] = %q, want %q", i, v.Label, want[i])
		}
	}

	if _, err := r.Close(vault.LabelSale); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := len(r.ActiveVaults()); got != 3 {
		t.Errorf("active after close = %d, want 3", got)
	}
	if got := len(r.All()); got != 4 {
		t.Errorf("all after close = %d, want 4", got)
	}
}

func TestInputLabels_ExcludeSaleVault(t *testing.T) {
	for _, label := range vault.InputLabels() {
		if label == vault.LabelSale {
			t.Fatalf("sale vault %q listed as sweepable", label)
		}
	}
	if got := len(vault.InputLabels()); got != 3 {
		t.Errorf("len(InputLabels) = %d, want 3", got)
	}
}

func TestRestore_CopiesRecord(t *testing.T) {
	r := vault.NewRegistry(testProgramID)
	addr, bump, _ := r.Derive(vault.LabelNative)

	snap := &vault.Vault{
		Label:        vault.LabelNative,
		AssetID:      ledger.AssetSOL,
		Address:      addr,
		Bump:         bump,
		Status:       vault.StatusActive,
		RentLamports: vault.RentNativeVault,
	}
	r.Restore(snap)

	got, err := r.Get(vault.LabelNative)
	if err != nil {
		t.Fatalf("Get after restore: %v", err)
	}

	// The registry keeps its own copy
	snap.Status = vault.StatusClosed
	if got.Status != vault.StatusActive {
		t.Errorf("restored vault aliases the snapshot record")
	}
}
