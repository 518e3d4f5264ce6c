package ledger

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// AccountScope represents the top-level account namespace
type AccountScope uint8

const (
	AccountScopeVault AccountScope = iota
	AccountScopeWallet
	AccountScopeSystem
	AccountScopeExternal
)

// AccountSubType represents the account purpose
type AccountSubType uint8

const (
	// Vault / wallet sub-types
	SubTypeMain AccountSubType = iota
	SubTypeRent

	// External sub-types
	SubTypeExternalFunding
	SubTypeExternalSettlement
)

// AssetID maps asset symbols to numeric IDs for performance
type AssetID uint16

var (
	assetToID = map[string]AssetID{
		"SOL":  1,
		"SCY":  2,
		"USDC": 3,
		"USDT": 4,
	}
	idToAsset = map[AssetID]string{
		1: "SOL",
		2: "SCY",
		3: "USDC",
		4: "USDT",
	}
	// Base-unit decimal scale per asset (lamports for SOL, token base units otherwise)
	assetDecimals = map[AssetID]int32{
		1: 9,
		2: 6,
		3: 6,
		4: 6,
	}
)

func GetAssetID(asset string) (AssetID, bool) {
	id, ok := assetToID[asset]
	return id, ok
}

func GetAssetName(id AssetID) (string, bool) {
	name, ok := idToAsset[id]
	return name, ok
}

// GetAssetDecimals returns the base-unit decimal scale for an asset.
func GetAssetDecimals(id AssetID) (int32, bool) {
	d, ok := assetDecimals[id]
	return d, ok
}

// AccountKey is the in-memory key for balance tracking (36 bytes, cache-friendly)
type AccountKey struct {
	Scope    AccountScope
	EntityID [32]byte // Solana public key for vaults/wallets, padded label for system accounts
	SubType  AccountSubType
	AssetID  AssetID
}

// NewVaultAccountKey creates a key for a custody vault account
func NewVaultAccountKey(address solana.PublicKey, subType AccountSubType, assetID AssetID) AccountKey {
	return AccountKey{
		Scope:    AccountScopeVault,
		EntityID: address,
		SubType:  subType,
		AssetID:  assetID,
	}
}

// NewWalletAccountKey creates a key for a tracked external wallet (buyer or admin)
func NewWalletAccountKey(owner solana.PublicKey, assetID AssetID) AccountKey {
	return AccountKey{
		Scope:    AccountScopeWallet,
		EntityID: owner,
		SubType:  SubTypeMain,
		AssetID:  assetID,
	}
}

// NewSystemAccountKey creates a key for system accounts
func NewSystemAccountKey(name string, subType AccountSubType, assetID AssetID) AccountKey {
	var entityID [32]byte
	copy(entityID[:], []byte(name))
	return AccountKey{
		Scope:    AccountScopeSystem,
		EntityID: entityID,
		SubType:  subType,
		AssetID:  assetID,
	}
}

// NewExternalAccountKey creates a key for external boundary accounts
func NewExternalAccountKey(subType AccountSubType, assetID AssetID) AccountKey {
	return AccountKey{
		Scope:   AccountScopeExternal,
		SubType: subType,
		AssetID: assetID,
	}
}

// AccountPath returns the string representation for storage/logging
func (k AccountKey) AccountPath() string {
	assetName, _ := GetAssetName(k.AssetID)

	switch k.Scope {
	case AccountScopeVault:
		addr := solana.PublicKeyFromBytes(k.EntityID[:])
		return fmt.Sprintf("vault:%s:%s:%s", addr.String(), k.subTypeName(), assetName)
	case AccountScopeWallet:
		owner := solana.PublicKeyFromBytes(k.EntityID[:])
		return fmt.Sprintf("wallet:%s:%s", owner.String(), assetName)
	case AccountScopeSystem:
		return fmt.Sprintf("system:%s:%s:%s", trimLabel(k.EntityID), k.subTypeName(), assetName)
	case AccountScopeExternal:
		return fmt.Sprintf("external:%s:%s", k.subTypeName(), assetName)
	}
	return "unknown"
}

func (k AccountKey) subTypeName() string {
	switch k.SubType {
	case SubTypeMain:
		return "main"
	case SubTypeRent:
		return "rent"
	case SubTypeExternalFunding:
		return "funding"
	case SubTypeExternalSettlement:
		return "settlement"
	default:
		return "unknown"
	}
}

func trimLabel(entityID [32]byte) string {
	n := 0
	for n < len(entityID) && entityID[n] != 0 {
		n++
	}
	return string(entityID[:n])
}
