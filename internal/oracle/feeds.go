package oracle

import (
	"encoding/hex"

	"github.com/gagliardetto/solana-go"

	"ScySettle/internal/ledger"
)

// Feed identifies one price feed: the on-chain account that serves it and
// the 32-byte feed id embedded in its payload.
type Feed struct {
	Symbol  string
	AssetID ledger.AssetID
	Account solana.PublicKey
	FeedID  [32]byte
}

// Production Pyth feeds for the accepted payment assets.
var (
	feedSOL = mustFeed("SOL", ledger.AssetSOL,
		"H6ARHf6YXhGYeQfUzQNGk6rDNnLBQKrenN712K4AQJEG",
		"ef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d")
	feedUSDC = mustFeed("USDC", ledger.AssetUSDC,
		"Gnt27xtC473ZT2Mw5u8wZ68Z3gULkSTb5DuxJy7eJotD",
		"eaa020c61cc479712813461ce153894a96a6c00b21ed0cfc2798d1f9a9e9c94a")
	feedUSDT = mustFeed("USDT", ledger.AssetUSDT,
		"3vxLXJqLqF3JG5TCbYycbKWRBbCJQLxQmBGCkyqEEefL",
		"2b89b9dc8fdf9f34709a5b106b472f0f39bb6ca9ce04b0fd7f2e971688e2e53b")
)

func mustFeed(symbol string, assetID ledger.AssetID, account, feedIDHex string) Feed {
	acct := solana.MustPublicKeyFromBase58(account)
	raw, err := hex.DecodeString(feedIDHex)
	if err != nil || len(raw) != 32 {
		panic("oracle: bad feed id for " + symbol)
	}
	var id [32]byte
	copy(id[:], raw)
	return Feed{Symbol: symbol, AssetID: assetID, Account: acct, FeedID: id}
}

// DefaultFeeds returns the production feed registry keyed by asset.
func DefaultFeeds() map[ledger.AssetID]Feed {
	return map[ledger.AssetID]Feed{
		ledger.AssetSOL:  feedSOL,
		ledger.AssetUSDC: feedUSDC,
		ledger.AssetUSDT: feedUSDT,
	}
}
