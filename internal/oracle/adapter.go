package oracle

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"ScySettle/internal/ledger"
	fpmath "ScySettle/internal/math"
)

var (
	ErrInvalidPriceFeed   = errors.New("invalid price feed")
	ErrStalePrice         = errors.New("stale price")
	ErrLowConfidencePrice = errors.New("low confidence price")
)

// Default freshness and confidence bounds.
const (
	MaxStalenessBuySec    int64 = 60
	MaxStalenessSampleSec int64 = 30
	MaxConfRatioBps       int64 = 200 // conf/|price| ≤ 2%
)

// Binary quote layout: 8-byte discriminator, 32-byte feed id, i64 price
// mantissa, u64 conf, i32 expo, i64 publish_time (all little-endian).
const quoteMinLen = 8 + 32 + 8 + 8 + 4 + 8

// Quote is a decoded, validated price observation
type Quote struct {
	FeedID      [32]byte
	Mantissa    int64
	Conf        uint64
	Exponent    int32
	PublishTime int64 // unix seconds
}

// Price converts the quote into the fixed-point shape used by settlement math
func (q Quote) Price() fpmath.Price {
	return fpmath.Price{Mantissa: q.Mantissa, Exponent: q.Exponent}
}

// Normalized renders mantissa × 10^expo as a decimal for logs and query
// responses. Settlement math never consumes this form.
func (q Quote) Normalized() decimal.Decimal {
	return decimal.New(q.Mantissa, q.Exponent)
}

// Adapter validates raw oracle account bytes against the feed registry
type Adapter struct {
	feeds           map[ledger.AssetID]Feed
	maxConfRatioBps int64
}

func NewAdapter(feeds map[ledger.AssetID]Feed) *Adapter {
	return &Adapter{
		feeds:           feeds,
		maxConfRatioBps: MaxConfRatioBps,
	}
}

// Feed returns the registered feed for an asset
func (a *Adapter) Feed(assetID ledger.AssetID) (Feed, bool) {
	f, ok := a.feeds[assetID]
	return f, ok
}

// DecodeQuote parses the binary quote payload without validating it
func DecodeQuote(data []byte) (Quote, error) {
	if len(data) < quoteMinLen {
		return Quote{}, fmt.Errorf("quote payload too short (%d bytes): %w", len(data), ErrInvalidPriceFeed)
	}

	var q Quote
	copy(q.FeedID[:], data[8:40])
	q.Mantissa = int64(binary.LittleEndian.Uint64(data[40:48]))
	q.Conf = binary.LittleEndian.Uint64(data[48:56])
	q.Exponent = int32(binary.LittleEndian.Uint32(data[56:60]))
	q.PublishTime = int64(binary.LittleEndian.Uint64(data[60:68]))
	return q, nil
}

// ValidateQuote decodes and checks an oracle observation for an asset.
// Check order: account identity, feed id, staleness, confidence, mantissa
// sign. nowUs is the instruction's versioned timestamp, never the wall clock.
func (a *Adapter) ValidateQuote(
	assetID ledger.AssetID,
	account solana.PublicKey,
	data []byte,
	nowUs int64,
	maxStalenessSec int64,
) (Quote, error) {
	feed, ok := a.feeds[assetID]
	if !ok {
		return Quote{}, fmt.Errorf("no feed registered for asset %d: %w", assetID, ErrInvalidPriceFeed)
	}

	if !account.Equals(feed.Account) {
		return Quote{}, fmt.Errorf("feed account %s does not match %s for %s: %w",
			account.String(), feed.Account.String(), feed.Symbol, ErrInvalidPriceFeed)
	}

	q, err := DecodeQuote(data)
	if err != nil {
		return Quote{}, err
	}

	if !bytes.Equal(q.FeedID[:], feed.FeedID[:]) {
		return Quote{}, fmt.Errorf("feed id mismatch for %s: %w", feed.Symbol, ErrInvalidPriceFeed)
	}

	nowSec := nowUs / 1_000_000
	age := nowSec - q.PublishTime
	if age < 0 {
		// A post-dated publish time would make the quote fresh forever
		return Quote{}, fmt.Errorf("%s quote publish time %d is ahead of instruction time %d: %w",
			feed.Symbol, q.PublishTime, nowSec, ErrStalePrice)
	}
	if age > maxStalenessSec {
		return Quote{}, fmt.Errorf("%s quote is %ds old (max %ds): %w",
			feed.Symbol, age, maxStalenessSec, ErrStalePrice)
	}

	if !fpmath.WithinConfidence(q.Mantissa, q.Conf, a.maxConfRatioBps) {
		return Quote{}, fmt.Errorf("%s quote conf %d exceeds %d bps of price %d: %w",
			feed.Symbol, q.Conf, a.maxConfRatioBps, q.Mantissa, ErrLowConfidencePrice)
	}

	if q.Mantissa <= 0 {
		return Quote{}, fmt.Errorf("%s quote has non-positive mantissa %d: %w",
			feed.Symbol, q.Mantissa, ErrInvalidPriceFeed)
	}

	return q, nil
}
