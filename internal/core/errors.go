package core

import (
	"errors"

	"ScySettle/internal/ledger"
	fpmath "ScySettle/internal/math"
	"ScySettle/internal/oracle"
	"ScySettle/internal/state"
	"ScySettle/internal/vault"
)

// ErrNonEmptyVault rejects close_vault/close_state while funds remain in
// custody. There is no implicit sweep: the admin must withdraw first.
var ErrNonEmptyVault = errors.New("non-empty vault")

// RejectReason maps a dispatch error to a stable metric label.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, state.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, state.ErrAlreadyInitialized):
		return "already_initialized"
	case errors.Is(err, vault.ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, state.ErrNotInitialized), errors.Is(err, vault.ErrNotInitialized):
		return "not_initialized"
	case errors.Is(err, state.ErrUnsupportedMint):
		return "unsupported_mint"
	case errors.Is(err, oracle.ErrInvalidPriceFeed):
		return "invalid_price_feed"
	case errors.Is(err, oracle.ErrStalePrice):
		return "stale_price"
	case errors.Is(err, oracle.ErrLowConfidencePrice):
		return "low_confidence_price"
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, fpmath.ErrArithmeticOverflow):
		return "arithmetic_overflow"
	case errors.Is(err, ErrNonEmptyVault):
		return "non_empty_vault"
	default:
		return "internal"
	}
}
