package state

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrNotInitialized     = errors.New("not initialized")
	ErrUnsupportedMint    = errors.New("unsupported mint")
)

// Phase is the settlement state lifecycle.
// Closed is terminal: every instruction after close_state fails NotInitialized.
type Phase int32

const (
	PhaseUninitialized Phase = iota
	PhaseActive
	PhaseClosed
)

// SaleState holds the sale's admin authority and accepted payment mints
type SaleState struct {
	Phase           Phase
	Admin           solana.PublicKey
	AcceptedMints   map[string]solana.PublicKey // symbol → mint address
	InitializedAtUs int64
}

func NewSaleState() *SaleState {
	return &SaleState{
		Phase:         PhaseUninitialized,
		AcceptedMints: make(map[string]solana.PublicKey),
	}
}

// Initialize creates the settlement state. The caller becomes admin.
func (s *SaleState) Initialize(caller solana.PublicKey, acceptedMints map[string]solana.PublicKey, timestampUs int64) error {
	if s.Phase != PhaseUninitialized {
		return fmt.Errorf("state phase %d: %w", s.Phase, ErrAlreadyInitialized)
	}

	s.Phase = PhaseActive
	s.Admin = caller
	s.InitializedAtUs = timestampUs
	s.AcceptedMints = make(map[string]solana.PublicKey, len(acceptedMints))
	for symbol, mint := range acceptedMints {
		s.AcceptedMints[symbol] = mint
	}
	return nil
}

// RequireActive gates every post-init instruction
func (s *SaleState) RequireActive() error {
	if s.Phase != PhaseActive {
		return fmt.Errorf("state phase %d: %w", s.Phase, ErrNotInitialized)
	}
	return nil
}

// RequireAdmin gates admin instructions on the stored authority
func (s *SaleState) RequireAdmin(caller solana.PublicKey) error {
	if err := s.RequireActive(); err != nil {
		return err
	}
	if !caller.Equals(s.Admin) {
		return fmt.Errorf("caller %s is not admin: %w", caller.String(), ErrUnauthorized)
	}
	return nil
}

// ResolveMint checks a payment mint against the accepted set and returns
// its symbol. Unknown mints fail UnsupportedMint.
func (s *SaleState) ResolveMint(mint solana.PublicKey) (string, error) {
	for symbol, accepted := range s.AcceptedMints {
		if accepted.Equals(mint) {
			return symbol, nil
		}
	}
	return "", fmt.Errorf("mint %s: %w", mint.String(), ErrUnsupportedMint)
}

// UpdateAdmin rotates the admin authority. Rotating to the current admin
// is a no-op success.
func (s *SaleState) UpdateAdmin(caller, newAdmin solana.PublicKey) error {
	if err := s.RequireAdmin(caller); err != nil {
		return err
	}
	s.Admin = newAdmin
	return nil
}

// Close transitions to the terminal phase
func (s *SaleState) Close(caller solana.PublicKey) error {
	if err := s.RequireAdmin(caller); err != nil {
		return err
	}
	s.Phase = PhaseClosed
	return nil
}
