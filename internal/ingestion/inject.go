package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"ScySettle/internal/instruction"
)

// InjectService provides admin/manual instruction injection. It feeds the
// same channel as the NATS path, so injected instructions flow through the
// full pipeline (idempotency, ordering, journals, persistence). Not for
// high-throughput ingestion — use NATS for that.
type InjectService struct {
	instrChan chan<- instruction.Instruction
}

func NewInjectService(instrChan chan<- instruction.Instruction) *InjectService {
	return &InjectService{instrChan: instrChan}
}

// InjectWalletCredit mirrors an out-of-band funding of a tracked wallet.
// slot must be at or past the chain watermark or the core rejects it.
func (s *InjectService) InjectWalletCredit(
	ctx context.Context,
	owner solana.PublicKey,
	asset string,
	amount int64,
	slot uint64,
) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	instr := &instruction.WalletCredit{
		Base: instruction.Base{
			InstrID:   uuid.New().String(),
			Caller:    owner,
			Slot:      slot,
			Timestamp: time.Now().UnixMicro(),
		},
		Owner:  owner,
		Asset:  asset,
		Amount: amount,
	}

	select {
	case s.instrChan <- instr:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InjectWithdraw manually triggers an admin sweep of the payment vaults.
func (s *InjectService) InjectWithdraw(
	ctx context.Context,
	admin solana.PublicKey,
	slot uint64,
) error {
	instr := &instruction.Withdraw{
		Base: instruction.Base{
			InstrID:   uuid.New().String(),
			Caller:    admin,
			Slot:      slot,
			Timestamp: time.Now().UnixMicro(),
		},
	}

	select {
	case s.instrChan <- instr:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InjectSamplePrices requests a diagnostic read of the given oracle feeds.
func (s *InjectService) InjectSamplePrices(
	ctx context.Context,
	caller solana.PublicKey,
	observations []instruction.OracleObservation,
	slot uint64,
) error {
	if len(observations) == 0 {
		return fmt.Errorf("no observations supplied")
	}

	instr := &instruction.SamplePrices{
		Base: instruction.Base{
			InstrID:   uuid.New().String(),
			Caller:    caller,
			Slot:      slot,
			Timestamp: time.Now().UnixMicro(),
		},
		Observations: observations,
	}

	select {
	case s.instrChan <- instr:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
