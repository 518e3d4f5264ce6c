package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ScySettle/internal/instruction"
	"ScySettle/internal/ledger"
	fpmath "ScySettle/internal/math"
	"ScySettle/internal/observability"
	"ScySettle/internal/oracle"
	"ScySettle/internal/state"
	"ScySettle/internal/vault"
)

// SettlementCore is the single-threaded instruction processor
type SettlementCore struct {
	sequence       int64
	hasher         *StateHasher
	balanceTracker *ledger.BalanceTracker
	journalGen     *ledger.JournalGenerator
	validator      *ledger.InvariantValidator
	saleState      *state.SaleState
	vaults         *vault.Registry
	oracleAdapter  *oracle.Adapter
	salePrice      fpmath.Price
	idempotency    *IdempotencyChecker
	slotValidator  *SlotValidator
	metrics        *observability.Metrics
	logger         zerolog.Logger

	persistChan    chan<- CoreOutput
	projectionChan chan<- CoreOutput

	// Set by buy handlers, attached to the output for projections
	pendingPurchase *PurchaseRecord

	// True while replaying the instruction log on startup. Replay skips
	// the DB idempotency tier and emits no outputs.
	replaying bool
}

// PurchaseRecord summarizes one settled buy for projections and
// outbound notifications.
type PurchaseRecord struct {
	Buyer         solana.PublicKey
	PayAsset      string
	PayAmount     int64
	SaleAmount    int64
	QuoteMantissa int64
	QuoteExponent int32
}

type CoreOutput struct {
	Envelope   *instruction.Envelope
	Batch      *ledger.Batch
	StateDelta []byte
	Purchase   *PurchaseRecord
}

// Config carries the fixed sale parameters
type Config struct {
	// ProgramID anchors vault address derivation
	ProgramID solana.PublicKey

	// SalePrice is USD per whole sale token, fixed for the sale.
	// Production: (2, -2) = $0.02.
	SalePrice fpmath.Price
}

func NewSettlementCore(
	cfg Config,
	startSequence int64,
	persistChan, projectionChan chan<- CoreOutput,
	dbChecker DBIdempotencyChecker,
	metrics *observability.Metrics,
) *SettlementCore {
	balanceTracker := ledger.NewBalanceTracker()
	validator := ledger.NewInvariantValidator(balanceTracker)
	journalGen := ledger.NewJournalGenerator(startSequence, balanceTracker)

	// Capacity of 1M dedup entries (configurable)
	idempotencyChecker := NewIdempotencyChecker(1_000_000, dbChecker)

	return &SettlementCore{
		sequence:       startSequence,
		hasher:         NewStateHasher(),
		balanceTracker: balanceTracker,
		journalGen:     journalGen,
		validator:      validator,
		saleState:      state.NewSaleState(),
		vaults:         vault.NewRegistry(cfg.ProgramID),
		oracleAdapter:  oracle.NewAdapter(oracle.DefaultFeeds()),
		salePrice:      cfg.SalePrice,
		idempotency:    idempotencyChecker,
		slotValidator:  NewSlotValidator(),
		metrics:        metrics,
		logger:         observability.NewLogger("core"),
		persistChan:    persistChan,
		projectionChan: projectionChan,
	}
}

// chainPartition is the slot-ordering partition. All instructions come from
// one chain, so a single partition suffices.
const chainPartition = "chain"

// ReplayInstruction reprocesses a logged instruction during startup
// recovery. The DB idempotency tier is bypassed — every logged row is in
// instr_log.instructions, so the two-tier check would skip the whole log —
// and no outputs are emitted: the row is already persisted, and projections
// rebuild from the log separately.
func (c *SettlementCore) ReplayInstruction(instr instruction.Instruction) error {
	c.replaying = true
	defer func() { c.replaying = false }()
	return c.ProcessInstruction(instr)
}

// ProcessInstruction is the main processing pipeline
func (c *SettlementCore) ProcessInstruction(instr instruction.Instruction) error {
	start := time.Now()
	instrType := instr.InstructionType().String()
	idempotencyKey := instr.IdempotencyKey()

	// Step 1: Idempotency check (two-tier; LRU only during replay)
	var isDuplicate bool
	if c.replaying {
		isDuplicate = c.idempotency.IsDuplicateLocal(instrType, idempotencyKey)
	} else {
		isDuplicate = c.idempotency.IsDuplicate(instrType, idempotencyKey)
	}

	// Step 2: Slot ordering (gaps tolerated, regressions rejected)
	if err := c.slotValidator.ValidateSlot(chainPartition, instr.SourceSlot(), idempotencyKey, isDuplicate); err != nil {
		if c.metrics != nil {
			c.metrics.SlotRegressions.WithLabelValues(chainPartition).Inc()
		}
		return fmt.Errorf("slot validation failed: %w", err)
	}

	// If duplicate, skip processing
	if isDuplicate {
		if c.metrics != nil {
			c.metrics.CoreInstrRejected.WithLabelValues(instrType, "duplicate").Inc()
		}
		return nil
	}

	// Serialize for the instruction log before dispatch: some handlers
	// mutate state, and a marshal failure after them would leave a mutation
	// behind a rejected instruction.
	payload, err := instruction.MarshalPayload(instr)
	if err != nil {
		if c.metrics != nil {
			c.metrics.CoreInstrRejected.WithLabelValues(instrType, "internal").Inc()
		}
		return fmt.Errorf("marshal payload: %w", err)
	}

	// Step 3: Dispatch. A rejected instruction mutates nothing.
	batch, err := c.dispatch(instr)
	if err != nil {
		c.pendingPurchase = nil
		if c.metrics != nil {
			c.metrics.CoreInstrRejected.WithLabelValues(instrType, RejectReason(err)).Inc()
		}
		return fmt.Errorf("dispatch failed: %w", err)
	}

	// Step 4: Validate and apply. State-only instructions (update_admin,
	// sample_prices) produce an empty batch but still get an envelope in
	// the instruction log.
	if len(batch.Journals) > 0 {
		if err := c.validator.ValidateBatchBalance(batch); err != nil {
			panic(fmt.Sprintf("FATAL: unbalanced batch: %v", err))
		}

		if err := c.balanceTracker.ApplyBatch(batch); err != nil {
			return fmt.Errorf("apply batch failed: %w", err)
		}

		if c.metrics != nil {
			for _, j := range batch.Journals {
				c.metrics.CoreJournals.WithLabelValues(j.JournalType.String()).Inc()
			}
		}
	}

	// Step 5: State digest + hash chain
	prevHash := c.hasher.GetPrevHash()
	stateDigest := c.computeStateDigest(batch)
	stateHash := c.hasher.ComputeHash(c.sequence, stateDigest)

	envelope := &instruction.Envelope{
		Sequence:       c.sequence,
		IdempotencyKey: idempotencyKey,
		InstrType:      instr.InstructionType(),
		Slot:           instr.SourceSlot(),
		TimestampUs:    instr.TimestampUs(),
		Payload:        payload,
		StateHash:      stateHash,
		PrevHash:       prevHash,
	}

	output := CoreOutput{
		Envelope:   envelope,
		Batch:      batch,
		StateDelta: stateDigest,
		Purchase:   c.pendingPurchase,
	}
	c.pendingPurchase = nil
	c.sequence++

	// Step 6: Post-check invariants. The account set is small, so the
	// zero-sum and non-negative custody checks run after every apply.
	if err := c.validator.ValidateGlobalBalance(); err != nil {
		panic(fmt.Sprintf("FATAL: invariant violated: %v", err))
	}
	if err := c.validator.ValidateCustodyNonNegative(); err != nil {
		panic(fmt.Sprintf("FATAL: invariant violated: %v", err))
	}

	// Step 7: Emit outputs. Replay emits nothing: the rows are already in
	// the log, and the workers are not draining yet during startup.
	if !c.replaying {
		// Persistence: blocking send — the core stalls until the
		// persistence worker drains. This guarantees no instruction is lost.
		c.persistChan <- output

		// Projections: non-blocking send — drop on full. Projection workers
		// rebuild from the instruction log if they fall behind.
		select {
		case c.projectionChan <- output:
		default:
			if c.metrics != nil {
				c.metrics.ProjectionDrops.WithLabelValues("balances").Inc()
			}
		}
	}

	// Step 8: Mark as processed (add to LRU)
	c.idempotency.MarkProcessed(instrType, idempotencyKey)

	if c.metrics != nil {
		c.metrics.CoreInstrApplied.WithLabelValues(instrType).Inc()
		c.metrics.CoreInstrDuration.WithLabelValues(instrType).Observe(time.Since(start).Seconds())
		c.metrics.CoreSequence.Set(float64(c.sequence))
	}

	if output.Purchase != nil && c.metrics != nil {
		c.metrics.SaleUnitsSold.WithLabelValues(output.Purchase.PayAsset).Add(float64(output.Purchase.SaleAmount))
		c.metrics.SalePaymentsTaken.WithLabelValues(output.Purchase.PayAsset).Add(float64(output.Purchase.PayAmount))
	}

	return nil
}

func (c *SettlementCore) dispatch(instr instruction.Instruction) (*ledger.Batch, error) {
	switch i := instr.(type) {
	case *instruction.InitializeState:
		return c.handleInitializeState(i)
	case *instruction.InitializeVault:
		return c.handleInitializeVault(i)
	case *instruction.Deposit:
		return c.handleDeposit(i)
	case *instruction.Withdraw:
		return c.handleWithdraw(i)
	case *instruction.UpdateAdmin:
		return c.handleUpdateAdmin(i)
	case *instruction.BuyWithNative:
		return c.handleBuyWithNative(i)
	case *instruction.BuyWithToken:
		return c.handleBuyWithToken(i)
	case *instruction.CloseVault:
		return c.handleCloseVault(i)
	case *instruction.CloseState:
		return c.handleCloseState(i)
	case *instruction.SamplePrices:
		return c.handleSamplePrices(i)
	case *instruction.WalletCredit:
		return c.handleWalletCredit(i)
	default:
		return nil, fmt.Errorf("unknown instruction type: %T", instr)
	}
}

// emptyBatch records an envelope for a state-only instruction.
// The generator's sequence advances too, so journal rows of later
// instructions keep matching their envelope sequence.
func (c *SettlementCore) emptyBatch(instr instruction.Instruction) *ledger.Batch {
	c.journalGen.SetSequence(c.sequence + 1)
	return &ledger.Batch{
		BatchID:   uuid.New(),
		InstrRef:  instr.IdempotencyKey(),
		Sequence:  c.sequence,
		Timestamp: instr.TimestampUs(),
		Journals:  []ledger.Journal{},
	}
}

func (c *SettlementCore) handleInitializeState(i *instruction.InitializeState) (*ledger.Batch, error) {
	if c.saleState.Phase != state.PhaseUninitialized {
		return nil, fmt.Errorf("initialize_state: %w", state.ErrAlreadyInitialized)
	}

	// Rent escrow is checked before the phase transition so a rejected
	// initialize leaves the state untouched.
	batch, err := c.journalGen.GenerateStateRentEscrow(
		i.Authority(), vault.RentStateAcct, i.IdempotencyKey(), i.TimestampUs())
	if err != nil {
		return nil, err
	}

	if err := c.saleState.Initialize(i.Authority(), i.AcceptedMints, i.TimestampUs()); err != nil {
		panic(fmt.Sprintf("FATAL: initialize after phase check: %v", err))
	}

	c.logger.Info().
		Str("admin", i.Authority().String()).
		Int("accepted_mints", len(i.AcceptedMints)).
		Msg("sale state initialized")

	return batch, nil
}

func (c *SettlementCore) handleInitializeVault(i *instruction.InitializeVault) (*ledger.Batch, error) {
	if err := c.saleState.RequireAdmin(i.Authority()); err != nil {
		return nil, err
	}

	if v, err := c.vaults.Get(i.Label); err == nil {
		return nil, fmt.Errorf("vault %q at %s: %w", i.Label, v.Address.String(), vault.ErrAlreadyExists)
	}

	addr, _, err := c.vaults.Derive(i.Label)
	if err != nil {
		return nil, err
	}

	rent := vault.RentTokenVault
	if i.Label == vault.LabelNative {
		rent = vault.RentNativeVault
	}

	batch, err := c.journalGen.GenerateVaultRentEscrow(
		c.saleState.Admin, addr, rent, i.IdempotencyKey(), i.TimestampUs())
	if err != nil {
		return nil, err
	}

	v, err := c.vaults.Open(i.Label)
	if err != nil {
		panic(fmt.Sprintf("FATAL: vault open after existence check: %v", err))
	}

	c.logger.Info().
		Str("label", v.Label).
		Str("address", v.Address.String()).
		Uint8("bump", v.Bump).
		Int64("rent_lamports", v.RentLamports).
		Msg("vault opened")

	return batch, nil
}

func (c *SettlementCore) handleDeposit(i *instruction.Deposit) (*ledger.Batch, error) {
	if err := c.saleState.RequireAdmin(i.Authority()); err != nil {
		return nil, err
	}

	saleVault, err := c.vaults.Get(vault.LabelSale)
	if err != nil {
		return nil, err
	}

	return c.journalGen.GenerateSaleDeposit(
		c.saleState.Admin, saleVault.Address, ledger.AssetSCY, i.Amount,
		i.IdempotencyKey(), i.TimestampUs())
}

func (c *SettlementCore) handleWithdraw(i *instruction.Withdraw) (*ledger.Batch, error) {
	if err := c.saleState.RequireAdmin(i.Authority()); err != nil {
		return nil, err
	}

	// Sweep every non-empty payment vault. The sale vault is never swept.
	legs := make([]ledger.SweepLeg, 0, 3)
	for _, label := range vault.InputLabels() {
		v, err := c.vaults.Get(label)
		if err != nil {
			continue // unopened or closed vaults are skipped
		}
		balance := c.balanceTracker.GetVaultBalance(v.Address, v.AssetID)
		if balance > 0 {
			legs = append(legs, ledger.SweepLeg{Vault: v.Address, AssetID: v.AssetID, Amount: balance})
		}
	}

	batch, err := c.journalGen.GenerateSweep(c.saleState.Admin, legs, i.IdempotencyKey(), i.TimestampUs())
	if err != nil {
		return nil, err
	}
	if batch == nil {
		// Nothing to sweep — the withdrawal is a recorded no-op
		return c.emptyBatch(i), nil
	}
	return batch, nil
}

func (c *SettlementCore) handleUpdateAdmin(i *instruction.UpdateAdmin) (*ledger.Batch, error) {
	if err := c.saleState.UpdateAdmin(i.Authority(), i.NewAdmin); err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("old_admin", i.Authority().String()).
		Str("new_admin", i.NewAdmin.String()).
		Msg("admin rotated")

	return c.emptyBatch(i), nil
}

func (c *SettlementCore) handleBuyWithNative(i *instruction.BuyWithNative) (*ledger.Batch, error) {
	if err := c.saleState.RequireActive(); err != nil {
		return nil, err
	}

	nativeVault, err := c.vaults.Get(vault.LabelNative)
	if err != nil {
		return nil, err
	}
	saleVault, err := c.vaults.Get(vault.LabelSale)
	if err != nil {
		return nil, err
	}

	quote, err := c.validateQuote(ledger.AssetSOL, i.OracleAccount, i.OracleData, i.TimestampUs(), oracle.MaxStalenessBuySec)
	if err != nil {
		return nil, err
	}

	return c.settleBuy(i.Authority(), ledger.AssetSOL, i.Lamports, nativeVault, saleVault, quote,
		i.IdempotencyKey(), i.TimestampUs())
}

func (c *SettlementCore) handleBuyWithToken(i *instruction.BuyWithToken) (*ledger.Batch, error) {
	if err := c.saleState.RequireActive(); err != nil {
		return nil, err
	}

	symbol, err := c.saleState.ResolveMint(i.Mint)
	if err != nil {
		return nil, err
	}
	payAssetID, ok := ledger.GetAssetID(symbol)
	if !ok {
		return nil, fmt.Errorf("accepted mint %s has no asset mapping: %w", symbol, state.ErrUnsupportedMint)
	}

	payVault, err := c.vaults.Get(payLabel(payAssetID))
	if err != nil {
		return nil, err
	}
	saleVault, err := c.vaults.Get(vault.LabelSale)
	if err != nil {
		return nil, err
	}

	// Stablecoin quotes go through the same oracle checks as the native
	// path: no 1:1 shortcut, a depegged stablecoin prices at its real value.
	quote, err := c.validateQuote(payAssetID, i.OracleAccount, i.OracleData, i.TimestampUs(), oracle.MaxStalenessBuySec)
	if err != nil {
		return nil, err
	}

	return c.settleBuy(i.Authority(), payAssetID, i.Amount, payVault, saleVault, quote,
		i.IdempotencyKey(), i.TimestampUs())
}

// settleBuy converts the payment and generates the atomic two-leg batch
func (c *SettlementCore) settleBuy(
	buyer solana.PublicKey,
	payAssetID ledger.AssetID,
	payAmount int64,
	payVault, saleVault *vault.Vault,
	quote oracle.Quote,
	instrRef string,
	timestampUs int64,
) (*ledger.Batch, error) {
	decimalsIn, _ := ledger.GetAssetDecimals(payAssetID)
	decimalsOut, _ := ledger.GetAssetDecimals(ledger.AssetSCY)

	saleAmount, err := fpmath.ConvertPayment(payAmount, quote.Price(), c.salePrice, decimalsIn, decimalsOut)
	if err != nil {
		return nil, fmt.Errorf("conversion of %d units: %w", payAmount, err)
	}

	batch, err := c.journalGen.GenerateBuy(
		buyer, payAssetID, payAmount, payVault.Address,
		ledger.AssetSCY, saleAmount, saleVault.Address,
		instrRef, timestampUs)
	if err != nil {
		return nil, err
	}

	payAsset, _ := ledger.GetAssetName(payAssetID)
	c.pendingPurchase = &PurchaseRecord{
		Buyer:         buyer,
		PayAsset:      payAsset,
		PayAmount:     payAmount,
		SaleAmount:    saleAmount,
		QuoteMantissa: quote.Mantissa,
		QuoteExponent: quote.Exponent,
	}

	c.logger.Debug().
		Str("buyer", buyer.String()).
		Str("pay_asset", payAsset).
		Int64("pay_amount", payAmount).
		Int64("sale_amount", saleAmount).
		Str("quote", quote.Normalized().String()).
		Msg("purchase settled")

	return batch, nil
}

func (c *SettlementCore) handleCloseVault(i *instruction.CloseVault) (*ledger.Batch, error) {
	if err := c.saleState.RequireAdmin(i.Authority()); err != nil {
		return nil, err
	}

	v, err := c.vaults.Get(i.Label)
	if err != nil {
		return nil, err
	}

	// No implicit sweep: a funded vault must be withdrawn first
	if balance := c.balanceTracker.GetVaultBalance(v.Address, v.AssetID); balance != 0 {
		return nil, fmt.Errorf("vault %q holds %d units: %w", v.Label, balance, ErrNonEmptyVault)
	}

	batch, err := c.journalGen.GenerateVaultRentRefund(
		c.saleState.Admin, v.Address, i.IdempotencyKey(), i.TimestampUs())
	if err != nil {
		return nil, err
	}

	if _, err := c.vaults.Close(i.Label); err != nil {
		panic(fmt.Sprintf("FATAL: vault close after active check: %v", err))
	}

	c.logger.Info().
		Str("label", v.Label).
		Str("address", v.Address.String()).
		Msg("vault closed")

	return batch, nil
}

func (c *SettlementCore) handleCloseState(i *instruction.CloseState) (*ledger.Batch, error) {
	if err := c.saleState.RequireAdmin(i.Authority()); err != nil {
		return nil, err
	}

	if active := c.vaults.ActiveVaults(); len(active) > 0 {
		return nil, fmt.Errorf("%d vaults still open: %w", len(active), ErrNonEmptyVault)
	}

	batch, err := c.journalGen.GenerateStateRentRefund(
		c.saleState.Admin, i.IdempotencyKey(), i.TimestampUs())
	if err != nil {
		return nil, err
	}

	if err := c.saleState.Close(i.Authority()); err != nil {
		panic(fmt.Sprintf("FATAL: state close after admin check: %v", err))
	}

	c.logger.Info().Msg("sale state closed")

	return batch, nil
}

func (c *SettlementCore) handleSamplePrices(i *instruction.SamplePrices) (*ledger.Batch, error) {
	for _, obs := range i.Observations {
		assetID, ok := ledger.GetAssetID(obs.Asset)
		if !ok {
			return nil, fmt.Errorf("sample of unknown asset %q: %w", obs.Asset, oracle.ErrInvalidPriceFeed)
		}

		quote, err := c.validateQuote(assetID, obs.Account, obs.Data, i.TimestampUs(), oracle.MaxStalenessSampleSec)
		if err != nil {
			return nil, err
		}

		c.logger.Info().
			Str("asset", obs.Asset).
			Str("price_usd", quote.Normalized().String()).
			Int64("publish_time", quote.PublishTime).
			Msg("oracle sample")
	}

	return c.emptyBatch(i), nil
}

func (c *SettlementCore) handleWalletCredit(i *instruction.WalletCredit) (*ledger.Batch, error) {
	assetID, ok := ledger.GetAssetID(i.Asset)
	if !ok {
		return nil, fmt.Errorf("wallet credit of unknown asset %q: %w", i.Asset, state.ErrUnsupportedMint)
	}
	if i.Amount <= 0 {
		return nil, fmt.Errorf("wallet credit amount %d: %w", i.Amount, fpmath.ErrArithmeticOverflow)
	}

	return c.journalGen.GenerateWalletFund(i.Owner, assetID, i.Amount, i.IdempotencyKey(), i.TimestampUs())
}

// validateQuote wraps the oracle adapter with reject metrics
func (c *SettlementCore) validateQuote(
	assetID ledger.AssetID,
	account solana.PublicKey,
	data []byte,
	nowUs int64,
	maxStalenessSec int64,
) (oracle.Quote, error) {
	quote, err := c.oracleAdapter.ValidateQuote(assetID, account, data, nowUs, maxStalenessSec)
	assetName, _ := ledger.GetAssetName(assetID)
	if err != nil {
		if c.metrics != nil {
			c.metrics.OracleRejects.WithLabelValues(assetName, RejectReason(err)).Inc()
		}
		return oracle.Quote{}, err
	}
	if c.metrics != nil {
		c.metrics.OracleQuoteAge.WithLabelValues(assetName).Observe(float64(nowUs/1_000_000 - quote.PublishTime))
	}
	return quote, nil
}

// payLabel maps a payment asset to its custody vault label
func payLabel(assetID ledger.AssetID) string {
	switch assetID {
	case ledger.AssetSOL:
		return vault.LabelNative
	case ledger.AssetUSDC:
		return vault.LabelUSDC
	case ledger.AssetUSDT:
		return vault.LabelUSDT
	default:
		return ""
	}
}

// computeStateDigest creates canonical bytes for the state hash
func (c *SettlementCore) computeStateDigest(batch *ledger.Batch) []byte {
	// Collect all affected accounts
	affectedAccounts := make(map[ledger.AccountKey]bool)

	if batch != nil {
		for _, j := range batch.Journals {
			affectedAccounts[j.DebitAccount] = true
			affectedAccounts[j.CreditAccount] = true
		}
	}

	// Sort accounts deterministically
	accounts := make([]ledger.AccountKey, 0, len(affectedAccounts))
	for key := range affectedAccounts {
		accounts = append(accounts, key)
	}

	// Sort by AccountPath (deterministic string ordering)
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].AccountPath() < accounts[j].AccountPath()
	})

	// Build digest
	digest := make([]byte, 0, len(accounts)*64)

	for _, key := range accounts {
		balance := c.balanceTracker.GetBalance(key)

		// Append account path
		path := key.AccountPath()
		digest = append(digest, byte(len(path)))
		digest = append(digest, []byte(path)...)

		// Append balance (8 bytes LE)
		digest = appendInt64LE(digest, balance)
	}

	return digest
}

func appendInt64LE(buf []byte, v int64) []byte {
	return append(buf,
		byte(v),
		byte(v>>8),
		byte(v>>16),
		byte(v>>24),
		byte(v>>32),
		byte(v>>40),
		byte(v>>48),
		byte(v>>56),
	)
}

// --- Snapshot Restore & Startup Methods ---

// SnapshotState holds the serializable in-memory state for restore.
// This mirrors persistence.SnapshotData but uses typed fields.
type SnapshotState struct {
	Sequence        int64
	StateHash       [32]byte
	Balances        map[ledger.AccountKey]int64
	Vaults          []*vault.Vault
	SaleState       *state.SaleState
	SlotState       map[string]uint64
	IdempotencyKeys []string
}

// RestoreFromSnapshot restores the core's in-memory state from a snapshot.
// On warm restart: load latest snapshot, then replay the instruction log.
func (c *SettlementCore) RestoreFromSnapshot(snap *SnapshotState) {
	c.sequence = snap.Sequence + 1 // Next sequence to assign
	c.hasher.SetPrevHash(snap.StateHash)

	for key, balance := range snap.Balances {
		c.balanceTracker.SetBalance(key, balance)
	}

	for _, v := range snap.Vaults {
		c.vaults.Restore(v)
	}

	if snap.SaleState != nil {
		c.saleState.Phase = snap.SaleState.Phase
		c.saleState.Admin = snap.SaleState.Admin
		c.saleState.InitializedAtUs = snap.SaleState.InitializedAtUs
		c.saleState.AcceptedMints = make(map[string]solana.PublicKey, len(snap.SaleState.AcceptedMints))
		for symbol, mint := range snap.SaleState.AcceptedMints {
			c.saleState.AcceptedMints[symbol] = mint
		}
	}

	for partition, slot := range snap.SlotState {
		c.slotValidator.RestorePartition(partition, slot)
	}

	c.journalGen.SetSequence(snap.Sequence + 1)
}

// WarmLRU loads recent idempotency keys into the LRU cache.
func (c *SettlementCore) WarmLRU(keys []string) {
	c.idempotency.lru.WarmFromKeys(keys)
}

// GetSequence returns the current global sequence number.
func (c *SettlementCore) GetSequence() int64 {
	return c.sequence
}

// GetStateHash returns the current state hash (chain tip).
func (c *SettlementCore) GetStateHash() [32]byte {
	return c.hasher.GetPrevHash()
}

// BalanceTracker exposes read access for queries and tests.
func (c *SettlementCore) BalanceTracker() *ledger.BalanceTracker {
	return c.balanceTracker
}

// VaultRegistry exposes read access for queries and tests.
func (c *SettlementCore) VaultRegistry() *vault.Registry {
	return c.vaults
}

// SaleState exposes read access for queries and tests.
func (c *SettlementCore) SaleState() *state.SaleState {
	return c.saleState
}

// CreateSnapshotState captures the current in-memory state for persistence.
func (c *SettlementCore) CreateSnapshotState() *SnapshotState {
	vaults := make([]*vault.Vault, 0, 4)
	for _, v := range c.vaults.All() {
		copied := *v
		vaults = append(vaults, &copied)
	}

	saleCopy := *c.saleState

	return &SnapshotState{
		Sequence:        c.sequence - 1, // Last processed sequence
		StateHash:       c.hasher.GetPrevHash(),
		Balances:        c.balanceTracker.Snapshot(),
		Vaults:          vaults,
		SaleState:       &saleCopy,
		SlotState:       c.slotValidator.GetAllPartitions(),
		IdempotencyKeys: c.idempotency.lru.GetAllKeys(),
	}
}
