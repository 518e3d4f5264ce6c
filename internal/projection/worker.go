package projection

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// ProjectionOutput mirrors the data projection workers need.
// The orchestrator bridges between core.CoreOutput and this.
type ProjectionOutput struct {
	Sequence       int64
	InstrType      string
	JournalEntries []JournalEntry
	Purchase       *PurchaseEntry
	Slot           uint64
	Timestamp      int64
}

// JournalEntry is a simplified journal for projection consumption.
type JournalEntry struct {
	DebitAccount  string
	CreditAccount string
	AssetID       uint16
	Amount        int64
	JournalType   int32
}

// PurchaseEntry carries the settled buy details for the purchases table.
type PurchaseEntry struct {
	Buyer         string
	PayAsset      string
	PayAmount     int64
	SaleAmount    int64
	QuoteMantissa int64
	QuoteExponent int32
}

// ProjectionWorker updates projection tables from settled instructions.
// The projection channel is non-blocking with drop: if projections fall
// behind, balances can be rebuilt from the instruction log.
type ProjectionWorker struct {
	db        *sql.DB
	inputChan <-chan ProjectionOutput
	history   *PurchaseHistory
	lastSeq   int64
}

const purchaseHistoryCap = 1024

func NewProjectionWorker(db *sql.DB, inputChan <-chan ProjectionOutput) *ProjectionWorker {
	return &ProjectionWorker{
		db:        db,
		inputChan: inputChan,
		history:   NewPurchaseHistory(purchaseHistoryCap),
	}
}

// History exposes the in-memory window of recent purchases.
func (pw *ProjectionWorker) History() *PurchaseHistory {
	return pw.history
}

// Run starts the projection worker loop.
func (pw *ProjectionWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case output, ok := <-pw.inputChan:
			if !ok {
				return nil
			}

			if err := pw.processOutput(ctx, output); err != nil {
				log.Printf("WARN: projection update failed at seq=%d: %v", output.Sequence, err)
				// Continue — projections are eventually consistent
			}

			if p := output.Purchase; p != nil {
				pw.history.Add(PurchaseHistoryEntry{
					Sequence:      output.Sequence,
					Buyer:         p.Buyer,
					PayAsset:      p.PayAsset,
					PayAmount:     p.PayAmount,
					SaleAmount:    p.SaleAmount,
					QuoteMantissa: p.QuoteMantissa,
					QuoteExponent: p.QuoteExponent,
					Timestamp:     output.Timestamp,
				})
			}

			pw.lastSeq = output.Sequence
		}
	}
}

func (pw *ProjectionWorker) processOutput(ctx context.Context, output ProjectionOutput) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, j := range output.JournalEntries {
		if err := pw.updateBalanceProjection(ctx, tx, j, output.Sequence); err != nil {
			return fmt.Errorf("balance projection: %w", err)
		}
	}

	if output.Purchase != nil {
		if err := pw.insertPurchase(ctx, tx, output); err != nil {
			return fmt.Errorf("purchase projection: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.watermark (worker_id, last_sequence, updated_at)
		VALUES ('main', $1, NOW())
		ON CONFLICT (worker_id) DO UPDATE SET last_sequence = $1, updated_at = NOW()
	`, output.Sequence); err != nil {
		return fmt.Errorf("watermark update: %w", err)
	}

	return tx.Commit()
}

func (pw *ProjectionWorker) updateBalanceProjection(ctx context.Context, tx *sql.Tx, j JournalEntry, sequence int64) error {
	// Debit account gains, credit account loses — same convention as the
	// in-memory balance tracker.
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, asset_id, balance, last_sequence)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_path, asset_id)
		DO UPDATE SET balance = projections.balances.balance + $3, last_sequence = $4
	`, j.DebitAccount, j.AssetID, j.Amount, sequence); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, asset_id, balance, last_sequence)
		VALUES ($1, $2, -$3, $4)
		ON CONFLICT (account_path, asset_id)
		DO UPDATE SET balance = projections.balances.balance - $3, last_sequence = $4
	`, j.CreditAccount, j.AssetID, j.Amount, sequence); err != nil {
		return err
	}

	return nil
}

func (pw *ProjectionWorker) insertPurchase(ctx context.Context, tx *sql.Tx, output ProjectionOutput) error {
	p := output.Purchase
	_, err := tx.ExecContext(ctx, `
		INSERT INTO projections.purchases
			(sequence, buyer, pay_asset, pay_amount, sale_amount,
			 quote_mantissa, quote_exponent, slot, timestamp_us)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (sequence) DO NOTHING
	`, output.Sequence, p.Buyer, p.PayAsset, p.PayAmount, p.SaleAmount,
		p.QuoteMantissa, p.QuoteExponent, int64(output.Slot), output.Timestamp)
	return err
}

// RebuildProjections rebuilds the balance projection from the instruction
// log. Purchases are not rebuilt here: the oracle quote attached to each buy
// exists only in the settlement output, so the purchases table is repopulated
// by replaying the log through the core.
func RebuildProjections(ctx context.Context, db *sql.DB) error {
	truncateStatements := []string{
		`TRUNCATE projections.balances`,
		`DELETE FROM projections.watermark WHERE worker_id = 'main'`,
	}

	for _, stmt := range truncateStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("truncate failed: %w", err)
		}
	}

	// Debits first, then fold in credits
	_, err := db.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, asset_id, balance, last_sequence)
		SELECT
			debit_account AS account_path,
			asset_id,
			SUM(amount) AS balance,
			MAX(sequence) AS last_sequence
		FROM instr_log.journal
		GROUP BY debit_account, asset_id
		ON CONFLICT (account_path, asset_id) DO UPDATE
			SET balance = EXCLUDED.balance, last_sequence = EXCLUDED.last_sequence
	`)
	if err != nil {
		return fmt.Errorf("rebuild debit balances: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, asset_id, balance, last_sequence)
		SELECT
			credit_account AS account_path,
			asset_id,
			-SUM(amount) AS balance,
			MAX(sequence) AS last_sequence
		FROM instr_log.journal
		GROUP BY credit_account, asset_id
		ON CONFLICT (account_path, asset_id) DO UPDATE
			SET balance = projections.balances.balance + EXCLUDED.balance,
			    last_sequence = GREATEST(projections.balances.last_sequence, EXCLUDED.last_sequence)
	`)
	if err != nil {
		return fmt.Errorf("rebuild credit balances: %w", err)
	}

	log.Println("INFO: projection rebuild complete")
	return nil
}
