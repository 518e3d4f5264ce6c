package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// InstrLogWriter writes instructions and journals to Postgres using batch
// inserts. Multi-row INSERT is the portable choice here; switch to pgx
// CopyFrom if write throughput ever becomes the bottleneck.
type InstrLogWriter struct {
	db           *sql.DB
	batchSize    int
	flushTimeout time.Duration
}

// InstrRow represents a row in instr_log.instructions
type InstrRow struct {
	Sequence       int64
	InstrType      string
	IdempotencyKey string
	Payload        []byte // JSON-encoded instruction payload
	StateHash      []byte
	PrevHash       []byte
	Slot           int64
	TimestampUs    int64
}

// JournalRow represents a row in instr_log.journal
type JournalRow struct {
	JournalID     string
	BatchID       string
	InstrRef      string
	Sequence      int64
	DebitAccount  string
	CreditAccount string
	AssetID       uint16
	Amount        int64
	JournalType   int32
	Timestamp     int64
}

func NewInstrLogWriter(db *sql.DB, batchSize int, flushTimeout time.Duration) *InstrLogWriter {
	return &InstrLogWriter{
		db:           db,
		batchSize:    batchSize,
		flushTimeout: flushTimeout,
	}
}

// execer abstracts *sql.DB and *sql.Tx so batch writes can run inside the
// persistence worker's transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// WriteInstrBatch writes a batch of instructions to instr_log.instructions
// using multi-row INSERT. Pass a *sql.Tx to write transactionally, or nil to
// write directly against the pool.
func (w *InstrLogWriter) WriteInstrBatch(ctx context.Context, tx *sql.Tx, rows []InstrRow) error {
	if len(rows) == 0 {
		return nil
	}

	query := `INSERT INTO instr_log.instructions
		(sequence, instr_type, idempotency_key, payload, state_hash, prev_hash, slot, timestamp_us)
		VALUES `

	values := make([]string, 0, len(rows))
	args := make([]interface{}, 0, len(rows)*8)

	for i, r := range rows {
		base := i * 8
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
		))
		args = append(args,
			r.Sequence, r.InstrType, r.IdempotencyKey,
			r.Payload, r.StateHash, r.PrevHash, r.Slot, r.TimestampUs,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (sequence) DO NOTHING" // Idempotent writes

	_, err := w.exec(tx).ExecContext(ctx, query, args...)
	return err
}

func (w *InstrLogWriter) exec(tx *sql.Tx) execer {
	if tx != nil {
		return tx
	}
	return w.db
}

// WriteJournalBatch writes a batch of journal entries to instr_log.journal.
func (w *InstrLogWriter) WriteJournalBatch(ctx context.Context, tx *sql.Tx, journals []JournalRow) error {
	if len(journals) == 0 {
		return nil
	}

	query := `INSERT INTO instr_log.journal
		(journal_id, batch_id, instr_ref, sequence, debit_account, credit_account, asset_id, amount, journal_type, timestamp_us)
		VALUES `

	values := make([]string, 0, len(journals))
	args := make([]interface{}, 0, len(journals)*10)

	for i, j := range journals {
		base := i * 10
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10,
		))
		args = append(args,
			j.JournalID, j.BatchID, j.InstrRef, j.Sequence,
			j.DebitAccount, j.CreditAccount, j.AssetID, j.Amount,
			j.JournalType, j.Timestamp,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (journal_id) DO NOTHING"

	_, err := w.exec(tx).ExecContext(ctx, query, args...)
	return err
}

// LastPersistedSequence returns the highest sequence in the instruction log,
// or -1 when the log is empty.
func (w *InstrLogWriter) LastPersistedSequence(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := w.db.QueryRowContext(ctx,
		`SELECT MAX(sequence) FROM instr_log.instructions`).Scan(&seq)
	if err != nil {
		return -1, err
	}
	if !seq.Valid {
		return -1, nil
	}
	return seq.Int64, nil
}

// MarshalInstrPayload serializes an instruction payload to JSON for storage.
func MarshalInstrPayload(payload interface{}) ([]byte, error) {
	return json.Marshal(payload)
}
