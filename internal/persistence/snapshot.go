package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SnapshotManager handles creating and loading state snapshots for recovery.
// A snapshot captures balances, vault registry, sale state, slot watermarks,
// the idempotency LRU contents, the sequence counter, and the chain tip hash.
type SnapshotManager struct {
	db *sql.DB
}

// SnapshotData is the JSON-serializable in-memory state at a point in time.
// The orchestrator bridges between this and the core's typed snapshot.
type SnapshotData struct {
	Sequence        int64             `json:"sequence"`
	StateHash       []byte            `json:"state_hash"`
	Balances        []BalanceSnap     `json:"balances"`
	Vaults          []VaultSnap       `json:"vaults"`
	SaleState       *SaleStateSnap    `json:"sale_state"`
	SlotState       map[string]uint64 `json:"slot_state"` // partition -> last accepted slot
	IdempotencyKeys []string          `json:"idempotency_keys"`
	CreatedAt       time.Time         `json:"created_at"`
}

// BalanceSnap is one ledger account balance. EntityID is base58-encoded.
type BalanceSnap struct {
	Scope    uint8  `json:"scope"`
	EntityID string `json:"entity_id"`
	SubType  uint8  `json:"sub_type"`
	AssetID  uint16 `json:"asset_id"`
	Balance  int64  `json:"balance"`
}

// VaultSnap is a serializable vault registry entry.
type VaultSnap struct {
	Label        string `json:"label"`
	AssetID      uint16 `json:"asset_id"`
	Address      string `json:"address"`
	Bump         uint8  `json:"bump"`
	Status       int32  `json:"status"`
	RentLamports int64  `json:"rent_lamports"`
}

// SaleStateSnap is the serializable sale lifecycle state.
type SaleStateSnap struct {
	Phase           int32             `json:"phase"`
	Admin           string            `json:"admin"`
	AcceptedMints   map[string]string `json:"accepted_mints"` // symbol -> base58 mint
	InitializedAtUs int64             `json:"initialized_at_us"`
}

func NewSnapshotManager(db *sql.DB) *SnapshotManager {
	return &SnapshotManager{db: db}
}

// SaveSnapshot persists a snapshot. Snapshots are written unverified and
// marked verified after a replay check confirms the state hash.
func (sm *SnapshotManager) SaveSnapshot(ctx context.Context, snap *SnapshotData) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	snapshotID := uuid.New()
	formatVersion := int32(1) // v1: JSON-encoded SnapshotData

	_, err = sm.db.ExecContext(ctx, `
		INSERT INTO instr_log.snapshots
			(snapshot_id, sequence, data, state_hash, format_version, size_bytes, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
		ON CONFLICT (sequence) DO UPDATE SET data = $3, state_hash = $4, size_bytes = $6
	`, snapshotID, snap.Sequence, data, snap.StateHash, formatVersion, len(data), snap.CreatedAt)

	return err
}

// LoadLatestSnapshot loads the most recent verified snapshot, or nil on a
// cold start.
func (sm *SnapshotManager) LoadLatestSnapshot(ctx context.Context) (*SnapshotData, error) {
	row := sm.db.QueryRowContext(ctx, `
		SELECT data FROM instr_log.snapshots
		WHERE verified = TRUE
		ORDER BY sequence DESC
		LIMIT 1
	`)

	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap SnapshotData
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snap, nil
}

// MarkVerified marks a snapshot as verified after an integrity check.
func (sm *SnapshotManager) MarkVerified(ctx context.Context, sequence int64) error {
	_, err := sm.db.ExecContext(ctx, `
		UPDATE instr_log.snapshots SET verified = TRUE WHERE sequence = $1
	`, sequence)
	return err
}

// LoadInstructionsFrom loads instructions from a given sequence for replay.
// Used for warm restart (replay from snapshot) and cold restart (replay all).
func (sm *SnapshotManager) LoadInstructionsFrom(ctx context.Context, fromSequence int64, limit int) ([]InstrRow, error) {
	rows, err := sm.db.QueryContext(ctx, `
		SELECT sequence, instr_type, idempotency_key, payload,
		       state_hash, prev_hash, slot, timestamp_us
		FROM instr_log.instructions
		WHERE sequence >= $1
		ORDER BY sequence ASC
		LIMIT $2
	`, fromSequence, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instrs []InstrRow
	for rows.Next() {
		var r InstrRow
		if err := rows.Scan(
			&r.Sequence, &r.InstrType, &r.IdempotencyKey, &r.Payload,
			&r.StateHash, &r.PrevHash, &r.Slot, &r.TimestampUs,
		); err != nil {
			return nil, err
		}
		instrs = append(instrs, r)
	}

	return instrs, rows.Err()
}

// GetLatestSequence returns the highest sequence in the instruction log, or
// 0 when the log is empty.
func (sm *SnapshotManager) GetLatestSequence(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := sm.db.QueryRowContext(ctx, `
		SELECT MAX(sequence) FROM instr_log.instructions
	`).Scan(&seq)
	if err != nil {
		return 0, err
	}
	if !seq.Valid {
		return 0, nil
	}
	return seq.Int64, nil
}
