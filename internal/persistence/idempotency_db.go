package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresIdempotencyChecker answers second-tier duplicate checks against the
// instruction log. The core consults it only on an LRU miss, so this path is
// cold by design.
type PostgresIdempotencyChecker struct {
	db *sql.DB
}

func NewPostgresIdempotencyChecker(db *sql.DB) *PostgresIdempotencyChecker {
	return &PostgresIdempotencyChecker{db: db}
}

// IsDuplicate checks whether an instruction with this type and idempotency
// key was already persisted.
func (c *PostgresIdempotencyChecker) IsDuplicate(instrType, idempotencyKey string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	var exists int
	err := c.db.QueryRowContext(ctx,
		`SELECT 1 FROM instr_log.instructions
		 WHERE instr_type = $1 AND idempotency_key = $2
		 LIMIT 1`,
		instrType, idempotencyKey,
	).Scan(&exists)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("idempotency lookup: %w", err)
	}
	return true, nil
}

// RecentKeys returns the most recent idempotency keys from the instruction
// log, used to warm the in-memory LRU on startup.
func (c *PostgresIdempotencyChecker) RecentKeys(ctx context.Context, limit int) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT instr_type, idempotency_key
		 FROM instr_log.instructions
		 ORDER BY sequence DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("load recent keys: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0, limit)
	for rows.Next() {
		var instrType, key string
		if err := rows.Scan(&instrType, &key); err != nil {
			return nil, fmt.Errorf("scan recent key: %w", err)
		}
		keys = append(keys, instrType+":"+key)
	}
	return keys, rows.Err()
}
