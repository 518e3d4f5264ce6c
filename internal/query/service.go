package query

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"ScySettle/internal/ledger"
)

// QueryService provides read-only access to the projection tables and the
// instruction log. Queries are served via gRPC and HTTP/JSON, and every
// response carries as_of_sequence so callers can reason about freshness.
type QueryService struct {
	db *sql.DB
}

func NewQueryService(db *sql.DB) *QueryService {
	return &QueryService{db: db}
}

// GetWalletBalance returns a tracked wallet's balance for one asset.
func (qs *QueryService) GetWalletBalance(
	ctx context.Context,
	owner string,
	asset string,
) (*WalletBalanceResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	assetID, ok := ledger.GetAssetID(asset)
	if !ok {
		return nil, fmt.Errorf("unknown asset %q", asset)
	}

	path := fmt.Sprintf("wallet:%s:%s", owner, asset)
	balance, err := qs.getProjectedBalance(ctx, path)
	if err != nil {
		return nil, err
	}

	return &WalletBalanceResponse{
		Owner:        owner,
		Asset:        asset,
		Balance:      balance,
		Display:      displayAmount(balance, assetID),
		AsOfSequence: asOfSeq,
	}, nil
}

// GetVaultBalances returns the balance of every custody vault account.
func (qs *QueryService) GetVaultBalances(ctx context.Context) ([]VaultBalanceResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := qs.db.QueryContext(ctx, `
		SELECT account_path, asset_id, balance
		FROM projections.balances
		WHERE account_path LIKE 'vault:%'
		ORDER BY account_path
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []VaultBalanceResponse
	for rows.Next() {
		var path string
		var assetID uint16
		var balance int64
		if err := rows.Scan(&path, &assetID, &balance); err != nil {
			return nil, err
		}

		assetName, _ := ledger.GetAssetName(ledger.AssetID(assetID))
		balances = append(balances, VaultBalanceResponse{
			AccountPath:  path,
			Asset:        assetName,
			Balance:      balance,
			Display:      displayAmount(balance, ledger.AssetID(assetID)),
			AsOfSequence: asOfSeq,
		})
	}

	return balances, rows.Err()
}

// GetPurchases returns settled buys with cursor-based pagination, newest
// first. A nil buyer returns purchases across all buyers.
func (qs *QueryService) GetPurchases(
	ctx context.Context,
	buyer *string,
	limit int,
	afterSequence *int64,
) ([]PurchaseResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT sequence, buyer, pay_asset, pay_amount, sale_amount,
		       quote_mantissa, quote_exponent, slot, timestamp_us
		FROM projections.purchases
		WHERE TRUE
	`
	args := []interface{}{}
	argIdx := 1

	if buyer != nil {
		query += fmt.Sprintf(" AND buyer = $%d", argIdx)
		args = append(args, *buyer)
		argIdx++
	}

	if afterSequence != nil {
		query += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *afterSequence)
		argIdx++
	}

	query += " ORDER BY sequence DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := qs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purchases []PurchaseResponse
	for rows.Next() {
		var p PurchaseResponse
		p.AsOfSequence = asOfSeq
		if err := rows.Scan(
			&p.Sequence, &p.Buyer, &p.PayAsset, &p.PayAmount, &p.SaleAmount,
			&p.QuoteMantissa, &p.QuoteExponent, &p.Slot, &p.Timestamp,
		); err != nil {
			return nil, err
		}

		if payID, ok := ledger.GetAssetID(p.PayAsset); ok {
			p.PayDisplay = displayAmount(p.PayAmount, payID)
		}
		p.SaleDisplay = displayAmount(p.SaleAmount, ledger.AssetSCY)
		p.QuoteUSD = decimal.New(p.QuoteMantissa, p.QuoteExponent).String()

		purchases = append(purchases, p)
	}

	return purchases, rows.Err()
}

// GetSaleStats aggregates sale progress across all settled purchases.
func (qs *QueryService) GetSaleStats(ctx context.Context) (*SaleStatsResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	stats := &SaleStatsResponse{
		PaymentsTaken: make(map[string]int64),
		AsOfSequence:  asOfSeq,
	}

	err = qs.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(sale_amount), 0)
		FROM projections.purchases
	`).Scan(&stats.TotalPurchases, &stats.UnitsSold)
	if err != nil {
		return nil, err
	}
	stats.UnitsDisplay = displayAmount(stats.UnitsSold, ledger.AssetSCY)

	rows, err := qs.db.QueryContext(ctx, `
		SELECT pay_asset, SUM(pay_amount)
		FROM projections.purchases
		GROUP BY pay_asset
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var asset string
		var total int64
		if err := rows.Scan(&asset, &total); err != nil {
			return nil, err
		}
		stats.PaymentsTaken[asset] = total
	}

	return stats, rows.Err()
}

// GetJournalHistory returns journal entries touching an account, with
// cursor-based pagination. The account argument matches either side of the
// double entry and may be a full path or a prefix ending in '%'.
func (qs *QueryService) GetJournalHistory(
	ctx context.Context,
	account string,
	limit int,
	afterSequence *int64,
) ([]JournalHistoryEntry, error) {
	query := `
		SELECT journal_id, batch_id, instr_ref, sequence,
		       debit_account, credit_account, asset_id, amount, journal_type, timestamp_us
		FROM instr_log.journal
		WHERE (debit_account LIKE $1 OR credit_account LIKE $1)
	`
	args := []interface{}{account}
	argIdx := 2

	if afterSequence != nil {
		query += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *afterSequence)
		argIdx++
	}

	query += " ORDER BY sequence DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := qs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []JournalHistoryEntry
	for rows.Next() {
		var e JournalHistoryEntry
		if err := rows.Scan(
			&e.JournalID, &e.BatchID, &e.InstrRef, &e.Sequence,
			&e.DebitAccount, &e.CreditAccount, &e.AssetID, &e.Amount,
			&e.JournalType, &e.Timestamp,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// --- Admin APIs ---

// VerifyIntegrity checks hash-chain continuity in the instruction log and
// the zero-sum invariant across projected balances.
func (qs *QueryService) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	report := &IntegrityReport{}

	rows, err := qs.db.QueryContext(ctx, `
		SELECT i1.sequence
		FROM instr_log.instructions i1
		LEFT JOIN instr_log.instructions i2 ON i2.sequence = i1.sequence - 1
		WHERE i1.sequence > 0 AND i1.prev_hash != COALESCE(i2.state_hash, i1.prev_hash)
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			return nil, err
		}
		report.HashChainBreaks = append(report.HashChainBreaks, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	balanceRows, err := qs.db.QueryContext(ctx, `
		SELECT asset_id, SUM(balance) AS total
		FROM projections.balances
		GROUP BY asset_id
		HAVING SUM(balance) != 0
	`)
	if err != nil {
		return nil, err
	}
	defer balanceRows.Close()

	for balanceRows.Next() {
		var assetID uint16
		var total int64
		if err := balanceRows.Scan(&assetID, &total); err != nil {
			return nil, err
		}
		report.UnbalancedAssets = append(report.UnbalancedAssets, UnbalancedAsset{
			AssetID:   assetID,
			Imbalance: total,
		})
	}
	if err := balanceRows.Err(); err != nil {
		return nil, err
	}

	report.IsHealthy = len(report.HashChainBreaks) == 0 && len(report.UnbalancedAssets) == 0
	return report, nil
}

// --- helpers ---

func (qs *QueryService) getWatermark(ctx context.Context) (int64, error) {
	var seq int64
	err := qs.db.QueryRowContext(ctx, `
		SELECT COALESCE(last_sequence, 0) FROM projections.watermark WHERE worker_id = 'main'
	`).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return seq, err
}

func (qs *QueryService) getProjectedBalance(ctx context.Context, accountPath string) (int64, error) {
	var balance int64
	err := qs.db.QueryRowContext(ctx, `
		SELECT COALESCE(balance, 0) FROM projections.balances
		WHERE account_path = $1
	`, accountPath).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return balance, err
}

// displayAmount renders a base-unit amount as a human-readable decimal.
func displayAmount(amount int64, assetID ledger.AssetID) string {
	decimals, ok := ledger.GetAssetDecimals(assetID)
	if !ok {
		return fmt.Sprintf("%d", amount)
	}
	return decimal.New(amount, -decimals).String()
}
