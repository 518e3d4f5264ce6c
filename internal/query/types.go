package query

// PurchaseResponse represents a settled buy for API queries.
type PurchaseResponse struct {
	Sequence      int64  `json:"sequence"`
	Buyer         string `json:"buyer"`
	PayAsset      string `json:"pay_asset"`
	PayAmount     int64  `json:"pay_amount"`
	PayDisplay    string `json:"pay_display"` // human-readable, e.g. "1.5" SOL
	SaleAmount    int64  `json:"sale_amount"`
	SaleDisplay   string `json:"sale_display"`
	QuoteMantissa int64  `json:"quote_mantissa"`
	QuoteExponent int32  `json:"quote_exponent"`
	QuoteUSD      string `json:"quote_usd"` // normalized oracle price at settlement
	Slot          int64  `json:"slot"`
	Timestamp     int64  `json:"timestamp"`
	AsOfSequence  int64  `json:"as_of_sequence"`
}

// SaleStatsResponse aggregates sale progress across all purchases.
type SaleStatsResponse struct {
	TotalPurchases int64            `json:"total_purchases"`
	UnitsSold      int64            `json:"units_sold"`
	UnitsDisplay   string           `json:"units_display"`
	PaymentsTaken  map[string]int64 `json:"payments_taken"` // pay asset -> base units
	AsOfSequence   int64            `json:"as_of_sequence"`
}

// JournalHistoryEntry represents a journal entry for API queries.
type JournalHistoryEntry struct {
	JournalID     string `json:"journal_id"`
	BatchID       string `json:"batch_id"`
	InstrRef      string `json:"instr_ref"`
	Sequence      int64  `json:"sequence"`
	DebitAccount  string `json:"debit_account"`
	CreditAccount string `json:"credit_account"`
	AssetID       uint16 `json:"asset_id"`
	Amount        int64  `json:"amount"`
	JournalType   int32  `json:"journal_type"`
	Timestamp     int64  `json:"timestamp"`
}

// IntegrityReport is the result of an integrity verification check.
type IntegrityReport struct {
	IsHealthy        bool              `json:"is_healthy"`
	HashChainBreaks  []int64           `json:"hash_chain_breaks,omitempty"`
	UnbalancedAssets []UnbalancedAsset `json:"unbalanced_assets,omitempty"`
}

// UnbalancedAsset represents an asset whose global balance sum is non-zero.
type UnbalancedAsset struct {
	AssetID   uint16 `json:"asset_id"`
	Imbalance int64  `json:"imbalance"`
}
