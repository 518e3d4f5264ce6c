package query

// WalletBalanceResponse represents a tracked wallet balance for API queries.
type WalletBalanceResponse struct {
	Owner   string `json:"owner"`
	Asset   string `json:"asset"`
	Balance int64  `json:"balance"` // base units
	Display string `json:"display"` // human-readable decimal

	AsOfSequence int64 `json:"as_of_sequence"` // last projected sequence
}

// VaultBalanceResponse represents one custody vault account balance.
type VaultBalanceResponse struct {
	AccountPath string `json:"account_path"`
	Asset       string `json:"asset"`
	Balance     int64  `json:"balance"`
	Display     string `json:"display"`

	AsOfSequence int64 `json:"as_of_sequence"`
}
