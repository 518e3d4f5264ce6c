package instruction

import "github.com/gagliardetto/solana-go"

// Deposit moves sale tokens from the admin wallet into the sale vault
type Deposit struct {
	Base
	Amount int64 `json:"amount"` // sale-token base units
}

func (i *Deposit) InstructionType() Type { return TypeDeposit }

// Withdraw sweeps every non-empty payment vault to the admin wallet.
// The sale vault is never swept.
type Withdraw struct {
	Base
}

func (i *Withdraw) InstructionType() Type { return TypeWithdraw }

// WalletCredit mirrors external funding of a tracked wallet from the
// outside world. It is the ledger's boundary instruction.
type WalletCredit struct {
	Base
	Owner  solana.PublicKey `json:"owner"`
	Asset  string           `json:"asset"`
	Amount int64            `json:"amount"` // base units
}

func (i *WalletCredit) InstructionType() Type { return TypeWalletCredit }
