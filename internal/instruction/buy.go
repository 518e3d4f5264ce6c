package instruction

import "github.com/gagliardetto/solana-go"

// BuyWithNative settles a native-coin purchase: lamports in, sale tokens out,
// at the oracle-converted rate.
type BuyWithNative struct {
	Base
	Lamports      int64            `json:"lamports"`
	OracleAccount solana.PublicKey `json:"oracle_account"`
	OracleData    []byte           `json:"oracle_data"`
}

func (i *BuyWithNative) InstructionType() Type { return TypeBuyWithNative }

// BuyWithToken settles a stablecoin purchase. The payment mint must be in
// the accepted set; the quote is oracle-checked like the native path.
type BuyWithToken struct {
	Base
	Mint          solana.PublicKey `json:"mint"`
	Amount        int64            `json:"amount"` // payment-token base units
	OracleAccount solana.PublicKey `json:"oracle_account"`
	OracleData    []byte           `json:"oracle_data"`
}

func (i *BuyWithToken) InstructionType() Type { return TypeBuyWithToken }
