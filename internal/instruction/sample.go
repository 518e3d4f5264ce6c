package instruction

import "github.com/gagliardetto/solana-go"

// OracleObservation pairs a feed account with its raw payload bytes
type OracleObservation struct {
	Asset   string           `json:"asset"`
	Account solana.PublicKey `json:"account"`
	Data    []byte           `json:"data"`
}

// SamplePrices is a read-only diagnostic: validates and logs the normalized
// price of every supplied feed. Produces no journals.
type SamplePrices struct {
	Base
	Observations []OracleObservation `json:"observations"`
}

func (i *SamplePrices) InstructionType() Type { return TypeSamplePrices }
