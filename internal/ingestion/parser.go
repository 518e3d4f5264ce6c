package ingestion

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"ScySettle/internal/instruction"
)

// ParseRawInstruction converts a RawInstruction (JSON bytes + instruction
// type string) into a typed instruction.Instruction. The ingestion shell
// validates, parses, and signature-checks raw payloads before sending them
// to the settlement core.
func ParseRawInstruction(raw RawInstruction, instrType string) (instruction.Instruction, error) {
	switch instrType {
	case "initialize_state":
		return parseInitializeState(raw.Data)
	case "initialize_vault":
		return parseInitializeVault(raw.Data)
	case "deposit":
		return parseDeposit(raw.Data)
	case "withdraw":
		return parseWithdraw(raw.Data)
	case "update_admin":
		return parseUpdateAdmin(raw.Data)
	case "buy_native":
		return parseBuyWithNative(raw.Data)
	case "buy_token":
		return parseBuyWithToken(raw.Data)
	case "close_vault":
		return parseCloseVault(raw.Data)
	case "close_state":
		return parseCloseState(raw.Data)
	case "sample":
		return parseSamplePrices(raw.Data)
	case "wallet_credit":
		return parseWalletCredit(raw.Data)
	default:
		return nil, fmt.Errorf("unknown instruction type: %s", instrType)
	}
}

// --- JSON wire formats ---
// These structs represent the JSON payloads received from NATS.
// Field names use snake_case to match the chain-side producer.

// baseJSON carries the fields shared by every instruction payload.
// signature, when present, is a base58 ed25519 signature over the raw
// instr_id bytes, verified against the caller key.
type baseJSON struct {
	InstrID     string `json:"instr_id"`
	Caller      string `json:"caller"`
	Slot        uint64 `json:"slot"`
	TimestampUs int64  `json:"timestamp_us"`
	Signature   string `json:"signature,omitempty"`
}

func (j *baseJSON) toBase() (instruction.Base, error) {
	if j.InstrID == "" {
		return instruction.Base{}, fmt.Errorf("missing instr_id")
	}

	caller, err := solana.PublicKeyFromBase58(j.Caller)
	if err != nil {
		return instruction.Base{}, fmt.Errorf("parse caller: %w", err)
	}

	if j.Signature != "" {
		sig, err := solana.SignatureFromBase58(j.Signature)
		if err != nil {
			return instruction.Base{}, fmt.Errorf("parse signature: %w", err)
		}
		if !ed25519.Verify(ed25519.PublicKey(caller[:]), []byte(j.InstrID), sig[:]) {
			return instruction.Base{}, fmt.Errorf("signature verification failed for instr %s", j.InstrID)
		}
	}

	return instruction.Base{
		InstrID:   j.InstrID,
		Caller:    caller,
		Slot:      j.Slot,
		Timestamp: j.TimestampUs,
	}, nil
}

type initializeStateJSON struct {
	baseJSON
	AcceptedMints map[string]string `json:"accepted_mints"` // symbol → base58 mint
}

func parseInitializeState(data []byte) (*instruction.InitializeState, error) {
	var j initializeStateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse initialize_state: %w", err)
	}
	base, err := j.toBase()
	if err != nil {
		return nil, err
	}

	mints := make(map[string]solana.PublicKey, len(j.AcceptedMints))
	for symbol, raw := range j.AcceptedMints {
		mint, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			return nil, fmt.Errorf("parse accepted mint %s: %w", symbol, err)
		}
		mints[symbol] = mint
	}

	return &instruction.InitializeState{Base: base, AcceptedMints: mints}, nil
}

type initializeVaultJSON struct {
	baseJSON
	Label string `json:"label"`
}

func parseInitializeVault(data []byte) (*instruction.InitializeVault, error) {
	var j initializeVaultJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse initialize_vault: %w", err)
	}
	base, err := j.toBase()
	if err != nil {
		return nil, err
	}
	if j.Label == "" {
		return nil, fmt.Errorf("initialize_vault: missing label")
	}
	return &instruction.InitializeVault{Base: base, Label: j.Label}, nil
}

type depositJSON struct {
	baseJSON
	Amount int64 `json:"amount"`
}

func parseDeposit(data []byte) (*instruction.Deposit, error) {
	var j depositJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse deposit: %w", err)
	}
	base, err := j.toBase()
	if err != nil {
		return nil, err
	}
	if j.Amount <= 0 {
		return nil, fmt.Errorf("deposit: amount must be positive, got %d", j.Amount)
	}
	return &instruction.Deposit{Base: base, Amount: j.Amount}, nil
}

func parseWithdraw(data []byte) (*instruction.Withdraw, error) {
	var j baseJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse withdraw: %w", err)
	}
	base, err := j.toBase()
	if err != nil {
		return nil, err
	}
	return &instruction.Withdraw{Base: base}, nil
}

type updateAdminJSON struct {
	baseJSON
	NewAdmin string `json:"new_admin"`
}

func parseUpdateAdmin(data []byte) (*instruction.UpdateAdmin, error) {
	var j updateAdminJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse update_admin: %w", err)
	}
	base, err := j.toBase()
	if err != nil {
		return nil, err
	}
	newAdmin, err := solana.PublicKeyFromBase58(j.NewAdmin)
	if err != nil {
		return nil, fmt.Errorf("parse new_admin: %w", err)
	}
	return &instruction.UpdateAdmin{Base: base, NewAdmin: newAdmin}, nil
}

type buyNativeJSON struct {
	baseJSON
	Lamports      int64  `json:"lamports"`
	OracleAccount string `json:"oracle_account"`
	OracleData    []byte `json:"oracle_data"` // base64
}

func parseBuyWithNative(data []byte) (*instruction.BuyWithNative, error) {
	var j buyNativeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse buy_native: %w", err)
	}
	base, err := j.toBase()
	if err != nil {
		return nil, err
	}
	if j.Lamports <= 0 {
		return nil, fmt.Errorf("buy_native: lamports must be positive, got %d", j.Lamports)
	}
	oracleAcct, err := solana.PublicKeyFromBase58(j.OracleAccount)
	if err != nil {
		return nil, fmt.Errorf("parse oracle_account: %w", err)
	}
	return &instruction.BuyWithNative{
		Base:          base,
		Lamports:      j.Lamports,
		OracleAccount: oracleAcct,
		OracleData:    j.OracleData,
	}, nil
}

type buyTokenJSON struct {
	baseJSON
	Mint          string `json:"mint"`
	Amount        int64  `json:"amount"`
	OracleAccount string `json:"oracle_account"`
	OracleData    []byte `json:"oracle_data"` // base64
}

func parseBuyWithToken(data []byte) (*instruction.BuyWithToken, error) {
	var j buyTokenJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse buy_token: %w", err)
	}
	base, err := j.toBase()
	if err != nil {
		return nil, err
	}
	if j.Amount <= 0 {
		return nil, fmt.Errorf("buy_token: amount must be positive, got %d", j.Amount)
	}
	mint, err := solana.PublicKeyFromBase58(j.Mint)
	if err != nil {
		return nil, fmt.Errorf("parse mint: %w", err)
	}
	oracleAcct, err := solana.PublicKeyFromBase58(j.OracleAccount)
	if err != nil {
		return nil, fmt.Errorf("parse oracle_account: %w", err)
	}
	return &instruction.BuyWithToken{
		Base:          base,
		Mint:          mint,
		Amount:        j.Amount,
		OracleAccount: oracleAcct,
		OracleData:    j.OracleData,
	}, nil
}

type closeVaultJSON struct {
	baseJSON
	Label string `json:"label"`
}

func parseCloseVault(data []byte) (*instruction.CloseVault, error) {
	var j closeVaultJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse close_vault: %w", err)
	}
	base, err := j.toBase()
	if err != nil {
		return nil, err
	}
	if j.Label == "" {
		return nil, fmt.Errorf("close_vault: missing label")
	}
	return &instruction.CloseVault{Base: base, Label: j.Label}, nil
}

func parseCloseState(data []byte) (*instruction.CloseState, error) {
	var j baseJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse close_state: %w", err)
	}
	base, err := j.toBase()
	if err != nil {
		return nil, err
	}
	return &instruction.CloseState{Base: base}, nil
}

type observationJSON struct {
	Asset   string `json:"asset"`
	Account string `json:"account"`
	Data    []byte `json:"data"` // base64
}

type sampleJSON struct {
	baseJSON
	Observations []observationJSON `json:"observations"`
}

func parseSamplePrices(data []byte) (*instruction.SamplePrices, error) {
	var j sampleJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse sample: %w", err)
	}
	base, err := j.toBase()
	if err != nil {
		return nil, err
	}

	obs := make([]instruction.OracleObservation, 0, len(j.Observations))
	for _, o := range j.Observations {
		acct, err := solana.PublicKeyFromBase58(o.Account)
		if err != nil {
			return nil, fmt.Errorf("parse observation account for %s: %w", o.Asset, err)
		}
		obs = append(obs, instruction.OracleObservation{
			Asset:   o.Asset,
			Account: acct,
			Data:    o.Data,
		})
	}

	return &instruction.SamplePrices{Base: base, Observations: obs}, nil
}

type walletCreditJSON struct {
	baseJSON
	Owner  string `json:"owner"`
	Asset  string `json:"asset"`
	Amount int64  `json:"amount"`
}

func parseWalletCredit(data []byte) (*instruction.WalletCredit, error) {
	var j walletCreditJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse wallet_credit: %w", err)
	}
	base, err := j.toBase()
	if err != nil {
		return nil, err
	}
	owner, err := solana.PublicKeyFromBase58(j.Owner)
	if err != nil {
		return nil, fmt.Errorf("parse owner: %w", err)
	}
	if j.Amount <= 0 {
		return nil, fmt.Errorf("wallet_credit: amount must be positive, got %d", j.Amount)
	}
	return &instruction.WalletCredit{Base: base, Owner: owner, Asset: j.Asset, Amount: j.Amount}, nil
}
