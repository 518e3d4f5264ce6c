package ingestion_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"

	"ScySettle/internal/ingestion"
	"ScySettle/internal/instruction"
)

func rawFromJSON(t *testing.T, v interface{}) ingestion.RawInstruction {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return ingestion.RawInstruction{
		Subject:   "test",
		Data:      data,
		Timestamp: time.Now(),
		AckFunc:   func() {},
		NakFunc:   func() {},
	}
}

type basePayload struct {
	InstrID     string `json:"instr_id"`
	Caller      string `json:"caller"`
	Slot        uint64 `json:"slot"`
	TimestampUs int64  `json:"timestamp_us"`
	Signature   string `json:"signature,omitempty"`
}

var testCaller = solana.MustPublicKeyFromBase58("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")

func validBase() basePayload {
	return basePayload{
		InstrID:     "instr-0001",
		Caller:      testCaller.String(),
		Slot:        42,
		TimestampUs: 1_700_000_000_000_000,
	}
}

// ============================================================================
// Test: base fields
// ============================================================================

func TestParse_BaseFields(t *testing.T) {
	payload := struct {
		basePayload
		Amount int64  `json:"amount"`
		Owner  string `json:"owner"`
		Asset  string `json:"asset"`
	}{validBase(), 500, testCaller.String(), "SOL"}

	instr, err := ingestion.ParseRawInstruction(rawFromJSON(t, payload), "wallet_credit")
	if err != nil {
		t.Fatalf("ParseRawInstruction: %v", err)
	}

	if instr.IdempotencyKey() != "instr-0001" {
		t.Errorf("instr id = %q, want instr-0001", instr.IdempotencyKey())
	}
	if !instr.Authority().Equals(testCaller) {
		t.Errorf("caller = %s, want %s", instr.Authority(), testCaller)
	}
	if instr.SourceSlot() != 42 {
		t.Errorf("slot = %d, want 42", instr.SourceSlot())
	}
	if instr.TimestampUs() != 1_700_000_000_000_000 {
		t.Errorf("timestamp = %d", instr.TimestampUs())
	}
	if instr.InstructionType() != instruction.TypeWalletCredit {
		t.Errorf("type = %v, want wallet_credit", instr.InstructionType())
	}
}

func TestParse_MissingInstrID(t *testing.T) {
	payload := validBase()
	payload.InstrID = ""
	_, err := ingestion.ParseRawInstruction(rawFromJSON(t, payload), "withdraw")
	if err == nil || !strings.Contains(err.Error(), "instr_id") {
		t.Errorf("err = %v, want missing instr_id", err)
	}
}

func TestParse_BadCaller(t *testing.T) {
	payload := validBase()
	payload.Caller = "not-base58!!!"
	_, err := ingestion.ParseRawInstruction(rawFromJSON(t, payload), "close_state")
	if err == nil {
		t.Error("bad caller key accepted")
	}
}

func TestParse_UnknownType(t *testing.T) {
	_, err := ingestion.ParseRawInstruction(rawFromJSON(t, validBase()), "transfer")
	if err == nil {
		t.Error("unknown instruction type accepted")
	}
}

func TestParse_MalformedJSON(t *testing.T) {
	raw := ingestion.RawInstruction{Subject: "test", Data: []byte("{nope"), AckFunc: func() {}, NakFunc: func() {}}
	_, err := ingestion.ParseRawInstruction(raw, "deposit")
	if err == nil {
		t.Error("malformed JSON accepted")
	}
}

// ============================================================================
// Test: signature verification
// ============================================================================

func TestParse_SignatureValid(t *testing.T) {
	wallet := solana.NewWallet()
	sig, err := wallet.PrivateKey.Sign([]byte("instr-signed"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	payload := basePayload{
		InstrID:     "instr-signed",
		Caller:      wallet.PublicKey().String(),
		Slot:        1,
		TimestampUs: 1,
		Signature:   sig.String(),
	}
	if _, err := ingestion.ParseRawInstruction(rawFromJSON(t, payload), "withdraw"); err != nil {
		t.Errorf("valid signature rejected: %v", err)
	}
}

func TestParse_SignatureWrongSigner(t *testing.T) {
	signer := solana.NewWallet()
	sig, err := signer.PrivateKey.Sign([]byte("instr-signed"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	// Claimed caller differs from the actual signer.
	payload := basePayload{
		InstrID:     "instr-signed",
		Caller:      testCaller.String(),
		Slot:        1,
		TimestampUs: 1,
		Signature:   sig.String(),
	}
	if _, err := ingestion.ParseRawInstruction(rawFromJSON(t, payload), "withdraw"); err == nil {
		t.Error("forged signature accepted")
	}
}

// ============================================================================
// Test: per-type payloads
// ============================================================================

func TestParse_InitializeState(t *testing.T) {
	mint := "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	payload := struct {
		basePayload
		AcceptedMints map[string]string `json:"accepted_mints"`
	}{validBase(), map[string]string{"USDC": mint}}

	instr, err := ingestion.ParseRawInstruction(rawFromJSON(t, payload), "initialize_state")
	if err != nil {
		t.Fatalf("ParseRawInstruction: %v", err)
	}
	init := instr.(*instruction.InitializeState)
	if got := init.AcceptedMints["USDC"].String(); got != mint {
		t.Errorf("mint = %s, want %s", got, mint)
	}
}

func TestParse_InitializeVault_MissingLabel(t *testing.T) {
	payload := struct {
		basePayload
		Label string `json:"label"`
	}{validBase(), ""}

	if _, err := ingestion.ParseRawInstruction(rawFromJSON(t, payload), "initialize_vault"); err == nil {
		t.Error("missing label accepted")
	}
}

func TestParse_Deposit_NonPositiveAmount(t *testing.T) {
	for _, amount := range []int64{0, -100} {
		payload := struct {
			basePayload
			Amount int64 `json:"amount"`
		}{validBase(), amount}

		if _, err := ingestion.ParseRawInstruction(rawFromJSON(t, payload), "deposit"); err == nil {
			t.Errorf("deposit amount %d accepted", amount)
		}
	}
}

func TestParse_BuyNative(t *testing.T) {
	oracleAcct := "H6ARHf6YXhGYeQfUzQNGk6rDNnLBQKrenN712K4AQJEG"
	payload := struct {
		basePayload
		Lamports      int64  `json:"lamports"`
		OracleAccount string `json:"oracle_account"`
		OracleData    []byte `json:"oracle_data"`
	}{validBase(), 1_000_000_000, oracleAcct, []byte{1, 2, 3}}

	instr, err := ingestion.ParseRawInstruction(rawFromJSON(t, payload), "buy_native")
	if err != nil {
		t.Fatalf("ParseRawInstruction: %v", err)
	}
	buy := instr.(*instruction.BuyWithNative)
	if buy.Lamports != 1_000_000_000 {
		t.Errorf("lamports = %d", buy.Lamports)
	}
	if buy.OracleAccount.String() != oracleAcct {
		t.Errorf("oracle account = %s", buy.OracleAccount)
	}
	if len(buy.OracleData) != 3 {
		t.Errorf("oracle data lost in base64 round trip: %v", buy.OracleData)
	}
}

func TestParse_Sample(t *testing.T) {
	payload := struct {
		basePayload
		Observations []struct {
			Asset   string `json:"asset"`
			Account string `json:"account"`
			Data    []byte `json:"data"`
		} `json:"observations"`
	}{basePayload: validBase()}
	payload.Observations = append(payload.Observations, struct {
		Asset   string `json:"asset"`
		Account string `json:"account"`
		Data    []byte `json:"data"`
	}{"SOL", "H6ARHf6YXhGYeQfUzQNGk6rDNnLBQKrenN712K4AQJEG", []byte{9}})

	instr, err := ingestion.ParseRawInstruction(rawFromJSON(t, payload), "sample")
	if err != nil {
		t.Fatalf("ParseRawInstruction: %v", err)
	}
	sample := instr.(*instruction.SamplePrices)
	if len(sample.Observations) != 1 || sample.Observations[0].Asset != "SOL" {
		t.Errorf("observations = %+v", sample.Observations)
	}
}

// ============================================================================
// Test: subject routing
// ============================================================================

func TestInstrTypeForSubject(t *testing.T) {
	subjects := ingestion.DefaultSubjects()

	instrType, ok := ingestion.InstrTypeForSubject("scy.instr.buy_native", subjects)
	if !ok || instrType != "buy_native" {
		t.Errorf("got (%q, %v), want (buy_native, true)", instrType, ok)
	}

	if _, ok := ingestion.InstrTypeForSubject("scy.instr.nope", subjects); ok {
		t.Error("unknown subject resolved")
	}
}
