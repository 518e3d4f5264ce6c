package instruction_test

import (
	"testing"

	"github.com/gagliardetto/solana-go"

	"ScySettle/internal/instruction"
)

// TypeFromString must invert Type.String for every known type, or log
// replay cannot rehydrate persisted instructions.
func TestTypeFromString_InvertsString(t *testing.T) {
	types := []instruction.Type{
		instruction.TypeInitializeState,
		instruction.TypeInitializeVault,
		instruction.TypeDeposit,
		instruction.TypeWithdraw,
		instruction.TypeUpdateAdmin,
		instruction.TypeBuyWithNative,
		instruction.TypeBuyWithToken,
		instruction.TypeCloseVault,
		instruction.TypeCloseState,
		instruction.TypeSamplePrices,
		instruction.TypeWalletCredit,
	}

	for _, typ := range types {
		if got := instruction.TypeFromString(typ.String()); got != typ {
			t.Errorf("TypeFromString(%q) = %v, want %v", typ.String(), got, typ)
		}
	}

	if got := instruction.TypeFromString("Transfer"); got != instruction.TypeUnknown {
		t.Errorf("TypeFromString(unknown) = %v, want TypeUnknown", got)
	}
}

func TestUnmarshalPayload_UnknownType(t *testing.T) {
	if _, err := instruction.UnmarshalPayload(instruction.TypeUnknown, []byte("{}")); err == nil {
		t.Error("unknown type decoded")
	}
}

func TestPayloadRoundTrip_BuyWithToken(t *testing.T) {
	mint := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	oracleAcct := solana.MustPublicKeyFromBase58("Gnt27xtC473ZT2Mw5u8wZ68Z3gULkSTb5DuxJy7eJotD")

	orig := &instruction.BuyWithToken{
		Base: instruction.Base{
			InstrID:   "instr-77",
			Caller:    mint,
			Slot:      99,
			Timestamp: 1_700_000_000_000_000,
		},
		Mint:          mint,
		Amount:        100_000_000,
		OracleAccount: oracleAcct,
		OracleData:    []byte{0xDE, 0xAD},
	}

	data, err := instruction.MarshalPayload(orig)
	if err != nil {
		t.Fatalf("MarshalPayload: %v", err)
	}

	replayed, err := instruction.UnmarshalPayload(instruction.TypeBuyWithToken, data)
	if err != nil {
		t.Fatalf("UnmarshalPayload: %v", err)
	}

	got, ok := replayed.(*instruction.BuyWithToken)
	if !ok {
		t.Fatalf("replayed type = %T", replayed)
	}
	if got.IdempotencyKey() != orig.IdempotencyKey() ||
		got.SourceSlot() != orig.SourceSlot() ||
		!got.Mint.Equals(orig.Mint) ||
		got.Amount != orig.Amount ||
		len(got.OracleData) != 2 {
		t.Errorf("round trip lost fields: %+v", got)
	}
}
