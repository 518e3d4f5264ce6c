package instruction

import (
	"encoding/json"
	"fmt"
)

// MarshalPayload serializes an instruction for the instruction log. The log
// format is the struct's own JSON encoding, not the NATS wire format; stored
// payloads have already passed signature verification.
func MarshalPayload(instr Instruction) ([]byte, error) {
	return json.Marshal(instr)
}

// UnmarshalPayload decodes a logged payload back into a typed instruction,
// used when replaying the instruction log on restart.
func UnmarshalPayload(t Type, data []byte) (Instruction, error) {
	var instr Instruction
	switch t {
	case TypeInitializeState:
		instr = &InitializeState{}
	case TypeInitializeVault:
		instr = &InitializeVault{}
	case TypeDeposit:
		instr = &Deposit{}
	case TypeWithdraw:
		instr = &Withdraw{}
	case TypeUpdateAdmin:
		instr = &UpdateAdmin{}
	case TypeBuyWithNative:
		instr = &BuyWithNative{}
	case TypeBuyWithToken:
		instr = &BuyWithToken{}
	case TypeCloseVault:
		instr = &CloseVault{}
	case TypeCloseState:
		instr = &CloseState{}
	case TypeSamplePrices:
		instr = &SamplePrices{}
	case TypeWalletCredit:
		instr = &WalletCredit{}
	default:
		return nil, fmt.Errorf("unknown instruction type %d", t)
	}

	if err := json.Unmarshal(data, instr); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", t, err)
	}
	return instr, nil
}

// TypeFromString is the inverse of Type.String, used when replaying logged
// instructions.
func TypeFromString(s string) Type {
	switch s {
	case "InitializeState":
		return TypeInitializeState
	case "InitializeVault":
		return TypeInitializeVault
	case "Deposit":
		return TypeDeposit
	case "Withdraw":
		return TypeWithdraw
	case "UpdateAdmin":
		return TypeUpdateAdmin
	case "BuyWithNative":
		return TypeBuyWithNative
	case "BuyWithToken":
		return TypeBuyWithToken
	case "CloseVault":
		return TypeCloseVault
	case "CloseState":
		return TypeCloseState
	case "SamplePrices":
		return TypeSamplePrices
	case "WalletCredit":
		return TypeWalletCredit
	default:
		return TypeUnknown
	}
}
