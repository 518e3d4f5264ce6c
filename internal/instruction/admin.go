package instruction

import "github.com/gagliardetto/solana-go"

// InitializeState creates the settlement state. The caller becomes admin.
type InitializeState struct {
	Base
	AcceptedMints map[string]solana.PublicKey `json:"accepted_mints"` // symbol -> mint address
}

func (i *InitializeState) InstructionType() Type { return TypeInitializeState }

// InitializeVault opens one custody vault by seed label
// (pda_sol, pda_spl_ata, pda_usdc_ata, pda_usdt_ata).
type InitializeVault struct {
	Base
	Label string `json:"label"`
}

func (i *InitializeVault) InstructionType() Type { return TypeInitializeVault }

// UpdateAdmin rotates the admin authority
type UpdateAdmin struct {
	Base
	NewAdmin solana.PublicKey `json:"new_admin"`
}

func (i *UpdateAdmin) InstructionType() Type { return TypeUpdateAdmin }

// CloseVault closes an empty vault and refunds its rent
type CloseVault struct {
	Base
	Label string `json:"label"`
}

func (i *CloseVault) InstructionType() Type { return TypeCloseVault }

// CloseState closes the settlement state. Requires all vaults closed.
type CloseState struct {
	Base
}

func (i *CloseState) InstructionType() Type { return TypeCloseState }
