package escrow

import (
	"github.com/congo-pay/timelock_escrow/internal/address"
)

// VaultSeed is the fixed seed of the shared vault address.
const VaultSeed = "SOL_VAULT"

// DefaultProgramID is the program id the escrow was deployed under.
const DefaultProgramID = "FFuyrsPLstdzs8Q3ywzsy1X7j57ZBZCa3sQGSqv9SLKA"

// Accounts lists the addresses an instruction touches for one owner.
type Accounts struct {
	Owner      address.Address `json:"owner"`
	Vault      address.Address `json:"vault"`
	VaultBump  uint8           `json:"vault_bump"`
	Record     address.Address `json:"record"`
	RecordBump uint8           `json:"record_bump"`
}

// VaultAddress derives the vault address for a program.
func VaultAddress(programID address.Address) (address.Address, uint8, error) {
	return address.FindProgramAddress([][]byte{[]byte(VaultSeed)}, programID)
}

// RecordAddress derives the escrow record address of owner.
func RecordAddress(programID, owner address.Address) (address.Address, uint8, error) {
	return address.FindProgramAddress([][]byte{owner[:]}, programID)
}

// DeriveAccounts computes every address an owner's lock or claim needs.
func DeriveAccounts(programID, owner address.Address) (Accounts, error) {
	vault, vaultBump, err := VaultAddress(programID)
	if err != nil {
		return Accounts{}, err
	}
	record, recordBump, err := RecordAddress(programID, owner)
	if err != nil {
		return Accounts{}, err
	}
	return Accounts{
		Owner:      owner,
		Vault:      vault,
		VaultBump:  vaultBump,
		Record:     record,
		RecordBump: recordBump,
	}, nil
}
