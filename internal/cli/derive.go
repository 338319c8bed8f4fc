package cli

import (
	"crypto/ed25519"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/congo-pay/timelock_escrow/internal/address"
	"github.com/congo-pay/timelock_escrow/internal/escrow"
)

// NewDeriveCommand creates the derive command.
func NewDeriveCommand(rootOpts *RootOptions) *cobra.Command {
	var keypair string
	cmd := &cobra.Command{
		Use:   "derive [owner]",
		Short: "Derive the vault and record addresses of an owner",
		Long: `Derive the program addresses an owner's lock and claim instructions use.

The owner is given as a base58 address or read from --keypair.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := resolveOwner(args, keypair)
			if err != nil {
				return err
			}
			accts, err := escrow.DeriveAccounts(address.MustParse(rootOpts.ProgramID), owner)
			if err != nil {
				return fmt.Errorf("derive: %w", err)
			}
			return output(cmd.OutOrStdout(), rootOpts.Format, accts,
				"owner:  "+accts.Owner.String(),
				fmt.Sprintf("vault:  %s (bump %d)", accts.Vault, accts.VaultBump),
				fmt.Sprintf("record: %s (bump %d)", accts.Record, accts.RecordBump),
			)
		},
	}
	cmd.Flags().StringVarP(&keypair, "keypair", "k", "", "keypair file of the owner")
	return cmd
}

func resolveOwner(args []string, keypair string) (address.Address, error) {
	switch {
	case len(args) == 1:
		return address.Parse(args[0])
	case keypair != "":
		key, err := readKeypair(keypair)
		if err != nil {
			return address.Address{}, err
		}
		return address.FromPublicKey(key.Public().(ed25519.PublicKey))
	default:
		return address.Address{}, fmt.Errorf("owner address or --keypair is required")
	}
}
