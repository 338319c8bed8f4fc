package cli

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/congo-pay/timelock_escrow/internal/address"
)

// KeygenResult is the JSON output of keygen.
type KeygenResult struct {
	Address string `json:"address"`
	Keypair string `json:"keypair"`
}

// NewKeygenCommand creates the keygen command.
func NewKeygenCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		outfile string
		force   bool
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an ed25519 keypair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if _, err := os.Stat(outfile); err == nil {
					return fmt.Errorf("%s exists, pass --force to overwrite", outfile)
				}
			}
			pub, key, err := ed25519.GenerateKey(rand.Reader)
			if err != nil {
				return fmt.Errorf("generate key: %w", err)
			}
			if err := writeKeypair(outfile, key); err != nil {
				return fmt.Errorf("write keypair: %w", err)
			}
			addr, err := address.FromPublicKey(pub)
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), rootOpts.Format,
				KeygenResult{Address: addr.String(), Keypair: outfile},
				"address: "+addr.String(),
				"keypair: "+outfile,
			)
		},
	}
	cmd.Flags().StringVarP(&outfile, "outfile", "o", "escrow-keypair.json", "keypair file to write")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing keypair file")
	return cmd
}
