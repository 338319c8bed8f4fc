// Package cli implements escrowctl, the client-side tool for keys, address
// derivation and request signing.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/congo-pay/timelock_escrow/internal/address"
	"github.com/congo-pay/timelock_escrow/internal/escrow"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format    string // "json" | "text"
	ProgramID string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of escrowctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "escrowctl",
		Short: "Client tooling for the time-locked escrow",
		Long:  "Generate ed25519 keypairs, derive vault and record addresses, and sign escrow instructions.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if _, err := address.Parse(opts.ProgramID); err != nil {
				return fmt.Errorf("invalid program id: %w", err)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ProgramID, "program-id", escrow.DefaultProgramID, "escrow program id")

	cmd.AddCommand(NewKeygenCommand(opts))
	cmd.AddCommand(NewDeriveCommand(opts))
	cmd.AddCommand(NewSignCommand(opts))

	return cmd
}

// output writes v as indented JSON, or the text lines for text mode.
func output(w io.Writer, format string, v any, lines ...string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
