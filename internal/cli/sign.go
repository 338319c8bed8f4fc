package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/congo-pay/timelock_escrow/internal/signing"
)

// SignResult is the JSON output of sign: header name to value.
type SignResult map[string]string

// NewSignCommand creates the sign command.
func NewSignCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		keypair  string
		method   string
		body     string
		bodyFile string
		idemKey  string
		at       int64
	)
	cmd := &cobra.Command{
		Use:   "sign <path>",
		Short: "Sign an escrow instruction request",
		Long: `Sign an HTTP request to an escrow instruction endpoint.

Prints the signature and Idempotency-Key headers to send along with the
exact same body. A random key is generated unless --idempotency-key is set, e.g.

  escrowctl sign -k key.json --body '{"amount":1000}' /api/v1/escrow/lock`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keypair == "" {
				return fmt.Errorf("--keypair is required")
			}
			key, err := readKeypair(keypair)
			if err != nil {
				return err
			}
			payload := []byte(body)
			if bodyFile != "" {
				if payload, err = os.ReadFile(bodyFile); err != nil {
					return fmt.Errorf("read body: %w", err)
				}
			}
			ts := time.Now()
			if at > 0 {
				ts = time.Unix(at, 0)
			}

			if idemKey == "" {
				idemKey = uuid.NewString()
			}

			h, err := signing.Sign(key, strings.ToUpper(method), args[0], idemKey, ts, payload)
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), rootOpts.Format,
				SignResult{
					signing.SignerHeader:         h.Signer,
					signing.TimestampHeader:      h.Timestamp,
					signing.SignatureHeader:      h.Signature,
					signing.IdempotencyKeyHeader: h.IdempotencyKey,
				},
				signing.SignerHeader+": "+h.Signer,
				signing.TimestampHeader+": "+h.Timestamp,
				signing.SignatureHeader+": "+h.Signature,
				signing.IdempotencyKeyHeader+": "+h.IdempotencyKey,
			)
		},
	}
	cmd.Flags().StringVarP(&keypair, "keypair", "k", "", "keypair file of the signer")
	cmd.Flags().StringVarP(&method, "method", "X", "POST", "HTTP method")
	cmd.Flags().StringVarP(&body, "body", "d", "", "request body")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "read the request body from a file")
	cmd.Flags().StringVarP(&idemKey, "idempotency-key", "i", "", "Idempotency-Key to sign (default random)")
	cmd.Flags().Int64Var(&at, "timestamp", 0, "unix timestamp to sign at (default now)")
	return cmd
}
