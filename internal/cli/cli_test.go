package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/timelock_escrow/internal/address"
	"github.com/congo-pay/timelock_escrow/internal/escrow"
	"github.com/congo-pay/timelock_escrow/internal/signing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"keygen", "derive", "sign"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestKeygenDeriveSign(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "owner.json")

	out, err := run(t, "--format", "json", "keygen", "-o", keyPath)
	require.NoError(t, err)
	var generated KeygenResult
	require.NoError(t, json.Unmarshal([]byte(out), &generated))
	owner, err := address.Parse(generated.Address)
	require.NoError(t, err)

	_, err = run(t, "keygen", "-o", keyPath)
	require.Error(t, err, "keygen must not overwrite without --force")

	out, err = run(t, "--format", "json", "derive", "-k", keyPath)
	require.NoError(t, err)
	var accts escrow.Accounts
	require.NoError(t, json.Unmarshal([]byte(out), &accts))
	expected, err := escrow.DeriveAccounts(address.MustParse(escrow.DefaultProgramID), owner)
	require.NoError(t, err)
	assert.Equal(t, expected, accts)

	ts := time.Now().Unix()
	body := `{"amount":1000}`
	out, err = run(t, "--format", "json", "sign", "-k", keyPath, "-d", body, "--timestamp", strconv.FormatInt(ts, 10), "/api/v1/escrow/lock")
	require.NoError(t, err)
	var headers SignResult
	require.NoError(t, json.Unmarshal([]byte(out), &headers))

	signer, err := signing.Verify(signing.Headers{
		Signer:         headers[signing.SignerHeader],
		Timestamp:      headers[signing.TimestampHeader],
		Signature:      headers[signing.SignatureHeader],
		IdempotencyKey: headers[signing.IdempotencyKeyHeader],
	}, "POST", "/api/v1/escrow/lock", []byte(body), time.Unix(ts, 0), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, owner, signer)
	assert.NotEmpty(t, headers[signing.IdempotencyKeyHeader])
}

func TestDeriveRequiresOwner(t *testing.T) {
	_, err := run(t, "derive")
	require.Error(t, err)

	_, err = run(t, "--format", "yaml", "derive", escrow.DefaultProgramID)
	require.Error(t, err)
}
