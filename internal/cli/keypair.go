package cli

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
)

// Keypairs are stored as a JSON array of the 64 private key bytes, the
// layout Solana tooling uses.

func writeKeypair(path string, key ed25519.PrivateKey) error {
	raw := make([]int, len(key))
	for i, b := range key {
		raw[i] = int(b)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readKeypair(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode keypair %s: %w", path, err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keypair %s has %d bytes, want %d", path, len(raw), ed25519.PrivateKeySize)
	}
	key := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	for i, v := range raw {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("keypair %s: byte %d out of range", path, i)
		}
		key[i] = byte(v)
	}
	// the trailing half must be the public key of the seed
	if !key.Equal(ed25519.NewKeyFromSeed(key.Seed())) {
		return nil, fmt.Errorf("keypair %s: public key does not match seed", path)
	}
	return key, nil
}
