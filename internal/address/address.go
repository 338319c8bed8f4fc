// Package address implements 32-byte account addresses and the program-derived
// address scheme used to locate escrow state without a lookup table.
package address

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
)

// Size is the byte length of an address.
const Size = 32

var (
	// ErrInvalidAddress is returned when a textual address cannot be decoded.
	ErrInvalidAddress = errors.New("invalid address")
)

// Address identifies an account. Caller identities are ed25519 public keys and
// share the same representation.
type Address [Size]byte

// Zero is the all-zero address.
var Zero Address

// Parse decodes a base58 address.
func Parse(s string) (Address, error) {
	raw := base58.Decode(s)
	if len(raw) != Size {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	var a Address
	copy(a[:], raw)
	return a, nil
}

// MustParse is like Parse but panics on malformed input. Intended for constants.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromPublicKey converts an ed25519 public key into an address.
func FromPublicKey(pub ed25519.PublicKey) (Address, error) {
	if len(pub) != ed25519.PublicKeySize {
		return Zero, fmt.Errorf("%w: public key has %d bytes", ErrInvalidAddress, len(pub))
	}
	var a Address
	copy(a[:], pub)
	return a, nil
}

// String returns the base58 form.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// Bytes returns a copy of the raw bytes.
func (a Address) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, a[:])
	return b
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == Zero
}

// PublicKey exposes the address as an ed25519 verification key.
func (a Address) PublicKey() ed25519.PublicKey {
	return ed25519.PublicKey(a.Bytes())
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty text decodes to Zero.
func (a *Address) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*a = Zero
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
