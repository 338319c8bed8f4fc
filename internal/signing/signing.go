// Package signing authenticates HTTP instructions with the caller's ed25519
// key. The signed message binds method, path, timestamp, idempotency key and
// body, so a captured request cannot be replayed under a fresh key.
package signing

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/btcsuite/btcutil/base58"

	"github.com/congo-pay/timelock_escrow/internal/address"
)

const (
	SignerHeader    = "X-Escrow-Signer"
	TimestampHeader = "X-Escrow-Timestamp"
	SignatureHeader = "X-Escrow-Signature"
	// IdempotencyKeyHeader is signed along with the request.
	IdempotencyKeyHeader = "Idempotency-Key"
)

var (
	ErrMissingHeaders   = errors.New("missing signature headers")
	ErrInvalidTimestamp = errors.New("invalid signature timestamp")
	ErrExpired          = errors.New("signature timestamp outside accepted window")
	ErrBadSignature     = errors.New("signature verification failed")
)

// Headers carries the signature headers of a request.
type Headers struct {
	Signer         string
	Timestamp      string
	Signature      string
	IdempotencyKey string
}

// Message builds the bytes a client signs.
func Message(method, path, timestamp, idempotencyKey string, body []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(method) + len(path) + len(timestamp) + len(idempotencyKey) + len(body) + 4)
	for _, part := range []string{method, path, timestamp, idempotencyKey} {
		buf.WriteString(part)
		buf.WriteByte('\n')
	}
	buf.Write(body)
	return buf.Bytes()
}

// Sign produces the headers for a request signed by key at ts.
func Sign(key ed25519.PrivateKey, method, path, idempotencyKey string, ts time.Time, body []byte) (Headers, error) {
	if idempotencyKey == "" {
		return Headers{}, fmt.Errorf("%w: idempotency key is required", ErrMissingHeaders)
	}
	signer, err := address.FromPublicKey(key.Public().(ed25519.PublicKey))
	if err != nil {
		return Headers{}, err
	}
	timestamp := strconv.FormatInt(ts.Unix(), 10)
	sig := ed25519.Sign(key, Message(method, path, timestamp, idempotencyKey, body))
	return Headers{
		Signer:         signer.String(),
		Timestamp:      timestamp,
		Signature:      base58.Encode(sig),
		IdempotencyKey: idempotencyKey,
	}, nil
}

// Verify checks h against the request and returns the signer. Timestamps more
// than maxAge away from now in either direction are rejected.
func Verify(h Headers, method, path string, body []byte, now time.Time, maxAge time.Duration) (address.Address, error) {
	if h.Signer == "" || h.Timestamp == "" || h.Signature == "" || h.IdempotencyKey == "" {
		return address.Address{}, ErrMissingHeaders
	}
	signer, err := address.Parse(h.Signer)
	if err != nil {
		return address.Address{}, fmt.Errorf("signer: %w", err)
	}

	unix, err := strconv.ParseInt(h.Timestamp, 10, 64)
	if err != nil {
		return address.Address{}, ErrInvalidTimestamp
	}
	if maxAge > 0 {
		skew := now.Sub(time.Unix(unix, 0))
		if skew > maxAge || skew < -maxAge {
			return address.Address{}, ErrExpired
		}
	}

	sig := base58.Decode(h.Signature)
	if len(sig) != ed25519.SignatureSize {
		return address.Address{}, ErrBadSignature
	}
	if !ed25519.Verify(signer.PublicKey(), Message(method, path, h.Timestamp, h.IdempotencyKey, body), sig) {
		return address.Address{}, ErrBadSignature
	}
	return signer, nil
}
