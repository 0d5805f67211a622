// Package domain holds the value types shared across the settlement engine:
// opaque signer identities, the Market and Wager records, and the sentinel
// errors every layer above it reasons about.
package domain

import (
	"encoding/hex"
	"errors"
)

// Identity is a 32-byte opaque signer identity (creator, oracle,
// participant). It is intentionally not tied to any particular signature
// scheme; callers that need to verify a signature do so against the raw
// bytes before constructing an Identity.
type Identity [32]byte

// ZeroIdentity is the identity with every byte zero, used as a sentinel for
// "no identity set" in places that cannot use a pointer (e.g. map values).
var ZeroIdentity Identity

// String renders the identity as a lowercase hex string.
func (id Identity) String() string {
	return hex.EncodeToString(id[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identity) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	if len(b) != len(id) {
		return errors.New("domain: identity must decode to exactly 32 bytes")
	}
	copy(id[:], b)
	return nil
}

// IsZero reports whether id is the zero identity.
func (id Identity) IsZero() bool {
	return id == ZeroIdentity
}

// IdentityFromBytes builds an Identity from a byte slice, which must be
// exactly 32 bytes long.
func IdentityFromBytes(b []byte) (Identity, error) {
	var id Identity
	if len(b) != len(id) {
		return id, errors.New("domain: identity must be exactly 32 bytes")
	}
	copy(id[:], b)
	return id, nil
}

// IdentityFromString parses a hex-encoded 32-byte identity, left-padding
// short seeds is not performed — callers must supply the full 32 bytes.
func IdentityFromString(s string) (Identity, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Identity{}, err
	}
	return IdentityFromBytes(b)
}
