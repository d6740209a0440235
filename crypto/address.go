// Package crypto defines the opaque account address type threaded through
// every lending engine operation. Addresses here are caller-supplied
// identifiers (20 raw bytes plus a human-readable bech32 prefix); this
// package performs no key derivation or signing, since spec.md treats key
// management as an external, out-of-scope concern.
package crypto

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
)

// AddressPrefix is the human-readable bech32 prefix used when rendering an
// Address to its string form.
type AddressPrefix string

// Prefix identifies addresses belonging to the protocol's own namespace
// (module treasury, collateral vault, admin, and ordinary user accounts all
// share it; callers may mint their own prefixes for multi-tenant setups).
const Prefix AddressPrefix = "whirl"

// Address is a 20-byte account identifier carrying a bech32 prefix.
type Address struct {
	prefix AddressPrefix
	bytes  []byte
}

// ErrInvalidAddressLength is returned by NewAddress when the raw identifier
// is not exactly 20 bytes.
var ErrInvalidAddressLength = errors.New("crypto: address must be 20 bytes long")

// NewAddress constructs an Address from a prefix and 20 raw bytes.
func NewAddress(prefix AddressPrefix, raw []byte) (Address, error) {
	if len(raw) != 20 {
		return Address{}, ErrInvalidAddressLength
	}
	return Address{prefix: prefix, bytes: raw}, nil
}

// MustNewAddress is NewAddress but panics on error; intended for tests and
// fixed constants, not for handling untrusted input.
func MustNewAddress(prefix AddressPrefix, raw []byte) Address {
	addr, err := NewAddress(prefix, raw)
	if err != nil {
		panic(err)
	}
	return addr
}

// IsZero reports whether the address carries no identifying bytes.
func (a Address) IsZero() bool {
	if len(a.bytes) == 0 {
		return true
	}
	for _, b := range a.bytes {
		if b != 0 {
			return false
		}
	}
	return true
}

// Bytes returns the raw 20-byte identifier.
func (a Address) Bytes() []byte {
	return a.bytes
}

// Prefix returns the address's bech32 prefix.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

// Key returns a comparable, map-safe representation of the address.
func (a Address) Key() string {
	return string(a.prefix) + ":" + string(a.bytes)
}

// String renders the address in bech32 form.
func (a Address) String() string {
	if len(a.bytes) == 0 {
		return ""
	}
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		return ""
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		return ""
	}
	return encoded
}

// DecodeAddress parses a bech32-encoded address string.
func DecodeAddress(value string) (Address, error) {
	prefix, decoded, err := bech32.Decode(value)
	if err != nil {
		return Address{}, fmt.Errorf("crypto: invalid bech32 address: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("crypto: invalid bech32 payload: %w", err)
	}
	return NewAddress(AddressPrefix(prefix), conv)
}
