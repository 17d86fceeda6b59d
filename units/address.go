package units

import (
	"encoding/hex"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/script"
)

// AddressSize is the length of a P2PKH public key hash.
const AddressSize = 20

// Address identifies an owner, spender, asset or staking receiver by its
// 20-byte public key hash.
type Address [AddressSize]byte

// ZeroAddress is the unset address. It is never a valid transfer target.
var ZeroAddress Address

// ParseAddress decodes a base58check P2PKH address string.
func ParseAddress(s string) (Address, error) {
	addr, err := script.NewAddressFromString(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q: %w", ErrInvalidAddress, s, err)
	}
	return AddressFromHash(addr.PublicKeyHash)
}

// AddressFromHash wraps a raw 20-byte public key hash.
func AddressFromHash(pkh []byte) (Address, error) {
	if len(pkh) != AddressSize {
		return Address{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddress, AddressSize, len(pkh))
	}
	var a Address
	copy(a[:], pkh)
	return a, nil
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool { return a == ZeroAddress }

// Format encodes the address as a base58check P2PKH string for the given network.
func (a Address) Format(mainnet bool) string {
	addr, err := script.NewAddressFromPublicKeyHash(a[:], mainnet)
	if err != nil {
		return hex.EncodeToString(a[:])
	}
	return addr.AddressString
}

// String returns the mainnet address string.
func (a Address) String() string { return a.Format(true) }

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
