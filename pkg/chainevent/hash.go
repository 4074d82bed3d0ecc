// Package chainevent holds the wire-stable types shared by every chain: block
// identifiers and the chain-update events emitted to downstream consumers.
// Nothing here is specific to Bitcoin or Stacks.
package chainevent

import (
	"encoding/hex"
	"fmt"
)

// HashSize is the length of every block/microblock hash in bytes.
const HashSize = 32

// Hash is a 32-byte block or microblock identity hash.
type Hash [HashSize]byte

// ZeroHash is the all-zeroes hash, used as the parent hash of a chain's first block.
var ZeroHash Hash

// HashFromBytes copies b into a Hash. Returns an error if len(b) != HashSize.
func HashFromBytes(b []byte) (Hash, error) {
	if len(b) != HashSize {
		return Hash{}, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(b))
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// HashFromHex parses a hex-encoded string into a Hash.
func HashFromHex(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hex: %w", err)
	}
	return HashFromBytes(b)
}

// Bytes returns the hash as a byte slice.
func (h Hash) Bytes() []byte { return h[:] }

// Hex returns the lowercase hex-encoded string.
func (h Hash) Hex() string { return hex.EncodeToString(h[:]) }

// String implements fmt.Stringer.
func (h Hash) String() string { return h.Hex() }

// IsZero reports whether every byte is 0x00.
func (h Hash) IsZero() bool { return h == ZeroHash }

// MarshalJSON renders the hash as a quoted hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return []byte(`"` + h.Hex() + `"`), nil
}

// UnmarshalJSON parses a quoted hex string into the hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("chainevent: hash must be a JSON string")
	}
	parsed, err := HashFromHex(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
