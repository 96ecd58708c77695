// Package types defines the primitive types shared by the staking ledger,
// its host environment and the RPC surface.
package types

import "encoding/hex"

// HashSize is the length of a hash in bytes.
const HashSize = 32

// Hash is a 256-bit digest: deposit digests and the genesis fingerprint.
type Hash [HashSize]byte

// String returns the hex-encoded hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}
