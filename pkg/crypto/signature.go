package crypto

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/winter-staking/pkg/types"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
)

// Key sizes.
const (
	PrivateKeySize = 32
	PublicKeySize  = 33 // compressed
	SignatureSize  = schnorr.SignatureSize
)

// ErrInvalidKey is returned for a private key scalar outside [1, N-1].
var ErrInvalidKey = errors.New("invalid private key")

// PrivateKey is an account signing key (secp256k1, Schnorr signatures).
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random account key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes loads a 32-byte big-endian scalar. Zero and values
// not below the curve order are rejected rather than silently reduced.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != PrivateKeySize {
		return nil, fmt.Errorf("%w: must be %d bytes, got %d", ErrInvalidKey, PrivateKeySize, len(b))
	}
	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(b); overflow || s.IsZero() {
		return nil, fmt.Errorf("%w: scalar out of range", ErrInvalidKey)
	}
	return &PrivateKey{key: secp256k1.NewPrivateKey(&s)}, nil
}

// Sign produces a 64-byte EC-Schnorr-DCRv0 signature over digest.
func (pk *PrivateKey) Sign(digest types.Hash) ([]byte, error) {
	sig, err := schnorr.Sign(pk.key, digest[:])
	if err != nil {
		return nil, fmt.Errorf("schnorr sign: %w", err)
	}
	return sig.Serialize(), nil
}

// PublicKey returns the compressed 33-byte public key.
func (pk *PrivateKey) PublicKey() []byte {
	return pk.key.PubKey().SerializeCompressed()
}

// Address returns the staking account controlled by this key.
func (pk *PrivateKey) Address() types.Address {
	return AddressFromPubKey(pk.PublicKey())
}

// Serialize returns the 32-byte private key scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// Zero clears the private key from memory.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// VerifySignature reports whether signature is a valid Schnorr signature
// over digest by the compressed publicKey. Malformed input is false.
func VerifySignature(digest types.Hash, signature, publicKey []byte) bool {
	if len(publicKey) != PublicKeySize || len(signature) != SignatureSize {
		return false
	}
	pubKey, err := secp256k1.ParsePubKey(publicKey)
	if err != nil {
		return false
	}
	sig, err := schnorr.ParseSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(digest[:], pubKey)
}
