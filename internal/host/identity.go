package host

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/Klingon-tech/winter-staking/pkg/crypto"
	"github.com/Klingon-tech/winter-staking/pkg/types"
)

// depositDomain separates deposit digests from any other signed payload.
var depositDomain = []byte("winter-deposit/v1")

// ErrBadSignature is returned when a deposit's signature does not verify.
var ErrBadSignature = errors.New("invalid deposit signature")

// DepositRequest is a signed request to stake amount of token.
// The caller is the account whose key produced Signature.
type DepositRequest struct {
	Token     types.TokenIdentifier
	Amount    *big.Int
	Nonce     uint64
	PubKey    []byte
	Signature []byte
}

// DepositDigest is the 32-byte hash a depositor signs:
// BLAKE3(domain || len(token) || token || amount(decimal) || nonce).
func DepositDigest(token types.TokenIdentifier, amount *big.Int, nonce uint64) types.Hash {
	var tokenLen, nonceBuf [8]byte
	binary.BigEndian.PutUint64(tokenLen[:], uint64(len(token)))
	binary.BigEndian.PutUint64(nonceBuf[:], nonce)

	amountStr := "<nil>"
	if amount != nil {
		amountStr = amount.String()
	}
	return crypto.HashParts(depositDomain, tokenLen[:], []byte(token), []byte(amountStr), nonceBuf[:])
}

// SignDeposit builds a DepositRequest signed by key.
func SignDeposit(key *crypto.PrivateKey, token types.TokenIdentifier, amount *big.Int, nonce uint64) (*DepositRequest, error) {
	digest := DepositDigest(token, amount, nonce)
	sig, err := key.Sign(digest)
	if err != nil {
		return nil, fmt.Errorf("sign deposit: %w", err)
	}
	return &DepositRequest{
		Token:     token,
		Amount:    amount,
		Nonce:     nonce,
		PubKey:    key.PublicKey(),
		Signature: sig,
	}, nil
}

// ResolveCaller verifies req's signature and returns the signing account.
func ResolveCaller(req *DepositRequest) (types.Address, error) {
	if len(req.PubKey) != crypto.PublicKeySize {
		return types.Address{}, fmt.Errorf("%w: public key must be %d bytes", ErrBadSignature, crypto.PublicKeySize)
	}
	digest := DepositDigest(req.Token, req.Amount, req.Nonce)
	if !crypto.VerifySignature(digest, req.Signature, req.PubKey) {
		return types.Address{}, ErrBadSignature
	}
	return crypto.AddressFromPubKey(req.PubKey), nil
}
