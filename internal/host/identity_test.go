package host

import (
	"errors"
	"math/big"
	"testing"

	"github.com/Klingon-tech/winter-staking/pkg/crypto"
)

func mustKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return key
}

func TestResolveCaller(t *testing.T) {
	key := mustKey(t)
	req, err := SignDeposit(key, "WINTER", big.NewInt(50), 1)
	if err != nil {
		t.Fatalf("SignDeposit: %v", err)
	}

	addr, err := ResolveCaller(req)
	if err != nil {
		t.Fatalf("ResolveCaller: %v", err)
	}
	if want := crypto.AddressFromPubKey(key.PublicKey()); addr != want {
		t.Errorf("caller = %s, want %s", addr, want)
	}
}

func TestResolveCaller_Tampered(t *testing.T) {
	key := mustKey(t)
	other := mustKey(t)

	tests := []struct {
		name   string
		mutate func(*DepositRequest)
	}{
		{"amount", func(r *DepositRequest) { r.Amount = big.NewInt(5000) }},
		{"token", func(r *DepositRequest) { r.Token = "OTHER" }},
		{"nonce", func(r *DepositRequest) { r.Nonce++ }},
		{"pubkey", func(r *DepositRequest) { r.PubKey = other.PublicKey() }},
		{"short pubkey", func(r *DepositRequest) { r.PubKey = r.PubKey[:10] }},
		{"signature", func(r *DepositRequest) { r.Signature[0] ^= 0xff }},
		{"no signature", func(r *DepositRequest) { r.Signature = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := SignDeposit(key, "WINTER", big.NewInt(50), 1)
			if err != nil {
				t.Fatalf("SignDeposit: %v", err)
			}
			tt.mutate(req)
			if _, err := ResolveCaller(req); !errors.Is(err, ErrBadSignature) {
				t.Errorf("ResolveCaller = %v, want ErrBadSignature", err)
			}
		})
	}
}

func TestDepositDigest_Distinct(t *testing.T) {
	base := DepositDigest("WINTER", big.NewInt(1), 0)
	if DepositDigest("WINTER", big.NewInt(1), 0) != base {
		t.Fatal("digest is not deterministic")
	}
	// Token and amount are length-separated.
	if DepositDigest("WINTER1", big.NewInt(0), 0) == DepositDigest("WINTER", big.NewInt(10), 0) {
		t.Error("token/amount boundary collision")
	}
	if DepositDigest("WINTER", nil, 0) == base {
		t.Error("nil amount collides with 1")
	}
}
