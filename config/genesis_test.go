package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/Klingon-tech/winter-staking/pkg/types"
)

func TestGenesis_Validate_BuiltinValid(t *testing.T) {
	for _, n := range []NetworkType{Mainnet, Testnet} {
		if err := GenesisFor(n).Validate(); err != nil {
			t.Errorf("%s genesis should be valid: %v", n, err)
		}
	}
}

func TestGenesis_Validate_Invalid(t *testing.T) {
	g := MainnetGenesis()
	g.ChainID = ""
	if err := g.Validate(); err == nil {
		t.Error("empty chain_id should be rejected")
	}

	g = MainnetGenesis()
	g.AcceptedToken = "not valid!"
	if err := g.Validate(); !errors.Is(err, types.ErrInvalidTokenIdentifier) {
		t.Errorf("bad token = %v, want ErrInvalidTokenIdentifier", err)
	}
}

func TestGenesis_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.json")
	g := &Genesis{
		ChainID:          "winter-local",
		AcceptedToken:    "FROST-1a2b",
		MinStakingEpochs: 3,
		StartEpoch:       100,
	}
	if err := g.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadGenesis(path)
	if err != nil {
		t.Fatalf("LoadGenesis: %v", err)
	}
	if *loaded != *g {
		t.Errorf("loaded = %+v, want %+v", loaded, g)
	}

	h1, _ := g.Hash()
	h2, _ := loaded.Hash()
	if h1 != h2 {
		t.Error("hash differs after round trip")
	}
	loaded.MinStakingEpochs++
	if h3, _ := loaded.Hash(); h3 == h1 {
		t.Error("hash should change with parameters")
	}
}

func TestConfig_Genesis(t *testing.T) {
	cfg := DefaultTestnet()
	g, err := cfg.Genesis()
	if err != nil {
		t.Fatalf("Genesis: %v", err)
	}
	if g.ChainID != TestnetGenesis().ChainID {
		t.Errorf("chain_id = %q, want testnet", g.ChainID)
	}

	cfg.GenesisFile = filepath.Join(t.TempDir(), "missing.json")
	if _, err := cfg.Genesis(); err == nil {
		t.Error("missing genesis file should fail")
	}
}
