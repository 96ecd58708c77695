package main

import (
	"testing"

	"github.com/Klingon-tech/winter-staking/config"
)

func TestKeystoreDir_MatchesDaemonLayout(t *testing.T) {
	dir := t.TempDir()
	for _, network := range []config.NetworkType{config.Mainnet, config.Testnet} {
		got, err := keystoreDir(dir, string(network))
		if err != nil {
			t.Fatalf("keystoreDir(%s): %v", network, err)
		}
		cfg := config.Default(network)
		cfg.DataDir = dir
		if want := cfg.KeystoreDir(); got != want {
			t.Errorf("keystoreDir(%s) = %s, want %s", network, got, want)
		}
	}
}

func TestKeystoreDir_UnknownNetwork(t *testing.T) {
	if _, err := keystoreDir(t.TempDir(), "devnet"); err == nil {
		t.Error("unknown network should fail")
	}
}
