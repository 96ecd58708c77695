package node

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Klingon-tech/winter-staking/config"
	"github.com/Klingon-tech/winter-staking/internal/storage"
)

var keyGenesisHash = []byte("genesis")

// ErrGenesisMismatch is returned when the database was created under a
// different genesis.
var ErrGenesisMismatch = errors.New("genesis mismatch")

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// checkGenesis records the genesis hash in a fresh database and verifies
// it on every later open.
func checkGenesis(db storage.DB, g *config.Genesis) error {
	h, err := g.Hash()
	if err != nil {
		return fmt.Errorf("hash genesis: %w", err)
	}

	stored, err := db.Get(keyGenesisHash)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if err := db.Put(keyGenesisHash, h[:]); err != nil {
			return fmt.Errorf("store genesis hash: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read genesis hash: %w", err)
	}

	if !bytes.Equal(stored, h[:]) {
		return fmt.Errorf("%w: database has %x, config has %s (chain_id %s)",
			ErrGenesisMismatch, stored, h, g.ChainID)
	}
	return nil
}
