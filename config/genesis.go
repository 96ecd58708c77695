package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Klingon-tech/winter-staking/pkg/crypto"
	"github.com/Klingon-tech/winter-staking/pkg/types"
)

// =============================================================================
// Staking parameters (fixed for the life of a ledger, defined in genesis)
// =============================================================================

// DefaultAcceptedToken is the token the built-in genesis accepts.
const DefaultAcceptedToken types.TokenIdentifier = "WINTER"

// DefaultMinStakingEpochs is the built-in lock duration.
const DefaultMinStakingEpochs uint64 = 10

// Genesis holds the staking parameters a ledger is created with.
// A node refuses to open a ledger created under a different genesis.
type Genesis struct {
	ChainID          string                `json:"chain_id"`
	AcceptedToken    types.TokenIdentifier `json:"accepted_token"`
	MinStakingEpochs uint64                `json:"min_staking_epochs"`
	StartEpoch       uint64                `json:"start_epoch"` // Clock value for a fresh ledger
}

// MainnetGenesis returns the built-in mainnet genesis.
func MainnetGenesis() *Genesis {
	return &Genesis{
		ChainID:          "winter-staking-mainnet",
		AcceptedToken:    DefaultAcceptedToken,
		MinStakingEpochs: DefaultMinStakingEpochs,
	}
}

// TestnetGenesis returns the built-in testnet genesis.
func TestnetGenesis() *Genesis {
	g := MainnetGenesis()
	g.ChainID = "winter-staking-testnet"
	return g
}

// GenesisFor returns the built-in genesis for the given network.
func GenesisFor(network NetworkType) *Genesis {
	switch network {
	case Testnet:
		return TestnetGenesis()
	default:
		return MainnetGenesis()
	}
}

// Genesis returns the genesis the node should run with: the file named by
// GenesisFile, or the built-in one for the network.
func (c *Config) Genesis() (*Genesis, error) {
	if c.GenesisFile == "" {
		return GenesisFor(c.Network), nil
	}
	return LoadGenesis(c.GenesisFile)
}

// =============================================================================
// Genesis file I/O
// =============================================================================

// LoadGenesis loads genesis configuration from a file.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genesis file: %w", err)
	}

	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing genesis file: %w", err)
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis: %w", err)
	}

	return &g, nil
}

// Save writes the genesis configuration to a file.
func (g *Genesis) Save(path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding genesis: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing genesis file: %w", err)
	}

	return nil
}

// Validate checks that the genesis configuration is valid.
// A zero MinStakingEpochs is allowed: deposits then lock until the
// current epoch only.
func (g *Genesis) Validate() error {
	if g.ChainID == "" {
		return fmt.Errorf("chain_id is required")
	}
	if err := g.AcceptedToken.Validate(); err != nil {
		return fmt.Errorf("accepted_token: %w", err)
	}
	return nil
}

// Hash returns a BLAKE3 hash of the genesis configuration.
// Used to detect a ledger opened under different parameters.
func (g *Genesis) Hash() (types.Hash, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.Hash(data), nil
}
