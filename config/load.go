package config

import (
	"fmt"
	"os"
	"strings"
)

// Load builds the node configuration from os.Args. Precedence, lowest first:
// network defaults, the config file, command-line flags. It handles --help
// and --version itself.
func Load() (*Config, *Flags, error) {
	flags := ParseFlags()
	if flags.Help {
		printUsage(os.Stdout)
		os.Exit(0)
	}
	if flags.Version {
		fmt.Printf("stakingd version %s\n", Version)
		os.Exit(0)
	}

	cfg, err := LoadWith(flags)
	if err != nil {
		return nil, nil, err
	}
	return cfg, flags, nil
}

// LoadWith builds a Config from defaults, the config file and flags,
// creating the data directory layout on first use.
func LoadWith(flags *Flags) (*Config, error) {
	network := Mainnet
	if strings.EqualFold(flags.Network, string(Testnet)) {
		network = Testnet
	}
	cfg := Default(network)
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	path := flags.Config
	if path == "" {
		path = cfg.ConfigFile()
	}
	values, err := LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, values); err != nil {
		return nil, fmt.Errorf("applying config file: %w", err)
	}

	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// EnsureDataDirs creates the data directory layout and writes a default
// config file if none exists. It is idempotent.
func EnsureDataDirs(cfg *Config) error {
	for _, dir := range []string{cfg.LedgerDir(), cfg.KeystoreDir(), cfg.LogsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	// Account keys live under the keystore; keep it private.
	if err := os.Chmod(cfg.KeystoreDir(), 0700); err != nil {
		return fmt.Errorf("securing keystore dir: %w", err)
	}

	path := cfg.ConfigFile()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := WriteDefaultConfig(path, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}
	return nil
}
