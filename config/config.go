// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Staking parameters: Defined in genesis, fixed for the life of a ledger
//   - Node settings: Runtime configuration, can vary per node
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds node-specific runtime configuration.
type Config struct {
	// Core
	Network     NetworkType
	DataDir     string
	GenesisFile string // Empty = built-in genesis for Network

	// RPC server
	RPC RPCConfig

	// Epoch sequencing
	Epoch EpochConfig

	// Prometheus endpoint
	Metrics MetricsConfig

	// Logging
	Log LogConfig
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool
	Addr        string
	Port        int
	AllowedIPs  []string
	CORSOrigins []string // Allowed CORS origins ("*" = all).
}

// EpochConfig controls how the host clock advances.
// With Manual set the clock only moves through epoch_advance.
type EpochConfig struct {
	Interval time.Duration
	Manual   bool
}

// MetricsConfig controls the /metrics endpoint on the RPC server.
type MetricsConfig struct {
	Enabled bool
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
	File  string
	JSON  bool
}

// ── Directory helpers ───────────────────────────────────────────────────

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.winter-staking
//	macOS:   ~/Library/Application Support/WinterStaking
//	Windows: %APPDATA%\WinterStaking
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".winter-staking"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "WinterStaking")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "WinterStaking")
		}
		return filepath.Join(home, "AppData", "Roaming", "WinterStaking")
	default:
		return filepath.Join(home, ".winter-staking")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// LedgerDir returns the ledger database directory.
func (c *Config) LedgerDir() string {
	return filepath.Join(c.NetworkDataDir(), "ledger")
}

// KeystoreDir returns the account keystore directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.NetworkDataDir(), "keystore")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "stakingd.conf")
}
