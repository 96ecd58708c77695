package config

import (
	"fmt"

	klog "github.com/Klingon-tech/winter-staking/internal/log"
)

// Validate checks runtime node config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir is required")
	}
	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}
	if !cfg.Epoch.Manual && cfg.Epoch.Interval <= 0 {
		return fmt.Errorf("epoch.interval must be positive unless epoch.manual is set")
	}
	if cfg.Metrics.Enabled && !cfg.RPC.Enabled {
		return fmt.Errorf("metrics.enabled requires the RPC server")
	}
	if !klog.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level must be debug, info, warn, or error")
	}
	return nil
}
