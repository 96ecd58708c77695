package config

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
)

// LoadFile reads a stakingd .conf file: one "key = value" per line, '#'
// starts a comment, values may be single or double quoted. A missing file
// yields an empty map.
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%s:%d: expected key = value", path, lineNum)
		}
		key = strings.TrimSpace(key)
		if _, dup := values[key]; dup {
			return nil, fmt.Errorf("%s:%d: duplicate key %q", path, lineNum, key)
		}
		values[key] = unquote(strings.TrimSpace(value))
	}
	return values, scanner.Err()
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

// ApplyFileConfig applies parsed file values to cfg. Keys are applied in
// sorted order so errors are reported deterministically. Unknown keys are
// ignored.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		set, ok := fileKeys[key]
		if !ok {
			continue
		}
		if err := set(cfg, values[key]); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// fileKeys maps each recognized key to its setter. Staking parameters are
// not here: they live in the genesis.
var fileKeys = map[string]func(*Config, string) error{
	"network": func(c *Config, v string) error { c.Network = NetworkType(v); return nil },
	"datadir": func(c *Config, v string) error { c.DataDir = v; return nil },
	"genesis": func(c *Config, v string) error { c.GenesisFile = v; return nil },

	"rpc":         boolKey(func(c *Config) *bool { return &c.RPC.Enabled }),
	"rpc.enabled": boolKey(func(c *Config) *bool { return &c.RPC.Enabled }),
	"rpc.addr":    func(c *Config, v string) error { c.RPC.Addr = v; return nil },
	"rpc.port": func(c *Config, v string) error {
		port, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.RPC.Port = port
		return nil
	},
	"rpc.allowed": func(c *Config, v string) error { c.RPC.AllowedIPs = parseStringList(v); return nil },
	"rpc.cors":    func(c *Config, v string) error { c.RPC.CORSOrigins = parseStringList(v); return nil },

	"epoch.interval": func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		c.Epoch.Interval = d
		return nil
	},
	"epoch.manual": boolKey(func(c *Config) *bool { return &c.Epoch.Manual }),

	"metrics":         boolKey(func(c *Config) *bool { return &c.Metrics.Enabled }),
	"metrics.enabled": boolKey(func(c *Config) *bool { return &c.Metrics.Enabled }),

	"log.level": func(c *Config, v string) error { c.Log.Level = v; return nil },
	"log.file":  func(c *Config, v string) error { c.Log.File = v; return nil },
	"log.json":  boolKey(func(c *Config) *bool { return &c.Log.JSON }),
}

func boolKey(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := parseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

// parseBool accepts true/false, 1/0, yes/no and on/off in any case.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

// parseStringList splits a comma-separated list, dropping empty entries.
func parseStringList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var defaultConfigTmpl = template.Must(template.New("conf").Funcs(template.FuncMap{
	"join": func(s []string) string { return strings.Join(s, ",") },
}).Parse(`# Winter Staking Node Configuration
#
# This file holds NODE settings only. Staking parameters (accepted token,
# minimum lock) come from the genesis and are fixed for the life of the ledger.

# Network: mainnet or testnet
network = {{.Network}}

# Data directory (default: ~/.winter-staking)
# datadir = ~/.winter-staking

# Custom genesis file (default: built-in genesis for the network)
# genesis = /path/to/genesis.json

# ── RPC server ──────────────────────────────────────────────────────────

rpc.enabled = {{.RPC.Enabled}}
rpc.addr = {{.RPC.Addr}}
rpc.port = {{.RPC.Port}}
rpc.allowed = {{join .RPC.AllowedIPs}}
# CORS allowed origins ("*" for all)
# rpc.cors = http://localhost:3000

# ── Epochs ──────────────────────────────────────────────────────────────

# Time between automatic epoch advances
epoch.interval = {{.Epoch.Interval}}

# Advance epochs only through the epoch_advance RPC (local testing)
epoch.manual = {{.Epoch.Manual}}

# ── Metrics ─────────────────────────────────────────────────────────────

# Serve Prometheus metrics at /metrics on the RPC port
metrics.enabled = {{.Metrics.Enabled}}

# ── Logging ─────────────────────────────────────────────────────────────

log.level = {{.Log.Level}}
# log.file =
log.json = {{.Log.JSON}}
`))

// WriteDefaultConfig writes the default configuration for network to path.
func WriteDefaultConfig(path string, network NetworkType) error {
	var buf bytes.Buffer
	if err := defaultConfigTmpl.Execute(&buf, Default(network)); err != nil {
		return fmt.Errorf("render default config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
