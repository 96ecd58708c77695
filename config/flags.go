package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Version is reported by --version.
const Version = "0.1.0"

// Flags holds parsed stakingd command-line flags.
type Flags struct {
	Help    bool
	Version bool

	Network string
	Testnet bool
	DataDir string
	Config  string
	Genesis string

	RPC        bool
	RPCAddr    string
	RPCPort    int
	RPCAllowed string
	RPCCORS    string

	EpochInterval time.Duration
	EpochManual   bool

	Metrics bool

	LogLevel string
	LogFile  string
	LogJSON  bool

	// Set* record which boolean flags appeared on the command line, so an
	// explicit --rpc=false overrides the file while an absent flag does not.
	SetRPC         bool
	SetEpochManual bool
	SetMetrics     bool
	SetLogJSON     bool
}

// ParseFlags parses os.Args and exits on a parse error.
func ParseFlags() *Flags {
	f, err := ParseArgs(os.Args[1:])
	switch {
	case errors.Is(err, flag.ErrHelp):
		os.Exit(0)
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return f
}

// ParseArgs parses stakingd arguments. Positional arguments are rejected.
func ParseArgs(args []string) (*Flags, error) {
	f := &Flags{}
	fs := newFlagSet(f, os.Stderr)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		for _, a := range fs.Args() {
			if strings.HasPrefix(a, "-") {
				return nil, fmt.Errorf("flag %q was not parsed (positional argument stopped parsing)", a)
			}
		}
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	if f.Testnet {
		if f.Network != "" && f.Network != string(Testnet) {
			return nil, fmt.Errorf("--testnet conflicts with --network=%s", f.Network)
		}
		f.Network = string(Testnet)
	}

	explicit := map[string]*bool{
		"rpc":          &f.SetRPC,
		"epoch-manual": &f.SetEpochManual,
		"metrics":      &f.SetMetrics,
		"log-json":     &f.SetLogJSON,
	}
	fs.Visit(func(fl *flag.Flag) {
		if p, ok := explicit[fl.Name]; ok {
			*p = true
		}
	})
	return f, nil
}

func newFlagSet(f *Flags, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("stakingd", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { printUsage(out) }

	fs.BoolVar(&f.Help, "help", false, "")
	fs.BoolVar(&f.Help, "h", false, "")
	fs.BoolVar(&f.Version, "version", false, "")
	fs.BoolVar(&f.Version, "v", false, "")

	fs.StringVar(&f.Network, "network", "", "")
	fs.BoolVar(&f.Testnet, "testnet", false, "")
	fs.StringVar(&f.DataDir, "datadir", "", "")
	fs.StringVar(&f.Config, "config", "", "")
	fs.StringVar(&f.Config, "c", "", "")
	fs.StringVar(&f.Genesis, "genesis", "", "")

	fs.BoolVar(&f.RPC, "rpc", true, "")
	fs.StringVar(&f.RPCAddr, "rpc-addr", "", "")
	fs.IntVar(&f.RPCPort, "rpc-port", 0, "")
	fs.StringVar(&f.RPCAllowed, "rpc-allowed", "", "")
	fs.StringVar(&f.RPCCORS, "rpc-cors", "", "")

	fs.DurationVar(&f.EpochInterval, "epoch-interval", 0, "")
	fs.BoolVar(&f.EpochManual, "epoch-manual", false, "")

	fs.BoolVar(&f.Metrics, "metrics", false, "")

	fs.StringVar(&f.LogLevel, "log-level", "", "")
	fs.StringVar(&f.LogFile, "log-file", "", "")
	fs.BoolVar(&f.LogJSON, "log-json", false, "")
	return fs
}

// ApplyFlags overlays the flags that were given onto cfg.
func ApplyFlags(cfg *Config, f *Flags) {
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setBool := func(dst *bool, v, set bool) {
		if set {
			*dst = v
		}
	}

	if f.Network != "" {
		cfg.Network = NetworkType(f.Network)
	}
	setString(&cfg.DataDir, f.DataDir)
	setString(&cfg.GenesisFile, f.Genesis)

	setBool(&cfg.RPC.Enabled, f.RPC, f.SetRPC)
	setString(&cfg.RPC.Addr, f.RPCAddr)
	if f.RPCPort != 0 {
		cfg.RPC.Port = f.RPCPort
	}
	if f.RPCAllowed != "" {
		cfg.RPC.AllowedIPs = parseStringList(f.RPCAllowed)
	}
	if f.RPCCORS != "" {
		cfg.RPC.CORSOrigins = parseStringList(f.RPCCORS)
	}

	if f.EpochInterval != 0 {
		cfg.Epoch.Interval = f.EpochInterval
	}
	setBool(&cfg.Epoch.Manual, f.EpochManual, f.SetEpochManual)

	setBool(&cfg.Metrics.Enabled, f.Metrics, f.SetMetrics)

	setString(&cfg.Log.Level, f.LogLevel)
	setString(&cfg.Log.File, f.LogFile)
	setBool(&cfg.Log.JSON, f.LogJSON, f.SetLogJSON)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Winter Staking - token staking ledger node

Usage:
  stakingd [options]

Commands:
  --help, -h        Show this help message
  --version, -v     Show version information

Core Options:
  --network         Network type: mainnet (default) or testnet
  --testnet         Shorthand for --network=testnet
  --datadir         Data directory (default: ~/.winter-staking)
  --config, -c      Config file path (default: <datadir>/stakingd.conf)
  --genesis         Genesis file with staking parameters (default: built-in)

RPC Options:
  --rpc             Enable RPC server (default: true)
  --rpc-addr        RPC listen address (default: 127.0.0.1)
  --rpc-port        RPC port (mainnet: 9545, testnet: 9645)
  --rpc-allowed     Allowed IPs or CIDRs for RPC (comma-separated)
  --rpc-cors        Allowed CORS origins for RPC (comma-separated)

Epoch Options:
  --epoch-interval  Time between epoch advances (mainnet: 24h, testnet: 1m)
  --epoch-manual    Advance epochs only through the epoch_advance RPC

Metrics Options:
  --metrics         Serve Prometheus metrics at /metrics on the RPC port

Logging Options:
  --log-level       Log level: debug, info, warn, error (default: info)
  --log-file        Log file path (default: <datadir>/logs/stakingd.log)
  --log-json        Output logs as JSON

Examples:
  # Start a mainnet node
  stakingd

  # Local testnet with hand-driven epochs
  stakingd --testnet --epoch-manual

  # Custom staking parameters
  stakingd --genesis=/path/to/genesis.json --datadir=/path/to/data
`)
}
