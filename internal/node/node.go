// Package node provides a reusable staking node that can be embedded in
// any binary.
package node

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Klingon-tech/winter-staking/config"
	"github.com/Klingon-tech/winter-staking/internal/host"
	klog "github.com/Klingon-tech/winter-staking/internal/log"
	"github.com/Klingon-tech/winter-staking/internal/metrics"
	"github.com/Klingon-tech/winter-staking/internal/rpc"
	"github.com/Klingon-tech/winter-staking/internal/staking"
	"github.com/Klingon-tech/winter-staking/internal/storage"
	"github.com/rs/zerolog"
)

// valueLogGCInterval is how often Badger's value log is compacted.
const valueLogGCInterval = 10 * time.Minute

// Storage namespaces inside the node database.
var (
	ledgerPrefix = []byte("ledger/")
	hostPrefix   = []byte("host/")
)

// Node is a fully-initialized staking node.
type Node struct {
	cfg     *config.Config
	genesis *config.Genesis
	logger  zerolog.Logger

	// Core
	db      *storage.BadgerDB
	host    *host.Context
	metrics *metrics.Metrics

	// RPC
	rpcServer *rpc.Server

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and initializes a new Node. It performs all setup steps
// (logger, genesis, storage, epoch clock, host, RPC) but does NOT start
// the RPC listener or the epoch ticker. Call Start() for that.
func New(cfg *config.Config) (*Node, error) {
	// ── 1. Init logger ──────────────────────────────────────────────
	logFile := expandHome(cfg.Log.File)
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(logsDir, "stakingd.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.Node

	// ── 2. Genesis ──────────────────────────────────────────────────
	cfg.GenesisFile = expandHome(cfg.GenesisFile)
	genesis, err := cfg.Genesis()
	if err != nil {
		return nil, fmt.Errorf("load genesis: %w", err)
	}

	logger.Info().
		Str("chain_id", genesis.ChainID).
		Str("network", string(cfg.Network)).
		Str("accepted_token", genesis.AcceptedToken.String()).
		Uint64("min_staking_epochs", genesis.MinStakingEpochs).
		Msg("Starting Winter Staking Node")

	// ── 3. Open storage ─────────────────────────────────────────────
	dbLogger := klog.WithComponent("storage")
	db, err := storage.OpenBadger(cfg.LedgerDir(), storage.BadgerOptions{
		SyncWrites: true,
		Logger:     &dbLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	hostDB := storage.NewPrefixDB(db, hostPrefix)
	ledgerDB := storage.NewPrefixDB(db, ledgerPrefix)

	if err := checkGenesis(hostDB, genesis); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info().Str("path", cfg.LedgerDir()).Msg("Database opened")

	// ── 4. Epoch clock ──────────────────────────────────────────────
	clock, err := host.NewEpochClock(hostDB, genesis.StartEpoch)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("epoch clock: %w", err)
	}

	// ── 5. Metrics ──────────────────────────────────────────────────
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// ── 6. Host context ─────────────────────────────────────────────
	hc, err := host.New(ledgerDB, clock, staking.Config{
		AcceptedToken:    genesis.AcceptedToken,
		MinStakingEpochs: genesis.MinStakingEpochs,
	}, m)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create host: %w", err)
	}

	stakes, err := hc.ListStakes()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("scan stakes: %w", err)
	}
	logger.Info().
		Uint64("epoch", clock.Current()).
		Int("accounts", len(stakes)).
		Msg("Ledger loaded")

	// ── 7. RPC server ───────────────────────────────────────────────
	var rpcServer *rpc.Server
	if cfg.RPC.Enabled {
		rpcAddr := fmt.Sprintf("%s:%d", cfg.RPC.Addr, cfg.RPC.Port)
		rpcServer = rpc.New(rpcAddr, hc, cfg.RPC)
		rpcServer.EnableEpochAdvance(cfg.Epoch.Manual)
		if m != nil {
			rpcServer.SetMetrics(m)
		}
	} else {
		logger.Warn().Msg("RPC disabled by config")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Node{
		cfg:       cfg,
		genesis:   genesis,
		logger:    logger,
		db:        db,
		host:      hc,
		metrics:   m,
		rpcServer: rpcServer,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Start binds the RPC listener and launches the epoch ticker.
func (n *Node) Start() error {
	if n.rpcServer != nil {
		if err := n.rpcServer.Start(); err != nil {
			return fmt.Errorf("start rpc: %w", err)
		}
		n.logger.Info().
			Str("addr", n.rpcServer.Addr()).
			Bool("metrics", n.metrics != nil).
			Msg("RPC server listening")
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.db.RunValueLogGC(n.ctx, valueLogGCInterval)
	}()

	if n.cfg.Epoch.Manual {
		n.logger.Info().Msg("Manual epoch mode: epochs advance only via epoch_advance")
	} else {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.host.RunEpochTicker(n.ctx, n.cfg.Epoch.Interval)
		}()
		n.logger.Info().Dur("interval", n.cfg.Epoch.Interval).Msg("Epoch ticker started")
	}

	n.logger.Info().
		Uint64("epoch", n.host.Epoch()).
		Msg("Node started successfully")
	return nil
}

// Stop performs graceful shutdown in reverse order.
func (n *Node) Stop() {
	n.cancel()
	n.wg.Wait()

	if n.rpcServer != nil {
		n.rpcServer.Stop()
	}
	if n.db != nil {
		n.db.Close()
	}

	n.logger.Info().Msg("Goodbye!")
}

// RPCAddr returns the address the RPC server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// Host returns the node's ledger host.
func (n *Node) Host() *host.Context {
	return n.host
}

// Genesis returns the genesis the node was started with.
func (n *Node) Genesis() *config.Genesis {
	return n.genesis
}
