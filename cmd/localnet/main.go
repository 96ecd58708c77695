// Command localnet boots a throwaway staking node and drives it over RPC.
//
// Usage: go run ./cmd/localnet/
//
// It starts an in-process testnet node with manual epochs on a temporary data
// directory, sets the epoch to 100, creates two accounts, and replays the
// deposit walkthrough: account A deposits 50 at epoch 100, the epoch moves to
// 105, A deposits 25 more. It then checks A holds (75, lock 115) and B holds
// nothing, and exits non-zero on any mismatch. Ctrl+C for early shutdown.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/Klingon-tech/winter-staking/config"
	"github.com/Klingon-tech/winter-staking/internal/host"
	klog "github.com/Klingon-tech/winter-staking/internal/log"
	"github.com/Klingon-tech/winter-staking/internal/node"
	"github.com/Klingon-tech/winter-staking/internal/rpc"
	"github.com/Klingon-tech/winter-staking/internal/rpcclient"
	"github.com/Klingon-tech/winter-staking/pkg/crypto"
	"github.com/Klingon-tech/winter-staking/pkg/types"
	"github.com/rs/zerolog"
)

// step is one scripted deposit.
type step struct {
	epoch  uint64
	amount int64
}

var script = []step{
	{epoch: 100, amount: 50},
	{epoch: 105, amount: 25},
}

func main() {
	os.Exit(run(script))
}

// run executes steps against a fresh node and returns the process exit
// code. Cleanup of the node and its data directory happens before it returns.
func run(steps []step) int {
	klog.Init("info", false, "")
	logger := klog.WithComponent("localnet")

	logger.Info().Msg("=== Winter Staking Local Node ===")

	// ── Phase 1: Node ───────────────────────────────────────────────────

	dataDir, err := os.MkdirTemp("", "winter-localnet-")
	if err != nil {
		logger.Error().Err(err).Msg("create data dir")
		return 1
	}
	defer os.RemoveAll(dataDir)

	cfg := config.DefaultTestnet()
	cfg.DataDir = dataDir
	cfg.RPC.Port = 0 // Random port.
	cfg.Epoch.Manual = true
	cfg.Log.Level = "warn"

	n, err := node.New(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("build node")
		return 1
	}
	if err := n.Start(); err != nil {
		logger.Error().Err(err).Msg("start node")
		n.Stop()
		return 1
	}
	defer n.Stop()

	// node.New reinitialized the global loggers at warn; keep ours at info.
	logger = klog.New(os.Stdout, "info", false).With().Str("component", "localnet").Logger()

	client := rpcclient.New("http://" + n.RPCAddr())
	gen := n.Genesis()
	logger.Info().
		Str("rpc", n.RPCAddr()).
		Str("token", gen.AcceptedToken.String()).
		Uint64("min_staking_epochs", gen.MinStakingEpochs).
		Msg("Node started")

	// ── Phase 2: Accounts ───────────────────────────────────────────────

	keyA, err := crypto.GenerateKey()
	if err != nil {
		logger.Error().Err(err).Msg("generate key A")
		return 1
	}
	defer keyA.Zero()
	keyB, err := crypto.GenerateKey()
	if err != nil {
		logger.Error().Err(err).Msg("generate key B")
		return 1
	}
	defer keyB.Zero()
	addrA := keyA.Address()
	addrB := keyB.Address()

	logger.Info().Str("a", addrA.String()).Str("b", addrB.String()).Msg("Accounts created")

	// ── Phase 3: Signal handling ────────────────────────────────────────

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info().Msg("Shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	// ── Phase 4: Deposits ───────────────────────────────────────────────

	for i, s := range steps {
		if ctx.Err() != nil {
			logger.Info().Msg("Run interrupted")
			return 130
		}
		if err := advanceTo(ctx, client, s.epoch); err != nil {
			logger.Error().Err(err).Uint64("epoch", s.epoch).Msg("advance epoch")
			return 1
		}
		res, err := deposit(ctx, client, keyA, gen.AcceptedToken, big.NewInt(s.amount), uint64(i+1))
		if err != nil {
			logger.Error().Err(err).Msg("deposit")
			return 1
		}
		logger.Info().
			Uint64("epoch", res.Epoch).
			Int64("deposit", s.amount).
			Str("total", res.Amount).
			Uint64("lock_until_epoch", res.LockUntilEpoch).
			Msg("Deposit applied")
	}

	// Rejected deposits must leave the record untouched.
	if _, err := deposit(ctx, client, keyA, "OTHER", big.NewInt(1), 99); err == nil {
		logger.Error().Msg("deposit of a foreign token was accepted")
		return 1
	}
	if _, err := deposit(ctx, client, keyA, gen.AcceptedToken, big.NewInt(1), 1); !rpcclient.IsCode(err, rpc.CodeReplayedNonce) {
		logger.Error().Err(err).Msg("replayed deposit was not rejected")
		return 1
	}

	// ── Phase 5: Verification ───────────────────────────────────────────

	last := steps[len(steps)-1]
	var total int64
	for _, s := range steps {
		total += s.amount
	}
	wantA := rpc.StakeResult{
		Address:        addrA.String(),
		Amount:         big.NewInt(total).String(),
		LockUntilEpoch: last.epoch + gen.MinStakingEpochs,
	}
	wantB := rpc.StakeResult{Address: addrB.String(), Amount: "0"}

	ok := verify(ctx, logger, client, wantA) && verify(ctx, logger, client, wantB)
	if !ok {
		logger.Error().Msg("FAILURE: ledger state does not match the walkthrough")
		return 1
	}

	logger.Info().Msg("SUCCESS: ledger state matches")
	fmt.Println()
	fmt.Printf("  Accepted token:   %s\n", gen.AcceptedToken)
	fmt.Printf("  Lock period:      %d epochs\n", gen.MinStakingEpochs)
	fmt.Printf("  A staked:         %s (locked to epoch %d)\n", wantA.Amount, wantA.LockUntilEpoch)
	fmt.Printf("  B staked:         %s\n", wantB.Amount)
	fmt.Println()
	return 0
}

func advanceTo(ctx context.Context, client *rpcclient.Client, epoch uint64) error {
	var res rpc.EpochResult
	return client.CallContext(ctx, "epoch_advance", rpc.EpochAdvanceParam{To: &epoch}, &res)
}

func deposit(ctx context.Context, client *rpcclient.Client, key *crypto.PrivateKey,
	token types.TokenIdentifier, amount *big.Int, nonce uint64) (*rpc.DepositResult, error) {

	req, err := host.SignDeposit(key, token, amount, nonce)
	if err != nil {
		return nil, err
	}
	param := rpc.DepositParam{
		Token:     string(req.Token),
		Amount:    req.Amount.String(),
		Nonce:     req.Nonce,
		PubKey:    hex.EncodeToString(req.PubKey),
		Signature: hex.EncodeToString(req.Signature),
	}
	var res rpc.DepositResult
	if err := client.CallContext(ctx, "staking_deposit", param, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func verify(ctx context.Context, logger zerolog.Logger, client *rpcclient.Client, want rpc.StakeResult) bool {
	var got rpc.StakeResult
	if err := client.CallContext(ctx, "staking_getStakedTokens", rpc.AddressParam{Address: want.Address}, &got); err != nil {
		logger.Error().Err(err).Str("address", want.Address).Msg("query stake")
		return false
	}
	if got != want {
		logger.Error().
			Str("address", want.Address).
			Str("amount", got.Amount).
			Uint64("lock_until_epoch", got.LockUntilEpoch).
			Str("want_amount", want.Amount).
			Uint64("want_lock", want.LockUntilEpoch).
			Msg("Stake mismatch")
		return false
	}
	return true
}
