// Package host implements the environment the staking ledger runs in: it
// resolves the caller of each deposit, owns the epoch clock and the staking
// configuration, serializes state-changing calls and commits each one
// atomically to storage.
package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	klog "github.com/Klingon-tech/winter-staking/internal/log"
	"github.com/Klingon-tech/winter-staking/internal/metrics"
	"github.com/Klingon-tech/winter-staking/internal/staking"
	"github.com/Klingon-tech/winter-staking/internal/storage"
	"github.com/Klingon-tech/winter-staking/pkg/types"
	"github.com/rs/zerolog"
)

// Receipt describes an applied deposit.
type Receipt struct {
	Caller types.Address
	Epoch  uint64
	Record staking.StakeRecord
}

// Context is the ledger's host. One Context owns one ledger namespace.
type Context struct {
	mu sync.Mutex // serializes deposits and epoch changes

	db      storage.DB
	store   *staking.Store
	ledger  *staking.Ledger // read path; writes go through a staged ledger
	clock   *EpochClock
	cfg     staking.Config
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// New creates a host context. ledgerDB holds stake records; clock supplies
// epochs. m may be nil.
func New(ledgerDB storage.DB, clock *EpochClock, cfg staking.Config, m *metrics.Metrics) (*Context, error) {
	if err := cfg.AcceptedToken.Validate(); err != nil {
		return nil, fmt.Errorf("accepted token: %w", err)
	}
	store := staking.NewStore(ledgerDB)
	c := &Context{
		db:      ledgerDB,
		store:   store,
		ledger:  staking.NewLedger(store, klog.Ledger),
		clock:   clock,
		cfg:     cfg,
		metrics: m,
		logger:  klog.Host,
	}
	m.SetEpoch(clock.Current())
	return c, nil
}

// Config returns the staking configuration.
func (c *Context) Config() staking.Config {
	return c.cfg
}

// Epoch returns the current epoch.
func (c *Context) Epoch() uint64 {
	return c.clock.Current()
}

// Deposit authenticates req, applies it to the ledger at the current epoch
// and commits the result together with the spent nonce. Each nonce can be
// used once per account, in any order. A rejected deposit writes nothing.
func (c *Context) Deposit(req *DepositRequest) (*Receipt, error) {
	caller, err := ResolveCaller(req)
	if err != nil {
		c.metrics.ObserveDeposit(metrics.ResultBadSignature)
		return nil, err
	}
	return c.apply(caller, req)
}

func (c *Context) apply(caller types.Address, req *DepositRequest) (*Receipt, error) {
	defer klog.Benchmark("deposit")()

	c.mu.Lock()
	defer c.mu.Unlock()

	ectx := staking.ExecutionContext{
		Caller: caller,
		Epoch:  c.clock.Current(),
		Config: c.cfg,
	}

	staged := storage.NewStaged(c.db)
	ledger := staking.NewLedger(staking.NewStore(staged), klog.Ledger)
	logger := klog.WithAccount(c.logger, caller.String())

	if err := checkNonce(staged, caller, req.Nonce); err != nil {
		c.metrics.ObserveDeposit(depositResult(err))
		logger.Debug().Err(err).Msg("Deposit rejected")
		return nil, err
	}

	rec, err := ledger.Deposit(ectx, req.Token, req.Amount)
	if err == nil {
		err = spendNonce(staged, caller, req.Nonce)
	}
	if err != nil {
		staged.Discard()
		c.metrics.ObserveDeposit(depositResult(err))
		logger.Debug().
			Err(err).
			Str("token", req.Token.String()).
			Msg("Deposit rejected")
		return nil, err
	}
	writes := staged.Len()
	if err := staged.Commit(); err != nil {
		c.metrics.ObserveDeposit(metrics.ResultError)
		return nil, fmt.Errorf("commit deposit: %w", err)
	}

	c.metrics.ObserveDeposit(metrics.ResultAccepted)
	logger.Info().
		Str("amount", rec.Amount.String()).
		Uint64("epoch", ectx.Epoch).
		Uint64("lock_until_epoch", rec.LockUntilEpoch).
		Int("writes", writes).
		Msg("Deposit applied")

	return &Receipt{Caller: caller, Epoch: ectx.Epoch, Record: rec}, nil
}

// GetStakedTokens returns the committed record for addr. It does not take
// the write lock: readers see the last committed deposit, never a partial one.
func (c *Context) GetStakedTokens(addr types.Address) (staking.StakeRecord, error) {
	return c.ledger.GetStakedTokens(addr)
}

// ListStakes returns every committed stake record.
func (c *Context) ListStakes() ([]staking.Entry, error) {
	return c.store.List()
}

// AdvanceEpoch moves the clock forward by one epoch.
func (c *Context) AdvanceEpoch() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	epoch, err := c.clock.Advance()
	if err != nil {
		return epoch, err
	}
	c.metrics.SetEpoch(epoch)
	c.logger.Debug().Uint64("epoch", epoch).Msg("Epoch advanced")
	return epoch, nil
}

// AdvanceEpochTo moves the clock to epoch, which must not be below the
// current one.
func (c *Context) AdvanceEpochTo(epoch uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.clock.AdvanceTo(epoch); err != nil {
		return err
	}
	c.metrics.SetEpoch(epoch)
	return nil
}

// RunEpochTicker advances the epoch every interval until ctx is done.
func (c *Context) RunEpochTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.AdvanceEpoch(); err != nil {
				c.logger.Error().Err(err).Msg("Epoch advance failed")
			}
		}
	}
}

func depositResult(err error) string {
	switch {
	case errors.Is(err, staking.ErrInvalidToken):
		return metrics.ResultInvalidToken
	case errors.Is(err, staking.ErrInvalidAmount):
		return metrics.ResultInvalidAmount
	case errors.Is(err, staking.ErrLockOverflow):
		return metrics.ResultLockOverflow
	case errors.Is(err, ErrReplayedNonce):
		return metrics.ResultReplayed
	default:
		return metrics.ResultError
	}
}
