package staking

import (
	"fmt"
	"math"
	"math/big"

	"github.com/Klingon-tech/winter-staking/pkg/types"
	"github.com/rs/zerolog"
)

// Mapping is the account -> record storage the ledger reads and writes.
type Mapping interface {
	// GetOrDefault returns the stored record, or ZeroRecord() if absent.
	GetOrDefault(addr types.Address) (StakeRecord, error)
	// Set replaces the record stored for addr.
	Set(addr types.Address, rec StakeRecord) error
}

// Ledger applies deposits to a Mapping and answers stake queries.
//
// Ledger does no locking. State-changing calls must be serialized by the
// caller; concurrent reads are safe if the Mapping allows them.
type Ledger struct {
	records Mapping
	logger  zerolog.Logger
}

// NewLedger creates a ledger over the given record mapping.
func NewLedger(records Mapping, logger zerolog.Logger) *Ledger {
	return &Ledger{records: records, logger: logger}
}

// Deposit credits amount of token to ectx.Caller and resets the caller's
// lock deadline to ectx.Epoch + ectx.Config.MinStakingEpochs.
//
// The deadline is overwritten, not maximized: a later deposit made under a
// smaller MinStakingEpochs can move it earlier.
//
// The returned record is the caller's state after the deposit. On error
// nothing has been written.
func (l *Ledger) Deposit(ectx ExecutionContext, token types.TokenIdentifier, amount *big.Int) (StakeRecord, error) {
	if token != ectx.Config.AcceptedToken {
		return StakeRecord{}, fmt.Errorf("%w: got %q, want %q", ErrInvalidToken, token, ectx.Config.AcceptedToken)
	}
	if amount == nil || amount.Sign() <= 0 {
		return StakeRecord{}, fmt.Errorf("%w: got %v", ErrInvalidAmount, amount)
	}
	if ectx.Epoch > math.MaxUint64-ectx.Config.MinStakingEpochs {
		return StakeRecord{}, fmt.Errorf("%w: epoch %d + %d", ErrLockOverflow, ectx.Epoch, ectx.Config.MinStakingEpochs)
	}
	lockUntil := ectx.Epoch + ectx.Config.MinStakingEpochs

	rec, err := l.records.GetOrDefault(ectx.Caller)
	if err != nil {
		return StakeRecord{}, err
	}
	rec = rec.Clone()
	rec.Amount.Add(rec.Amount, amount)
	rec.LockUntilEpoch = lockUntil

	if err := l.records.Set(ectx.Caller, rec); err != nil {
		return StakeRecord{}, err
	}

	l.logger.Debug().
		Str("account", ectx.Caller.String()).
		Str("deposit", amount.String()).
		Str("amount", rec.Amount.String()).
		Uint64("epoch", ectx.Epoch).
		Uint64("lock_until_epoch", rec.LockUntilEpoch).
		Msg("Stake deposited")

	return rec, nil
}

// GetStakedTokens returns the record for addr. Accounts that never
// deposited yield ZeroRecord(). Any caller may query any address.
func (l *Ledger) GetStakedTokens(addr types.Address) (StakeRecord, error) {
	return l.records.GetOrDefault(addr)
}
