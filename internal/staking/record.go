// Package staking implements the token-staking ledger.
//
// The ledger records, per account, the total amount of the accepted token
// deposited and the epoch up to and including which that stake is locked.
// Deposits only ever add to the amount; each deposit resets the lock
// deadline to current_epoch + min_staking_epochs. Nothing in this package
// moves tokens, resolves callers or advances epochs: those inputs arrive
// through an explicit ExecutionContext supplied by the host.
package staking

import (
	"math/big"

	"github.com/Klingon-tech/winter-staking/pkg/types"
)

// StakeRecord is the per-account staking state.
type StakeRecord struct {
	// Amount is the total staked, never negative and never nil on records
	// returned by this package.
	Amount *big.Int
	// LockUntilEpoch is the last epoch during which the stake is locked.
	LockUntilEpoch uint64
}

// ZeroRecord returns the record of an account that never deposited.
func ZeroRecord() StakeRecord {
	return StakeRecord{Amount: new(big.Int)}
}

// IsZero reports whether r equals the zero record.
func (r StakeRecord) IsZero() bool {
	return (r.Amount == nil || r.Amount.Sign() == 0) && r.LockUntilEpoch == 0
}

// Clone returns a deep copy of r.
func (r StakeRecord) Clone() StakeRecord {
	out := StakeRecord{Amount: new(big.Int), LockUntilEpoch: r.LockUntilEpoch}
	if r.Amount != nil {
		out.Amount.Set(r.Amount)
	}
	return out
}

// Equal reports whether two records hold the same amount and deadline.
func (r StakeRecord) Equal(o StakeRecord) bool {
	return r.amountOrZero().Cmp(o.amountOrZero()) == 0 && r.LockUntilEpoch == o.LockUntilEpoch
}

func (r StakeRecord) amountOrZero() *big.Int {
	if r.Amount == nil {
		return new(big.Int)
	}
	return r.Amount
}

// Config holds the staking parameters the ledger validates against.
type Config struct {
	AcceptedToken    types.TokenIdentifier
	MinStakingEpochs uint64
}

// ExecutionContext carries the inputs the host resolves for one call:
// who is calling, at which epoch, and under which configuration.
type ExecutionContext struct {
	Caller types.Address
	Epoch  uint64
	Config Config
}
