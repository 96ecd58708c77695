package staking

import "errors"

// Deposit validation errors. A deposit that fails with any of these leaves
// the ledger unchanged.
var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidAmount = errors.New("staking amount must be greater than zero")
	ErrLockOverflow  = errors.New("lock deadline overflows epoch counter")
)
