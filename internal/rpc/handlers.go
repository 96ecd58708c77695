package rpc

import (
	"encoding/hex"
	"errors"
	"math/big"
	"strings"

	"github.com/Klingon-tech/winter-staking/internal/host"
	"github.com/Klingon-tech/winter-staking/internal/staking"
	"github.com/Klingon-tech/winter-staking/pkg/types"
)

// ── Staking endpoints ───────────────────────────────────────────────────

func (s *Server) handleStakingDeposit(req *Request) (interface{}, *Error) {
	var params DepositParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}

	amount, ok := parseAmount(params.Amount)
	if !ok {
		return nil, &Error{Code: CodeInvalidParams, Message: "invalid amount: must be a base-10 integer"}
	}
	pubKey, err := hex.DecodeString(params.PubKey)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "invalid pubkey: must be hex"}
	}
	sig, err := hex.DecodeString(params.Signature)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "invalid signature: must be hex"}
	}

	rcpt, err := s.host.Deposit(&host.DepositRequest{
		Token:     types.TokenIdentifier(params.Token),
		Amount:    amount,
		Nonce:     params.Nonce,
		PubKey:    pubKey,
		Signature: sig,
	})
	if err != nil {
		return nil, s.depositError(err)
	}

	return &DepositResult{
		Address:        rcpt.Caller.String(),
		Amount:         rcpt.Record.Amount.String(),
		LockUntilEpoch: rcpt.Record.LockUntilEpoch,
		Epoch:          rcpt.Epoch,
	}, nil
}

func (s *Server) handleStakingGetStakedTokens(req *Request) (interface{}, *Error) {
	var params AddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Address == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "address is required"}
	}

	addr, err := types.ParseAddress(params.Address)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "invalid address: " + err.Error()}
	}

	rec, err := s.host.GetStakedTokens(addr)
	if err != nil {
		s.logger.Error().Err(err).Str("address", addr.String()).Msg("Stake lookup failed")
		return nil, &Error{Code: CodeInternalError, Message: "stake lookup failed"}
	}
	return newStakeResult(addr, rec), nil
}

func (s *Server) handleStakingListStakes(_ *Request) (interface{}, *Error) {
	entries, err := s.host.ListStakes()
	if err != nil {
		s.logger.Error().Err(err).Msg("Stake listing failed")
		return nil, &Error{Code: CodeInternalError, Message: "stake listing failed"}
	}

	total := new(big.Int)
	stakes := make([]StakeResult, 0, len(entries))
	for _, e := range entries {
		stakes = append(stakes, *newStakeResult(e.Address, e.StakeRecord))
		total.Add(total, e.StakeRecord.Amount)
	}
	return &StakeListResult{Stakes: stakes, Total: total.String()}, nil
}

func (s *Server) handleStakingGetConfig(_ *Request) (interface{}, *Error) {
	cfg := s.host.Config()
	return &ConfigResult{
		AcceptedToken:    cfg.AcceptedToken.String(),
		MinStakingEpochs: cfg.MinStakingEpochs,
	}, nil
}

// ── Epoch endpoints ─────────────────────────────────────────────────────

func (s *Server) handleEpochGetCurrent(_ *Request) (interface{}, *Error) {
	return &EpochResult{Epoch: s.host.Epoch()}, nil
}

func (s *Server) handleEpochAdvance(req *Request) (interface{}, *Error) {
	if !s.manualEpochs {
		return nil, &Error{Code: CodeDisabled, Message: "epoch_advance is disabled (node is not in manual epoch mode)"}
	}

	var params EpochAdvanceParam
	if hasParams(req) {
		if err := parseParams(req, &params); err != nil {
			return nil, err
		}
	}

	if params.To != nil {
		if err := s.host.AdvanceEpochTo(*params.To); err != nil {
			if errors.Is(err, host.ErrEpochRegression) {
				return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
			}
			return nil, &Error{Code: CodeInternalError, Message: err.Error()}
		}
		return &EpochResult{Epoch: s.host.Epoch()}, nil
	}

	epoch, err := s.host.AdvanceEpoch()
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return &EpochResult{Epoch: epoch}, nil
}

// ── Helpers ─────────────────────────────────────────────────────────────

// parseAmount reads a signed base-10 integer. Sign checks are left to the
// ledger so a negative amount reports the ledger's own error.
func parseAmount(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "+") {
		return nil, false
	}
	return new(big.Int).SetString(s, 10)
}

func newStakeResult(addr types.Address, rec staking.StakeRecord) *StakeResult {
	amount := "0"
	if rec.Amount != nil {
		amount = rec.Amount.String()
	}
	return &StakeResult{
		Address:        addr.String(),
		Amount:         amount,
		LockUntilEpoch: rec.LockUntilEpoch,
	}
}

// depositError maps a host deposit error to its RPC error code.
func (s *Server) depositError(err error) *Error {
	switch {
	case errors.Is(err, staking.ErrInvalidToken):
		return &Error{Code: CodeInvalidToken, Message: err.Error()}
	case errors.Is(err, staking.ErrInvalidAmount):
		return &Error{Code: CodeInvalidAmount, Message: err.Error()}
	case errors.Is(err, staking.ErrLockOverflow):
		return &Error{Code: CodeLockOverflow, Message: err.Error()}
	case errors.Is(err, host.ErrBadSignature):
		return &Error{Code: CodeBadSignature, Message: err.Error()}
	case errors.Is(err, host.ErrReplayedNonce):
		return &Error{Code: CodeReplayedNonce, Message: err.Error()}
	default:
		s.logger.Error().Err(err).Msg("Deposit failed")
		return &Error{Code: CodeInternalError, Message: "deposit failed"}
	}
}
