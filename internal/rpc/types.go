package rpc

import "encoding/json"

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeDisabled       = -32001
)

// Staking error codes.
const (
	CodeInvalidToken  = -32010
	CodeInvalidAmount = -32011
	CodeLockOverflow  = -32012
	CodeBadSignature  = -32013
	CodeReplayedNonce = -32014
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// DepositParam is used by staking_deposit. Amount is a base-10 integer
// string; PubKey and Signature are hex.
type DepositParam struct {
	Token     string `json:"token"`
	Amount    string `json:"amount"`
	Nonce     uint64 `json:"nonce"`
	PubKey    string `json:"pubkey"`
	Signature string `json:"signature"`
}

// AddressParam is used by staking_getStakedTokens.
type AddressParam struct {
	Address string `json:"address"`
}

// EpochAdvanceParam is used by epoch_advance. A nil To advances by one.
type EpochAdvanceParam struct {
	To *uint64 `json:"to,omitempty"`
}

// ── Result types ────────────────────────────────────────────────────────

// DepositResult is returned by staking_deposit.
type DepositResult struct {
	Address        string `json:"address"`
	Amount         string `json:"amount"`
	LockUntilEpoch uint64 `json:"lock_until_epoch"`
	Epoch          uint64 `json:"epoch"`
}

// StakeResult describes one account's stake.
type StakeResult struct {
	Address        string `json:"address"`
	Amount         string `json:"amount"`
	LockUntilEpoch uint64 `json:"lock_until_epoch"`
}

// StakeListResult is returned by staking_listStakes.
type StakeListResult struct {
	Stakes []StakeResult `json:"stakes"`
	Total  string        `json:"total"`
}

// ConfigResult is returned by staking_getConfig.
type ConfigResult struct {
	AcceptedToken    string `json:"accepted_token"`
	MinStakingEpochs uint64 `json:"min_staking_epochs"`
}

// EpochResult is returned by epoch_getCurrent and epoch_advance.
type EpochResult struct {
	Epoch uint64 `json:"epoch"`
}
