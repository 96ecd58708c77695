package rpcclient

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Klingon-tech/winter-staking/internal/host"
	klog "github.com/Klingon-tech/winter-staking/internal/log"
	"github.com/Klingon-tech/winter-staking/internal/rpc"
	"github.com/Klingon-tech/winter-staking/internal/staking"
	"github.com/Klingon-tech/winter-staking/internal/storage"
	"github.com/Klingon-tech/winter-staking/pkg/crypto"
)

type testEnv struct {
	client *Client
	key    *crypto.PrivateKey
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	klog.Init("error", false, "")

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	db := storage.NewMemory()
	clock, err := host.NewEpochClock(storage.NewPrefixDB(db, []byte("host/")), 100)
	if err != nil {
		t.Fatalf("epoch clock: %v", err)
	}
	h, err := host.New(storage.NewPrefixDB(db, []byte("ledger/")), clock,
		staking.Config{AcceptedToken: "WINTER", MinStakingEpochs: 10}, nil)
	if err != nil {
		t.Fatalf("host: %v", err)
	}

	// Create and start RPC server on random port.
	srv := rpc.New("127.0.0.1:0", h)
	if err := srv.Start(); err != nil {
		t.Fatalf("start rpc: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	return &testEnv{
		client: New("http://" + srv.Addr() + "/"),
		key:    key,
	}
}

func TestClient_DepositAndQuery(t *testing.T) {
	env := setupTestEnv(t)

	req, err := host.SignDeposit(env.key, "WINTER", big.NewInt(50), 1)
	if err != nil {
		t.Fatal(err)
	}
	params := rpc.DepositParam{
		Token:     "WINTER",
		Amount:    "50",
		Nonce:     1,
		PubKey:    hex.EncodeToString(req.PubKey),
		Signature: hex.EncodeToString(req.Signature),
	}

	var dep rpc.DepositResult
	if err := env.client.Call("staking_deposit", params, &dep); err != nil {
		t.Fatalf("Call error: %v", err)
	}
	if dep.LockUntilEpoch != 110 {
		t.Errorf("lock_until_epoch = %d, want 110", dep.LockUntilEpoch)
	}

	var stake rpc.StakeResult
	if err := env.client.Call("staking_getStakedTokens", rpc.AddressParam{Address: dep.Address}, &stake); err != nil {
		t.Fatalf("Call error: %v", err)
	}
	if stake.Amount != "50" {
		t.Errorf("amount = %s, want 50", stake.Amount)
	}
}

func TestClient_Call_StakingError(t *testing.T) {
	env := setupTestEnv(t)

	req, _ := host.SignDeposit(env.key, "OTHER", big.NewInt(1), 0)
	params := rpc.DepositParam{
		Token:     "OTHER",
		Amount:    "1",
		PubKey:    hex.EncodeToString(req.PubKey),
		Signature: hex.EncodeToString(req.Signature),
	}

	err := env.client.Call("staking_deposit", params, nil)
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %T: %v", err, err)
	}
	if rpcErr.Code != rpc.CodeInvalidToken {
		t.Errorf("error code = %d, want %d", rpcErr.Code, rpc.CodeInvalidToken)
	}
	if !IsCode(err, rpc.CodeInvalidToken) || IsCode(err, rpc.CodeInvalidAmount) {
		t.Error("IsCode does not match the returned code")
	}
}

func TestClient_Call_InvalidEndpoint(t *testing.T) {
	client := New("http://127.0.0.1:1/") // nothing listens on port 1

	var result rpc.EpochResult
	err := client.Call("epoch_getCurrent", nil, &result)
	if err == nil {
		t.Fatal("expected connection error")
	}
}

func TestClient_CallContext_Canceled(t *testing.T) {
	env := setupTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := env.client.CallContext(ctx, "epoch_getCurrent", nil, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("CallContext = %v, want context.Canceled", err)
	}
}

func TestClient_Call_MethodNotFound(t *testing.T) {
	env := setupTestEnv(t)

	err := env.client.Call("nonexistent_method", nil, nil)
	if err == nil {
		t.Fatal("expected error for unknown method")
	}

	rpcErr, ok := err.(*RPCError)
	if !ok {
		t.Fatalf("expected RPCError, got %T: %v", err, err)
	}
	if rpcErr.Code != rpc.CodeMethodNotFound {
		t.Errorf("error code = %d, want %d", rpcErr.Code, rpc.CodeMethodNotFound)
	}
}

func TestNewWithTimeout_Default(t *testing.T) {
	c := NewWithTimeout("http://127.0.0.1:1/", 0)
	if c.http.Timeout != 10*time.Second {
		t.Errorf("timeout = %v, want 10s", c.http.Timeout)
	}
}

func TestClient_Call_HTTPErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	err := New(srv.URL).Call("epoch_getCurrent", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "http 403") {
		t.Errorf("Call = %v, want http 403 error", err)
	}
	if IsCode(err, rpc.CodeInternalError) {
		t.Error("HTTP failure should not look like a node error")
	}
}

func TestClient_Call_IDMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","result":{"epoch":1},"id":999}`))
	}))
	defer srv.Close()

	err := New(srv.URL).Call("epoch_getCurrent", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "response id") {
		t.Errorf("Call = %v, want id mismatch", err)
	}
}

func TestClient_IDsIncrease(t *testing.T) {
	env := setupTestEnv(t)
	for i := 0; i < 3; i++ {
		var res rpc.EpochResult
		if err := env.client.Call("epoch_getCurrent", nil, &res); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if got := env.client.nextID.Load(); got != 3 {
		t.Errorf("nextID = %d, want 3", got)
	}
}
