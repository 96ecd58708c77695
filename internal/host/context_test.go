package host

import (
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Klingon-tech/winter-staking/internal/metrics"
	"github.com/Klingon-tech/winter-staking/internal/staking"
	"github.com/Klingon-tech/winter-staking/internal/storage"
	"github.com/Klingon-tech/winter-staking/pkg/crypto"
	"github.com/Klingon-tech/winter-staking/pkg/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var testConfig = staking.Config{AcceptedToken: "WINTER", MinStakingEpochs: 10}

func newTestContext(t *testing.T, db storage.DB, epoch uint64) *Context {
	t.Helper()
	clock, err := NewEpochClock(storage.NewMemory(), epoch)
	if err != nil {
		t.Fatalf("NewEpochClock: %v", err)
	}
	c, err := New(db, clock, testConfig, metrics.New())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

var nextNonce atomic.Uint64

// signed returns a deposit request with a nonce no other test request uses.
func signed(t *testing.T, key *crypto.PrivateKey, token types.TokenIdentifier, amount int64) *DepositRequest {
	t.Helper()
	return signedNonce(t, key, token, amount, nextNonce.Add(1))
}

func signedNonce(t *testing.T, key *crypto.PrivateKey, token types.TokenIdentifier, amount int64, nonce uint64) *DepositRequest {
	t.Helper()
	req, err := SignDeposit(key, token, big.NewInt(amount), nonce)
	if err != nil {
		t.Fatalf("SignDeposit: %v", err)
	}
	return req
}

func dump(t *testing.T, db storage.DB) map[string]string {
	t.Helper()
	out := make(map[string]string)
	if err := db.ForEach(nil, func(k, v []byte) error {
		out[string(k)] = string(v)
		return nil
	}); err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	return out
}

func TestContext_WorkedExample(t *testing.T) {
	c := newTestContext(t, storage.NewMemory(), 100)
	alice := mustKey(t)
	aliceAddr := alice.Address()

	rcpt, err := c.Deposit(signed(t, alice, "WINTER", 50))
	if err != nil {
		t.Fatalf("first deposit: %v", err)
	}
	if rcpt.Caller != aliceAddr || rcpt.Epoch != 100 {
		t.Errorf("receipt = %+v", rcpt)
	}
	if rcpt.Record.Amount.Int64() != 50 || rcpt.Record.LockUntilEpoch != 110 {
		t.Errorf("after first deposit = (%s, %d), want (50, 110)",
			rcpt.Record.Amount, rcpt.Record.LockUntilEpoch)
	}

	if err := c.AdvanceEpochTo(105); err != nil {
		t.Fatalf("AdvanceEpochTo: %v", err)
	}
	if _, err := c.Deposit(signed(t, alice, "WINTER", 25)); err != nil {
		t.Fatalf("second deposit: %v", err)
	}

	rec, err := c.GetStakedTokens(aliceAddr)
	if err != nil {
		t.Fatalf("GetStakedTokens: %v", err)
	}
	if rec.Amount.Int64() != 75 || rec.LockUntilEpoch != 115 {
		t.Errorf("after second deposit = (%s, %d), want (75, 115)", rec.Amount, rec.LockUntilEpoch)
	}

	unknown, err := c.GetStakedTokens(types.Address{0xBB})
	if err != nil {
		t.Fatalf("GetStakedTokens(unknown): %v", err)
	}
	if !unknown.IsZero() {
		t.Errorf("unknown account = (%s, %d), want zero", unknown.Amount, unknown.LockUntilEpoch)
	}

	if got := testutil.ToFloat64(c.metrics.Deposits(metrics.ResultAccepted)); got != 2 {
		t.Errorf("accepted deposits metric = %v, want 2", got)
	}
}

func TestContext_RejectionsLeaveStateUnchanged(t *testing.T) {
	db := storage.NewMemory()
	c := newTestContext(t, db, 100)
	key := mustKey(t)

	seed := signed(t, key, "WINTER", 50)
	if _, err := c.Deposit(seed); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}
	before := dump(t, db)
	replay := signedNonce(t, key, "WINTER", 50, seed.Nonce)

	badSig := signed(t, key, "WINTER", 10)
	badSig.Amount = big.NewInt(1_000_000)

	tests := []struct {
		name   string
		req    *DepositRequest
		want   error
		result string
	}{
		{"wrong token", signed(t, key, "OTHER", 10), staking.ErrInvalidToken, metrics.ResultInvalidToken},
		{"zero amount", signed(t, key, "WINTER", 0), staking.ErrInvalidAmount, metrics.ResultInvalidAmount},
		{"negative amount", signed(t, key, "WINTER", -5), staking.ErrInvalidAmount, metrics.ResultInvalidAmount},
		{"bad signature", badSig, ErrBadSignature, metrics.ResultBadSignature},
		{"replayed nonce", replay, ErrReplayedNonce, metrics.ResultReplayed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Deposit(tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Deposit = %v, want %v", err, tt.want)
			}
			after := dump(t, db)
			if len(after) != len(before) {
				t.Fatalf("db has %d keys, want %d", len(after), len(before))
			}
			for k, v := range before {
				if after[k] != v {
					t.Fatalf("db[%x] changed: %q -> %q", k, v, after[k])
				}
			}
			if got := testutil.ToFloat64(c.metrics.Deposits(tt.result)); got < 1 {
				t.Errorf("metric %q = %v, want >= 1", tt.result, got)
			}
		})
	}
}

func TestContext_Nonces(t *testing.T) {
	c := newTestContext(t, storage.NewMemory(), 100)
	alice, bob := mustKey(t), mustKey(t)

	for _, n := range []uint64{5, 3, 9} {
		if _, err := c.Deposit(signedNonce(t, alice, "WINTER", 1, n)); err != nil {
			t.Fatalf("deposit nonce %d: %v", n, err)
		}
	}
	if _, err := c.Deposit(signedNonce(t, alice, "WINTER", 1, 3)); !errors.Is(err, ErrReplayedNonce) {
		t.Fatalf("replay = %v, want ErrReplayedNonce", err)
	}
	if _, err := c.Deposit(signedNonce(t, bob, "WINTER", 1, 3)); err != nil {
		t.Fatalf("other account, same nonce: %v", err)
	}

	// A rejected deposit does not spend its nonce.
	if _, err := c.Deposit(signedNonce(t, alice, "OTHER", 1, 11)); !errors.Is(err, staking.ErrInvalidToken) {
		t.Fatalf("foreign token = %v, want ErrInvalidToken", err)
	}
	if _, err := c.Deposit(signedNonce(t, alice, "WINTER", 1, 11)); err != nil {
		t.Fatalf("nonce of rejected deposit: %v", err)
	}

	rec, err := c.GetStakedTokens(alice.Address())
	if err != nil {
		t.Fatalf("GetStakedTokens: %v", err)
	}
	if rec.Amount.Int64() != 4 {
		t.Errorf("amount = %s, want 4", rec.Amount)
	}
	if got := testutil.ToFloat64(c.metrics.Deposits(metrics.ResultReplayed)); got != 1 {
		t.Errorf("replayed metric = %v, want 1", got)
	}
}

func TestContext_LockOverflow(t *testing.T) {
	c := newTestContext(t, storage.NewMemory(), ^uint64(0)-5)
	key := mustKey(t)

	_, err := c.Deposit(signed(t, key, "WINTER", 1))
	if !errors.Is(err, staking.ErrLockOverflow) {
		t.Fatalf("Deposit = %v, want ErrLockOverflow", err)
	}
	stakes, err := c.ListStakes()
	if err != nil {
		t.Fatalf("ListStakes: %v", err)
	}
	if len(stakes) != 0 {
		t.Errorf("ListStakes = %d entries, want 0", len(stakes))
	}
}

func TestContext_ConcurrentDeposits(t *testing.T) {
	db, err := storage.NewBadger(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	defer db.Close()

	c := newTestContext(t, storage.NewPrefixDB(db, []byte("ledger/")), 1)
	key := mustKey(t)
	addr := key.Address()

	const workers = 16
	reqs := make([]*DepositRequest, workers)
	for i := range reqs {
		reqs[i] = signed(t, key, "WINTER", 3)
	}

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for _, req := range reqs {
		wg.Add(1)
		go func(req *DepositRequest) {
			defer wg.Done()
			if _, err := c.Deposit(req); err != nil {
				errs <- err
			}
		}(req)
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := c.GetStakedTokens(addr)
			if err != nil {
				errs <- err
				return
			}
			if rec.Amount.Int64()%3 != 0 {
				errs <- errors.New("observed a partial deposit")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	rec, err := c.GetStakedTokens(addr)
	if err != nil {
		t.Fatalf("GetStakedTokens: %v", err)
	}
	if rec.Amount.Int64() != 3*workers {
		t.Errorf("amount = %s, want %d", rec.Amount, 3*workers)
	}
}

func TestContext_AdvanceEpoch(t *testing.T) {
	c := newTestContext(t, storage.NewMemory(), 7)

	epoch, err := c.AdvanceEpoch()
	if err != nil {
		t.Fatalf("AdvanceEpoch: %v", err)
	}
	if epoch != 8 || c.Epoch() != 8 {
		t.Errorf("epoch = %d, Epoch() = %d, want 8", epoch, c.Epoch())
	}
	if got := testutil.ToFloat64(c.metrics.CurrentEpoch()); got != 8 {
		t.Errorf("epoch gauge = %v, want 8", got)
	}
	if err := c.AdvanceEpochTo(3); !errors.Is(err, ErrEpochRegression) {
		t.Errorf("AdvanceEpochTo(3) = %v, want ErrEpochRegression", err)
	}
}

func TestNew_InvalidToken(t *testing.T) {
	clock, _ := NewEpochClock(storage.NewMemory(), 0)
	_, err := New(storage.NewMemory(), clock, staking.Config{AcceptedToken: ""}, nil)
	if !errors.Is(err, types.ErrInvalidTokenIdentifier) {
		t.Errorf("New = %v, want ErrInvalidTokenIdentifier", err)
	}
}
