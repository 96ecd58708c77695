package staking

import (
	"math/big"
	"testing"

	"github.com/Klingon-tech/winter-staking/internal/storage"
	"github.com/Klingon-tech/winter-staking/pkg/types"
)

func TestStore_SetGet(t *testing.T) {
	store := NewStore(storage.NewMemory())
	addr := types.Address{0x01, 0x02}

	rec, err := store.GetOrDefault(addr)
	if err != nil {
		t.Fatalf("GetOrDefault: %v", err)
	}
	if !rec.IsZero() {
		t.Fatalf("expected zero record, got %+v", rec)
	}

	want := StakeRecord{Amount: big.NewInt(12345), LockUntilEpoch: 99}
	if err := store.Set(addr, want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := store.GetOrDefault(addr)
	if err != nil {
		t.Fatalf("GetOrDefault: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestStore_EncodingIsDecimal(t *testing.T) {
	db := storage.NewMemory()
	store := NewStore(db)
	addr := types.Address{0x09}

	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	store.Set(addr, StakeRecord{Amount: huge, LockUntilEpoch: 7})

	raw, err := db.Get(stakeKey(addr))
	if err != nil {
		t.Fatalf("raw get: %v", err)
	}
	want := `{"amount":"123456789012345678901234567890","lock_until_epoch":7}`
	if string(raw) != want {
		t.Errorf("stored = %s, want %s", raw, want)
	}
}

func TestStore_SetRejectsNegative(t *testing.T) {
	store := NewStore(storage.NewMemory())
	if err := store.Set(types.Address{1}, StakeRecord{Amount: big.NewInt(-1)}); err == nil {
		t.Fatal("negative amount should not be stored")
	}
}

func TestStore_CorruptRecord(t *testing.T) {
	db := storage.NewMemory()
	store := NewStore(db)
	addr := types.Address{0x07}

	for _, raw := range []string{"not json", `{"amount":"abc"}`, `{"amount":"-5"}`} {
		db.Put(stakeKey(addr), []byte(raw))
		if _, err := store.GetOrDefault(addr); err == nil {
			t.Errorf("GetOrDefault(%s) should fail", raw)
		}
	}
}

func TestStore_List(t *testing.T) {
	db := storage.NewMemory()
	store := NewStore(db)

	entries, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("List on empty store = %v, want empty slice", entries)
	}

	store.Set(types.Address{1}, StakeRecord{Amount: big.NewInt(1), LockUntilEpoch: 1})
	store.Set(types.Address{2}, StakeRecord{Amount: big.NewInt(2), LockUntilEpoch: 2})
	db.Put([]byte("s/short"), []byte("{}")) // malformed key is skipped
	db.Put([]byte("x/other"), []byte("{}"))

	entries, err = store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("List len = %d, want 2", len(entries))
	}
	byAddr := map[types.Address]StakeRecord{}
	for _, e := range entries {
		byAddr[e.Address] = e.StakeRecord
	}
	if byAddr[types.Address{2}].Amount.Int64() != 2 {
		t.Errorf("entry 2 = %+v", byAddr[types.Address{2}])
	}
}

func TestStakeRecord_CloneAndEqual(t *testing.T) {
	r := StakeRecord{Amount: big.NewInt(10), LockUntilEpoch: 3}
	c := r.Clone()
	c.Amount.SetInt64(11)
	if r.Amount.Int64() != 10 {
		t.Error("Clone shares the amount")
	}
	if r.Equal(c) {
		t.Error("different amounts compare equal")
	}
	if !(StakeRecord{}).Equal(ZeroRecord()) {
		t.Error("nil amount should equal zero record")
	}
	if !(StakeRecord{}).Clone().IsZero() {
		t.Error("clone of empty record should be zero")
	}
}
