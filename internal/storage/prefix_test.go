package storage

import (
	"sort"
	"testing"
)

func TestPrefixDB_Isolation(t *testing.T) {
	inner := NewMemory()
	ledger := NewPrefixDB(inner, []byte("ledger/"))
	host := NewPrefixDB(inner, []byte("host/"))

	if err := ledger.Put([]byte("key"), []byte("fromLedger")); err != nil {
		t.Fatal(err)
	}
	if err := host.Put([]byte("key"), []byte("fromHost")); err != nil {
		t.Fatal(err)
	}

	got, err := ledger.Get([]byte("key"))
	if err != nil || string(got) != "fromLedger" {
		t.Fatalf("ledger.Get = %q, %v", got, err)
	}
	got, err = host.Get([]byte("key"))
	if err != nil || string(got) != "fromHost" {
		t.Fatalf("host.Get = %q, %v", got, err)
	}

	// Raw key layout in the inner DB.
	if ok, _ := inner.Has([]byte("ledger/key")); !ok {
		t.Error("inner DB missing ledger/key")
	}

	if err := ledger.Delete([]byte("key")); err != nil {
		t.Fatal(err)
	}
	if ok, _ := ledger.Has([]byte("key")); ok {
		t.Error("ledger key still present after Delete")
	}
	if ok, _ := host.Has([]byte("key")); !ok {
		t.Error("host key removed by ledger Delete")
	}
}

func TestPrefixDB_ForEachStripsPrefix(t *testing.T) {
	inner := NewMemory()
	db := NewPrefixDB(inner, []byte("ns/"))

	db.Put([]byte("s/k1"), []byte("v1"))
	db.Put([]byte("s/k2"), []byte("v2"))
	db.Put([]byte("e/k3"), []byte("v3"))
	inner.Put([]byte("s/outside"), []byte("v4"))

	var keys []string
	err := db.ForEach([]byte("s/"), func(key, value []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "s/k1" || keys[1] != "s/k2" {
		t.Fatalf("ForEach keys = %v, want [s/k1 s/k2]", keys)
	}
}

func TestPrefixDB_Batch(t *testing.T) {
	inner := NewMemory()
	db := NewPrefixDB(inner, []byte("p/"))

	b := db.NewBatch()
	b.Put([]byte("a"), []byte("1"))
	if ok, _ := inner.Has([]byte("p/a")); ok {
		t.Fatal("batch write visible before Commit")
	}
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	got, err := inner.Get([]byte("p/a"))
	if err != nil || string(got) != "1" {
		t.Fatalf("inner.Get(p/a) = %q, %v", got, err)
	}
}

// plainDB hides the Batcher implementation of MemoryDB.
type plainDB struct{ DB }

func TestPrefixDB_BatchFallback(t *testing.T) {
	inner := NewMemory()
	db := NewPrefixDB(plainDB{inner}, []byte("p/"))

	b := db.NewBatch()
	b.Put([]byte("a"), []byte("1"))
	b.Delete([]byte("missing"))
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if ok, _ := inner.Has([]byte("p/a")); !ok {
		t.Fatal("fallback batch did not write p/a")
	}
}

func TestPrefixDB_CloseIsNoop(t *testing.T) {
	inner := NewMemory()
	db := NewPrefixDB(inner, []byte("x/"))
	db.Put([]byte("key"), []byte("val"))

	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	got, err := inner.Get([]byte("x/key"))
	if err != nil || string(got) != "val" {
		t.Fatalf("inner.Get after Close = %q, %v", got, err)
	}
}
