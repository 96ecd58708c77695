package storage

import (
	"errors"
	"testing"
)

func TestStaged_ReadsSeeStagedWrites(t *testing.T) {
	base := NewMemory()
	base.Put([]byte("k"), []byte("base"))
	base.Put([]byte("gone"), []byte("x"))

	s := NewStaged(base)
	s.Put([]byte("k"), []byte("staged"))
	s.Put([]byte("new"), []byte("n"))
	s.Delete([]byte("gone"))

	got, err := s.Get([]byte("k"))
	if err != nil || string(got) != "staged" {
		t.Fatalf("Get(k) = %q, %v, want staged", got, err)
	}
	if _, err := s.Get([]byte("gone")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(gone) err = %v, want ErrNotFound", err)
	}
	if ok, _ := s.Has([]byte("new")); !ok {
		t.Error("Has(new) = false in staged view")
	}

	// Base untouched until Commit.
	got, _ = base.Get([]byte("k"))
	if string(got) != "base" {
		t.Errorf("base k = %q before Commit, want base", got)
	}
	if ok, _ := base.Has([]byte("new")); ok {
		t.Error("staged write leaked to base")
	}
}

func TestStaged_Commit(t *testing.T) {
	base := NewMemory()
	base.Put([]byte("gone"), []byte("x"))

	s := NewStaged(base)
	s.Put([]byte("a"), []byte("1"))
	s.Delete([]byte("gone"))
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len after Commit = %d, want 0", s.Len())
	}
	if got, _ := base.Get([]byte("a")); string(got) != "1" {
		t.Errorf("base a = %q, want 1", got)
	}
	if ok, _ := base.Has([]byte("gone")); ok {
		t.Error("staged delete not applied")
	}
}

func TestStaged_Discard(t *testing.T) {
	base := NewMemory()
	s := NewStaged(base)
	s.Put([]byte("a"), []byte("1"))
	s.Discard()

	if err := s.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if ok, _ := base.Has([]byte("a")); ok {
		t.Error("discarded write reached base")
	}
}

func TestStaged_ForEachMerged(t *testing.T) {
	base := NewMemory()
	base.Put([]byte("s/a"), []byte("base-a"))
	base.Put([]byte("s/b"), []byte("base-b"))
	base.Put([]byte("s/c"), []byte("base-c"))

	s := NewStaged(base)
	s.Put([]byte("s/a"), []byte("staged-a"))
	s.Delete([]byte("s/b"))
	s.Put([]byte("s/d"), []byte("staged-d"))
	s.Put([]byte("x/e"), []byte("other"))

	got := make(map[string]string)
	err := s.ForEach([]byte("s/"), func(key, value []byte) error {
		got[string(key)] = string(value)
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	want := map[string]string{"s/a": "staged-a", "s/c": "base-c", "s/d": "staged-d"}
	if len(got) != len(want) {
		t.Fatalf("ForEach = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("ForEach[%s] = %q, want %q", k, got[k], v)
		}
	}
}
