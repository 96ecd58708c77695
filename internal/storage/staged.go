package storage

import (
	"bytes"
	"sort"
)

// Staged is a write buffer layered over a DB. Reads see staged writes
// first and fall through to the base DB; nothing reaches the base until
// Commit, which applies every staged write in one batch. Discard drops them.
//
// A Staged view is not safe for concurrent use. Callers serialize access.
type Staged struct {
	base    DB
	pending map[string][]byte // nil value = staged delete
}

// NewStaged creates an empty write buffer over base.
func NewStaged(base DB) *Staged {
	return &Staged{base: base, pending: make(map[string][]byte)}
}

// Get returns the staged value for key, or the base value.
func (s *Staged) Get(key []byte) ([]byte, error) {
	if v, ok := s.pending[string(key)]; ok {
		if v == nil {
			return nil, ErrNotFound
		}
		return copyBytes(v), nil
	}
	return s.base.Get(key)
}

// Put stages a write.
func (s *Staged) Put(key, value []byte) error {
	s.pending[string(key)] = copyBytes(value)
	return nil
}

// Delete stages a delete.
func (s *Staged) Delete(key []byte) error {
	s.pending[string(key)] = nil
	return nil
}

// Has reports whether key exists in the staged view.
func (s *Staged) Has(key []byte) (bool, error) {
	if v, ok := s.pending[string(key)]; ok {
		return v != nil, nil
	}
	return s.base.Has(key)
}

// ForEach iterates the merged view: base entries are overridden or hidden
// by staged ones, and staged-only entries are visited in key order after
// the base entries.
func (s *Staged) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	seen := make(map[string]struct{})
	err := s.base.ForEach(prefix, func(key, value []byte) error {
		k := string(key)
		if v, ok := s.pending[k]; ok {
			seen[k] = struct{}{}
			if v == nil {
				return nil
			}
			return fn(key, copyBytes(v))
		}
		return fn(key, value)
	})
	if err != nil {
		return err
	}

	var extra []string
	for k, v := range s.pending {
		if v == nil || !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, k := range extra {
		if err := fn([]byte(k), copyBytes(s.pending[k])); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; the base DB owns its lifecycle.
func (s *Staged) Close() error {
	return nil
}

// Len returns the number of staged writes.
func (s *Staged) Len() int {
	return len(s.pending)
}

// Commit applies all staged writes to the base DB atomically when the base
// supports batches, then clears the buffer.
func (s *Staged) Commit() error {
	if len(s.pending) == 0 {
		return nil
	}
	var b Batch
	if batcher, ok := s.base.(Batcher); ok {
		b = batcher.NewBatch()
	} else {
		b = &sequentialBatch{db: s.base}
	}

	keys := make([]string, 0, len(s.pending))
	for k := range s.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var err error
		if v := s.pending[k]; v == nil {
			err = b.Delete([]byte(k))
		} else {
			err = b.Put([]byte(k), v)
		}
		if err != nil {
			return err
		}
	}
	if err := b.Commit(); err != nil {
		return err
	}
	s.Discard()
	return nil
}

// Discard drops all staged writes.
func (s *Staged) Discard() {
	s.pending = make(map[string][]byte)
}
