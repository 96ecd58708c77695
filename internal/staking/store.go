package staking

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/Klingon-tech/winter-staking/internal/storage"
	"github.com/Klingon-tech/winter-staking/pkg/types"
)

var prefixStake = []byte("s/") // s/<address(20)> -> storedRecord JSON

// storedRecord is the on-disk form. The amount is a base-10 string so its
// precision is not bounded by the encoding.
type storedRecord struct {
	Amount         string `json:"amount"`
	LockUntilEpoch uint64 `json:"lock_until_epoch"`
}

// Store persists stake records in a key-value DB. It implements Mapping.
type Store struct {
	db storage.DB
}

// NewStore creates a stake record store.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// GetOrDefault returns the record for addr, or ZeroRecord() if none is stored.
func (s *Store) GetOrDefault(addr types.Address) (StakeRecord, error) {
	key := stakeKey(addr)
	ok, err := s.db.Has(key)
	if err != nil {
		return StakeRecord{}, fmt.Errorf("stake has: %w", err)
	}
	if !ok {
		return ZeroRecord(), nil
	}
	data, err := s.db.Get(key)
	if err != nil {
		return StakeRecord{}, fmt.Errorf("stake get: %w", err)
	}
	return decodeRecord(data)
}

// Set replaces the record for addr.
func (s *Store) Set(addr types.Address, rec StakeRecord) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	if err := s.db.Put(stakeKey(addr), data); err != nil {
		return fmt.Errorf("stake put: %w", err)
	}
	return nil
}

// Entry pairs an address with its stake record.
type Entry struct {
	Address types.Address
	StakeRecord
}

// ForEach iterates over all stored records.
// Return a non-nil error from fn to stop iteration early.
func (s *Store) ForEach(fn func(types.Address, StakeRecord) error) error {
	return s.db.ForEach(prefixStake, func(key, value []byte) error {
		if len(key) != len(prefixStake)+types.AddressSize {
			return nil // Malformed key, skip.
		}
		var addr types.Address
		copy(addr[:], key[len(prefixStake):])

		rec, err := decodeRecord(value)
		if err != nil {
			return fmt.Errorf("stake %s: %w", addr, err)
		}
		return fn(addr, rec)
	})
}

// List returns all stored records.
func (s *Store) List() ([]Entry, error) {
	entries := []Entry{}
	err := s.ForEach(func(addr types.Address, rec StakeRecord) error {
		entries = append(entries, Entry{Address: addr, StakeRecord: rec})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func encodeRecord(rec StakeRecord) ([]byte, error) {
	amount := rec.amountOrZero()
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("stake encode: negative amount %s", amount)
	}
	data, err := json.Marshal(storedRecord{
		Amount:         amount.String(),
		LockUntilEpoch: rec.LockUntilEpoch,
	})
	if err != nil {
		return nil, fmt.Errorf("stake marshal: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte) (StakeRecord, error) {
	var sr storedRecord
	if err := json.Unmarshal(data, &sr); err != nil {
		return StakeRecord{}, fmt.Errorf("stake unmarshal: %w", err)
	}
	amount, ok := new(big.Int).SetString(sr.Amount, 10)
	if !ok || amount.Sign() < 0 {
		return StakeRecord{}, fmt.Errorf("stake unmarshal: bad amount %q", sr.Amount)
	}
	return StakeRecord{Amount: amount, LockUntilEpoch: sr.LockUntilEpoch}, nil
}

func stakeKey(addr types.Address) []byte {
	key := make([]byte, len(prefixStake)+types.AddressSize)
	copy(key, prefixStake)
	copy(key[len(prefixStake):], addr[:])
	return key
}
