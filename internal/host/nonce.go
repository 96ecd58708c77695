package host

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Klingon-tech/winter-staking/internal/storage"
	"github.com/Klingon-tech/winter-staking/pkg/types"
)

var prefixNonce = []byte("n/") // n/<address(20)><nonce(8)> -> 0x01

// ErrReplayedNonce is returned for a deposit whose nonce the caller has
// already spent.
var ErrReplayedNonce = errors.New("deposit nonce already used")

func nonceKey(addr types.Address, nonce uint64) []byte {
	key := make([]byte, 0, len(prefixNonce)+types.AddressSize+8)
	key = append(key, prefixNonce...)
	key = append(key, addr[:]...)
	return binary.BigEndian.AppendUint64(key, nonce)
}

// checkNonce fails if caller already spent nonce.
func checkNonce(db storage.DB, caller types.Address, nonce uint64) error {
	used, err := db.Has(nonceKey(caller, nonce))
	if err != nil {
		return fmt.Errorf("nonce lookup: %w", err)
	}
	if used {
		return fmt.Errorf("%w: %d", ErrReplayedNonce, nonce)
	}
	return nil
}

// spendNonce marks nonce as used by caller.
func spendNonce(db storage.DB, caller types.Address, nonce uint64) error {
	if err := db.Put(nonceKey(caller, nonce), []byte{1}); err != nil {
		return fmt.Errorf("nonce store: %w", err)
	}
	return nil
}
