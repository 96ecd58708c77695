package host

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/Klingon-tech/winter-staking/internal/storage"
)

var keyEpoch = []byte("e/current") // -> uint64 big-endian

// ErrEpochRegression is returned when asked to move the clock backwards.
var ErrEpochRegression = errors.New("epoch must not decrease")

// EpochClock is the host's monotonic epoch counter. The value is
// persisted on every change so a restarted node resumes where it stopped.
//
// Current is safe for concurrent use. Advance and AdvanceTo must be
// serialized by the caller (the Context does this).
type EpochClock struct {
	db      storage.DB
	current atomic.Uint64
}

// NewEpochClock loads the persisted epoch from db, or initializes it to
// start if none is stored. A stored value below start is raised to start.
func NewEpochClock(db storage.DB, start uint64) (*EpochClock, error) {
	c := &EpochClock{db: db}

	data, err := db.Get(keyEpoch)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if err := c.store(start); err != nil {
			return nil, err
		}
		return c, nil
	case err != nil:
		return nil, fmt.Errorf("epoch load: %w", err)
	}
	if len(data) != 8 {
		return nil, fmt.Errorf("epoch load: corrupt value (%d bytes)", len(data))
	}
	stored := binary.BigEndian.Uint64(data)
	if stored < start {
		if err := c.store(start); err != nil {
			return nil, err
		}
		return c, nil
	}
	c.current.Store(stored)
	return c, nil
}

// Current returns the current epoch.
func (c *EpochClock) Current() uint64 {
	return c.current.Load()
}

// Advance moves the clock forward by one epoch and returns the new value.
func (c *EpochClock) Advance() (uint64, error) {
	cur := c.Current()
	if cur == math.MaxUint64 {
		return cur, fmt.Errorf("epoch counter exhausted")
	}
	next := cur + 1
	if err := c.store(next); err != nil {
		return cur, err
	}
	return next, nil
}

// AdvanceTo moves the clock to epoch. Moving backwards fails with
// ErrEpochRegression; moving to the current value is a no-op.
func (c *EpochClock) AdvanceTo(epoch uint64) error {
	cur := c.Current()
	if epoch < cur {
		return fmt.Errorf("%w: %d < %d", ErrEpochRegression, epoch, cur)
	}
	if epoch == cur {
		return nil
	}
	return c.store(epoch)
}

func (c *EpochClock) store(epoch uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], epoch)
	if err := c.db.Put(keyEpoch, buf[:]); err != nil {
		return fmt.Errorf("epoch store: %w", err)
	}
	c.current.Store(epoch)
	return nil
}
