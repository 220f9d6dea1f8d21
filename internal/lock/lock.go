// Package lock serializes booking creation per (trip, seat).
package lock

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

// ErrTimeout is returned when a seat lock could not be taken before the context ended.
var ErrTimeout = errors.New("seat lock wait exceeded")

type SeatLocker interface {
	Lock(ctx context.Context, tripID uuid.UUID, seat int) (unlock func(), err error)
}

// SeatLockError names the seat whose lock could not be taken.
type SeatLockError struct {
	Seat int
	Err  error
}

func (e SeatLockError) Error() string {
	return fmt.Sprintf("lock seat %d: %v", e.Seat, e.Err)
}

func (e SeatLockError) Unwrap() error { return e.Err }

func Key(tripID uuid.UUID, seat int) string {
	return fmt.Sprintf("railticket:lock:seat:%s:%d", tripID, seat)
}

// LockSeats takes the locks of every distinct seat in ascending order so two callers
// holding overlapping seat sets cannot deadlock. On failure nothing stays locked.
func LockSeats(ctx context.Context, l SeatLocker, tripID uuid.UUID, seats []int) (func(), error) {
	ordered := slices.Clone(seats)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	unlocks := make([]func(), 0, len(ordered))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, seat := range ordered {
		unlock, err := l.Lock(ctx, tripID, seat)
		if err != nil {
			release()
			return nil, SeatLockError{Seat: seat, Err: err}
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}
