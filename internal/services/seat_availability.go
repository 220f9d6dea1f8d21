package services

import (
	"context"
	"fmt"
	"time"

	"railticket/internal/clock"
	"railticket/internal/domain/models"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

// DefaultPendingHold is how long an unpaid PendingPayment booking keeps its seat.
const DefaultPendingHold = time.Minute

// SeatAvailability answers which seats are free on a segment of a trip.
type SeatAvailability struct {
	Bookings    BookingStore
	Clock       clock.Clock
	PendingHold time.Duration
}

func (a SeatAvailability) hold() time.Duration {
	if a.PendingHold > 0 {
		return a.PendingHold
	}
	return DefaultPendingHold
}

// IsSeatTaken is true when any non-cancelled booking of the seat overlaps from-to.
func (a SeatAvailability) IsSeatTaken(ctx context.Context, tripID uuid.UUID, seat int, from, to models.Station) (bool, error) {
	bookings, err := a.Bookings.ListByTrip(ctx, tripID)
	if err != nil {
		return false, fmt.Errorf("load bookings: %w", err)
	}
	return seatTaken(bookings, seat, models.SegmentBetween(from, to)), nil
}

// TakenSeats lists, ascending, the seats unavailable on from-to. Unpaid holds older than
// the pending hold window are treated as abandoned.
func (a SeatAvailability) TakenSeats(ctx context.Context, tripID uuid.UUID, from, to models.Station) ([]int, error) {
	bookings, err := a.Bookings.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	return takenSeats(bookings, models.SegmentBetween(from, to), a.Clock.Now(), a.hold()), nil
}

func seatTaken(bookings []models.Booking, seat int, seg models.Segment) bool {
	for _, b := range bookings {
		if b.SeatNumber == seat && b.Status != models.BookingCancelled && b.Segment().Overlaps(seg) {
			return true
		}
	}
	return false
}

func takenSeats(bookings []models.Booking, seg models.Segment, now time.Time, hold time.Duration) []int {
	seen := map[int]struct{}{}
	out := []int{}
	for _, b := range bookings {
		if !blocks(b, now, hold) || !b.Segment().Overlaps(seg) {
			continue
		}
		if _, ok := seen[b.SeatNumber]; ok {
			continue
		}
		seen[b.SeatNumber] = struct{}{}
		out = append(out, b.SeatNumber)
	}
	slices.Sort(out)
	return out
}

// blocks reports whether the booking still holds its seat at now.
func blocks(b models.Booking, now time.Time, hold time.Duration) bool {
	switch b.Status {
	case models.BookingCancelled:
		return false
	case models.BookingPendingPayment:
		return freshHold(b, now, hold)
	default:
		return true
	}
}

func freshHold(b models.Booking, now time.Time, hold time.Duration) bool {
	return !b.BookedAt.Before(now.Add(-hold))
}

// staleHolds returns the abandoned PendingPayment bookings on the given seats that
// overlap seg.
func staleHolds(bookings []models.Booking, seats map[int]struct{}, seg models.Segment, now time.Time, hold time.Duration) []uuid.UUID {
	out := []uuid.UUID{}
	for _, b := range bookings {
		if b.Status != models.BookingPendingPayment || freshHold(b, now, hold) {
			continue
		}
		if _, ok := seats[b.SeatNumber]; !ok || !b.Segment().Overlaps(seg) {
			continue
		}
		out = append(out, b.ID)
	}
	return out
}
