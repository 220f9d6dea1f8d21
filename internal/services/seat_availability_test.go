package services

import (
	"context"
	"testing"
	"time"

	"railticket/internal/domain/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func st(order int) models.Station {
	return models.Station{ID: uuid.New(), Order: order}
}

func booked(seat, from, to int, status models.BookingStatus, at time.Time) models.Booking {
	return models.Booking{ID: uuid.New(), SeatNumber: seat, FromStation: st(from), ToStation: st(to), Status: status, BookedAt: at}
}

func TestSeatTakenOverlap(t *testing.T) {
	now := time.Date(2026, 5, 10, 6, 0, 0, 0, platform)
	existing := []models.Booking{booked(5, 1, 3, models.BookingConfirmed, now)}

	assert.True(t, seatTaken(existing, 5, models.NewSegment(2, 4)), "B->D overlaps A->C")
	assert.False(t, seatTaken(existing, 5, models.NewSegment(3, 4)), "C->D only touches A->C")
	assert.False(t, seatTaken(existing, 6, models.NewSegment(1, 4)), "other seat")

	// Direction of either booking does not matter.
	backward := []models.Booking{booked(5, 3, 1, models.BookingConfirmed, now)}
	assert.True(t, seatTaken(backward, 5, models.NewSegment(4, 2)))
	assert.False(t, seatTaken(backward, 5, models.NewSegment(4, 3)))
	assert.False(t, seatTaken(backward, 5, models.NewSegment(1, 0)))

	cancelled := []models.Booking{booked(5, 1, 4, models.BookingCancelled, now)}
	assert.False(t, seatTaken(cancelled, 5, models.NewSegment(1, 4)))

	stale := []models.Booking{booked(5, 1, 4, models.BookingPendingPayment, now.Add(-time.Hour))}
	assert.True(t, seatTaken(stale, 5, models.NewSegment(2, 3)), "any non-cancelled booking blocks")
}

func TestTakenSeatsPendingFreshness(t *testing.T) {
	now := time.Date(2026, 5, 10, 6, 0, 0, 0, platform)
	bookings := []models.Booking{
		booked(1, 1, 4, models.BookingConfirmed, now.Add(-72*time.Hour)),
		booked(2, 1, 2, models.BookingPendingPayment, now.Add(-30*time.Second)),
		booked(3, 1, 2, models.BookingPendingPayment, now.Add(-2*time.Minute)),
		booked(4, 1, 2, models.BookingCancelled, now),
		booked(5, 3, 4, models.BookingConfirmed, now),
		booked(6, 1, 2, models.BookingPendingPayment, now.Add(-time.Minute)),
		booked(1, 2, 3, models.BookingPending, now),
	}

	assert.Equal(t, []int{1, 2, 6}, takenSeats(bookings, models.NewSegment(1, 3), now, time.Minute))
	assert.Equal(t, []int{1, 5}, takenSeats(bookings, models.NewSegment(3, 4), now, time.Minute))
}

func TestStaleHolds(t *testing.T) {
	now := time.Date(2026, 5, 10, 6, 0, 0, 0, platform)
	old := booked(3, 1, 3, models.BookingPendingPayment, now.Add(-5*time.Minute))
	fresh := booked(3, 3, 4, models.BookingPendingPayment, now)
	elsewhere := booked(3, 3, 4, models.BookingPendingPayment, now.Add(-5*time.Minute))
	otherSeat := booked(4, 1, 3, models.BookingPendingPayment, now.Add(-5*time.Minute))

	got := staleHolds([]models.Booking{old, fresh, elsewhere, otherSeat}, map[int]struct{}{3: {}}, models.NewSegment(1, 2), now, time.Minute)
	assert.Equal(t, []uuid.UUID{old.ID}, got)
}

func TestSeatAvailabilityAgainstStore(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := e.bookingService(nil)

	_, err := svc.Create(ctx, CreateBookingInput{UserID: "u1", TripID: e.forward.ID, FromStationID: e.A.ID, ToStationID: e.C.ID, Seats: []int{5}})
	require.NoError(t, err)

	avail := SeatAvailability{Bookings: e.bookings, Clock: e.clock}
	taken, err := avail.IsSeatTaken(ctx, e.forward.ID, 5, e.B, e.D)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = avail.IsSeatTaken(ctx, e.forward.ID, 5, e.C, e.D)
	require.NoError(t, err)
	assert.False(t, taken)

	seats, err := avail.TakenSeats(ctx, e.forward.ID, e.A, e.B)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, seats)

	e.clock.Advance(2 * time.Minute)
	seats, err = avail.TakenSeats(ctx, e.forward.ID, e.A, e.B)
	require.NoError(t, err)
	assert.Empty(t, seats, "unpaid hold is abandoned after the hold window")
}
