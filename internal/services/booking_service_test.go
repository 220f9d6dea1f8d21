package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"railticket/internal/domain"
	"railticket/internal/domain/models"
	"railticket/internal/events"
	"railticket/internal/lock"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *countingMetrics) BookingEvent(action, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = map[string]int{}
	}
	m.counts[action+"/"+outcome]++
}

// noLock lets every caller through so only the storage constraint protects the seat.
type noLock struct{}

func (noLock) Lock(context.Context, uuid.UUID, int) (func(), error) { return func() {}, nil }

// busyLock behaves as if another request holds every seat past the wait.
type busyLock struct{}

func (busyLock) Lock(context.Context, uuid.UUID, int) (func(), error) { return nil, lock.ErrTimeout }

func (e *env) book(svc BookingService, user string, from, to models.Station, seats ...int) ([]models.Booking, error) {
	return svc.Create(context.Background(), CreateBookingInput{
		UserID:        user,
		TripID:        e.forward.ID,
		FromStationID: from.ID,
		ToStationID:   to.ID,
		Seats:         seats,
		PassengerName: "  Sara   Ali ",
	})
}

func TestCreatePricesBySegmentAndSeatClass(t *testing.T) {
	e := newEnv(t)
	svc := e.bookingService(nil)

	out, err := e.book(svc, "u1", e.B, e.D, 5, 25, 45)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, "133.334", out[0].Price.String())
	assert.Equal(t, "100.000", out[1].Price.String())
	assert.Equal(t, "66.667", out[2].Price.String())
	for _, b := range out {
		assert.Equal(t, models.BookingPendingPayment, b.Status)
		assert.Equal(t, "Sara Ali", b.PassengerName)
	}
	assert.Equal(t, 3, e.publisher.count(events.SubjectBookingCreated))
}

func TestCreateOverlapScenario(t *testing.T) {
	e := newEnv(t)
	svc := e.bookingService(nil)
	ctx := context.Background()

	first, err := e.book(svc, "u1", e.A, e.C, 5)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, "u1", []uuid.UUID{first[0].ID})
	require.NoError(t, err)

	_, err = e.book(svc, "u2", e.B, e.D, 5)
	require.Error(t, err)
	assert.True(t, domain.IsSeatConflict(err))

	_, err = e.book(svc, "u3", e.C, e.D, 5)
	require.NoError(t, err, "touching at C is not an overlap")
}

func TestCreateRejectsInvalidSegments(t *testing.T) {
	e := newEnv(t)
	skipping := e.addTrip(t, e.A, e.D, time.Date(2026, 5, 10, 18, 0, 0, 0, platform), 3*time.Hour, func(tr *models.Trip) {
		tr.SkippedStationIDs = models.NewStationSet(e.C.ID)
	})
	short := e.addTrip(t, e.B, e.C, time.Date(2026, 5, 10, 20, 0, 0, 0, platform), time.Hour, nil)
	svc := e.bookingService(nil)

	cases := []struct {
		name     string
		trip     uuid.UUID
		from, to uuid.UUID
		reason   domain.SegmentReason
	}{
		{"unknown station", e.forward.ID, uuid.New(), e.D.ID, domain.ReasonStationNotFound},
		{"same station", e.forward.ID, e.B.ID, e.B.ID, domain.ReasonSameStation},
		{"against direction", e.forward.ID, e.D.ID, e.B.ID, domain.ReasonWrongDirection},
		{"outside route", short.ID, e.A.ID, e.C.ID, domain.ReasonOutsideRoute},
		{"skipped station", skipping.ID, e.C.ID, e.D.ID, domain.ReasonSkippedStation},
	}
	for _, tc := range cases {
		_, err := svc.Create(context.Background(), CreateBookingInput{UserID: "u1", TripID: tc.trip, FromStationID: tc.from, ToStationID: tc.to, Seats: []int{1}})
		inv, ok := domain.AsInvalidSegment(err)
		require.True(t, ok, "%s: %v", tc.name, err)
		assert.Equal(t, tc.reason, inv.Reason, tc.name)
	}

	// Riding through a skipped station is fine.
	_, err := svc.Create(context.Background(), CreateBookingInput{UserID: "u1", TripID: skipping.ID, FromStationID: e.B.ID, ToStationID: e.D.ID, Seats: []int{1}})
	require.NoError(t, err)

	bookings, err := e.bookings.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, bookings, 1, "rejected requests persist nothing")
}

func TestCreateValidatesSeatsAndTrip(t *testing.T) {
	e := newEnv(t)
	svc := e.bookingService(nil)
	ctx := context.Background()

	for _, seats := range [][]int{nil, {0}, {61}, {3, 3}} {
		_, err := e.book(svc, "u1", e.A, e.B, seats...)
		assert.True(t, domain.IsValidation(err), "seats %v: %v", seats, err)
	}

	_, err := e.book(svc, "", e.A, e.B, 1)
	assert.True(t, domain.IsValidation(err))

	_, err = svc.Create(ctx, CreateBookingInput{UserID: "u1", TripID: uuid.New(), FromStationID: e.A.ID, ToStationID: e.B.ID, Seats: []int{1}})
	assert.True(t, domain.IsNotFound(err))

	e.clock.Advance(4*time.Hour + 30*time.Minute) // 10:30, past B at 10:00
	_, err = e.book(svc, "u1", e.B, e.D, 1)
	assert.True(t, domain.IsConflict(err))
	_, err = e.book(svc, "u1", e.C, e.D, 1)
	require.NoError(t, err, "C is reached at 11:00")

	_, err = e.tripService().SetStatus(ctx, e.forward.ID, models.TripCancelled, nil)
	require.NoError(t, err)
	_, err = e.book(svc, "u2", e.C, e.D, 2)
	assert.True(t, domain.IsConflict(err))
}

func TestCreateExpiresStaleHolds(t *testing.T) {
	e := newEnv(t)
	svc := e.bookingService(nil)
	ctx := context.Background()

	hold, err := e.book(svc, "u1", e.A, e.D, 8)
	require.NoError(t, err)

	_, err = e.book(svc, "u2", e.B, e.C, 8)
	assert.True(t, domain.IsSeatConflict(err), "fresh hold blocks")

	e.clock.Advance(90 * time.Second)
	taken, err := e.book(svc, "u2", e.B, e.C, 8)
	require.NoError(t, err)
	require.Len(t, taken, 1)

	old, err := e.bookings.GetBooking(ctx, hold[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, old.Status)

	_, err = svc.Confirm(ctx, "u1", []uuid.UUID{hold[0].ID})
	assert.True(t, domain.IsSeatConflict(err), "expired hold cannot be confirmed")
}

func TestCreateOnePendingPerUserAndTrip(t *testing.T) {
	e := newEnv(t)
	svc := e.bookingService(nil)
	ctx := context.Background()

	first, err := e.book(svc, "u1", e.A, e.B, 1)
	require.NoError(t, err)

	_, err = e.book(svc, "u1", e.C, e.D, 2)
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
	assert.False(t, domain.IsSeatConflict(err))

	_, err = svc.Confirm(ctx, "u1", []uuid.UUID{first[0].ID})
	require.NoError(t, err)
	_, err = e.book(svc, "u1", e.C, e.D, 2)
	require.NoError(t, err)
}

func TestConcurrentDoubleBooking(t *testing.T) {
	for name, locker := range map[string]lock.SeatLocker{"keyed lock": lock.NewLocal(), "storage only": noLock{}} {
		t.Run(name, func(t *testing.T) {
			e := newEnv(t)
			metrics := &countingMetrics{}
			svc := e.bookingService(locker)
			svc.Metrics = metrics

			const attempts = 12
			var wg sync.WaitGroup
			errs := make([]error, attempts)
			for i := 0; i < attempts; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					from, to := e.A, e.C
					if i%2 == 1 {
						from, to = e.B, e.D
					}
					_, errs[i] = e.book(svc, fmt.Sprintf("user-%d", i), from, to, 14)
				}(i)
			}
			wg.Wait()

			ok := 0
			for _, err := range errs {
				if err == nil {
					ok++
					continue
				}
				assert.True(t, domain.IsSeatConflict(err), "unexpected error: %v", err)
			}
			assert.Equal(t, 1, ok)
			assert.Equal(t, 1, metrics.counts["create/ok"])
			assert.Equal(t, attempts-1, metrics.counts["create/conflict"])

			live, err := e.bookings.ListByTrip(context.Background(), e.forward.ID)
			require.NoError(t, err)
			assert.Len(t, live, 1)
		})
	}
}

func TestCreateLockTimeoutIsRetryable(t *testing.T) {
	e := newEnv(t)
	metrics := &countingMetrics{}
	svc := e.bookingService(busyLock{})
	svc.Metrics = metrics

	_, err := e.book(svc, "u1", e.A, e.C, 14)
	require.Error(t, err)
	assert.True(t, domain.IsInternal(err))
	assert.False(t, domain.IsSeatConflict(err), "a busy lock says nothing about the seat")
	assert.ErrorIs(t, err, lock.ErrTimeout)
	assert.Contains(t, err.Error(), "seat 14")
	assert.Equal(t, 1, metrics.counts["create/unavailable"])

	live, err := e.bookings.ListByTrip(context.Background(), e.forward.ID)
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestRefundAndCancel(t *testing.T) {
	e := newEnv(t)
	svc := e.bookingService(nil)
	ctx := context.Background()

	// Departs 09:00 tomorrow, more than a day ahead.
	later := e.addTrip(t, e.A, e.D, time.Date(2026, 5, 11, 9, 0, 0, 0, platform), 3*time.Hour, nil)
	made, err := svc.Create(ctx, CreateBookingInput{UserID: "u1", TripID: later.ID, FromStationID: e.A.ID, ToStationID: e.D.ID, Seats: []int{50}})
	require.NoError(t, err)
	id := made[0].ID

	q, err := svc.RefundQuote(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, 0, q.DeductionPercent)
	assert.Equal(t, models.Money(0), q.Refund, "nothing paid yet")

	_, err = svc.Confirm(ctx, "u1", []uuid.UUID{id})
	require.NoError(t, err)

	q, err = svc.RefundQuote(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, 10, q.DeductionPercent)
	assert.Equal(t, "90.000", q.Refund.String())

	e.clock.Advance(3 * time.Hour) // exactly 24h to go
	q, err = svc.RefundQuote(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, 25, q.DeductionPercent)

	e.clock.Advance(17 * time.Hour) // 02:00 on the day, 7h to go
	q, err = svc.RefundQuote(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, 25, q.DeductionPercent)
	assert.Equal(t, "75.000", q.Refund.String())

	_, err = svc.Cancel(ctx, "u2", id)
	assert.True(t, domain.IsNotFound(err), "only the owner may cancel")

	q, err = svc.Cancel(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, "75.000", q.Refund.String())
	assert.Equal(t, 1, e.publisher.count(events.SubjectBookingCancelled))

	_, err = svc.Cancel(ctx, "u1", id)
	assert.True(t, domain.IsConflict(err))

	// The seat is free again.
	_, err = svc.Create(ctx, CreateBookingInput{UserID: "u2", TripID: later.ID, FromStationID: e.A.ID, ToStationID: e.D.ID, Seats: []int{50}})
	require.NoError(t, err)

	e.clock.Advance(8 * time.Hour)
	other, err := e.bookings.ListByUser(ctx, "u2")
	require.NoError(t, err)
	_, err = svc.RefundQuote(ctx, "u2", other[0].ID)
	assert.True(t, domain.IsConflict(err), "no refund after departure")
}

func TestDelete(t *testing.T) {
	e := newEnv(t)
	svc := e.bookingService(nil)
	ctx := context.Background()

	made, err := e.book(svc, "u1", e.A, e.B, 3)
	require.NoError(t, err)
	id := made[0].ID

	_, err = svc.Confirm(ctx, "u1", []uuid.UUID{id})
	require.NoError(t, err)
	err = svc.Delete(ctx, "u1", id)
	assert.True(t, domain.IsConflict(err), "confirmed bookings cannot be deleted")

	_, err = svc.Cancel(ctx, "u1", id)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "u1", id))

	_, err = svc.Get(ctx, "u1", id)
	assert.True(t, domain.IsNotFound(err))
	assert.Equal(t, 1, e.publisher.count(events.SubjectBookingDeleted))
}

func TestQuoteAndListMine(t *testing.T) {
	e := newEnv(t)
	svc := e.bookingService(nil)
	ctx := context.Background()

	_, err := e.book(svc, "u1", e.A, e.C, 5)
	require.NoError(t, err)

	q, err := svc.Quote(ctx, e.forward.ID, e.B.ID, e.D.ID)
	require.NoError(t, err)
	assert.Equal(t, "66.667", q.Price.String())
	assert.True(t, q.Departure.Equal(time.Date(2026, 5, 10, 10, 0, 0, 0, platform)))
	assert.True(t, q.Arrival.Equal(e.forward.ArrivalTime))
	assert.InDelta(t, 20.0, q.DistanceKm, 1e-6)
	assert.Equal(t, 60, q.TotalSeats)
	assert.Equal(t, []int{5}, q.TakenSeats)

	seats, err := svc.TakenSeats(ctx, e.forward.ID, e.C.ID, e.D.ID)
	require.NoError(t, err)
	assert.Empty(t, seats)

	mine, err := svc.ListMine(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = svc.ListMine(ctx, " ")
	assert.True(t, domain.IsValidation(err))
}
