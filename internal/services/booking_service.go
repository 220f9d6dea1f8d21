package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"railticket/internal/clock"
	"railticket/internal/domain"
	"railticket/internal/domain/models"
	"railticket/internal/events"
	"railticket/internal/lock"
	"railticket/internal/route"
	"railticket/internal/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultLockWait bounds how long a create waits for a seat another request is booking.
const DefaultLockWait = 3 * time.Second

type BookingService struct {
	Stations  StationReader
	Trips     TripStore
	Bookings  BookingStore
	Locker    lock.SeatLocker
	Clock     clock.Clock
	Observer  route.FallbackObserver
	Publisher Publisher
	Metrics   Metrics

	PendingHold time.Duration
	LockWait    time.Duration
}

type CreateBookingInput struct {
	UserID         string
	TripID         uuid.UUID
	FromStationID  uuid.UUID
	ToStationID    uuid.UUID
	Seats          []int
	PassengerName  string
	PassengerPhone string
}

func (s BookingService) availability() SeatAvailability {
	return SeatAvailability{Bookings: s.Bookings, Clock: s.Clock, PendingHold: s.PendingHold}
}

func (s BookingService) publisher() Publisher {
	if s.Publisher != nil {
		return s.Publisher
	}
	return events.Nop{}
}

func (s BookingService) metrics() Metrics {
	if s.Metrics != nil {
		return s.Metrics
	}
	return nopMetrics{}
}

func (s BookingService) locker() lock.SeatLocker {
	if s.Locker != nil {
		return s.Locker
	}
	return defaultLocker
}

var defaultLocker = lock.NewLocal()

func (s BookingService) calculator(ctx context.Context) (route.Calculator, error) {
	all, err := s.Stations.ListStations(ctx)
	if err != nil {
		return route.Calculator{}, fmt.Errorf("load stations: %w", err)
	}
	return route.Calculator{Stations: all, Observer: s.Observer}, nil
}

// validateSegment resolves the pair and checks it can be sold on the trip.
func validateSegment(trip models.Trip, all []models.Station, fromID, toID uuid.UUID) (models.Station, models.Station, error) {
	from, to, err := resolvePair(all, fromID, toID)
	if err != nil {
		return from, to, err
	}
	if from.Order == to.Order {
		return from, to, domain.InvalidSegmentError{Reason: domain.ReasonSameStation, Msg: "zero-length segment"}
	}
	if (from.Order < to.Order) != trip.Forward() {
		return from, to, domain.InvalidSegmentError{Reason: domain.ReasonWrongDirection, Msg: "segment runs against the trip direction"}
	}
	if !trip.Range().Contains(models.SegmentBetween(from, to)) {
		return from, to, domain.InvalidSegmentError{Reason: domain.ReasonOutsideRoute, Msg: "segment is not on the trip route"}
	}
	if trip.Skips(from.ID) || trip.Skips(to.ID) {
		return from, to, domain.InvalidSegmentError{Reason: domain.ReasonSkippedStation, Msg: "the trip does not stop at the requested station"}
	}
	return from, to, nil
}

// Quote prices and time-stamps a segment and lists its taken seats.
func (s BookingService) Quote(ctx context.Context, tripID, fromID, toID uuid.UUID) (models.SegmentQuote, error) {
	trip, err := s.Trips.GetTrip(ctx, tripID)
	if err != nil {
		return models.SegmentQuote{}, err
	}
	calc, err := s.calculator(ctx)
	if err != nil {
		return models.SegmentQuote{}, err
	}
	from, to, err := validateSegment(trip, calc.Stations, fromID, toID)
	if err != nil {
		return models.SegmentQuote{}, err
	}
	taken, err := s.availability().TakenSeats(ctx, trip.ID, from, to)
	if err != nil {
		return models.SegmentQuote{}, err
	}
	return models.SegmentQuote{
		TripID:      trip.ID,
		FromStation: from,
		ToStation:   to,
		Departure:   calc.SegmentDeparture(trip, from),
		Arrival:     calc.SegmentArrival(trip, to),
		Price:       calc.SegmentPrice(trip, from, to),
		DistanceKm:  calc.PathDistance(from, to),
		TotalSeats:  trip.Train.TotalSeats,
		TakenSeats:  taken,
	}, nil
}

// TakenSeats lists seats unavailable on the segment.
func (s BookingService) TakenSeats(ctx context.Context, tripID, fromID, toID uuid.UUID) ([]int, error) {
	trip, err := s.Trips.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	all, err := s.Stations.ListStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stations: %w", err)
	}
	from, to, err := validateSegment(trip, all, fromID, toID)
	if err != nil {
		return nil, err
	}
	return s.availability().TakenSeats(ctx, trip.ID, from, to)
}

// Create reserves the seats on the segment as PendingPayment bookings, all or none.
func (s BookingService) Create(ctx context.Context, in CreateBookingInput) ([]models.Booking, error) {
	out, err := s.create(ctx, in)
	switch {
	case err == nil:
		s.metrics().BookingEvent("create", "ok")
	case domain.IsSeatConflict(err):
		s.metrics().BookingEvent("create", "conflict")
	case isInvalidSegment(err):
		s.metrics().BookingEvent("create", "invalid_segment")
	case domain.IsInternal(err):
		s.metrics().BookingEvent("create", "unavailable")
	default:
		s.metrics().BookingEvent("create", "error")
	}
	return out, err
}

func (s BookingService) create(ctx context.Context, in CreateBookingInput) ([]models.Booking, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return nil, domain.ValidationError{Field: "user_id", Msg: "required"}
	}

	trip, err := s.Trips.GetTrip(ctx, in.TripID)
	if err != nil {
		return nil, err
	}
	if trip.Status == models.TripCancelled || trip.Status == models.TripCompleted {
		return nil, domain.ConflictError{Resource: "trip", Msg: fmt.Sprintf("trip is %s", trip.Status)}
	}

	calc, err := s.calculator(ctx)
	if err != nil {
		return nil, err
	}
	from, to, err := validateSegment(trip, calc.Stations, in.FromStationID, in.ToStationID)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	if calc.SegmentDeparture(trip, from).Before(now) {
		return nil, domain.ConflictError{Resource: "trip", Msg: "the segment has already departed"}
	}

	seats, err := checkSeats(in.Seats, trip.Train.TotalSeats)
	if err != nil {
		return nil, err
	}

	segPrice := calc.SegmentPrice(trip, from, to)
	seg := models.SegmentBetween(from, to)
	bookings := make([]models.Booking, 0, len(seats))
	seatSet := make(map[int]struct{}, len(seats))
	for _, seat := range seats {
		seatSet[seat] = struct{}{}
		bookings = append(bookings, models.Booking{
			ID:             uuid.New(),
			UserID:         userID,
			TripID:         trip.ID,
			FromStation:    from,
			ToStation:      to,
			SeatNumber:     seat,
			Price:          utils.ComputeSeatFare(segPrice, seat),
			Status:         models.BookingPendingPayment,
			BookedAt:       now,
			PassengerName:  utils.NormalizeSpace(in.PassengerName),
			PassengerPhone: utils.TrimOrEmpty(in.PassengerPhone),
		})
	}

	wait := s.LockWait
	if wait <= 0 {
		wait = DefaultLockWait
	}
	lockCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	unlock, err := lock.LockSeats(lockCtx, s.locker(), trip.ID, seats)
	if err != nil {
		var lockErr lock.SeatLockError
		if errors.As(err, &lockErr) && errors.Is(err, lock.ErrTimeout) {
			return nil, domain.InternalError{Msg: fmt.Sprintf("seat %d is being booked by another request, try again", lockErr.Seat), Err: err}
		}
		return nil, domain.InternalError{Msg: "seat lock unavailable", Err: err}
	}
	defer unlock()

	hold := s.availability().hold()
	guard := func(live []models.Booking) ([]uuid.UUID, error) {
		expire := staleHolds(live, seatSet, seg, now, hold)
		expired := make(map[uuid.UUID]struct{}, len(expire))
		for _, id := range expire {
			expired[id] = struct{}{}
		}
		remaining := make([]models.Booking, 0, len(live))
		for _, b := range live {
			if _, ok := expired[b.ID]; !ok {
				remaining = append(remaining, b)
			}
		}

		for _, b := range remaining {
			if b.UserID == userID && b.Status == models.BookingPendingPayment && freshHold(b, now, hold) {
				return nil, domain.ConflictError{Resource: "booking", Msg: "a booking on this trip is already awaiting payment"}
			}
		}
		for _, seat := range seats {
			if seatTaken(remaining, seat, seg) {
				return nil, domain.SeatConflictError{TripID: trip.ID.String(), Seat: seat}
			}
		}
		if len(expire) > 0 {
			log.Info().Str("trip_id", trip.ID.String()).Int("count", len(expire)).Msg("expired stale payment holds")
		}
		return expire, nil
	}

	if err := s.Bookings.Create(ctx, bookings, guard); err != nil {
		return nil, err
	}

	for _, b := range bookings {
		s.publish(ctx, events.SubjectBookingCreated, events.NewBookingEvent(b, now))
	}
	return bookings, nil
}

// checkSeats rejects empty, duplicate and out-of-range seat numbers.
func checkSeats(seats []int, totalSeats int) ([]int, error) {
	if len(seats) == 0 {
		return nil, domain.ValidationError{Field: "seats", Msg: "at least one seat is required"}
	}
	seen := make(map[int]struct{}, len(seats))
	out := make([]int, 0, len(seats))
	for _, seat := range seats {
		if seat < 1 || (totalSeats > 0 && seat > totalSeats) {
			return nil, domain.ValidationError{Field: "seats", Msg: fmt.Sprintf("seat %d does not exist on this train", seat)}
		}
		if _, ok := seen[seat]; ok {
			return nil, domain.ValidationError{Field: "seats", Msg: fmt.Sprintf("seat %d requested twice", seat)}
		}
		seen[seat] = struct{}{}
		out = append(out, seat)
	}
	return out, nil
}

// Confirm marks the user's PendingPayment bookings as paid. A hold that was expired and
// given to someone else in the meantime is a seat conflict.
func (s BookingService) Confirm(ctx context.Context, userID string, ids []uuid.UUID) ([]models.Booking, error) {
	if len(ids) == 0 {
		return nil, domain.ValidationError{Field: "booking_ids", Msg: "at least one booking is required"}
	}
	out := make([]models.Booking, 0, len(ids))
	for _, id := range ids {
		b, err := s.owned(ctx, userID, id)
		if err != nil {
			return out, err
		}
		if b.Status == models.BookingConfirmed {
			out = append(out, b)
			continue
		}
		changed, err := s.Bookings.TransitionStatus(ctx, id, models.BookingConfirmed, models.BookingPendingPayment)
		if err != nil {
			return out, err
		}
		if !changed {
			s.metrics().BookingEvent("confirm", "conflict")
			return out, domain.SeatConflictError{TripID: b.TripID.String(), Seat: b.SeatNumber, Err: fmt.Errorf("booking %s is %s", id, b.Status)}
		}
		b.Status = models.BookingConfirmed
		out = append(out, b)
		s.metrics().BookingEvent("confirm", "ok")
		s.publish(ctx, events.SubjectBookingConfirmed, events.NewBookingEvent(b, s.Clock.Now()))
	}
	return out, nil
}

// RefundQuote says what cancelling the booking now would refund.
func (s BookingService) RefundQuote(ctx context.Context, userID string, id uuid.UUID) (models.RefundQuote, error) {
	b, err := s.owned(ctx, userID, id)
	if err != nil {
		return models.RefundQuote{}, err
	}
	return s.refundQuote(ctx, b)
}

func (s BookingService) refundQuote(ctx context.Context, b models.Booking) (models.RefundQuote, error) {
	switch b.Status {
	case models.BookingCancelled:
		return models.RefundQuote{}, domain.ConflictError{Resource: "booking", Msg: "booking is already cancelled"}
	case models.BookingCompleted:
		return models.RefundQuote{}, domain.ConflictError{Resource: "booking", Msg: "booking is completed"}
	}

	trip, err := s.Trips.GetTrip(ctx, b.TripID)
	if err != nil {
		return models.RefundQuote{}, err
	}
	calc, err := s.calculator(ctx)
	if err != nil {
		return models.RefundQuote{}, err
	}
	now := s.Clock.Now()
	departure := calc.SegmentDeparture(trip, b.FromStation)
	if !now.Before(departure) {
		return models.RefundQuote{}, domain.ConflictError{Resource: "booking", Msg: "the trip has already departed"}
	}

	q := models.RefundQuote{BookingID: b.ID}
	if b.Status != models.BookingConfirmed {
		// Nothing was paid yet.
		return q, nil
	}
	q.DeductionPercent = utils.RefundDeductionPercent(departure.Sub(now).Hours())
	q.Refund = utils.ComputeRefund(b.Price, q.DeductionPercent)
	return q, nil
}

// Cancel cancels the booking, releasing the seat, and returns the refund.
func (s BookingService) Cancel(ctx context.Context, userID string, id uuid.UUID) (models.RefundQuote, error) {
	b, err := s.owned(ctx, userID, id)
	if err != nil {
		return models.RefundQuote{}, err
	}
	q, err := s.refundQuote(ctx, b)
	if err != nil {
		return models.RefundQuote{}, err
	}
	changed, err := s.Bookings.TransitionStatus(ctx, id, models.BookingCancelled,
		models.BookingPending, models.BookingPendingPayment, models.BookingConfirmed)
	if err != nil {
		return models.RefundQuote{}, err
	}
	if !changed {
		return models.RefundQuote{}, domain.ConflictError{Resource: "booking", Msg: "booking status changed, try again"}
	}

	s.metrics().BookingEvent("cancel", "ok")
	b.Status = models.BookingCancelled
	ev := events.NewBookingEvent(b, s.Clock.Now())
	ev.Refund = &q.Refund
	s.publish(ctx, events.SubjectBookingCancelled, ev)
	return q, nil
}

// Delete removes a cancelled or unpaid booking.
func (s BookingService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	b, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if !b.Deletable() {
		return domain.ConflictError{Resource: "booking", Msg: fmt.Sprintf("a %s booking cannot be deleted", b.Status)}
	}
	deleted, err := s.Bookings.Delete(ctx, id, models.BookingCancelled, models.BookingPendingPayment)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ConflictError{Resource: "booking", Msg: "booking status changed, try again"}
	}
	s.metrics().BookingEvent("delete", "ok")
	s.publish(ctx, events.SubjectBookingDeleted, events.NewBookingEvent(b, s.Clock.Now()))
	return nil
}

func (s BookingService) Get(ctx context.Context, userID string, id uuid.UUID) (models.Booking, error) {
	return s.owned(ctx, userID, id)
}

func (s BookingService) ListMine(ctx context.Context, userID string) ([]models.Booking, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ValidationError{Field: "user_id", Msg: "required"}
	}
	return s.Bookings.ListByUser(ctx, userID)
}

// owned loads the booking and hides it from anyone but its owner.
func (s BookingService) owned(ctx context.Context, userID string, id uuid.UUID) (models.Booking, error) {
	b, err := s.Bookings.GetBooking(ctx, id)
	if err != nil {
		return models.Booking{}, err
	}
	if b.UserID != userID {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	return b, nil
}

func (s BookingService) publish(ctx context.Context, subject string, payload any) {
	if err := s.publisher().Publish(ctx, subject, payload); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("publish booking event")
	}
}

func isInvalidSegment(err error) bool {
	_, ok := domain.AsInvalidSegment(err)
	return ok
}
