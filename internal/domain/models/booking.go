package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingPending        BookingStatus = "Pending"
	BookingPendingPayment BookingStatus = "PendingPayment"
	BookingConfirmed      BookingStatus = "Confirmed"
	BookingCancelled      BookingStatus = "Cancelled"
	BookingCompleted      BookingStatus = "Completed"
)

func ParseBookingStatus(s string) (BookingStatus, error) {
	for _, st := range []BookingStatus{BookingPending, BookingPendingPayment, BookingConfirmed, BookingCancelled, BookingCompleted} {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown booking status %q", s)
}

// Booking is one seat sold on a segment of a trip.
type Booking struct {
	ID             uuid.UUID     `json:"id"`
	UserID         string        `json:"user_id"`
	TripID         uuid.UUID     `json:"trip_id"`
	FromStation    Station       `json:"from_station"`
	ToStation      Station       `json:"to_station"`
	SeatNumber     int           `json:"seat_number"`
	Price          Money         `json:"price"`
	Status         BookingStatus `json:"status"`
	BookedAt       time.Time     `json:"booked_at"`
	PassengerName  string        `json:"passenger_name,omitempty"`
	PassengerPhone string        `json:"passenger_phone,omitempty"`
}

func (b Booking) Segment() Segment {
	return SegmentBetween(b.FromStation, b.ToStation)
}

// Deletable reports whether removing the booking cannot orphan a confirmed sale.
func (b Booking) Deletable() bool {
	return b.Status == BookingCancelled || b.Status == BookingPendingPayment
}

// SegmentQuote is the priced, time-stamped view of a requested segment of a trip.
type SegmentQuote struct {
	TripID      uuid.UUID `json:"trip_id"`
	FromStation Station   `json:"from_station"`
	ToStation   Station   `json:"to_station"`
	Departure   time.Time `json:"departure"`
	Arrival     time.Time `json:"arrival"`
	Price       Money     `json:"price"`
	DistanceKm  float64   `json:"distance_km"`
	TotalSeats  int       `json:"total_seats"`
	TakenSeats  []int     `json:"taken_seats"`
}

// RefundQuote is what the owner gets back when cancelling.
type RefundQuote struct {
	BookingID        uuid.UUID `json:"booking_id"`
	DeductionPercent int       `json:"deduction_percent"`
	Refund           Money     `json:"refund"`
}
