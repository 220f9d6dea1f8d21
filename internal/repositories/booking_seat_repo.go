package repositories

import (
	"context"
	"fmt"

	intdb "railticket/internal/db"
	"railticket/internal/domain"
	"railticket/internal/domain/models"

	"github.com/google/uuid"
)

// claimLegs inserts one row per unit leg the booking covers. The (trip, seat, leg) primary
// key rejects a second live booking overlapping the same seat.
func claimLegs(ctx context.Context, q intdb.Querier, b models.Booking) error {
	for _, leg := range b.Segment().Legs() {
		_, err := q.ExecContext(ctx,
			`INSERT INTO booking_seat_legs (trip_id, seat_number, leg_order, booking_id) VALUES (?, ?, ?, ?)`,
			b.TripID, b.SeatNumber, leg, b.ID)
		if intdb.IsUniqueViolation(err) {
			return domain.SeatConflictError{TripID: b.TripID.String(), Seat: b.SeatNumber, Err: err}
		}
		if err != nil {
			return fmt.Errorf("claim seat %d leg %d: %w", b.SeatNumber, leg, err)
		}
	}
	return nil
}

func releaseLegs(ctx context.Context, q intdb.Querier, bookingID uuid.UUID) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM booking_seat_legs WHERE booking_id=?`, bookingID); err != nil {
		return fmt.Errorf("release legs of %s: %w", bookingID, err)
	}
	return nil
}
