package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	intconfig "railticket/internal/config"
	intdb "railticket/internal/db"
	"railticket/internal/domain"
	"railticket/internal/domain/models"
	"railticket/internal/utils"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

type BookingRepo struct {
	DB *sql.DB
}

func (r BookingRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// CreateGuard inspects the trip's live bookings inside the create transaction. It returns
// the stale holds to expire before the insert, or an error to abort.
type CreateGuard func(live []models.Booking) (expire []uuid.UUID, err error)

var bookingSelect = `
	SELECT
		b.id, b.user_id, b.trip_id, b.seat_number, b.price_fils, b.status, b.booked_at,
		b.passenger_name, b.passenger_phone,
		` + stationColumns("fs") + `,
		` + stationColumns("ts") + `
	FROM bookings b
	JOIN stations fs ON fs.id = b.from_station_id
	JOIN stations ts ON ts.id = b.to_station_id`

func scanBooking(row rowScanner) (models.Booking, error) {
	var (
		b           models.Booking
		status      string
		bookedAt    string
		name, phone sql.NullString
	)
	dest := []any{&b.ID, &b.UserID, &b.TripID, &b.SeatNumber, &b.Price, &status, &bookedAt, &name, &phone}
	dest = append(dest, stationDest(&b.FromStation)...)
	dest = append(dest, stationDest(&b.ToStation)...)
	if err := row.Scan(dest...); err != nil {
		return models.Booking{}, err
	}

	var err error
	if b.BookedAt, err = utils.DecodeTime(bookedAt); err != nil {
		return models.Booking{}, fmt.Errorf("booking %s booked_at: %w", b.ID, err)
	}
	if b.Status, err = models.ParseBookingStatus(status); err != nil {
		return models.Booking{}, fmt.Errorf("booking %s: %w", b.ID, err)
	}
	b.PassengerName = name.String
	b.PassengerPhone = phone.String
	return b, nil
}

func listBookings(ctx context.Context, q intdb.Querier, where string, args ...any) ([]models.Booking, error) {
	rows, err := q.QueryContext(ctx, bookingSelect+` WHERE `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r BookingRepo) GetBooking(ctx context.Context, id uuid.UUID) (models.Booking, error) {
	db := r.db()
	if db == nil {
		return models.Booking{}, domain.InternalError{Msg: "database not connected"}
	}
	b, err := scanBooking(db.QueryRowContext(ctx, bookingSelect+` WHERE b.id=? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Booking{}, domain.NotFoundError{Resource: "booking", Err: err}
	}
	if err != nil {
		return models.Booking{}, fmt.Errorf("get booking %s: %w", id, err)
	}
	return b, nil
}

// ListByTrip returns every booking of the trip, cancelled ones included.
func (r BookingRepo) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]models.Booking, error) {
	db := r.db()
	if db == nil {
		return nil, domain.InternalError{Msg: "database not connected"}
	}
	out, err := listBookings(ctx, db, `b.trip_id=? ORDER BY b.seat_number ASC, b.id ASC`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list bookings of trip %s: %w", tripID, err)
	}
	return out, nil
}

// ListByUser returns the user's bookings, newest first.
func (r BookingRepo) ListByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	db := r.db()
	if db == nil {
		return nil, domain.InternalError{Msg: "database not connected"}
	}
	out, err := listBookings(ctx, db, `b.user_id=?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings of user: %w", err)
	}
	slices.SortStableFunc(out, func(a, b models.Booking) int {
		return b.BookedAt.Compare(a.BookedAt)
	})
	return out, nil
}

// Create inserts the bookings of one trip and claims their seat legs in one transaction.
// A leg already claimed by another live booking aborts everything with SeatConflictError.
func (r BookingRepo) Create(ctx context.Context, bookings []models.Booking, guard CreateGuard) error {
	if len(bookings) == 0 {
		return domain.ValidationError{Field: "seats", Msg: "at least one seat is required"}
	}
	db := r.db()
	if db == nil {
		return domain.InternalError{Msg: "database not connected"}
	}
	tripID := bookings[0].TripID

	return intdb.WithTx(ctx, db, func(tx intdb.Querier) error {
		if guard != nil {
			live, err := listBookings(ctx, tx, `b.trip_id=? AND b.status<>?`, tripID, string(models.BookingCancelled))
			if err != nil {
				return fmt.Errorf("load live bookings: %w", err)
			}
			expire, err := guard(live)
			if err != nil {
				return err
			}
			for _, id := range expire {
				if _, err := transition(ctx, tx, id, models.BookingCancelled, models.BookingPendingPayment); err != nil {
					return fmt.Errorf("expire hold %s: %w", id, err)
				}
			}
		}

		for _, b := range bookings {
			if b.TripID != tripID {
				return domain.ValidationError{Field: "trip_id", Msg: "bookings must belong to one trip"}
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO bookings (id, user_id, trip_id, from_station_id, to_station_id, seat_number,
					price_fils, status, booked_at, passenger_name, passenger_phone)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				b.ID, b.UserID, b.TripID, b.FromStation.ID, b.ToStation.ID, b.SeatNumber,
				int64(b.Price), string(b.Status), utils.EncodeTime(b.BookedAt),
				intdb.NullIfEmpty(b.PassengerName), intdb.NullIfEmpty(b.PassengerPhone))
			if err != nil {
				return fmt.Errorf("insert booking: %w", err)
			}
			if err := claimLegs(ctx, tx, b); err != nil {
				return err
			}
		}
		return nil
	})
}

// TransitionStatus moves the booking to `to` only while its status is one of `from`.
// It reports false when the booking was not in an allowed state.
func (r BookingRepo) TransitionStatus(ctx context.Context, id uuid.UUID, to models.BookingStatus, from ...models.BookingStatus) (bool, error) {
	db := r.db()
	if db == nil {
		return false, domain.InternalError{Msg: "database not connected"}
	}
	var changed bool
	err := intdb.WithTx(ctx, db, func(tx intdb.Querier) error {
		var err error
		changed, err = transition(ctx, tx, id, to, from...)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("transition booking %s to %s: %w", id, to, err)
	}
	return changed, nil
}

// Delete removes the booking only while its status is one of `from`.
func (r BookingRepo) Delete(ctx context.Context, id uuid.UUID, from ...models.BookingStatus) (bool, error) {
	db := r.db()
	if db == nil {
		return false, domain.InternalError{Msg: "database not connected"}
	}
	var deleted bool
	err := intdb.WithTx(ctx, db, func(tx intdb.Querier) error {
		args := []any{id}
		for _, s := range from {
			args = append(args, string(s))
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM bookings WHERE id=? AND status IN (`+intdb.Placeholders(len(from))+`)`, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		deleted = true
		return releaseLegs(ctx, tx, id)
	})
	if err != nil {
		return false, fmt.Errorf("delete booking %s: %w", id, err)
	}
	return deleted, nil
}

func transition(ctx context.Context, q intdb.Querier, id uuid.UUID, to models.BookingStatus, from ...models.BookingStatus) (bool, error) {
	if len(from) == 0 {
		return false, fmt.Errorf("no source status given")
	}
	args := []any{string(to), id}
	for _, s := range from {
		args = append(args, string(s))
	}
	res, err := q.ExecContext(ctx,
		`UPDATE bookings SET status=? WHERE id=? AND status IN (`+intdb.Placeholders(len(from))+`)`, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if to == models.BookingCancelled {
		if err := releaseLegs(ctx, q, id); err != nil {
			return false, err
		}
	}
	return true, nil
}
