package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	intconfig "railticket/internal/config"
	intdb "railticket/internal/db"
	"railticket/internal/domain"
	"railticket/internal/domain/models"
	"railticket/internal/utils"

	"github.com/google/uuid"
)

type TripRepo struct {
	DB *sql.DB
}

func (r TripRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// TripFilter narrows the broad candidate query. Time windows are not part of it: the
// stored text carries offsets, so ordering and windows are applied after loading.
type TripFilter struct {
	Statuses  []models.TripStatus
	StationID *uuid.UUID
}

var tripSelect = `
	SELECT
		t.id, t.departure_time, t.arrival_time, t.price_fils, t.status, t.delay_minutes, t.cancelled_at,
		` + trainColumns + `,
		` + stationColumns("fs") + `,
		` + stationColumns("ts") + `
	FROM trips t
	JOIN trains tr ON tr.id = t.train_id
	JOIN stations fs ON fs.id = t.from_station_id
	JOIN stations ts ON ts.id = t.to_station_id`

func scanTrip(row rowScanner) (models.Trip, error) {
	var (
		t           models.Trip
		dep, arr    string
		status      string
		delay       sql.NullInt64
		cancelledAt sql.NullString
	)
	dest := []any{&t.ID, &dep, &arr, &t.Price, &status, &delay, &cancelledAt}
	dest = append(dest, trainDest(&t.Train)...)
	dest = append(dest, stationDest(&t.FromStation)...)
	dest = append(dest, stationDest(&t.ToStation)...)
	if err := row.Scan(dest...); err != nil {
		return models.Trip{}, err
	}

	var err error
	if t.DepartureTime, err = utils.DecodeTime(dep); err != nil {
		return models.Trip{}, fmt.Errorf("trip %s departure: %w", t.ID, err)
	}
	if t.ArrivalTime, err = utils.DecodeTime(arr); err != nil {
		return models.Trip{}, fmt.Errorf("trip %s arrival: %w", t.ID, err)
	}
	if t.CancelledAt, err = nullableTime(cancelledAt); err != nil {
		return models.Trip{}, fmt.Errorf("trip %s cancelled_at: %w", t.ID, err)
	}
	if t.Status, err = models.ParseTripStatus(status); err != nil {
		return models.Trip{}, fmt.Errorf("trip %s: %w", t.ID, err)
	}
	t.DelayMinutes = nullableInt(delay)
	t.SkippedStationIDs = models.NewStationSet()
	return t, nil
}

// ListTrips returns candidate trips with stations, train and skipped stations resolved.
func (r TripRepo) ListTrips(ctx context.Context, f TripFilter) ([]models.Trip, error) {
	db := r.db()
	if db == nil {
		return nil, domain.InternalError{Msg: "database not connected"}
	}

	where := []string{"1=1"}
	args := []any{}
	if len(f.Statuses) > 0 {
		where = append(where, "t.status IN ("+intdb.Placeholders(len(f.Statuses))+")")
		for _, s := range f.Statuses {
			args = append(args, string(s))
		}
	}
	if f.StationID != nil {
		// Any trip whose order range contains the station.
		where = append(where, `EXISTS (
			SELECT 1 FROM stations x WHERE x.id=?
			AND x.station_order BETWEEN
				CASE WHEN fs.station_order < ts.station_order THEN fs.station_order ELSE ts.station_order END
				AND CASE WHEN fs.station_order < ts.station_order THEN ts.station_order ELSE fs.station_order END
		)`)
		args = append(args, *f.StationID)
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY t.id ASC`, tripSelect, strings.Join(where, " AND "))
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	out := []models.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachSkipped(ctx, db, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r TripRepo) GetTrip(ctx context.Context, id uuid.UUID) (models.Trip, error) {
	db := r.db()
	if db == nil {
		return models.Trip{}, domain.InternalError{Msg: "database not connected"}
	}
	t, err := scanTrip(db.QueryRowContext(ctx, tripSelect+` WHERE t.id=? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Trip{}, domain.NotFoundError{Resource: "trip", Err: err}
	}
	if err != nil {
		return models.Trip{}, fmt.Errorf("get trip %s: %w", id, err)
	}
	trips := []models.Trip{t}
	if err := r.attachSkipped(ctx, db, trips); err != nil {
		return models.Trip{}, err
	}
	return trips[0], nil
}

func (r TripRepo) attachSkipped(ctx context.Context, q intdb.Querier, trips []models.Trip) error {
	if len(trips) == 0 {
		return nil
	}
	index := make(map[uuid.UUID]int, len(trips))
	args := make([]any, 0, len(trips))
	for i, t := range trips {
		index[t.ID] = i
		args = append(args, t.ID)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT trip_id, station_id FROM trip_skipped_stations WHERE trip_id IN (`+intdb.Placeholders(len(args))+`)`,
		args...)
	if err != nil {
		return fmt.Errorf("list skipped stations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tripID, stationID uuid.UUID
		if err := rows.Scan(&tripID, &stationID); err != nil {
			return fmt.Errorf("scan skipped station: %w", err)
		}
		if i, ok := index[tripID]; ok {
			trips[i].SkippedStationIDs[stationID] = struct{}{}
		}
	}
	return rows.Err()
}

// UpsertTrip writes the trip and replaces its skipped stations atomically.
func (r TripRepo) UpsertTrip(ctx context.Context, t models.Trip) error {
	db := r.db()
	if db == nil {
		return domain.InternalError{Msg: "database not connected"}
	}
	dep := utils.EncodeTime(t.DepartureTime)
	arr := utils.EncodeTime(t.ArrivalTime)
	return intdb.WithTx(ctx, db, func(tx intdb.Querier) error {
		err := upsert(ctx, tx,
			`UPDATE trips SET train_id=?, from_station_id=?, to_station_id=?, departure_time=?, arrival_time=?,
				price_fils=?, status=?, delay_minutes=?, cancelled_at=? WHERE id=?`,
			[]any{t.Train.ID, t.FromStation.ID, t.ToStation.ID, dep, arr,
				int64(t.Price), string(t.Status), encodeNullableInt(t.DelayMinutes), encodeNullableTime(t.CancelledAt), t.ID},
			`INSERT INTO trips (id, train_id, from_station_id, to_station_id, departure_time, arrival_time,
				price_fils, status, delay_minutes, cancelled_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			[]any{t.ID, t.Train.ID, t.FromStation.ID, t.ToStation.ID, dep, arr,
				int64(t.Price), string(t.Status), encodeNullableInt(t.DelayMinutes), encodeNullableTime(t.CancelledAt)},
		)
		if err != nil {
			return fmt.Errorf("upsert trip %s: %w", t.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM trip_skipped_stations WHERE trip_id=?`, t.ID); err != nil {
			return fmt.Errorf("clear skipped stations: %w", err)
		}
		for _, sid := range t.SkippedStationIDs.IDs() {
			if _, err := tx.ExecContext(ctx, `INSERT INTO trip_skipped_stations (trip_id, station_id) VALUES (?, ?)`, t.ID, sid); err != nil {
				return fmt.Errorf("insert skipped station: %w", err)
			}
		}
		return nil
	})
}

// UpdateTripStatus persists an operator status change.
func (r TripRepo) UpdateTripStatus(ctx context.Context, id uuid.UUID, status models.TripStatus, delayMinutes *int, cancelledAt *time.Time) error {
	db := r.db()
	if db == nil {
		return domain.InternalError{Msg: "database not connected"}
	}
	res, err := db.ExecContext(ctx,
		`UPDATE trips SET status=?, delay_minutes=?, cancelled_at=? WHERE id=?`,
		string(status), encodeNullableInt(delayMinutes), encodeNullableTime(cancelledAt), id)
	if err != nil {
		return fmt.Errorf("update trip status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "trip"}
	}
	return nil
}
