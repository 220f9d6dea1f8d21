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

	"github.com/google/uuid"
)

type StationRepo struct {
	DB *sql.DB
}

func (r StationRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// ListStations returns every station ordered by name.
func (r StationRepo) ListStations(ctx context.Context) ([]models.Station, error) {
	db := r.db()
	if db == nil {
		return nil, domain.InternalError{Msg: "database not connected"}
	}
	rows, err := db.QueryContext(ctx, `SELECT `+stationColumns("s")+` FROM stations s ORDER BY s.name ASC, s.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	defer rows.Close()

	out := []models.Station{}
	for rows.Next() {
		var s models.Station
		if err := rows.Scan(stationDest(&s)...); err != nil {
			return nil, fmt.Errorf("scan station: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r StationRepo) GetStation(ctx context.Context, id uuid.UUID) (models.Station, error) {
	db := r.db()
	if db == nil {
		return models.Station{}, domain.InternalError{Msg: "database not connected"}
	}
	var s models.Station
	err := db.QueryRowContext(ctx, `SELECT `+stationColumns("s")+` FROM stations s WHERE s.id=? LIMIT 1`, id).Scan(stationDest(&s)...)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Station{}, domain.NotFoundError{Resource: "station", Err: err}
	}
	if err != nil {
		return models.Station{}, fmt.Errorf("get station %s: %w", id, err)
	}
	return s, nil
}

// UpsertStation updates the station in place or inserts it.
func (r StationRepo) UpsertStation(ctx context.Context, s models.Station) error {
	db := r.db()
	if db == nil {
		return domain.InternalError{Msg: "database not connected"}
	}
	return upsert(ctx, db,
		`UPDATE stations SET name=?, latitude=?, longitude=?, station_order=? WHERE id=?`,
		[]any{s.Name, s.Latitude, s.Longitude, s.Order, s.ID},
		`INSERT INTO stations (id, name, latitude, longitude, station_order) VALUES (?, ?, ?, ?, ?)`,
		[]any{s.ID, s.Name, s.Latitude, s.Longitude, s.Order},
	)
}

// upsert runs update and falls back to insert when no row matched. A concurrent insert
// of the same key is treated as success.
func upsert(ctx context.Context, q intdb.Querier, update string, updateArgs []any, insert string, insertArgs []any) error {
	res, err := q.ExecContext(ctx, update, updateArgs...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	if _, err := q.ExecContext(ctx, insert, insertArgs...); err != nil && !intdb.IsUniqueViolation(err) {
		return err
	}
	return nil
}
