package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	intconfig "railticket/internal/config"
	"railticket/internal/domain"
	"railticket/internal/domain/models"

	"github.com/google/uuid"
)

type TrainRepo struct {
	DB *sql.DB
}

func (r TrainRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const trainColumns = "tr.id, tr.train_number, tr.train_type, tr.speed_kmh, tr.total_seats"

func trainDest(t *models.Train) []any {
	return []any{&t.ID, &t.TrainNumber, &t.Type, &t.SpeedKmh, &t.TotalSeats}
}

func (r TrainRepo) GetTrain(ctx context.Context, id uuid.UUID) (models.Train, error) {
	db := r.db()
	if db == nil {
		return models.Train{}, domain.InternalError{Msg: "database not connected"}
	}
	var t models.Train
	err := db.QueryRowContext(ctx, `SELECT `+trainColumns+` FROM trains tr WHERE tr.id=? LIMIT 1`, id).Scan(trainDest(&t)...)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Train{}, domain.NotFoundError{Resource: "train", Err: err}
	}
	if err != nil {
		return models.Train{}, fmt.Errorf("get train %s: %w", id, err)
	}
	return t, nil
}

func (r TrainRepo) UpsertTrain(ctx context.Context, t models.Train) error {
	db := r.db()
	if db == nil {
		return domain.InternalError{Msg: "database not connected"}
	}
	return upsert(ctx, db,
		`UPDATE trains SET train_number=?, train_type=?, speed_kmh=?, total_seats=? WHERE id=?`,
		[]any{t.TrainNumber, t.Type, t.SpeedKmh, t.TotalSeats, t.ID},
		`INSERT INTO trains (id, train_number, train_type, speed_kmh, total_seats) VALUES (?, ?, ?, ?, ?)`,
		[]any{t.ID, t.TrainNumber, t.Type, t.SpeedKmh, t.TotalSeats},
	)
}
