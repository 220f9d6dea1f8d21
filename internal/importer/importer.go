// Package importer loads station, train and trip reference data from CSV files.
package importer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"railticket/internal/domain/models"
	"railticket/internal/utils"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
)

// MaxOrderGap bounds the distance between neighbouring station orders. A
// booking stores one seat row per unit of order it spans.
const MaxOrderGap = 10

type StationRow struct {
	ID        string  `csv:"id"`
	Name      string  `csv:"name"`
	Latitude  float64 `csv:"latitude"`
	Longitude float64 `csv:"longitude"`
	Order     int     `csv:"order"`
}

type TrainRow struct {
	ID          string `csv:"id"`
	TrainNumber string `csv:"train_number"`
	Type        string `csv:"type"`
	SpeedKmh    int    `csv:"speed_kmh"`
	TotalSeats  int    `csv:"total_seats"`
}

// TripRow lists skipped stations as ";"-separated ids. Price is in currency units ("12.5" or "KD 12.500").
type TripRow struct {
	ID              string `csv:"id"`
	TrainID         string `csv:"train_id"`
	FromStationID   string `csv:"from_station_id"`
	ToStationID     string `csv:"to_station_id"`
	DepartureTime   string `csv:"departure_time"`
	ArrivalTime     string `csv:"arrival_time"`
	Price           string `csv:"price"`
	Status          string `csv:"status"`
	SkippedStations string `csv:"skipped_station_ids"`
}

type StationStore interface {
	ListStations(ctx context.Context) ([]models.Station, error)
	GetStation(ctx context.Context, id uuid.UUID) (models.Station, error)
	UpsertStation(ctx context.Context, s models.Station) error
}

type TrainStore interface {
	GetTrain(ctx context.Context, id uuid.UUID) (models.Train, error)
	UpsertTrain(ctx context.Context, t models.Train) error
}

type TripWriter interface {
	UpsertTrip(ctx context.Context, t models.Trip) error
}

// Importer upserts rows by id, so re-running an import is safe.
type Importer struct {
	Stations StationStore
	Trains   TrainStore
	Trips    TripWriter
}

// RowError points at the offending data line (1-based, header excluded).
type RowError struct {
	File string
	Line int
	Err  error
}

func (e RowError) Error() string { return fmt.Sprintf("%s line %d: %v", e.File, e.Line, e.Err) }

func (e RowError) Unwrap() error { return e.Err }

func (im Importer) ImportStations(ctx context.Context, r io.Reader) (int, error) {
	var rows []StationRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return 0, fmt.Errorf("read stations csv: %w", err)
	}
	stations := make([]models.Station, 0, len(rows))
	for i, row := range rows {
		s, err := row.station()
		if err != nil {
			return 0, RowError{File: "stations", Line: i + 1, Err: err}
		}
		stations = append(stations, s)
	}
	if err := im.checkOrderSpacing(ctx, stations); err != nil {
		return 0, err
	}
	for i, s := range stations {
		if err := im.Stations.UpsertStation(ctx, s); err != nil {
			return i, RowError{File: "stations", Line: i + 1, Err: err}
		}
	}
	log.Info().Int("count", len(rows)).Msg("stations imported")
	return len(rows), nil
}

// checkOrderSpacing merges the incoming stations over the stored ones and
// rejects any gap wider than MaxOrderGap between neighbouring orders.
func (im Importer) checkOrderSpacing(ctx context.Context, incoming []models.Station) error {
	existing, err := im.Stations.ListStations(ctx)
	if err != nil {
		return fmt.Errorf("list stations: %w", err)
	}
	byID := make(map[uuid.UUID]int, len(existing)+len(incoming))
	for _, s := range existing {
		byID[s.ID] = s.Order
	}
	for _, s := range incoming {
		byID[s.ID] = s.Order
	}
	orders := make([]int, 0, len(byID))
	for _, order := range byID {
		orders = append(orders, order)
	}
	slices.Sort(orders)
	orders = slices.Compact(orders)
	for i := 1; i < len(orders); i++ {
		if orders[i]-orders[i-1] > MaxOrderGap {
			return fmt.Errorf("station orders %d and %d are more than %d apart", orders[i-1], orders[i], MaxOrderGap)
		}
	}
	return nil
}

func (im Importer) ImportTrains(ctx context.Context, r io.Reader) (int, error) {
	var rows []TrainRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return 0, fmt.Errorf("read trains csv: %w", err)
	}
	for i, row := range rows {
		t, err := row.train()
		if err == nil {
			err = im.Trains.UpsertTrain(ctx, t)
		}
		if err != nil {
			return i, RowError{File: "trains", Line: i + 1, Err: err}
		}
	}
	log.Info().Int("count", len(rows)).Msg("trains imported")
	return len(rows), nil
}

// ImportTrips requires the referenced trains and stations to exist already.
func (im Importer) ImportTrips(ctx context.Context, r io.Reader) (int, error) {
	var rows []TripRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return 0, fmt.Errorf("read trips csv: %w", err)
	}
	for i, row := range rows {
		t, err := im.trip(ctx, row)
		if err == nil {
			err = im.Trips.UpsertTrip(ctx, t)
		}
		if err != nil {
			return i, RowError{File: "trips", Line: i + 1, Err: err}
		}
	}
	log.Info().Int("count", len(rows)).Msg("trips imported")
	return len(rows), nil
}

func parseOrNew(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.New(), nil
	}
	return uuid.Parse(raw)
}

func (row StationRow) station() (models.Station, error) {
	id, err := parseOrNew(row.ID)
	if err != nil {
		return models.Station{}, fmt.Errorf("id: %w", err)
	}
	name := utils.NormalizeSpace(row.Name)
	if name == "" {
		return models.Station{}, fmt.Errorf("name is required")
	}
	if row.Latitude < -90 || row.Latitude > 90 || row.Longitude < -180 || row.Longitude > 180 {
		return models.Station{}, fmt.Errorf("coordinates out of range")
	}
	return models.Station{ID: id, Name: name, Latitude: row.Latitude, Longitude: row.Longitude, Order: row.Order}, nil
}

func (row TrainRow) train() (models.Train, error) {
	id, err := parseOrNew(row.ID)
	if err != nil {
		return models.Train{}, fmt.Errorf("id: %w", err)
	}
	if utils.TrimOrEmpty(row.TrainNumber) == "" {
		return models.Train{}, fmt.Errorf("train_number is required")
	}
	if row.TotalSeats <= 0 {
		return models.Train{}, fmt.Errorf("total_seats must be positive")
	}
	return models.Train{
		ID:          id,
		TrainNumber: utils.TrimOrEmpty(row.TrainNumber),
		Type:        utils.TrimOrEmpty(row.Type),
		SpeedKmh:    row.SpeedKmh,
		TotalSeats:  row.TotalSeats,
	}, nil
}

func (im Importer) trip(ctx context.Context, row TripRow) (models.Trip, error) {
	id, err := parseOrNew(row.ID)
	if err != nil {
		return models.Trip{}, fmt.Errorf("id: %w", err)
	}
	trainID, err := uuid.Parse(strings.TrimSpace(row.TrainID))
	if err != nil {
		return models.Trip{}, fmt.Errorf("train_id: %w", err)
	}
	train, err := im.Trains.GetTrain(ctx, trainID)
	if err != nil {
		return models.Trip{}, fmt.Errorf("train %s: %w", trainID, err)
	}
	from, err := im.station(ctx, "from_station_id", row.FromStationID)
	if err != nil {
		return models.Trip{}, err
	}
	to, err := im.station(ctx, "to_station_id", row.ToStationID)
	if err != nil {
		return models.Trip{}, err
	}
	if from.Order == to.Order {
		return models.Trip{}, fmt.Errorf("trip must run between stations of different order")
	}

	dep, err := utils.DecodeTime(row.DepartureTime)
	if err != nil {
		return models.Trip{}, fmt.Errorf("departure_time: %w", err)
	}
	arr, err := utils.DecodeTime(row.ArrivalTime)
	if err != nil {
		return models.Trip{}, fmt.Errorf("arrival_time: %w", err)
	}
	if !arr.After(dep) {
		return models.Trip{}, fmt.Errorf("arrival_time must be after departure_time")
	}

	price, err := utils.ParseMoney(row.Price)
	if err != nil || price < 0 {
		return models.Trip{}, fmt.Errorf("price: invalid amount %q", row.Price)
	}

	status := models.TripScheduled
	if strings.TrimSpace(row.Status) != "" {
		if status, err = models.ParseTripStatus(row.Status); err != nil {
			return models.Trip{}, err
		}
	}

	skipped := models.NewStationSet()
	for _, raw := range strings.Split(row.SkippedStations, ";") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		s, err := im.station(ctx, "skipped_station_ids", raw)
		if err != nil {
			return models.Trip{}, err
		}
		skipped[s.ID] = struct{}{}
	}

	return models.Trip{
		ID:                id,
		Train:             train,
		FromStation:       from,
		ToStation:         to,
		DepartureTime:     dep,
		ArrivalTime:       arr,
		Price:             price,
		Status:            status,
		SkippedStationIDs: skipped,
	}, nil
}

func (im Importer) station(ctx context.Context, field, raw string) (models.Station, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return models.Station{}, fmt.Errorf("%s: %w", field, err)
	}
	s, err := im.Stations.GetStation(ctx, id)
	if err != nil {
		return models.Station{}, fmt.Errorf("%s %s: %w", field, id, err)
	}
	return s, nil
}
