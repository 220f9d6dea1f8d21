package services

import (
	"context"
	"database/sql"
	"math"
	"sync"
	"testing"
	"time"

	"railticket/internal/domain/models"
	"railticket/internal/lock"
	"railticket/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

var platform = time.FixedZone("+03:00", 3*3600)

// lonStep is 10 km of longitude on the equator.
var lonStep = 10.0 / 6371 * 180 / math.Pi

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *recordingPublisher) count(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.subjects {
		if s == subject {
			n++
		}
	}
	return n
}

type env struct {
	db        *sql.DB
	clock     *testClock
	publisher *recordingPublisher
	stations  repositories.StationRepo
	trips     repositories.TripRepo
	bookings  repositories.BookingRepo

	A, B, C, D models.Station
	train      models.Train
	forward    models.Trip // A -> D, 09:00-12:00
	backward   models.Trip // D -> A, 13:00-16:00
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, repositories.EnsureSchema(ctx, conn))

	e := &env{
		db:        conn,
		clock:     &testClock{t: time.Date(2026, 5, 10, 6, 0, 0, 0, platform)},
		publisher: &recordingPublisher{},
		stations:  repositories.StationRepo{DB: conn},
		trips:     repositories.TripRepo{DB: conn},
		bookings:  repositories.BookingRepo{DB: conn},
	}

	mk := func(name string, order int) models.Station {
		s := models.Station{ID: uuid.New(), Name: name, Longitude: float64(order-1) * lonStep, Order: order}
		require.NoError(t, e.stations.UpsertStation(ctx, s))
		return s
	}
	e.A, e.B, e.C, e.D = mk("A", 1), mk("B", 2), mk("C", 3), mk("D", 4)

	e.train = models.Train{ID: uuid.New(), TrainNumber: "KR-7", Type: "intercity", SpeedKmh: 120, TotalSeats: 60}
	require.NoError(t, repositories.TrainRepo{DB: conn}.UpsertTrain(ctx, e.train))

	e.forward = e.addTrip(t, e.A, e.D, time.Date(2026, 5, 10, 9, 0, 0, 0, platform), 3*time.Hour, nil)
	e.backward = e.addTrip(t, e.D, e.A, time.Date(2026, 5, 10, 13, 0, 0, 0, platform), 3*time.Hour, nil)
	return e
}

func (e *env) addTrip(t *testing.T, from, to models.Station, dep time.Time, dur time.Duration, mutate func(*models.Trip)) models.Trip {
	t.Helper()
	trip := models.Trip{
		ID:                uuid.New(),
		Train:             e.train,
		FromStation:       from,
		ToStation:         to,
		DepartureTime:     dep,
		ArrivalTime:       dep.Add(dur),
		Price:             100_000,
		Status:            models.TripScheduled,
		SkippedStationIDs: models.NewStationSet(),
	}
	if mutate != nil {
		mutate(&trip)
	}
	require.NoError(t, e.trips.UpsertTrip(context.Background(), trip))
	return trip
}

func (e *env) bookingService(locker lock.SeatLocker) BookingService {
	return BookingService{
		Stations:  e.stations,
		Trips:     e.trips,
		Bookings:  e.bookings,
		Locker:    locker,
		Clock:     e.clock,
		Publisher: e.publisher,
	}
}

func (e *env) tripService() TripService {
	return TripService{
		Stations: e.stations,
		Trips:    e.trips,
		Clock:    e.clock,
		Location: platform,
	}
}

func ids(trips []models.Trip) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(trips))
	for _, t := range trips {
		out = append(out, t.ID)
	}
	return out
}
