package importer

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"railticket/internal/domain"
	"railticket/internal/domain/models"
	"railticket/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const (
	alphaID = "11111111-1111-1111-1111-111111111111"
	bravoID = "22222222-2222-2222-2222-222222222222"
	charlID = "33333333-3333-3333-3333-333333333333"
	trainID = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	tripID  = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
)

func newImporter(t *testing.T) (Importer, *sql.DB) {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, repositories.EnsureSchema(context.Background(), conn))
	return Importer{
		Stations: repositories.StationRepo{DB: conn},
		Trains:   repositories.TrainRepo{DB: conn},
		Trips:    repositories.TripRepo{DB: conn},
	}, conn
}

func TestImportAll(t *testing.T) {
	ctx := context.Background()
	im, conn := newImporter(t)

	n, err := im.ImportStations(ctx, strings.NewReader(`id,name,latitude,longitude,order
`+alphaID+`,Alpha,29.37,47.97,1
`+bravoID+`,  Bravo   Junction ,29.30,47.90,2
`+charlID+`,Charlie,29.10,47.70,3
`))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = im.ImportTrains(ctx, strings.NewReader("id,train_number,type,speed_kmh,total_seats\n"+trainID+",KR-1,intercity,160,80\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = im.ImportTrips(ctx, strings.NewReader(`id,train_id,from_station_id,to_station_id,departure_time,arrival_time,price,status,skipped_station_ids
`+tripID+`,`+trainID+`,`+alphaID+`,`+charlID+`,2026-05-10T09:00:00+03:00,2026-05-10T11:00:00+03:00,12.5,,`+bravoID+`
`))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	trip, err := repositories.TripRepo{DB: conn}.GetTrip(ctx, uuid.MustParse(tripID))
	require.NoError(t, err)
	assert.Equal(t, models.Money(12_500), trip.Price)
	assert.Equal(t, models.TripScheduled, trip.Status)
	assert.Equal(t, 80, trip.Train.TotalSeats)
	assert.True(t, trip.Skips(uuid.MustParse(bravoID)))
	_, offset := trip.DepartureTime.Zone()
	assert.Equal(t, 3*3600, offset)
	assert.Equal(t, 2*time.Hour, trip.Duration())

	bravo, err := repositories.StationRepo{DB: conn}.GetStation(ctx, uuid.MustParse(bravoID))
	require.NoError(t, err)
	assert.Equal(t, "Bravo Junction", bravo.Name)

	// Re-import updates in place.
	_, err = im.ImportTrains(ctx, strings.NewReader("id,train_number,type,speed_kmh,total_seats\n"+trainID+",KR-1,intercity,200,80\n"))
	require.NoError(t, err)
	train, err := repositories.TrainRepo{DB: conn}.GetTrain(ctx, uuid.MustParse(trainID))
	require.NoError(t, err)
	assert.Equal(t, 200, train.SpeedKmh)
}

func TestImportRejectsBadRows(t *testing.T) {
	ctx := context.Background()
	im, _ := newImporter(t)

	_, err := im.ImportStations(ctx, strings.NewReader("id,name,latitude,longitude,order\n"+alphaID+",Alpha,95,0,1\n"))
	var rowErr RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 1, rowErr.Line)

	_, err = im.ImportTrains(ctx, strings.NewReader("id,train_number,type,speed_kmh,total_seats\n,KR-2,local,80,0\n"))
	assert.ErrorContains(t, err, "total_seats")

	_, err = im.ImportStations(ctx, strings.NewReader("id,name,latitude,longitude,order\n"+alphaID+",Alpha,0,0,1\n"+bravoID+",Bravo,0,1,2\n"+charlID+",Charlie,0,2,1\n"))
	require.NoError(t, err)
	_, err = im.ImportTrains(ctx, strings.NewReader("id,train_number,type,speed_kmh,total_seats\n"+trainID+",KR-1,intercity,160,80\n"))
	require.NoError(t, err)

	header := "id,train_id,from_station_id,to_station_id,departure_time,arrival_time,price,status,skipped_station_ids\n"
	cases := map[string]string{
		"same order":     "," + trainID + "," + alphaID + "," + charlID + ",2026-05-10T09:00:00+03:00,2026-05-10T10:00:00+03:00,1,,",
		"unknown train":  "," + uuid.NewString() + "," + alphaID + "," + bravoID + ",2026-05-10T09:00:00+03:00,2026-05-10T10:00:00+03:00,1,,",
		"unknown status": "," + trainID + "," + alphaID + "," + bravoID + ",2026-05-10T09:00:00+03:00,2026-05-10T10:00:00+03:00,1,Lost,",
	}
	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := im.ImportTrips(ctx, strings.NewReader(header+line+"\n"))
			require.ErrorAs(t, err, &rowErr)
		})
	}

	_, err = im.ImportTrips(ctx, strings.NewReader(header+","+trainID+","+alphaID+","+uuid.NewString()+",2026-05-10T09:00:00+03:00,2026-05-10T10:00:00+03:00,1,,\n"))
	assert.True(t, domain.IsNotFound(err))
}

func TestImportStationsRejectsSparseOrders(t *testing.T) {
	ctx := context.Background()
	im, conn := newImporter(t)
	stations := repositories.StationRepo{DB: conn}
	header := "id,name,latitude,longitude,order\n"

	n, err := im.ImportStations(ctx, strings.NewReader(header+alphaID+",Alpha,0,0,0\n"+bravoID+",Bravo,0,1,5000\n"))
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.ErrorContains(t, err, "0 and 5000")
	stored, err := stations.ListStations(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored, "nothing is written when the spacing check fails")

	_, err = im.ImportStations(ctx, strings.NewReader(header+alphaID+",Alpha,0,0,0\n"+bravoID+",Bravo,0,1,10\n"))
	require.NoError(t, err)

	// The gap is measured against stations already stored.
	_, err = im.ImportStations(ctx, strings.NewReader(header+charlID+",Charlie,0,2,21\n"))
	assert.ErrorContains(t, err, "10 and 21")

	// A station in between closes the gap.
	n, err = im.ImportStations(ctx, strings.NewReader(header+charlID+",Charlie,0,2,21\n"+uuid.NewString()+",Delta,0,1.5,15\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
