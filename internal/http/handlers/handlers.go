package handlers

import (
	"context"
	"time"

	"railticket/internal/domain/models"
	"railticket/internal/services"

	"github.com/google/uuid"
)

type TrainReader interface {
	GetTrain(ctx context.Context, id uuid.UUID) (models.Train, error)
}

// Handlers holds the services behind the API routes.
type Handlers struct {
	Stations services.StationReader
	Trains   TrainReader
	Trips    services.TripService
	Bookings services.BookingService
	// Location is the platform time zone used for ?date= filters.
	Location *time.Location
}
