package services

import (
	"context"
	"time"

	"railticket/internal/domain/models"
	"railticket/internal/repositories"

	"github.com/google/uuid"
)

type StationReader interface {
	ListStations(ctx context.Context) ([]models.Station, error)
	GetStation(ctx context.Context, id uuid.UUID) (models.Station, error)
}

type TripStore interface {
	ListTrips(ctx context.Context, f repositories.TripFilter) ([]models.Trip, error)
	GetTrip(ctx context.Context, id uuid.UUID) (models.Trip, error)
	UpdateTripStatus(ctx context.Context, id uuid.UUID, status models.TripStatus, delayMinutes *int, cancelledAt *time.Time) error
}

type BookingStore interface {
	Create(ctx context.Context, bookings []models.Booking, guard repositories.CreateGuard) error
	GetBooking(ctx context.Context, id uuid.UUID) (models.Booking, error)
	ListByTrip(ctx context.Context, tripID uuid.UUID) ([]models.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]models.Booking, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, to models.BookingStatus, from ...models.BookingStatus) (bool, error)
	Delete(ctx context.Context, id uuid.UUID, from ...models.BookingStatus) (bool, error)
}

// Publisher emits booking lifecycle events. Publishing is best effort.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// Metrics records booking outcomes, e.g. ("create", "conflict").
type Metrics interface {
	BookingEvent(action, outcome string)
}

type nopMetrics struct{}

func (nopMetrics) BookingEvent(string, string) {}
