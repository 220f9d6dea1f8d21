// Package events publishes booking lifecycle notifications.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"railticket/internal/domain/models"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const (
	SubjectBookingCreated   = "railticket.booking.created"
	SubjectBookingConfirmed = "railticket.booking.confirmed"
	SubjectBookingCancelled = "railticket.booking.cancelled"
	SubjectBookingDeleted   = "railticket.booking.deleted"
)

// BookingEvent is the payload of every booking subject.
type BookingEvent struct {
	BookingID     string               `json:"booking_id"`
	TripID        string               `json:"trip_id"`
	UserID        string               `json:"user_id"`
	FromStationID string               `json:"from_station_id"`
	ToStationID   string               `json:"to_station_id"`
	SeatNumber    int                  `json:"seat_number"`
	Status        models.BookingStatus `json:"status"`
	Price         models.Money         `json:"price"`
	Refund        *models.Money        `json:"refund,omitempty"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

func NewBookingEvent(b models.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		BookingID:     b.ID.String(),
		TripID:        b.TripID.String(),
		UserID:        b.UserID,
		FromStationID: b.FromStation.ID.String(),
		ToStationID:   b.ToStation.ID.String(),
		SeatNumber:    b.SeatNumber,
		Status:        b.Status,
		Price:         b.Price,
		OccurredAt:    at,
	}
}

// NATSPublisher publishes JSON payloads on a NATS connection.
type NATSPublisher struct {
	conn *nats.Conn
}

// ConnectNATS dials url. Reconnects are handled by the client.
func ConnectNATS(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("railticket"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", subject, err)
	}
	return p.conn.Publish(subject, data)
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
