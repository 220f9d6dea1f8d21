package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type TripStatus string

const (
	TripScheduled TripStatus = "Scheduled"
	TripOnTime    TripStatus = "OnTime"
	TripDelayed   TripStatus = "Delayed"
	TripCancelled TripStatus = "Cancelled"
	TripCompleted TripStatus = "Completed"
)

func ParseTripStatus(s string) (TripStatus, error) {
	for _, st := range []TripStatus{TripScheduled, TripOnTime, TripDelayed, TripCancelled, TripCompleted} {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown trip status %q", s)
}

// Trip is one run of a train along the line from FromStation to ToStation.
// DepartureTime/ArrivalTime and Price refer to the full route.
type Trip struct {
	ID                uuid.UUID  `json:"id"`
	Train             Train      `json:"train"`
	FromStation       Station    `json:"from_station"`
	ToStation         Station    `json:"to_station"`
	DepartureTime     time.Time  `json:"departure_time"`
	ArrivalTime       time.Time  `json:"arrival_time"`
	Price             Money      `json:"price"`
	Status            TripStatus `json:"status"`
	DelayMinutes      *int       `json:"delay_minutes,omitempty"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
	SkippedStationIDs StationSet `json:"skipped_station_ids"`
}

// Forward reports whether the trip runs towards increasing Order.
func (t Trip) Forward() bool {
	return t.FromStation.Order < t.ToStation.Order
}

// Range is the normalized Order interval of the full route.
func (t Trip) Range() Segment {
	return SegmentBetween(t.FromStation, t.ToStation)
}

func (t Trip) IsEndpoint(id uuid.UUID) bool {
	return id == t.FromStation.ID || id == t.ToStation.ID
}

// Skips reports whether this run does not service the station. Endpoints are never skipped.
func (t Trip) Skips(id uuid.UUID) bool {
	if t.IsEndpoint(id) {
		return false
	}
	return t.SkippedStationIDs.Has(id)
}

func (t Trip) Duration() time.Duration {
	return t.ArrivalTime.Sub(t.DepartureTime)
}

// TripView is a search result: the trip plus the virtual segment the caller asked about.
type TripView struct {
	Trip
	SegmentFrom      *Station   `json:"segment_from,omitempty"`
	SegmentTo        *Station   `json:"segment_to,omitempty"`
	SegmentDeparture *time.Time `json:"segment_departure,omitempty"`
	SegmentArrival   *time.Time `json:"segment_arrival,omitempty"`
	SegmentPrice     *Money     `json:"segment_price,omitempty"`
}
