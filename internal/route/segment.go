package route

import (
	"math"
	"time"

	"railticket/internal/domain/models"

	"github.com/rs/zerolog/log"
)

// Fallback kinds reported to a FallbackObserver.
const (
	FallbackZeroDistance = "zero_distance"
	FallbackZeroDuration = "zero_duration"
	FallbackNonFinite    = "non_finite"
)

// FallbackObserver is told every time a computation falls back to a safe default
// instead of producing NaN, Inf or a division by zero.
type FallbackObserver interface {
	GeometryFallback(kind string)
}

// Calculator prices and time-stamps segments of trips over a snapshot of the stations.
type Calculator struct {
	Stations []models.Station
	Observer FallbackObserver
}

// PathDistance sums the distances between consecutive stations from a to b.
// Legs are always summed in ascending Order so the result does not depend on
// the argument order.
func (c Calculator) PathDistance(a, b models.Station) float64 {
	if a.Order > b.Order {
		a, b = b, a
	}
	stations := OrderedStations(c.Stations, a, b)
	total := 0.0
	for i := 0; i < len(stations)-1; i++ {
		total += DistanceKm(
			stations[i].Latitude, stations[i].Longitude,
			stations[i+1].Latitude, stations[i+1].Longitude,
		)
	}
	return total
}

// TripDistance is the path distance of the trip's full route.
func (c Calculator) TripDistance(t models.Trip) float64 {
	return c.PathDistance(t.FromStation, t.ToStation)
}

// SegmentPrice pro-rates the full-route price by distance. The exact full route
// returns the trip price untouched.
func (c Calculator) SegmentPrice(t models.Trip, from, to models.Station) models.Money {
	if from.ID == t.FromStation.ID && to.ID == t.ToStation.ID {
		return t.Price
	}

	total := c.TripDistance(t)
	if !usable(total) {
		c.fallback(FallbackZeroDistance, t, "segment price falls back to full trip price")
		return t.Price
	}

	ratio := c.PathDistance(from, to) / total
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		c.fallback(FallbackNonFinite, t, "segment price falls back to full trip price")
		return t.Price
	}
	return t.Price.Scale(ratio)
}

// SegmentDeparture is the virtual boarding time at from.
func (c Calculator) SegmentDeparture(t models.Trip, from models.Station) time.Time {
	if from.ID == t.FromStation.ID {
		return t.DepartureTime
	}
	if from.ID == t.ToStation.ID {
		return t.ArrivalTime
	}
	offset, ok := c.offsetMinutes(t, from)
	if !ok {
		return t.DepartureTime
	}
	return addMinutes(t.DepartureTime, offset)
}

// SegmentArrival is the virtual alighting time at to. The interpolation is anchored at
// the trip's departure, the same as SegmentDeparture, so adjacent segments agree.
func (c Calculator) SegmentArrival(t models.Trip, to models.Station) time.Time {
	if to.ID == t.ToStation.ID {
		return t.ArrivalTime
	}
	if to.ID == t.FromStation.ID {
		return t.DepartureTime
	}
	offset, ok := c.offsetMinutes(t, to)
	if !ok {
		return t.ArrivalTime
	}
	return addMinutes(t.DepartureTime, offset)
}

// offsetMinutes is the distance-weighted share of the trip duration spent reaching s.
func (c Calculator) offsetMinutes(t models.Trip, s models.Station) (float64, bool) {
	total := c.TripDistance(t)
	duration := t.Duration().Minutes()
	if !usable(total) {
		c.fallback(FallbackZeroDistance, t, "segment time falls back to scheduled time")
		return 0, false
	}
	if duration <= 0 {
		c.fallback(FallbackZeroDuration, t, "segment time falls back to scheduled time")
		return 0, false
	}
	offset := c.PathDistance(t.FromStation, s) / total * duration
	if math.IsNaN(offset) || math.IsInf(offset, 0) {
		c.fallback(FallbackNonFinite, t, "segment time falls back to scheduled time")
		return 0, false
	}
	return offset, true
}

func (c Calculator) fallback(kind string, t models.Trip, msg string) {
	log.Warn().Str("kind", kind).Str("trip_id", t.ID.String()).Msg(msg)
	if c.Observer != nil {
		c.Observer.GeometryFallback(kind)
	}
}

// usable is false for zero, negative and non-finite distances.
func usable(d float64) bool {
	return d > 0 && !math.IsInf(d, 0)
}

// addMinutes adds fractional minutes rounded to the millisecond.
func addMinutes(t time.Time, minutes float64) time.Time {
	ms := math.Round(minutes * 60 * 1000)
	return t.Add(time.Duration(ms) * time.Millisecond)
}
