package route

import (
	"math"
	"time"

	"railticket/internal/domain/models"

	"github.com/rs/zerolog/log"
)

const (
	DefaultTrainSpeedKmh = 300
	DefaultStopDwell     = 10 * time.Minute
	fallbackTravelTime   = time.Hour
)

// Estimator suggests an arrival time and price for a trip that is being scheduled.
type Estimator struct {
	Calculator      Calculator
	DefaultSpeedKmh float64
	StopDwell       time.Duration
	FarePerKm       models.Money
}

type Estimate struct {
	Departure         time.Time    `json:"departure"`
	Arrival           time.Time    `json:"arrival"`
	DistanceKm        float64      `json:"distance_km"`
	SpeedKmh          float64      `json:"speed_kmh"`
	IntermediateStops int          `json:"intermediate_stops"`
	TravelMinutes     int          `json:"travel_minutes"`
	SuggestedPrice    models.Money `json:"suggested_price"`
	Fallback          bool         `json:"fallback"`
}

// Estimate computes arrival = departure + ceil(path/speed + dwell per intermediate stop).
// A speed <= 0 is replaced by the default; a non-finite result falls back to one hour.
func (e Estimator) Estimate(from, to models.Station, departure time.Time, speedKmh float64) Estimate {
	speed := e.speed(speedKmh)
	dwell := e.StopDwell
	if dwell <= 0 {
		dwell = DefaultStopDwell
	}

	distance := e.Calculator.PathDistance(from, to)
	stops := IntermediateCount(e.Calculator.Stations, from, to)

	minutes := distance/speed*60 + float64(stops)*dwell.Minutes()
	out := Estimate{
		Departure:         departure,
		DistanceKm:        distance,
		SpeedKmh:          speed,
		IntermediateStops: stops,
	}

	if math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		log.Warn().Str("kind", FallbackNonFinite).
			Str("from", from.ID.String()).Str("to", to.ID.String()).
			Msg("arrival estimate falls back to one hour")
		if e.Calculator.Observer != nil {
			e.Calculator.Observer.GeometryFallback(FallbackNonFinite)
		}
		out.Arrival = departure.Add(fallbackTravelTime)
		out.TravelMinutes = int(fallbackTravelTime.Minutes())
		out.DistanceKm = 0
		out.Fallback = true
		return out
	}

	rounded := math.Ceil(minutes)
	out.TravelMinutes = int(rounded)
	out.Arrival = departure.Add(time.Duration(rounded) * time.Minute)
	out.SuggestedPrice = e.FarePerKm.Scale(distance)
	return out
}

func (e Estimator) speed(requested float64) float64 {
	if requested > 0 && !math.IsInf(requested, 0) {
		return requested
	}
	if e.DefaultSpeedKmh > 0 && !math.IsInf(e.DefaultSpeedKmh, 0) {
		return e.DefaultSpeedKmh
	}
	return DefaultTrainSpeedKmh
}
