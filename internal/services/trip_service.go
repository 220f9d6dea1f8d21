package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"railticket/internal/clock"
	"railticket/internal/domain"
	"railticket/internal/domain/models"
	"railticket/internal/route"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/exp/slices"
)

// SearchParams are the raw search inputs; any field may be nil.
type SearchParams struct {
	FromStationID *uuid.UUID
	ToStationID   *uuid.UUID
	Date          *time.Time
}

// EstimateParams describe a trip being scheduled.
type EstimateParams struct {
	FromStationID uuid.UUID
	ToStationID   uuid.UUID
	Departure     time.Time
	SpeedKmh      float64
}

type TripService struct {
	Stations    StationReader
	Trips       TripStore
	Clock       clock.Clock
	Location    *time.Location
	CancelGrace time.Duration
	Observer    route.FallbackObserver

	DefaultSpeedKmh float64
	StopDwell       time.Duration
	FarePerKm       models.Money
}

func (s TripService) finder() TripFinder {
	return TripFinder{Trips: s.Trips, Clock: s.Clock, Location: s.Location, CancelGrace: s.CancelGrace}
}

func (s TripService) calculator(ctx context.Context) (route.Calculator, error) {
	all, err := s.Stations.ListStations(ctx)
	if err != nil {
		return route.Calculator{}, fmt.Errorf("load stations: %w", err)
	}
	return route.Calculator{Stations: all, Observer: s.Observer}, nil
}

// Search finds upcoming trips and, when stations are given, fills in the virtual
// segment times (and price when both ends are given).
func (s TripService) Search(ctx context.Context, p SearchParams) ([]models.TripView, error) {
	calc, err := s.calculator(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Station, len(calc.Stations))
	for _, st := range calc.Stations {
		byID[st.ID] = st
	}

	var q TripQuery
	q.Date = p.Date
	if p.FromStationID != nil {
		st, ok := byID[*p.FromStationID]
		if !ok {
			return nil, domain.InvalidSegmentError{Reason: domain.ReasonStationNotFound, Msg: "from station not found"}
		}
		q.From = &st
	}
	if p.ToStationID != nil {
		st, ok := byID[*p.ToStationID]
		if !ok {
			return nil, domain.InvalidSegmentError{Reason: domain.ReasonStationNotFound, Msg: "to station not found"}
		}
		q.To = &st
	}
	if q.From != nil && q.To != nil && q.From.ID == q.To.ID {
		return nil, domain.InvalidSegmentError{Reason: domain.ReasonSameStation, Msg: "from and to are the same station"}
	}

	trips, err := s.finder().FindUpcoming(ctx, q)
	if err != nil {
		return nil, err
	}
	if q.From == nil && q.To == nil {
		out := make([]models.TripView, 0, len(trips))
		for _, t := range trips {
			out = append(out, models.TripView{Trip: t})
		}
		return out, nil
	}

	workers := pool.NewWithResults[models.TripView]().WithMaxGoroutines(16)
	for _, t := range trips {
		workers.Go(func() models.TripView {
			return segmentView(calc, t, q.From, q.To)
		})
	}
	views := workers.Wait()
	slices.SortStableFunc(views, func(a, b models.TripView) int {
		if c := a.DepartureTime.Compare(b.DepartureTime); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return views, nil
}

func segmentView(calc route.Calculator, t models.Trip, from, to *models.Station) models.TripView {
	v := models.TripView{Trip: t}
	if from != nil {
		dep := calc.SegmentDeparture(t, *from)
		v.SegmentFrom = from
		v.SegmentDeparture = &dep
	}
	if to != nil {
		arr := calc.SegmentArrival(t, *to)
		v.SegmentTo = to
		v.SegmentArrival = &arr
	}
	if from != nil && to != nil {
		price := calc.SegmentPrice(t, *from, *to)
		v.SegmentPrice = &price
	}
	return v
}

func (s TripService) Get(ctx context.Context, id uuid.UUID) (models.Trip, error) {
	return s.Trips.GetTrip(ctx, id)
}

// EstimateArrival suggests arrival time and full-route price for a trip being authored.
func (s TripService) EstimateArrival(ctx context.Context, p EstimateParams) (route.Estimate, error) {
	calc, err := s.calculator(ctx)
	if err != nil {
		return route.Estimate{}, err
	}
	from, to, err := resolvePair(calc.Stations, p.FromStationID, p.ToStationID)
	if err != nil {
		return route.Estimate{}, err
	}
	if p.Departure.IsZero() {
		return route.Estimate{}, domain.ValidationError{Field: "departure_time", Msg: "required"}
	}
	est := route.Estimator{
		Calculator:      calc,
		DefaultSpeedKmh: s.DefaultSpeedKmh,
		StopDwell:       s.StopDwell,
		FarePerKm:       s.FarePerKm,
	}
	return est.Estimate(from, to, p.Departure, p.SpeedKmh), nil
}

// SetStatus records an operator status change. Cancelling stamps the cancellation time.
func (s TripService) SetStatus(ctx context.Context, id uuid.UUID, status models.TripStatus, delayMinutes *int) (models.Trip, error) {
	if delayMinutes != nil && *delayMinutes < 0 {
		return models.Trip{}, domain.ValidationError{Field: "delay_minutes", Msg: "must not be negative"}
	}
	if status == models.TripDelayed && delayMinutes == nil {
		return models.Trip{}, domain.ValidationError{Field: "delay_minutes", Msg: "required when delayed"}
	}
	if status != models.TripDelayed {
		delayMinutes = nil
	}
	var cancelledAt *time.Time
	if status == models.TripCancelled {
		now := s.Clock.Now()
		cancelledAt = &now
	}
	if err := s.Trips.UpdateTripStatus(ctx, id, status, delayMinutes, cancelledAt); err != nil {
		return models.Trip{}, err
	}
	return s.Trips.GetTrip(ctx, id)
}

// resolvePair looks both stations up and rejects identical ids.
func resolvePair(all []models.Station, fromID, toID uuid.UUID) (models.Station, models.Station, error) {
	var from, to *models.Station
	for i := range all {
		if all[i].ID == fromID {
			from = &all[i]
		}
		if all[i].ID == toID {
			to = &all[i]
		}
	}
	if from == nil || to == nil {
		return models.Station{}, models.Station{}, domain.InvalidSegmentError{Reason: domain.ReasonStationNotFound}
	}
	if fromID == toID {
		return models.Station{}, models.Station{}, domain.InvalidSegmentError{Reason: domain.ReasonSameStation}
	}
	return *from, *to, nil
}
