package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"railticket/internal/clock"
	"railticket/internal/domain/models"
	"railticket/internal/repositories"

	"golang.org/x/exp/slices"
)

// DefaultCancelGrace keeps a cancelled trip visible in search so the notice is seen.
const DefaultCancelGrace = time.Hour

// TripQuery is a search request. Nil stations and a nil date mean "any".
type TripQuery struct {
	From *models.Station
	To   *models.Station
	Date *time.Time
}

// TripFinder matches requested stations against trips whose route covers them in the
// direction of travel.
type TripFinder struct {
	Trips       TripStore
	Clock       clock.Clock
	Location    *time.Location
	CancelGrace time.Duration
}

func (f TripFinder) grace() time.Duration {
	if f.CancelGrace > 0 {
		return f.CancelGrace
	}
	return DefaultCancelGrace
}

func (f TripFinder) location() *time.Location {
	if f.Location != nil {
		return f.Location
	}
	return time.UTC
}

// FindUpcoming returns matching trips ordered by departure time.
func (f TripFinder) FindUpcoming(ctx context.Context, q TripQuery) ([]models.Trip, error) {
	filter := repositories.TripFilter{}
	switch {
	case q.From != nil:
		filter.StationID = &q.From.ID
	case q.To != nil:
		filter.StationID = &q.To.ID
	}
	candidates, err := f.Trips.ListTrips(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find upcoming trips: %w", err)
	}

	now := f.Clock.Now()
	out := []models.Trip{}
	for _, t := range candidates {
		if !coversRequest(t, q.From, q.To) {
			continue
		}
		if !visible(t, now, q.Date, f.location(), f.grace()) {
			continue
		}
		out = append(out, t)
	}
	slices.SortStableFunc(out, func(a, b models.Trip) int {
		if c := a.DepartureTime.Compare(b.DepartureTime); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return out, nil
}

// coversRequest applies the direction, containment and skipped-station rules.
func coversRequest(t models.Trip, from, to *models.Station) bool {
	if from != nil && t.Skips(from.ID) {
		return false
	}
	if to != nil && t.Skips(to.ID) {
		return false
	}

	tf, tt := t.FromStation.Order, t.ToStation.Order
	switch {
	case from != nil && to != nil:
		rf, rt := from.Order, to.Order
		switch {
		case rf < rt:
			return tf < tt && tf <= rf && tt >= rt
		case rf > rt:
			return tf > tt && tf >= rf && tt <= rt
		default:
			return false
		}
	case from != nil:
		s := from.Order
		// Boards at s with at least one station left in the direction of travel.
		return (tf <= s && tt > s) || (tf >= s && tt < s)
	case to != nil:
		s := to.Order
		// Alights at s having come from at least one station before it.
		return (tt >= s && tf < s) || (tt <= s && tf > s)
	default:
		return true
	}
}

// visible applies the "not in the past" rule, the date window and the cancellation grace.
func visible(t models.Trip, now time.Time, date *time.Time, loc *time.Location, grace time.Duration) bool {
	recentlyCancelled := t.Status == models.TripCancelled && t.CancelledAt != nil && !t.CancelledAt.Before(now.Add(-grace))
	upcoming := !t.DepartureTime.Before(now) && t.Status != models.TripCompleted

	if date == nil {
		return upcoming || recentlyCancelled
	}

	start, end := clock.DayBounds(*date, loc)
	onDay := func(ts time.Time) bool { return !ts.Before(start) && ts.Before(end) }
	return (upcoming && onDay(t.DepartureTime)) ||
		(recentlyCancelled && onDay(*t.CancelledAt))
}
