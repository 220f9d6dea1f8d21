// Package route holds the pure geometry of a linear line: station ordering,
// distances along the line, pro-rated segment prices and virtual segment times.
package route

import (
	"railticket/internal/domain/models"

	"golang.org/x/exp/slices"
)

// OrderedStations returns every station whose Order lies in the closed range between
// a and b, walking from a towards b. When a and b share an Order the result has a single
// element: a zero-length segment.
func OrderedStations(all []models.Station, a, b models.Station) []models.Station {
	if a.Order == b.Order {
		return []models.Station{a}
	}
	lo, hi := a.Order, b.Order
	forward := lo < hi
	if !forward {
		lo, hi = hi, lo
	}

	out := make([]models.Station, 0, hi-lo+1)
	for _, s := range all {
		if s.Order >= lo && s.Order <= hi {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(x, y models.Station) int {
		if forward {
			return x.Order - y.Order
		}
		return y.Order - x.Order
	})
	return out
}

// IntermediateCount counts stations strictly between a and b by Order.
func IntermediateCount(all []models.Station, a, b models.Station) int {
	lo, hi := a.Order, b.Order
	if lo > hi {
		lo, hi = hi, lo
	}
	n := 0
	for _, s := range all {
		if s.Order > lo && s.Order < hi {
			n++
		}
	}
	return n
}
