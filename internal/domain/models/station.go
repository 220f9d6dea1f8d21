package models

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

// Station is shared reference data. Order is the station's fixed position on the line.
type Station struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Order     int       `json:"order"`
}

// StationSet is a set of station ids.
type StationSet map[uuid.UUID]struct{}

func NewStationSet(ids ...uuid.UUID) StationSet {
	s := make(StationSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s StationSet) Has(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the members in a stable order.
func (s StationSet) IDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.SortFunc(out, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	return out
}

func (s StationSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

func (s *StationSet) UnmarshalJSON(b []byte) error {
	var ids []uuid.UUID
	if err := json.Unmarshal(b, &ids); err != nil {
		return err
	}
	*s = NewStationSet(ids...)
	return nil
}
