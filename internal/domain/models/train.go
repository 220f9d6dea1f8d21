package models

import "github.com/google/uuid"

// Train is the rolling stock assigned to a trip.
type Train struct {
	ID          uuid.UUID `json:"id"`
	TrainNumber string    `json:"train_number"`
	Type        string    `json:"type"`
	SpeedKmh    int       `json:"speed_kmh"`
	TotalSeats  int       `json:"total_seats"`
}
