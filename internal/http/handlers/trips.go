package handlers

import (
	"net/http"
	"time"

	"railticket/internal/domain"
	"railticket/internal/domain/models"
	"railticket/internal/services"

	"github.com/gin-gonic/gin"
)

type EstimateRequest struct {
	FromStationID string    `json:"from_station_id" binding:"required"`
	ToStationID   string    `json:"to_station_id" binding:"required"`
	DepartureTime time.Time `json:"departure_time"`
	TrainID       string    `json:"train_id"`
	SpeedKmh      float64   `json:"speed_kmh"`
}

type TripStatusRequest struct {
	Status       string `json:"status" binding:"required"`
	DelayMinutes *int   `json:"delay_minutes"`
}

// GET /api/trips?from_station_id&to_station_id&date
func (h *Handlers) SearchTrips(c *gin.Context) {
	var p services.SearchParams
	var err error
	if p.FromStationID, err = optionalID(c, "from_station_id"); err != nil {
		RespondDomainError(c, err)
		return
	}
	if p.ToStationID, err = optionalID(c, "to_station_id"); err != nil {
		RespondDomainError(c, err)
		return
	}
	if p.Date, err = optionalDate(c, "date", h.Location); err != nil {
		RespondDomainError(c, err)
		return
	}

	views, err := h.Trips.Search(c.Request.Context(), p)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// GET /api/trips/:id
func (h *Handlers) GetTrip(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	trip, err := h.Trips.Get(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

// GET /api/trips/:id/quote?from_station_id&to_station_id
func (h *Handlers) QuoteTrip(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	from, to, ok := segmentQuery(c)
	if !ok {
		return
	}
	q, err := h.Bookings.Quote(c.Request.Context(), id, from, to)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// GET /api/trips/:id/seats?from_station_id&to_station_id
func (h *Handlers) TakenSeats(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	from, to, ok := segmentQuery(c)
	if !ok {
		return
	}
	seats, err := h.Bookings.TakenSeats(c.Request.Context(), id, from, to)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip_id": id, "taken_seats": seats})
}

// POST /api/trips/estimate
func (h *Handlers) EstimateTrip(c *gin.Context) {
	var req EstimateRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	from, err := parseID("from_station_id", req.FromStationID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	to, err := parseID("to_station_id", req.ToStationID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	speed := req.SpeedKmh
	if req.TrainID != "" {
		trainID, err := parseID("train_id", req.TrainID)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		train, err := h.Trains.GetTrain(c.Request.Context(), trainID)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		speed = float64(train.SpeedKmh)
	}

	est, err := h.Trips.EstimateArrival(c.Request.Context(), services.EstimateParams{
		FromStationID: from,
		ToStationID:   to,
		Departure:     req.DepartureTime,
		SpeedKmh:      speed,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, est)
}

// PUT /api/trips/:id/status
func (h *Handlers) SetTripStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req TripStatusRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	status, err := models.ParseTripStatus(req.Status)
	if err != nil {
		RespondDomainError(c, domain.ValidationError{Field: "status", Msg: err.Error()})
		return
	}
	trip, err := h.Trips.SetStatus(c.Request.Context(), id, status, req.DelayMinutes)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}
