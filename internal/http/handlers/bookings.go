package handlers

import (
	"net/http"

	"railticket/internal/domain"
	"railticket/internal/domain/models"
	"railticket/internal/http/middleware"
	"railticket/internal/services"
	"railticket/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateBookingRequest accepts seats as a JSON list or as "1,2,3" in seat_numbers.
type CreateBookingRequest struct {
	TripID         string `json:"trip_id" binding:"required"`
	FromStationID  string `json:"from_station_id" binding:"required"`
	ToStationID    string `json:"to_station_id" binding:"required"`
	Seats          []int  `json:"seats"`
	SeatNumbers    string `json:"seat_numbers"`
	PassengerName  string `json:"passenger_name"`
	PassengerPhone string `json:"passenger_phone"`
}

type ConfirmBookingsRequest struct {
	BookingIDs []string `json:"booking_ids" binding:"required"`
}

type CreateBookingResponse struct {
	Bookings []models.Booking `json:"bookings"`
	Total    models.Money     `json:"total"`
}

func (r CreateBookingRequest) input(userID string) (services.CreateBookingInput, error) {
	in := services.CreateBookingInput{
		UserID:         userID,
		Seats:          r.Seats,
		PassengerName:  utils.NormalizeSpace(r.PassengerName),
		PassengerPhone: utils.TrimOrEmpty(r.PassengerPhone),
	}
	var err error
	if in.TripID, err = parseID("trip_id", r.TripID); err != nil {
		return in, err
	}
	if in.FromStationID, err = parseID("from_station_id", r.FromStationID); err != nil {
		return in, err
	}
	if in.ToStationID, err = parseID("to_station_id", r.ToStationID); err != nil {
		return in, err
	}
	if len(in.Seats) == 0 && r.SeatNumbers != "" {
		if in.Seats, err = utils.ParseSeatNumbers(r.SeatNumbers); err != nil {
			return in, domain.ValidationError{Field: "seat_numbers", Msg: err.Error()}
		}
	}
	return in, nil
}

// POST /api/bookings
func (h *Handlers) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	in, err := req.input(middleware.GetUserID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	bookings, err := h.Bookings.Create(c.Request.Context(), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	var total models.Money
	for _, b := range bookings {
		total += b.Price
	}
	utils.LogEvent(middleware.GetRequestID(c), "booking", "create",
		"reserved "+utils.FormatMoney(total)+" on trip "+in.TripID.String())
	c.JSON(http.StatusCreated, CreateBookingResponse{Bookings: bookings, Total: total})
}

// GET /api/bookings
func (h *Handlers) ListMyBookings(c *gin.Context) {
	bookings, err := h.Bookings.ListMine(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// GET /api/bookings/:id
func (h *Handlers) GetBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	b, err := h.Bookings.Get(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// POST /api/bookings/confirm
func (h *Handlers) ConfirmBookings(c *gin.Context) {
	var req ConfirmBookingsRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	ids := make([]uuid.UUID, 0, len(req.BookingIDs))
	for _, raw := range req.BookingIDs {
		id, err := parseID("booking_ids", raw)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		ids = append(ids, id)
	}

	confirmed, err := h.Bookings.Confirm(c.Request.Context(), middleware.GetUserID(c), ids)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	utils.LogEvent(middleware.GetRequestID(c), "booking", "confirm", "confirmed bookings")
	c.JSON(http.StatusOK, confirmed)
}

// GET /api/bookings/:id/refund
func (h *Handlers) RefundQuote(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	q, err := h.Bookings.RefundQuote(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// POST /api/bookings/:id/cancel
func (h *Handlers) CancelBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	q, err := h.Bookings.Cancel(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	utils.LogEvent(middleware.GetRequestID(c), "booking", "cancel",
		"cancelled booking "+id.String()+", refund "+utils.FormatMoney(q.Refund))
	c.JSON(http.StatusOK, q)
}

// DELETE /api/bookings/:id
func (h *Handlers) DeleteBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.Bookings.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
