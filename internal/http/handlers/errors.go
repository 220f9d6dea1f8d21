package handlers

import (
	"net/http"

	"railticket/internal/domain"
	"railticket/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func respondError(c *gin.Context, status int, code, reason, message string) {
	if code == "" {
		code = http.StatusText(status)
	}
	c.JSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		Reason:    reason,
		RequestID: middleware.GetRequestID(c),
	})
}

// RespondDomainError maps domain errors to HTTP responses.
func RespondDomainError(c *gin.Context, err error) {
	if seg, ok := domain.AsInvalidSegment(err); ok {
		status := http.StatusBadRequest
		if seg.Reason == domain.ReasonStationNotFound {
			status = http.StatusNotFound
		}
		respondError(c, status, "invalid_segment", string(seg.Reason), seg.Error())
		return
	}

	switch {
	case domain.IsSeatConflict(err):
		respondError(c, http.StatusConflict, "seat_conflict", "", err.Error())
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, "validation_error", "", err.Error())
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", "", err.Error())
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "conflict", "", err.Error())
	case domain.IsInternal(err):
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).
			Str("path", c.Request.URL.Path).Msg("request failed")
		respondError(c, http.StatusServiceUnavailable, "unavailable", "", err.Error())
	default:
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).
			Str("path", c.Request.URL.Path).Msg("request failed")
		respondError(c, http.StatusInternalServerError, "internal_error", "", "internal error")
	}
}
