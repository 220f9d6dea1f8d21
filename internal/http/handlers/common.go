package handlers

import (
	"strings"
	"time"

	"railticket/internal/domain"
	"railticket/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		RespondDomainError(c, domain.ValidationError{Msg: "request body is empty"})
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		RespondDomainError(c, domain.ValidationError{Msg: "invalid payload", Err: err})
		return false
	}
	return true
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, domain.ValidationError{Field: field, Msg: "must be a UUID", Err: err}
	}
	return id, nil
}

// pathID parses the :id route parameter.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := parseID("id", c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return uuid.Nil, false
	}
	return id, true
}

// optionalID parses a query parameter that may be absent.
func optionalID(c *gin.Context, key string) (*uuid.UUID, error) {
	raw := utils.TrimOrEmpty(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	id, err := parseID(key, raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// requiredID parses a mandatory query parameter.
func requiredID(c *gin.Context, key string) (uuid.UUID, error) {
	id, err := optionalID(c, key)
	if err != nil {
		return uuid.Nil, err
	}
	if id == nil {
		return uuid.Nil, domain.ValidationError{Field: key, Msg: "required"}
	}
	return *id, nil
}

func optionalDate(c *gin.Context, key string, loc *time.Location) (*time.Time, error) {
	raw := utils.TrimOrEmpty(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	d, err := utils.ParseDate(raw, loc)
	if err != nil {
		return nil, domain.ValidationError{Field: key, Msg: "must be YYYY-MM-DD", Err: err}
	}
	return &d, nil
}

// segmentQuery reads the mandatory from_station_id/to_station_id pair.
func segmentQuery(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	from, err := requiredID(c, "from_station_id")
	if err != nil {
		RespondDomainError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	to, err := requiredID(c, "to_station_id")
	if err != nil {
		RespondDomainError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	return from, to, true
}
