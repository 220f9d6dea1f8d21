package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GET /api/stations
func (h *Handlers) ListStations(c *gin.Context) {
	stations, err := h.Stations.ListStations(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, stations)
}
