package handlers

import (
	"net/http"
	"sync"

	intconfig "railticket/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var (
	routerMu sync.RWMutex
	router   *gin.Engine
)

// SetRouter stores the active gin engine for later inspection (e.g., /api/routes).
func SetRouter(r *gin.Engine) {
	routerMu.Lock()
	defer routerMu.Unlock()
	router = r
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "railticket is running"})
}

func DBCheck(c *gin.Context) {
	if err := intconfig.EnsureDB(); err != nil {
		log.Warn().Err(err).Msg("db check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database is not reachable"})
		return
	}
	var count int
	err := intconfig.DB.QueryRowContext(c.Request.Context(), "SELECT COUNT(*) FROM stations").Scan(&count)
	if err != nil {
		log.Warn().Err(err).Msg("db check query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "database OK", "stations_in_db": count})
}

func Routes(c *gin.Context) {
	routerMu.RLock()
	r := router
	routerMu.RUnlock()
	if r == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "router is not ready"})
		return
	}

	routes := r.Routes()
	out := make([]gin.H, 0, len(routes))
	for _, rt := range routes {
		out = append(out, gin.H{
			"method":  rt.Method,
			"path":    rt.Path,
			"handler": rt.Handler,
		})
	}
	c.JSON(http.StatusOK, gin.H{"routes": out})
}
