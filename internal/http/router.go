package api

import (
	stdhttp "net/http"

	intconfig "railticket/internal/config"
	h "railticket/internal/http/handlers"
	"railticket/internal/http/middleware"
	"railticket/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// NewRouter mounts the API on a fresh engine. collector may be nil.
func NewRouter(env intconfig.Env, hs *h.Handlers, collector *metrics.Collector) *gin.Engine {
	var obs middleware.RequestObserver
	if collector != nil {
		obs = collector
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(obs), gin.Recovery(), middleware.CORS(env.CORSAllowedOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Warn().Err(err).Msg("failed to set trusted proxies")
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	if collector != nil {
		r.GET("/metrics", gin.WrapH(collector.Handler()))
	}

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)
		api.GET("/routes", h.Routes)

		api.GET("/stations", hs.ListStations)

		// Trips
		trips := api.Group("/trips")
		trips.GET("", hs.SearchTrips)
		trips.GET("/:id", hs.GetTrip)
		trips.GET("/:id/quote", hs.QuoteTrip)
		trips.GET("/:id/seats", hs.TakenSeats)

		// Trip operations
		operator := trips.Group("", middleware.RequireAuth(env.JWTSecret), middleware.RequireRoles("operator", "admin"))
		operator.POST("/estimate", hs.EstimateTrip)
		operator.PUT("/:id/status", hs.SetTripStatus)

		// Bookings, owner scoped
		bookings := api.Group("/bookings", middleware.RequireAuth(env.JWTSecret))
		bookings.POST("", hs.CreateBooking)
		bookings.GET("", hs.ListMyBookings)
		bookings.POST("/confirm", hs.ConfirmBookings)
		bookings.GET("/:id", hs.GetBooking)
		bookings.GET("/:id/refund", hs.RefundQuote)
		bookings.POST("/:id/cancel", hs.CancelBooking)
		bookings.DELETE("/:id", hs.DeleteBooking)
	}

	h.SetRouter(r)
	return r
}
