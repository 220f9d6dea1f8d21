// Package metrics exposes the service's Prometheus collectors on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	HTTPRequests *prometheus.CounterVec   // method, route, status
	HTTPDuration *prometheus.HistogramVec // method, route

	BookingEvents      *prometheus.CounterVec // action, outcome
	GeometryFallbacks  *prometheus.CounterVec // kind
	StationCacheLookup *prometheus.CounterVec // result: hit|miss|error
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railticket_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "railticket_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"method", "route"}),
		BookingEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railticket_booking_events_total",
			Help: "Booking operations by action and outcome.",
		}, []string{"action", "outcome"}),
		GeometryFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railticket_geometry_fallbacks_total",
			Help: "Segment computations that fell back to a safe default.",
		}, []string{"kind"}),
		StationCacheLookup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railticket_station_cache_lookups_total",
			Help: "Station cache lookups by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.HTTPRequests, c.HTTPDuration,
		c.BookingEvents, c.GeometryFallbacks, c.StationCacheLookup,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

func (c *Collector) GeometryFallback(kind string) {
	c.GeometryFallbacks.WithLabelValues(kind).Inc()
}

func (c *Collector) BookingEvent(action, outcome string) {
	c.BookingEvents.WithLabelValues(action, outcome).Inc()
}

func (c *Collector) CacheLookup(result string) {
	c.StationCacheLookup.WithLabelValues(result).Inc()
}

func (c *Collector) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
