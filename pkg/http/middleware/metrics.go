package middleware

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpMetricsOnce sync.Once

	httpReqs     *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	httpInFlight *prometheus.GaugeVec
	httpRespSize *prometheus.HistogramVec
)

func initHTTPMetrics() {
	httpMetricsOnce.Do(func() {
		httpReqs = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"route", "method", "status"})
		httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status", "class"})
		httpInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "Current number of in-flight HTTP requests",
		}, []string{"route", "method"})
		httpRespSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}, []string{"route", "method", "status", "class"})
	})
}

// Metrics records a request counter, latency and size histograms, and an
// in-flight gauge for every route. Labels use the registered route
// template (/api/v1/signal/:symbol), not the raw URL, so cardinality
// stays bounded. Requests slower than slowThreshold are logged.
func Metrics(slowThreshold time.Duration) echo.MiddlewareFunc {
	initHTTPMetrics()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			method := c.Request().Method

			httpInFlight.WithLabelValues(route, method).Inc()
			start := time.Now()

			err := next(c)

			// The error handler has not run yet, so take the status
			// from the error when there is one.
			code := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					code = he.Code
				} else {
					code = http.StatusInternalServerError
				}
			}

			status := strconv.Itoa(code)
			class := statusClass(code)
			dur := time.Since(start)

			httpReqs.WithLabelValues(route, method, status).Inc()
			httpLatency.WithLabelValues(route, method, status, class).Observe(dur.Seconds())
			httpRespSize.WithLabelValues(route, method, status, class).Observe(float64(c.Response().Size))
			httpInFlight.WithLabelValues(route, method).Dec()

			if slowThreshold > 0 && dur >= slowThreshold {
				log.Printf("[SLOW] %s %s - %s (%s)", method, route, status, dur)
			}

			return err
		}
	}
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "5xx"
	}
	return strconv.Itoa(code/100) + "xx"
}
