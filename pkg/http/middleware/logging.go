package middleware

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogging writes one line per request. Scrapes of /metrics are
// skipped so the poller does not flood the log.
func RequestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.URL.Path == "/metrics" {
				return next(c)
			}
			start := time.Now()

			err := next(c)

			res := c.Response()
			log.Printf("[%s] %s %s - %d %dB (%s)",
				req.Method,
				req.RequestURI,
				req.RemoteAddr,
				res.Status,
				res.Size,
				time.Since(start),
			)

			return err
		}
	}
}
