// internal/server/middleware.go
package server

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

const metricRequests = "http.requests.total"

// metricsMiddleware counts requests and records their latency per route and status.
func (s *Server) metricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			ctx := c.Request().Context()
			route := c.Path()
			status := strconv.Itoa(c.Response().Status)

			s.metrics.Increment(ctx, metricRequests, 1,
				"method", c.Request().Method,
				"route", route,
				"status", status,
			)
			if err := s.metrics.RecordLatency(ctx, time.Since(start),
				"method", c.Request().Method,
				"route", route,
				"status", status,
			); err != nil {
				s.logger.ErrorCtx(ctx, err)
			}
			return nil
		}
	}
}
