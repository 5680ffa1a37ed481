package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireDetector answers 503 when one of the detectors failed during the
// analysis run.
func RequireDetector(detectors ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			report := Report(c)
			for _, name := range detectors {
				if report.Failed(name) {
					return c.JSON(http.StatusServiceUnavailable, map[string]string{
						"error": "Detector " + name + " failed: " + report.Errors[name],
					})
				}
			}
			return next(c)
		}
	}
}
