package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequestMetrics counts requests by route pattern and status code.
func RequestMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		code := c.Response().Status
		if err != nil {
			code = http.StatusInternalServerError
			var he *echo.HTTPError
			if errors.As(err, &he) {
				code = he.Code
			}
		}
		c.(*AppContext).App.Metrics.ObserveRequest(c.Path(), code)
		return err
	}
}
