package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIKeyHeader carries the key when one is configured.
const APIKeyHeader = "X-API-Key"

// AuthMiddleware rejects requests without the configured API key. Without
// a configured key every request passes.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		expected := c.(*AppContext).App.APIKey
		if expected == "" {
			return next(c)
		}

		key := c.Request().Header.Get(APIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}
		return next(c)
	}
}
