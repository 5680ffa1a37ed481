package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// bindParams binds and validates query parameters into params. On failure
// it writes the 400 response and returns false.
func bindParams(c echo.Context, params any) (bool, error) {
	if err := c.Bind(params); err != nil {
		return false, c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return false, c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	return true, nil
}

// list keeps empty results encoded as [] instead of null.
func list[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
