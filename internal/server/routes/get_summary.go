package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/pulse/internal/server/middleware"
)

func GetSummaryHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, middleware.Report(c).Overview())
}
