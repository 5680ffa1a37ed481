package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/pulse/internal/server/middleware"
	"github.com/OFFIS-RIT/pulse/pkg/graph"
)

func GetGraphHandler(c echo.Context) error {
	g := middleware.Report(c).Graph
	if g == nil {
		g = graph.New()
	}
	return c.JSON(http.StatusOK, g.ToNodeLink())
}

func GetGraphStatsHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, middleware.Report(c).GraphStats)
}
