package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/pulse/internal/server/middleware"
	"github.com/OFFIS-RIT/pulse/pkg/analysis/influence"
)

const defaultConnectors = 5

func GetInfluenceHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, list(middleware.Report(c).Influence))
}

func GetConnectorsHandler(c echo.Context) error {
	type getConnectorsParams struct {
		Top int `query:"top" validate:"gte=0,lte=1000"`
	}

	params := new(getConnectorsParams)
	if ok, err := bindParams(c, params); !ok {
		return err
	}
	if params.Top == 0 {
		params.Top = defaultConnectors
	}

	connectors := influence.KeyConnectors(middleware.Report(c).Influence, params.Top)
	return c.JSON(http.StatusOK, list(connectors))
}

func GetLeadersHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, influence.TeamLeaders(middleware.Report(c).Influence))
}
