package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/pulse/internal/server/middleware"
	"github.com/OFFIS-RIT/pulse/pkg/common"
)

func GetTimelineHandler(c echo.Context) error {
	type getTimelineParams struct {
		Type string `query:"type" validate:"omitempty,oneof=email meeting"`
	}

	params := new(getTimelineParams)
	if ok, err := bindParams(c, params); !ok {
		return err
	}

	tl := middleware.Report(c).Timeline
	if tl == nil {
		return c.JSON(http.StatusOK, []common.TimelineEntry{})
	}
	if params.Type != "" {
		return c.JSON(http.StatusOK, list(tl.Filter(common.EventType(params.Type))))
	}
	return c.JSON(http.StatusOK, list(tl.Entries()))
}

func GetParticipationHandler(c echo.Context) error {
	report := middleware.Report(c)
	return c.JSON(http.StatusOK, map[string]any{
		"participants":  list(report.ParticipantStats),
		"participation": list(report.Participation),
	})
}
