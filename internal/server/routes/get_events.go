package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/pulse/internal/server/middleware"
	"github.com/OFFIS-RIT/pulse/pkg/analysis/handoff"
	"github.com/OFFIS-RIT/pulse/pkg/analysis/milestone"
)

func GetBurstsHandler(c echo.Context) error {
	report := middleware.Report(c)
	return c.JSON(http.StatusOK, map[string]any{
		"params": report.BurstParams,
		"bursts": list(report.Bursts),
	})
}

func GetMilestonesHandler(c echo.Context) error {
	type getMilestonesParams struct {
		Type string `query:"type" validate:"omitempty,oneof=decision_point deliverable planning_phase"`
	}

	params := new(getMilestonesParams)
	if ok, err := bindParams(c, params); !ok {
		return err
	}

	milestones := middleware.Report(c).Milestones
	if params.Type == "" {
		return c.JSON(http.StatusOK, list(milestones))
	}
	res := []milestone.Milestone{}
	for _, m := range milestones {
		if m.Type == milestone.Type(params.Type) {
			res = append(res, m)
		}
	}
	return c.JSON(http.StatusOK, res)
}

func GetPhasesHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, list(middleware.Report(c).Phases))
}

func GetHandoffsHandler(c echo.Context) error {
	type getHandoffsParams struct {
		Type string `query:"type" validate:"omitempty,oneof=gap_resumption team_expansion team_turnover departure"`
	}

	params := new(getHandoffsParams)
	if ok, err := bindParams(c, params); !ok {
		return err
	}

	handoffs := middleware.Report(c).Handoffs
	if params.Type == "" {
		return c.JSON(http.StatusOK, list(handoffs))
	}
	res := []handoff.Handoff{}
	for _, h := range handoffs {
		if h.Type == handoff.Type(params.Type) {
			res = append(res, h)
		}
	}
	return c.JSON(http.StatusOK, res)
}

func GetRoleTransitionsHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, list(middleware.Report(c).RoleTransitions))
}
