package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OFFIS-RIT/pulse/internal/server/middleware"
	"github.com/OFFIS-RIT/pulse/internal/server/routes"
	"github.com/OFFIS-RIT/pulse/pkg/analysis"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	apiRoutes.GET("/summary", routes.GetSummaryHandler)
	apiRoutes.GET("/timeline", routes.GetTimelineHandler)
	apiRoutes.GET("/participation", routes.GetParticipationHandler)

	// Graph routes
	apiRoutes.GET("/graph", routes.GetGraphHandler)
	apiRoutes.GET("/graph/stats", routes.GetGraphStatsHandler)

	// Detector routes
	apiRoutes.GET("/bursts", routes.GetBurstsHandler, middleware.RequireDetector(analysis.DetectorBursts))
	apiRoutes.GET("/influence", routes.GetInfluenceHandler, middleware.RequireDetector(analysis.DetectorInfluence))
	apiRoutes.GET("/influence/connectors", routes.GetConnectorsHandler, middleware.RequireDetector(analysis.DetectorInfluence))
	apiRoutes.GET("/influence/leaders", routes.GetLeadersHandler, middleware.RequireDetector(analysis.DetectorInfluence))
	apiRoutes.GET("/milestones", routes.GetMilestonesHandler, middleware.RequireDetector(analysis.DetectorMilestones))
	apiRoutes.GET("/phases", routes.GetPhasesHandler, middleware.RequireDetector(analysis.DetectorPhases))
	apiRoutes.GET("/handoffs", routes.GetHandoffsHandler, middleware.RequireDetector(analysis.DetectorHandoffs))
	apiRoutes.GET("/role-transitions", routes.GetRoleTransitionsHandler, middleware.RequireDetector(analysis.DetectorRoleTransitions))
}
