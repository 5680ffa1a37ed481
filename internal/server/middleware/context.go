package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/pulse/internal/metrics"
	"github.com/OFFIS-RIT/pulse/pkg/analysis"
)

// App is the state shared by every request.
type App struct {
	Report  *analysis.Report
	APIKey  string
	Metrics *metrics.Metrics
}

type AppContext struct {
	echo.Context
	App *App
}

// AppContextMiddleware wraps every request context in an AppContext.
func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}

// Report returns the report behind a request.
func Report(c echo.Context) *analysis.Report {
	return c.(*AppContext).App.Report
}
