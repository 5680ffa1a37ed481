package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/OFFIS-RIT/pulse/internal/metrics"
	"github.com/OFFIS-RIT/pulse/internal/server"
	mid "github.com/OFFIS-RIT/pulse/internal/server/middleware"
	"github.com/OFFIS-RIT/pulse/pkg/logger"
)

var port string

func init() {
	serveCmd.Flags().StringVarP(&port, "port", "p", "8080", "port to listen on")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Analyze once and serve the results over HTTP",
	Long: `Run the analysis once at startup and expose the results through a
read-only JSON API. Set API_KEY to require an X-API-Key header.

Examples:
  pulse serve --emails emails.json --calendar calendar.json --port 9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := initLogger(""); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewMetrics()
	report, err := analyze(ctx, cfg, m)
	if err != nil {
		logger.Error("[Serve] Analysis failed", "err", err)
		return err
	}

	e := server.New(&mid.App{
		Report:  report,
		APIKey:  cfg.Server.APIKey,
		Metrics: m,
	})
	return server.Start(ctx, e, cfg.Server.Port)
}
