package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/OFFIS-RIT/pulse/internal/metrics"
	"github.com/OFFIS-RIT/pulse/internal/storage"
	"github.com/OFFIS-RIT/pulse/pkg/export"
	"github.com/OFFIS-RIT/pulse/pkg/logger"
)

var (
	outputDir string
	uploadS3  bool
	quiet     bool
)

func init() {
	analyzeCmd.Flags().StringVarP(&outputDir, "out", "o", "outputs", "directory for the exported tables")
	analyzeCmd.Flags().BoolVar(&uploadS3, "s3", false, "also upload the exports to the configured S3 bucket")
	analyzeCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the summary report")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the analysis and export the results",
	Long: `Load email threads and calendar meetings, run every detector and write
the results as CSV and JSON files.

Examples:
  # Analyze local files into ./outputs
  pulse analyze --emails emails.json --calendar calendar.json

  # Run detectors in parallel and upload the exports to S3
  pulse analyze --parallelism 4 --s3`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("Failed to create output directory:\n%w", err)
	}
	if err := initLogger(cfg.OutputDir); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewMetrics()
	report, err := analyze(ctx, cfg, m)
	if err != nil {
		logger.Error("[Analyze] Analysis failed", "err", err)
		return err
	}

	written, err := export.Write(ctx, export.NewDirSink(cfg.OutputDir), report)
	if err != nil {
		return err
	}
	for _, name := range written {
		logger.Debug("[Analyze] Exported", "file", name)
	}

	if uploadS3 {
		if !cfg.S3.Enabled() {
			return fmt.Errorf("--s3 needs AWS_BUCKET or s3.bucket to be set")
		}
		client, err := storage.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return err
		}
		prefix := storage.RunPrefix(report.RunID)
		sink := storage.NewS3Sink(client, cfg.S3.Bucket, prefix)
		if _, err := export.Write(ctx, sink, report); err != nil {
			return err
		}
		logger.Info("[Analyze] Uploaded exports", "bucket", cfg.S3.Bucket, "prefix", prefix)

		if cfg.S3.PublicEndpoint != "" {
			link, err := storage.GenerateDownloadLink(ctx, client, cfg.S3, sink.Key(export.FileReport))
			if err != nil {
				logger.Warn("[Analyze] Failed to create download link", "err", err)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Report: %s\n", link)
			}
		}
	}

	if len(report.Errors) > 0 {
		logger.Warn("[Analyze] Some detectors failed", "errors", report.Errors)
	}
	logger.Info("[Analyze] Analysis complete", "run", report.RunID, "out", cfg.OutputDir, "files", len(written))
	if !quiet {
		fmt.Fprint(cmd.OutOrStdout(), report.Text())
	}
	return nil
}
