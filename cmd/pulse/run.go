package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/OFFIS-RIT/pulse/internal/config"
	"github.com/OFFIS-RIT/pulse/internal/metrics"
	"github.com/OFFIS-RIT/pulse/internal/storage"
	"github.com/OFFIS-RIT/pulse/pkg/analysis"
	"github.com/OFFIS-RIT/pulse/pkg/loader"
	csvloader "github.com/OFFIS-RIT/pulse/pkg/loader/csv"
	ioloader "github.com/OFFIS-RIT/pulse/pkg/loader/io"
	"github.com/OFFIS-RIT/pulse/pkg/loader/records"
	s3loader "github.com/OFFIS-RIT/pulse/pkg/loader/s3"
	"github.com/OFFIS-RIT/pulse/pkg/logger"
	"github.com/OFFIS-RIT/pulse/pkg/logger/console"
	"github.com/OFFIS-RIT/pulse/pkg/logger/file"
)

const logFileName = "analysis.log"

// loadConfig layers the command line flags over config.Load.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if cmd.Flags().Changed("parallelism") {
		cfg.Parallelism = parallelism
	}
	if cmd.Flags().Changed("out") {
		cfg.OutputDir = outputDir
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = port
	}
	return cfg, cfg.Validate()
}

// initLogger logs to the console and, when dir is set, to dir/analysis.log.
func initLogger(dir string) error {
	instances := []logger.LoggerInstance{
		console.NewConsoleLogger(console.ConsoleLoggerParams{Debug: debug}),
	}
	if dir != "" {
		fileLogger, err := file.NewFileLogger(file.FileLoggerParams{
			Path:  filepath.Join(dir, logFileName),
			Debug: debug,
		})
		if err != nil {
			return err
		}
		instances = append(instances, fileLogger)
	}
	logger.Init(instances...)
	return nil
}

// newFileLoader picks the local filesystem or the configured bucket.
func newFileLoader(ctx context.Context, cfg config.Config) (loader.FileLoader, error) {
	if !inputFromS3 {
		return ioloader.NewIOFileLoader(), nil
	}
	if !cfg.S3.Enabled() {
		return nil, fmt.Errorf("--input-s3 needs AWS_BUCKET or s3.bucket to be set")
	}
	client, err := storage.NewS3Client(ctx, cfg.S3)
	if err != nil {
		return nil, err
	}
	return s3loader.NewS3FileLoaderWithClient(cfg.S3.Bucket, client), nil
}

// analyze loads the input files and runs every detector.
func analyze(ctx context.Context, cfg config.Config, m *metrics.Metrics) (*analysis.Report, error) {
	fl, err := newFileLoader(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if csvloader.IsCSV(emailsPath) {
		fl = csvloader.NewCSVFileLoader(fl)
	}

	dataset, err := records.Load(
		ctx,
		loader.NewEmailSource(loader.NewSourceFileParams{ID: "emails", Path: emailsPath, Loader: fl}),
		loader.NewCalendarSource(loader.NewSourceFileParams{ID: "calendar", Path: calendarPath, Loader: fl}),
	)
	if err != nil {
		return nil, err
	}
	m.AddRecords(string(loader.SourceKindEmails), len(dataset.Emails))
	m.AddRecords(string(loader.SourceKindCalendar), len(dataset.Meetings))

	return analysis.NewAnalyzer(cfg.AnalyzerParams(m)).Run(ctx, dataset.Emails, dataset.Meetings)
}
