// Package main implements the pulse CLI: analyze communication records,
// serve the results over HTTP and print input schemas.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/OFFIS-RIT/pulse/internal/util"
	"github.com/OFFIS-RIT/pulse/pkg/logger"
)

var (
	// configPath points at an optional YAML config file
	configPath   string
	debug        bool
	parallelism  int
	emailsPath   string
	calendarPath string
	// inputFromS3 reads the input paths as keys in the configured bucket
	inputFromS3 bool

	version = "dev"
)

func main() {
	err := rootCmd.Execute()
	logger.Close()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Collaboration timeline analysis for email and calendar data",
	Long: `pulse merges email threads and calendar meetings into one timeline,
builds a collaboration graph and detects bursts, influence, milestones,
phase transitions and handoffs.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		util.LoadEnv()
		applyEnvDefaults(cmd)
	},
}

// applyEnvDefaults fills flags whose default comes from the environment.
// It runs after LoadEnv so values from .env count.
func applyEnvDefaults(cmd *cobra.Command) {
	if f := cmd.Flag("debug"); f == nil || !f.Changed {
		debug = util.GetEnvBool("DEBUG", false)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (defaults to $PULSE_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging (defaults to $DEBUG)")
	rootCmd.PersistentFlags().IntVar(&parallelism, "parallelism", 0, "number of detectors run at once")

	for _, cmd := range []*cobra.Command{analyzeCmd, serveCmd} {
		cmd.Flags().StringVar(&emailsPath, "emails", "email_threads.json", "email threads JSON or CSV file")
		cmd.Flags().StringVar(&calendarPath, "calendar", "calendar.json", "calendar JSON file")
		cmd.Flags().BoolVar(&inputFromS3, "input-s3", false, "read the input files from the configured S3 bucket")
	}

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(schemaCmd)
}
