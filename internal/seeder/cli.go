package seeder

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/paddock/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging initializes the logger. When logFile is set, output goes to
// both stdout and the file; the returned func closes it.
func SetupLogging(logFile string, verbose bool) (func(), error) {
	var w io.Writer = os.Stdout
	closeFn := func() {}

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return closeFn, fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
		closeFn = func() { _ = file.Close() }
	}

	if err := logger.Init(logger.WithWriter(w)); err != nil {
		closeFn()
		return func() {}, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	if logFile != "" {
		logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	}
	return closeFn, nil
}

// ShowHelp prints usage information for the seeding tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Paddock Activity Seeder
=======================

Generates horses and training activities, submits them to a running paddock
service and checks the recovery recommendations it returns.

Usage:
  go run ./cmd/seed-activities [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -horses int
        Number of horses to generate (default 50)
  -activities int
        Activities per horse (default 5)
  -days int
        Lookback window in days (default 7)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 10s)
  -drain-timeout duration
        How long to wait for the service to store everything (default 2m)
  -seed uint
        Random seed (default: current time)
  -output string
        Write the generated activities to this JSON file
  -log string
        Also write logs to this file
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  go run ./cmd/seed-activities -horses 500 -activities 10
  go run ./cmd/seed-activities -url http://localhost:8080 -days 14 -verbose
`)
}
