package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/paddock/internal/seeder"
)

// Default configuration constants.
const (
	defaultHorses       = 50
	defaultActivities   = 5
	defaultDays         = 7
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 10 * time.Second
	defaultDrainTimeout = 2 * time.Minute
	defaultRunTimeout   = 10 * time.Minute
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:9080", "Base URL of the service")
		horses       = flag.Int("horses", defaultHorses, "Number of horses to generate")
		activities   = flag.Int("activities", defaultActivities, "Activities per horse")
		days         = flag.Int("days", defaultDays, "Lookback window in days")
		workers      = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		drainTimeout = flag.Duration("drain-timeout", defaultDrainTimeout, "How long to wait for the service to store everything")
		seed         = flag.Uint64("seed", 0, "Random seed (default: current time)")
		outputFile   = flag.String("output", "", "Write the generated activities to this JSON file")
		logFile      = flag.String("log", "", "Also write logs to this file")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
		help         = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seeder.ShowHelp()
		return
	}

	closeLog, err := seeder.SetupLogging(*logFile, *verbose)
	if err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)

	_, err = seeder.Run(ctx, &seeder.Config{
		BaseURL:            *baseURL,
		Horses:             *horses,
		ActivitiesPerHorse: *activities,
		Days:               *days,
		Workers:            *workers,
		Timeout:            *timeout,
		DrainTimeout:       *drainTimeout,
		Seed:               *seed,
		OutputFile:         *outputFile,
		Verbose:            *verbose,
	})
	stop()
	cancel()
	closeLog()
	if err != nil {
		_, _ = os.Stderr.WriteString("Seeding failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
