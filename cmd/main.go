package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/okian/paddock/internal/adapters/http/api"
	"github.com/okian/paddock/internal/adapters/http/swagger"
	"github.com/okian/paddock/internal/adapters/mq/kafka"
	"github.com/okian/paddock/internal/adapters/repository"
	service "github.com/okian/paddock/internal/app"
	"github.com/okian/paddock/internal/config"
	"github.com/okian/paddock/pkg/logger"
	"github.com/okian/paddock/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr since the logger isn't configured yet
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}

	err = run(ctx, cfg)
	stop()
	_ = logger.Sync()
	if err != nil {
		logger.Get().Error(context.Background(), "paddock exited with error", logger.Error(err))
		os.Exit(1)
	}
}

// run starts every component and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	applyLogLevel(ctx, cfg.LogLevel)

	policy, err := cfg.RecoveryPolicy()
	if err != nil {
		return fmt.Errorf("recovery policy: %w", err)
	}

	store, err := repository.Open(ctx, cfg.StoreDriver, cfg.StoreDSN,
		repository.WithShardCount(cfg.ShardCount),
	)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn(ctx, "closing store", logger.Error(err))
		}
	}()
	log.Info(ctx, "activity store opened", logger.String("driver", cfg.StoreDriver))

	svc := service.New(
		service.WithLogger(logger.Named("service")),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithShardCount(cfg.ShardCount),
		service.WithMaxLookbackDays(cfg.MaxLookbackDays),
		service.WithRecoveryPolicy(policy),
		service.WithStore(store),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	// Background goroutines that feed the service must finish before Stop.
	var bg sync.WaitGroup
	defer bg.Wait()

	bgCtx, cancelBg := context.WithCancel(ctx)
	defer cancelBg()

	bg.Add(2)
	go func() { defer bg.Done(); startSystemMetricsUpdater(bgCtx) }()
	go func() { defer bg.Done(); startServiceMetricsUpdater(bgCtx, svc) }()

	if err := startKafkaConsumer(bgCtx, cfg, svc, &bg); err != nil {
		return err
	}

	if path := config.FilePath(); path != "" {
		bg.Add(1)
		go func() {
			defer bg.Done()
			err := config.Watch(bgCtx, path, func(next *config.Config) {
				applyReload(bgCtx, svc, next)
			})
			if err != nil {
				log.Warn(ctx, "config watcher stopped", logger.String("path", path), logger.Error(err))
			}
		}()
	}

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// API reference under /api-docs and /openapi.yaml
	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc,
		api.WithAllowedOrigin(cfg.CORSAllowedOrigin),
		api.WithLogger(logger.Named("api")),
	)
	apiServer.Register(ctx, mux)

	srv := newHTTPServer(cfg.Addr, mux)

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}
	log.Info(context.Background(), "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	cancelBg()

	log.Info(shutdownCtx, "server stopped")
	return nil
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startKafkaConsumer runs the activity consumer when brokers are configured.
func startKafkaConsumer(ctx context.Context, cfg *config.Config, svc *service.Service, bg *sync.WaitGroup) error {
	brokers := cfg.Brokers()
	if len(brokers) == 0 {
		return nil
	}
	reader, err := kafka.NewReader(brokers, cfg.KafkaTopic, cfg.KafkaGroupID)
	if err != nil {
		return fmt.Errorf("kafka reader: %w", err)
	}

	log := logger.Named("kafka")
	processor := kafka.NewProcessor(reader, svc, kafka.WithLogger(log))

	bg.Add(1)
	go func() {
		defer bg.Done()
		defer func() {
			if err := reader.Close(); err != nil {
				log.Warn(context.Background(), "closing kafka reader", logger.Error(err))
			}
		}()

		log.Info(ctx, "consuming activities",
			logger.Any("brokers", brokers),
			logger.String("topic", cfg.KafkaTopic),
			logger.String("group", cfg.KafkaGroupID),
		)
		if err := processor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error(ctx, "kafka consumer stopped", logger.Error(err))
		}
	}()
	return nil
}

// applyLogLevel sets the log level, falling back to info on invalid input.
func applyLogLevel(ctx context.Context, level string) {
	if err := logger.SetLevelString(level); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", level), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
}

// applyReload swaps in the log level and recovery policy of a reloaded config.
// Settings that need a restart (addr, store, queue sizes) are ignored.
func applyReload(ctx context.Context, svc *service.Service, next *config.Config) {
	log := logger.Named("config")
	applyLogLevel(ctx, next.LogLevel)

	policy, err := next.RecoveryPolicy()
	if err == nil {
		err = svc.UpdateRecoveryPolicy(policy)
	} else {
		metrics.RecordConfigReload("rejected")
	}
	if err != nil {
		log.Error(ctx, "recovery policy rejected, keeping previous policy", logger.Error(err))
		return
	}
	log.Info(ctx, "recovery policy applied",
		logger.Int("lookbackDays", policy.LookbackDays),
		logger.Int("tiers", len(policy.Tiers)),
	)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc.GetStats())
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics publishes queue and worker gauges from service stats.
func updateServiceMetrics(stats map[string]any) {
	queueLen, hasLen := stats["queueLength"].(int)
	if hasLen {
		metrics.UpdateQueueSize(queueLen)
	}
	if capacity, ok := stats["queueCapacity"].(int); ok && capacity > 0 {
		metrics.UpdateQueueCapacity(capacity)
		if hasLen {
			metrics.UpdateQueueUtilization(float64(queueLen) / float64(capacity))
		}
	}
	if workers, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerActiveCount(workers)
	}
}
