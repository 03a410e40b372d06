package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/Gal07143/Save-It.AI-sub002/pkg/circuit"
	"github.com/Gal07143/Save-It.AI-sub002/pkg/config"
	"github.com/Gal07143/Save-It.AI-sub002/pkg/httputil"
	"github.com/Gal07143/Save-It.AI-sub002/pkg/observability"
	"github.com/Gal07143/Save-It.AI-sub002/pkg/webhooks"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "saveitd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithFields(map[string]interface{}{
		"port":        cfg.Server.Port,
		"health_port": cfg.Server.HealthPort,
	}).Info("starting saveit event dispatcher")

	ctx := context.Background()

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(nil)
	}

	tracerProvider, err := observability.InitTracing(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	// Circuit breakers report every transition to Prometheus
	var breakerOpts []circuit.Option
	if metrics != nil {
		breakerOpts = append(breakerOpts, circuit.WithStateChange(func(name string, from, to circuit.State) {
			metrics.SetCircuitState(name, int(to))
			metrics.CircuitTransitionsTotal.WithLabelValues(name, from.String(), to.String()).Inc()
		}))
	}
	breakers := circuit.NewRegistry(cfg.Circuit, breakerOpts...)

	var db *sql.DB
	var store *webhooks.PostgresStore
	registry := webhooks.NewRegistry()
	if cfg.Webhooks.PostgresURL != "" {
		db, err = sql.Open("postgres", cfg.Webhooks.PostgresURL)
		if err != nil {
			return fmt.Errorf("failed to open postgres: %w", err)
		}
		defer db.Close()

		store, err = webhooks.NewPostgresStore(ctx, db)
		if err != nil {
			return err
		}
		seeded, err := store.SeedRegistry(ctx, registry)
		if err != nil {
			return fmt.Errorf("failed to seed endpoint registry: %w", err)
		}
		logger.WithField("endpoints", seeded).Info("endpoint registry seeded from postgres")
	}

	var redisClient *redis.Client
	var history webhooks.HistoryStore = webhooks.NewMemoryHistory(cfg.Webhooks.HistoryCapacity)
	if cfg.Webhooks.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.Webhooks.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid redis URL: %w", err)
		}
		redisClient = redis.NewClient(redisOpts)
		defer redisClient.Close()

		history = webhooks.NewRedisHistory(redisClient, cfg.Webhooks.HistoryCapacity)
		logger.Info("using redis-backed delivery history")
	}

	engineOpts := []webhooks.EngineOption{
		webhooks.WithHistory(history),
		webhooks.WithHTTPClient(observability.NewHTTPClient(cfg.Webhooks.AttemptTimeout)),
	}
	if metrics != nil {
		engineOpts = append(engineOpts, webhooks.WithMetrics(metrics))
	}
	if cfg.Webhooks.BreakerProtection {
		engineOpts = append(engineOpts, webhooks.WithBreakers(breakers))
	}
	engine := webhooks.NewEngine(registry, logger, webhooks.EngineConfig{
		MaxRetries:     cfg.Webhooks.MaxRetries,
		AttemptTimeout: cfg.Webhooks.AttemptTimeout,
		RetryDelays:    cfg.Webhooks.RetryDelays,
	}, engineOpts...)

	// Admin API
	router := mux.NewRouter()
	router.Use(httputil.RequestIDMiddleware)
	router.Use(httputil.RecoveryMiddleware(logger))
	router.Use(httputil.LoggingMiddleware(logger))
	if metrics != nil {
		router.Use(httputil.MetricsMiddleware(metrics))
	}
	webhooks.NewHandlers(engine, store, logger).RegisterRoutes(router)
	circuit.NewHandlers(breakers).RegisterRoutes(router)

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate port for k8s probes
	healthChecker := observability.NewHealthChecker(db, redisClient)
	healthRouter := mux.NewRouter()
	healthRouter.HandleFunc("/healthz", healthChecker.Liveness).Methods("GET")
	healthRouter.HandleFunc("/readyz", healthChecker.Readiness).Methods("GET")
	if metrics != nil {
		healthRouter.Handle("/metrics", metrics.Handler()).Methods("GET")
	}

	healthServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler:      healthRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Periodic gauge refresh; counters update inline, gauges are sampled
	var scheduler *cron.Cron
	if metrics != nil {
		scheduler = cron.New()
		if _, err := scheduler.AddFunc("@every 30s", func() {
			refreshGauges(ctx, engine, history, metrics, logger)
		}); err != nil {
			return fmt.Errorf("failed to schedule gauge refresh: %w", err)
		}
		scheduler.Start()
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	shutdown.AddServer("api", apiServer)
	shutdown.AddServer("health", healthServer)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return engine.Drain(ctx)
	})
	if scheduler != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			scheduler.Stop()
			return nil
		})
	}
	if tracerProvider != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return observability.ShutdownTracing(ctx, tracerProvider, logger)
		})
	}

	var group errgroup.Group
	group.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("admin API listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		return shutdown.WaitForShutdown()
	})

	return group.Wait()
}

// refreshGauges samples endpoint count, history size and success rate
func refreshGauges(ctx context.Context, engine *webhooks.Engine, history webhooks.HistoryStore, metrics *observability.Metrics, logger *observability.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stats, err := engine.GetStats(ctx)
	if err != nil {
		logger.WithError(err).Warn("failed to refresh delivery gauges")
		return
	}
	size, err := history.Size(ctx)
	if err != nil {
		logger.WithError(err).Warn("failed to read history size")
		return
	}

	metrics.WebhookEndpoints.Set(float64(stats.Endpoints))
	metrics.DeliveryHistorySize.Set(float64(size))
	metrics.DeliverySuccessRate.Set(stats.SuccessRate)
}
