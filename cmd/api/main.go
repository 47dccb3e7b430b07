package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"discount-strategy-api/internal/cache"
	"discount-strategy-api/internal/config"
	"discount-strategy-api/internal/database"
	"discount-strategy-api/internal/events"
	"discount-strategy-api/internal/features"
	"discount-strategy-api/internal/handler"
	"discount-strategy-api/internal/middleware"
	"discount-strategy-api/internal/obs"
	"discount-strategy-api/internal/rules"
	"discount-strategy-api/internal/service"
	"discount-strategy-api/internal/tracing"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configFile := flag.String("config", "", "Path to a JSON config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Log.Format, cfg.Log.Level)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer, err := tracing.InitTracing(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		Environment: os.Getenv("ENVIRONMENT"),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := obs.NewHTTPMetrics(cfg.Metrics.Namespace, reg)
	domainMetrics := obs.NewDomainMetrics(cfg.Metrics.Namespace, reg)

	flags := features.NewManager()
	flags.Register(features.FeatureCacheEnabled, cfg.Features.Cache, "Cache ranked evaluation results")
	flags.Register(features.FeatureEventHooksEnabled, cfg.Features.EventHooks, "Publish evaluation and reload events")
	flags.Register(features.FeatureRulesHotReload, cfg.Features.RulesHotReload, "Reload the rule file when it changes")

	// publishing is gated per call by the event hooks flag
	eventManager := events.NewManager(true, logger)
	eventManager.Subscribe(events.EventEvaluationCompleted, events.LogHandler(logger))
	eventManager.Subscribe(events.EventRulesReloaded, events.LogHandler(logger))
	defer eventManager.Shutdown()

	var db *database.DB
	if cfg.Database.Path != "" {
		db, err = database.NewDB(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()
	}

	repo, err := loadRules(ctx, cfg, db, logger)
	if err != nil {
		return err
	}

	var resultCache cache.Cache = cache.NewInMemoryCache()
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Rate, cfg.RateLimit.Window.Std())
	if cfg.Cache.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.Cache.RedisURL, "discount:")
		if err != nil {
			return err
		}
		defer redisCache.Close()
		resultCache = redisCache

		rateLimiter, err = middleware.NewRedisRateLimiter(redisCache.Client(), cfg.RateLimit.Rate, cfg.RateLimit.Window.Std())
		if err != nil {
			return fmt.Errorf("failed to initialize rate limiter: %w", err)
		}
	}

	svc := service.NewService(repo, service.Options{
		DB:       db,
		Cache:    resultCache,
		CacheTTL: cfg.Cache.TTL.Std(),
		Events:   eventManager,
		Features: flags,
		Metrics:  domainMetrics,
		Tracer:   tracer,
		Logger:   logger,
		Timezone: cfg.Rules.Timezone,
	})

	h := handler.NewHandlerWithOptions(svc, handler.NewHandlerOptions{
		MaxBodySize: cfg.Security.MaxRequestBodySize,
		Logger:      logger,
	})

	// Setup router
	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	if cfg.Server.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Recoverer)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(middleware.TracingMiddleware())
	if cfg.RateLimit.Enabled {
		r.Use(middleware.RateLimitMiddleware(rateLimiter, logger))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h.RegisterRoutes(r)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("addr", server.Addr).
			Bool("tls", cfg.TLSEnabled()).
			Str("rules_version", repo.Version()).
			Bool("persistence", db != nil).
			Bool("rate_limit", cfg.RateLimit.Enabled).
			Msg("starting server")

		var err error
		if cfg.TLSEnabled() {
			err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if cfg.Rules.Path != "" {
		watcher := rules.NewFileWatcher(cfg.Rules.Path, cfg.Rules.WatchInterval.Std(), func(path string) {
			if !flags.IsEnabled(features.FeatureRulesHotReload) {
				return
			}
			if err := svc.ReloadFromFile(gctx, path); err != nil {
				logger.Error().Err(err).Str("path", path).Msg("rule reload failed, keeping previous rules")
			}
		})
		g.Go(func() error { return watcher.Run(gctx) })
	}

	return g.Wait()
}

// loadRules picks the startup rule source. Stored rules win; otherwise the
// rule file is loaded and, with persistence on, imported into the database.
func loadRules(ctx context.Context, cfg *config.Config, db *database.DB, logger zerolog.Logger) (*rules.Repository, error) {
	if db != nil {
		n, err := db.CountStores(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect stored rules: %w", err)
		}
		if n > 0 {
			doc, err := db.LoadDocument(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to load stored rules: %w", err)
			}
			repo, err := service.BuildRepository(doc, cfg.Rules.Timezone)
			if err != nil {
				return nil, fmt.Errorf("stored rules are invalid: %w", err)
			}
			logger.Info().Str("source", service.SourceDatabase).Int("stores", n).Msg("rules loaded")
			return repo, nil
		}
	}

	if cfg.Rules.Path == "" {
		return nil, errors.New("no stored rules and no rule file configured")
	}
	doc, err := rules.LoadFile(cfg.Rules.Path)
	if err != nil {
		return nil, err
	}
	repo, err := service.BuildRepository(doc, cfg.Rules.Timezone)
	if err != nil {
		return nil, fmt.Errorf("rule file %s is invalid: %w", cfg.Rules.Path, err)
	}
	if db != nil {
		if err := db.ImportDocument(ctx, repo.Document()); err != nil {
			return nil, fmt.Errorf("failed to import rules: %w", err)
		}
	}
	logger.Info().
		Str("source", service.SourceFile).
		Str("path", cfg.Rules.Path).
		Int("stores", len(repo.Stores())).
		Msg("rules loaded")
	return repo, nil
}
