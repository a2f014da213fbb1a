// Package app wires configuration, logging, telemetry, services, and
// the HTTP router into a runnable server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"houselytics/internal/config"
	apierrors "houselytics/internal/errors"
	"houselytics/internal/infrastructure"
	custommw "houselytics/internal/middleware"
	"houselytics/internal/operations"
	"houselytics/internal/services"
	handlers "houselytics/internal/transport/http"
	ws "houselytics/internal/websocket"
)

// Build information, overridable with -ldflags at release time
var (
	Version   = "1.0.0"
	BuildTime = ""
)

// Application is the assembled server with all its dependencies
type Application struct {
	Config *config.Config
	Paths  *config.Paths
	Logger *slog.Logger

	Router *chi.Mux
	Server *http.Server

	Hub           *ws.Hub
	Manager       *operations.Manager
	OTelProviders *infrastructure.OTelProviders

	metrics      *infrastructure.BusinessMetrics
	errorHandler *apierrors.ErrorHandler

	insights    *services.InsightsService
	predictions *services.PredictionService
	performance *services.PerformanceService
	runs        *services.OperationsService
	health      *services.HealthService
}

// NewApplication builds the application from configuration
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	paths, err := config.NewPaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	logger.Info("application starting",
		slog.String("version", Version),
		slog.Int("port", cfg.Server.Port),
		slog.String("data_dir", paths.DataDir))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		metrics:       metrics,
		errorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := app.initializeServices(); err != nil {
		return nil, err
	}
	app.setupRouter()

	app.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return app, nil
}

func (a *Application) initializeServices() error {
	a.Hub = ws.NewHub(a.Logger)
	a.Hub.Start()

	registry, err := operations.DefaultRegistry()
	if err != nil {
		return fmt.Errorf("failed to build pipeline registry: %w", err)
	}
	a.Manager = operations.NewManager(registry, a.Hub, a.Logger)

	data := services.NewDataStore(a.Paths, a.Config.Model.TargetColumn)
	models := services.NewModelStore(a.Paths)

	a.insights = services.NewInsightsService(data, a.Logger)
	a.predictions = services.NewPredictionService(a.Paths, data, models, a.metrics, a.Logger)
	a.performance = services.NewPerformanceService(data, models, a.Config.Model, a.Logger)
	a.runs = services.NewOperationsService(a.Manager, a.Paths, a.Config.Model, data, models, a.metrics, a.Logger)
	a.health = services.NewHealthService(Version, BuildTime, a.Paths, a.Hub, a.Logger)
	return nil
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Minimal middleware only; the websocket upgrade must not go
	// through response writer wrappers
	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)

	r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
		ws.ServeWS(a.Hub, w, req)
	})

	// Prometheus scrape endpoint stays outside the API middleware
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(custommw.Metrics(a.metrics))
		r.Use(custommw.StructuredLogger(a.Logger))
		r.Use(custommw.Recoverer(a.Logger))
		r.Use(custommw.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(custommw.CORS(custommw.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
			}))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(custommw.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
		a.setupStaticRoutes(r)
	})

	a.Router = r
}

func (a *Application) setupAPIRoutes(r chi.Router) {
	summaryHandler := handlers.NewSummaryHandler(a.insights, a.errorHandler)
	insightsHandler := handlers.NewInsightsHandler(a.insights, a.Logger, a.errorHandler)
	predictionsHandler := handlers.NewPredictionsHandler(a.predictions, a.Logger, a.errorHandler)
	performanceHandler := handlers.NewPerformanceHandler(a.performance, a.Logger, a.errorHandler)
	operationsHandler := handlers.NewOperationsHandler(a.runs, a.Logger, a.errorHandler)
	healthHandler := handlers.NewHealthHandler(a.health)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Group(func(r chi.Router) {
			r.Use(custommw.Timeout(a.Config.Server.ReadTimeout, a.Logger))

			r.Get("/summary", summaryHandler.GetSummary)
			r.Mount("/insights", insightsHandler.Routes())
			r.Mount("/predictions", predictionsHandler.Routes())
			r.Get("/performance", performanceHandler.GetPerformance)
			r.Mount("/health", healthHandler.Routes())
			r.Get("/version", healthHandler.GetVersion)
		})

		// Training runs outlive the standard timeout
		r.Group(func(r chi.Router) {
			r.Use(custommw.Timeout(a.Config.Server.TrainingTimeout, a.Logger))
			r.Mount("/operations", operationsHandler.Routes())
		})
	})
}

// setupStaticRoutes serves the dashboard frontend when a web dir exists
func (a *Application) setupStaticRoutes(r chi.Router) {
	if _, err := os.Stat(a.Paths.WebDir); err != nil {
		return
	}
	fileServer := http.FileServer(http.Dir(a.Paths.WebDir))
	r.With(custommw.Compress(5)).Handle("/*", fileServer)
}

// Run starts the server and blocks until interrupted
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		a.Logger.Info("shutdown signal received")
	}
	return a.Stop(context.Background())
}

// Stop gracefully shuts the application down
func (a *Application) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	a.Hub.Shutdown()

	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
	}
	if err := infrastructure.CloseLogger(); err != nil {
		return fmt.Errorf("logger close: %w", err)
	}

	a.Logger.Info("application shutdown complete")
	return nil
}
