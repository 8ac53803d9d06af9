package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"netdash/internal/config"
	apierrors "netdash/internal/errors"
	"netdash/internal/infrastructure"
	"netdash/internal/loader"
	customMiddleware "netdash/internal/middleware"
	"netdash/internal/services"
	"netdash/internal/session"
	handlers "netdash/internal/transport/http"
	"netdash/internal/views"
)

const (
	AppName = "Network Dashboard"
)

var (
	// Version is set at build time with -ldflags
	Version = "dev"
	// BuildTime is set at build time with -ldflags
	BuildTime = ""
)

// Application holds the wired components of the dashboard
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.DashboardMetrics
	Sessions      *session.Store
	Dashboard     *services.DashboardService
	Health        *services.HealthService
	Runtime       *infrastructure.RuntimeCollector

	codec        *session.Codec
	errorHandler *apierrors.ErrorHandler
	validator    *customMiddleware.Validator
}

// NewApplication loads the configuration and builds the application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New builds the application from cfg
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.Info("application starting",
		slog.String("name", AppName),
		slog.String("version", Version))

	otelCfg := infrastructure.OTelConfigFrom(cfg.Telemetry)
	otelCfg.ServiceVersion = Version
	otelProviders, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := a.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	if err := a.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}
	a.createServer()

	return a, nil
}

// initializeServices builds the session store, loader and services
func (a *Application) initializeServices() error {
	metrics, err := infrastructure.CreateDashboardMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create dashboard metrics: %w", err)
	}
	a.Metrics = metrics

	runtimeCollector, err := infrastructure.NewRuntimeCollector(a.OTelProviders.Meter, 15*time.Second, a.Logger)
	if err != nil {
		return err
	}
	a.Runtime = runtimeCollector

	if a.Config.Security.SessionSecret == "" {
		a.Logger.Warn("no session secret configured; sessions will not survive a restart")
	}
	codec, err := session.NewCodec(a.Config.Security.SessionSecret)
	if err != nil {
		return fmt.Errorf("failed to create session codec: %w", err)
	}
	a.codec = codec

	a.Sessions = session.NewStore(a.Config.Session, a.Logger)
	a.Sessions.OnChange(func(delta int64) {
		metrics.SessionDelta(context.Background(), delta)
	})

	ld := loader.New(a.Logger, loader.LimitsFrom(a.Config.Upload))
	a.Dashboard = services.NewDashboardService(ld, views.NewRegistry(), metrics, a.Logger)
	a.Health = services.NewHealthService(Version, BuildTime, a.Sessions, a.Logger)

	a.errorHandler = apierrors.NewErrorHandler(a.Logger, a.Config.Telemetry.Environment == "development")
	a.validator = customMiddleware.NewValidator()
	return nil
}

// setupRouter configures the HTTP router with all routes. Middleware order:
// RequestID, RealIP, OTel, logger, recoverer, security headers, CORS, rate
// limit, sessions.
func (a *Application) setupRouter() error {
	cfg := a.Config
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.errorHandler))
	r.Use(customMiddleware.DefaultSecureHeaders().Handler)
	r.Use(customMiddleware.StripSlashes)

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	// Scraped by Prometheus; kept out of the rate limit and sessions
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	healthHandler := handlers.NewHealthHandler(a.Health, a.Logger)
	r.Route("/api/health", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Mount("/", healthHandler.Routes())
	})
	r.Get("/api/version", healthHandler.Version)

	html, err := handlers.NewHTMLHandler(a.Dashboard, a.validator, cfg.Upload.MaxFileBytes, Version, a.Logger)
	if err != nil {
		return err
	}
	dashboard := handlers.NewDashboardHandler(a.Dashboard, a.validator, a.errorHandler, cfg.Upload.MaxFileBytes, a.Logger)
	clientLogs := handlers.NewClientLogHandler(a.validator, a.errorHandler, a.Logger)
	sessions := customMiddleware.NewSessions(a.Sessions, a.codec, cfg.Session, cfg.Security.SecureCookies, a.Logger)

	r.Group(func(r chi.Router) {
		if cfg.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins:   cfg.Security.AllowedOrigins,
				AllowCredentials: true,
				ExposedHeaders:   []string{customMiddleware.RequestIDHeader, "Content-Disposition"},
				Logger:           a.Logger,
			}))
		}
		if cfg.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(cfg.Security.RateLimit.RPS, cfg.Security.RateLimit.Burst, a.Logger).Handler)
		}
		r.Use(sessions.Handler)

		r.Route("/api", func(r chi.Router) {
			r.Use(customMiddleware.Timeout(cfg.Server.RequestTimeout))
			r.Mount("/datasets", dashboard.Routes())
			r.With(middleware.AllowContentType("application/json")).Post("/client-logs", clientLogs.Handle)
		})

		r.Mount("/", html.Routes())
	})

	a.Router = r
	return nil
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	s := a.Config.Server
	a.Server = &http.Server{
		Addr:              s.Addr(),
		Handler:           a.Router,
		ReadTimeout:       s.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.WriteTimeout,
		IdleTimeout:       s.IdleTimeout,
		MaxHeaderBytes:    s.MaxHeaderBytes,
		ErrorLog:          slog.NewLogLogger(a.Logger.Handler(), slog.LevelWarn),
	}
}

// Serve runs the server on ln together with the session janitor and the
// runtime sampler until ctx is done or one of them fails, then shuts
// everything down.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "http server listening",
			slog.String("address", ln.Addr().String()))
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.Sessions.Run(gctx)
	})
	g.Go(func() error {
		return a.Runtime.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.WithoutCancel(gctx))
	})

	return g.Wait()
}

// Stop shuts the server down within the configured timeout and flushes
// telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	a.Logger.InfoContext(ctx, "application shutdown complete",
		slog.Int("sessions_dropped", a.Sessions.Len()))
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("close log file: %w", err))
	}
	return errors.Join(errs...)
}

// Run listens on the configured address and serves until SIGINT or SIGTERM
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.Server.Addr, err)
	}

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", "http://"+ln.Addr().String()),
		slog.String("version", Version))

	return a.Serve(ctx, ln)
}
