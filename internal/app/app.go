package app

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"fleetpulse/internal/config"
	"fleetpulse/internal/errors"
	"fleetpulse/internal/exporter"
	"fleetpulse/internal/history"
	"fleetpulse/internal/infrastructure"
	customMiddleware "fleetpulse/internal/middleware"
	"fleetpulse/internal/services"
	handlers "fleetpulse/internal/transport/http"
	ws "fleetpulse/internal/websocket"
	"fleetpulse/pkg/contracts"
)

const (
	VERSION  = contracts.Version
	REPO_URL = "https://github.com/fleetpulse/fleetpulse"
	AppName  = "FleetPulse - Work Order Metrics"
)

var (
	// BuildTime is set at compile time
	BuildTime = time.Now().Format(time.RFC3339)
	// BuildID is a unique identifier for this build
	BuildID = generateBuildID()
)

func generateBuildID() string {
	h := sha256.New()
	h.Write([]byte(VERSION))
	h.Write([]byte(time.Now().Format("2006-01-02")))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Application represents the main application container
type Application struct {
	Config         *config.Config
	Paths          *config.Paths
	Router         *chi.Mux
	Server         *http.Server
	WebSocketHub   *ws.Hub
	MetricsService *services.MetricsService
	HealthService  *services.HealthService
	HistoryStore   *history.Store
	Mirror         *exporter.SheetsMirror
	Logger         *slog.Logger
	OTelProviders  *infrastructure.OTelProviders
	SystemMetrics  *infrastructure.SystemMetricsCollector
	FrontendFS     fs.FS
}

// NewApplication creates a new application instance with dependency injection
func NewApplication(frontendFS fs.FS) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", VERSION))

	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}

	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution()

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		FrontendFS:    frontendFS,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	hub := ws.NewHub(a.Logger)
	hub.Start()
	a.WebSocketHub = hub

	log, err := history.Open(a.Paths.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to open upload log: %w", err)
	}
	a.HistoryStore = log

	if a.Config.Sheets.Enabled {
		credentials := a.Paths.GetCredentialsPath()
		if !config.FileExists(credentials) {
			a.Logger.Warn("Sheets mirroring enabled but credentials file missing",
				slog.String("path", credentials))
		} else {
			mirror, err := exporter.NewSheetsMirror(context.Background(), a.Config.Sheets, credentials, a.Logger)
			if err != nil {
				return fmt.Errorf("failed to initialize sheets mirror: %w", err)
			}
			a.Mirror = mirror
		}
	}

	var mirror services.MasterMirror
	if a.Mirror != nil {
		mirror = a.Mirror
	}
	a.MetricsService = services.NewMetricsService(a.Config, a.Paths, log, hub, mirror, a.Logger)

	a.HealthService = services.NewHealthServiceWithBuildInfo(
		VERSION,
		REPO_URL,
		BuildTime,
		BuildID,
		a.Paths,
		a.MetricsService.MasterStore(),
		log,
		hub,
		a.Logger,
	)

	collector, err := infrastructure.NewSystemMetricsCollector(a.OTelProviders.Meter, 30*time.Second)
	if err != nil {
		a.Logger.Warn("System metrics collector unavailable", slog.String("error", err.Error()))
	} else {
		a.SystemMetrics = collector
	}

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Minimal middleware that won't interfere with the WebSocket upgrade
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).HandleFunc("/ws", a.handleWebSocket)

	if a.FrontendFS != nil {
		a.setupStaticAssets(r)
	}

	r.Group(func(r chi.Router) {
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		businessMetrics, _ := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
		r.Use(customMiddleware.BusinessMetricsMiddleware(businessMetrics))

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)

		r.Use(customMiddleware.CORS(a.getCORSConfig()))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
		a.setupHTMLRoutes(r)
	})

	// Prometheus metrics endpoint outside the middleware group
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	errorHandler := errors.NewErrorHandler(a.Logger, false)
	validation := customMiddleware.NewValidationMiddleware(a.Logger, errorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		// Standard timeout for read endpoints
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

			healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
			r.Get("/health", healthHandler.HealthCheck)
			r.Get("/health/ready", healthHandler.ReadinessCheck)
			r.Get("/health/live", healthHandler.LivenessCheck)
			r.Get("/version", healthHandler.Version)
			r.Get("/master/status", healthHandler.MasterStatus)

			r.Mount("/stats", handlers.NewStatsHandler(a.HealthService).Routes())

			masterHandler := handlers.NewMasterHandler(a.MetricsService, a.Paths, a.Logger, errorHandler)
			r.Mount("/master", masterHandler.Routes())

			historyHandler := handlers.NewHistoryHandler(a.MetricsService, a.MetricsService.Discovery(), a.Paths, a.Logger, errorHandler)
			r.Mount("/history", historyHandler.Routes())

			r.Post("/logs", handlers.NewBrowserLogHandler(a.Logger).Handle)
		})

		// Upload and merge endpoints run the full pipeline and need the
		// longer processing timeout.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ProcessTimeout, a.Logger))
			r.Use(customMiddleware.AuditLog(a.Logger))

			uploadHandler := handlers.NewUploadHandler(a.MetricsService, validation, a.Logger, errorHandler)
			r.Mount("/uploads", uploadHandler.Routes())
		})

		// Destructive operations sit behind the admin gate
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ProcessTimeout, a.Logger))
			r.Use(customMiddleware.AdminGate(a.Logger, a.Config.Admin))
			r.Use(customMiddleware.AuditLog(a.Logger))

			masterHandler := handlers.NewMasterHandler(a.MetricsService, a.Paths, a.Logger, errorHandler)
			r.Post("/master/rebuild", masterHandler.Rebuild)
			r.Delete("/master", masterHandler.Clear)

			historyHandler := handlers.NewHistoryHandler(a.MetricsService, a.MetricsService.Discovery(), a.Paths, a.Logger, errorHandler)
			r.Delete("/history/snapshots/{filename}", historyHandler.DeleteSnapshot)
		})
	})
}

// setupHTMLRoutes configures the dashboard routes
func (a *Application) setupHTMLRoutes(r chi.Router) {
	if a.FrontendFS != nil {
		r.Get("/*", a.serveSPAHandler(a.FrontendFS))
		return
	}

	// Filesystem fallback when no frontend is embedded
	webDir := a.Config.GetWebDir()
	r.Get("/", handlers.ServeDashboard(webDir))
	r.Route("/static", func(r chi.Router) {
		r.Use(customMiddleware.Compress(5))
		r.Handle("/*", http.StripPrefix("/static", http.FileServer(http.Dir(filepath.Join(webDir, "static")))))
	})
}

// setupStaticAssets serves embedded static assets without the API middleware
func (a *Application) setupStaticAssets(r chi.Router) {
	r.Route("/assets", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				w.Header().Set("Cache-Control", "public, max-age=86400")
				next.ServeHTTP(w, req)
			})
		})
		r.HandleFunc("/*", a.serveStaticWithMIME(a.FrontendFS).ServeHTTP)
	})

	r.Get("/favicon.ico", a.serveFrontendFile(a.FrontendFS, "favicon.ico"))
	r.Get("/robots.txt", a.serveFrontendFile(a.FrontendFS, "robots.txt"))
}

// serveFrontendFile serves a specific file from the embedded frontend
func (a *Application) serveFrontendFile(frontendFS fs.FS, filename string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, err := frontendFS.Open(filename)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer file.Close()

		switch filepath.Ext(filename) {
		case ".ico":
			w.Header().Set("Content-Type", "image/x-icon")
		case ".txt":
			w.Header().Set("Content-Type", "text/plain")
		case ".json":
			w.Header().Set("Content-Type", "application/json")
		}
		w.Header().Set("Cache-Control", "public, max-age=86400")

		io.Copy(w, file)
	}
}

// serveStaticWithMIME creates a file server that sets MIME types for
// embedded files
func (a *Application) serveStaticWithMIME(frontendFS fs.FS) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := strings.TrimPrefix(r.URL.Path, "/")

		file, err := frontendFS.Open(p)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer file.Close()

		w.Header().Set("Content-Type", contentTypeForExt(filepath.Ext(p)))
		w.Header().Set("X-Content-Type-Options", "nosniff")

		io.Copy(w, file)
	})
}

func contentTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".js":
		return "application/javascript"
	case ".css":
		return "text/css"
	case ".json":
		return "application/json"
	case ".svg":
		return "image/svg+xml"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".ico":
		return "image/x-icon"
	case ".woff2":
		return "font/woff2"
	case ".woff":
		return "font/woff"
	case ".html":
		return "text/html; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// serveSPAHandler serves the embedded dashboard with SPA routing
func (a *Application) serveSPAHandler(frontendFS fs.FS) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		urlPath := path.Clean(r.URL.Path)

		if urlPath != "/" {
			exactPath := strings.TrimPrefix(urlPath, "/")
			if file, err := frontendFS.Open(exactPath); err == nil {
				defer file.Close()
				if stat, statErr := file.Stat(); statErr == nil && !stat.IsDir() {
					w.Header().Set("Content-Type", contentTypeForExt(filepath.Ext(exactPath)))
					w.Header().Set("X-Content-Type-Options", "nosniff")
					io.Copy(w, file)
					return
				}
			}
		}

		// Fall back to index.html for client-side routing
		indexFile, err := frontendFS.Open("index.html")
		if err != nil {
			a.Logger.ErrorContext(r.Context(), "Failed to open index.html",
				slog.String("error", err.Error()),
				slog.String("path", urlPath))
			http.Error(w, "Dashboard not available", http.StatusServiceUnavailable)
			return
		}
		defer indexFile.Close()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")

		io.Copy(w, indexFile)
	}
}

// getCORSConfig returns CORS configuration based on environment
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Admin-Password",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
		},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}

	cfg.AllowedOrigins = []string{
		fmt.Sprintf("http://localhost:%d", a.Config.Server.Port),
		fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port),
	}
	if a.Config.Security.EnableCORS && len(a.Config.Security.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = append(cfg.AllowedOrigins, a.Config.Security.AllowedOrigins...)
	}

	a.Logger.Info("CORS configured",
		slog.Any("allowed_origins", cfg.AllowedOrigins))

	return cfg
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start starts the application
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", VERSION),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	a.Logger.InfoContext(ctx, "Application paths",
		slog.String("executable_dir", a.Paths.ExecutableDir),
		slog.String("data_dir", a.Paths.DataDir),
		slog.String("master_csv", a.Paths.MasterCSV),
		slog.String("logs_dir", a.Paths.LogsDir))

	if a.SystemMetrics != nil {
		a.SystemMetrics.Start(ctx)
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))

	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.WebSocketHub.Stop()

	if a.SystemMetrics != nil {
		a.SystemMetrics.Stop()
	}

	if a.HistoryStore != nil {
		if err := a.HistoryStore.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "Error closing upload log", slog.String("error", err.Error()))
		}
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	<-sigChan
	a.Logger.InfoContext(ctx, "Received interrupt signal")

	return a.Stop(ctx)
}

// handleWebSocket handles WebSocket connections
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = fmt.Sprintf("ws-%d", time.Now().UnixNano())
	}

	ctx := infrastructure.WithTraceID(r.Context(), reqID)
	a.Logger.InfoContext(ctx, "WebSocket upgrade request",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("origin", r.Header.Get("Origin")))

	upgrader := websocket.Upgrader{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range a.getCORSConfig().AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			a.Logger.WarnContext(ctx, "WebSocket origin rejected",
				slog.String("origin", origin))
			return false
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			a.Logger.ErrorContext(ctx, "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()))
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.ErrorContext(ctx, "WebSocket upgrade failed",
			slog.String("error", err.Error()))
		return
	}

	client := ws.NewClientWithTrace(a.WebSocketHub, conn, reqID, a.Logger)
	a.WebSocketHub.Register(client)

	a.Logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("request_id", reqID))

	go client.WritePump()
	go client.ReadPump()
}

// performStartupHealthCheck verifies critical paths are usable
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string

	directories := map[string]string{
		"Data":    a.Paths.DataDir,
		"Uploads": a.Paths.UploadsDir,
		"History": a.Paths.HistoryDir,
		"Results": a.Paths.ResultsDir,
		"Logs":    a.Paths.LogsDir,
	}

	for name, dir := range directories {
		testFile := filepath.Join(dir, ".write_test")
		if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
		} else {
			os.Remove(testFile)
		}
	}

	if a.Config.Sheets.Enabled && a.Mirror == nil {
		warnings = append(warnings, "sheets mirroring enabled but not initialized")
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
