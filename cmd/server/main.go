package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DukeRupert/trainerdesk/internal"
	"github.com/DukeRupert/trainerdesk/internal/api"
	"github.com/DukeRupert/trainerdesk/internal/csrf"
	"github.com/DukeRupert/trainerdesk/internal/handler"
	"github.com/DukeRupert/trainerdesk/internal/metrics"
	"github.com/DukeRupert/trainerdesk/internal/middleware"
	"github.com/DukeRupert/trainerdesk/internal/session"
	"github.com/DukeRupert/trainerdesk/internal/view"
	"github.com/DukeRupert/trainerdesk/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func run() error {
	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Remote API client, shared by every session
	client, err := api.New(api.Config{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.APITimeout,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("api client initialization failed: %w", err)
	}
	logger.Info("API client ready", "base_url", cfg.APIBaseURL, "timeout", cfg.APITimeout)

	policy := view.NotifyParity
	if cfg.NotifyAllFailures {
		policy = view.NotifyAlways
	}

	// Each browser session gets its own workspace of views
	store := session.NewStore(cfg.SessionTTL, func() *view.Workspace {
		return view.NewWorkspace(client, client, view.Options{
			Logger:   logger,
			Policy:   policy,
			Location: cfg.Location(),
		})
	}, logger)
	defer store.Close()

	// Initialize template renderer
	renderer, err := handler.NewRenderer(handler.RendererConfig{
		TemplatesDir: cfg.TemplatesDir,
		FS:           web.Templates(),
		Logger:       logger,
		IsDev:        cfg.Env == "development",
	})
	if err != nil {
		return fmt.Errorf("renderer initialization failed: %w", err)
	}
	logger.Info("Templates loaded", "count", len(renderer.ListTemplates()))

	// Initialize middleware
	isSecure := cfg.IsSecure()
	workspaceMw := middleware.NewWorkspaceMiddleware(store, logger, isSecure)
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword, logger)
	requestLogger := middleware.NewRequestLoggingMiddleware(logger)
	securityHeaders := middleware.NewSecurityHeadersMiddleware(isSecure)

	limiter := middleware.NewRateLimiter(cfg.MutationRateLimit, time.Minute)
	defer limiter.Stop()
	mutationLimiter := middleware.NewMutationLimiter(limiter, logger)

	if !metricsAuth.Enabled() {
		logger.Warn("METRICS_USERNAME/METRICS_PASSWORD not set, /metrics is unprotected")
	}

	// Initialize handlers
	customerHandler := handler.NewCustomerHandler(renderer, logger)
	trainingHandler := handler.NewTrainingHandler(renderer, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(web.Static())))

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		// Only handle exact root path
		if r.URL.Path != "/" {
			handler.NotFoundResponse(w, r, logger)
			return
		}
		http.Redirect(w, r, "/customers", http.StatusSeeOther)
	})

	// View routes run inside a session with CSRF and rate limiting
	views := middleware.Stack(workspaceMw.Handler, csrf.Protect(isSecure, logger), mutationLimiter.Handler)
	customerHandler.RegisterRoutes(mux, views)
	trainingHandler.RegisterRoutes(mux, views)

	root := middleware.Stack(metrics.Middleware, requestLogger.Handler, securityHeaders.Handler)(mux)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
	case err := <-errChan:
		return fmt.Errorf("server failed: %w", err)
	}

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete", "sessions", store.Len())
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
