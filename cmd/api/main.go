// Package main is the entry point for the payrelay API server.
//
// It loads configuration, builds the provider client, the billing services,
// and the downstream forwarder, wires them into the HTTP chassis, and starts
// listening for requests.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payrelay/internal/api/handlers"
	"payrelay/internal/billing"
	"payrelay/internal/config"
	"payrelay/internal/core"
	"payrelay/internal/external"
	"payrelay/internal/forward"
	"payrelay/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("payrelay API starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
		"forwarding_enabled", cfg.Forward.URL != "",
		"provider_keys_configured", cfg.Razorpay.HasKeys(),
	)
	if cfg.Razorpay.WebhookSecret.Unmask() == "" {
		logger.Warn("webhook secret is not configured; webhook ingress will reject all events")
	}
	if !cfg.Razorpay.HasKeys() {
		logger.Warn("provider API keys are not configured; subscription endpoints will reject all requests")
	}

	// Provider client and billing services.
	razorpay := external.NewRazorpayClient(nil, external.RazorpayClientConfig{
		KeyID:     cfg.Razorpay.KeyID,
		KeySecret: cfg.Razorpay.KeySecret.Unmask(),
		BaseURL:   cfg.Razorpay.BaseURL,
		Logger:    logger,
	})

	reconciler := billing.NewReconciler(razorpay, types.RealClock{}, logger, billing.ReconcilerConfig{
		DurationYears: cfg.Billing.DurationYears,
		DefaultCycles: cfg.Billing.DefaultCycles,
	})
	verifier := billing.NewCheckoutVerifier(razorpay, cfg.Razorpay.KeySecret.Unmask(), logger)

	forwarder := forward.New(nil, forward.Config{
		URL:       cfg.Forward.URL,
		Timeout:   cfg.Forward.Timeout,
		UserAgent: cfg.Forward.UserAgent,
	}, logger)

	// Build the server and wire the handlers.
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	webhookHandler := handlers.NewWebhookHandler(forwarder, cfg.Razorpay.WebhookSecret.Unmask(), logger)
	subscriptionHandler := handlers.NewSubscriptionHandler(reconciler, srv.Validator, cfg.Razorpay.HasKeys(), logger)
	verifyHandler := handlers.NewVerifyHandler(verifier, srv.Validator, cfg.Razorpay.HasKeys(), logger)

	srv.PublicRouteRegistrars = append(srv.PublicRouteRegistrars, webhookHandler.RegisterRoutes)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		subscriptionHandler.RegisterRoutes,
		verifyHandler.RegisterRoutes,
	)

	// The provider probe only runs when credentials exist; without them the
	// health endpoint reports the API chassis alone.
	if cfg.Razorpay.HasKeys() {
		srv.HealthProbes = append(srv.HealthProbes, providerProbe{client: razorpay})
	}

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// providerProbe adapts the Razorpay client to the health probe interface.
type providerProbe struct {
	client *external.RazorpayClient
}

func (p providerProbe) Name() string { return "razorpay" }

func (p providerProbe) Check(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Channel to capture server errors from ListenAndServe.
	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal or server error.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with a 10-second deadline.
	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
