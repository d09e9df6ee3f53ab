// Command gatewayauthz serves the gateway request and response interceptors
// and the Cognito pre-token-generation trigger over HTTP.
//
// Usage:
//
//	gatewayauthz [-config path]
//
// Without -config (or CONFIG_PATH) the configuration is read from the
// environment.
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

	"github.com/jonwraymond/gatewayauthz/config"
	"github.com/jonwraymond/gatewayauthz/observe"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := build(ctx, cfg, deps{})
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer func() {
		_ = a.Close(context.Background())
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info(ctx, "gatewayauthz starting",
			observe.F("addr", cfg.Server.Addr),
			observe.F("policy_engine_mode", cfg.PolicyEngine.Mode),
			observe.F("policy_engine_enabled", cfg.PolicyEngine.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info(context.Background(), "shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	a.logger.Info(shutdownCtx, "gatewayauthz stopped")
	return nil
}

func loadConfig(ctx context.Context, path string) (*config.Config, error) {
	if path == "" {
		return config.FromEnv(ctx)
	}
	return config.Load(ctx, path)
}
