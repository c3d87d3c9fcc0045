package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eislager/eislager-pro/internal/config"
	"github.com/eislager/eislager-pro/internal/gateway"
	"github.com/eislager/eislager-pro/internal/telemetry"
	"github.com/eislager/eislager-pro/sdk"
)

var version = "dev"

func main() {
	var opts config.LoadOptions

	cmd := &cobra.Command{
		Use:           "eislager-gateway",
		Short:         "HTTP gateway in front of the EisLager services",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}
	cmd.Flags().StringVar(&opts.ConfigFile, "config", "", "path to a YAML config file")
	cmd.Flags().StringVar(&opts.EnvFile, "env-file", "", "path to a .env file")

	if err := cmd.Execute(); err != nil {
		telemetry.L().WithError(err).Error("Gateway stopped")
		os.Exit(1)
	}
}

func run(opts config.LoadOptions) error {
	cfg, err := config.Load(opts)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	ctx := context.Background()
	if err := telemetry.Init(ctx, cfg.TelemetryConfig(version)); err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Gateway.ShutdownTimeout)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "telemetry shutdown: %v\n", err)
		}
	}()
	log := telemetry.L()

	metrics := telemetry.NewMetrics()

	store, closeStore, err := cfg.OpenTokenStore(ctx, metrics)
	if err != nil {
		return fmt.Errorf("open token store: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.WithError(err).Warn("Failed to close token store")
		}
	}()

	checks := map[string]gateway.Pinger{}
	if p, ok := store.(gateway.Pinger); ok {
		checks["token_store"] = p
	}

	observer := telemetry.NewObserver(metrics)
	services, err := sdk.NewServices(cfg.ServicesConfig(observer, store))
	if err != nil {
		return fmt.Errorf("create service clients: %w", err)
	}
	defer services.Close()

	restored, err := services.Restore(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to restore session")
	} else if restored {
		log.Info("Restored session from token store")
	}

	server := gateway.New(gateway.Options{
		Services:     services,
		Metrics:      metrics,
		Checks:       checks,
		Version:      version,
		CORSOrigins:  cfg.Gateway.CORSOrigins,
		ReadTimeout:  cfg.Gateway.ReadTimeout,
		WriteTimeout: cfg.Gateway.WriteTimeout,
	})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down gracefully")
		metrics.SetUp(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Gateway.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Server forced to shutdown")
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port)
	log.WithFields(map[string]interface{}{
		"addr":     addr,
		"services": services.Names(),
		"strict":   !cfg.Client.Fallback,
	}).Info("EisLager gateway listening")

	metrics.SetUp(true)
	return server.Listen(addr)
}
