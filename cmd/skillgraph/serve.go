package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillgraph/pkg/api"
	"github.com/jingkaihe/skillgraph/pkg/cache"
	"github.com/jingkaihe/skillgraph/pkg/logger"
	"github.com/jingkaihe/skillgraph/pkg/presenter"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start a local HTTP server exposing the catalog, the relationship graph,
workflow assembly, feedback and tag normalization as a JSON API.

The server will be available at http://localhost:8080 by default.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServeCommand(cmd.Context(), &api.ServerConfig{Host: cfg.Serve.Host, Port: cfg.Serve.Port})
	},
}

func init() {
	serveCmd.Flags().String("host", "localhost", "Host to bind the server to")
	serveCmd.Flags().Int("port", 8080, "Port to bind the server to")
	viper.BindPFlag("serve.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("serve.port", serveCmd.Flags().Lookup("port"))
}

// validateServeConfig validates the serve configuration
func validateServeConfig(ctx context.Context, config *api.ServerConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	if config.Host != "localhost" && config.Host != "0.0.0.0" {
		if ip := net.ParseIP(config.Host); ip == nil {
			if strings.Contains(config.Host, " ") || strings.Contains(config.Host, ":") {
				return errors.Errorf("invalid host: %s", config.Host)
			}
		}
	}

	if config.Port < 1024 {
		logger.G(ctx).WithField("port", config.Port).Warn("using privileged port (< 1024) may require elevated permissions")
	}

	return nil
}

// runServeCommand starts the API server and blocks until interrupted
func runServeCommand(ctx context.Context, config *api.ServerConfig) error {
	if err := validateServeConfig(ctx, config); err != nil {
		return errors.Wrap(err, "invalid server configuration")
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := newApp(ctx)
	defer a.Close()

	if a.cache != nil && cfg.Cache.MaxAge > 0 {
		purger := cache.NewPurger(a.cache, cfg.Cache.MaxAge)
		purger.Start(ctx, purgeInterval(cfg.Cache.MaxAge))
		defer purger.Stop()
	}

	var store api.FeedbackStore
	if a.feedback != nil {
		store = a.feedback
	}

	server, err := api.NewServer(config, a.engine, store)
	if err != nil {
		return err
	}

	logger.G(ctx).WithFields(map[string]any{
		"host": config.Host,
		"port": config.Port,
	}).Info("starting API server")
	presenter.Success(fmt.Sprintf("API server starting on http://%s:%d", config.Host, config.Port))
	presenter.Info("Press Ctrl+C to stop the server")

	if err := server.Start(ctx); err != nil {
		return err
	}

	presenter.Info("API server stopped")
	return nil
}

// purgeInterval runs the cache purge a few times per max age, at most every minute
func purgeInterval(maxAge time.Duration) time.Duration {
	interval := maxAge / 4
	if interval < time.Minute {
		return time.Minute
	}
	return interval
}
