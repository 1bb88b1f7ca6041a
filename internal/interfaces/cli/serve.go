package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/FreshGuard/internal/config"
	"github.com/turtacn/FreshGuard/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/FreshGuard/internal/interfaces/http"
	"github.com/turtacn/FreshGuard/internal/interfaces/http/handlers"
)

const poolStatsInterval = 15 * time.Second

func NewServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if port > 0 {
				cliCtx.Config.Server.Port = port
			}
			return runServe(cmd.Context(), cliCtx)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "override server.port")
	return cmd
}

func runServe(parent context.Context, cliCtx *CLIContext) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := cliCtx.Logger
	app, err := cliCtx.App(ctx, BootstrapOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	if cliCtx.ConfigPath != "" {
		watchConfig(cliCtx.ConfigPath, logger)
	}
	go app.RecordPoolStats(ctx, poolStatsInterval)

	cfg := cliCtx.Config
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Server:           cfg.Server,
		ExpiryHandler:    handlers.NewExpiryHandler(app.Service, logger),
		HealthHandler:    handlers.NewHealthHandler(Version, app.Metrics, app.Checkers...),
		Logger:           logger,
		MetricsCollector: app.Collector,
		MetricsPath:      cfg.Metrics.Path,
		Metrics:          app.Metrics,
	})
	srv := httpserver.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutdown signal received")
	return srv.Shutdown(context.Background())
}

// watchConfig applies log level changes from the config file at runtime.
// Everything else needs a restart.
func watchConfig(path string, logger logging.Logger) {
	err := config.Watch(path, func(next *config.Config) {
		if logging.SetLevel(logger, next.Log.Level) {
			logger.Info("log level reloaded", logging.String("level", next.Log.Level))
		}
	}, func(err error) {
		logger.Warn("ignoring invalid config revision", logging.Err(err))
	})
	if err != nil {
		logger.Warn("config watch disabled", logging.Err(err))
	}
}
