package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Togather-Foundation/nko-directory/internal/api"
	"github.com/Togather-Foundation/nko-directory/internal/config"
	"github.com/Togather-Foundation/nko-directory/internal/metrics"
	"github.com/Togather-Foundation/nko-directory/internal/storage/memory"
	"github.com/Togather-Foundation/nko-directory/internal/storage/postgres"
	"github.com/Togather-Foundation/nko-directory/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout   = 10 * time.Second
	dbMetricsInterval = 15 * time.Second
)

type serveOptions struct {
	host     string
	port     int
	migrate  bool
	inMemory bool
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the NKO directory HTTP server",
		Long: `Start the HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables (and --env-file)
- Optionally apply database migrations (--migrate)
- Serve the /api routes plus /healthz, /readyz, /health, /version and /metrics
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Try the API without PostgreSQL (nothing is persisted)
  server serve --in-memory`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "server port (default: 5000)")
	cmd.Flags().BoolVar(&opts.migrate, "migrate", false, "apply pending migrations before serving")
	cmd.Flags().BoolVar(&opts.inMemory, "in-memory", false, "use a non-persistent in-memory store instead of PostgreSQL")
	return cmd
}

func runServe(ctx context.Context, root *rootOptions, opts *serveOptions) error {
	var loadOpts []config.LoadOption
	if opts.inMemory {
		loadOpts = append(loadOpts, config.WithoutDatabase())
	}
	cfg, logger, err := root.load(loadOpts...)
	if err != nil {
		return err
	}
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if opts.port != 0 {
		cfg.Server.Port = opts.port
	}

	logger.Info().Str("version", Version).Str("environment", cfg.Environment).Msg("starting NKO directory server")
	metrics.Init(Version, GitCommit, BuildDate)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	g, ctx := errgroup.WithContext(ctx)

	var store api.Store
	if opts.inMemory {
		logger.Warn().Msg("using in-memory store; data is lost on exit")
		store = memory.NewRepository()
	} else {
		if opts.migrate {
			if err := postgres.MigrateUp(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
				return err
			}
			logger.Info().Msg("migrations applied")
		}

		repo, pool, closePool, err := openRepository(ctx, cfg)
		if err != nil {
			return err
		}
		defer closePool()
		store = repo

		collector := metrics.NewDBCollector(pool)
		defer collector.Stop()
		g.Go(func() error {
			collector.Start(ctx, dbMetricsInterval)
			return nil
		})
	}

	router := api.NewRouter(cfg, store, logger, api.BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
	})
	defer router.Close()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return gracefulShutdown(server, logger)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func gracefulShutdown(server *http.Server, logger zerolog.Logger) error {
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}
	return nil
}
