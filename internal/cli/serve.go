package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/editplay/internal/clock"
	"github.com/SmitUplenchwar2687/editplay/internal/config"
	"github.com/SmitUplenchwar2687/editplay/internal/server"
	"github.com/SmitUplenchwar2687/editplay/internal/storage"
)

type serveOptions struct {
	addr       string
	catalog    string
	recordDir  string
	gradeDelay time.Duration
	tokenTTL   time.Duration
	storage    storageOptions
}

func (o *serveOptions) applyConfigIfUnset(cmd *cobra.Command, cfg config.Config) {
	if !cmd.Flags().Changed("addr") {
		o.addr = cfg.Server.Addr
	}
	if !cmd.Flags().Changed("catalog") {
		o.catalog = cfg.Server.Catalog
	}
	if !cmd.Flags().Changed("record") {
		o.recordDir = cfg.Server.RecordDir
	}
	if !cmd.Flags().Changed("grade-delay") {
		o.gradeDelay = cfg.Server.GradeDelay
	}
	if !cmd.Flags().Changed("token-ttl") {
		o.tokenTTL = cfg.Server.TokenTTL
	}
	o.storage.applyConfigIfUnset(cmd, cfg.Storage)
}

func newServeCmd(g *globalOptions) *cobra.Command {
	o := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a stub course webapp that records what it receives",
		Long: `Starts an HTTP server speaking the webapp API used by play. Users,
courses and problems come from a YAML catalog. Every change batch is
recorded per user and problem; with --record the sessions are written
out as edit sequences on shutdown, ready to be played again.

Endpoints:
  GET  /                                 Server info
  GET  /health                           Health check
  GET  /metrics                          Prometheus metrics
  POST /api/login                        Log in, returns a bearer token
  GET  /api/courses                      Registered courses
  GET  /api/courses/{id}/problems        Problems of a course
  PUT  /api/problem                      Select the active problem
  POST /api/changes                      Send a batch of changes
  POST /api/submissions                  Submit code for grading
  GET  /api/submissions/{id}             Submission status
  GET  /api/sessions                     Captured sessions
  GET  /dashboard/                       Live dashboard
  WS   /ws                               Live event feed`,
		Example: `  editplay serve --catalog catalog.yaml
  editplay serve --catalog catalog.yaml --addr :9090 --record sessions/ --grade-delay 2s
  editplay serve --catalog catalog.yaml --storage redis --redis-host localhost:6379`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, store, err := o.build(ctx, cmd, cfg, clock.NewRealClock(), logger)
			if err != nil {
				return err
			}
			defer store.Close()

			if mem, ok := store.(*storage.MemoryStorage); ok {
				go runCleanup(ctx, mem, o.storage.memoryCleanupInterval, logger)
			}

			logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost%s/dashboard/", o.addr))

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	o.addFlags(cmd)
	return cmd
}

func (o *serveOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.addr, "addr", ":8080", "address to listen on")
	cmd.Flags().StringVar(&o.catalog, "catalog", "", "path to the YAML catalog of users, courses and problems (required)")
	cmd.Flags().StringVar(&o.recordDir, "record", "", "directory that receives captured sessions on shutdown")
	cmd.Flags().DurationVar(&o.gradeDelay, "grade-delay", 0, "how long a submission stays pending before its result is ready")
	cmd.Flags().DurationVar(&o.tokenTTL, "token-ttl", 12*time.Hour, "lifetime of login tokens")
	o.storage.addFlags(cmd)
}

// build resolves the options against cfg and constructs the server and its
// storage. The caller owns the returned store.
func (o *serveOptions) build(ctx context.Context, cmd *cobra.Command, cfg config.Config, clk clock.Clock, logger *slog.Logger) (*server.Server, storage.Store, error) {
	o.applyConfigIfUnset(cmd, cfg)
	if o.catalog == "" {
		return nil, nil, fmt.Errorf("--catalog is required")
	}
	if o.gradeDelay < 0 {
		return nil, nil, fmt.Errorf("--grade-delay must not be negative, got %s", o.gradeDelay)
	}
	if err := o.storage.normalize(); err != nil {
		return nil, nil, err
	}

	catalog, err := server.LoadCatalog(o.catalog)
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.Open(ctx, o.storage.backend, o.storage.redisConfig(), clk)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s storage: %w", o.storage.backend, err)
	}

	srv, err := server.New(server.Options{
		Addr:        o.addr,
		Catalog:     catalog,
		Storage:     store,
		Clock:       clk,
		Logger:      logger,
		TokenSecret: []byte(cfg.Server.TokenSecret),
		TokenTTL:    o.tokenTTL,
		GradeDelay:  o.gradeDelay,
		RecordDir:   o.recordDir,

		LoginAttempts: cfg.Server.LoginAttempts,
		LoginWindow:   cfg.Server.LoginWindow,
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return srv, store, nil
}

func runCleanup(ctx context.Context, mem *storage.MemoryStorage, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := mem.Cleanup(); n > 0 {
				logger.Debug("expired keys removed", "count", n)
			}
		}
	}
}
