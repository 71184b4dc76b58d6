package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/limn/pkg/buildinfo"
	"github.com/matzehuels/limn/pkg/cache"
	"github.com/matzehuels/limn/pkg/observability"
	"github.com/matzehuels/limn/pkg/pipeline"
	"github.com/matzehuels/limn/pkg/server"
	"github.com/matzehuels/limn/pkg/session"
)

// serveOptions holds the serve command flags.
type serveOptions struct {
	addr       string
	redisURL   string
	mongoURI   string
	sessionTTL time.Duration
	noCache    bool
	noStore    bool
}

// serveCommand runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API. Sessions hold live widget trees in memory and expire
after --session-ttl of inactivity. Snapshots persist to MongoDB with --mongo,
otherwise to the local snapshot directory. Stateless POST /solve results are
cached in Redis with --redis, otherwise in the local cache directory.
Prometheus metrics are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(withLogger(cmd.Context(), c.Logger), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.redisURL, "redis", "", "Redis URL for the result cache, e.g. redis://localhost:6379/0")
	cmd.Flags().StringVar(&opts.mongoURI, "mongo", "", "MongoDB URI for snapshot persistence")
	cmd.Flags().DurationVar(&opts.sessionTTL, "session-ttl", 30*time.Minute, "idle time before a session expires")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().BoolVar(&opts.noStore, "no-store", false, "disable snapshot persistence")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOptions) error {
	logger := loggerFromContext(ctx)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	hooks := observability.NewPrometheusHooks(reg)
	observability.SetSolverHooks(hooks)
	observability.SetCacheHooks(hooks)
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	resultCache, err := c.serveCache(ctx, opts)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(resultCache, cache.NewScopedKeyer(nil, "serve"), logger)
	defer runner.Close()

	sessions := session.NewManager(opts.sessionTTL, session.WithLogger(logger))
	go sessions.Run(ctx, time.Minute)

	srvOpts := []server.Option{
		server.WithLogger(logger),
		server.WithRunner(runner),
		server.WithMetrics(reg),
	}
	if !opts.noStore {
		st, err := openStore(ctx, opts.mongoURI)
		if err != nil {
			return err
		}
		defer st.Close(context.Background())
		srvOpts = append(srvOpts, server.WithStore(st))
	}

	httpSrv := &http.Server{
		Addr:              opts.addr,
		Handler:           server.New(sessions, srvOpts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- httpSrv.ListenAndServe() }()
	printSuccess("Serving %s on %s", buildinfo.ServerHeader(), StyleNumber.Render(opts.addr))
	printDetail("session ttl %s", opts.sessionTTL)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", "sessions", sessions.Len())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// serveCache picks the result cache: Redis, the local directory, or none.
func (c *CLI) serveCache(ctx context.Context, opts serveOptions) (cache.Cache, error) {
	if opts.noCache {
		return cache.NewNullCache(), nil
	}
	if opts.redisURL == "" {
		return newCache(false)
	}
	spin := newSpinnerWithContext(ctx, "Connecting to Redis...")
	spin.Start()
	defer spin.Stop()
	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{URL: opts.redisURL})
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}
