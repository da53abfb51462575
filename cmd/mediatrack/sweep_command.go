package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"mediatrack/internal/logging"
	"mediatrack/internal/sweeper"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	var (
		once        bool
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Periodically delete expired cache entries until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := ctx.newSweeper()
			if err != nil {
				return err
			}
			if once {
				n, err := sw.RunOnce(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired entr%s\n", n, plural(n, "y", "ies"))
				return nil
			}

			if err := sw.Start(cmd.Context()); err != nil {
				return err
			}
			defer sw.Stop()

			if addr := strings.TrimSpace(metricsAddr); addr != "" {
				stop, err := ctx.serveMetrics(addr)
				if err != nil {
					return err
				}
				defer stop()
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sweeper running; press Ctrl+C to stop")
			<-cmd.Context().Done()
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Sweep once and exit")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")
	return cmd
}

func (c *commandContext) newSweeper() (*sweeper.Sweeper, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := c.ensureStore()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return sweeper.New(store, sweeper.Options{
		Interval:   cfg.SweepInterval(),
		LockPath:   cfg.SweeperLockPath(),
		Logger:     logger,
		Registerer: c.registry,
	})
}

// serveMetrics exposes the command registry on addr until the returned stop
// function is called.
func (c *commandContext) serveMetrics(addr string) (func(), error) {
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.WarnWithContext(logger, "metrics listener failed", "metrics_listener_failed",
				logging.Error(err),
				logging.String("addr", addr),
				logging.String(logging.FieldImpact, "metrics unavailable; sweeping continues"))
		}
	}()
	logger.Info("serving metrics", logging.String("addr", addr))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}, nil
}
