package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/trace-callgraph/internal/metrics"
)

var (
	// Batch command flags
	workers     int
	timeout     time.Duration
	metricsAddr string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [dump.json | trace-id]...",
	Short: "Build many traces in parallel",
	Long: `Build many traces on a bounded worker pool. Each trace gets its own build
directory; a failing trace does not stop the others.

Without arguments and with a SQL store, every imported trace is built.
With --metrics-addr, Prometheus metrics are served on /metrics while the
batch runs.`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	addExportFlags(batchCmd)
	batchCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent builds (overrides batch.workers)")
	batchCmd.Flags().DurationVar(&timeout, "timeout", 0, "Bound on the whole batch (overrides batch.timeout)")
	batchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides metrics.addr)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	if cmd.Flags().Changed("workers") {
		cfg.Batch.Workers = workers
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Batch.Timeout = timeout
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Metrics.Addr = metricsAddr
	}

	svc, err := newService(cmd)
	if err != nil {
		return err
	}

	sources := args
	if len(sources) == 0 {
		if sources, err = svc.ListSources(cmd.Context()); err != nil {
			return err
		}
	}
	if len(sources) == 0 {
		log.Info("Nothing to build")
		return nil
	}

	if cfg.Metrics.Addr != "" {
		srv := startMetricsServer(cfg.Metrics.Addr)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
	}

	log.Info("Building %d traces with %d workers", len(sources), cfg.Batch.Workers)
	items := svc.Batch(cmd.Context(), sources, func(completed, total int64) {
		log.Info("Progress: %d/%d", completed, total)
	})

	failed := 0
	for _, item := range items {
		if item.Err != nil {
			failed++
			log.Error("  FAIL %s: %v", item.Source, item.Err)
			continue
		}
		log.Info("  OK   %s -> %s (%d threads, %v)", item.Source, item.Report.BuildID, item.Report.Threads, item.Duration)
	}

	log.Info("%s", svc.Stats())
	if failed > 0 {
		return fmt.Errorf("%d of %d builds failed", failed, len(items))
	}
	return nil
}

func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		GetLogger().Info("Serving metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			GetLogger().Error("Metrics server error: %v", err)
		}
	}()
	return srv
}
