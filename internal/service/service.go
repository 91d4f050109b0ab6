// Package service drives call graph builds end to end: it opens the interval
// store, runs the analysis, writes the exports and optionally publishes them.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/trace-callgraph/internal/callgraph"
	"github.com/trace-callgraph/internal/intervalstore"
	"github.com/trace-callgraph/internal/statistics"
	"github.com/trace-callgraph/internal/storage"
	"github.com/trace-callgraph/internal/symbol"
	"github.com/trace-callgraph/pkg/config"
	apperrors "github.com/trace-callgraph/pkg/errors"
	"github.com/trace-callgraph/pkg/parallel"
	"github.com/trace-callgraph/pkg/utils"
	"github.com/trace-callgraph/pkg/writer"
)

// Service is the main application service.
type Service struct {
	config    *config.Config
	logger    utils.Logger
	resolver  symbol.Resolver
	exporter  *Exporter
	publisher *storage.Publisher

	builds   atomic.Int64
	failures atomic.Int64
}

// New creates a new Service instance.
func New(cfg *config.Config, logger utils.Logger) (*Service, error) {
	if cfg == nil {
		return nil, apperrors.New(apperrors.CodeConfigError, "config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "invalid config", err)
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}

	return &Service{
		config:   cfg,
		logger:   logger,
		exporter: NewExporter(cfg.Export, nil, logger),
	}, nil
}

// SetResolver names address symbols in every export.
func (s *Service) SetResolver(r symbol.Resolver) {
	s.resolver = r
	s.exporter = NewExporter(s.config.Export, r, s.logger)
}

// EnablePublishing uploads the files of every build to the configured object
// storage under prefix.
func (s *Service) EnablePublishing(prefix string) error {
	s.logger.Info("Initializing storage (%s)...", s.config.Storage.Type)

	store, err := storage.NewStorage(&s.config.Storage)
	if err != nil {
		return err
	}
	s.publisher = storage.NewPublisher(store, prefix, s.logger)
	return nil
}

// Build reconstructs the call graph of one trace and writes its exports.
// For the memory store, source is a JSON dump path; for SQL stores it is
// the trace id.
func (s *Service) Build(ctx context.Context, source string) (report *BuildReport, err error) {
	defer func() {
		if err != nil {
			s.failures.Add(1)
			return
		}
		s.builds.Add(1)
	}()

	log := s.logger.WithField("source", source)

	store, closeStore, err := intervalstore.Open(ctx, &s.config.Store, source)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := closeStore(); cerr != nil {
			log.Warn("failed to close store: %v", cerr)
		}
	}()

	opts := callgraph.OptionsFromConfig(&s.config.CallGraph, log)
	analysis := callgraph.NewAnalysis(callgraph.NewBuilder(store, opts))
	analysis.AddListener(callgraph.ListenerFunc(func(res *callgraph.Result) {
		log.Debug("build %s published with %d threads", res.BuildID, len(res.Threads))
	}))

	if err := analysis.Run(ctx); err != nil {
		return nil, err
	}
	res := analysis.Result()

	dir := filepath.Join(s.config.Export.OutputDir, res.BuildID)
	files, err := s.exporter.Export(ctx, res, dir)
	if err != nil {
		return nil, err
	}

	report = s.newReport(source, res)
	summary := filepath.Join(dir, SummaryFile)
	if err := writer.NewPrettyJSONWriter[*BuildReport]().WriteToFile(report, summary); err != nil {
		return nil, exportError(summary, err)
	}
	report.Files = append(files, summary)

	if s.publisher != nil {
		artifacts, err := s.publisher.Publish(ctx, res.BuildID, report.Files)
		report.Artifacts = artifacts
		if err != nil {
			return report, err
		}
	}

	log.Info("build %s complete: %d threads, %d files", res.BuildID, len(res.Threads), len(report.Files))
	return report, nil
}

func (s *Service) newReport(source string, res *callgraph.Result) *BuildReport {
	topFuncs := statistics.NewTopFuncsCalculator(
		statistics.WithTopN(s.config.Export.TopN),
		statistics.WithResolver(s.resolver),
	).Calculate(res)
	threads := statistics.NewThreadStatsCalculator().Calculate(res)

	return &BuildReport{
		BuildID:     res.BuildID,
		Source:      source,
		Start:       res.Span.Start,
		End:         res.Span.End,
		Threads:     len(res.Threads),
		Intervals:   res.Intervals,
		Elapsed:     res.Elapsed,
		TotalTime:   topFuncs.TotalTime,
		TopFuncs:    topFuncs.TopFuncs,
		ThreadStats: threads.Threads,
	}
}

// BatchItem is the outcome of one trace in a batch.
type BatchItem struct {
	Source   string
	Report   *BuildReport
	Err      error
	Duration time.Duration
}

// Batch builds many traces concurrently. progress, when not nil, is called
// periodically with the number of finished builds.
func (s *Service) Batch(ctx context.Context, sources []string, progress func(completed, total int64)) []BatchItem {
	poolCfg := parallel.DefaultPoolConfig().WithWorkers(s.config.Batch.Workers).WithMetrics()
	if s.config.Batch.Timeout > 0 {
		poolCfg = poolCfg.WithTimeout(s.config.Batch.Timeout)
	}

	var tracker *parallel.ProgressTracker
	if progress != nil {
		tracker = parallel.NewProgressTracker(int64(len(sources)), progress, time.Second)
		tracker.Start(ctx)
		defer tracker.Stop()
	}

	pool := parallel.NewWorkerPool[string, *BuildReport](poolCfg)
	results := pool.Execute(ctx, sources, func(ctx context.Context, source string) (*BuildReport, error) {
		if tracker != nil {
			defer tracker.Increment()
		}
		return s.Build(ctx, source)
	})

	m := pool.Metrics()
	s.logger.Info("batch finished: %d completed, %d failed, %d skipped in %v",
		m.CompletedTasks, m.FailedTasks, m.SkippedTasks, m.TotalDuration)

	items := make([]BatchItem, len(results))
	for i, r := range results {
		items[i] = BatchItem{Source: r.Input, Report: r.Result, Err: r.Error, Duration: r.Duration}
	}
	return items
}

// ListSources returns the trace ids stored in the configured SQL store.
func (s *Service) ListSources(ctx context.Context) ([]string, error) {
	if intervalstore.StoreType(s.config.Store.Type) == intervalstore.StoreTypeMemory {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "the memory store has no trace catalog")
	}

	db, err := intervalstore.NewGormDB(&s.config.Store)
	if err != nil {
		return nil, err
	}
	defer intervalstore.CloseDB(db)

	traces, err := intervalstore.ListTraces(ctx, db)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(traces))
	for i, t := range traces {
		ids[i] = t.ID
	}
	return ids, nil
}

// Import loads a JSON interval dump into the configured SQL store. An empty
// traceID gets a fresh one. The trace id is returned.
func (s *Service) Import(ctx context.Context, dumpPath, traceID, name string) (string, error) {
	if intervalstore.StoreType(s.config.Store.Type) == intervalstore.StoreTypeMemory {
		return "", apperrors.New(apperrors.CodeConfigError, "import needs a SQL store type")
	}

	f, err := os.Open(dumpPath)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeNotFound, "failed to open interval dump", err)
	}
	defer f.Close()

	src, err := intervalstore.LoadJSON(f)
	if err != nil {
		return "", err
	}
	defer src.Dispose()

	db, err := intervalstore.NewGormDB(&s.config.Store)
	if err != nil {
		return "", err
	}
	defer intervalstore.CloseDB(db)

	if err := intervalstore.Migrate(db); err != nil {
		return "", apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to migrate store", err)
	}

	if traceID == "" {
		traceID = uuid.NewString()
	}
	if name == "" {
		name = filepath.Base(dumpPath)
	}
	if err := intervalstore.Import(ctx, db, traceID, name, src); err != nil {
		return "", err
	}

	s.logger.Info("imported %s as trace %s", dumpPath, traceID)
	return traceID, nil
}

// Stats returns service statistics.
func (s *Service) Stats() ServiceStats {
	return ServiceStats{
		Builds:   s.builds.Load(),
		Failures: s.failures.Load(),
	}
}

// ServiceStats holds service statistics.
type ServiceStats struct {
	Builds   int64 `json:"builds"`
	Failures int64 `json:"failures"`
}

// String implements fmt.Stringer.
func (st ServiceStats) String() string {
	return fmt.Sprintf("%d builds, %d failures", st.Builds, st.Failures)
}
