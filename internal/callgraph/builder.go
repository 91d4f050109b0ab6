package callgraph

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"

	"github.com/trace-callgraph/internal/intervalstore"
	"github.com/trace-callgraph/internal/metrics"
	"github.com/trace-callgraph/pkg/config"
	apperrors "github.com/trace-callgraph/pkg/errors"
	"github.com/trace-callgraph/pkg/model"
	"github.com/trace-callgraph/pkg/utils"
)

const tracerName = "callgraph"

// Options holds configuration options for the call graph builder.
type Options struct {
	// ProcessesPattern locates process attributes from the store root.
	ProcessesPattern []string

	// ThreadsPattern locates thread attributes under each process.
	ThreadsPattern []string

	// CallStackPath is the stack attribute relative to each thread. Its
	// sub-attributes are the depths, shallowest first.
	CallStackPath []string

	Logger utils.Logger
	Clock  utils.Clock
}

// DefaultOptions returns default builder options.
func DefaultOptions() *Options {
	return &Options{
		ProcessesPattern: []string{"Processes", intervalstore.Wildcard},
		ThreadsPattern:   []string{intervalstore.Wildcard},
		CallStackPath:    []string{"CallStack"},
		Logger:           utils.GetGlobalLogger(),
		Clock:            utils.NewRealClock(),
	}
}

// OptionsFromConfig builds options from the callgraph config section.
func OptionsFromConfig(cfg *config.CallGraphConfig, logger utils.Logger) *Options {
	opts := DefaultOptions()
	opts.ProcessesPattern = cfg.ProcessesPattern
	opts.ThreadsPattern = cfg.ThreadsPattern
	opts.CallStackPath = cfg.CallStackPath
	if logger != nil {
		opts.Logger = logger
	}
	return opts
}

// Builder reconstructs the call trees of every thread found in a store.
type Builder struct {
	store intervalstore.Store
	opts  *Options
}

// NewBuilder creates a builder reading from store.
func NewBuilder(store intervalstore.Store, opts *Options) *Builder {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Logger == nil {
		opts.Logger = &utils.NullLogger{}
	}
	if opts.Clock == nil {
		opts.Clock = utils.NewRealClock()
	}
	return &Builder{store: store, opts: opts}
}

// threadRef is one thread discovered in the attribute tree.
type threadRef struct {
	process   model.AttributeID
	processID int
	thread    model.AttributeID
}

// Build runs one complete pass over the store. Nothing is returned unless
// every thread resolved completely.
func (b *Builder) Build(ctx context.Context) (res *Result, err error) {
	buildID := uuid.NewString()
	started := b.opts.Clock.Now()
	log := b.opts.Logger.WithField("build", buildID)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "callgraph.(*Builder).Build")
	span.SetAttributes(attribute.String("callgraph.build_id", buildID))
	defer span.End()
	defer func() {
		elapsed := b.opts.Clock.Since(started)
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
			status := metrics.StatusFailed
			if apperrors.IsCancelled(err) {
				status = metrics.StatusCancelled
			}
			metrics.ObserveBuild(status, elapsed.Seconds())
			log.Warn("build failed after %v: %v", elapsed, err)
			return
		}
		res.Elapsed = elapsed
		metrics.ObserveBuild(metrics.StatusSuccess, elapsed.Seconds())
		log.Info("built %d threads from %d intervals in %v", len(res.Threads), res.Intervals, elapsed)
	}()

	timeSpan := b.store.TimeSpan()
	refs, err := b.discoverThreads(ctx, timeSpan)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("callgraph.threads", len(refs)))

	res = &Result{BuildID: buildID, Span: timeSpan}
	for _, ref := range refs {
		node, stats, err := b.buildThread(ctx, timeSpan, ref)
		if err != nil {
			return nil, err
		}
		if node == nil {
			continue
		}
		res.Threads = append(res.Threads, node)
		res.Intervals += stats.Intervals
	}
	return res, nil
}

// discoverThreads walks processes then threads in attribute creation order.
func (b *Builder) discoverThreads(ctx context.Context, span model.TimeRange) ([]threadRef, error) {
	var refs []threadRef
	for _, proc := range b.store.AttributesMatching(model.RootAttribute, b.opts.ProcessesPattern...) {
		pid, err := b.attributeID(ctx, proc, span.End)
		if err != nil {
			return nil, err
		}
		for _, thread := range b.store.AttributesMatching(proc, b.opts.ThreadsPattern...) {
			refs = append(refs, threadRef{process: proc, processID: int(pid), thread: thread})
		}
	}
	return refs, nil
}

// attributeID reads a numeric id for a process or thread attribute: its
// integer value at t, else its name parsed as an integer, else -1.
func (b *Builder) attributeID(ctx context.Context, id model.AttributeID, t int64) (int64, error) {
	if id == model.RootAttribute {
		return -1, nil
	}
	iv, err := b.store.QuerySingle(ctx, t, id)
	switch {
	case err == nil:
		if n, ok := model.IntegerValue(iv.Value); ok {
			return n, nil
		}
	case apperrors.IsNotFound(err):
		// fall back to the name
	default:
		return 0, err
	}
	if n, err := strconv.ParseInt(b.store.AttributeName(id), 10, 64); err == nil {
		return n, nil
	}
	return -1, nil
}

// stackLevels returns the depth attributes of the thread's call stack
// ordered by depth. A thread without a call stack yields nil.
func (b *Builder) stackLevels(ref threadRef) ([]model.AttributeID, error) {
	stack, err := b.store.AttributeRelative(ref.thread, b.opts.CallStackPath...)
	if apperrors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	levels, err := b.store.SubAttributes(stack)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(levels, func(i, j int) bool {
		di, errI := strconv.Atoi(b.store.AttributeName(levels[i]))
		dj, errJ := strconv.Atoi(b.store.AttributeName(levels[j]))
		if errI != nil || errJ != nil {
			return errI == nil && errJ != nil
		}
		return di < dj
	})
	return levels, nil
}

func (b *Builder) buildThread(ctx context.Context, span model.TimeRange, ref threadRef) (*ThreadNode, threadStats, error) {
	name := b.store.AttributeName(ref.thread)

	levels, err := b.stackLevels(ref)
	if err != nil || len(levels) == 0 {
		return nil, threadStats{}, err
	}

	tid, err := b.attributeID(ctx, ref.thread, span.Start)
	if err != nil {
		return nil, threadStats{}, err
	}

	ctx, tspan := otel.Tracer(tracerName).Start(ctx, "callgraph.(*Builder).buildThread")
	tspan.SetAttributes(
		attribute.String("callgraph.thread", name),
		attribute.Int64("callgraph.tid", tid),
		attribute.Int("callgraph.depths", len(levels)),
	)
	defer tspan.End()

	node := newThreadNode(tid, ref.processID, name)
	chain := newLevelChain(node, ref.processID, levels)

	intervals, err := b.store.Query2D(ctx, levels, span)
	if err != nil {
		tspan.RecordError(err)
		return nil, threadStats{}, err
	}

	for _, iv := range intervals {
		select {
		case <-ctx.Done():
			return nil, threadStats{}, apperrors.Wrap(apperrors.CodeCancelled,
				fmt.Sprintf("build of thread %s cancelled", name), ctx.Err())
		default:
		}
		if err := chain.process(iv); err != nil {
			tspan.RecordError(err)
			return nil, threadStats{}, fmt.Errorf("thread %s: %w", name, err)
		}
	}
	if err := chain.verify(span); err != nil {
		tspan.RecordError(err)
		return nil, threadStats{}, fmt.Errorf("thread %s: %w", name, err)
	}

	metrics.ObserveThread(chain.stats.Intervals, chain.stats.Adopted)
	b.opts.Logger.WithFields(map[string]interface{}{
		"thread": name,
		"tid":    tid,
	}).Debug("%d intervals, %d calls, %d orphans adopted, %d null ranges, %d duplicates, max depth %d",
		chain.stats.Intervals, chain.stats.Calls, chain.stats.Adopted,
		chain.stats.NullRanges, chain.stats.Duplicates, node.MaxDepth)

	return node, chain.stats, nil
}

// Result is the immutable outcome of a successful build.
type Result struct {
	BuildID   string
	Span      model.TimeRange
	Threads   []*ThreadNode
	Elapsed   time.Duration
	Intervals int
}

// ThreadNodes returns one aggregated root per thread with a call stack.
func (r *Result) ThreadNodes() []*ThreadNode {
	return r.Threads
}

// Thread returns the root of the thread with the given id.
func (r *Result) Thread(tid int64) *ThreadNode {
	for _, t := range r.Threads {
		if t.ThreadID == tid {
			return t
		}
	}
	return nil
}

// MergedView returns a synthetic root holding a deep copy of every thread
// root's children. The per-thread trees are left untouched.
func (r *Result) MergedView() *ThreadNode {
	root := newThreadNode(0, -1, "")
	for _, t := range r.Threads {
		for _, child := range t.Children() {
			c := child.Clone()
			if len(root.children) == 0 {
				root.FirstStart = c.FirstStart
			}
			root.addChild(c)
			root.Duration += c.Duration
			root.MaxDepth = max(root.MaxDepth, c.MaxDepth)
			root.FirstStart = min(root.FirstStart, c.FirstStart)
		}
	}
	return root
}

// RootFunctions returns the depth 0 invocations of every thread ordered by
// start time.
func (r *Result) RootFunctions() []*CalledFunction {
	var out []*CalledFunction
	for _, t := range r.Threads {
		out = append(out, t.RootFunctions()...)
	}
	sortByStart(out)
	return out
}

// Segments returns every invocation of every thread ordered by start time,
// shallower first on ties.
func (r *Result) Segments() []*CalledFunction {
	var out []*CalledFunction
	for _, t := range r.Threads {
		out = append(out, t.Calls()...)
	}
	sortByStart(out)
	return out
}

func sortByStart(calls []*CalledFunction) {
	sort.SliceStable(calls, func(i, j int) bool {
		if calls[i].Start != calls[j].Start {
			return calls[i].Start < calls[j].Start
		}
		return calls[i].Depth < calls[j].Depth
	})
}
