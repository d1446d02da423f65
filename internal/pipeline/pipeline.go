// Package pipeline runs the appointment analysis end to end: load, summarize,
// clean, visualize, split, train the three strategies and evaluate them.
package pipeline

import (
	"context"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	"github.com/paveg/noshow/internal/config"
	"github.com/paveg/noshow/internal/logging"
	memtrack "github.com/paveg/noshow/internal/memory"
	"github.com/paveg/noshow/internal/monitoring"
	"github.com/paveg/noshow/internal/parallel"
	"github.com/sirupsen/logrus"
)

// Pipeline holds the collaborators of a run. A Pipeline may be run more than
// once; each run gets its own run ID and report.
type Pipeline struct {
	cfg     config.Config
	logger  logrus.FieldLogger
	mem     memory.Allocator
	pool    *parallel.WorkerPool
	metrics *monitoring.MetricsCollector
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger stages report to.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithAllocator sets the Arrow allocator for loaded and cleaned tables.
func WithAllocator(mem memory.Allocator) Option {
	return func(p *Pipeline) {
		p.mem = mem
	}
}

// WithWorkerPool shares an existing pool. The caller keeps ownership.
func WithWorkerPool(pool *parallel.WorkerPool) Option {
	return func(p *Pipeline) {
		p.pool = pool
	}
}

// WithMetrics sets the collector stage metrics are recorded into.
func WithMetrics(metrics *monitoring.MetricsCollector) Option {
	return func(p *Pipeline) {
		p.metrics = metrics
	}
}

// New validates cfg and builds a pipeline.
func New(cfg config.Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.Discard()
	}
	if p.mem == nil {
		p.mem = memory.NewGoAllocator()
	}
	return p, nil
}

// run is the state of a single Run call.
type run struct {
	ctx     context.Context
	cfg     config.Config
	mem     memory.Allocator
	pool    *parallel.WorkerPool
	log     logrus.FieldLogger
	metrics *monitoring.MetricsCollector
	report  *Report
}

// Run executes every stage in order and returns the report. The first
// failing stage aborts the run; cancellation is checked between stages and
// inside the parallel training stages.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	runID := uuid.NewString()

	pool := p.pool
	if pool == nil {
		pool = parallel.NewWorkerPool(p.cfg.WorkerPoolSize)
		defer pool.Close()
	}
	metrics := p.metrics
	if metrics == nil {
		metrics = monitoring.NewMetricsCollector(p.cfg.MetricsCollection)
	}

	tracker := memtrack.NewTrackingAllocator(p.mem)

	r := &run{
		ctx:     ctx,
		cfg:     p.cfg,
		mem:     tracker,
		pool:    pool,
		log:     p.logger.WithField("run_id", runID),
		metrics: metrics,
		report: &Report{
			RunID:   runID,
			Dataset: p.cfg.DatasetPath,
			Started: time.Now(),
		},
	}

	r.log.WithFields(logrus.Fields{
		"dataset": p.cfg.DatasetPath,
		"seed":    p.cfg.Seed,
		"workers": pool.Size(),
	}).Info("starting analysis")

	err := r.execute()
	r.report.Duration = time.Since(r.report.Started)
	r.report.Stages = metrics.GetMetrics()
	r.report.StageSummary = metrics.GetSummary()
	r.report.Memory = tracker.Stats()
	if err != nil {
		r.log.WithError(err).Error("analysis failed")
		return nil, err
	}

	r.log.WithFields(logrus.Fields{
		"duration":   r.report.Duration,
		"peak_bytes": r.report.Memory.Peak,
	}).Info("analysis complete")
	if r.report.Memory.Current != 0 {
		r.log.WithField("bytes", r.report.Memory.Current).Warn("arrow buffers still allocated after the run")
	}
	return r.report, nil
}

func (r *run) execute() error {
	raw, err := r.load()
	if err != nil {
		return err
	}
	defer raw.Release()

	if err := r.summarize(raw); err != nil {
		return err
	}

	cleaned, err := r.clean(raw)
	if err != nil {
		return err
	}
	defer cleaned.Release()

	if err := r.export(cleaned); err != nil {
		return err
	}
	if err := r.visualize(cleaned); err != nil {
		return err
	}

	data, err := r.encode(cleaned)
	if err != nil {
		return err
	}
	split, err := r.split(data)
	if err != nil {
		return err
	}

	return r.train(split)
}

// stage runs fn as one named, timed and logged step.
func (r *run) stage(name string, fn func() (int, error)) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	log := r.log.WithField("stage", name)
	log.Debug("stage started")

	start := time.Now()
	var rows int
	err := r.metrics.RecordOperation(name, func() (int, error) {
		var err error
		rows, err = fn()
		return rows, err
	})
	if err != nil {
		log.WithError(err).Error("stage failed")
		return err
	}

	log.WithFields(logrus.Fields{
		"rows":     rows,
		"duration": time.Since(start),
	}).Info("stage complete")
	return nil
}
