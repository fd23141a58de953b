package runner

import (
	"context"
	"sync"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/FalkorDB/gdbench/catalog"
	"github.com/FalkorDB/gdbench/graphdb"
)

// UsageSource supplies process usage figures for the emitted result,
// typically the telemetry sampler.
type UsageSource interface {
	CPUPercent() float64
	PeakRSS() uint64
}

// Runner owns one run end to end: validate, launch spawns, join, fold, emit
// exactly one RunResult.
type Runner struct {
	cfg     Config
	client  graphdb.Client
	records []catalog.QueryRecord
	obs     Observer
	usage   UsageSource
	opHists map[string]*hdrhistogram.Histogram
	logger  *log.Entry
}

// New assembles a runner over an already-dialed client and an in-memory
// catalog. The catalog is shared read-only with every spawn.
func New(cfg Config, client graphdb.Client, records []catalog.QueryRecord) *Runner {
	return &Runner{
		cfg:     cfg,
		client:  client,
		records: records,
		logger: log.WithFields(log.Fields{
			"vendor": cfg.Vendor,
			"run":    cfg.RunID,
		}),
	}
}

// WithObserver attaches per-operation counters (exported metrics).
func (r *Runner) WithObserver(obs Observer) *Runner {
	r.obs = obs
	return r
}

// WithUsage attaches the process usage source feeding cpu-usage/ram-usage.
func (r *Runner) WithUsage(u UsageSource) *Runner {
	r.usage = u
	return r
}

// OpHists exposes the merged per-query-name detail histograms after Run.
func (r *Runner) OpHists() map[string]*hdrhistogram.Histogram {
	return r.opHists
}

// Run drives the configured load and returns the folded result.
//
// Lifecycle: Configured -> Running -> {Completed | Aborted}. Validation
// failures return before any spawn starts. External cancellation or a
// deadline completes the run with the partial sample. A capability-loss
// error aborts: the partial result is still folded, marked aborted, and
// returned together with the cause.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	if err := r.cfg.Validate(len(r.records)); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	n := int(r.cfg.Parallelism)
	runStart := time.Now().Add(r.cfg.startDelay())
	sched := newSchedule(runStart, r.cfg.Parallelism, r.cfg.TargetMPS)

	r.logger.WithFields(log.Fields{
		"queries":  len(r.records),
		"parallel": n,
		"mps":      r.cfg.TargetMPS,
	}).Info("starting run")

	results := make([]*SpawnResult, n)
	lives := make([]liveCounters, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		results[i] = newSpawnResult(i, r.cfg.Buckets)
		sp := &spawn{
			id:     i,
			recs:   r.records,
			stride: r.cfg.Parallelism,
			sched:  sched,
			client: r.client,
			res:    results[i],
			live:   &lives[i],
			obs:    r.obs,
			fatal:  cancel,
			log:    r.logger.WithField("spawn", i),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			sp.run(runCtx)
		}()
	}

	stopProgress := r.startProgress(lives)
	wg.Wait()
	stopProgress()

	res, opHists, err := fold(runStart, results, r.cfg.Buckets)
	if err != nil {
		return nil, errors.Wrap(err, "cannot fold spawn results")
	}
	r.opHists = opHists

	res.Status = StatusCompleted
	var runErr error
	if cause := context.Cause(runCtx); cause != nil &&
		!errors.Is(cause, context.Canceled) && !errors.Is(cause, context.DeadlineExceeded) {
		res.Status = StatusAborted
		runErr = cause
	}
	if r.usage != nil {
		res.CPUUsage = r.usage.CPUPercent()
		res.RAMUsage = r.usage.PeakRSS()
	}

	r.logger.WithFields(log.Fields{
		"status":     res.Status,
		"elapsed-ms": res.ElapsedMs,
		"mps":        res.ActualMPS,
		"errors":     res.Errors,
	}).Info("run finished")
	return res, runErr
}
