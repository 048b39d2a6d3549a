// Package worker runs independent units of work and waits for all of them.
// Two executors share one contract:
// - Pool: a bounded set of goroutines draining a job channel
// - Inline: one unit at a time on the caller's goroutine, for debugging
//
// A failing or panicking unit is logged and counted; it never stops the
// remaining units.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Prometheus metrics
var (
	unitsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ladder_sync_units_processed_total",
		Help: "Total number of work units that completed successfully",
	}, []string{"path"})

	unitsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ladder_sync_units_failed_total",
		Help: "Total number of work units that failed or panicked",
	}, []string{"path"})

	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ladder_sync_worker_queue_depth",
		Help: "Current depth of the worker queue",
	}, []string{"path"})

	unitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ladder_sync_unit_duration_seconds",
		Help:    "Duration of individual work units",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})
)

// Unit is one independent piece of work.
type Unit struct {
	Name string
	Run  func(ctx context.Context) error
}

// Outcome counts what happened to a batch of units.
type Outcome struct {
	Submitted int `json:"submitted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Executor runs every unit and returns once all have finished.
type Executor interface {
	Execute(ctx context.Context, path string, units []Unit) Outcome
}

// PoolConfig configures the worker pool
type PoolConfig struct {
	WorkerCount int
	QueueSize   int
	Logger      *zap.Logger
}

// Pool runs units on a fixed number of goroutines.
type Pool struct {
	config PoolConfig
	logger *zap.SugaredLogger
}

func NewPool(cfg PoolConfig) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 32
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.WorkerCount * 4
	}
	return &Pool{
		config: cfg,
		logger: cfg.Logger.Sugar(),
	}
}

// Execute fans units out to the workers and blocks until every unit ran.
func (p *Pool) Execute(ctx context.Context, path string, units []Unit) Outcome {
	jobQueue := make(chan Unit, p.config.QueueSize)
	var succeeded, failed atomic.Int64
	var wg sync.WaitGroup

	workers := p.config.WorkerCount
	if workers > len(units) {
		workers = len(units)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go p.worker(ctx, i, path, jobQueue, &succeeded, &failed, &wg)
	}

	p.logger.Infow("Worker pool started",
		"path", path,
		"workers", workers,
		"units", len(units),
	)

	for _, u := range units {
		jobQueue <- u
		queueDepth.WithLabelValues(path).Set(float64(len(jobQueue)))
	}
	close(jobQueue)
	wg.Wait()
	queueDepth.WithLabelValues(path).Set(0)

	out := Outcome{Submitted: len(units), Succeeded: int(succeeded.Load()), Failed: int(failed.Load())}
	p.logger.Infow("Worker pool drained", "path", path, "succeeded", out.Succeeded, "failed", out.Failed)
	return out
}

func (p *Pool) worker(ctx context.Context, id int, path string, jobs <-chan Unit, succeeded, failed *atomic.Int64, wg *sync.WaitGroup) {
	defer wg.Done()

	for u := range jobs {
		if err := runUnit(ctx, path, u); err != nil {
			p.logger.Errorw("Unit failed", "worker", id, "path", path, "unit", u.Name, "error", err)
			failed.Add(1)
			continue
		}
		succeeded.Add(1)
	}
}

// Inline runs units sequentially on the calling goroutine.
type Inline struct {
	logger *zap.SugaredLogger
}

func NewInline(logger *zap.Logger) *Inline {
	return &Inline{logger: logger.Sugar()}
}

func (e *Inline) Execute(ctx context.Context, path string, units []Unit) Outcome {
	out := Outcome{Submitted: len(units)}
	for _, u := range units {
		if err := runUnit(ctx, path, u); err != nil {
			e.logger.Errorw("Unit failed", "path", path, "unit", u.Name, "error", err)
			out.Failed++
			continue
		}
		out.Succeeded++
	}
	e.logger.Infow("Inline execution finished", "path", path, "succeeded", out.Succeeded, "failed", out.Failed)
	return out
}

// NewExecutor selects an executor by mode name ("pool" or "inline").
func NewExecutor(mode string, workers int, logger *zap.Logger) Executor {
	if mode == "inline" {
		return NewInline(logger)
	}
	return NewPool(PoolConfig{WorkerCount: workers, Logger: logger})
}

// runUnit runs u and converts a panic into an error.
func runUnit(ctx context.Context, path string, u Unit) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		unitDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
		if err != nil {
			unitsFailed.WithLabelValues(path).Inc()
		} else {
			unitsProcessed.WithLabelValues(path).Inc()
		}
	}()
	return u.Run(ctx)
}
