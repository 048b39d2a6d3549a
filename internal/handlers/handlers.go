// Package handlers serves the status surface of a running ladder-sync:
// liveness, dependency readiness, Prometheus metrics and the last run report.
package handlers

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/allinsc2/ladder-sync/internal/ladder"
)

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

type Config struct {
	Reports *Reports
	Checks  map[string]Check
	Logger  *zap.Logger
}

type Handler struct {
	reports *Reports
	checks  map[string]Check
	logger  *zap.SugaredLogger
}

func New(cfg Config) *Handler {
	if cfg.Reports == nil {
		cfg.Reports = &Reports{}
	}
	return &Handler{
		reports: cfg.Reports,
		checks:  cfg.Checks,
		logger:  cfg.Logger.Sugar(),
	}
}

// Reports holds the most recent run report. It is written by the scheduler
// and read by the HTTP handlers.
type Reports struct {
	mu     sync.RWMutex
	latest *ladder.Report
}

func (r *Reports) Store(report *ladder.Report) {
	r.mu.Lock()
	r.latest = report
	r.mu.Unlock()
}

func (r *Reports) Latest() *ladder.Report {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}
