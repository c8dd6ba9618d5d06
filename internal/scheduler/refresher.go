package scheduler

import (
	"log/slog"
	"sync/atomic"

	cron "github.com/netresearch/go-cron"
)

// Refresher calls a function on a cron schedule. A run that is still going
// when the next activation fires causes that activation to be skipped.
type Refresher struct {
	expr    *CronExpr
	cron    *cron.Cron
	running atomic.Bool
	runs    atomic.Int64
	fn      func()
}

// NewRefresher creates a Refresher for spec. It does nothing until Start.
func NewRefresher(spec string, fn func()) (*Refresher, error) {
	expr, err := ParseCron(spec)
	if err != nil {
		return nil, err
	}
	r := &Refresher{expr: expr, cron: cron.New(), fn: fn}
	r.cron.Schedule(expr.schedule, cron.FuncJob(r.run))
	return r, nil
}

// Start begins firing in the background.
func (r *Refresher) Start() {
	r.cron.Start()
	slog.Debug("refresher started", "schedule", r.expr.String())
}

// Stop halts the schedule and waits for a running call to return.
func (r *Refresher) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	slog.Debug("refresher stopped", "runs", r.runs.Load())
}

// Runs returns how many times the function has been called.
func (r *Refresher) Runs() int64 {
	return r.runs.Load()
}

func (r *Refresher) run() {
	if !r.running.CompareAndSwap(false, true) {
		slog.Debug("refresh still running, skipping", "schedule", r.expr.String())
		return
	}
	defer r.running.Store(false)
	r.runs.Add(1)
	r.fn()
}
