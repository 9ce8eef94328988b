package sweeper

import (
	"context"

	"github.com/robfig/cron/v3"

	"auction-house/utils"
)

// Runner schedules the sweepers on cron specs with seconds granularity.
type Runner struct {
	cron    *cron.Cron
	baseCtx context.Context
}

// NewRunner creates a runner whose jobs inherit baseCtx.
func NewRunner(baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Runner{
		cron:    cron.New(cron.WithSeconds()),
		baseCtx: baseCtx,
	}
}

// Add registers a named sweep job. Job errors are logged, never fatal:
// the next tick retries from current state.
func (r *Runner) Add(name, spec string, job func(ctx context.Context) error) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		if err := job(r.baseCtx); err != nil {
			utils.Error("sweep run failed", map[string]any{
				"sweep": name,
				"error": err.Error(),
			})
		}
	})
}

// Start begins scheduling.
func (r *Runner) Start() {
	utils.Info("sweep scheduler started", nil)
	r.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	utils.Info("sweep scheduler stopped", nil)
}
