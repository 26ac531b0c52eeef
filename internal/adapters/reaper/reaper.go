// Package reaper removes terminal jobs after their retention window so the
// store does not grow without bound.
package reaper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lessonforge/videogen/config"
	"github.com/lessonforge/videogen/internal/core"
)

// Options groups dependencies for Reaper.
type Options struct {
	Store  core.JobStore
	Config config.ReaperConfig
	Logger *slog.Logger
}

// Reaper periodically sweeps the job store and deletes completed and failed
// jobs whose terminal write is older than the retention window. Queued and
// processing jobs are never touched.
type Reaper struct {
	store     core.JobStore
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

// New constructs a Reaper.
func New(opts Options) (*Reaper, error) {
	if opts.Store == nil {
		return nil, errors.New("job store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reaper{
		store:     opts.Store,
		retention: opts.Config.Retention,
		interval:  opts.Config.Interval,
		logger:    logger.With("component", "reaper"),
	}, nil
}

// Run sweeps at the configured interval until the context is cancelled.
// Returns nil on graceful shutdown.
func (r *Reaper) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting reaper", "interval", r.interval, "retention", r.retention)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if _, err := r.Sweep(ctx); err != nil {
		r.logger.ErrorContext(ctx, "initial sweep failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "reaper stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				r.logger.ErrorContext(ctx, "sweep failed", "error", err)
			}
		}
	}
}

// Sweep deletes expired terminal jobs once and returns how many were removed.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	jobs, err := r.store.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-r.retention)
	removed := 0
	for _, job := range jobs {
		if !job.Status.Terminal() || job.UpdatedAt.After(cutoff) {
			continue
		}
		deleted, delErr := r.store.Delete(ctx, job.ID)
		if delErr != nil {
			r.logger.ErrorContext(ctx, "delete expired job", "job_id", job.ID, "error", delErr)
			continue
		}
		if deleted {
			removed++
		}
	}

	if removed > 0 {
		r.logger.InfoContext(ctx, "sweep removed expired jobs", "count", removed)
	}
	return removed, nil
}
