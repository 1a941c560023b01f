package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fentz26/allot/internal/logging"
	"github.com/fentz26/allot/internal/models"
)

// ErrTooManyJobs is returned when a batch exceeds Config.MaxJobs.
var ErrTooManyJobs = errors.New("too many jobs in batch")

// Allocator allocates a single request. Implementations must be safe for
// concurrent use.
type Allocator interface {
	Allocate(ctx context.Context, req models.AllocationRequest) (*models.AllocationReport, error)
}

// Job is one named request in a batch.
type Job struct {
	Name    string                   `json:"name"`
	Request models.AllocationRequest `json:"request"`
}

// Result is the outcome of one job. Exactly one of Report and Err is set.
type Result struct {
	Name   string
	Report *models.AllocationReport
	Err    error
}

// Runner dispatches jobs to a bounded set of workers.
type Runner struct {
	allocator Allocator
	config    *Config
	logger    *zap.Logger

	mu        sync.Mutex
	active    int
	processed int
	failed    int
}

// New creates a runner. A nil config selects DefaultConfig.
func New(a Allocator, cfg *Config, logger *zap.Logger) *Runner {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Runner{
		allocator: a,
		config:    cfg,
		logger:    logging.OrNop(logger),
	}
}

// Run allocates every job and returns results in job order. A failing job
// never stops the others. Jobs not started before ctx is done report
// ctx.Err().
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	if len(jobs) > r.config.MaxJobs {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyJobs, len(jobs), r.config.MaxJobs)
	}

	results := make([]Result, len(jobs))
	started := time.Now()

	var g errgroup.Group
	g.SetLimit(r.config.Workers)
	for i, job := range jobs {
		results[i].Name = job.Name
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			r.track(1)
			defer r.track(-1)

			report, err := r.allocator.Allocate(ctx, job.Request)
			results[i].Report = report
			results[i].Err = err
			r.count(err)
			if err != nil {
				r.logger.Info("batch job rejected", zap.String("job", job.Name), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	r.logger.Info("batch complete",
		zap.Int("jobs", len(jobs)),
		zap.Int("workers", r.config.Workers),
		zap.Duration("elapsed", time.Since(started)),
	)
	return results, nil
}

func (r *Runner) track(delta int) {
	r.mu.Lock()
	r.active += delta
	r.mu.Unlock()
}

func (r *Runner) count(err error) {
	r.mu.Lock()
	r.processed++
	if err != nil {
		r.failed++
	}
	r.mu.Unlock()
}

// Stats is a point-in-time view of runner activity.
type Stats struct {
	ActiveWorkers int `json:"active_workers"`
	MaxWorkers    int `json:"max_workers"`
	Processed     int `json:"processed"`
	Failed        int `json:"failed"`
}

// GetStats returns current runner statistics.
func (r *Runner) GetStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		ActiveWorkers: r.active,
		MaxWorkers:    r.config.Workers,
		Processed:     r.processed,
		Failed:        r.failed,
	}
}
