package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/andreibyf/aishacrm-engine/internal/engine"
	"github.com/andreibyf/aishacrm-engine/internal/store"
)

// DefaultPollInterval is how often the dispatcher checks for queued jobs.
const DefaultPollInterval = 500 * time.Millisecond

// DefaultBatchSize is how many jobs one poll claims at most.
const DefaultBatchSize = 10

// DefaultConcurrency is the default pool size for job delivery.
const DefaultConcurrency = 4

// Config tunes the dispatcher loop.
type Config struct {
	PollInterval time.Duration
	BatchSize    int
	Concurrency  int
}

// Dispatcher delivers queued trigger jobs to the workflow runner. Jobs are
// polled from the store, run through the same synchronous path as direct
// invocations, and marked delivered or failed with the resulting execution.
type Dispatcher struct {
	store  store.Store
	runner *engine.Runner
	pool   *Pool
	cfg    Config
	logger *slog.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewDispatcher wires a dispatcher over the store and runner.
func NewDispatcher(s store.Store, runner *engine.Runner, cfg Config, logger *slog.Logger) *Dispatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:  s,
		runner: runner,
		pool:   NewPool(cfg.Concurrency),
		cfg:    cfg,
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the polling loop. It returns immediately; call Stop to
// drain in-flight jobs and halt.
func (d *Dispatcher) Start(ctx context.Context) {
	go func() {
		defer close(d.done)
		ticker := time.NewTicker(d.cfg.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-d.stop:
				return
			case <-ticker.C:
				d.DispatchOnce(ctx)
			}
		}
	}()
}

// Stop halts polling, waits for in-flight jobs, and shuts the pool down.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
	<-d.done
	d.pool.Shutdown()
}

// DispatchOnce claims one batch of queued jobs and delivers them through the
// pool. Exposed for tests and for drain-on-shutdown use.
func (d *Dispatcher) DispatchOnce(ctx context.Context) {
	jobs, err := d.store.ListQueuedJobs(ctx, d.cfg.BatchSize)
	if err != nil {
		d.logger.Error("list queued jobs failed", "error", err)
		return
	}

	var wg sync.WaitGroup
	for _, job := range jobs {
		j := job
		wg.Add(1)
		submitErr := d.pool.Submit(ctx, func(jobCtx context.Context) error {
			defer wg.Done()
			d.deliver(jobCtx, j)
			return nil
		})
		if submitErr != nil {
			wg.Done()
			d.logger.Warn("job submit rejected", "job_id", j.ID, "error", submitErr)
		}
	}
	wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, job *store.Job) {
	result, err := d.runner.RunNow(ctx, job.WorkflowID, job.Payload)
	if err != nil {
		// Rejected before an execution record existed, e.g. the workflow was
		// deactivated after enqueueing. The job is terminal either way.
		d.logger.Warn("job delivery rejected", "job_id", job.ID, "workflow_id", job.WorkflowID, "error", err)
		if markErr := d.store.MarkJobFailed(context.Background(), job.ID); markErr != nil {
			d.logger.Error("mark job failed", "job_id", job.ID, "error", markErr)
		}
		return
	}

	if markErr := d.store.MarkJobDelivered(context.Background(), job.ID, result.ExecutionID); markErr != nil {
		d.logger.Error("mark job delivered", "job_id", job.ID, "error", markErr)
		return
	}
	d.logger.Info("job delivered", "job_id", job.ID, "execution_id", result.ExecutionID, "status", result.Status)
}
