package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/andreibyf/aishacrm-engine/internal/store"
	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

// DefaultTickInterval is how often the scheduler checks for due workflows.
const DefaultTickInterval = 30 * time.Second

// WorkflowEnqueuer is the interface the scheduler uses to fire a workflow.
// Satisfied by the engine runner (avoids import cycle).
type WorkflowEnqueuer interface {
	Enqueue(ctx context.Context, workflowID string, payload map[string]any) (*store.Job, error)
}

// Scheduler fires schedule-triggered workflows on their cron expressions.
// Due workflows are enqueued, not run inline, so the queue dispatcher owns
// delivery the same way it does for webhook triggers.
type Scheduler struct {
	store    store.Store
	enqueuer WorkflowEnqueuer
	parser   cron.Parser
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	// nextMu guards next, the in-memory due times keyed by workflow ID.
	// A workflow seen for the first time gets its slot computed without
	// firing, so restarts don't replay the schedule.
	nextMu sync.Mutex
	next   map[string]time.Time
}

// NewScheduler creates a Scheduler with the standard five-field cron parser.
func NewScheduler(s store.Store, enqueuer WorkflowEnqueuer, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:    s,
		enqueuer: enqueuer,
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		interval: interval,
		logger:   logger,
		next:     make(map[string]time.Time),
	}
}

// Start launches the background scheduling loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}

	schedCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop(schedCtx)
	s.logger.Info("scheduler started", "tick_interval", s.interval)
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run an initial tick immediately to seed the due times.
	s.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick checks all active schedule-triggered workflows and enqueues those
// that are due. Exposed for tests.
func (s *Scheduler) Tick(ctx context.Context) {
	workflows, err := s.store.ListWorkflows(ctx, store.WorkflowFilter{
		TriggerType: schema.TriggerTypeSchedule,
		ActiveOnly:  true,
	})
	if err != nil {
		s.logger.Error("list scheduled workflows failed", "error", err)
		return
	}

	now := time.Now().UTC()
	for _, wf := range workflows {
		cronExpr := triggerString(wf.Trigger.Config, "cron")
		if cronExpr == "" {
			s.logger.Warn("schedule trigger without cron expression", "workflow_id", wf.ID)
			continue
		}

		due, known := s.dueAt(wf.ID)
		if !known {
			nextRun, parseErr := s.CalculateNextRun(cronExpr, now)
			if parseErr != nil {
				s.logger.Error("invalid cron expression", "workflow_id", wf.ID, "cron", cronExpr, "error", parseErr)
				continue
			}
			s.setDueAt(wf.ID, nextRun)
			continue
		}

		if now.Before(due) {
			continue
		}

		s.fire(ctx, wf, now, cronExpr)
	}

	s.pruneMissing(workflows)
}

func (s *Scheduler) fire(ctx context.Context, wf *schema.Workflow, now time.Time, cronExpr string) {
	payload, _ := wf.Trigger.Config["payload"].(map[string]any)

	if _, err := s.enqueuer.Enqueue(ctx, wf.ID, payload); err != nil {
		s.logger.Error("enqueue scheduled workflow failed", "workflow_id", wf.ID, "error", err)
	} else {
		s.logger.Info("scheduled workflow fired", "workflow_id", wf.ID, "cron", cronExpr)
	}

	nextRun, err := s.CalculateNextRun(cronExpr, now)
	if err != nil {
		s.logger.Error("invalid cron expression", "workflow_id", wf.ID, "cron", cronExpr, "error", err)
		s.clearDueAt(wf.ID)
		return
	}
	s.setDueAt(wf.ID, nextRun)
}

// CalculateNextRun computes the next run time for a cron expression.
func (s *Scheduler) CalculateNextRun(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := s.parser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	return schedule.Next(from), nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}

	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil

	s.logger.Info("scheduler stopped")
	return nil
}

// --- due-time bookkeeping ---

func (s *Scheduler) dueAt(workflowID string) (time.Time, bool) {
	s.nextMu.Lock()
	defer s.nextMu.Unlock()
	t, ok := s.next[workflowID]
	return t, ok
}

func (s *Scheduler) setDueAt(workflowID string, t time.Time) {
	s.nextMu.Lock()
	defer s.nextMu.Unlock()
	s.next[workflowID] = t
}

func (s *Scheduler) clearDueAt(workflowID string) {
	s.nextMu.Lock()
	defer s.nextMu.Unlock()
	delete(s.next, workflowID)
}

// pruneMissing drops due times for workflows that were deleted or deactivated.
func (s *Scheduler) pruneMissing(active []*schema.Workflow) {
	keep := make(map[string]bool, len(active))
	for _, wf := range active {
		keep[wf.ID] = true
	}
	s.nextMu.Lock()
	defer s.nextMu.Unlock()
	for id := range s.next {
		if !keep[id] {
			delete(s.next, id)
		}
	}
}

func triggerString(config map[string]any, key string) string {
	if config == nil {
		return ""
	}
	v, _ := config[key].(string)
	return v
}
