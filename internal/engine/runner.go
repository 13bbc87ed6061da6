package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/andreibyf/aishacrm-engine/internal/executors"
	"github.com/andreibyf/aishacrm-engine/internal/logging"
	"github.com/andreibyf/aishacrm-engine/internal/store"
	"github.com/andreibyf/aishacrm-engine/internal/streaming"
	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

// Runner is the invocation facade over the traversal engine. RunNow loads,
// validates, and executes a workflow synchronously; Enqueue persists a queue
// job for the dispatcher to pick up later.
type Runner struct {
	store     store.Store
	traverser *Traverser
	recorder  *Recorder
	hub       streaming.EventHub
	logger    *slog.Logger
}

// NewRunner wires a Runner over the store and executor registry.
func NewRunner(s store.Store, registry *executors.Registry, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:     s,
		traverser: NewTraverser(registry, logger),
		recorder:  NewRecorder(s, logger),
		logger:    logger,
	}
}

// SetEventHub enables live event publication for runs. Events are best
// effort and never influence the outcome of a run.
func (r *Runner) SetEventHub(hub streaming.EventHub) {
	r.hub = hub
	r.traverser.hub = hub
}

// RunResult is the synchronous outcome of RunNow.
type RunResult struct {
	ExecutionID string                     `json:"execution_id"`
	WorkflowID  string                     `json:"workflow_id"`
	Status      schema.ExecutionStatus     `json:"status"`
	Log         []schema.ExecutionLogEntry `json:"execution_log"`
	DurationMs  int64                      `json:"duration_ms"`
}

// RunNow executes a workflow synchronously against the given trigger
// payload. Missing, inactive, and empty workflows are rejected before any
// execution record is created. Once a record exists the run always reaches a
// terminal status: engine-level faults are recovered and force the record to
// failed with whatever log was accumulated.
func (r *Runner) RunNow(ctx context.Context, workflowID string, payload map[string]any) (*RunResult, error) {
	wf, err := r.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if !wf.IsActive {
		return nil, schema.NewErrorf(schema.ErrCodeInactive, "workflow %s is not active", wf.ID)
	}
	if len(wf.Nodes) == 0 {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "workflow %s has no nodes", wf.ID)
	}

	exec, err := r.recorder.Begin(ctx, wf, payload)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithRunIDs(ctx, wf.TenantID, wf.ID, exec.ID)
	rc := executors.NewRunContext(wf.TenantID, wf.ID, payload)
	r.publish(ctx, wf.ID, exec.ID, streaming.EventExecutionStarted, nil)

	var log []schema.ExecutionLogEntry
	var walkErr error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				walkErr = schema.NewErrorf(schema.ErrCodeExecution, "engine fault: %v", rec)
				r.logger.ErrorContext(ctx, "recovered engine fault", "panic", rec)
			}
		}()
		walkErr = r.traverser.Walk(ctx, wf, rc, &log)
	}()

	errMsg := ""
	if walkErr != nil {
		errMsg = walkErr.Error()
	}
	status, durationMs := r.recorder.Finish(exec, log, errMsg)
	r.publish(ctx, wf.ID, exec.ID, streaming.EventExecutionFinished,
		map[string]any{"status": status, "duration_ms": durationMs})

	r.logger.InfoContext(ctx, "workflow run finished",
		"status", status, "visited", len(log), "duration_ms", durationMs)

	return &RunResult{
		ExecutionID: exec.ID,
		WorkflowID:  wf.ID,
		Status:      status,
		Log:         exec.Log,
		DurationMs:  durationMs,
	}, nil
}

func (r *Runner) publish(ctx context.Context, workflowID, executionID, eventType string, payload map[string]any) {
	if r.hub == nil {
		return
	}
	_ = r.hub.Publish(ctx, streaming.StreamEvent{
		WorkflowID:  workflowID,
		ExecutionID: executionID,
		EventType:   eventType,
		Payload:     payload,
	})
}

// Enqueue validates the workflow and persists a queued job carrying the
// trigger payload. The dispatcher later turns the job into a RunNow call.
func (r *Runner) Enqueue(ctx context.Context, workflowID string, payload map[string]any) (*store.Job, error) {
	wf, err := r.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if !wf.IsActive {
		return nil, schema.NewErrorf(schema.ErrCodeInactive, "workflow %s is not active", wf.ID)
	}

	job := &store.Job{
		ID:         uuid.New().String(),
		WorkflowID: wf.ID,
		TenantID:   wf.TenantID,
		Payload:    payload,
		Status:     store.JobQueued,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.store.CreateJob(ctx, job); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "enqueue job: %s", err.Error()).WithCause(err)
	}

	r.logger.InfoContext(ctx, "workflow trigger queued", "workflow_id", wf.ID, "job_id", job.ID)
	return job, nil
}
