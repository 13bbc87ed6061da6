package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/andreibyf/aishacrm-engine/internal/store"
	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

// Recorder persists the execution lifecycle: a running record before the
// first node executes, and a terminal update once the walk ends. The
// terminal write is best-effort so an outcome is recorded even for runs
// that blew up mid-flight.
type Recorder struct {
	store  store.Store
	logger *slog.Logger
}

// NewRecorder creates a Recorder over the given store.
func NewRecorder(s store.Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: s, logger: logger}
}

// Begin persists a running execution record with an empty log and the
// trigger payload snapshot. This happens before any node executes so a
// crash mid-run still leaves a visible record.
func (r *Recorder) Begin(ctx context.Context, wf *schema.Workflow, payload map[string]any) (*store.Execution, error) {
	exec := &store.Execution{
		ID:         uuid.New().String(),
		WorkflowID: wf.ID,
		TenantID:   wf.TenantID,
		Status:     schema.ExecutionStatusRunning,
		Payload:    payload,
		Log:        []schema.ExecutionLogEntry{},
		StartedAt:  time.Now().UTC(),
	}
	if err := r.store.CreateExecution(ctx, exec); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "create execution: %s", err.Error()).WithCause(err)
	}
	return exec, nil
}

// Finish writes the terminal status, final log, and timing onto the
// execution record, then bumps the workflow's run counters. The status is
// failed iff the log carries an error entry or runErr is non-empty. Writes
// use a fresh context so a cancelled run still gets finalized; failures are
// logged, never raised.
func (r *Recorder) Finish(exec *store.Execution, log []schema.ExecutionLogEntry, runErr string) (schema.ExecutionStatus, int64) {
	if log == nil {
		log = []schema.ExecutionLogEntry{}
	}

	status := schema.ExecutionStatusSuccess
	if runErr != "" || schema.HasError(log) {
		status = schema.ExecutionStatusFailed
	}

	completedAt := time.Now().UTC()
	durationMs := completedAt.Sub(exec.StartedAt).Milliseconds()

	update := store.ExecutionUpdate{
		Status:      &status,
		Log:         log,
		CompletedAt: &completedAt,
		DurationMs:  &durationMs,
	}
	if runErr != "" {
		update.Error = &runErr
	}

	bg := context.Background()
	if err := r.store.UpdateExecution(bg, exec.ID, update); err != nil {
		r.logger.Error("finalize execution failed", "execution_id", exec.ID, "error", err)
	}
	if err := r.store.BumpWorkflowRun(bg, exec.WorkflowID); err != nil {
		r.logger.Warn("bump workflow run counter failed", "workflow_id", exec.WorkflowID, "error", err)
	}

	exec.Status = status
	exec.Log = log
	exec.Error = runErr
	exec.CompletedAt = &completedAt
	exec.DurationMs = durationMs

	return status, durationMs
}
