package scheduler

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreibyf/aishacrm-engine/internal/store"
	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

type fakeEnqueuer struct {
	mu   sync.Mutex
	jobs []*store.Job
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, workflowID string, payload map[string]any) (*store.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := &store.Job{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		Payload:    payload,
		Status:     store.JobQueued,
		CreatedAt:  time.Now().UTC(),
	}
	f.jobs = append(f.jobs, job)
	return job, nil
}

func (f *fakeEnqueuer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

func newTestScheduler(t *testing.T) (*Scheduler, *fakeEnqueuer, *store.LibSQLStore) {
	t.Helper()

	s, err := store.NewLibSQLStore("file:" + filepath.Join(t.TempDir(), "scheduler.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	enq := &fakeEnqueuer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewScheduler(s, enq, time.Minute, logger), enq, s
}

func seedScheduledWorkflow(t *testing.T, s *store.LibSQLStore, id, cronExpr string) *schema.Workflow {
	t.Helper()
	wf := &schema.Workflow{
		ID:       id,
		TenantID: "tenant-1",
		Name:     "nightly sync",
		Trigger: schema.Trigger{
			Type:   schema.TriggerTypeSchedule,
			Config: map[string]any{"cron": cronExpr, "payload": map[string]any{"source": "schedule"}},
		},
		IsActive: true,
		Nodes:    []schema.Node{{ID: "trigger", Type: schema.NodeWebhookTrigger}},
	}
	require.NoError(t, s.CreateWorkflow(context.Background(), wf))
	return wf
}

func TestTick_FirstSightingSeedsWithoutFiring(t *testing.T) {
	sched, enq, s := newTestScheduler(t)
	wf := seedScheduledWorkflow(t, s, "wf-sched", "* * * * *")

	sched.Tick(context.Background())

	assert.Zero(t, enq.count())
	due, known := sched.dueAt(wf.ID)
	require.True(t, known)
	assert.True(t, due.After(time.Now().UTC().Add(-time.Second)))
}

func TestTick_FiresWhenDue(t *testing.T) {
	sched, enq, s := newTestScheduler(t)
	wf := seedScheduledWorkflow(t, s, "wf-sched", "* * * * *")

	sched.setDueAt(wf.ID, time.Now().UTC().Add(-time.Minute))
	sched.Tick(context.Background())

	require.Equal(t, 1, enq.count())
	assert.Equal(t, wf.ID, enq.jobs[0].WorkflowID)
	assert.Equal(t, "schedule", enq.jobs[0].Payload["source"])

	// The next slot is pushed into the future; an immediate re-tick is a no-op.
	sched.Tick(context.Background())
	assert.Equal(t, 1, enq.count())
}

func TestTick_SkipsInactiveWorkflows(t *testing.T) {
	sched, enq, s := newTestScheduler(t)
	wf := seedScheduledWorkflow(t, s, "wf-sched", "* * * * *")
	require.NoError(t, s.SetWorkflowActive(context.Background(), wf.ID, false))

	sched.setDueAt(wf.ID, time.Now().UTC().Add(-time.Minute))
	sched.Tick(context.Background())

	assert.Zero(t, enq.count())
	// Bookkeeping for the deactivated workflow is dropped.
	_, known := sched.dueAt(wf.ID)
	assert.False(t, known)
}

func TestTick_IgnoresMissingCron(t *testing.T) {
	sched, enq, s := newTestScheduler(t)
	wf := &schema.Workflow{
		ID:       "wf-nocron",
		TenantID: "tenant-1",
		Name:     "misconfigured",
		Trigger:  schema.Trigger{Type: schema.TriggerTypeSchedule},
		IsActive: true,
		Nodes:    []schema.Node{{ID: "trigger", Type: schema.NodeWebhookTrigger}},
	}
	require.NoError(t, s.CreateWorkflow(context.Background(), wf))

	sched.Tick(context.Background())
	assert.Zero(t, enq.count())
}

func TestCalculateNextRun(t *testing.T) {
	sched, _, _ := newTestScheduler(t)

	from := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	next, err := sched.CalculateNextRun("0 9 * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), next)

	_, err = sched.CalculateNextRun("not a cron", from)
	require.Error(t, err)
}

func TestStartStop(t *testing.T) {
	sched, _, _ := newTestScheduler(t)

	require.NoError(t, sched.Start(context.Background()))
	assert.Error(t, sched.Start(context.Background()))
	require.NoError(t, sched.Stop())
	require.NoError(t, sched.Stop())
}
