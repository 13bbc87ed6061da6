package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

func TestRecorder_BeginCreatesRunningRecord(t *testing.T) {
	_, s := newTestRunner(t)
	rec := NewRecorder(s, slog.New(slog.NewTextHandler(io.Discard, nil)))

	wf := seedWorkflow(t, s, &schema.Workflow{
		IsActive: true,
		Nodes:    []schema.Node{{ID: "trigger", Type: schema.NodeWebhookTrigger}},
	})

	exec, err := rec.Begin(context.Background(), wf, map[string]any{"email": "a@b.c"})
	require.NoError(t, err)
	assert.NotEmpty(t, exec.ID)

	stored, err := s.GetExecution(context.Background(), exec.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.ExecutionStatusRunning, stored.Status)
	assert.Empty(t, stored.Log)
	assert.Equal(t, "a@b.c", stored.Payload["email"])
	assert.Nil(t, stored.CompletedAt)
}

func TestRecorder_FinishSuccess(t *testing.T) {
	_, s := newTestRunner(t)
	rec := NewRecorder(s, slog.New(slog.NewTextHandler(io.Discard, nil)))

	wf := seedWorkflow(t, s, &schema.Workflow{
		IsActive: true,
		Nodes:    []schema.Node{{ID: "trigger", Type: schema.NodeWebhookTrigger}},
	})
	exec, err := rec.Begin(context.Background(), wf, nil)
	require.NoError(t, err)

	log := []schema.ExecutionLogEntry{
		{NodeID: "trigger", NodeType: schema.NodeWebhookTrigger, Timestamp: time.Now().UTC(), Status: schema.LogStatusSuccess},
	}
	status, durationMs := rec.Finish(exec, log, "")
	assert.Equal(t, schema.ExecutionStatusSuccess, status)
	assert.GreaterOrEqual(t, durationMs, int64(0))

	stored, err := s.GetExecution(context.Background(), exec.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.ExecutionStatusSuccess, stored.Status)
	require.Len(t, stored.Log, 1)
	require.NotNil(t, stored.CompletedAt)

	fresh, err := s.GetWorkflow(context.Background(), wf.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fresh.ExecutionCount)
}

func TestRecorder_FinishFailedOnErrorEntry(t *testing.T) {
	_, s := newTestRunner(t)
	rec := NewRecorder(s, slog.New(slog.NewTextHandler(io.Discard, nil)))

	wf := seedWorkflow(t, s, &schema.Workflow{
		IsActive: true,
		Nodes:    []schema.Node{{ID: "trigger", Type: schema.NodeWebhookTrigger}},
	})
	exec, err := rec.Begin(context.Background(), wf, nil)
	require.NoError(t, err)

	log := []schema.ExecutionLogEntry{
		{NodeID: "trigger", NodeType: schema.NodeWebhookTrigger, Timestamp: time.Now().UTC(), Status: schema.LogStatusSuccess},
		{NodeID: "find", NodeType: schema.NodeFindLead, Timestamp: time.Now().UTC(), Status: schema.LogStatusError, Error: "boom"},
	}
	status, _ := rec.Finish(exec, log, "")
	assert.Equal(t, schema.ExecutionStatusFailed, status)

	stored, err := s.GetExecution(context.Background(), exec.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.ExecutionStatusFailed, stored.Status)
}

func TestRecorder_FinishFailedOnRunError(t *testing.T) {
	_, s := newTestRunner(t)
	rec := NewRecorder(s, slog.New(slog.NewTextHandler(io.Discard, nil)))

	wf := seedWorkflow(t, s, &schema.Workflow{
		IsActive: true,
		Nodes:    []schema.Node{{ID: "trigger", Type: schema.NodeWebhookTrigger}},
	})
	exec, err := rec.Begin(context.Background(), wf, nil)
	require.NoError(t, err)

	// Engine fault with a partial (here empty) log still reaches failed.
	status, _ := rec.Finish(exec, nil, "engine fault: nil map write")
	assert.Equal(t, schema.ExecutionStatusFailed, status)

	stored, err := s.GetExecution(context.Background(), exec.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.ExecutionStatusFailed, stored.Status)
	assert.Contains(t, stored.Error, "engine fault")
	assert.NotNil(t, stored.Log)
	assert.Empty(t, stored.Log)
}
