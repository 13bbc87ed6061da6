package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, TenantID(ctx))
	assert.Empty(t, WorkflowID(ctx))
	assert.Empty(t, ExecutionID(ctx))
	assert.Empty(t, NodeID(ctx))

	ctx = WithRunIDs(ctx, "tenant-1", "wf-1", "exec-1")
	ctx = WithNodeID(ctx, "n3")

	assert.Equal(t, "tenant-1", TenantID(ctx))
	assert.Equal(t, "wf-1", WorkflowID(ctx))
	assert.Equal(t, "exec-1", ExecutionID(ctx))
	assert.Equal(t, "n3", NodeID(ctx))
}

func TestCorrelationHandler_InjectsIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewTextHandler(&buf, nil)))

	ctx := WithRunIDs(context.Background(), "tenant-1", "wf-1", "exec-1")
	ctx = WithNodeID(ctx, "n1")
	logger.InfoContext(ctx, "node finished")

	out := buf.String()
	assert.Contains(t, out, "tenant_id=tenant-1")
	assert.Contains(t, out, "workflow_id=wf-1")
	assert.Contains(t, out, "execution_id=exec-1")
	assert.Contains(t, out, "node_id=n1")
}

func TestCorrelationHandler_SkipsEmptyIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewTextHandler(&buf, nil)))

	logger.InfoContext(context.Background(), "no correlation")

	out := buf.String()
	assert.NotContains(t, out, "workflow_id")
	assert.NotContains(t, out, "execution_id")
}
