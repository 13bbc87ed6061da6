package engine

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/andreibyf/aishacrm-engine/internal/ai"
	"github.com/andreibyf/aishacrm-engine/internal/executors"
	"github.com/andreibyf/aishacrm-engine/internal/expressions"
	"github.com/andreibyf/aishacrm-engine/internal/store"
	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

func newTestRunner(t *testing.T) (*Runner, *store.LibSQLStore) {
	t.Helper()

	s, err := store.NewLibSQLStore("file:" + filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	reg := executors.NewRegistry()
	cel, err := expressions.NewCELEngine()
	require.NoError(t, err)
	providers := ai.NewProviders(ai.NewHeuristicProvider())
	require.NoError(t, executors.RegisterBuiltins(reg, s, providers, cel, executors.HTTPConfig{}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRunner(s, reg, logger), s
}

func seedWorkflow(t *testing.T, s *store.LibSQLStore, wf *schema.Workflow) *schema.Workflow {
	t.Helper()
	if wf.ID == "" {
		wf.ID = "wf-test"
	}
	if wf.TenantID == "" {
		wf.TenantID = "tenant-1"
	}
	if wf.Name == "" {
		wf.Name = "test workflow"
	}
	if wf.Trigger.Type == "" {
		wf.Trigger = schema.Trigger{Type: schema.TriggerTypeWebhook}
	}
	require.NoError(t, s.CreateWorkflow(context.Background(), wf))
	return wf
}

func seedLead(t *testing.T, s *store.LibSQLStore, id string, data map[string]any) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, s.InsertRecord(context.Background(), &store.Record{
		ID:        id,
		TenantID:  "tenant-1",
		Entity:    "lead",
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}))
}
