package executors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreibyf/aishacrm-engine/internal/store"
	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

func TestUpdateLead_AppliesMappings(t *testing.T) {
	crm := &fakeCRM{records: []*store.Record{
		{ID: "lead-1", TenantID: "tenant-1", Entity: "lead", Data: map[string]any{"email": "ada@example.com", "status": "new"}},
	}}
	e := NewUpdateLeadExecutor(crm, NewMapper())
	rc := testContext(nil)
	rc.SetFound("lead", map[string]any{"id": "lead-1", "status": "new"})

	out, err := e.Execute(context.Background(), &schema.Node{
		ID: "n1", Type: schema.NodeUpdateLead,
		Config: map[string]any{"field_mappings": mappingList([2]string{"status", "contacted"})},
	}, rc)
	require.NoError(t, err)
	assert.Equal(t, "lead-1", out["id"])
	assert.Equal(t, "contacted", crm.records[0].Data["status"])

	// Context copy refreshed for downstream templates.
	found, _ := rc.Found("lead")
	assert.Equal(t, "contacted", found["status"])
}

func TestUpdateLead_NoFoundEntity(t *testing.T) {
	e := NewUpdateLeadExecutor(&fakeCRM{}, NewMapper())
	rc := testContext(nil)

	_, err := e.Execute(context.Background(), &schema.Node{
		ID: "n1", Type: schema.NodeUpdateLead,
		Config: map[string]any{"field_mappings": mappingList([2]string{"status", "contacted"})},
	}, rc)
	require.Error(t, err)

	var engErr *schema.EngineError
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, schema.ErrCodeValidation, engErr.Code)
}

func TestUpdateLead_ZeroMappings(t *testing.T) {
	e := NewUpdateLeadExecutor(&fakeCRM{}, NewMapper())
	rc := testContext(nil)
	rc.SetFound("lead", map[string]any{"id": "lead-1"})

	_, err := e.Execute(context.Background(), &schema.Node{
		ID: "n1", Type: schema.NodeUpdateLead, Config: map[string]any{},
	}, rc)
	require.Error(t, err)
}

func TestUpdateOpportunity_AfterCreate(t *testing.T) {
	crm := &fakeCRM{}
	mapper := NewMapper()
	create := NewCreateOpportunityExecutor(crm, mapper)
	update := NewUpdateOpportunityExecutor(crm, mapper)
	rc := testContext(map[string]any{"deal": "Enterprise"})

	_, err := create.Execute(context.Background(), &schema.Node{
		ID: "n1", Type: schema.NodeCreateOpportunity,
		Config: map[string]any{"field_mappings": mappingList([2]string{"name", "{{deal}}"})},
	}, rc)
	require.NoError(t, err)

	_, err = update.Execute(context.Background(), &schema.Node{
		ID: "n2", Type: schema.NodeUpdateOpportunity,
		Config: map[string]any{"field_mappings": mappingList([2]string{"stage", "qualified"})},
	}, rc)
	require.NoError(t, err)

	opps := crm.byEntity("opportunity")
	require.Len(t, opps, 1)
	assert.Equal(t, "qualified", opps[0].Data["stage"])
}
