package executors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

func TestSendEmail_QueuesActivity(t *testing.T) {
	crm := &fakeCRM{}
	e := NewSendEmailExecutor(crm)
	rc := testContext(map[string]any{"email": "ada@example.com", "name": "Ada"})
	rc.SetFound("lead", map[string]any{"id": "lead-1"})

	out, err := e.Execute(context.Background(), &schema.Node{
		ID: "n1", Type: schema.NodeSendEmail,
		Config: map[string]any{
			"to":      "{{email}}",
			"subject": "Welcome {{name}}",
			"body":    "Hi {{name}}, thanks for signing up.",
		},
	}, rc)
	require.NoError(t, err)
	assert.Equal(t, true, out["queued"])
	assert.Equal(t, "ada@example.com", out["to"])
	assert.Equal(t, "Welcome Ada", out["subject"])

	acts := crm.byEntity("activity")
	require.Len(t, acts, 1)
	assert.Equal(t, "email", acts[0].Data["type"])
	assert.Equal(t, "queued", acts[0].Data["status"])
	assert.Equal(t, "lead", acts[0].Data["related_to"])
	assert.Equal(t, "lead-1", acts[0].Data["related_id"])
}

func TestSendEmail_LinksContactWhenNoLead(t *testing.T) {
	crm := &fakeCRM{}
	e := NewSendEmailExecutor(crm)
	rc := testContext(nil)
	rc.SetFound("contact", map[string]any{"id": "c-7"})

	_, err := e.Execute(context.Background(), &schema.Node{
		ID: "n1", Type: schema.NodeSendEmail,
		Config: map[string]any{"to": "x@example.com", "subject": "hi"},
	}, rc)
	require.NoError(t, err)

	acts := crm.byEntity("activity")
	require.Len(t, acts, 1)
	assert.Equal(t, "contact", acts[0].Data["related_to"])
}

func TestSendEmail_MissingRecipient(t *testing.T) {
	e := NewSendEmailExecutor(&fakeCRM{})
	rc := testContext(nil)

	_, err := e.Execute(context.Background(), &schema.Node{
		ID: "n1", Type: schema.NodeSendEmail, Config: map[string]any{"subject": "hi"},
	}, rc)
	require.Error(t, err)
}
