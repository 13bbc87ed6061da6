package executors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreibyf/aishacrm-engine/internal/ai"
	"github.com/andreibyf/aishacrm-engine/internal/expressions"
	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.Register(NewWebhookTriggerExecutor()))
	assert.True(t, reg.Has(schema.NodeWebhookTrigger))
	assert.Equal(t, 1, reg.Count())

	e, err := reg.Get(schema.NodeWebhookTrigger)
	require.NoError(t, err)
	assert.Equal(t, schema.NodeWebhookTrigger, e.Type())
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.Register(NewWebhookTriggerExecutor()))
	err := reg.Register(NewWebhookTriggerExecutor())
	require.Error(t, err)

	var engErr *schema.EngineError
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, schema.ErrCodeConflict, engErr.Code)
}

func TestRegistry_NilRejected(t *testing.T) {
	require.Error(t, NewRegistry().Register(nil))
}

func TestRegistry_UnknownTypeMissing(t *testing.T) {
	_, err := NewRegistry().Get(schema.NodeCondition)
	require.Error(t, err)
}

func TestRegisterBuiltins_CoversAllNodeTypes(t *testing.T) {
	reg := NewRegistry()
	cel, err := expressions.NewCELEngine()
	require.NoError(t, err)
	providers := ai.NewProviders(ai.NewHeuristicProvider())

	require.NoError(t, RegisterBuiltins(reg, &fakeCRM{}, providers, cel, HTTPConfig{}))

	assert.Equal(t, len(schema.ValidNodeTypes), reg.Count())
	for nodeType := range schema.ValidNodeTypes {
		assert.True(t, reg.Has(nodeType), "missing executor for %s", nodeType)
	}
}
