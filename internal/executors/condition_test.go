package executors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreibyf/aishacrm-engine/internal/expressions"
	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

func newConditionExecutor(t *testing.T) *ConditionExecutor {
	t.Helper()
	cel, err := expressions.NewCELEngine()
	require.NoError(t, err)
	return NewConditionExecutor(cel)
}

func conditionNode(cfg map[string]any) *schema.Node {
	return &schema.Node{ID: "cond", Type: schema.NodeCondition, Config: cfg}
}

func TestCondition_Equals(t *testing.T) {
	e := newConditionExecutor(t)
	rc := testContext(map[string]any{"status": "new"})

	out, err := e.Execute(context.Background(), conditionNode(map[string]any{
		"field": "{{status}}", "operator": "equals", "value": "new",
	}), rc)
	require.NoError(t, err)
	assert.Equal(t, true, out["result"])
	assert.True(t, rc.ConditionResult())

	out, err = e.Execute(context.Background(), conditionNode(map[string]any{
		"field": "{{status}}", "operator": "equals", "value": "contacted",
	}), rc)
	require.NoError(t, err)
	assert.Equal(t, false, out["result"])
	assert.False(t, rc.ConditionResult())
}

func TestCondition_NotEquals(t *testing.T) {
	e := newConditionExecutor(t)
	rc := testContext(map[string]any{"status": "new"})

	out, err := e.Execute(context.Background(), conditionNode(map[string]any{
		"field": "{{status}}", "operator": "not_equals", "value": "contacted",
	}), rc)
	require.NoError(t, err)
	assert.Equal(t, true, out["result"])
}

func TestCondition_ContainsCaseInsensitive(t *testing.T) {
	e := newConditionExecutor(t)
	rc := testContext(map[string]any{"subject": "URGENT: invoice overdue"})

	out, err := e.Execute(context.Background(), conditionNode(map[string]any{
		"field": "{{subject}}", "operator": "contains", "value": "urgent",
	}), rc)
	require.NoError(t, err)
	assert.Equal(t, true, out["result"])
}

func TestCondition_NumericComparisons(t *testing.T) {
	e := newConditionExecutor(t)
	rc := testContext(map[string]any{"score": "87"})

	out, err := e.Execute(context.Background(), conditionNode(map[string]any{
		"field": "{{score}}", "operator": "greater_than", "value": "50",
	}), rc)
	require.NoError(t, err)
	assert.Equal(t, true, out["result"])

	out, err = e.Execute(context.Background(), conditionNode(map[string]any{
		"field": "{{score}}", "operator": "less_than", "value": float64(50),
	}), rc)
	require.NoError(t, err)
	assert.Equal(t, false, out["result"])
}

func TestCondition_NumericParseFailure(t *testing.T) {
	e := newConditionExecutor(t)
	rc := testContext(map[string]any{"score": "not-a-number"})

	_, err := e.Execute(context.Background(), conditionNode(map[string]any{
		"field": "{{score}}", "operator": "greater_than", "value": "50",
	}), rc)
	require.Error(t, err)
	assert.False(t, rc.ConditionResult())
}

func TestCondition_ExistsTreatsUnresolvedAsAbsent(t *testing.T) {
	e := newConditionExecutor(t)
	rc := testContext(map[string]any{"email": "ada@example.com"})

	out, err := e.Execute(context.Background(), conditionNode(map[string]any{
		"field": "{{email}}", "operator": "exists",
	}), rc)
	require.NoError(t, err)
	assert.Equal(t, true, out["result"])

	// {{phone}} does not resolve, so it stays a placeholder and counts as absent.
	out, err = e.Execute(context.Background(), conditionNode(map[string]any{
		"field": "{{phone}}", "operator": "not_exists",
	}), rc)
	require.NoError(t, err)
	assert.Equal(t, true, out["result"])
}

func TestCondition_UnknownOperator(t *testing.T) {
	e := newConditionExecutor(t)
	rc := testContext(nil)

	_, err := e.Execute(context.Background(), conditionNode(map[string]any{
		"field": "x", "operator": "approximately",
	}), rc)
	require.Error(t, err)
}

func TestCondition_MissingField(t *testing.T) {
	e := newConditionExecutor(t)
	rc := testContext(nil)

	_, err := e.Execute(context.Background(), conditionNode(map[string]any{"operator": "equals"}), rc)
	require.Error(t, err)
}

func TestCondition_ExpressionMode(t *testing.T) {
	e := newConditionExecutor(t)
	rc := testContext(map[string]any{"score": 87})

	out, err := e.Execute(context.Background(), conditionNode(map[string]any{
		"expression": `payload.score > 50 && payload.score < 100`,
	}), rc)
	require.NoError(t, err)
	assert.Equal(t, true, out["result"])
	assert.True(t, rc.ConditionResult())
}

func TestCondition_ExpressionNotBoolean(t *testing.T) {
	e := newConditionExecutor(t)
	rc := testContext(map[string]any{"score": 87})

	_, err := e.Execute(context.Background(), conditionNode(map[string]any{
		"expression": `payload.score + 1`,
	}), rc)
	require.Error(t, err)
	assert.False(t, rc.ConditionResult())
}
