package executors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMappings(t *testing.T) {
	raw := []any{
		map[string]any{"target_field": "email", "source_expression": "{{email}}"},
		map[string]any{"target_field": "", "source_expression": "ignored"},
		map[string]any{"source_expression": "no target"},
		"not a mapping",
	}

	mappings := parseMappings(raw)
	require.Len(t, mappings, 1)
	assert.Equal(t, "email", mappings[0].TargetField)
	assert.Equal(t, "{{email}}", mappings[0].SourceExpression)
}

func TestResolveMappings_Templates(t *testing.T) {
	m := NewMapper()
	rc := testContext(map[string]any{"email": "ana@example.com", "score": 42})

	fields, err := m.ResolveMappings(context.Background(), parseMappings([]any{
		map[string]any{"target_field": "email", "source_expression": "{{email}}"},
		map[string]any{"target_field": "score", "source_expression": "{{score}}"},
		map[string]any{"target_field": "missing", "source_expression": "{{nope}}"},
		map[string]any{"target_field": "blank", "source_expression": ""},
	}), rc)
	require.NoError(t, err)

	// Unresolved and empty sources are skipped, not written as junk.
	assert.Equal(t, map[string]any{"email": "ana@example.com", "score": 42}, fields)
}

func TestResolveMappings_ExprPrefix(t *testing.T) {
	m := NewMapper()
	rc := testContext(map[string]any{"first": "Ana", "last": "Silva"})

	fields, err := m.ResolveMappings(context.Background(), parseMappings([]any{
		map[string]any{"target_field": "name", "source_expression": `expr: payload.first + " " + payload.last`},
	}), rc)
	require.NoError(t, err)
	assert.Equal(t, "Ana Silva", fields["name"])
}

func TestResolveMappings_JQPrefix(t *testing.T) {
	m := NewMapper()
	rc := testContext(map[string]any{"tags": []any{"a", "b", "c"}})

	fields, err := m.ResolveMappings(context.Background(), parseMappings([]any{
		map[string]any{"target_field": "tag_count", "source_expression": "jq: .payload.tags | length"},
	}), rc)
	require.NoError(t, err)
	assert.EqualValues(t, 3, fields["tag_count"])
}

func TestConcreteValue(t *testing.T) {
	assert.False(t, concreteValue(nil))
	assert.False(t, concreteValue(""))
	assert.False(t, concreteValue("{{still.unresolved}}"))
	assert.True(t, concreteValue("x"))
	assert.True(t, concreteValue(0))
	assert.True(t, concreteValue(false))
}
