package executors

import (
	"context"
	"strings"

	"github.com/andreibyf/aishacrm-engine/internal/expressions"
	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

// Mapper resolves field_mappings lists into concrete column maps. Plain
// source expressions go through the template resolver; "expr:" and "jq:"
// prefixes route to the corresponding engines with the run scope as input.
type Mapper struct {
	exprEngine *expressions.ExprEngine
	jqEngine   *expressions.GoJQEngine
}

// NewMapper creates a Mapper with fresh expression engines.
func NewMapper() *Mapper {
	return &Mapper{
		exprEngine: expressions.NewExprEngine(),
		jqEngine:   expressions.NewGoJQEngine(),
	}
}

// parseMappings normalizes the free-form field_mappings config value into
// typed pairs. Accepts a list of {target_field, source_expression} maps.
func parseMappings(raw any) []schema.FieldMapping {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	var mappings []schema.FieldMapping
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		target := stringParam(m, "target_field", "")
		source := stringParam(m, "source_expression", "")
		if target == "" {
			continue
		}
		mappings = append(mappings, schema.FieldMapping{TargetField: target, SourceExpression: source})
	}
	return mappings
}

// ResolveMappings resolves each mapping against the context. Mappings whose
// value stays an unresolved placeholder or comes out empty are skipped rather
// than written as garbage.
func (m *Mapper) ResolveMappings(ctx context.Context, mappings []schema.FieldMapping, rc *RunContext) (map[string]any, error) {
	fields := make(map[string]any, len(mappings))
	for _, fm := range mappings {
		val, err := m.ResolveSource(ctx, fm.SourceExpression, rc)
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeInterpolation,
				"mapping for %q: %s", fm.TargetField, err.Error()).WithCause(err)
		}
		if !concreteValue(val) {
			continue
		}
		fields[fm.TargetField] = val
	}
	return fields, nil
}

// ResolveSource resolves a single source expression.
func (m *Mapper) ResolveSource(ctx context.Context, source string, rc *RunContext) (any, error) {
	switch {
	case strings.HasPrefix(source, "expr:"):
		return m.exprEngine.Evaluate(ctx, strings.TrimPrefix(source, "expr:"), scopeData(rc))
	case strings.HasPrefix(source, "jq:"):
		return m.jqEngine.Evaluate(ctx, strings.TrimPrefix(source, "jq:"), scopeData(rc))
	default:
		return rc.ResolveString(source), nil
	}
}

func scopeData(rc *RunContext) map[string]any {
	return map[string]any{
		"payload":   rc.Payload,
		"variables": rc.Variables,
	}
}

// concreteValue reports whether a resolved mapping value should be applied.
func concreteValue(val any) bool {
	if val == nil {
		return false
	}
	if s, ok := val.(string); ok {
		if s == "" || expressions.IsUnresolved(s) {
			return false
		}
	}
	return true
}
