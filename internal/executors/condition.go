package executors

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/andreibyf/aishacrm-engine/internal/expressions"
	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

// ConditionExecutor evaluates a branch predicate and stores the boolean
// result for the traversal engine. Two config shapes are supported: the
// field/operator/value triple, and an "expression" string evaluated by CEL
// against {payload, variables}. A condition never halts the run by itself.
type ConditionExecutor struct {
	cel *expressions.CELEngine
}

// NewConditionExecutor creates the condition executor.
func NewConditionExecutor(cel *expressions.CELEngine) *ConditionExecutor {
	return &ConditionExecutor{cel: cel}
}

func (e *ConditionExecutor) Type() schema.NodeType { return schema.NodeCondition }

func (e *ConditionExecutor) Execute(ctx context.Context, node *schema.Node, rc *RunContext) (map[string]any, error) {
	cfg := node.Config
	if cfg == nil {
		cfg = map[string]any{}
	}

	if expr := stringParam(cfg, "expression", ""); expr != "" {
		return e.evaluateExpression(ctx, expr, rc)
	}

	field := stringParam(cfg, "field", "")
	operator := stringParam(cfg, "operator", "equals")
	if field == "" {
		rc.SetConditionResult(false)
		return nil, schema.NewError(schema.ErrCodeValidation, "condition: missing required config 'field'")
	}

	actual := rc.ResolveString(field)
	compare := rc.Resolve(cfg["value"])

	result, err := evaluateOperator(operator, actual, compare)
	if err != nil {
		rc.SetConditionResult(false)
		return nil, err
	}

	rc.SetConditionResult(result)
	return map[string]any{
		"result":   result,
		"field":    field,
		"operator": operator,
		"actual":   actual,
		"expected": compare,
	}, nil
}

func (e *ConditionExecutor) evaluateExpression(ctx context.Context, expr string, rc *RunContext) (map[string]any, error) {
	out, err := e.cel.Evaluate(ctx, expr, scopeData(rc))
	if err != nil {
		rc.SetConditionResult(false)
		return nil, err
	}
	result, ok := out.(bool)
	if !ok {
		rc.SetConditionResult(false)
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"condition: expression %q did not evaluate to a boolean", expr)
	}
	rc.SetConditionResult(result)
	return map[string]any{"result": result, "expression": expr}, nil
}

func evaluateOperator(operator string, actual, compare any) (bool, error) {
	switch operator {
	case "equals":
		return stringify(actual) == stringify(compare), nil
	case "not_equals":
		return stringify(actual) != stringify(compare), nil
	case "contains":
		return strings.Contains(strings.ToLower(stringify(actual)), strings.ToLower(stringify(compare))), nil
	case "greater_than":
		a, c, err := numericPair(actual, compare)
		if err != nil {
			return false, err
		}
		return a > c, nil
	case "less_than":
		a, c, err := numericPair(actual, compare)
		if err != nil {
			return false, err
		}
		return a < c, nil
	case "exists":
		return valuePresent(actual), nil
	case "not_exists":
		return !valuePresent(actual), nil
	default:
		return false, schema.NewErrorf(schema.ErrCodeValidation, "condition: unknown operator %q", operator)
	}
}

// valuePresent treats nil, empty strings and unresolved placeholders as absent.
func valuePresent(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != "" && !expressions.IsUnresolved(s)
	}
	return true
}

func numericPair(actual, compare any) (float64, float64, error) {
	a, err := toNumber(actual)
	if err != nil {
		return 0, 0, schema.NewErrorf(schema.ErrCodeValidation, "condition: %v is not numeric", actual)
	}
	c, err := toNumber(compare)
	if err != nil {
		return 0, 0, schema.NewErrorf(schema.ErrCodeValidation, "condition: %v is not numeric", compare)
	}
	return a, c, nil
}

func toNumber(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
