package expressions

import "context"

// Engine evaluates expressions inside node configs.
// Three implementations: CEL (condition expressions), GoJQ (payload
// transforms), Expr (computed field mappings).
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}
