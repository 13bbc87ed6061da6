package executors

import (
	"context"
	"encoding/json"

	"github.com/andreibyf/aishacrm-engine/internal/store"
	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

// Executor handles one node type. Execute performs the node's single effect
// and returns its output map. Effect failures come back as errors; the
// traversal engine turns both into log entries and owns the halt decision.
type Executor interface {
	Type() schema.NodeType
	Execute(ctx context.Context, node *schema.Node, rc *RunContext) (map[string]any, error)
}

// CRMStore is the narrow persistence surface node executors need. Satisfied
// by *store.LibSQLStore.
type CRMStore interface {
	InsertRecord(ctx context.Context, rec *store.Record) error
	FindRecord(ctx context.Context, tenantID, entity, field, value string) (*store.Record, error)
	UpdateRecord(ctx context.Context, tenantID, entity, id string, fields map[string]any) (*store.Record, error)
}

// Param helpers shared by all executor files.

func stringParam(m map[string]any, key, defaultVal string) string {
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	s, ok := v.(string)
	if !ok {
		return defaultVal
	}
	return s
}

func boolParam(m map[string]any, key string, defaultVal bool) bool {
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	b, ok := v.(bool)
	if !ok {
		return defaultVal
	}
	return b
}

func intParam(m map[string]any, key string, defaultVal int) int {
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return defaultVal
		}
		return int(i)
	default:
		return defaultVal
	}
}
