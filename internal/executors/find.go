package executors

import (
	"context"
	"fmt"

	"github.com/andreibyf/aishacrm-engine/internal/expressions"
	"github.com/andreibyf/aishacrm-engine/pkg/schema"
	"github.com/andreibyf/aishacrm-engine/internal/store"
)

// FindExecutor looks up one CRM record by a configurable field/value pair,
// scoped to the run's tenant. A hit stores the record under the entity's
// well-known context variable; a miss is a node-level error (the traversal
// engine decides whether that halts the run).
type FindExecutor struct {
	nodeType schema.NodeType
	entity   string
	crm      CRMStore
}

// NewFindLeadExecutor creates the find_lead executor.
func NewFindLeadExecutor(crm CRMStore) *FindExecutor {
	return &FindExecutor{nodeType: schema.NodeFindLead, entity: "lead", crm: crm}
}

// NewFindContactExecutor creates the find_contact executor.
func NewFindContactExecutor(crm CRMStore) *FindExecutor {
	return &FindExecutor{nodeType: schema.NodeFindContact, entity: "contact", crm: crm}
}

// NewFindAccountExecutor creates the find_account executor.
func NewFindAccountExecutor(crm CRMStore) *FindExecutor {
	return &FindExecutor{nodeType: schema.NodeFindAccount, entity: "account", crm: crm}
}

func (e *FindExecutor) Type() schema.NodeType { return e.nodeType }

func (e *FindExecutor) Execute(ctx context.Context, node *schema.Node, rc *RunContext) (map[string]any, error) {
	cfg := node.Config
	if cfg == nil {
		cfg = map[string]any{}
	}

	field := stringParam(cfg, "field", "email")
	rawValue := stringParam(cfg, "value", "")
	if rawValue == "" {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "%s: missing required config 'value'", e.nodeType)
	}

	resolved := rc.ResolveString(rawValue)
	value := expressions.StripQuotes(fmt.Sprintf("%v", resolved))
	if value == "" || expressions.IsUnresolved(value) {
		return nil, schema.NewErrorf(schema.ErrCodeInterpolation,
			"%s: lookup value %q did not resolve", e.nodeType, rawValue)
	}

	rec, err := e.crm.FindRecord(ctx, rc.TenantID, e.entity, field, value)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound,
			"%s: no %s with %s = %q", e.nodeType, e.entity, field, value).WithCause(err)
	}

	found := recordVariables(rec)
	rc.SetFound(e.entity, found)

	return map[string]any{e.entity: found, "matched_field": field, "matched_value": value}, nil
}

// recordVariables flattens a stored record into the shape context templates
// expect: the data fields plus the id.
func recordVariables(rec *store.Record) map[string]any {
	out := make(map[string]any, len(rec.Data)+1)
	for k, v := range rec.Data {
		out[k] = v
	}
	out["id"] = rec.ID
	return out
}
