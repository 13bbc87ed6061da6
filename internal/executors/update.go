package executors

import (
	"context"

	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

// UpdateExecutor applies a field_mappings list to a record previously loaded
// by a find node. No prior found entity in context, or zero applicable
// mappings, is a configuration error.
type UpdateExecutor struct {
	nodeType schema.NodeType
	entity   string
	crm      CRMStore
	mapper   *Mapper
}

// NewUpdateLeadExecutor creates the update_lead executor.
func NewUpdateLeadExecutor(crm CRMStore, mapper *Mapper) *UpdateExecutor {
	return &UpdateExecutor{nodeType: schema.NodeUpdateLead, entity: "lead", crm: crm, mapper: mapper}
}

// NewUpdateContactExecutor creates the update_contact executor.
func NewUpdateContactExecutor(crm CRMStore, mapper *Mapper) *UpdateExecutor {
	return &UpdateExecutor{nodeType: schema.NodeUpdateContact, entity: "contact", crm: crm, mapper: mapper}
}

// NewUpdateAccountExecutor creates the update_account executor.
func NewUpdateAccountExecutor(crm CRMStore, mapper *Mapper) *UpdateExecutor {
	return &UpdateExecutor{nodeType: schema.NodeUpdateAccount, entity: "account", crm: crm, mapper: mapper}
}

// NewUpdateOpportunityExecutor creates the update_opportunity executor.
func NewUpdateOpportunityExecutor(crm CRMStore, mapper *Mapper) *UpdateExecutor {
	return &UpdateExecutor{nodeType: schema.NodeUpdateOpportunity, entity: "opportunity", crm: crm, mapper: mapper}
}

func (e *UpdateExecutor) Type() schema.NodeType { return e.nodeType }

func (e *UpdateExecutor) Execute(ctx context.Context, node *schema.Node, rc *RunContext) (map[string]any, error) {
	id, ok := rc.FoundID(e.entity)
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"%s: no %s in context; run a find_%s node first", e.nodeType, e.entity, e.entity)
	}

	cfg := node.Config
	if cfg == nil {
		cfg = map[string]any{}
	}

	mappings := parseMappings(cfg["field_mappings"])
	if len(mappings) == 0 {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "%s: no field mappings configured", e.nodeType)
	}

	fields, err := e.mapper.ResolveMappings(ctx, mappings, rc)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"%s: no field mappings produced a value", e.nodeType)
	}

	rec, err := e.crm.UpdateRecord(ctx, rc.TenantID, e.entity, id, fields)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "%s: update failed", e.nodeType).WithCause(err)
	}

	// Refresh the context copy so downstream templates see the new values.
	updated := recordVariables(rec)
	rc.SetFound(e.entity, updated)

	return map[string]any{"id": id, "updated_fields": fields, e.entity: updated}, nil
}
