package executors

import (
	"context"

	"github.com/google/uuid"

	"github.com/andreibyf/aishacrm-engine/internal/store"
	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

// CreateExecutor writes a new CRM record built from a field_mappings list.
// Re-running the same workflow creates a new record each time; creates are
// deliberately not deduplicated.
type CreateExecutor struct {
	nodeType schema.NodeType
	entity   string
	crm      CRMStore
	mapper   *Mapper
}

// NewCreateLeadExecutor creates the create_lead executor.
func NewCreateLeadExecutor(crm CRMStore, mapper *Mapper) *CreateExecutor {
	return &CreateExecutor{nodeType: schema.NodeCreateLead, entity: "lead", crm: crm, mapper: mapper}
}

// NewCreateOpportunityExecutor creates the create_opportunity executor.
// Besides its mappings it attaches a found account or lead id from context.
func NewCreateOpportunityExecutor(crm CRMStore, mapper *Mapper) *CreateExecutor {
	return &CreateExecutor{nodeType: schema.NodeCreateOpportunity, entity: "opportunity", crm: crm, mapper: mapper}
}

func (e *CreateExecutor) Type() schema.NodeType { return e.nodeType }

func (e *CreateExecutor) Execute(ctx context.Context, node *schema.Node, rc *RunContext) (map[string]any, error) {
	cfg := node.Config
	if cfg == nil {
		cfg = map[string]any{}
	}

	mappings := parseMappings(cfg["field_mappings"])
	fields, err := e.mapper.ResolveMappings(ctx, mappings, rc)
	if err != nil {
		return nil, err
	}

	if e.nodeType == schema.NodeCreateOpportunity {
		if accountID, ok := rc.FoundID("account"); ok {
			fields["account_id"] = accountID
		}
		if leadID, ok := rc.FoundID("lead"); ok {
			fields["lead_id"] = leadID
		}
	}

	if len(fields) == 0 {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"%s: no field mappings produced a value", e.nodeType)
	}

	rec := &store.Record{
		ID:       uuid.New().String(),
		TenantID: rc.TenantID,
		Entity:   e.entity,
		Data:     fields,
	}
	if err := e.crm.InsertRecord(ctx, rec); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore,
			"%s: insert failed", e.nodeType).WithCause(err)
	}

	created := recordVariables(rec)
	rc.SetFound(e.entity, created)

	return map[string]any{"id": rec.ID, e.entity: created}, nil
}

// CreateActivityExecutor writes a CRM activity. The related entity is
// whichever found record is present in context, checked in precedence order
// lead, contact, account, opportunity.
type CreateActivityExecutor struct {
	crm    CRMStore
	mapper *Mapper
}

// NewCreateActivityExecutor creates the create_activity executor.
func NewCreateActivityExecutor(crm CRMStore, mapper *Mapper) *CreateActivityExecutor {
	return &CreateActivityExecutor{crm: crm, mapper: mapper}
}

func (e *CreateActivityExecutor) Type() schema.NodeType { return schema.NodeCreateActivity }

func (e *CreateActivityExecutor) Execute(ctx context.Context, node *schema.Node, rc *RunContext) (map[string]any, error) {
	cfg := node.Config
	if cfg == nil {
		cfg = map[string]any{}
	}

	fields, err := e.mapper.ResolveMappings(ctx, parseMappings(cfg["field_mappings"]), rc)
	if err != nil {
		return nil, err
	}

	if activityType := stringParam(cfg, "activity_type", ""); activityType != "" {
		fields["type"] = activityType
	}
	if subject, ok := rc.Resolve(stringParam(cfg, "subject", "")).(string); ok && subject != "" {
		fields["subject"] = subject
	}
	if body, ok := rc.Resolve(stringParam(cfg, "description", "")).(string); ok && body != "" {
		fields["description"] = body
	}

	relatedTo, relatedID := relatedEntity(rc)
	if relatedTo != "" {
		fields["related_to"] = relatedTo
		fields["related_id"] = relatedID
	}

	rec := &store.Record{
		ID:       uuid.New().String(),
		TenantID: rc.TenantID,
		Entity:   "activity",
		Data:     fields,
	}
	if err := e.crm.InsertRecord(ctx, rec); err != nil {
		return nil, schema.NewError(schema.ErrCodeStore, "create_activity: insert failed").WithCause(err)
	}

	return map[string]any{"id": rec.ID, "activity": recordVariables(rec)}, nil
}

// relatedEntity picks the link target for an activity from the found records.
func relatedEntity(rc *RunContext) (entity, id string) {
	for _, candidate := range []string{"lead", "contact", "account", "opportunity"} {
		if foundID, ok := rc.FoundID(candidate); ok {
			return candidate, foundID
		}
	}
	return "", ""
}
