package schema

import "time"

// Workflow is a tenant-owned automation definition: a directed graph of nodes
// plus trigger metadata. The execution engine treats it as read-only except
// for the run counters, which are bumped after each terminal execution.
type Workflow struct {
	ID             string       `json:"id"`
	TenantID       string       `json:"tenant_id"`
	Name           string       `json:"name"`
	Trigger        Trigger      `json:"trigger"`
	IsActive       bool         `json:"is_active"`
	Nodes          []Node       `json:"nodes"`
	Connections    []Connection `json:"connections"`
	ExecutionCount int64        `json:"execution_count"`
	LastExecuted   *time.Time   `json:"last_executed,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Trigger describes how a workflow is invoked.
type Trigger struct {
	Type   string         `json:"type"`             // webhook | schedule
	Config map[string]any `json:"config,omitempty"` // e.g. {"cron": "0 9 * * *"} for schedule
}

// Node is one step in a workflow. Config is type-specific and free-form;
// string values inside it may carry {{...}} template placeholders.
type Node struct {
	ID     string         `json:"id"`
	Type   NodeType       `json:"type"`
	Config map[string]any `json:"config,omitempty"`
}

// Connection is a directed edge between two node IDs. Outgoing edges of a
// condition node are ordered: the first declared edge is the true branch,
// the second the false branch.
type Connection struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// NodeType enumerates the closed set of node kinds the engine can execute.
type NodeType string

const (
	NodeWebhookTrigger NodeType = "webhook_trigger"
	NodeHTTPRequest    NodeType = "http_request"
	NodeSendEmail      NodeType = "send_email"

	NodeFindLead    NodeType = "find_lead"
	NodeFindContact NodeType = "find_contact"
	NodeFindAccount NodeType = "find_account"

	NodeCreateLead        NodeType = "create_lead"
	NodeCreateOpportunity NodeType = "create_opportunity"
	NodeCreateActivity    NodeType = "create_activity"

	NodeUpdateLead        NodeType = "update_lead"
	NodeUpdateContact     NodeType = "update_contact"
	NodeUpdateAccount     NodeType = "update_account"
	NodeUpdateOpportunity NodeType = "update_opportunity"

	NodeCondition NodeType = "condition"

	NodeAIClassifyStage NodeType = "ai_classify_stage"
	NodeAIDraftEmail    NodeType = "ai_draft_email"
	NodeAIEnrichAccount NodeType = "ai_enrich_account"
	NodeAIRouteActivity NodeType = "ai_route_activity"
)

// ValidNodeTypes is the set of recognized node types.
var ValidNodeTypes = map[NodeType]bool{
	NodeWebhookTrigger:    true,
	NodeHTTPRequest:       true,
	NodeSendEmail:         true,
	NodeFindLead:          true,
	NodeFindContact:       true,
	NodeFindAccount:       true,
	NodeCreateLead:        true,
	NodeCreateOpportunity: true,
	NodeCreateActivity:    true,
	NodeUpdateLead:        true,
	NodeUpdateContact:     true,
	NodeUpdateAccount:     true,
	NodeUpdateOpportunity: true,
	NodeCondition:         true,
	NodeAIClassifyStage:   true,
	NodeAIDraftEmail:      true,
	NodeAIEnrichAccount:   true,
	NodeAIRouteActivity:   true,
}

// FieldMapping binds a target entity column to a templated source expression.
// Used by the create_* and update_* node families. SourceExpression is either
// a {{...}} template, or a "jq:"/"expr:" prefixed expression for computed
// values.
type FieldMapping struct {
	TargetField      string `json:"target_field"`
	SourceExpression string `json:"source_expression"`
}

// TriggerTypeWebhook and TriggerTypeSchedule are the supported trigger kinds.
const (
	TriggerTypeWebhook  = "webhook"
	TriggerTypeSchedule = "schedule"
)
