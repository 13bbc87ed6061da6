package executors

import (
	"github.com/andreibyf/aishacrm-engine/internal/expressions"
	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

// RunContext is the per-run execution context: the immutable trigger payload
// and the variable bag node executors write into. One RunContext exists per
// traversal and is never shared across runs; node execution is strictly
// sequential, so no locking is needed.
type RunContext struct {
	TenantID   string
	WorkflowID string
	Payload    map[string]any
	Variables  map[string]any
}

// NewRunContext builds a fresh context for one traversal.
func NewRunContext(tenantID, workflowID string, payload map[string]any) *RunContext {
	if payload == nil {
		payload = map[string]any{}
	}
	return &RunContext{
		TenantID:   tenantID,
		WorkflowID: workflowID,
		Payload:    payload,
		Variables:  map[string]any{},
	}
}

// Scope exposes the context to the template resolver.
func (rc *RunContext) Scope() *expressions.Scope {
	return &expressions.Scope{Payload: rc.Payload, Variables: rc.Variables}
}

// Resolve resolves {{...}} placeholders in value against this context.
func (rc *RunContext) Resolve(value any) any {
	return expressions.Resolve(value, rc.Scope())
}

// ResolveString resolves placeholders in a string, returning the raw value
// when the string is a single placeholder.
func (rc *RunContext) ResolveString(s string) any {
	return expressions.ResolveString(s, rc.Scope())
}

// Set stores a variable for downstream nodes.
func (rc *RunContext) Set(key string, value any) {
	rc.Variables[key] = value
}

// Get reads a variable.
func (rc *RunContext) Get(key string) (any, bool) {
	v, ok := rc.Variables[key]
	return v, ok
}

// SetFound stores a found CRM record under its well-known variable name,
// e.g. entity "lead" lands in "found_lead".
func (rc *RunContext) SetFound(entity string, record map[string]any) {
	rc.Variables["found_"+entity] = record
}

// Found returns the previously found record for an entity, if any.
func (rc *RunContext) Found(entity string) (map[string]any, bool) {
	v, ok := rc.Variables["found_"+entity]
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

// FoundID returns the id of a previously found record, if present.
func (rc *RunContext) FoundID(entity string) (string, bool) {
	rec, ok := rc.Found(entity)
	if !ok {
		return "", false
	}
	id, ok := rec["id"].(string)
	return id, ok && id != ""
}

// SetConditionResult records the boolean outcome of a condition node for the
// traversal engine's branch selection.
func (rc *RunContext) SetConditionResult(result bool) {
	rc.Variables[schema.VarLastConditionResult] = result
}

// ConditionResult returns the most recent condition outcome. Defaults to
// false when no condition has run yet.
func (rc *RunContext) ConditionResult() bool {
	b, _ := rc.Variables[schema.VarLastConditionResult].(bool)
	return b
}

// SetLastResponse stores the body and status of the most recent outbound
// HTTP call for downstream nodes.
func (rc *RunContext) SetLastResponse(body any, status int) {
	rc.Variables[schema.VarLastResponse] = body
	rc.Variables[schema.VarLastResponseStatus] = status
}
