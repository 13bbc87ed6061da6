package store

import (
	"time"

	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

// Execution is the persisted record of one workflow run.
type Execution struct {
	ID          string                    `json:"id"`
	WorkflowID  string                    `json:"workflow_id"`
	TenantID    string                    `json:"tenant_id"`
	Status      schema.ExecutionStatus    `json:"status"`
	Payload     map[string]any            `json:"trigger_payload,omitempty"`
	Log         []schema.ExecutionLogEntry `json:"execution_log"`
	Error       string                    `json:"error,omitempty"`
	StartedAt   time.Time                 `json:"started_at"`
	CompletedAt *time.Time                `json:"completed_at,omitempty"`
	DurationMs  int64                     `json:"duration_ms,omitempty"`
}

// ExecutionUpdate specifies mutable fields of an execution. Nil fields are
// left untouched; a non-nil Log replaces the stored log wholesale.
type ExecutionUpdate struct {
	Status      *schema.ExecutionStatus    `json:"status,omitempty"`
	Log         []schema.ExecutionLogEntry `json:"execution_log,omitempty"`
	Error       *string                    `json:"error,omitempty"`
	CompletedAt *time.Time                 `json:"completed_at,omitempty"`
	DurationMs  *int64                     `json:"duration_ms,omitempty"`
}

// ExecutionFilter specifies criteria for listing executions.
type ExecutionFilter struct {
	WorkflowID string                  `json:"workflow_id,omitempty"`
	TenantID   string                  `json:"tenant_id,omitempty"`
	Status     *schema.ExecutionStatus `json:"status,omitempty"`
	Since      *time.Time              `json:"since,omitempty"`
	Limit      int                     `json:"limit,omitempty"`
	Offset     int                     `json:"offset,omitempty"`
}

// WorkflowFilter specifies criteria for listing workflows.
type WorkflowFilter struct {
	TenantID    string `json:"tenant_id,omitempty"`
	TriggerType string `json:"trigger_type,omitempty"`
	ActiveOnly  bool   `json:"active_only,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Offset      int    `json:"offset,omitempty"`
}

// Record is a CRM entity row. Entity is one of "lead", "contact", "account",
// "opportunity", "activity"; Data carries the entity fields as loose JSON.
type Record struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id"`
	Entity    string         `json:"entity"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Job is a queued trigger invocation awaiting pickup by the dispatcher.
type Job struct {
	ID          string         `json:"id"`
	WorkflowID  string         `json:"workflow_id"`
	TenantID    string         `json:"tenant_id"`
	Payload     map[string]any `json:"payload,omitempty"`
	Status      string         `json:"status"`
	ExecutionID string         `json:"execution_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	DeliveredAt *time.Time     `json:"delivered_at,omitempty"`
}

// Job statuses.
const (
	JobQueued    = "queued"
	JobDelivered = "delivered"
	JobFailed    = "failed"
)
