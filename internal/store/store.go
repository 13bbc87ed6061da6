package store

import (
	"context"

	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

// Store defines the persistence layer contract.
// All implementations must be safe for concurrent use.
type Store interface {
	// Workflows
	CreateWorkflow(ctx context.Context, wf *schema.Workflow) error
	GetWorkflow(ctx context.Context, id string) (*schema.Workflow, error)
	ListWorkflows(ctx context.Context, filter WorkflowFilter) ([]*schema.Workflow, error)
	SetWorkflowActive(ctx context.Context, id string, active bool) error
	DeleteWorkflow(ctx context.Context, id string) error
	BumpWorkflowRun(ctx context.Context, id string) error

	// Executions
	CreateExecution(ctx context.Context, exec *Execution) error
	UpdateExecution(ctx context.Context, id string, update ExecutionUpdate) error
	GetExecution(ctx context.Context, id string) (*Execution, error)
	ListExecutions(ctx context.Context, filter ExecutionFilter) ([]*Execution, error)

	// CRM records
	InsertRecord(ctx context.Context, rec *Record) error
	GetRecord(ctx context.Context, tenantID, entity, id string) (*Record, error)
	FindRecord(ctx context.Context, tenantID, entity, field, value string) (*Record, error)
	UpdateRecord(ctx context.Context, tenantID, entity, id string, fields map[string]any) (*Record, error)

	// Queue jobs
	CreateJob(ctx context.Context, job *Job) error
	MarkJobDelivered(ctx context.Context, id, executionID string) error
	MarkJobFailed(ctx context.Context, id string) error
	ListQueuedJobs(ctx context.Context, limit int) ([]*Job, error)

	// Maintenance
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}
