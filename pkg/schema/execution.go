package schema

import "time"

// ExecutionStatus is the lifecycle state of a workflow execution.
type ExecutionStatus string

const (
	ExecutionStatusRunning ExecutionStatus = "running"
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusFailed  ExecutionStatus = "failed"
)

// LogStatus is the outcome of a single visited node.
type LogStatus string

const (
	LogStatusSuccess LogStatus = "success"
	LogStatusError   LogStatus = "error"
)

// ExecutionLogEntry records the outcome of one visited node, in visitation
// order. Error is set on failed entries; Output may accompany it when the
// node produced a partial result, such as an HTTP response with an error
// status code.
type ExecutionLogEntry struct {
	NodeID    string         `json:"node_id"`
	NodeType  NodeType       `json:"node_type"`
	Timestamp time.Time      `json:"timestamp"`
	Status    LogStatus      `json:"status"`
	Output    map[string]any `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// HasError reports whether any entry in the log carries an error status.
// The run-level terminal status is failed iff this is true.
func HasError(log []ExecutionLogEntry) bool {
	for i := range log {
		if log[i].Status == LogStatusError {
			return true
		}
	}
	return false
}

// Context variable keys set by node executors for downstream nodes.
const (
	VarFoundLead           = "found_lead"
	VarFoundContact        = "found_contact"
	VarFoundAccount        = "found_account"
	VarFoundOpportunity    = "found_opportunity"
	VarLastConditionResult = "last_condition_result"
	VarLastResponse        = "last_response"
	VarLastResponseStatus  = "last_response_status"
)
