package validation

import "github.com/andreibyf/aishacrm-engine/pkg/schema"

// Validator checks workflow definitions for correctness before they are
// stored or executed. Uses JSON Schema Draft 2020-12 for structural
// validation plus graph-level checks the schema cannot express.
type Validator interface {
	ValidateWorkflow(wf *schema.Workflow) error
	ValidatePayload(payload map[string]any, payloadSchema []byte) error
}
