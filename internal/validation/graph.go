package validation

import (
	"fmt"

	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

// checkGraph applies the structural rules JSON Schema cannot express:
// unique node IDs, edges that reference declared nodes, at most one trigger
// node, and trigger-specific config requirements.
func checkGraph(wf *schema.Workflow) error {
	nodeIDs := make(map[string]schema.NodeType, len(wf.Nodes))
	triggers := 0

	for _, node := range wf.Nodes {
		if _, dup := nodeIDs[node.ID]; dup {
			return schema.NewError(schema.ErrCodeValidation,
				fmt.Sprintf("duplicate node id %q", node.ID))
		}
		nodeIDs[node.ID] = node.Type
		if node.Type == schema.NodeWebhookTrigger {
			triggers++
		}
	}

	if triggers > 1 {
		return schema.NewError(schema.ErrCodeValidation,
			fmt.Sprintf("workflow declares %d trigger nodes, at most one is allowed", triggers))
	}

	outDegree := make(map[string]int, len(wf.Nodes))
	for _, conn := range wf.Connections {
		if _, ok := nodeIDs[conn.From]; !ok {
			return schema.NewError(schema.ErrCodeValidation,
				fmt.Sprintf("connection references unknown node %q", conn.From))
		}
		if _, ok := nodeIDs[conn.To]; !ok {
			return schema.NewError(schema.ErrCodeValidation,
				fmt.Sprintf("connection references unknown node %q", conn.To))
		}
		outDegree[conn.From]++
	}

	// Only condition nodes branch; anything else with multiple outgoing
	// edges would silently drop all but the first.
	for id, degree := range outDegree {
		if degree > 1 && nodeIDs[id] != schema.NodeCondition {
			return schema.NewError(schema.ErrCodeValidation,
				fmt.Sprintf("node %q has %d outgoing connections but is not a condition", id, degree))
		}
	}

	if wf.Trigger.Type == schema.TriggerTypeSchedule {
		cronExpr, _ := wf.Trigger.Config["cron"].(string)
		if cronExpr == "" {
			return schema.NewError(schema.ErrCodeValidation,
				"schedule trigger requires a 'cron' config entry")
		}
	}

	return nil
}
