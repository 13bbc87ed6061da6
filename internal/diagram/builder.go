package diagram

import (
	"fmt"
	"strings"

	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

// Build constructs a Model from a workflow definition and an optional
// execution log. When a log is given, visited nodes are overlaid with their
// run status. The builder draws whatever graph it is handed; structural
// validation happens elsewhere.
func Build(wf *schema.Workflow, log []schema.ExecutionLogEntry) *Model {
	statuses := make(map[string]string, len(log))
	for _, entry := range log {
		switch entry.Status {
		case schema.LogStatusError:
			statuses[entry.NodeID] = "failed"
		case schema.LogStatusSuccess:
			statuses[entry.NodeID] = "success"
		}
	}

	nodes := make([]*Node, 0, len(wf.Nodes))
	conditions := make(map[string]bool, 1)
	for i := range wf.Nodes {
		n := &wf.Nodes[i]
		if n.Type == schema.NodeCondition {
			conditions[n.ID] = true
		}
		nodes = append(nodes, &Node{
			ID:     n.ID,
			Label:  fmt.Sprintf("%s (%s)", n.ID, n.Type),
			Kind:   kindOf(n.Type),
			Status: statuses[n.ID],
		})
	}

	// Outgoing edges of a condition node are ordered yes then no.
	branchSeen := make(map[string]int, len(conditions))
	edges := make([]Edge, 0, len(wf.Connections))
	for _, c := range wf.Connections {
		label := ""
		if conditions[c.From] {
			if branchSeen[c.From] == 0 {
				label = "yes"
			} else {
				label = "no"
			}
			branchSeen[c.From]++
		}
		edges = append(edges, Edge{From: c.From, To: c.To, Label: label})
	}

	return &Model{Title: wf.Name, Nodes: nodes, Edges: edges}
}

func kindOf(t schema.NodeType) NodeKind {
	switch {
	case t == schema.NodeWebhookTrigger:
		return NodeKindTrigger
	case t == schema.NodeCondition:
		return NodeKindCondition
	case t == schema.NodeHTTPRequest:
		return NodeKindHTTP
	case t == schema.NodeSendEmail:
		return NodeKindEmail
	case strings.HasPrefix(string(t), "ai_"):
		return NodeKindAI
	default:
		return NodeKindCRM
	}
}
