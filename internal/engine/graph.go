package engine

import (
	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

// graph is the traversal view of a workflow definition: node lookup by ID
// plus outgoing adjacency. Edge order within a node's outgoing list follows
// declaration order in the definition, which is what gives condition nodes
// their true/false branch semantics.
type graph struct {
	nodes    map[string]*schema.Node
	outgoing map[string][]string
	entry    string
}

func buildGraph(wf *schema.Workflow) (*graph, error) {
	g := &graph{
		nodes:    make(map[string]*schema.Node, len(wf.Nodes)),
		outgoing: make(map[string][]string, len(wf.Nodes)),
	}

	for i := range wf.Nodes {
		node := &wf.Nodes[i]
		if node.ID == "" {
			return nil, schema.NewError(schema.ErrCodeValidation, "workflow contains a node with an empty id")
		}
		if _, dup := g.nodes[node.ID]; dup {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "duplicate node id %q", node.ID)
		}
		g.nodes[node.ID] = node
	}

	for _, conn := range wf.Connections {
		if _, ok := g.nodes[conn.From]; !ok {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "connection references unknown node %q", conn.From)
		}
		if _, ok := g.nodes[conn.To]; !ok {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "connection references unknown node %q", conn.To)
		}
		g.outgoing[conn.From] = append(g.outgoing[conn.From], conn.To)
	}

	// The trigger node is the entry point when present; otherwise the first
	// declared node starts the traversal.
	g.entry = wf.Nodes[0].ID
	for i := range wf.Nodes {
		if wf.Nodes[i].Type == schema.NodeWebhookTrigger {
			g.entry = wf.Nodes[i].ID
			break
		}
	}

	return g, nil
}
