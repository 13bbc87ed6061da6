package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/andreibyf/aishacrm-engine/internal/executors"
	"github.com/andreibyf/aishacrm-engine/internal/logging"
	"github.com/andreibyf/aishacrm-engine/internal/streaming"
	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

// Traverser walks a workflow graph node by node, dispatching each node to
// its registered executor and collecting one log entry per visit. Traversal
// is strictly sequential; a single RunContext carries state between nodes.
type Traverser struct {
	registry *executors.Registry
	hub      streaming.EventHub
	logger   *slog.Logger
}

// NewTraverser creates a Traverser over the given executor registry.
func NewTraverser(registry *executors.Registry, logger *slog.Logger) *Traverser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Traverser{registry: registry, logger: logger}
}

// Walk executes the workflow starting at its trigger node, appending one
// entry per visited node to sink. A node failure halts the walk unless the
// failing node is a condition, whose result defaults to false so traversal
// continues down the false branch. Revisiting a node appends a cycle entry
// and halts. Returns an error only when the definition itself is unusable.
func (t *Traverser) Walk(ctx context.Context, wf *schema.Workflow, rc *executors.RunContext, sink *[]schema.ExecutionLogEntry) error {
	g, err := buildGraph(wf)
	if err != nil {
		return err
	}

	visited := make(map[string]bool, len(g.nodes))
	current := g.entry

	for current != "" {
		node := g.nodes[current]

		if visited[current] {
			cycleErr := schema.NewErrorf(schema.ErrCodeCycleDetected,
				"node %q visited twice, halting run", current).WithNode(current)
			*sink = append(*sink, schema.ExecutionLogEntry{
				NodeID:    node.ID,
				NodeType:  node.Type,
				Timestamp: time.Now().UTC(),
				Status:    schema.LogStatusError,
				Error:     cycleErr.Error(),
			})
			t.logger.ErrorContext(logging.WithNodeID(ctx, current), "cycle detected, halting run")
			return nil
		}
		visited[current] = true

		entry := t.executeNode(ctx, node, rc)
		*sink = append(*sink, entry)
		t.publishNode(ctx, wf.ID, entry)

		// Fail fast on node errors. Condition nodes are the exception: their
		// result has already been forced to false, so the walk continues down
		// the false branch with the error on record.
		if entry.Status == schema.LogStatusError && node.Type != schema.NodeCondition {
			return nil
		}

		current = t.next(g, node, rc)
	}

	return nil
}

// publishNode emits a node_finished event for live subscribers. Publication
// is best effort and never affects the walk.
func (t *Traverser) publishNode(ctx context.Context, workflowID string, entry schema.ExecutionLogEntry) {
	if t.hub == nil {
		return
	}
	_ = t.hub.Publish(ctx, streaming.StreamEvent{
		WorkflowID:  workflowID,
		ExecutionID: logging.ExecutionID(ctx),
		NodeID:      entry.NodeID,
		EventType:   streaming.EventNodeFinished,
		Payload:     map[string]any{"status": entry.Status, "node_type": entry.NodeType},
	})
}

func (t *Traverser) executeNode(ctx context.Context, node *schema.Node, rc *executors.RunContext) schema.ExecutionLogEntry {
	nodeCtx := logging.WithNodeID(ctx, node.ID)
	entry := schema.ExecutionLogEntry{
		NodeID:    node.ID,
		NodeType:  node.Type,
		Timestamp: time.Now().UTC(),
	}

	exec, err := t.registry.Get(node.Type)
	if err != nil {
		entry.Status = schema.LogStatusError
		entry.Error = err.Error()
		t.logger.ErrorContext(nodeCtx, "no executor for node", "node_type", node.Type)
		return entry
	}

	output, execErr := exec.Execute(nodeCtx, node, rc)
	if execErr != nil {
		entry.Status = schema.LogStatusError
		entry.Error = execErr.Error()
		// Partial output is kept, e.g. the response body of an HTTP call
		// that returned an error status.
		entry.Output = output
		t.logger.ErrorContext(nodeCtx, "node failed", "node_type", node.Type, "error", execErr)
		return entry
	}

	entry.Status = schema.LogStatusSuccess
	entry.Output = output
	t.logger.DebugContext(nodeCtx, "node finished", "node_type", node.Type)
	return entry
}

// next selects the node to visit after the given one. Condition nodes with
// two or more outgoing edges branch on the stored condition result: first
// declared edge on true, second on false. A single edge is followed
// unconditionally; no edges ends the walk.
func (t *Traverser) next(g *graph, node *schema.Node, rc *executors.RunContext) string {
	edges := g.outgoing[node.ID]
	switch {
	case len(edges) == 0:
		return ""
	case node.Type == schema.NodeCondition && len(edges) >= 2:
		if rc.ConditionResult() {
			return edges[0]
		}
		return edges[1]
	default:
		return edges[0]
	}
}
