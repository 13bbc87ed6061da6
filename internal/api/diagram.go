package api

import (
	"net/http"

	"github.com/andreibyf/aishacrm-engine/internal/diagram"
	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

// handleWorkflowDiagram renders the workflow graph as a Mermaid flowchart
// (default) or a PNG image (?format=png). With ?execution_id= the diagram is
// overlaid with that run's per-node status.
func (s *Server) handleWorkflowDiagram(w http.ResponseWriter, r *http.Request) {
	wf, err := s.deps.Store.GetWorkflow(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var log []schema.ExecutionLogEntry
	if execID := r.URL.Query().Get("execution_id"); execID != "" {
		exec, err := s.deps.Store.GetExecution(r.Context(), execID)
		if err != nil {
			writeError(w, err)
			return
		}
		if exec.WorkflowID != wf.ID {
			writeError(w, schema.NewErrorf(schema.ErrCodeValidation,
				"execution %s does not belong to workflow %s", execID, wf.ID))
			return
		}
		log = exec.Log
	}

	model := diagram.Build(wf, log)

	if r.URL.Query().Get("format") == "png" {
		png, err := diagram.RenderImage(r.Context(), model)
		if err != nil {
			writeError(w, schema.NewErrorf(schema.ErrCodeExecution,
				"render diagram: %s", err.Error()).WithCause(err))
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(diagram.RenderMermaid(model)))
}
