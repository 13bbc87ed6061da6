package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/andreibyf/aishacrm-engine/internal/store"
	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- workflow management ---

func (s *Server) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var wf schema.Workflow
	if err := decodeBody(r, &wf); err != nil {
		writeError(w, err)
		return
	}
	if wf.ID == "" {
		wf.ID = uuid.New().String()
	}

	if err := s.deps.Validator.ValidateWorkflow(&wf); err != nil {
		writeError(w, err)
		return
	}

	if err := s.deps.Store.CreateWorkflow(r.Context(), &wf); err != nil {
		writeError(w, err)
		return
	}

	created, err := s.deps.Store.GetWorkflow(r.Context(), wf.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	filter := store.WorkflowFilter{
		TenantID:    r.URL.Query().Get("tenant_id"),
		TriggerType: r.URL.Query().Get("trigger_type"),
		ActiveOnly:  r.URL.Query().Get("active") == "true",
		Limit:       queryInt(r, "limit", 50),
		Offset:      queryInt(r, "offset", 0),
	}

	workflows, err := s.deps.Store.ListWorkflows(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workflows": workflows, "count": len(workflows)})
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := s.deps.Store.GetWorkflow(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

func (s *Server) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.DeleteWorkflow(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := s.deps.Store.SetWorkflowActive(r.Context(), id, active); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_active": active})
	}
}

func (s *Server) handleValidateWorkflow(w http.ResponseWriter, r *http.Request) {
	var wf schema.Workflow
	if err := decodeBody(r, &wf); err != nil {
		writeError(w, err)
		return
	}
	if wf.ID == "" {
		wf.ID = uuid.New().String()
	}

	if err := s.deps.Validator.ValidateWorkflow(&wf); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}

// --- invocation ---

// handleTriggerWorkflow is the asynchronous invocation path: the payload is
// queued and the caller gets a job id back immediately.
func (s *Server) handleTriggerWorkflow(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{}
	if r.ContentLength != 0 {
		if err := decodeBody(r, &payload); err != nil {
			writeError(w, err)
			return
		}
	}

	job, err := s.deps.Runner.Enqueue(r.Context(), r.PathValue("id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":      job.ID,
		"workflow_id": job.WorkflowID,
		"status":      job.Status,
	})
}

// handleTestWorkflow is the synchronous invocation path: the workflow runs
// inline and the full execution log comes back with the response. A failed
// run is still a 200; rejection before a record exists maps to 4xx.
func (s *Server) handleTestWorkflow(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{}
	if r.ContentLength != 0 {
		if err := decodeBody(r, &payload); err != nil {
			writeError(w, err)
			return
		}
	}

	result, err := s.deps.Runner.RunNow(r.Context(), r.PathValue("id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- executions ---

func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	filter := store.ExecutionFilter{
		WorkflowID: r.PathValue("id"),
		TenantID:   r.URL.Query().Get("tenant_id"),
		Limit:      queryInt(r, "limit", 50),
		Offset:     queryInt(r, "offset", 0),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		st := schema.ExecutionStatus(status)
		filter.Status = &st
	}

	executions, err := s.deps.Store.ListExecutions(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"executions": executions, "count": len(executions)})
}

func (s *Server) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	exec, err := s.deps.Store.GetExecution(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exec)
}
