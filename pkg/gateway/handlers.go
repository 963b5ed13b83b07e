package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/kevinai/kevin/pkg/store"
	"github.com/kevinai/kevin/pkg/tooldispatch"
)

type createSessionRequest struct {
	Name          string `json:"name"`
	WorkspacePath string `json:"workspace_path"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type todoItem struct {
	Content string `json:"content"`
	Status  string `json:"status"`
}

type updateTodosRequest struct {
	Todos []todoItem `json:"todos"`
}

type toolExecuteRequest struct {
	ToolName string                 `json:"tool_name"`
	Args     map[string]interface{} `json:"args"`
}

type estimateCostRequest struct {
	Message               string `json:"message"`
	EstimatedOutputTokens int    `json:"estimated_output_tokens"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":        "Kevin AI",
		"description": "Virtual AI Software Engineer",
		"version":     "0.1.0",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "kevin-ai"})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createSessionRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	session, err := s.store.Create(req.Name, req.WorkspacePath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":             session.ID,
		"name":           session.Name,
		"workspace_path": session.WorkspacePath,
		"created_at":     session.CreatedAt.Format(time.RFC3339Nano),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sessions, err := s.store.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]map[string]interface{}, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, map[string]interface{}{
			"id":             session.ID,
			"name":           session.Name,
			"workspace_path": session.WorkspacePath,
			"created_at":     session.CreatedAt.Format(time.RFC3339Nano),
			"updated_at":     session.UpdatedAt.Format(time.RFC3339Nano),
			"message_count":  len(session.Messages),
			"todo_count":     len(session.Todos),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	session, err := s.store.Get(ps.ByName("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	deleted, err := s.store.Delete(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	s.modelRouter.DropSession(id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session deleted"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	result, err := s.orchestrator.ProcessMessage(r.Context(), ps.ByName("id"), req.Message)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	session, err := s.store.Get(ps.ByName("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Messages)
}

func (s *Server) handleGetTodos(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	session, err := s.store.Get(ps.ByName("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Todos)
}

func (s *Server) handleUpdateTodos(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req updateTodosRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	todos := make([]store.Todo, 0, len(req.Todos))
	for _, item := range req.Todos {
		status := store.TodoStatus(item.Status)
		if item.Status == "" {
			status = store.TodoPending
		}
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "invalid todo status: "+item.Status)
			return
		}
		todos = append(todos, store.Todo{Content: item.Content, Status: status})
	}

	saved, err := s.store.ReplaceTodos(ps.ByName("id"), todos)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleExecuteTool(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	session, err := s.store.Get(ps.ByName("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	var req toolExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	writeJSON(w, http.StatusOK, s.executeTool(r, session, req.ToolName, req.Args))
}

// executeTool invokes a tool outside the agent loop, with the same
// contained-failure envelope the loop uses.
func (s *Server) executeTool(r *http.Request, session *store.Session, name string, args map[string]interface{}) interface{} {
	execCtx := tooldispatch.WithExecContext(r.Context(), tooldispatch.ExecContext{
		SessionID:    session.ID,
		WorkspaceDir: session.WorkspacePath,
		Timeout:      s.toolTimeout,
	})

	result := s.dispatcher.Invoke(execCtx, name, args)
	if result.Error != "" {
		return map[string]interface{}{"error": result.Error}
	}
	return result.Output
}

func (s *Server) handleSessionCosts(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if _, err := s.store.Get(id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.modelRouter.SessionCosts(id))
}

func (s *Server) handleAllCosts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.modelRouter.AllCosts())
}

func (s *Server) handleEstimateCost(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req estimateCostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	writeJSON(w, http.StatusOK, s.modelRouter.EstimateCost(req.Message, req.EstimatedOutputTokens))
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.dispatcher.Catalog())
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
