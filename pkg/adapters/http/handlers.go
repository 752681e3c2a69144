package http

import (
	"net/http"

	"github.com/civicchat/orchestra"
	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": orchestra.Version(),
	})
}

type graphResponse struct {
	Target  string           `json:"target"`
	Entry   domain.AgentID   `json:"entry"`
	Nodes   []domain.AgentID `json:"nodes"`
	Finals  []domain.AgentID `json:"finals"`
	Mermaid string           `json:"mermaid"`
}

// handleGraph describes ?target=, the routed workflow by default.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("target")
	if name == "" {
		name = orchestra.WorkflowAlias
	}
	target, ok := s.resolve(w, name)
	if !ok {
		return
	}
	g, err := s.engine.Graph(target)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	diagram, err := s.engine.Describe(target)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	resp := graphResponse{
		Target:  string(target),
		Entry:   g.Entry(),
		Nodes:   g.NodeIDs(),
		Finals:  []domain.AgentID{},
		Mermaid: diagram,
	}
	for _, id := range resp.Nodes {
		if g.IsFinal(id) {
			resp.Finals = append(resp.Finals, id)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// resolve maps a transport name onto a runnable target, answering 404 otherwise.
func (s *Server) resolve(w http.ResponseWriter, name string) (domain.AgentID, bool) {
	target, err := orchestra.ParseTarget(name)
	if err == nil {
		_, err = s.engine.Graph(target)
	}
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return "", false
	}
	return target, true
}

// Agents

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	target, ok := s.resolve(w, chi.URLParam(r, "name"))
	if !ok {
		return
	}
	req, status, err := s.decodeRun(r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	s.invoke(w, r, target, threadRef{id: req.ThreadID}, req)
}

func (s *Server) handleAgentStream(w http.ResponseWriter, r *http.Request) {
	target, ok := s.resolve(w, chi.URLParam(r, "name"))
	if !ok {
		return
	}
	req, status, err := s.decodeRun(r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	s.stream(w, r, target, threadRef{id: req.ThreadID}, req)
}

// Threads

type historyResponse struct {
	ThreadID       string           `json:"threadId,omitempty"`
	ConversationID string           `json:"conversationId,omitempty"`
	Messages       []domain.Message `json:"messages"`
}

func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	id, err := s.threads.Create(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"threadId": id})
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	s.writeHistory(w, r, threadRef{id: chi.URLParam(r, "id")})
}

func (s *Server) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	if err := s.threads.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleThreadMessage(w http.ResponseWriter, r *http.Request) {
	req, status, err := s.decodeRun(r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	s.invoke(w, r, domain.Supervisor, threadRef{id: chi.URLParam(r, "id")}, req)
}

func (s *Server) handleThreadStream(w http.ResponseWriter, r *http.Request) {
	req, status, err := s.decodeRun(r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	s.stream(w, r, domain.Supervisor, threadRef{id: chi.URLParam(r, "id")}, req)
}

func (s *Server) writeHistory(w http.ResponseWriter, r *http.Request, ref threadRef) {
	msgs, err := s.threads.Get(r.Context(), ref.id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	resp := historyResponse{Messages: msgs}
	ref.apply(&resp.ThreadID, &resp.ConversationID)
	writeJSON(w, http.StatusOK, resp)
}

// Conversations

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	id, err := s.threads.Create(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"conversationId": id})
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	s.writeHistory(w, r, threadRef{id: chi.URLParam(r, "id"), conversation: true})
}

func (s *Server) handleProcessConversation(w http.ResponseWriter, r *http.Request) {
	ref, req, ok := s.conversation(w, r)
	if !ok {
		return
	}
	s.invoke(w, r, domain.Supervisor, ref, req)
}

func (s *Server) handleStreamConversation(w http.ResponseWriter, r *http.Request) {
	ref, req, ok := s.conversation(w, r)
	if !ok {
		return
	}
	s.stream(w, r, domain.Supervisor, ref, req)
}

// conversation decodes a conversation request, starting a new conversation
// when the body names none.
func (s *Server) conversation(w http.ResponseWriter, r *http.Request) (threadRef, runRequest, bool) {
	req, status, err := s.decodeRun(r)
	if err != nil {
		writeError(w, status, err.Error())
		return threadRef{}, req, false
	}
	ref := threadRef{id: req.ConversationID, conversation: true}
	if ref.id == "" {
		if ref.id, err = s.threads.Create(r.Context()); err != nil {
			s.writeFailure(w, r, err)
			return threadRef{}, req, false
		}
	}
	return ref, req, true
}
