package http

import (
	"context"
	"maps"
	"net/http"

	"github.com/civicchat/orchestra/pkg/domain"
)

// threadRef binds a run to a stored history. Threads and conversations share
// storage and differ only in the name of the id on the wire.
type threadRef struct {
	id           string
	conversation bool
}

func (t threadRef) apply(threadID, conversationID *string) {
	if t.conversation {
		*conversationID = t.id
	} else {
		*threadID = t.id
	}
}

type runResponse struct {
	Agent          string               `json:"agent"`
	ThreadID       string               `json:"threadId,omitempty"`
	ConversationID string               `json:"conversationId,omitempty"`
	Response       string               `json:"response"`
	Error          *string              `json:"error"`
	Messages       []domain.Message     `json:"messages,omitempty"`
	State          domain.WorkflowState `json:"state"`
}

// streamEvent is the wire form of a chunk.
type streamEvent struct {
	Agent          string `json:"agent"`
	Step           string `json:"step"`
	Data           any    `json:"data"`
	Final          bool   `json:"final"`
	Response       string `json:"response,omitempty"`
	ThreadID       string `json:"threadId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
}

// begin records the user message on the thread, if any, and seeds the state
// with the history that preceded it.
func (s *Server) begin(ctx context.Context, ref threadRef, req runRequest) (domain.WorkflowState, domain.RunConfig, error) {
	extra := maps.Clone(req.AdditionalContext)
	if ref.id != "" {
		history, err := s.threads.Append(ctx, ref.id, domain.UserMessage(req.Text))
		if err != nil {
			return domain.WorkflowState{}, domain.RunConfig{}, err
		}
		if prior := history[:len(history)-1]; len(prior) > 0 {
			if extra == nil {
				extra = map[string]any{}
			}
			extra[domain.ConversationHistoryKey] = prior
		}
	}

	state := s.engine.NewState(domain.RequestContext{
		Question:          req.Text,
		Language:          req.Language,
		AdditionalContext: extra,
	}, domain.UserMessage(req.Text))
	cfg := domain.RunConfig{
		ThreadID: ref.id,
		CallerID: CallerFrom(ctx),
	}
	return state, cfg, nil
}

// complete appends reply as the assistant message and returns the history.
func (s *Server) complete(ctx context.Context, ref threadRef, reply string) ([]domain.Message, error) {
	if ref.id == "" {
		return nil, nil
	}
	if reply == "" {
		return s.threads.Get(ctx, ref.id)
	}
	return s.threads.Append(ctx, ref.id, domain.AssistantMessage(reply))
}

// answeredBy names the agent whose output is the response.
func answeredBy(target domain.AgentID, final domain.WorkflowState) domain.AgentID {
	if target == domain.Supervisor && final.Next != "" {
		return final.Next
	}
	return target
}

// invoke runs target to completion and answers with the final state.
func (s *Server) invoke(w http.ResponseWriter, r *http.Request, target domain.AgentID, ref threadRef, req runRequest) {
	state, cfg, err := s.begin(r.Context(), ref, req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	final, err := s.engine.Invoke(r.Context(), target, state, cfg)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	// The run finished; persist the reply even if the client is gone.
	msgs, err := s.complete(context.WithoutCancel(r.Context()), ref, final.Response())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	resp := runResponse{
		Agent:    string(answeredBy(target, final)),
		Response: final.Response(),
		Error:    final.Error,
		Messages: msgs,
		State:    final,
	}
	ref.apply(&resp.ThreadID, &resp.ConversationID)
	writeJSON(w, http.StatusOK, resp)
}

// stream runs target and forwards every chunk as an SSE event. The response
// ends with the chunk sequence, after an error chunk at the latest.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, target domain.AgentID, ref threadRef, req runRequest) {
	state, cfg, err := s.begin(r.Context(), ref, req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		s.logger.Error("SSE unavailable", "path", r.URL.Path, "error", err)
		return
	}
	if s.metrics != nil {
		defer s.metrics.StreamStarted()()
	}

	onDone := func(final domain.WorkflowState) {
		if final.Error != nil {
			return
		}
		if _, err := s.complete(context.WithoutCancel(r.Context()), ref, final.Response()); err != nil {
			s.logger.Error("Failed to record reply", "thread_id", ref.id, "error", err)
		}
	}

	for chunk := range s.engine.Stream(r.Context(), target, state, cfg, onDone) {
		ev := streamEvent{
			Agent:    string(target),
			Step:     chunk.Step,
			Data:     chunk.Data,
			Final:    chunk.Final,
			Response: chunk.Response,
		}
		ref.apply(&ev.ThreadID, &ev.ConversationID)
		if err := sse.Send(ev); err != nil {
			s.logger.Debug("SSE client gone", "path", r.URL.Path, "error", err)
			return
		}
	}
}
