package http_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/civicchat/orchestra/internal/testutils"
	httpadapter "github.com/civicchat/orchestra/pkg/adapters/http"
	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runBody struct {
	Agent          string               `json:"agent"`
	ThreadID       string               `json:"threadId"`
	ConversationID string               `json:"conversationId"`
	Response       string               `json:"response"`
	Error          *string              `json:"error"`
	Messages       []domain.Message     `json:"messages"`
	State          domain.WorkflowState `json:"state"`
}

func TestAgent_Invoke(t *testing.T) {
	f := newFixture(t, testutils.NewFakeGenerator(summaryReply, "general"))

	rec := f.do(t, http.MethodPost, "/agents/summarizer", map[string]any{"text": "The council voted to cap rents at 3% from June."})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[runBody](t, rec)
	assert.Equal(t, "summarizer", body.Agent)
	assert.Equal(t, "The council capped rents at 3%.", body.Response)
	assert.Nil(t, body.Error)
	require.NotNil(t, body.State.Summarizer)
	assert.LessOrEqual(t, len(body.State.Summarizer.KeyPoints), 5)
	assert.Empty(t, body.Messages, "runs without a thread keep no history")
}

func TestAgent_WorkflowRoutes(t *testing.T) {
	for _, name := range []string{"supervisor", "workflow"} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, testutils.NewFakeGenerator(summaryReply, "summarizer"))

			rec := f.do(t, http.MethodPost, "/agents/"+name, map[string]any{"text": "Summarize the rent ordinance", "language": "ES"})
			require.Equal(t, http.StatusOK, rec.Code)

			body := decode[runBody](t, rec)
			assert.Equal(t, "summarizer", body.Agent)
			assert.Equal(t, domain.Summarizer, body.State.Next)
			assert.Equal(t, "es", body.State.LanguageDetected)
		})
	}
}

func TestAgent_UpstreamFailureReturnsFallback(t *testing.T) {
	f := newFixture(t, testutils.NewFailingGenerator())

	rec := f.do(t, http.MethodPost, "/agents/planner", map[string]any{"text": "Plan my permit renewal"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[runBody](t, rec)
	require.NotNil(t, body.Error)
	assert.NotEmpty(t, body.Response, "fallback output is still returned")
}

func TestAgent_BadRequests(t *testing.T) {
	f := newFixture(t, testutils.NewFakeGenerator(summaryReply, "summarizer"), httpadapter.WithMaxBodyBytes(256))

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		error  string
	}{
		{"Unknown Agent", "/agents/translator", map[string]any{"text": "hi"}, http.StatusNotFound, "unknown agent"},
		{"Sentinel Is Not An Agent", "/agents/__end__", map[string]any{"text": "hi"}, http.StatusNotFound, "unknown agent"},
		{"Missing Text", "/agents/summarizer", map[string]any{"language": "en"}, http.StatusBadRequest, "text is required"},
		{"Blank Text", "/agents/summarizer", map[string]any{"text": "  \n "}, http.StatusBadRequest, "text is required"},
		{"Empty Body", "/agents/summarizer", "", http.StatusBadRequest, "text is required"},
		{"Invalid JSON", "/agents/summarizer", "{", http.StatusBadRequest, "invalid request body"},
		{"Body Too Large", "/agents/summarizer", map[string]any{"text": strings.Repeat("a", 512)}, http.StatusRequestEntityTooLarge, "exceeds"},
		{"Stream Missing Text", "/agents/planner/stream", map[string]any{}, http.StatusBadRequest, "text is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, decode[map[string]string](t, rec)["error"], tt.error)
		})
	}
	assert.Zero(t, f.gen.CompletionCount())
}

func TestAgent_StreamRouted(t *testing.T) {
	f := newFixture(t, testutils.NewFakeGenerator(summaryReply, "summarizer"))

	rec := f.do(t, http.MethodPost, "/agents/workflow/stream", map[string]any{"text": "Summarize the rent ordinance"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	evs := events(t, rec)
	require.Len(t, evs, 2)

	assert.Equal(t, "supervisor", evs[0].Step)
	assert.False(t, evs[0].Final)
	assert.Empty(t, evs[0].Response)

	assert.Equal(t, "summarizer", evs[1].Step)
	assert.Equal(t, "supervisor", evs[1].Agent)
	assert.True(t, evs[1].Final)
	assert.Equal(t, "The council capped rents at 3%.", evs[1].Response)
}

func TestAgent_StreamFailureEmitsSingleErrorChunk(t *testing.T) {
	f := newFixture(t, testutils.NewFailingGenerator())

	rec := f.do(t, http.MethodPost, "/agents/summarizer/stream", map[string]any{"text": "Summarize the rent ordinance"})
	require.Equal(t, http.StatusOK, rec.Code)

	evs := events(t, rec)
	require.Len(t, evs, 1)
	assert.Equal(t, domain.StepError, evs[0].Step)
	assert.Contains(t, string(evs[0].Data), testutils.ErrUpstream.Error())
}
