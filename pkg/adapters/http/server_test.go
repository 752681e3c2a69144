package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/civicchat/orchestra"
	"github.com/civicchat/orchestra/internal/testutils"
	httpadapter "github.com/civicchat/orchestra/pkg/adapters/http"
	"github.com/civicchat/orchestra/pkg/adapters/memory"
	"github.com/civicchat/orchestra/pkg/agents"
	"github.com/civicchat/orchestra/pkg/observability"
	"github.com/civicchat/orchestra/pkg/threads"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	token        = "secret"
	summaryReply = `{"summary":"The council capped rents at 3%.","keyPoints":["Rents are capped","Applies from June","Landlords may appeal","Tenants must register","Fines apply","Extra point"]}`
)

type fixture struct {
	handler http.Handler
	gen     *testutils.FakeGenerator
	threads *threads.Manager
}

func newFixture(t *testing.T, gen *testutils.FakeGenerator, opts ...httpadapter.Option) *fixture {
	t.Helper()
	eng, err := orchestra.New(agents.Set(gen))
	require.NoError(t, err)

	mgr := threads.NewManager(memory.NewStore())
	opts = append([]httpadapter.Option{
		httpadapter.WithAuthenticator(httpadapter.BearerTokens(map[string]string{token: "tester"})),
	}, opts...)
	srv := httpadapter.NewServer(eng, mgr, opts...)
	return &fixture{handler: srv.Handler(), gen: gen, threads: mgr}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type sseEvent struct {
	Agent          string          `json:"agent"`
	Step           string          `json:"step"`
	Data           json.RawMessage `json:"data"`
	Final          bool            `json:"final"`
	Response       string          `json:"response"`
	ThreadID       string          `json:"threadId"`
	ConversationID string          `json:"conversationId"`
}

func events(t *testing.T, rec *httptest.ResponseRecorder) []sseEvent {
	t.Helper()
	var out []sseEvent
	for block := range strings.SplitSeq(rec.Body.String(), "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		payload, ok := strings.CutPrefix(block, "data: ")
		require.True(t, ok, "unexpected event %q", block)
		var ev sseEvent
		require.NoError(t, json.Unmarshal([]byte(payload), &ev))
		out = append(out, ev)
	}
	return out
}

func TestHealth_IsPublic(t *testing.T) {
	f := newFixture(t, testutils.NewFakeGenerator(summaryReply, "summarizer"))

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, orchestra.Version(), body["version"])
}

func TestAuth(t *testing.T) {
	f := newFixture(t, testutils.NewFakeGenerator(summaryReply, "summarizer"))

	tests := []struct {
		name   string
		header string
	}{
		{"Missing", ""},
		{"Wrong Token", "Bearer nope"},
		{"Wrong Scheme", "Basic " + token},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/agents/summarizer", strings.NewReader(`{"text":"hi"}`))
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			f.handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "unauthorized", decode[map[string]string](t, rec)["error"])
		})
	}
	assert.Zero(t, f.gen.CompletionCount())
}

func TestAuth_DeniedByDefault(t *testing.T) {
	eng, err := orchestra.New(agents.Set(testutils.NewFakeGenerator("x", "general")))
	require.NoError(t, err)
	h := httpadapter.NewServer(eng, threads.NewManager(memory.NewStore())).Handler()

	req := httptest.NewRequest(http.MethodGet, "/graph", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGraph(t *testing.T) {
	f := newFixture(t, testutils.NewFakeGenerator(summaryReply, "summarizer"))

	rec := f.do(t, http.MethodGet, "/graph", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Target  string   `json:"target"`
		Entry   string   `json:"entry"`
		Nodes   []string `json:"nodes"`
		Finals  []string `json:"finals"`
		Mermaid string   `json:"mermaid"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "supervisor", body.Target)
	assert.Equal(t, "supervisor", body.Entry)
	assert.Contains(t, body.Nodes, "planner")
	assert.NotContains(t, body.Finals, "supervisor")
	assert.Contains(t, body.Mermaid, "graph TD")

	rec = f.do(t, http.MethodGet, "/graph?target=planner", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/graph?target=translator", nil).Code)
}

func TestMetrics(t *testing.T) {
	m := observability.NewMetrics()
	f := newFixture(t, testutils.NewFakeGenerator(summaryReply, "summarizer"), httpadapter.WithMetrics(m))

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/graph", nil).Code)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `orchestra_http_requests_total{route="/graph",status="200"} 1`)
}

func TestRecoverer(t *testing.T) {
	boom := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("kaboom") })
	f := newFixture(t, testutils.NewFakeGenerator(summaryReply, "summarizer"), httpadapter.WithMount("/boom", boom))

	rec := f.do(t, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.NotEmpty(t, body["error"])
	assert.Contains(t, body["message"], "kaboom")
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, testutils.NewFakeGenerator(summaryReply, "summarizer"), httpadapter.WithCORSOrigin("https://civic.example"))

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/agents/summarizer", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://civic.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
