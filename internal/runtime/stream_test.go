package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/civicchat/orchestra/internal/runtime"
	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(e *runtime.Engine, g *domain.Graph, s domain.WorkflowState) ([]domain.StreamChunk, domain.WorkflowState) {
	var final domain.WorkflowState
	var chunks []domain.StreamChunk
	for c := range e.Stream(context.Background(), g, s, domain.RunConfig{}, func(st domain.WorkflowState) { final = st }) {
		chunks = append(chunks, c)
	}
	return chunks, final
}

func TestStream_EmitsOneChunkPerAgent(t *testing.T) {
	g := routedGraph(router(domain.Summarizer), summarizer("Rents are capped."), general("x"))

	chunks, final := collect(runtime.NewEngine(), g, initialState("Summarize"))
	require.Len(t, chunks, 2)

	assert.Equal(t, "supervisor", chunks[0].Step)
	assert.False(t, chunks[0].Final)
	assert.Empty(t, chunks[0].Response)
	assert.Equal(t, domain.Summarizer, chunks[0].Data.(domain.Update).Next)

	assert.Equal(t, "summarizer", chunks[1].Step)
	assert.True(t, chunks[1].Final)
	assert.Contains(t, chunks[1].Response, "Rents are capped.")

	assert.Equal(t, "Rents are capped.", final.Summarizer.Summary)
}

func TestStream_MatchesInvoke(t *testing.T) {
	g := routedGraph(router(domain.Summarizer), summarizer("same"), general("x"))

	invoked, err := runtime.NewEngine().Invoke(context.Background(), g, initialState("q"), domain.RunConfig{})
	require.NoError(t, err)
	_, streamed := collect(runtime.NewEngine(), g, initialState("q"))

	assert.Equal(t, invoked, streamed)
}

func TestStream_ErrorChunkTerminates(t *testing.T) {
	sup := &scripted{id: domain.Supervisor, fn: func(context.Context, domain.WorkflowState) (domain.Update, error) {
		return domain.Update{Error: domain.Some("question missing"), Next: domain.General}, nil
	}}
	gen := general("never streamed")
	g := routedGraph(sup, gen)

	chunks, final := collect(runtime.NewEngine(), g, initialState(""))
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].IsError())
	assert.Equal(t, domain.ErrorData{Error: "question missing"}, chunks[0].Data)
	assert.EqualValues(t, 0, gen.calls.Load())
	assert.Equal(t, "question missing", final.ErrorMessage())
}

func TestStream_AgentFailureAfterProgress(t *testing.T) {
	failing := &scripted{id: domain.Planner, fn: func(context.Context, domain.WorkflowState) (domain.Update, error) {
		return domain.Update{}, errors.New("model overloaded")
	}}
	g := routedGraph(router(domain.Planner), failing)

	chunks, _ := collect(runtime.NewEngine(), g, initialState("plan"))
	require.Len(t, chunks, 2)
	assert.Equal(t, "supervisor", chunks[0].Step)
	assert.True(t, chunks[1].IsError())
	assert.Equal(t, domain.ErrorData{Error: "model overloaded"}, chunks[1].Data)
}

func TestStream_SkipsBookkeepingUpdates(t *testing.T) {
	quiet := &scripted{id: domain.Supervisor, fn: func(context.Context, domain.WorkflowState) (domain.Update, error) {
		return domain.Update{Messages: []domain.Message{domain.AssistantMessage("thinking")}, Error: domain.Null[string]()}, nil
	}}
	g := routedGraph(quiet, general("answer"))

	chunks, final := collect(runtime.NewEngine(), g, initialState("hi"))
	require.Len(t, chunks, 1, "unknown key falls back to general; the supervisor chunk is suppressed")
	assert.Equal(t, "general", chunks[0].Step)
	assert.Equal(t, "answer", chunks[0].Response)
	assert.Len(t, final.Messages, 2)
}

func TestStream_NoOutputEmitsErrorChunk(t *testing.T) {
	silent := &scripted{id: domain.General, fn: func(context.Context, domain.WorkflowState) (domain.Update, error) {
		return domain.Update{}, nil
	}}
	g := routedGraph(router(domain.General), silent)

	chunks, _ := collect(runtime.NewEngine(), g, initialState("hi"))
	require.Len(t, chunks, 2)
	assert.Equal(t, domain.ErrorChunk(domain.ErrNoOutput.Error()), chunks[1])
}

func TestStream_ConsumerBreakStopsTraversal(t *testing.T) {
	sum := summarizer("x")
	g := routedGraph(router(domain.Summarizer), sum)

	done := false
	for range runtime.NewEngine().Stream(context.Background(), g, initialState("hi"), domain.RunConfig{}, func(domain.WorkflowState) { done = true }) {
		break
	}
	assert.EqualValues(t, 0, sum.calls.Load())
	assert.True(t, done)
}

func TestStream_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := routedGraph(router(domain.General), general("x"))

	var chunks []domain.StreamChunk
	for c := range runtime.NewEngine().Stream(ctx, g, initialState("hi"), domain.RunConfig{}, nil) {
		chunks = append(chunks, c)
	}
	assert.Empty(t, chunks)
}

func TestStream_InvalidGraphYieldsErrorChunk(t *testing.T) {
	chunks, _ := collect(runtime.NewEngine(), nil, initialState("hi"))
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].IsError())
}
