package runtime_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/civicchat/orchestra/internal/runtime"
	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/civicchat/orchestra/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_InvokeRoutesToSpecialist(t *testing.T) {
	sum := summarizer("Rents are capped.")
	gen := general("unused")
	g := routedGraph(router(domain.Summarizer), sum, gen)

	final, err := runtime.NewEngine().Invoke(context.Background(), g, initialState("Summarize this: ..."), domain.RunConfig{RunID: "r1"})
	require.NoError(t, err)

	assert.Nil(t, final.Error)
	assert.Equal(t, domain.Summarizer, final.Next)
	require.NotNil(t, final.Summarizer)
	assert.Equal(t, "Rents are capped.", final.Summarizer.Summary)
	assert.Nil(t, final.General)
	assert.Len(t, final.Messages, 2)
	assert.EqualValues(t, 1, sum.calls.Load())
	assert.EqualValues(t, 0, gen.calls.Load())
}

func TestEngine_FailureIsRecordedWithFallback(t *testing.T) {
	failing := withFallback{&scripted{
		id: domain.Summarizer,
		fn: func(context.Context, domain.WorkflowState) (domain.Update, error) {
			return domain.Update{}, errors.New("upstream unavailable")
		},
		fallback: func(domain.WorkflowState, error) domain.Update {
			return domain.Update{Summarizer: &domain.SummaryOutput{Summary: "try later"}, Error: domain.Null[string]()}
		},
	}}
	g := routedGraph(router(domain.Summarizer), failing)

	final, err := runtime.NewEngine().Invoke(context.Background(), g, initialState("Summarize"), domain.RunConfig{})
	require.NoError(t, err, "agent failures never escape the run")

	assert.Equal(t, "upstream unavailable", final.ErrorMessage(), "the error wins over the fallback's clear")
	require.NotNil(t, final.Summarizer)
	assert.Equal(t, "try later", final.Summarizer.Summary)
}

func TestEngine_RecoversPanics(t *testing.T) {
	panicky := &scripted{id: domain.General, fn: func(context.Context, domain.WorkflowState) (domain.Update, error) {
		panic("nil map")
	}}
	g := routedGraph(router(domain.General), panicky)

	final, err := runtime.NewEngine().Invoke(context.Background(), g, initialState("hi"), domain.RunConfig{})
	require.NoError(t, err)
	assert.Contains(t, final.ErrorMessage(), "nil map")
}

func TestEngine_SyncExecutorContinuesAfterError(t *testing.T) {
	sup := &scripted{id: domain.Supervisor, fn: func(context.Context, domain.WorkflowState) (domain.Update, error) {
		return domain.Update{Error: domain.Some("question missing"), Next: domain.General}, nil
	}}
	gen := general("fallback answer")
	g := routedGraph(sup, gen)

	final, err := runtime.NewEngine().Invoke(context.Background(), g, initialState(""), domain.RunConfig{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, gen.calls.Load())
	assert.Nil(t, final.Error, "the general agent cleared the error")
	assert.Equal(t, "fallback answer", final.Response())
}

func TestEngine_NoOutputIsAnError(t *testing.T) {
	silent := &scripted{id: domain.General, fn: func(context.Context, domain.WorkflowState) (domain.Update, error) {
		return domain.Update{Error: domain.Null[string]()}, nil
	}}
	g := routedGraph(router(domain.General), silent)

	final, err := runtime.NewEngine().Invoke(context.Background(), g, initialState("hi"), domain.RunConfig{})
	require.NoError(t, err)
	assert.Equal(t, domain.ErrNoOutput.Error(), final.ErrorMessage())
}

func TestEngine_MaxSteps(t *testing.T) {
	loopSup := router(domain.General)
	loopGen := general("again")

	b := dsl.New("loop")
	b.Start(domain.Supervisor)
	b.Add(loopSup).When(func(s domain.WorkflowState) string {
		if s.General != nil && strings.Contains(s.General.Answer, "done") {
			return "end"
		}
		return "general"
	}).Branch("general", domain.General).Branch("end", domain.End)
	b.Add(loopGen).Go(domain.Supervisor)
	g := b.MustBuild()

	final, err := runtime.NewEngine(runtime.WithMaxSteps(5)).Invoke(context.Background(), g, initialState("hi"), domain.RunConfig{})
	require.NoError(t, err)
	assert.Equal(t, domain.ErrMaxSteps.Error(), final.ErrorMessage())
	assert.EqualValues(t, 3, loopSup.calls.Load())
	assert.EqualValues(t, 2, loopGen.calls.Load())
}

func TestEngine_UnknownRouteKeyFallsBackToGeneral(t *testing.T) {
	sup := &scripted{id: domain.Supervisor, fn: func(context.Context, domain.WorkflowState) (domain.Update, error) {
		return domain.Update{Next: "translator"}, nil
	}}
	gen := general("answer")
	g := routedGraph(sup, summarizer("x"), gen)

	final, err := runtime.NewEngine().Invoke(context.Background(), g, initialState("hi"), domain.RunConfig{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, gen.calls.Load())
	assert.Equal(t, "answer", final.Response())
}

func TestEngine_UnknownRouteKeyWithoutGeneral(t *testing.T) {
	sup := &scripted{id: domain.Supervisor, fn: func(context.Context, domain.WorkflowState) (domain.Update, error) {
		return domain.Update{Next: "translator"}, nil
	}}
	g := routedGraph(sup, summarizer("x"))

	final, err := runtime.NewEngine().Invoke(context.Background(), g, initialState("hi"), domain.RunConfig{})
	require.NoError(t, err)
	assert.Contains(t, final.ErrorMessage(), `no route for key "translator"`)
}

func TestEngine_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sup := &scripted{id: domain.Supervisor, fn: func(context.Context, domain.WorkflowState) (domain.Update, error) {
		cancel()
		return domain.Update{Next: domain.General}, nil
	}}
	gen := general("never")
	g := routedGraph(sup, gen)

	_, err := runtime.NewEngine().Invoke(ctx, g, initialState("hi"), domain.RunConfig{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 0, gen.calls.Load())
}

func TestEngine_NodeTimeout(t *testing.T) {
	slow := withFallback{&scripted{
		id: domain.General,
		fn: func(ctx context.Context, _ domain.WorkflowState) (domain.Update, error) {
			<-ctx.Done()
			return domain.Update{}, ctx.Err()
		},
		fallback: func(domain.WorkflowState, error) domain.Update {
			return domain.Update{General: &domain.GeneralOutput{Answer: "sorry"}}
		},
	}}
	g := routedGraph(router(domain.General), slow)

	final, err := runtime.NewEngine(runtime.WithNodeTimeout(10*time.Millisecond)).
		Invoke(context.Background(), g, initialState("hi"), domain.RunConfig{})
	require.NoError(t, err)
	assert.Equal(t, "general timed out", final.ErrorMessage())
	assert.Equal(t, "sorry", final.Response())
}

func TestEngine_InvalidGraph(t *testing.T) {
	_, err := runtime.NewEngine().Invoke(context.Background(), nil, initialState("hi"), domain.RunConfig{})
	assert.ErrorIs(t, err, domain.ErrInvalidGraph)

	g := &domain.Graph{Edges: map[domain.AgentID]domain.Edge{domain.Start: {To: domain.Planner}}}
	_, err = runtime.NewEngine().Invoke(context.Background(), g, initialState("hi"), domain.RunConfig{})
	var nodeErr *runtime.NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, domain.Planner, nodeErr.AgentID)
	assert.ErrorIs(t, err, domain.ErrUnknownAgent)
}

func TestEngine_LifecycleHooks(t *testing.T) {
	var entered, left []domain.AgentID
	var routes []string

	hooks := domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			entered = append(entered, e.AgentID)
		},
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			left = append(left, e.AgentID)
			assert.Equal(t, "run-7", e.RunID)
		},
		OnRoute: func(_ context.Context, e *domain.RouteEvent) {
			routes = append(routes, string(e.From)+"->"+string(e.To))
		},
	}

	g := routedGraph(router(domain.Summarizer), summarizer("ok"))
	_, err := runtime.NewEngine(runtime.WithLifecycleHooks(hooks)).
		Invoke(context.Background(), g, initialState("hi"), domain.RunConfig{RunID: "run-7"})
	require.NoError(t, err)

	assert.Equal(t, []domain.AgentID{domain.Supervisor, domain.Summarizer}, entered)
	assert.Equal(t, entered, left)
	assert.Equal(t, []string{"supervisor->summarizer", "summarizer->__end__"}, routes)
}

func TestEngine_Options(t *testing.T) {
	assert.Equal(t, runtime.DefaultMaxSteps, runtime.NewEngine(runtime.WithMaxSteps(0)).MaxSteps())
	assert.Equal(t, 3, runtime.NewEngine(runtime.WithMaxSteps(3)).MaxSteps())
}
