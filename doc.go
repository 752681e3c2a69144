/*
Package orchestra routes natural-language requests through a small graph of
specialized text agents.

A supervisor agent picks the language and the specialist (summarizer,
simplifier, impact, planner or general) for each request; the specialist
produces a structured output. Every agent returns a partial update which the
engine folds into a shared WorkflowState using per-field merge strategies, so a
run always ends with either an output or an error (usually both when an
upstream call failed and a localized fallback was used).

# Architecture

The module follows a hexagonal layout:

  - pkg/domain holds the state, the reducers and the graph types.
  - pkg/ports declares the driven ports (text generation, retrieval, thread storage, locks).
  - pkg/agents implements the agents on top of those ports.
  - pkg/adapters wires real infrastructure (OpenAI-compatible APIs, Redis, SQLite, HTTP/SSE, MCP).
  - pkg/threads serializes conversation history updates; pkg/persistence/middleware encrypts
    and redacts what the stores keep.

# Usage

	gen := openai.New(openai.Config{APIKey: os.Getenv("OPENAI_API_KEY"), Model: "gpt-4o-mini"})
	eng, err := orchestra.New(agents.Set(gen))
	if err != nil {
		log.Fatal(err)
	}

	state := eng.NewState(domain.RequestContext{}, domain.UserMessage("Summarize this: ..."))
	final, err := eng.Invoke(ctx, domain.Supervisor, state, domain.RunConfig{})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(final.Response())

Stream yields one chunk per completed agent instead:

	for chunk := range eng.Stream(ctx, domain.Supervisor, state, domain.RunConfig{}, nil) {
		fmt.Println(chunk.Step, chunk.Final)
	}
*/
package orchestra
