/*
Package agents implements the concrete workflow agents.

Every agent is stateless: request data travels in domain.WorkflowState and
domain.RunConfig, and collaborators (text generation, language detection,
retrieval) are injected once at construction.

# Agents

  - Supervisor: resolves the request language and routes to one specialist.
  - Summarizer: summary, up to five key points and a complexity score.
  - Simplifier: plain language rewrite with a glossary.
  - Impact: affected areas graded by severity, with recommendations.
  - Planner: a goal broken into ordered steps.
  - General: free form answer, grounded on knowledge passages when a Retriever is set.

Specialists implement domain.FallbackProvider, so a failed upstream call still yields
a well formed, localized output next to the recorded error.
*/
package agents
