// Package http exposes the orchestrator over HTTP using chi.
//
// Agents are invoked synchronously (JSON) or incrementally (Server-Sent Events),
// optionally bound to a conversation thread whose history seeds each run.
// Every route except /health and /metrics requires an authenticated caller.
package http
