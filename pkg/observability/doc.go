/*
Package observability provides tools for monitoring the orchestra engine.

It includes lifecycle hooks for auditing agent runs and routing decisions through
structured logs, and Prometheus metrics fed by the same hooks.
*/
package observability
