// Package mcp exposes the orchestrator over the Model Context Protocol.
//
// The routed workflow is published as the "ask" tool and every specialist
// agent as a tool named after it. The workflow diagram is available as the
// orchestra://graph resource.
package mcp
