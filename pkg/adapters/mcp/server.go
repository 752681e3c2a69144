package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/civicchat/orchestra/internal/logging"
	"github.com/civicchat/orchestra/internal/sanitize"
	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/civicchat/orchestra/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// GraphURI is the resource serving the workflow diagram.
const GraphURI = "orchestra://graph"

// AskTool runs the routed workflow.
const AskTool = "ask"

// Engine is what the MCP server needs from the orchestrator.
type Engine interface {
	ports.Workflow
	Targets() []domain.AgentID
	NewState(ctx domain.RequestContext, messages ...domain.Message) domain.WorkflowState
	Describe(target domain.AgentID) (string, error)
}

// Args is the input of every tool.
type Args struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// Result aligns with the HTTP agent response so both transports look alike.
type Result struct {
	Agent    string `json:"agent" jsonschema_description:"Agent that produced the response"`
	Response string `json:"response" jsonschema_description:"Natural language answer"`
	Language string `json:"language" jsonschema_description:"Language the answer is written in"`
	Output   any    `json:"output,omitempty" jsonschema_description:"Structured output of the agent"`
	Error    string `json:"error,omitempty" jsonschema_description:"Set when the agent failed; output then holds a fallback"`
}

var descriptions = map[domain.AgentID]string{
	domain.Summarizer: "Summarize a civic or legal text into a short summary and key points.",
	domain.Simplifier: "Rewrite a text in plain language with a glossary of difficult terms.",
	domain.Impact:     "Explain who is affected by a measure and how.",
	domain.Planner:    "Turn a civic goal into an ordered list of steps.",
	domain.General:    "Answer a general question about public services.",
}

// Server exposes the orchestrator as an MCP server: one tool for the routed
// workflow and one per specialist agent.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger used for rejected inputs and failed runs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, version string, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		mcpServer: server.NewMCPServer("orchestra", version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves the protocol on in/out until ctx is done.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	err := server.NewStdioServer(s.mcpServer).Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Handler serves the protocol over streamable HTTP.
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcpServer)
}

func (s *Server) registerTools() {
	for _, target := range s.engine.Targets() {
		name, desc := string(target), descriptions[target]
		if target == domain.Supervisor {
			name = AskTool
			desc = "Route a question to the most suitable civic assistant and return its answer."
		}
		tool := mcp.NewTool(name,
			mcp.WithDescription(desc),
			mcp.WithString("text", mcp.Required(), mcp.Description("The question or document to process")),
			mcp.WithString("language", mcp.Description("ISO 639-1 answer language (optional, detected when omitted)")),
			mcp.WithOutputSchema[Result](),
		)
		s.mcpServer.AddTool(tool, mcp.NewStructuredToolHandler(s.run(target)))
	}
}

func (s *Server) run(target domain.AgentID) func(context.Context, mcp.CallToolRequest, Args) (Result, error) {
	return func(ctx context.Context, _ mcp.CallToolRequest, args Args) (Result, error) {
		text, err := sanitize.Text(args.Text)
		if err != nil {
			s.logger.Warn("MCP input rejected", "tool", target, "error", err, "size", len(args.Text))
			return Result{}, fmt.Errorf("input rejected: %w", err)
		}
		if strings.TrimSpace(text) == "" {
			return Result{}, errors.New("text is required")
		}

		state := s.engine.NewState(domain.RequestContext{
			Question: text,
			Language: strings.TrimSpace(args.Language),
		}, domain.UserMessage(text))

		final, err := s.engine.Invoke(ctx, target, state, domain.RunConfig{})
		if err != nil {
			return Result{}, fmt.Errorf("run failed: %w", err)
		}

		agent := target
		if target == domain.Supervisor {
			agent = final.Next
		}
		res := Result{
			Agent:    string(agent),
			Response: final.Response(),
			Language: final.LanguageDetected,
			Error:    final.ErrorMessage(),
		}
		if final.Context.Language != "" {
			res.Language = final.Context.Language
		}
		if out := final.Output(agent); out != nil {
			res.Output = out
		}
		if res.Error != "" {
			s.logger.Error("MCP run failed", "tool", target, "error", res.Error)
		}
		return res, nil
	}
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Workflow Graph",
		mcp.WithResourceDescription("Mermaid flowchart of the routed workflow"),
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		diagram, err := s.engine.Describe(domain.Supervisor)
		if err != nil {
			return nil, fmt.Errorf("failed to describe graph: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      GraphURI,
				MIMEType: "text/plain",
				Text:     diagram,
			},
		}, nil
	})
}
