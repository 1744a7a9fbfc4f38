// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes read-only Othala publishing tools for LLM integration via stdio
// transport. Mutations go through the authenticated batch API only.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/othala/internal/manifest"
	"github.com/starford/othala/internal/sessionstore"
)

// Server wraps the MCP server with Othala tools.
type Server struct {
	mcp       *server.MCPServer
	sessions  sessionstore.Repository
	manifests manifest.Store
}

// New creates a new MCP server with all Othala tools registered.
func New(sessions sessionstore.Repository, manifests manifest.Store) *Server {
	s := &Server{sessions: sessions, manifests: manifests}

	s.mcp = server.NewMCPServer(
		"Othala",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_session_status",
		mcp.WithDescription("Get the lifecycle status and counters of a publishing session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Opaque session id")),
	), s.getSessionStatus)

	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List published pages (route and title), optionally filtered by route prefix."),
		mcp.WithString("prefix", mcp.Description("Optional route prefix filter (e.g. /meeting-notes/)")),
	), s.listPages)

	s.mcp.AddTool(mcp.NewTool("site_summary",
		mcp.WithDescription("Summarize the published site: page/asset counts, owning session, last update."),
	), s.siteSummary)

	s.mcp.AddTool(mcp.NewTool("get_publish_contract",
		mcp.WithDescription("Returns the canonical upload payload contract. "+
			"Call this before constructing note or asset batches."),
	), s.getPublishContract)

	// Resource: publish payload contract.
	s.mcp.AddResource(
		mcp.NewResource("othala://publish-contract", "Publish Payload Contract",
			mcp.WithResourceDescription("Canonical batch upload payload format for notes and assets."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPublishContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) getSessionStatus(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	session, err := s.sessions.FindByID(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(session, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listPages(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prefix := ""
	if p, err := req.RequireString("prefix"); err == nil {
		prefix = p
	}

	m, err := s.manifests.Load()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if m == nil {
		return mcp.NewToolResultText("no manifest published yet"), nil
	}

	var lines []string
	for _, p := range m.Pages {
		if prefix != "" && !strings.HasPrefix(p.Route, prefix) {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s\t%s", p.Route, p.Title))
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no pages found"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) siteSummary(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m, err := s.manifests.Load()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if m == nil {
		return mcp.NewToolResultText("no manifest published yet"), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"session_id":      m.SessionID,
		"version":         m.Version,
		"pages":           len(m.Pages),
		"assets":          len(m.Assets),
		"last_updated_at": m.LastUpdatedAt,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getPublishContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PublishContract), nil
}

func (s *Server) readPublishContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "othala://publish-contract",
			MIMEType: "text/markdown",
			Text:     PublishContract,
		},
	}, nil
}
