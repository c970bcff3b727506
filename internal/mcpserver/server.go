// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the Ansuz chatmode library via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/catalog"
	"github.com/starford/ansuz/internal/chatmode"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/storage"
)

// Server wraps the MCP server with Ansuz tools.
type Server struct {
	mcp   *server.MCPServer
	store storage.Provider
	db    *catalog.DB
}

// New creates a new MCP server with all Ansuz tools registered.
func New(store storage.Provider, db *catalog.DB) *Server {
	s := &Server{store: store, db: db}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_modes",
		mcp.WithDescription("List all chatmodes or the chatmodes in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listModes)

	s.mcp.AddTool(mcp.NewTool("read_mode",
		mcp.WithDescription("Read the full content of a chatmode document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Mode name or relative path (e.g. plan or team/plan.chatmode.md)")),
	), s.readMode)

	s.mcp.AddTool(mcp.NewTool("search_modes",
		mcp.WithDescription("Full-text search through chatmode names, descriptions, and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchModes)

	s.mcp.AddTool(mcp.NewTool("create_mode",
		mcp.WithDescription("Create a new chatmode at the specified path. "+
			"Content MUST follow the canonical chatmode format (front matter with a "+
			"required description, optional tools list and model, then a Markdown body). "+
			"Read the contract first via the get_mode_contract tool or the "+
			"ansuz://chatmode-format resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new mode (must end with .chatmode.md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Document content following the chatmode format contract")),
	), s.createMode)

	s.mcp.AddTool(mcp.NewTool("modes_for_tool",
		mcp.WithDescription("Find all chatmodes that grant the specified tool."),
		mcp.WithString("tool", mcp.Required(), mcp.Description("Tool name to look up")),
	), s.modesForTool)

	s.mcp.AddTool(mcp.NewTool("get_mode_contract",
		mcp.WithDescription("Returns the canonical chatmode format contract. "+
			"Call this before creating or updating modes to ensure correct structure."),
	), s.getModeContract)

	// Resource: chatmode format contract.
	s.mcp.AddResource(
		mcp.NewResource("ansuz://chatmode-format", "Chatmode Format Contract",
			mcp.WithResourceDescription("Canonical chatmode document format that all modes must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
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

func (s *Server) listModes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	metas, err := s.store.List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no modes found"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) readMode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !strings.HasSuffix(path, chatmode.Suffix) {
		path += chatmode.Suffix
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) searchModes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createMode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !strings.HasSuffix(path, chatmode.Suffix) {
		return mcp.NewToolResultError(fmt.Sprintf("path must end with %s: %s", chatmode.Suffix, path)), nil
	}

	data := []byte(content)
	doc, _, parseErr := chatmode.Parse(path, data)
	if parseErr != nil {
		return mcp.NewToolResultError(parseErr.Error()), nil
	}

	// Check existence.
	if _, readErr := s.store.Read(path); readErr == nil {
		return mcp.NewToolResultError(fmt.Sprintf("mode already exists: %s", path)), nil
	}

	if err := s.store.Write(path, data); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	_ = s.db.UpsertMode(catalog.ModeRow{
		Path:        path,
		Name:        doc.Name(),
		Description: doc.Description,
		Model:       doc.Model,
		Tools:       doc.Tools,
		Checksum:    checksum.Sum(data),
	}, doc.Body)

	return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) modesForTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tool, err := req.RequireString("tool")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	modes, err := s.db.ModesForTool(tool)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(modes) == 0 {
		return mcp.NewToolResultText("no modes use this tool"), nil
	}
	return mcp.NewToolResultText(strings.Join(modes, "\n")), nil
}

func (s *Server) getModeContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ChatmodeFormatContract), nil
}

func (s *Server) readFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ansuz://chatmode-format",
			MIMEType: "text/markdown",
			Text:     ChatmodeFormatContract,
		},
	}, nil
}
