// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes flexdir directories for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/flexdir/internal/apperr"
	"github.com/starford/flexdir/internal/entryservice"
)

const layoutURI = "flexdir://storage-layout"

// Server wraps the MCP server with flexdir tools.
type Server struct {
	mcp *server.MCPServer
	svc *entryservice.Service
}

// New creates a new MCP server with all flexdir tools registered.
func New(svc *entryservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"flexdir",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_directories",
		mcp.WithDescription("List the enabled directory types with their storage settings."),
	), s.listDirectories)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List the entries of a directory type."),
		mcp.WithString("type", mcp.Description("Directory type (empty for the default type)")),
		mcp.WithNumber("limit", mcp.Description("Page size (0 for all)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listEntries)

	s.mcp.AddTool(mcp.NewTool("get_entry",
		mcp.WithDescription("Read one entry with its fields and checksum."),
		mcp.WithString("type", mcp.Description("Directory type (empty for the default type)")),
		mcp.WithString("key", mcp.Required(), mcp.Description("Entry key")),
	), s.getEntry)

	s.mcp.AddTool(mcp.NewTool("save_entry",
		mcp.WithDescription("Create or update an entry and persist it. "+
			"Without a key the entry is created under its natural key or a generated one. "+
			"With a key the fields are merged into the stored entry. "+
			"Read the flexdir://storage-layout resource for how fields map to files."),
		mcp.WithString("type", mcp.Description("Directory type (empty for the default type)")),
		mcp.WithString("key", mcp.Description("Entry key (empty to create)")),
		mcp.WithObject("fields", mcp.Required(), mcp.Description("Entry fields")),
		mcp.WithString("checksum", mcp.Description("Expected checksum of the stored entry")),
	), s.saveEntry)

	s.mcp.AddTool(mcp.NewTool("remove_entry",
		mcp.WithDescription("Delete an entry and persist the directory."),
		mcp.WithString("type", mcp.Description("Directory type (empty for the default type)")),
		mcp.WithString("key", mcp.Required(), mcp.Description("Entry key")),
	), s.removeEntry)

	s.mcp.AddTool(mcp.NewTool("upload_media",
		mcp.WithDescription("Store a file in an entry's folder. Only per-entry folder layouts keep media."),
		mcp.WithString("type", mcp.Description("Directory type (empty for the default type)")),
		mcp.WithString("key", mcp.Required(), mcp.Description("Entry key")),
		mcp.WithString("content", mcp.Required(), mcp.Description("File content as a base64 data URI")),
		mcp.WithString("filename", mcp.Description("File name (derived from the MIME type when empty)")),
	), s.uploadMedia)

	s.mcp.AddResource(
		mcp.NewResource(layoutURI, "Storage Layout",
			mcp.WithResourceDescription("How directory entries map to files on disk."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLayoutResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

// errorResult turns service errors into tool errors the model can act on.
func errorResult(typ, key string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s/%s", typ, key))
	case errors.Is(err, apperr.ErrUnknownType):
		return mcp.NewToolResultError(fmt.Sprintf("unknown directory type: %q", typ))
	case errors.Is(err, apperr.ErrConflict):
		return mcp.NewToolResultError("checksum mismatch: read the entry again before saving")
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listDirectories(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.ListDirectories(ctx)), nil
}

func (s *Server) listEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ := req.GetString("type", "")
	entries, total, err := s.svc.ListEntries(ctx, typ, req.GetInt("limit", 0), req.GetInt("offset", 0))
	if err != nil {
		return errorResult(typ, "", err), nil
	}
	return jsonResult(map[string]any{"entries": entries, "total": total}), nil
}

func (s *Server) getEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	typ := req.GetString("type", "")
	d, err := s.svc.GetEntry(ctx, typ, key)
	if err != nil {
		return errorResult(typ, key, err), nil
	}
	return jsonResult(d), nil
}

func (s *Server) saveEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fields, err := objectArg(req, "fields")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	typ := req.GetString("type", "")
	key := req.GetString("key", "")
	d, created, err := s.svc.CreateOrUpdate(ctx, typ, key, fields, req.GetString("checksum", ""))
	if err != nil {
		return errorResult(typ, key, err), nil
	}
	return jsonResult(map[string]any{"created": created, "entry": d}), nil
}

func (s *Server) removeEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	typ := req.GetString("type", "")
	if err := s.svc.RemoveEntry(ctx, typ, key); err != nil {
		return errorResult(typ, key, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed: %s", key)), nil
}

func (s *Server) readLayoutResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      layoutURI,
			MIMEType: "text/markdown",
			Text:     StorageLayout,
		},
	}, nil
}

// objectArg reads an object argument. Clients that cannot send nested
// objects may pass it as a JSON string.
func objectArg(req mcp.CallToolRequest, name string) (map[string]any, error) {
	switch v := req.GetArguments()[name].(type) {
	case map[string]any:
		return v, nil
	case string:
		var out map[string]any
		if err := json.Unmarshal([]byte(v), &out); err != nil || out == nil {
			return nil, fmt.Errorf("argument %q must be a JSON object", name)
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("required argument %q not found", name)
	default:
		return nil, fmt.Errorf("argument %q must be an object", name)
	}
}
