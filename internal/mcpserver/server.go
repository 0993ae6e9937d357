// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes wikivault tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/wikivault/internal/apperr"
	"github.com/starford/wikivault/internal/noteservice"
	"github.com/starford/wikivault/internal/periodic"
)

const (
	vaultsURI     = "wikivault://vaults"
	linkSyntaxURI = "wikivault://link-syntax"
)

// Server wraps the MCP server with wikivault tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all wikivault tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"wikivault",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("resolve_link",
		mcp.WithDescription("Resolve a [[wikilink]] to the note file it points at. "+
			"Read the wikivault://link-syntax resource for the matching rules."),
		mcp.WithString("link", mcp.Required(), mcp.Description("Link text without brackets, alias allowed (e.g. folder/Note|shown)")),
		mcp.WithString("from", mcp.Description("Path of the note containing the link, relative to the workspace")),
	), s.resolveLink)

	s.mcp.AddTool(mcp.NewTool("check_links",
		mcp.WithDescription("List every wikilink in a note and whether it resolves."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Note path relative to the workspace (e.g. vault/daily/2025-11-20.md)")),
	), s.checkLinks)

	s.mcp.AddTool(mcp.NewTool("complete_link",
		mcp.WithDescription("Suggest note names starting with a prefix, shortest paths first."),
		mcp.WithString("prefix", mcp.Description("Typed prefix, case-insensitive")),
		mcp.WithString("from", mcp.Description("Path of the note being edited")),
		mcp.WithNumber("limit", mcp.Description("Maximum suggestions (default 20)")),
	), s.completeLink)

	s.mcp.AddTool(mcp.NewTool("periodic_note",
		mcp.WithDescription("Find the daily, weekly, monthly, quarterly, or yearly note of a vault, "+
			"optionally creating it from the vault's template."),
		mcp.WithString("period", mcp.Required(), mcp.Description("Period"),
			mcp.Enum("daily", "weekly", "monthly", "quarterly", "yearly")),
		mcp.WithString("vault", mcp.Description("Vault name; may be omitted when there is only one vault or when from is set")),
		mcp.WithString("from", mcp.Description("Path of a note; selects the vault containing it when vault is empty")),
		mcp.WithString("date", mcp.Description("Date as YYYY-MM-DD (default today)")),
		mcp.WithBoolean("create", mcp.Description("Create the note when it does not exist")),
	), s.periodicNote)

	s.mcp.AddTool(mcp.NewTool("list_vaults",
		mcp.WithDescription("List discovered vaults with their periodic-notes settings."),
	), s.listVaults)

	s.mcp.AddTool(mcp.NewTool("reload_vaults",
		mcp.WithDescription("Rescan the workspace for vaults and their periodic-notes settings."),
	), s.reloadVaults)

	s.mcp.AddResource(
		mcp.NewResource(vaultsURI, "Discovered Vaults",
			mcp.WithResourceDescription("Human-readable dump of discovered vaults and their periodic settings."),
			mcp.WithMIMEType("text/plain"),
		),
		s.readVaultsResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(linkSyntaxURI, "Link Syntax Guide",
			mcp.WithResourceDescription("How wikilinks resolve and how periodic note names are formatted."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLinkSyntaxResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) resolveLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	link, err := req.RequireString("link")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := s.svc.ResolveLink(ctx, req.GetString("from", ""), link)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("no note matches [[%s]]", link)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(target)
}

func (s *Server) checkLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := s.svc.CheckLinks(ctx, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report)
}

func (s *Server) completeLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.Complete(ctx, req.GetString("from", ""), req.GetString("prefix", ""), req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(items)
}

func (s *Server) periodicNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("period")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := periodic.ParsePeriod(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var date time.Time
	if d := req.GetString("date", ""); d != "" {
		date, err = time.ParseInLocation(time.DateOnly, d, time.Local)
		if err != nil {
			return mcp.NewToolResultError("date must be YYYY-MM-DD"), nil
		}
	}
	note, err := s.svc.PeriodicNote(ctx, req.GetString("vault", ""), req.GetString("from", ""), p, date, req.GetBool("create", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(note)
}

func (s *Server) listVaults(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	vaults, err := s.svc.Vaults(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(vaults)
}

func (s *Server) reloadVaults(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	vaults, err := s.svc.ReloadVaults(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(vaults)
}

func (s *Server) readVaultsResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	// Describe reports "not scanned" until something loads the registry.
	if _, err := s.svc.Vaults(ctx); err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      vaultsURI,
			MIMEType: "text/plain",
			Text:     s.svc.DescribeVaults(),
		},
	}, nil
}

func (s *Server) readLinkSyntaxResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      linkSyntaxURI,
			MIMEType: "text/markdown",
			Text:     LinkSyntaxGuide,
		},
	}, nil
}
