package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/wikivault/internal/noteservice"
	"github.com/starford/wikivault/internal/testutil"
	"github.com/starford/wikivault/internal/vault"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()

	ws, store := testutil.TestWorkspace(t)
	testutil.WriteVaultConfig(t, filepath.Join(ws, "kb"),
		`{"daily": {"folder": "daily", "template": "templates/day", "enabled": true}}`)
	testutil.WriteFile(t, ws, "kb/Note.md", "[[docs/Note]] and [[Nowhere]]")
	testutil.WriteFile(t, ws, "kb/docs/Note.md", "docs")
	testutil.WriteFile(t, ws, "kb/templates/day.md", "## Tasks\n")

	registry := vault.NewRegistry(ws, vault.DefaultScanOptions(), nil)
	svc := noteservice.New(store, registry,
		noteservice.WithClock(func() time.Time { return time.Date(2025, 11, 20, 12, 0, 0, 0, time.Local) }))
	return New(svc, "test"), ws
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "resolve_link":
		result, err = srv.resolveLink(ctx, req)
	case "check_links":
		result, err = srv.checkLinks(ctx, req)
	case "complete_link":
		result, err = srv.completeLink(ctx, req)
	case "periodic_note":
		result, err = srv.periodicNote(ctx, req)
	case "list_vaults":
		result, err = srv.listVaults(ctx, req)
	case "reload_vaults":
		result, err = srv.reloadVaults(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestResolveLink(t *testing.T) {
	srv, ws := testServer(t)

	r := callTool(t, srv, "resolve_link", map[string]interface{}{"link": "docs/Note|the docs"})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	var got noteservice.LinkTarget
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Path != filepath.ToSlash(filepath.Join(ws, "kb", "docs", "Note.md")) {
		t.Errorf("path = %q", got.Path)
	}
}

func TestResolveLink_NotFound(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "resolve_link", map[string]interface{}{"link": "Nowhere"})
	if !r.IsError || !strings.Contains(resultText(r), "[[Nowhere]]") {
		t.Errorf("result = %+v", r)
	}
	r = callTool(t, srv, "resolve_link", map[string]interface{}{})
	if !r.IsError {
		t.Error("missing link argument should be an error")
	}
}

func TestCheckLinks(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "check_links", map[string]interface{}{"path": "kb/Note.md"})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	var report noteservice.NoteLinks
	if err := json.Unmarshal([]byte(resultText(r)), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(report.Links) != 2 || report.Broken != 1 {
		t.Errorf("report = %+v", report)
	}

	r = callTool(t, srv, "check_links", map[string]interface{}{"path": "kb/missing.md"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestCompleteLink(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "complete_link", map[string]interface{}{"prefix": "N", "limit": float64(5)})
	var items []noteservice.Completion
	if err := json.Unmarshal([]byte(resultText(r)), &items); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	if len(items) != 1 || items[0].Name != "Note" {
		t.Errorf("items = %+v", items)
	}
}

func TestPeriodicNote(t *testing.T) {
	srv, ws := testServer(t)

	r := callTool(t, srv, "periodic_note", map[string]interface{}{"period": "daily"})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"exists": false`) {
		t.Errorf("lookup = %s", resultText(r))
	}

	r = callTool(t, srv, "periodic_note", map[string]interface{}{
		"period": "daily",
		"vault":  "kb",
		"date":   "2025-03-04",
		"create": true,
	})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	data, err := os.ReadFile(filepath.Join(ws, "kb", "daily", "2025-03-04.md"))
	if err != nil || string(data) != "## Tasks\n" {
		t.Errorf("created note = %q, %v", data, err)
	}
}

func TestPeriodicNote_Errors(t *testing.T) {
	srv, _ := testServer(t)
	for _, args := range []map[string]interface{}{
		{"period": "fortnightly"},
		{"period": "daily", "date": "20/11/2025"},
		{"period": "weekly"},
		{"period": "daily", "vault": "missing"},
	} {
		if r := callTool(t, srv, "periodic_note", args); !r.IsError {
			t.Errorf("args %v: expected error, got %s", args, resultText(r))
		}
	}
}

func TestListAndReloadVaults(t *testing.T) {
	srv, ws := testServer(t)

	r := callTool(t, srv, "list_vaults", map[string]interface{}{})
	if !strings.Contains(resultText(r), `"name": "kb"`) {
		t.Errorf("list = %s", resultText(r))
	}

	testutil.WriteVaultConfig(t, filepath.Join(ws, "extra"), `{}`)
	r = callTool(t, srv, "reload_vaults", map[string]interface{}{})
	if !strings.Contains(resultText(r), `"name": "extra"`) {
		t.Errorf("reload = %s", resultText(r))
	}
}

func TestVaultsResource(t *testing.T) {
	srv, _ := testServer(t)
	contents, err := srv.readVaultsResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("read resource: %v", err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	if !strings.Contains(text, "kb") || strings.Contains(text, "not scanned") {
		t.Errorf("resource text = %q", text)
	}
}

func TestLinkSyntaxResource(t *testing.T) {
	srv, _ := testServer(t)
	contents, err := srv.readLinkSyntaxResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("read resource: %v", err)
	}
	tc := contents[0].(mcp.TextResourceContents)
	if tc.URI != linkSyntaxURI || !strings.Contains(tc.Text, "GGGG-[W]WW") {
		t.Errorf("resource = %+v", tc)
	}
}
