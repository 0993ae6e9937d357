package notestore

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func read(t *testing.T, p string) string {
	t.Helper()
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read %s: %v", p, err)
	}
	return string(data)
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	write(t, root, "journal/2025-11-20.md", "today")
	s := New(".md", nil)

	got, ok := s.Find(root, "journal", "2025-11-20")
	if !ok || got != filepath.Join(root, "journal", "2025-11-20.md") {
		t.Errorf("Find = %q, %v", got, ok)
	}
	if _, ok := s.Find(root, "journal", "2025-11-21"); ok {
		t.Error("Find should miss a nonexistent note")
	}
	if _, ok := s.Find(root, "", "2025-11-20"); ok {
		t.Error("Find must not search other folders")
	}
}

func TestCreate_FromTemplate(t *testing.T) {
	root := t.TempDir()
	write(t, root, "templates/daily.md", "# Daily\n- [ ] plan\n")
	s := New(".md", nil)

	p, err := s.Create(root, "journal/2025", "2025-11-20", "templates/daily")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p != filepath.Join(root, "journal", "2025", "2025-11-20.md") {
		t.Errorf("path = %q", p)
	}
	if got := read(t, p); got != "# Daily\n- [ ] plan\n" {
		t.Errorf("content = %q", got)
	}
}

func TestCreate_TemplateWithExtension(t *testing.T) {
	root := t.TempDir()
	write(t, root, "tpl/weekly.md", "weekly body")
	p, err := New(".md", nil).Create(root, "weeks", "2025-W47", "tpl/weekly.md")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := read(t, p); got != "weekly body" {
		t.Errorf("content = %q", got)
	}
}

func TestCreate_MissingTemplateGivesEmptyNote(t *testing.T) {
	root := t.TempDir()
	for i, tpl := range []string{"", "   ", "templates/missing", "../outside"} {
		p, err := New(".md", nil).Create(root, "j", fmt.Sprintf("note-%d", i), tpl)
		if err != nil {
			t.Fatalf("Create(%q): %v", tpl, err)
		}
		if got := read(t, p); got != "" {
			t.Errorf("template %q: content = %q, want empty", tpl, got)
		}
	}
}

func TestCreate_Idempotent(t *testing.T) {
	root := t.TempDir()
	write(t, root, "tpl.md", "seed")
	s := New(".md", nil)

	p1, err := s.Create(root, "daily", "2025-11-20", "tpl")
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if err := os.WriteFile(p1, []byte("edited by user"), 0o644); err != nil {
		t.Fatal(err)
	}
	p2, err := s.Create(root, "daily", "2025-11-20", "tpl")
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if p1 != p2 {
		t.Errorf("paths differ: %q vs %q", p1, p2)
	}
	if got := read(t, p2); got != "edited by user" {
		t.Errorf("content = %q, existing note was overwritten", got)
	}
}

func TestCreate_EmptyFolderUsesRoot(t *testing.T) {
	root := t.TempDir()
	p, err := New(".md", nil).Create(root, "", "2025", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p != filepath.Join(root, "2025.md") {
		t.Errorf("path = %q", p)
	}
}

func TestCreate_FolderEscapingVaultFails(t *testing.T) {
	root := t.TempDir()
	if _, err := New(".md", nil).Create(root, "../escape", "x", ""); err == nil {
		t.Error("expected error for folder outside the vault")
	}
}

func TestCreate_MissingRootFails(t *testing.T) {
	if _, err := New(".md", nil).Create(filepath.Join(t.TempDir(), "gone"), "", "x", ""); err == nil {
		t.Error("expected error for missing vault root")
	}
}
