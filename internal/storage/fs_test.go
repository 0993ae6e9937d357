package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCreateAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.Create("note.md", content); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := s.Read("note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestCreateMakesSubdirs(t *testing.T) {
	s := tempRoot(t)
	if err := s.Create("a/b/c.md", []byte("deep")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !s.Exists("a/b/c.md") {
		t.Error("created file should exist")
	}
}

func TestCreateNeverOverwrites(t *testing.T) {
	s := tempRoot(t)
	if err := s.Create("keep.md", []byte("first")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := s.Create("keep.md", []byte("second"))
	if !errors.Is(err, os.ErrExist) {
		t.Fatalf("second Create err = %v, want os.ErrExist", err)
	}
	got, _ := s.Read("keep.md")
	if string(got) != "first" {
		t.Errorf("content = %q, want first", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, ".wikivault-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestExists(t *testing.T) {
	s := tempRoot(t)
	writeFile(t, s.root, "here.md", "x")
	if !s.Exists("here.md") {
		t.Error("here.md should exist")
	}
	if s.Exists("missing.md") {
		t.Error("missing.md should not exist")
	}
	_ = s.MkdirAll("dir.md")
	if s.Exists("dir.md") {
		t.Error("a directory is not a note file")
	}
}

func TestList(t *testing.T) {
	s := tempRoot(t)
	writeFile(t, s.root, "a.md", "a")
	writeFile(t, s.root, "sub/b.md", "b")
	writeFile(t, s.root, "readme.txt", "not md")
	writeFile(t, s.root, ".obsidian/hidden.md", "hidden")

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(items), items)
	}
	for _, it := range items {
		if strings.Contains(it.Path, "\\") {
			t.Errorf("path not slash-normalized: %q", it.Path)
		}
	}
}

func TestNotes_AbsoluteSlashPaths(t *testing.T) {
	s := tempRoot(t)
	writeFile(t, s.root, "docs/Note.md", "n")

	notes, err := s.Notes("")
	if err != nil {
		t.Fatalf("Notes: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("len = %d, want 1", len(notes))
	}
	want := filepath.ToSlash(filepath.Join(s.root, "docs", "Note.md"))
	if notes[0].Path != want || notes[0].Name != "Note.md" {
		t.Errorf("note = %+v, want path %q", notes[0], want)
	}
}

func TestWithNoteExt(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFS(dir, WithNoteExt(".markdown"))
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "a.markdown", "a")
	writeFile(t, dir, "b.md", "b")
	notes, _ := s.Notes("")
	if len(notes) != 1 || notes[0].Name != "a.markdown" {
		t.Errorf("notes = %+v", notes)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Create(p, []byte("x")); err == nil {
			t.Errorf("expected error for create at %q", p)
		}
		if err := s.MkdirAll(p); err == nil {
			t.Errorf("expected error for mkdir at %q", p)
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFS(f); err == nil {
		t.Error("expected error when root is a file")
	}
}
