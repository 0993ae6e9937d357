// Package notestore finds and creates periodic-note files inside a vault.
package notestore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/wikivault/internal/storage"
)

// Store locates and materializes note files. It keeps no state between
// calls beyond its configuration.
type Store struct {
	ext    string
	logger *slog.Logger
}

// New creates a Store that names files <filename><ext>.
func New(ext string, logger *slog.Logger) *Store {
	if ext == "" {
		ext = storage.DefaultNoteExt
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{ext: ext, logger: logger}
}

func (s *Store) relPath(folder, filename string) string {
	return path.Join(filepath.ToSlash(folder), filename+s.ext)
}

// Find checks rootDir/folder/filename<ext> directly and returns its
// absolute path when it exists.
func (s *Store) Find(rootDir, folder, filename string) (string, bool) {
	fsys, err := storage.NewFS(rootDir)
	if err != nil {
		return "", false
	}
	rel := s.relPath(folder, filename)
	if !fsys.Exists(rel) {
		return "", false
	}
	return filepath.Join(fsys.Root(), filepath.FromSlash(rel)), true
}

// Create makes sure rootDir/folder exists, seeds the note from
// templatePath (vault-relative, optional) and writes it unless a file is
// already there. An unreadable template yields an empty note. The returned
// path is absolute. Existing notes are returned untouched.
func (s *Store) Create(rootDir, folder, filename, templatePath string) (string, error) {
	fsys, err := storage.NewFS(rootDir)
	if err != nil {
		return "", fmt.Errorf("notestore: open vault: %w", err)
	}
	if err := fsys.MkdirAll(filepath.ToSlash(folder)); err != nil {
		return "", fmt.Errorf("notestore: %w", err)
	}

	rel := s.relPath(folder, filename)
	abs := filepath.Join(fsys.Root(), filepath.FromSlash(rel))
	if fsys.Exists(rel) {
		return abs, nil
	}

	content := s.template(fsys, templatePath)
	if err := fsys.Create(rel, content); err != nil && !errors.Is(err, os.ErrExist) {
		return "", fmt.Errorf("notestore: %w", err)
	}
	return abs, nil
}

// template returns the template body, or nil when templatePath is blank or
// unreadable. A path without an extension also tries <path><ext>.
func (s *Store) template(fsys storage.Provider, templatePath string) []byte {
	p := strings.TrimSpace(templatePath)
	if p == "" {
		return nil
	}
	p = filepath.ToSlash(p)
	candidates := []string{p}
	if path.Ext(p) == "" {
		candidates = append(candidates, p+s.ext)
	}
	for _, c := range candidates {
		if !fsys.Exists(c) {
			continue
		}
		data, err := fsys.Read(c)
		if err != nil {
			break
		}
		return data
	}
	s.logger.Debug("notestore: template unavailable, creating empty note", slog.String("template", templatePath))
	return nil
}
