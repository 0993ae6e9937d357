package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/wikivault/internal/models"
)

// DefaultNoteExt is the extension that marks a file as a note.
const DefaultNoteExt = ".md"

// FS implements Provider backed by the local file system.
type FS struct {
	root    string // absolute path to the root directory
	noteExt string
}

// Option configures an FS.
type Option func(*FS)

// WithNoteExt overrides the note file extension.
func WithNoteExt(ext string) Option {
	return func(f *FS) {
		if ext != "" {
			f.noteExt = ext
		}
	}
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string, opts ...Option) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	f := &FS{root: abs, noteExt: DefaultNoteExt}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Root returns the absolute root directory.
func (f *FS) Root() string {
	return f.root
}

// NoteExt returns the extension that marks a file as a note.
func (f *FS) NoteExt() string {
	return f.noteExt
}

// safePath resolves a relative path against the root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes root: %s", rel)
	}
	return abs, nil
}

// walkNotes calls fn for every note file under base. Hidden directories are
// not descended, and unreadable subtrees are skipped rather than failing
// the whole walk.
func (f *FS) walkNotes(base string, fn func(p string, d fs.DirEntry) error) error {
	return filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == base {
				return walkErr
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if p != base && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), f.noteExt) {
			return nil
		}
		return fn(p, d)
	})
}

// List walks dir (relative to root) and returns metadata for every note file.
func (f *FS) List(dir string) ([]models.NoteMetadata, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []models.NoteMetadata
	err = f.walkNotes(base, func(p string, d fs.DirEntry) error {
		info, err := d.Info()
		if err != nil {
			return nil // vanished between readdir and stat
		}
		rel, _ := filepath.Rel(f.root, p)
		out = append(out, models.NoteMetadata{
			Path:    filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

// Notes walks dir (relative to root) and returns every note file with its
// absolute, slash-normalized path.
func (f *FS) Notes(dir string) ([]models.NoteFile, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []models.NoteFile
	err = f.walkNotes(base, func(p string, _ fs.DirEntry) error {
		out = append(out, models.NewNoteFile(p))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: notes: %w", err)
	}
	return out, nil
}

// Exists reports whether path is an existing regular file.
func (f *FS) Exists(path string) bool {
	abs, err := f.safePath(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && info.Mode().IsRegular()
}

// Read returns the raw bytes of a file under the root.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// MkdirAll creates dir (relative to root) and its parents. It is idempotent.
func (f *FS) MkdirAll(dir string) error {
	abs, err := f.safePath(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir %s: %w", dir, err)
	}
	return nil
}

// Create writes content to a new file: tmp file → fsync → hard link.
// The link fails if the target exists, so an existing file is never
// replaced and readers never observe a partially written note.
func (f *FS) Create(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".wikivault-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}

	err = os.Link(tmpName, abs)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrExist):
		return fmt.Errorf("storage: create %s: %w", path, os.ErrExist)
	default:
		// Hard links are unsupported on some file systems.
		return createExclusive(abs, path, content)
	}
}

func createExclusive(abs, path string, content []byte) error {
	out, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("storage: create %s: %w", path, os.ErrExist)
		}
		return fmt.Errorf("storage: create %s: %w", path, err)
	}
	if _, err := out.Write(content); err != nil {
		_ = out.Close()
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("storage: close %s: %w", path, err)
	}
	return nil
}
