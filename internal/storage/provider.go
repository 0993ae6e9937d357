// Package storage defines the workspace file-system abstraction.
package storage

import "github.com/starford/wikivault/internal/models"

// Provider is the interface for workspace file operations. Paths are
// relative to the provider's root.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// NoteExt returns the extension that marks a file as a note.
	NoteExt() string
	// List returns metadata for every note file under dir.
	List(dir string) ([]models.NoteMetadata, error)
	// Notes returns every note file under dir as resolver candidates.
	Notes(dir string) ([]models.NoteFile, error)
	// Exists reports whether path names an existing regular file.
	Exists(path string) bool
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// MkdirAll creates dir and any missing parents.
	MkdirAll(dir string) error
	// Create writes content to a new file at path. It never replaces an
	// existing file; in that case the error wraps os.ErrExist.
	Create(path string, content []byte) error
}
