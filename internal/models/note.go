// Package models defines the domain types shared by the wikivault packages.
package models

import (
	"path"
	"path/filepath"
	"time"
)

// NoteFile is a candidate file in the searchable corpus.
type NoteFile struct {
	// Path is the slash-normalized absolute path.
	Path string `json:"path"`
	// Name is the final path segment, extension included.
	Name string `json:"name"`
}

// NewNoteFile builds a NoteFile from an OS path.
func NewNoteFile(p string) NoteFile {
	slashed := filepath.ToSlash(p)
	return NoteFile{Path: slashed, Name: path.Base(slashed)}
}

// OSPath returns the path in the host's separator convention.
func (n NoteFile) OSPath() string {
	return filepath.FromSlash(n.Path)
}

// NoteMetadata is a lightweight listing entry used by index sync.
type NoteMetadata struct {
	Path    string    `json:"path"` // relative to the listed root
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}
