package index

import "github.com/starford/wikivault/internal/models"

// NameIndex defines the interface for note name indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type NameIndex interface {
	Upsert(n NoteRow) error
	Delete(path string) error
	DeleteUnder(dir string) ([]string, error)
	FindByName(name, root string) ([]models.NoteFile, error)
	AllMeta() (map[string]NoteRow, error)
	Count() (int, error)
	Close() error
}

// Verify *DB satisfies NameIndex at compile time.
var _ NameIndex = (*DB)(nil)
