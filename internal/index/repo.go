package index

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/starford/wikivault/internal/models"
)

// NoteRow represents a row in the notes table. Path is absolute and
// slash-normalized.
type NoteRow struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Changed reports whether the file behind r differs from m.
func (r NoteRow) Changed(size int64, modTime time.Time) bool {
	return r.Size != size || !r.ModTime.Equal(modTime)
}

// Upsert inserts or replaces a note row.
func (db *DB) Upsert(n NoteRow) error {
	p := path.Clean(n.Path)
	_, err := db.conn.Exec(`
		INSERT INTO notes (path, dir, name, size, mod_time)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			size     = excluded.size,
			mod_time = excluded.mod_time
	`, p, path.Dir(p), path.Base(p), n.Size, n.ModTime.UnixNano())
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}
	return nil
}

// Delete removes a note row. Deleting an unknown path is not an error.
func (db *DB) Delete(p string) error {
	if _, err := db.conn.Exec(`DELETE FROM notes WHERE path = ?`, path.Clean(p)); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	return nil
}

// DeleteUnder removes every row below dir and returns the removed paths.
func (db *DB) DeleteUnder(dir string) ([]string, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	prefix := dirPrefix(dir)
	rows, err := tx.Query(`SELECT path FROM notes WHERE substr(path, 1, length(?)) = ?`, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("index: delete under: %w", err)
	}
	var removed []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return nil, err
		}
		removed = append(removed, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(`DELETE FROM notes WHERE substr(path, 1, length(?)) = ?`, prefix, prefix); err != nil {
		return nil, fmt.Errorf("index: delete under: %w", err)
	}
	return removed, tx.Commit()
}

// FindByName returns indexed notes named exactly name. A non-empty root
// restricts results to paths below it. Results are ordered by path.
func (db *DB) FindByName(name, root string) ([]models.NoteFile, error) {
	query := `SELECT path FROM notes WHERE name = ?`
	args := []any{name}
	if root != "" {
		prefix := dirPrefix(root)
		query += ` AND substr(path, 1, length(?)) = ?`
		args = append(args, prefix, prefix)
	}
	query += ` ORDER BY path`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: find by name: %w", err)
	}
	defer rows.Close()

	var out []models.NoteFile
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, models.NoteFile{Path: p, Name: path.Base(p)})
	}
	return out, rows.Err()
}

// AllMeta returns every indexed row keyed by path.
func (db *DB) AllMeta() (map[string]NoteRow, error) {
	rows, err := db.conn.Query(`SELECT path, size, mod_time FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all meta: %w", err)
	}
	defer rows.Close()

	out := make(map[string]NoteRow)
	for rows.Next() {
		var (
			r  NoteRow
			ns int64
		)
		if err := rows.Scan(&r.Path, &r.Size, &ns); err != nil {
			return nil, err
		}
		r.ModTime = time.Unix(0, ns)
		out[r.Path] = r
	}
	return out, rows.Err()
}

// Count returns the number of indexed notes.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

// dirPrefix returns dir with exactly one trailing slash. Prefix tests use
// substr rather than LIKE so they stay case-sensitive.
func dirPrefix(dir string) string {
	return strings.TrimSuffix(path.Clean(dir), "/") + "/"
}
