// Package catalog caches candidate-file listings per scope.
//
// A Cache holds one snapshot of {key, files}. Readers see either the old
// or the new snapshot in full, never a partially built list. Asking for a
// different key replaces the snapshot; Invalidate drops it.
package catalog

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/starford/wikivault/internal/models"
)

// Loader builds the listing for a scope key.
type Loader func(ctx context.Context) ([]models.NoteFile, error)

type snapshot struct {
	key   string
	gen   uint64
	files []models.NoteFile
}

// Cache is safe for concurrent use.
type Cache struct {
	name  string
	snap  atomic.Pointer[snapshot]
	gen   atomic.Uint64
	group singleflight.Group
}

// New creates an empty Cache. name only appears in error messages.
func New(name string) *Cache {
	return &Cache{name: name}
}

// GetOrLoad returns the cached files for key, calling loader when the
// snapshot is missing or belongs to another key. Concurrent loads of the
// same key share one loader call. The returned slice must not be modified.
func (c *Cache) GetOrLoad(ctx context.Context, key string, loader Loader) ([]models.NoteFile, error) {
	if s := c.snap.Load(); s != nil && s.key == key && s.gen == c.gen.Load() {
		return s.files, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		gen := c.gen.Load()
		files, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		// A load that raced with Invalidate is returned but not kept.
		if c.gen.Load() == gen {
			c.snap.Store(&snapshot{key: key, gen: gen, files: files})
		}
		return files, nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: load %q: %w", c.name, key, err)
	}
	return v.([]models.NoteFile), nil
}

// Invalidate discards the snapshot. The next GetOrLoad reloads.
func (c *Cache) Invalidate() {
	c.gen.Add(1)
	c.snap.Store(nil)
}
