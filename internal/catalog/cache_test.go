package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/wikivault/internal/models"
)

func countingLoader(calls *atomic.Int32, files ...string) Loader {
	return func(context.Context) ([]models.NoteFile, error) {
		calls.Add(1)
		out := make([]models.NoteFile, 0, len(files))
		for _, f := range files {
			out = append(out, models.NewNoteFile(f))
		}
		return out, nil
	}
}

func TestGetOrLoad_CachesPerKey(t *testing.T) {
	c := New("test")
	var calls atomic.Int32
	load := countingLoader(&calls, "/v/a.md")

	for range 3 {
		files, err := c.GetOrLoad(context.Background(), "/v", load)
		if err != nil {
			t.Fatalf("GetOrLoad: %v", err)
		}
		if len(files) != 1 || files[0].Name != "a.md" {
			t.Fatalf("files = %+v", files)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("loader called %d times, want 1", n)
	}
}

// cachedKey reports the key of the live snapshot.
func cachedKey(c *Cache) (string, bool) {
	s := c.snap.Load()
	if s == nil || s.gen != c.gen.Load() {
		return "", false
	}
	return s.key, true
}

func TestGetOrLoad_KeyChangeReloads(t *testing.T) {
	c := New("test")
	var calls atomic.Int32

	a, _ := c.GetOrLoad(context.Background(), "/a", countingLoader(&calls, "/a/x.md"))
	b, _ := c.GetOrLoad(context.Background(), "/b", countingLoader(&calls, "/b/y.md", "/b/z.md"))

	if len(a) != 1 || len(b) != 2 {
		t.Errorf("a=%v b=%v", a, b)
	}
	if calls.Load() != 2 {
		t.Errorf("loader called %d times, want 2", calls.Load())
	}
	if key, ok := cachedKey(c); !ok || key != "/b" {
		t.Errorf("Key = %q, %v", key, ok)
	}
}

func TestInvalidate(t *testing.T) {
	c := New("test")
	var calls atomic.Int32
	load := countingLoader(&calls, "/v/a.md")

	_, _ = c.GetOrLoad(context.Background(), "/v", load)
	c.Invalidate()
	if _, ok := cachedKey(c); ok {
		t.Error("Key should be empty after Invalidate")
	}
	_, _ = c.GetOrLoad(context.Background(), "/v", load)
	if calls.Load() != 2 {
		t.Errorf("loader called %d times, want 2", calls.Load())
	}
}

func TestGetOrLoad_ErrorNotCached(t *testing.T) {
	c := New("test")
	boom := errors.New("boom")
	_, err := c.GetOrLoad(context.Background(), "/v", func(context.Context) ([]models.NoteFile, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
	if _, ok := cachedKey(c); ok {
		t.Error("failed load must not populate the cache")
	}
}

func TestGetOrLoad_ConcurrentSameKey(t *testing.T) {
	c := New("test")
	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) ([]models.NoteFile, error) {
		calls.Add(1)
		<-release
		return []models.NoteFile{models.NewNoteFile("/v/a.md")}, nil
	}

	var wg sync.WaitGroup
	results := make([][]models.NoteFile, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = c.GetOrLoad(context.Background(), "/v", load)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n < 1 || n > 2 {
		t.Errorf("loader called %d times, want collapsed loads", n)
	}
	for i, r := range results {
		if len(r) != 1 {
			t.Errorf("reader %d saw %d files, want complete snapshot", i, len(r))
		}
	}
}

func TestInvalidate_DuringLoadDiscardsResult(t *testing.T) {
	c := New("test")
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, _ = c.GetOrLoad(context.Background(), "/v", func(context.Context) ([]models.NoteFile, error) {
			close(started)
			<-release
			return []models.NoteFile{models.NewNoteFile("/v/stale.md")}, nil
		})
	}()
	<-started
	c.Invalidate()
	close(release)
	<-done

	if _, ok := cachedKey(c); ok {
		t.Error("load that raced with Invalidate should not be kept")
	}
}
