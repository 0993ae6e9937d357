// Package vault finds vault roots and the periodic-notes configuration
// that lives under them.
package vault

import (
	"os"
	"path/filepath"
	"strings"
)

// Heuristic defaults. They are tuning knobs, not correctness requirements.
const (
	DefaultMarkerDir        = ".obsidian"
	DefaultNoteExt          = ".md"
	DefaultMarkerDepth      = 10
	DefaultDensityDepth     = 5
	DefaultDensityThreshold = 5
	DefaultScanDepth        = 3
)

// Detector decides which directory scope a file belongs to. It reads the
// file system at call time and never writes to it.
type Detector struct {
	MarkerDir        string
	NoteExt          string
	MarkerDepth      int
	DensityDepth     int
	DensityThreshold int
}

// NewDetector returns a Detector with the default heuristics.
func NewDetector() *Detector {
	return &Detector{
		MarkerDir:        DefaultMarkerDir,
		NoteExt:          DefaultNoteExt,
		MarkerDepth:      DefaultMarkerDepth,
		DensityDepth:     DefaultDensityDepth,
		DensityThreshold: DefaultDensityThreshold,
	}
}

// DetectRoot returns the vault root for path, which may be a file or a
// directory:
//
//  1. the nearest ancestor (within MarkerDepth levels) holding MarkerDir;
//  2. otherwise the nearest ancestor (within DensityDepth levels) with at
//     least DensityThreshold note files directly inside it;
//  3. otherwise the starting directory itself.
//
// It returns false only when path cannot be stat'ed.
func (d *Detector) DetectRoot(path string) (string, bool) {
	start, ok := startDir(path)
	if !ok {
		return "", false
	}
	if root, ok := walkUp(start, d.MarkerDepth, d.hasMarker); ok {
		return root, true
	}
	if root, ok := walkUp(start, d.DensityDepth, d.isDense); ok {
		return root, true
	}
	return start, true
}

func startDir(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", false
	}
	if info.IsDir() {
		return abs, true
	}
	return filepath.Dir(abs), true
}

// walkUp tests dir and its ancestors, at most levels directories in total.
func walkUp(dir string, levels int, test func(string) bool) (string, bool) {
	for i := 0; i < levels; i++ {
		if test(dir) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}

func (d *Detector) hasMarker(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, d.MarkerDir))
	return err == nil && info.IsDir()
}

func (d *Detector) isDense(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	count := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), d.NoteExt) {
			continue
		}
		count++
		if count >= d.DensityThreshold {
			return true
		}
	}
	return false
}
