package vault

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/wikivault/internal/models"
	"github.com/starford/wikivault/internal/periodic"
)

// ScanOptions bounds a discovery scan.
type ScanOptions struct {
	MarkerDir string
	MaxDepth  int
}

// DefaultScanOptions returns the stock marker directory and depth.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{MarkerDir: DefaultMarkerDir, MaxDepth: DefaultScanDepth}
}

// ConfigPath returns where the periodic-notes config of the vault rooted
// at root lives.
func ConfigPath(root, markerDir string) string {
	return filepath.Join(root, markerDir, filepath.FromSlash(periodic.ConfigRelPath))
}

// Scan walks root down to opts.MaxDepth levels, root itself being level 1,
// and returns every directory
// whose periodic-notes config parses. Vaults without a readable config are
// left out, unreadable directories contribute nothing, and hidden
// directories below root are not entered. The only error is ctx's.
func Scan(ctx context.Context, root string, opts ScanOptions, logger *slog.Logger) ([]models.VaultInfo, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		logger.Warn("vault: resolve scan root", slog.String("root", root), slog.String("error", err.Error()))
		return nil, nil
	}
	s := &scanner{opts: opts, logger: logger}
	if err := s.visit(ctx, abs, 1); err != nil {
		return nil, err
	}
	return s.found, nil
}

type scanner struct {
	opts   ScanOptions
	logger *slog.Logger
	found  []models.VaultInfo
}

func (s *scanner) visit(ctx context.Context, dir string, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if info, ok := s.load(dir); ok {
		s.found = append(s.found, info)
	}
	if depth >= s.opts.MaxDepth {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Debug("vault: skip unreadable dir", slog.String("dir", dir), slog.String("error", err.Error()))
		return nil
	}
	for _, e := range entries {
		// DirEntry type bits come from lstat, so symlinked dirs are not followed.
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if err := s.visit(ctx, filepath.Join(dir, e.Name()), depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (s *scanner) load(dir string) (models.VaultInfo, bool) {
	path := ConfigPath(dir, s.opts.MarkerDir)
	if _, err := os.Stat(path); err != nil {
		return models.VaultInfo{}, false
	}
	cfg, err := periodic.LoadConfig(path)
	if err != nil {
		s.logger.Warn("vault: ignoring unreadable periodic config",
			slog.String("path", path), slog.String("error", err.Error()))
		return models.VaultInfo{}, false
	}
	return models.VaultInfo{Name: filepath.Base(dir), Root: dir, Periodic: cfg}, true
}
