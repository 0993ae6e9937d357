package noteservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/wikivault/internal/index"
	"github.com/starford/wikivault/internal/models"
)

// Vaults returns the discovered vaults, scanning on first use.
func (s *Service) Vaults(ctx context.Context) ([]models.VaultInfo, error) {
	v, err := s.registry.Vaults(ctx)
	if err != nil {
		return nil, fmt.Errorf("noteservice: vaults: %w", err)
	}
	return v, nil
}

// ReloadVaults rescans the workspace for vaults.
func (s *Service) ReloadVaults(ctx context.Context) ([]models.VaultInfo, error) {
	v, err := s.registry.Reload(ctx)
	if err != nil {
		return nil, fmt.Errorf("noteservice: reload vaults: %w", err)
	}
	s.emit(EventVaultsReloaded, "")
	return v, nil
}

// DescribeVaults returns a human-readable dump of the loaded vaults.
func (s *Service) DescribeVaults() string {
	return s.registry.Describe()
}

// InvalidateCache drops every cached file listing.
func (s *Service) InvalidateCache() {
	s.invalidateCaches()
	s.logger.Debug("catalog: invalidated")
}

func (s *Service) invalidateCaches() {
	s.workspaceCache.Invalidate()
	s.rootedCache.Invalidate()
	s.emit(EventCacheInvalidated, "")
}

// HandleIndexEvent reacts to a watcher-reported change. Files appearing or
// disappearing change listings; edits do not.
func (s *Service) HandleIndexEvent(kind, path string) {
	switch kind {
	case index.EventCreated, index.EventDeleted:
		s.invalidateCaches()
		s.logger.Debug("catalog: invalidated by watcher", slog.String("op", kind), slog.String("path", path))
	}
}
