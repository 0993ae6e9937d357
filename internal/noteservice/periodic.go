package noteservice

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/starford/wikivault/internal/apperr"
	"github.com/starford/wikivault/internal/index"
	"github.com/starford/wikivault/internal/models"
	"github.com/starford/wikivault/internal/periodic"
)

// PeriodicNote describes the note for one vault, period, and date.
type PeriodicNote struct {
	Vault    string          `json:"vault"`
	Period   periodic.Period `json:"period"`
	Date     string          `json:"date"`
	Filename string          `json:"filename"`
	Path     string          `json:"path,omitempty"`
	Exists   bool            `json:"exists"`
	Created  bool            `json:"created"`
}

// PeriodicNote finds the note for date in the named vault, creating it from
// the configured template when create is set. A zero date means today. With
// an empty vault name the vault is the one containing from, or the only
// discovered vault when from is empty too.
func (s *Service) PeriodicNote(ctx context.Context, vaultName, from string, p periodic.Period, date time.Time, create bool) (PeriodicNote, error) {
	v, err := s.lookupVault(ctx, vaultName, from)
	if err != nil {
		return PeriodicNote{}, err
	}
	if !v.Periodic.Enabled(p) {
		return PeriodicNote{}, fmt.Errorf("noteservice: %s notes in %s: %w", p, v.Name, apperr.ErrPeriodDisabled)
	}
	if date.IsZero() {
		date = s.now()
	}

	settings := v.Periodic.Settings(p)
	out := PeriodicNote{
		Vault:    v.Name,
		Period:   p,
		Date:     date.Format(time.DateOnly),
		Filename: periodic.Filename(date, p, settings),
	}

	if found, ok := s.notes.Find(v.Root, settings.Folder, out.Filename); ok {
		out.Path, out.Exists = found, true
		return out, nil
	}
	if !create {
		return out, nil
	}

	created, err := s.notes.Create(v.Root, settings.Folder, out.Filename, settings.Template)
	if err != nil {
		return PeriodicNote{}, fmt.Errorf("noteservice: create %s note: %w", p, err)
	}
	out.Path, out.Exists, out.Created = created, true, true
	s.logger.Info("periodic: note created",
		slog.String("vault", v.Name), slog.String("period", p.String()), slog.String("path", created))

	s.indexCreated(created)
	s.invalidateCaches()
	s.emit(EventPeriodicCreated, filepath.ToSlash(created))
	return out, nil
}

// FormatDate renders date with the period's token format. An empty format
// uses the period default.
func (s *Service) FormatDate(p periodic.Period, date time.Time, format string) string {
	if date.IsZero() {
		date = s.now()
	}
	return periodic.Format(date, p, format)
}

func (s *Service) lookupVault(ctx context.Context, name, from string) (models.VaultInfo, error) {
	if name == "" && from != "" {
		rel, err := s.relPath(from)
		if err != nil {
			return models.VaultInfo{}, err
		}
		v, ok, err := s.registry.ForPath(ctx, s.absPath(rel))
		if err != nil {
			return models.VaultInfo{}, fmt.Errorf("noteservice: %w", err)
		}
		if !ok {
			return models.VaultInfo{}, fmt.Errorf("noteservice: no vault contains %s: %w", rel, apperr.ErrNoVault)
		}
		return v, nil
	}
	if name == "" {
		vaults, err := s.registry.Vaults(ctx)
		if err != nil {
			return models.VaultInfo{}, fmt.Errorf("noteservice: %w", err)
		}
		if len(vaults) != 1 {
			return models.VaultInfo{}, fmt.Errorf("noteservice: vault name required with %d vaults: %w", len(vaults), apperr.ErrNoVault)
		}
		return vaults[0], nil
	}
	v, ok, err := s.registry.Lookup(ctx, name)
	if err != nil {
		return models.VaultInfo{}, fmt.Errorf("noteservice: %w", err)
	}
	if !ok {
		return models.VaultInfo{}, fmt.Errorf("noteservice: vault %q: %w", name, apperr.ErrNoVault)
	}
	return v, nil
}

// indexCreated records a freshly created note so lookups see it before the
// watcher does.
func (s *Service) indexCreated(p string) {
	if s.db == nil {
		return
	}
	if _, err := s.relPath(p); err != nil {
		return
	}
	info, err := os.Stat(p)
	if err != nil {
		return
	}
	if err := s.db.Upsert(index.NoteRow{Path: filepath.ToSlash(p), Size: info.Size(), ModTime: info.ModTime()}); err != nil {
		s.logger.Warn("periodic: index failed", slog.String("path", p), slog.String("error", err.Error()))
	}
}
