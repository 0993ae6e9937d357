package vault

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/starford/wikivault/internal/models"
	"github.com/starford/wikivault/internal/periodic"
)

// Registry holds the result of the last vault scan until Reload is called.
// Readers never block on a reload in progress; they see the previous list.
type Registry struct {
	root   string
	opts   ScanOptions
	logger *slog.Logger

	vaults atomic.Pointer[[]models.VaultInfo]
	loadMu sync.Mutex
}

// NewRegistry creates a registry that scans root on first use.
func NewRegistry(root string, opts ScanOptions, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{root: root, opts: opts, logger: logger}
}

// Reload rescans the workspace and replaces the vault list wholesale.
func (r *Registry) Reload(ctx context.Context) ([]models.VaultInfo, error) {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	return r.reloadLocked(ctx)
}

func (r *Registry) reloadLocked(ctx context.Context) ([]models.VaultInfo, error) {
	found, err := Scan(ctx, r.root, r.opts, r.logger)
	if err != nil {
		return nil, fmt.Errorf("vault: scan: %w", err)
	}
	if found == nil {
		found = []models.VaultInfo{}
	}
	r.vaults.Store(&found)
	r.logger.Info("vault: scan complete", slog.String("root", r.root), slog.Int("vaults", len(found)))
	return found, nil
}

// Vaults returns the discovered vaults, scanning once if nothing is loaded.
func (r *Registry) Vaults(ctx context.Context) ([]models.VaultInfo, error) {
	if v := r.vaults.Load(); v != nil {
		return *v, nil
	}
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	if v := r.vaults.Load(); v != nil {
		return *v, nil
	}
	return r.reloadLocked(ctx)
}

// Lookup finds a vault by name, or by root path when name is absolute.
func (r *Registry) Lookup(ctx context.Context, name string) (models.VaultInfo, bool, error) {
	vaults, err := r.Vaults(ctx)
	if err != nil {
		return models.VaultInfo{}, false, err
	}
	for _, v := range vaults {
		if v.Name == name || (filepath.IsAbs(name) && filepath.Clean(name) == v.Root) {
			return v, true, nil
		}
	}
	return models.VaultInfo{}, false, nil
}

// ForPath returns the vault with the deepest root containing path.
func (r *Registry) ForPath(ctx context.Context, path string) (models.VaultInfo, bool, error) {
	vaults, err := r.Vaults(ctx)
	if err != nil {
		return models.VaultInfo{}, false, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return models.VaultInfo{}, false, nil
	}
	var best models.VaultInfo
	found := false
	for _, v := range vaults {
		if !within(abs, v.Root) {
			continue
		}
		if !found || len(v.Root) > len(best.Root) {
			best, found = v, true
		}
	}
	return best, found, nil
}

// Describe renders the loaded vaults for debugging. The layout is for
// people, not parsers.
func (r *Registry) Describe() string {
	var b strings.Builder
	v := r.vaults.Load()
	if v == nil {
		fmt.Fprintf(&b, "Vaults under %s: not scanned\n", r.root)
		return b.String()
	}
	fmt.Fprintf(&b, "Vaults under %s: %d\n", r.root, len(*v))
	for _, info := range *v {
		fmt.Fprintf(&b, "- %s (%s)\n", info.Name, info.Root)
		for _, p := range periodic.All() {
			s := info.Periodic.Settings(p)
			if s == nil {
				fmt.Fprintf(&b, "    %-14s not configured\n", p.Label())
				continue
			}
			state := "disabled"
			if s.Enabled {
				state = "enabled"
			}
			fmt.Fprintf(&b, "    %-14s %-8s folder=%q template=%q format=%q\n",
				p.Label(), state, s.Folder, s.Template, s.EffectiveFormat(p))
		}
	}
	return b.String()
}

func within(path, root string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
