// Package noteservice ties vault detection, link resolution, and periodic
// notes together behind the operations the HTTP, MCP, and CLI surfaces
// expose.
package noteservice

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/wikivault/internal/catalog"
	"github.com/starford/wikivault/internal/index"
	"github.com/starford/wikivault/internal/models"
	"github.com/starford/wikivault/internal/notestore"
	"github.com/starford/wikivault/internal/resolver"
	"github.com/starford/wikivault/internal/storage"
	"github.com/starford/wikivault/internal/vault"
)

// Event kinds reported through the event hook.
const (
	EventPeriodicCreated  = "periodic.created"
	EventVaultsReloaded   = "vaults.reloaded"
	EventCacheInvalidated = "cache.invalidated"
)

// EventFunc receives service-level events. path may be empty.
type EventFunc func(kind, path string)

// Service coordinates the workspace, the vault registry, and the name index.
type Service struct {
	store    storage.Provider
	registry *vault.Registry
	detector *vault.Detector
	resolver *resolver.Resolver
	notes    *notestore.Store
	db       index.NameIndex

	workspaceCache *catalog.Cache
	rootedCache    *catalog.Cache

	vaultScoped bool
	onEvent     EventFunc
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithIndex enables exact-name lookups through db.
func WithIndex(db index.NameIndex) Option {
	return func(s *Service) { s.db = db }
}

// WithDetector overrides the vault root detector.
func WithDetector(d *vault.Detector) Option {
	return func(s *Service) {
		if d != nil {
			s.detector = d
		}
	}
}

// WithVaultScoped resolves links inside the detected vault root of the
// source note instead of the whole workspace.
func WithVaultScoped(on bool) Option {
	return func(s *Service) { s.vaultScoped = on }
}

// WithEventHook registers fn for service events.
func WithEventHook(fn EventFunc) Option {
	return func(s *Service) { s.onEvent = fn }
}

// WithClock overrides the source of "today" for periodic notes.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Service over the workspace store and vault registry.
func New(store storage.Provider, registry *vault.Registry, opts ...Option) *Service {
	s := &Service{
		store:          store,
		registry:       registry,
		detector:       vault.NewDetector(),
		workspaceCache: catalog.New("workspace"),
		rootedCache:    catalog.New("rooted"),
		now:            time.Now,
		logger:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resolver = resolver.New(s.logger, resolver.WithExt(store.NoteExt()))
	s.notes = notestore.New(store.NoteExt(), s.logger)
	return s
}

// Root returns the workspace root.
func (s *Service) Root() string {
	return s.store.Root()
}

func (s *Service) emit(kind, path string) {
	if s.onEvent != nil {
		s.onEvent(kind, path)
	}
}

// scope is a resolver.Scope over one directory tree.
type scope struct {
	svc   *Service
	root  string // absolute, OS separators
	whole bool   // the whole workspace
	cache *catalog.Cache
}

var _ resolver.Scope = scope{}

func (sc scope) Notes(ctx context.Context) ([]models.NoteFile, error) {
	return sc.cache.GetOrLoad(ctx, sc.root, func(context.Context) ([]models.NoteFile, error) {
		if sc.whole {
			return sc.svc.store.Notes("")
		}
		fsys, err := storage.NewFS(sc.root, storage.WithNoteExt(sc.svc.store.NoteExt()))
		if err != nil {
			return nil, err
		}
		return fsys.Notes("")
	})
}

func (sc scope) FindByName(_ context.Context, name string) ([]models.NoteFile, error) {
	if sc.svc.db == nil {
		return nil, nil
	}
	root := ""
	if !sc.whole {
		root = filepath.ToSlash(sc.root)
	}
	return sc.svc.db.FindByName(name, root)
}

func (s *Service) workspaceScope() scope {
	return scope{svc: s, root: s.store.Root(), whole: true, cache: s.workspaceCache}
}

// scopeFor picks the scope for links written in the note at from. An
// empty from, or vault scoping turned off, means the whole workspace. A
// from outside the workspace is rejected, and a detected root that is not
// inside the workspace falls back to the workspace scope.
func (s *Service) scopeFor(from string) (scope, error) {
	if from == "" {
		return s.workspaceScope(), nil
	}
	rel, err := s.relPath(from)
	if err != nil {
		return scope{}, err
	}
	if !s.vaultScoped {
		return s.workspaceScope(), nil
	}
	root, ok := s.detector.DetectRoot(s.absPath(rel))
	if !ok || !s.inWorkspace(root) || root == s.store.Root() {
		return s.workspaceScope(), nil
	}
	return scope{svc: s, root: root, cache: s.rootedCache}, nil
}

// inWorkspace reports whether abs is the workspace root or below it.
func (s *Service) inWorkspace(abs string) bool {
	rel, err := filepath.Rel(s.store.Root(), abs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// absPath anchors relative paths at the workspace root.
func (s *Service) absPath(p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(s.store.Root(), p)
}
