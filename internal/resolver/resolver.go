// Package resolver picks the note file a [[wikilink]] points at.
//
// Resolution matches on the target filename first, then ranks same-name
// candidates: a candidate whose full path ends with the link's folder
// structure beats one that does not, and among equals the shorter full
// path wins. The sort is stable, so ties keep the scope's ordering.
package resolver

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/starford/wikivault/internal/models"
)

// DefaultExt is appended to link targets that lack it.
const DefaultExt = ".md"

// Scope is a set of candidate note files.
type Scope interface {
	// Notes lists every candidate file in the scope.
	Notes(ctx context.Context) ([]models.NoteFile, error)
	// FindByName returns candidates whose name equals name. It is
	// best-effort: an index may miss files that Notes returns.
	FindByName(ctx context.Context, name string) ([]models.NoteFile, error)
}

// Resolver resolves link text against a Scope.
type Resolver struct {
	logger *slog.Logger
	ext    string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithExt overrides the note extension appended to link targets.
func WithExt(ext string) Option {
	return func(r *Resolver) {
		if ext != "" {
			r.ext = ext
		}
	}
}

// New creates a Resolver. A nil logger discards scope errors.
func New(logger *slog.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Resolver{logger: logger, ext: DefaultExt}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ext returns the note extension the resolver appends.
func (r *Resolver) Ext() string {
	return r.ext
}

// CleanLink drops the display alias (everything from the first '|') and
// trims surrounding whitespace.
func CleanLink(link string) string {
	target, _, _ := strings.Cut(link, "|")
	return strings.TrimSpace(target)
}

// TargetFilename returns the final segment of a cleaned link with ext
// appended unless it is already there.
func TargetFilename(cleaned, ext string) string {
	name := cleaned
	if i := strings.LastIndexByte(cleaned, '/'); i >= 0 {
		name = cleaned[i+1:]
	}
	return withExt(name, ext)
}

// MatchesPath reports whether fullPath ends with the folder structure of
// cleaned. Both sides are slash-normalized and the link gets ext appended.
// A link that already ends with a doubled extension never matches.
func MatchesPath(fullPath, cleaned, ext string) bool {
	link := toSlash(cleaned)
	if strings.HasSuffix(link, ext+ext) {
		return false
	}
	return strings.HasSuffix(toSlash(fullPath), withExt(link, ext))
}

// Rank orders candidates for cleaned: structural matches first, then by
// ascending full-path length. The input slice is not modified.
func Rank(cleaned string, candidates []models.NoteFile, ext string) []models.NoteFile {
	type keyed struct {
		file  models.NoteFile
		miss  bool
		depth int
	}
	ks := make([]keyed, len(candidates))
	for i, c := range candidates {
		ks[i] = keyed{file: c, miss: !MatchesPath(c.Path, cleaned, ext), depth: len(c.Path)}
	}
	slices.SortStableFunc(ks, func(a, b keyed) int {
		if a.miss != b.miss {
			if a.miss {
				return 1
			}
			return -1
		}
		return cmp.Compare(a.depth, b.depth)
	})
	out := make([]models.NoteFile, len(ks))
	for i, k := range ks {
		out[i] = k.file
	}
	return out
}

// Resolve returns the best match for link in scope. The second result is
// false when the link is empty after cleaning or no file has the target
// name. Scope errors are logged and treated as an empty contribution.
func (r *Resolver) Resolve(ctx context.Context, scope Scope, link string) (models.NoteFile, bool) {
	cleaned := CleanLink(link)
	if cleaned == "" {
		return models.NoteFile{}, false
	}
	name := TargetFilename(cleaned, r.ext)

	candidates := r.lookup(ctx, scope, name)
	if len(candidates) == 0 {
		return models.NoteFile{}, false
	}
	return Rank(cleaned, candidates, r.ext)[0], true
}

// lookup tries the exact-name index first and falls back to a linear scan
// of the scope. Name indexes may drop files whose names start with symbols
// or contain non-ASCII characters, so the fallback must stay.
func (r *Resolver) lookup(ctx context.Context, scope Scope, name string) []models.NoteFile {
	indexed, err := scope.FindByName(ctx, name)
	if err != nil {
		r.logger.Warn("resolver: name lookup failed",
			slog.String("name", name), slog.String("error", err.Error()))
	}
	if hits := filterByName(indexed, name); len(hits) > 0 {
		return hits
	}

	all, err := scope.Notes(ctx)
	if err != nil {
		r.logger.Warn("resolver: list notes failed",
			slog.String("name", name), slog.String("error", err.Error()))
		return nil
	}
	return filterByName(all, name)
}

func filterByName(files []models.NoteFile, name string) []models.NoteFile {
	var out []models.NoteFile
	for _, f := range files {
		if f.Name == name {
			out = append(out, f)
		}
	}
	return out
}

func withExt(s, ext string) string {
	if strings.HasSuffix(s, ext) {
		return s
	}
	return s + ext
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
