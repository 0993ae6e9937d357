package noteservice

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/starford/wikivault/internal/apperr"
	"github.com/starford/wikivault/internal/parser"
	"github.com/starford/wikivault/internal/resolver"
)

const defaultCompleteLimit = 20

// LinkTarget is the outcome of resolving one link.
type LinkTarget struct {
	Link   string `json:"link"`
	Target string `json:"target"`
	Path   string `json:"path,omitempty"`
	Name   string `json:"name,omitempty"`
	Scope  string `json:"scope"`
	Found  bool   `json:"found"`
}

// LinkCheck reports whether one wikilink occurrence resolves.
type LinkCheck struct {
	parser.Link
	Path  string `json:"path,omitempty"`
	Found bool   `json:"found"`
}

// NoteLinks is the link report for a single note.
type NoteLinks struct {
	Path   string      `json:"path"`
	Title  string      `json:"title,omitempty"`
	Scope  string      `json:"scope"`
	Links  []LinkCheck `json:"links"`
	Broken int         `json:"broken"`
}

// Completion is a link-completion candidate.
type Completion struct {
	Name string `json:"name"` // note name without extension
	Path string `json:"path"`
}

// ResolveLink resolves link as written in the note at from. A link that
// is empty after removing its alias, or that names no note, returns
// apperr.ErrNotFound along with the partially filled target. A from
// outside the workspace is apperr.ErrInvalidInput.
func (s *Service) ResolveLink(ctx context.Context, from, link string) (LinkTarget, error) {
	sc, err := s.scopeFor(from)
	if err != nil {
		return LinkTarget{Link: link}, err
	}
	out := LinkTarget{Link: link, Target: resolver.CleanLink(link), Scope: sc.root}
	if out.Target == "" {
		return out, fmt.Errorf("noteservice: resolve %q: %w", link, apperr.ErrNotFound)
	}
	f, ok := s.resolver.Resolve(ctx, sc, link)
	if !ok {
		return out, fmt.Errorf("noteservice: resolve %q: %w", link, apperr.ErrNotFound)
	}
	out.Path, out.Name, out.Found = f.Path, f.Name, true
	return out, nil
}

// CheckLinks parses the note at p (workspace-relative or absolute inside
// the workspace) and resolves every wikilink in it. Embeds of non-note
// files are left out of the report.
func (s *Service) CheckLinks(ctx context.Context, p string) (NoteLinks, error) {
	rel, err := s.relPath(p)
	if err != nil {
		return NoteLinks{}, err
	}
	data, err := s.store.Read(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NoteLinks{}, fmt.Errorf("noteservice: check %s: %w", rel, apperr.ErrNotFound)
		}
		return NoteLinks{}, fmt.Errorf("noteservice: check %s: %w", rel, err)
	}
	res, err := parser.Parse(data)
	if err != nil {
		return NoteLinks{}, fmt.Errorf("noteservice: parse %s: %w", rel, err)
	}

	sc, err := s.scopeFor(rel)
	if err != nil {
		return NoteLinks{}, err
	}
	out := NoteLinks{Path: rel, Title: res.Title, Scope: sc.root, Links: []LinkCheck{}}
	ext := s.resolver.Ext()
	for _, l := range res.Links {
		if l.Embed && isAttachment(l.Target, ext) {
			continue
		}
		check := LinkCheck{Link: l}
		if f, ok := s.resolver.Resolve(ctx, sc, l.Target); ok {
			check.Path, check.Found = f.Path, true
		} else {
			out.Broken++
		}
		out.Links = append(out.Links, check)
	}
	return out, nil
}

// Complete lists note names in the scope of from that start with prefix,
// ignoring case. Shorter paths come first and each name appears once.
func (s *Service) Complete(ctx context.Context, from, prefix string, limit int) ([]Completion, error) {
	if limit <= 0 {
		limit = defaultCompleteLimit
	}
	sc, err := s.scopeFor(from)
	if err != nil {
		return nil, err
	}
	files, err := sc.Notes(ctx)
	if err != nil {
		return nil, fmt.Errorf("noteservice: complete: %w", err)
	}

	ext := s.resolver.Ext()
	want := strings.ToLower(resolver.CleanLink(prefix))
	matches := make([]Completion, 0, limit)
	for _, f := range files {
		stem := strings.TrimSuffix(f.Name, ext)
		if strings.HasPrefix(strings.ToLower(stem), want) {
			matches = append(matches, Completion{Name: stem, Path: f.Path})
		}
	}
	slices.SortStableFunc(matches, func(a, b Completion) int {
		return cmp.Or(cmp.Compare(len(a.Path), len(b.Path)), cmp.Compare(a.Path, b.Path))
	})

	seen := make(map[string]struct{}, len(matches))
	out := matches[:0]
	for _, m := range matches {
		if _, dup := seen[m.Name]; dup {
			continue
		}
		seen[m.Name] = struct{}{}
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// DetectRoot returns the vault root the detector picks for p.
func (s *Service) DetectRoot(p string) (string, error) {
	root, ok := s.detector.DetectRoot(s.absPath(p))
	if !ok {
		return "", fmt.Errorf("noteservice: detect root %s: %w", p, apperr.ErrNotFound)
	}
	return root, nil
}

// relPath converts p to a slash path relative to the workspace root.
func (s *Service) relPath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("noteservice: path is required: %w", apperr.ErrInvalidInput)
	}
	abs := s.absPath(p)
	if !s.inWorkspace(abs) {
		return "", fmt.Errorf("noteservice: %s is outside the workspace: %w", p, apperr.ErrInvalidInput)
	}
	rel, err := filepath.Rel(s.store.Root(), abs)
	if err != nil {
		return "", fmt.Errorf("noteservice: %s: %w", p, apperr.ErrInvalidInput)
	}
	return filepath.ToSlash(rel), nil
}

func isAttachment(target, ext string) bool {
	e := path.Ext(target)
	return e != "" && e != ext
}
