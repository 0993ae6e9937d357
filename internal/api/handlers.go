package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/wikivault/internal/apperr"
	"github.com/starford/wikivault/internal/noteservice"
	"github.com/starford/wikivault/internal/periodic"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// notePath extracts the note path from the URL (everything after /api/links/).
// Supports encoded slashes from OpenAPI clients (e.g. topics%2Fnote.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// writeError maps service errors to HTTP statuses.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(codeNotFound, "not found"))
	case errors.Is(err, apperr.ErrNoVault):
		writeJSON(w, http.StatusNotFound, errorBody(codeNoVault, "vault not found"))
	case errors.Is(err, apperr.ErrPeriodDisabled):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(codePeriodDisabled, "period not enabled for this vault"))
	case errors.Is(err, apperr.ErrInvalidInput):
		badRequest(w, err.Error())
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody(codeInternal, "internal error"))
	}
}

// Resolve handles GET /api/resolve.
//
//	@Summary		Resolve a wikilink to a note file
//	@Tags			links
//	@Produce		json
//	@Param			link	query		string	true	"Link text, alias allowed"
//	@Param			from	query		string	false	"Note the link is written in"
//	@Success		200		{object}	noteservice.LinkTarget
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resolve [get]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("link") {
		badRequest(w, "query parameter 'link' is required")
		return
	}
	target, err := h.svc.ResolveLink(r.Context(), q.Get("from"), q.Get("link"))
	if err != nil {
		writeError(w, "resolve", err)
		return
	}
	writeJSON(w, http.StatusOK, target)
}

// Complete handles GET /api/complete.
//
//	@Summary		Complete a partially typed link
//	@Tags			links
//	@Produce		json
//	@Param			prefix	query		string	false	"Typed prefix"
//	@Param			from	query		string	false	"Note the link is written in"
//	@Param			limit	query		int		false	"Max results"
//	@Security		BearerAuth
//	@Router			/complete [get]
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	items, err := h.svc.Complete(r.Context(), q.Get("from"), q.Get("prefix"), limit)
	if err != nil {
		writeError(w, "complete", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"completions": items,
	})
}

// CheckLinks handles GET /api/links/*.
//
//	@Summary		Report which wikilinks in a note resolve
//	@Tags			links
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	noteservice.NoteLinks
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links/{path} [get]
func (h *Handler) CheckLinks(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		badRequest(w, "path is required")
		return
	}
	report, err := h.svc.CheckLinks(r.Context(), path)
	if err != nil {
		writeError(w, "check links", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// DetectRoot handles GET /api/root.
func (h *Handler) DetectRoot(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		badRequest(w, "query parameter 'path' is required")
		return
	}
	root, err := h.svc.DetectRoot(path)
	if err != nil {
		writeError(w, "detect root", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": path, "root": root})
}

// ListVaults handles GET /api/vaults.
func (h *Handler) ListVaults(w http.ResponseWriter, r *http.Request) {
	vaults, err := h.svc.Vaults(r.Context())
	if err != nil {
		writeError(w, "list vaults", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vaults": vaults})
}

// ReloadVaults handles POST /api/vaults/reload.
func (h *Handler) ReloadVaults(w http.ResponseWriter, r *http.Request) {
	vaults, err := h.svc.ReloadVaults(r.Context())
	if err != nil {
		writeError(w, "reload vaults", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vaults": vaults})
}

// DescribeVaults handles GET /api/vaults/debug. The body is plain text.
func (h *Handler) DescribeVaults(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, h.svc.DescribeVaults())
}

// InvalidateCache handles POST /api/cache/invalidate.
func (h *Handler) InvalidateCache(w http.ResponseWriter, _ *http.Request) {
	h.svc.InvalidateCache()
	w.WriteHeader(http.StatusNoContent)
}

// FindPeriodic handles GET /api/periodic/{vault}/{period}.
//
//	@Summary		Look up the periodic note for a date
//	@Tags			periodic
//	@Produce		json
//	@Param			vault	path		string	true	"Vault name"
//	@Param			period	path		string	true	"Period"	Enums(daily, weekly, monthly, quarterly, yearly)
//	@Param			date	query		string	false	"Date (YYYY-MM-DD), default today"
//	@Param			from	query		string	false	"Note path selecting the vault on /periodic/{period}"
//	@Success		200		{object}	noteservice.PeriodicNote
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/periodic/{vault}/{period} [get]
//	@Router			/periodic/{period} [get]
func (h *Handler) FindPeriodic(w http.ResponseWriter, r *http.Request) {
	h.periodic(w, r, false)
}

// CreatePeriodic handles POST /api/periodic/{vault}/{period}.
// Responds 201 when the note was created, 200 when it already existed.
func (h *Handler) CreatePeriodic(w http.ResponseWriter, r *http.Request) {
	h.periodic(w, r, true)
}

func (h *Handler) periodic(w http.ResponseWriter, r *http.Request, create bool) {
	p, err := periodic.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	date, ok := parseDate(w, r)
	if !ok {
		return
	}
	note, err := h.svc.PeriodicNote(r.Context(), chi.URLParam(r, "vault"), r.URL.Query().Get("from"), p, date, create)
	if err != nil {
		writeError(w, "periodic note", err)
		return
	}
	status := http.StatusOK
	if note.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, note)
}

// Format handles GET /api/format/{period}.
func (h *Handler) Format(w http.ResponseWriter, r *http.Request) {
	p, err := periodic.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	date, ok := parseDate(w, r)
	if !ok {
		return
	}
	format := r.URL.Query().Get("format")
	writeJSON(w, http.StatusOK, map[string]string{
		"period": p.String(),
		"format": format,
		"value":  h.svc.FormatDate(p, date, format),
	})
}

// parseDate reads the optional date query parameter. A zero time means
// "today" to the service.
func parseDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return time.Time{}, true
	}
	date, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
	if err != nil {
		badRequest(w, "date must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}
