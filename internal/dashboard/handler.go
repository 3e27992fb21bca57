// Package dashboard serves the operator pages: counters, the paginated lists of
// every backend collection with their row actions, and the fiscalizador lookup.
package dashboard

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/caza2026/panel/internal/api"
	"github.com/caza2026/panel/internal/listview"
	"github.com/caza2026/panel/internal/records"
	"github.com/caza2026/panel/internal/shared"
	"github.com/caza2026/panel/internal/view"
	"github.com/caza2026/panel/internal/workspace"
)

// Backend is the part of the REST client used outside of list controllers.
type Backend interface {
	LinkData(ctx context.Context) (api.Ack, error)
	LookupInscripcion(ctx context.Context, cuit string) (api.LookupResult, error)
	LookupPermiso(ctx context.Context, id, dni string) (api.LookupResult, error)
}

// StatsInvalidator drops cached counters.
type StatsInvalidator interface {
	Invalidate(ctx context.Context) error
}

// WarmupQueue schedules a background counter refresh.
type WarmupQueue interface {
	EnqueueStatsWarmup(ctx context.Context, reason string) error
}

// Gauge receives the number of open workspaces.
type Gauge interface {
	SetWorkspaces(n int)
}

// Config wires a Handler.
type Config struct {
	Logger     *slog.Logger
	Templates  *view.Engine
	CSRF       *shared.CSRFManager
	Workspaces *workspace.Registry
	Backend    Backend
	Stats      StatsInvalidator
	Warmup     WarmupQueue
	Gauge      Gauge
}

// Handler serves the authenticated dashboard.
type Handler struct {
	logger     *slog.Logger
	templates  *view.Engine
	csrf       *shared.CSRFManager
	workspaces *workspace.Registry
	backend    Backend
	stats      StatsInvalidator
	warmup     WarmupQueue
	gauge      Gauge
}

// NewHandler constructs a Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:     logger,
		templates:  cfg.Templates,
		csrf:       cfg.CSRF,
		workspaces: cfg.Workspaces,
		backend:    cfg.Backend,
		stats:      cfg.Stats,
		warmup:     cfg.Warmup,
		gauge:      cfg.Gauge,
	}
}

// MountRoutes registers the dashboard routes. Callers protect them with the session guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.showStats)
	r.Post("/stats/refresh", h.refreshStats)
	r.Get("/fiscalizador", h.showLookup)
	r.Post("/inscripciones/link-data", h.linkData)
	r.Get("/inscripciones/rows/{key}/pdf", h.openPDF)
	r.Get("/permisos/rows/{key}/credential", h.showCredential)

	r.Get("/{resource}", h.showList)
	r.Post("/{resource}/refresh", h.refreshList)
	r.Post("/{resource}/rows/{key}/toggle", h.toggleRow)
	r.Post("/{resource}/rows/{key}/actions/{kind}", h.runAction)
}

func (h *Handler) workspace(r *http.Request) (*workspace.Workspace, bool) {
	sess := shared.SessionFromContext(r.Context())
	operator := shared.OperatorFromContext(r.Context())
	if sess == nil || operator == "" {
		return nil, false
	}
	ws := h.workspaces.Get(sess.ID, operator)
	if h.gauge != nil {
		h.gauge.SetWorkspaces(h.workspaces.Len())
	}
	return ws, true
}

func (h *Handler) listView(w http.ResponseWriter, r *http.Request) (listview.View, bool) {
	res := listview.Resource(chi.URLParam(r, "resource"))
	if !records.Known(res) {
		h.notFound(w, r)
		return nil, false
	}
	ws, ok := h.workspace(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return nil, false
	}
	v, ok := ws.Records.View(res)
	if !ok {
		h.notFound(w, r)
		return nil, false
	}
	return v, true
}

type listPage struct {
	Resource listview.Resource
	Path     string
	Summary  listview.Summary
	State    any
	Pager    shared.Pager
	Error    string
	Operator string
}

func (h *Handler) showList(w http.ResponseWriter, r *http.Request) {
	v, ok := h.listView(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	if !v.Loaded() {
		if err := v.Load(ctx); err != nil {
			h.logger.Warn("list load", slog.String("resource", string(v.Resource())), slog.Any("error", err))
		}
	}
	var pageErr error
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			pageErr = listview.ErrPageOutOfRange
		} else if err := v.ChangePage(ctx, n); err != nil {
			pageErr = err
		}
	}
	v.SetSearch(r.URL.Query().Get("q"))

	sum := v.Summary()
	page := listPage{
		Resource: v.Resource(),
		Path:     resourcePath(v.Resource()),
		Summary:  sum,
		State:    v.State(),
		Operator: shared.OperatorFromContext(ctx),
		Pager: shared.NewPager(shared.PagerInput{
			BasePath:     resourcePath(v.Resource()),
			Search:       sum.Search,
			Page:         sum.Page,
			PageSize:     sum.PageSize,
			Shown:        sum.Shown,
			TotalRecords: sum.TotalRecords,
			TotalPages:   sum.TotalPages,
			Busy:         sum.Loading,
		}),
	}
	switch {
	case pageErr != nil:
		page.Error = Message(pageErr)
	case sum.Err != nil:
		page.Error = Message(sum.Err)
	}
	h.render(w, r, http.StatusOK, listTemplate(v.Resource()), resourceTitle(v.Resource()), page)
}

func (h *Handler) refreshList(w http.ResponseWriter, r *http.Request) {
	v, ok := h.listView(w, r)
	if !ok {
		return
	}
	if err := v.Refresh(r.Context()); err != nil {
		h.flash(r, shared.FlashError, Message(err))
	}
	h.redirectBack(w, r, v, "")
}

func (h *Handler) toggleRow(w http.ResponseWriter, r *http.Request) {
	v, ok := h.listView(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")
	if err := v.ToggleExpand(key); err != nil {
		h.flash(r, shared.FlashError, Message(err))
		key = ""
	}
	h.redirectBack(w, r, v, key)
}

func (h *Handler) runAction(w http.ResponseWriter, r *http.Request) {
	v, ok := h.listView(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")
	kind, err := listview.ParseActionKind(chi.URLParam(r, "kind"))
	if err == nil && !v.Supports(kind) {
		err = listview.ErrUnknownAction
	}
	if err != nil {
		h.flash(r, shared.FlashError, Message(err))
		h.redirectBack(w, r, v, key)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	result, err := v.Dispatch(r.Context(), kind, key, actionPayload(r))
	if err != nil {
		h.logger.Info("row action failed",
			slog.String("resource", string(v.Resource())),
			slog.String("kind", string(kind)),
			slog.String("key", key),
			slog.Any("error", err))
		h.flash(r, shared.FlashError, Message(err))
	} else if result.Message != "" {
		h.flash(r, shared.FlashSuccess, result.Message)
	}
	h.redirectBack(w, r, v, key)
}

func actionPayload(r *http.Request) listview.Payload {
	p := listview.Payload{}
	for k := range r.PostForm {
		if k == shared.CSRFFormField {
			continue
		}
		p[k] = r.PostForm.Get(k)
	}
	p[records.FieldOperator] = shared.OperatorFromContext(r.Context())
	return p
}

func (h *Handler) openPDF(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	ctrl := ws.Records.Inscripciones
	key := chi.URLParam(r, "key")
	row, ok := ctrl.Row(key)
	if !ok {
		h.flash(r, shared.FlashError, Message(listview.ErrRowNotFound))
		h.redirectBack(w, r, ctrl, "")
		return
	}
	target, ok := externalURL(row)
	if !ok {
		h.flash(r, shared.FlashError, "La inscripción no tiene un PDF disponible.")
		h.redirectBack(w, r, ctrl, key)
		return
	}
	// logView is best-effort; the dispatcher never reports its failure.
	_, _ = ctrl.Dispatch(r.Context(), listview.ActionLogView, key, listview.Payload{
		records.FieldOperator: shared.OperatorFromContext(r.Context()),
	})
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func externalURL(row records.Inscripcion) (string, bool) {
	if !row.HasPDF() {
		return "", false
	}
	u, err := url.Parse(strings.TrimSpace(*row.PDFLink))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	return u.String(), true
}

type credentialPage struct {
	Key     string
	Permiso records.Permiso
	HTML    string
}

func (h *Handler) showCredential(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	ctrl := ws.Records.Permisos
	key := chi.URLParam(r, "key")
	row, _ := ctrl.Row(key)
	result, err := ctrl.Dispatch(r.Context(), listview.ActionViewCredential, key, listview.Payload{
		records.FieldOperator: shared.OperatorFromContext(r.Context()),
	})
	if err != nil {
		h.flash(r, shared.FlashError, Message(err))
		h.redirectBack(w, r, ctrl, key)
		return
	}
	h.render(w, r, http.StatusOK, "pages/credential.html", "Credencial "+key, credentialPage{
		Key:     key,
		Permiso: row,
		HTML:    result.HTML,
	})
}

func (h *Handler) linkData(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	ctx := r.Context()
	ctrl := ws.Records.Inscripciones
	ack, err := h.backend.LinkData(ctx)
	if err != nil {
		h.logger.Warn("link data", slog.Any("error", err))
		h.flash(r, shared.FlashError, Message(err))
		h.redirectBack(w, r, ctrl, "")
		return
	}
	if h.stats != nil {
		if err := h.stats.Invalidate(ctx); err != nil {
			h.logger.Warn("stats invalidate", slog.Any("error", err))
		}
	}
	if h.warmup != nil {
		if err := h.warmup.EnqueueStatsWarmup(ctx, "link-data"); err != nil {
			h.logger.Warn("enqueue stats warmup", slog.Any("error", err))
		}
	}
	if err := ctrl.Refresh(ctx); err != nil {
		h.flash(r, shared.FlashError, Message(err))
	} else {
		msg := ack.Message
		if msg == "" {
			msg = "Datos vinculados correctamente."
		}
		h.flash(r, shared.FlashSuccess, msg)
	}
	h.redirectBack(w, r, ctrl, "")
}

// redirectBack returns to the list the request came from, keeping page and search.
func (h *Handler) redirectBack(w http.ResponseWriter, r *http.Request, v interface{ Summary() listview.Summary }, key string) {
	sum := v.Summary()
	target := listURL(sum.Resource, sum.Page, sum.Search)
	if key != "" {
		target += "#row-" + url.PathEscape(key)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func listURL(res listview.Resource, page int, search string) string {
	q := url.Values{}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	if search != "" {
		q.Set("q", search)
	}
	if len(q) == 0 {
		return resourcePath(res)
	}
	return resourcePath(res) + "?" + q.Encode()
}

func (h *Handler) flash(r *http.Request, kind, msg string) {
	if msg == "" {
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: msg})
	}
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "pages/error.html", "No encontrado", errorPage{
		Status:  http.StatusNotFound,
		Message: "La página solicitada no existe.",
	})
}

type errorPage struct {
	Status  int
	Message string
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, tpl, title string, data any) {
	h.write(w, status, tpl, h.templateData(r, title, data))
}

func (h *Handler) templateData(r *http.Request, title string, data any) view.TemplateData {
	sess := shared.SessionFromContext(r.Context())
	td := view.TemplateData{
		Title:       title,
		CurrentPath: r.URL.Path,
		Operator:    shared.OperatorFromContext(r.Context()),
		Nav:         Navigation(r.URL.Path),
		Data:        data,
	}
	if sess != nil {
		token, err := h.csrf.EnsureToken(r.Context(), sess)
		if err != nil {
			h.logger.Warn("csrf token", slog.Any("error", err))
		}
		td.CSRFToken = token
		td.Flash = sess.PopFlash()
	}
	return td
}

func (h *Handler) write(w http.ResponseWriter, status int, tpl string, td view.TemplateData) {
	if err := h.templates.RenderStatus(w, status, tpl, td); err != nil {
		h.logger.Error("render", slog.String("template", tpl), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
