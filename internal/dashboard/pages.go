package dashboard

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/caza2026/panel/internal/api"
	"github.com/caza2026/panel/internal/listview"
	"github.com/caza2026/panel/internal/records"
	"github.com/caza2026/panel/internal/shared"
	"github.com/caza2026/panel/internal/stats"
	"github.com/caza2026/panel/internal/view"
)

var titles = map[listview.Resource]string{
	records.Inscripciones:         "Inscripciones",
	records.Permisos:              "Permisos",
	records.Reses:                 "Reses",
	records.Pagos:                 "Pagos",
	records.Logs:                  "Registro de actividad",
	records.CobrosEnviados:        "Cobros enviados",
	records.PermisoCobrosEnviados: "Cobros de permisos",
}

func resourceTitle(r listview.Resource) string {
	if t, ok := titles[r]; ok {
		return t
	}
	return string(r)
}

func resourcePath(r listview.Resource) string {
	return "/" + string(r)
}

func listTemplate(r listview.Resource) string {
	switch r {
	case records.CobrosEnviados, records.PermisoCobrosEnviados:
		return "pages/cobros.html"
	default:
		return "pages/" + string(r) + ".html"
	}
}

// Navigation builds the top menu with the entry matching path marked active.
func Navigation(path string) []view.NavItem {
	items := []view.NavItem{{Label: "Inicio", Path: "/"}}
	for _, r := range records.All() {
		items = append(items, view.NavItem{Label: resourceTitle(r), Path: resourcePath(r)})
	}
	items = append(items, view.NavItem{Label: "Fiscalizador", Path: "/fiscalizador"})
	for i := range items {
		p := items[i].Path
		items[i].Active = path == p || (p != "/" && strings.HasPrefix(path, p+"/"))
	}
	return items
}

type statsPage struct {
	stats.PanelState
	Error string
}

func (h *Handler) showStats(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if !ws.Stats.State().Ready {
		if err := ws.Stats.Load(r.Context()); err != nil {
			h.logger.Warn("stats load", slog.Any("error", err))
		}
	}
	st := ws.Stats.State()
	page := statsPage{PanelState: st}
	if st.Err != nil {
		page.Error = Message(st.Err)
	}
	td := h.templateData(r, "Panel Caza 2026", page)
	td.Refresh = int(st.Interval.Seconds())
	h.write(w, http.StatusOK, "pages/stats.html", td)
}

func (h *Handler) refreshStats(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err := ws.Stats.Refresh(r.Context()); err != nil {
		h.flash(r, shared.FlashError, Message(err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Lookup kinds of the fiscalizador page.
const (
	LookupInscripcion = "inscripcion"
	LookupPermiso     = "permiso"
)

type lookupPage struct {
	Kind     string
	CUIT     string
	ID       string
	DNI      string
	Searched bool
	Result   api.LookupResult
	Columns  []string
	Error    string
}

func (h *Handler) showLookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := lookupPage{
		Kind: q.Get("tipo"),
		CUIT: strings.TrimSpace(q.Get("cuit")),
		ID:   strings.TrimSpace(q.Get("id")),
		DNI:  strings.TrimSpace(q.Get("dni")),
	}
	if page.Kind != LookupPermiso {
		page.Kind = LookupInscripcion
	}
	if q.Has("buscar") {
		page.Searched = true
		var err error
		switch page.Kind {
		case LookupPermiso:
			page.Result, err = h.backend.LookupPermiso(r.Context(), page.ID, page.DNI)
		default:
			page.Result, err = h.backend.LookupInscripcion(r.Context(), page.CUIT)
		}
		if err != nil {
			page.Error = Message(err)
		}
		page.Columns = columns(page.Result.Results)
	}
	h.render(w, r, http.StatusOK, "pages/fiscalizador.html", "Fiscalizador", page)
}

// columns returns the union of result keys, in the order the rows introduce them.
func columns(rows []map[string]any) []string {
	seen := map[string]bool{}
	var out []string
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}
