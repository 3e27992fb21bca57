package records

import (
	"log/slog"

	"github.com/caza2026/panel/internal/api"
	"github.com/caza2026/panel/internal/listview"
)

// Deps are the collaborators shared by every controller of a workspace.
type Deps struct {
	Client   *api.Client
	Backend  Backend
	Views    ViewLogger
	Logger   *slog.Logger
	Recorder listview.Recorder
}

func (d Deps) backend() Backend {
	if d.Backend != nil {
		return d.Backend
	}
	return d.Client
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// Set holds one controller per resource.
type Set struct {
	Inscripciones         *listview.Controller[Inscripcion]
	Permisos              *listview.Controller[Permiso]
	Reses                 *listview.Controller[Res]
	Pagos                 *listview.Controller[Pago]
	Logs                  *listview.Controller[LogEntry]
	CobrosEnviados        *listview.Controller[CobroEnviado]
	PermisoCobrosEnviados *listview.Controller[CobroEnviado]
}

// NewSet builds fresh controllers for one operator.
func NewSet(d Deps) *Set {
	return &Set{
		Inscripciones: NewInscripcionesController(d),
		Permisos: newController[Permiso](d, Permisos, Permiso.Key, Permiso.searchFields,
			NewPageFetcher[Permiso](d.Client), PermisoActions(d.backend(), d.Views)),
		Reses: newController[Res](d, Reses, Res.Key, Res.searchFields,
			NewPageFetcher[Res](d.Client), ResActions(d.backend())),
		Pagos: newController[Pago](d, Pagos, Pago.Key, Pago.searchFields,
			NewPageFetcher[Pago](d.Client), nil),
		Logs: newController[LogEntry](d, Logs, LogEntry.Key, LogEntry.searchFields,
			NewPageFetcher[LogEntry](d.Client), nil),
		CobrosEnviados: newController[CobroEnviado](d, CobrosEnviados, CobroEnviado.Key, CobroEnviado.searchFields,
			NewPageFetcher[CobroEnviado](d.Client), nil),
		PermisoCobrosEnviados: newController[CobroEnviado](d, PermisoCobrosEnviados, CobroEnviado.Key, CobroEnviado.searchFields,
			NewPageFetcher[CobroEnviado](d.Client), nil),
	}
}

// NewInscripcionesController builds the registration controller with the sent-items merge.
func NewInscripcionesController(d Deps) *listview.Controller[Inscripcion] {
	var sent SentItemsSource
	if d.Client != nil {
		sent = d.Client
	}
	fetcher := NewInscripcionFetcher(NewPageFetcher[Inscripcion](d.Client), sent, d.logger())
	return newController[Inscripcion](d, Inscripciones, Inscripcion.Key, Inscripcion.searchFields, fetcher, InscripcionActions(d.backend(), d.Views))
}

func newController[R any](d Deps, resource listview.Resource, key func(R) string, search func(R) []string, fetcher listview.Fetcher[R], actions []listview.Action[R]) *listview.Controller[R] {
	logger := d.logger()
	dispatcher := listview.NewDispatcher[R](resource, logger, d.Recorder, actions...)
	binding := listview.Binding[R]{
		Resource:     resource,
		PageSize:     PageSize(resource),
		Key:          key,
		SearchFields: search,
	}
	return listview.NewController(binding, fetcher, dispatcher, logger, listview.WithRecorder[R](d.Recorder))
}

// Views returns the type-erased controllers keyed by resource.
func (s *Set) Views() map[listview.Resource]listview.View {
	return map[listview.Resource]listview.View{
		Inscripciones:         s.Inscripciones,
		Permisos:              s.Permisos,
		Reses:                 s.Reses,
		Pagos:                 s.Pagos,
		Logs:                  s.Logs,
		CobrosEnviados:        s.CobrosEnviados,
		PermisoCobrosEnviados: s.PermisoCobrosEnviados,
	}
}

// View returns the controller for r.
func (s *Set) View(r listview.Resource) (listview.View, bool) {
	v, ok := s.Views()[r]
	return v, ok
}
