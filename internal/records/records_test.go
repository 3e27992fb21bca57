package records

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caza2026/panel/internal/api"
	"github.com/caza2026/panel/internal/listview"
)

func TestTextUnmarshalCleansSpreadsheetIDs(t *testing.T) {
	var row struct {
		A Text `json:"a"`
		B Text `json:"b"`
		C Text `json:"c"`
		D Text `json:"d"`
		E Text `json:"e"`
	}
	raw := `{"a": 1234.0, "b": "20-12345678-9", "c": "nan", "d": null, "e": "88.50"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &row))
	assert.Equal(t, Text("1234"), row.A)
	assert.Equal(t, Text("20-12345678-9"), row.B)
	assert.Equal(t, Text(""), row.C)
	assert.Equal(t, Text(""), row.D)
	assert.Equal(t, Text("88.50"), row.E)
}

func TestParseTimeLayouts(t *testing.T) {
	ts := ParseTime("2026-03-04 10:11:12")
	assert.Equal(t, 2026, ts.Year())
	assert.Equal(t, time.March, ts.Month())

	ts = ParseTime("04/03/2026")
	assert.Equal(t, 4, ts.Day())

	ts = ParseTime("ayer")
	assert.True(t, ts.IsZero())
	assert.Equal(t, "ayer", ts.Raw)
}

func TestSentSetIsAppendOnly(t *testing.T) {
	base := SentSet{TagEmail}
	next := base.With(TagCobro)
	assert.Equal(t, SentSet{TagEmail}, base)
	assert.Equal(t, SentSet{TagEmail, TagCobro}, next)
	assert.Equal(t, next, next.With(TagCobro))
	assert.Equal(t, TagCobro, TagForAction("payment_link"))
	assert.Equal(t, TagCredencial, TagForAction("Credencial"))
	assert.Equal(t, TagEmail, TagForAction("send_email"))
}

func TestPageSizes(t *testing.T) {
	assert.Equal(t, 10, PageSize(Inscripciones))
	assert.Equal(t, 10, PageSize(Permisos))
	for _, r := range []listview.Resource{Reses, Pagos, Logs, CobrosEnviados, PermisoCobrosEnviados} {
		assert.Equal(t, 15, PageSize(r), string(r))
	}
	assert.False(t, Known("usuarios"))
}

func TestGmailComposeURL(t *testing.T) {
	u := Inscripcion{Email: " a@b.com ", NombreEstablecimiento: "La Paz"}.ComposeURL()
	assert.True(t, strings.HasPrefix(u, "https://mail.google.com/mail/?"))
	assert.Contains(t, u, "to=a%40b.com")
	assert.Contains(t, u, "view=cm")
}

func newAPI(t *testing.T, handler http.HandlerFunc) *api.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return api.NewClient(srv.URL, 2*time.Second)
}

func TestInscripcionFetcherMergesSentItems(t *testing.T) {
	client := newAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/inscripciones":
			_, _ = w.Write([]byte(`{"data":[{"numero_inscripcion":101.0,"nombre_establecimiento":"El Ñandú","email":"x@y.z","Estado de Pago":"Pendiente"},{"numero_inscripcion":"102","nombre_establecimiento":"Los Teros"}],"total_records":12,"total_pages":2}`))
		case "/sent-items":
			_, _ = w.Write([]byte(`{"101":"payment_link"}`))
		default:
			http.NotFound(w, r)
		}
	})
	f := NewInscripcionFetcher(NewPageFetcher[Inscripcion](client), client, nil)
	res, err := f.FetchPage(context.Background(), listview.PageRequest{Resource: Inscripciones, Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "101", res.Items[0].Key())
	assert.True(t, res.Items[0].SentStatuses.Has(TagCobro))
	assert.Empty(t, res.Items[1].SentStatuses)
	assert.Equal(t, 2, res.TotalPages)
}

func TestInscripcionFetcherIgnoresSentItemsFailure(t *testing.T) {
	client := newAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sent-items" {
			http.Error(w, `{"detail":"sheet unavailable"}`, http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"numero_inscripcion":"7"}],"total_records":1,"total_pages":1}`))
	})
	f := NewInscripcionFetcher(NewPageFetcher[Inscripcion](client), client, nil)
	res, err := f.FetchPage(context.Background(), listview.PageRequest{Resource: Inscripciones, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
}

func TestInscripcionFetcherPageFailureIsReturned(t *testing.T) {
	client := newAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sent-items" {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		http.Error(w, `{"detail":"boom"}`, http.StatusBadGateway)
	})
	f := NewInscripcionFetcher(NewPageFetcher[Inscripcion](client), client, nil)
	_, err := f.FetchPage(context.Background(), listview.PageRequest{Resource: Inscripciones, Page: 1, Limit: 10})
	require.Error(t, err)
	assert.True(t, api.IsNetwork(err))
	assert.Equal(t, "boom", api.Detail(err))
}

type stubBackend struct {
	mu       sync.Mutex
	fail     error
	payments []api.SendPaymentLinkRequest
	resLogs  []api.ResActionRequest
	html     string
}

func (s *stubBackend) SendEmail(context.Context, api.SendEmailRequest) (api.Ack, error) {
	return api.Ack{}, s.fail
}

func (s *stubBackend) SendPaymentLink(_ context.Context, req api.SendPaymentLinkRequest) (api.Ack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return api.Ack{}, s.fail
	}
	s.payments = append(s.payments, req)
	return api.Ack{Status: "ok"}, nil
}

func (s *stubBackend) SendPermisoPaymentLink(context.Context, api.PermisoMessageRequest) (api.Ack, error) {
	return api.Ack{}, s.fail
}

func (s *stubBackend) SendPermisoEmail(context.Context, api.PermisoMessageRequest) (api.Ack, error) {
	return api.Ack{}, s.fail
}

func (s *stubBackend) SendCredential(context.Context, api.PermisoMessageRequest) (api.Ack, error) {
	return api.Ack{Message: "Credencial enviada"}, s.fail
}

func (s *stubBackend) ViewCredential(context.Context, string) (string, error) {
	return s.html, s.fail
}

func (s *stubBackend) LogResAction(_ context.Context, req api.ResActionRequest) (api.Ack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return api.Ack{}, s.fail
	}
	s.resLogs = append(s.resLogs, req)
	return api.Ack{}, nil
}

func staticFetcher[R any](items ...R) listview.Fetcher[R] {
	return listview.FetcherFunc[R](func(context.Context, listview.PageRequest) (listview.PageResult[R], error) {
		out := make([]R, len(items))
		copy(out, items)
		return listview.PageResult[R]{Items: out, TotalRecords: len(items), TotalPages: 1}, nil
	})
}

func TestInscripcionPaymentLinkRequiresEmailAndName(t *testing.T) {
	backend := &stubBackend{}
	c := newController[Inscripcion](Deps{Backend: backend}, Inscripciones, Inscripcion.Key, Inscripcion.searchFields,
		staticFetcher(
			Inscripcion{NumeroInscripcion: "1", NombreEstablecimiento: "Don Pedro", Email: "dp@campo.ar"},
			Inscripcion{NumeroInscripcion: "2", NombreEstablecimiento: "", Email: "sin@nombre.ar"},
		),
		InscripcionActions(backend, nil))
	require.NoError(t, c.Load(context.Background()))

	_, err := c.Dispatch(context.Background(), listview.ActionSendPaymentLink, "2", nil)
	require.True(t, listview.IsValidation(err))
	assert.Empty(t, backend.payments)

	res, err := c.Dispatch(context.Background(), listview.ActionSendPaymentLink, "1", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Message, "dp@campo.ar")
	require.Len(t, backend.payments, 1)
	assert.Equal(t, "Don Pedro", backend.payments[0].NombreEstablecimiento)

	row, _ := c.Row("1")
	assert.True(t, row.SentStatuses.Has(TagCobro))
	other, _ := c.Row("2")
	assert.Empty(t, other.SentStatuses)
}

func TestResToggleAndSaveAmount(t *testing.T) {
	backend := &stubBackend{}
	c := newController[Res](Deps{Backend: backend}, Reses, Res.Key, Res.searchFields,
		staticFetcher(Res{ID: "41"}, Res{ID: "42", History: []HistoryEntry{{Details: "alta"}}}, Res{ID: "43"}),
		ResActions(backend))
	require.NoError(t, c.Load(context.Background()))

	_, err := c.Dispatch(context.Background(), listview.ActionToggleStatus, "42", listview.Payload{FieldIsPaid: "true"})
	require.NoError(t, err)
	row, _ := c.Row("42")
	assert.True(t, row.IsPaid)
	require.Len(t, row.History, 2)
	assert.Equal(t, "Marcado como pagado", row.History[0].Details)
	assert.Equal(t, "alta", row.History[1].Details)
	for _, k := range []string{"41", "43"} {
		r, _ := c.Row(k)
		assert.False(t, r.IsPaid, k)
	}
	require.Len(t, backend.resLogs, 1)
	require.NotNil(t, backend.resLogs[0].IsPaid)
	assert.True(t, *backend.resLogs[0].IsPaid)

	_, err = c.Dispatch(context.Background(), listview.ActionSaveAmount, "42", listview.Payload{FieldAmount: "12,5"})
	require.True(t, listview.IsValidation(err))

	backend.fail = &api.NetworkError{Op: "log res action", StatusCode: 500, Detail: "db down"}
	_, err = c.Dispatch(context.Background(), listview.ActionSaveAmount, "42", listview.Payload{FieldAmount: "1500"})
	require.Error(t, err)
	after, _ := c.Row("42")
	assert.Equal(t, row, after)

	backend.fail = nil
	_, err = c.Dispatch(context.Background(), listview.ActionSaveAmount, "42", listview.Payload{FieldAmount: "1500"})
	require.NoError(t, err)
	after, _ = c.Row("42")
	assert.Equal(t, Text("1500"), after.Monto)
	assert.Len(t, after.History, 3)
}

func TestViewCredentialIsSanitized(t *testing.T) {
	backend := &stubBackend{html: `<div style="color: red">Juan Pérez<script>alert(1)</script><a href="javascript:x()">x</a></div>`}
	var logged []api.SentItemLog
	views := ViewLoggerFunc(func(_ context.Context, e api.SentItemLog) error {
		logged = append(logged, e)
		return errors.New("queue unavailable")
	})
	c := newController[Permiso](Deps{Backend: backend}, Permisos, Permiso.Key, Permiso.searchFields,
		staticFetcher(Permiso{ID: "P-9", Nombre: "Juan Pérez"}), PermisoActions(backend, views))
	require.NoError(t, c.Load(context.Background()))

	res, err := c.Dispatch(context.Background(), listview.ActionViewCredential, "P-9", listview.Payload{FieldOperator: "ana"})
	require.NoError(t, err)
	assert.Contains(t, res.HTML, "Juan Pérez")
	assert.NotContains(t, res.HTML, "<script")
	assert.NotContains(t, res.HTML, "javascript:")
	require.Len(t, logged, 1)
	assert.Equal(t, "ana", logged[0].Username)
}

func TestLogViewIsBestEffort(t *testing.T) {
	views := ViewLoggerFunc(func(context.Context, api.SentItemLog) error {
		return errors.New("log endpoint down")
	})
	c := newController[Inscripcion](Deps{Backend: &stubBackend{}}, Inscripciones, Inscripcion.Key, Inscripcion.searchFields,
		staticFetcher(Inscripcion{NumeroInscripcion: "5"}), InscripcionActions(&stubBackend{}, views))
	require.NoError(t, c.Load(context.Background()))

	_, err := c.Dispatch(context.Background(), listview.ActionLogView, "5", nil)
	assert.NoError(t, err)
	row, _ := c.Row("5")
	assert.Empty(t, row.SentStatuses)
}
