package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRow struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api", 5*time.Second)
}

func TestFetchPageDecodesEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/inscripciones", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"data":[{"id":"1","name":"a"},{"id":"2","name":"b"}],"total_records":25,"total_pages":3,"page":3,"limit":10}`))
	})

	page, err := FetchPage[testRow](context.Background(), client, "inscripciones", 3, 10)
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, 25, page.TotalRecords)
	assert.Equal(t, 3, page.TotalPages)
}

func TestFetchPageEmptyDataIsNotNil(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null,"total_records":0,"total_pages":0}`))
	})
	page, err := FetchPage[testRow](context.Background(), client, "permisos", 1, 10)
	require.NoError(t, err)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
}

func TestFetchPageRejectsInvalidPage(t *testing.T) {
	client := NewClient("http://127.0.0.1:0", time.Second)
	_, err := FetchPage[testRow](context.Background(), client, "reses", 0, 15)
	require.Error(t, err)
}

func TestFetchPageServerErrorCarriesDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"Failed to fetch inscripciones: boom"}`))
	})
	_, err := FetchPage[testRow](context.Background(), client, "inscripciones", 1, 10)
	require.Error(t, err)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusInternalServerError, netErr.StatusCode)
	assert.Equal(t, "Failed to fetch inscripciones: boom", Detail(err))
	assert.True(t, IsNetwork(err))
}

func TestFetchPageMalformedBodyIsDecodeError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [`))
	})
	_, err := FetchPage[testRow](context.Background(), client, "pagos", 1, 15)
	require.Error(t, err)
	assert.True(t, IsDecode(err))
	assert.False(t, IsNetwork(err))
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	client := NewClient(base, time.Second)
	_, err := client.SentItems(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.Empty(t, Detail(err))
}

func TestSendPaymentLinkPostsBody(t *testing.T) {
	var got SendPaymentLinkRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/send-payment-link", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":"success","message":"Email con enlace de pago enviado."}`))
	})

	ack, err := client.SendPaymentLink(context.Background(), SendPaymentLinkRequest{
		InscriptionID:         "77",
		Email:                 "campo@example.com",
		NombreEstablecimiento: "La Esperanza",
	})
	require.NoError(t, err)
	assert.Equal(t, "success", ack.Status)
	assert.Equal(t, "77", got.InscriptionID)
	assert.Equal(t, "La Esperanza", got.NombreEstablecimiento)
}

func TestViewCredentialReturnsFragment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/view-credential/P-12", r.URL.Path)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<div class="credencial">P-12</div>`))
	})
	html, err := client.ViewCredential(context.Background(), "P-12")
	require.NoError(t, err)
	assert.Contains(t, html, "credencial")
}

func TestLogSentItemIgnoresBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/log-sent-item", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, client.LogSentItem(context.Background(), SentItemLog{Identifier: "1", Action: "view_pdf"}))
}

func TestLookupPermisoNormalizesDNI(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/fiscalizador/permiso", r.URL.Path)
		assert.Equal(t, "30123456", r.URL.Query().Get("dni"))
		assert.Empty(t, r.URL.Query().Get("id"))
		_, _ = w.Write([]byte(`{"found":true,"total":1,"results":[{"ID":"9","estado_pago":"Pagado"}]}`))
	})
	res, err := client.LookupPermiso(context.Background(), "", "30.123.456")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "Pagado", res.Results[0]["estado_pago"])
}

func TestLookupRequiresCriteria(t *testing.T) {
	client := NewClient("http://127.0.0.1:0", time.Second)
	_, err := client.LookupPermiso(context.Background(), " ", "")
	assert.ErrorIs(t, err, ErrLookupCriteria)
	_, err = client.LookupInscripcion(context.Background(), " - ")
	assert.ErrorIs(t, err, ErrLookupCriteria)
}

func TestNormalizeCUIT(t *testing.T) {
	assert.Equal(t, "20123456789", NormalizeCUIT(" 20-12345678-9 "))
}
