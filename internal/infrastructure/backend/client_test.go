package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/scale-monitor-api/internal/domain"
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
	"github.com/jhoicas/scale-monitor-api/internal/infrastructure/backend"
	"github.com/jhoicas/scale-monitor-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Backend simulado
// ──────────────────────────────────────────────────────────────────────────────

type fakeUpstream struct {
	srv          *httptest.Server
	mu           sync.Mutex
	validToken   string
	nextToken    string
	rejectAll    bool
	refreshOK    bool
	refreshDelay time.Duration
	refreshCalls atomic.Int32
	lastAuth     atomic.Value
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{validToken: "tok-1", nextToken: "tok-2", refreshOK: true}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/refresh", f.refresh)
		r.Group(func(r chi.Router) {
			r.Use(f.requireToken)
			r.Get("/customers", func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, []map[string]any{{"customer_id": "c1", "name": "לקוח - Client"}})
			})
			r.Get("/customers/{id}", func(w http.ResponseWriter, req *http.Request) {
				writeJSON(w, http.StatusNotFound, map[string]string{"message": "customer " + chi.URLParam(req, "id") + " not found"})
			})
			r.Post("/scales/register", func(w http.ResponseWriter, req *http.Request) {
				var body map[string]string
				_ = json.NewDecoder(req.Body).Decode(&body)
				writeJSON(w, http.StatusCreated, map[string]string{"scale_id": body["id"]})
			})
			r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				_, _ = w.Write([]byte("OK"))
			})
			r.Get("/legacy", func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte("x" + strings.Repeat("שגיאה בשדה ", 40)))
			})
			r.Get("/boom", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			})
			r.Get("/invoices", func(w http.ResponseWriter, req *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"query": req.URL.RawQuery})
			})
		})
	})
	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeUpstream) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		f.lastAuth.Store(auth)
		f.mu.Lock()
		ok := !f.rejectAll && auth == "Bearer "+f.validToken
		f.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *fakeUpstream) refresh(w http.ResponseWriter, r *http.Request) {
	f.refreshCalls.Add(1)
	f.mu.Lock()
	delay := f.refreshDelay
	f.mu.Unlock()
	time.Sleep(delay)

	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.refreshOK || body["refresh_token"] != "refresh-1" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid refresh token"})
		return
	}
	f.validToken = f.nextToken
	writeJSON(w, http.StatusOK, map[string]any{"accessToken": f.nextToken, "refreshToken": "refresh-1", "expiresIn": 3600})
}

// set modifica el estado del backend simulado bajo su mutex.
func (f *fakeUpstream) set(fn func(*fakeUpstream)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type fixture struct {
	up     *fakeUpstream
	store  *memory.SessionStore
	client *backend.Client
	ctx    context.Context
}

func newFixture(t *testing.T, hc *http.Client) *fixture {
	t.Helper()
	up := newFakeUpstream(t)
	store := memory.NewSessionStore()
	require.NoError(t, store.Save(context.Background(), &entity.Session{
		ID:           "sess-1",
		AccessToken:  "tok-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}, 0))

	tokens := backend.NewTokenSource(store, up.srv.URL+"/api", 0, nil)
	client, err := backend.NewClient(backend.Config{
		BaseURL:    up.srv.URL + "/api/",
		RetryDelay: 10 * time.Millisecond,
		HTTPClient: hc,
	}, tokens)
	require.NoError(t, err)
	return &fixture{up: up, store: store, client: client, ctx: backend.WithSession(context.Background(), "sess-1")}
}

// ──────────────────────────────────────────────────────────────────────────────
// Peticiones normales
// ──────────────────────────────────────────────────────────────────────────────

func TestClient_AdjuntaTokenYDecodificaJSON(t *testing.T) {
	f := newFixture(t, nil)

	var customers []entity.Customer
	require.NoError(t, f.client.Get(f.ctx, "/customers", nil, &customers))

	require.Len(t, customers, 1)
	assert.Equal(t, "c1", customers[0].ID)
	assert.Equal(t, "Bearer tok-1", f.up.lastAuth.Load())
}

func TestClient_PostConBody(t *testing.T) {
	f := newFixture(t, nil)

	var out map[string]string
	require.NoError(t, f.client.Post(f.ctx, "scales/register", map[string]string{"id": "SC-7"}, &out))
	assert.Equal(t, "SC-7", out["scale_id"])
}

func TestClient_RespuestaDeTexto(t *testing.T) {
	f := newFixture(t, nil)

	var text string
	require.NoError(t, f.client.Get(f.ctx, "health", nil, &text))
	assert.Equal(t, "OK", text)
}

func TestClient_QueryOmiteValoresVacios(t *testing.T) {
	f := newFixture(t, nil)

	var out map[string]string
	q := map[string][]string{"limit": {"20"}, "start_key": {""}, "status": {"open"}}
	require.NoError(t, f.client.Get(f.ctx, "invoices", q, &out))
	assert.Equal(t, "limit=20&status=open", out["query"])
}

func TestClient_ErroresHTTPMapeanADominio(t *testing.T) {
	f := newFixture(t, nil)

	err := f.client.Get(f.ctx, "customers/42", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	apiErr, ok := backend.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "customer 42 not found", apiErr.Message)
	assert.Equal(t, "customers/:id", apiErr.Endpoint)

	err = f.client.Get(f.ctx, "boom", nil, nil)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestClient_ErrorDeTextoLargoSeCortaEnRunas(t *testing.T) {
	f := newFixture(t, nil)

	err := f.client.Get(f.ctx, "legacy", nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	apiErr, ok := backend.AsAPIError(err)
	require.True(t, ok)
	assert.True(t, utf8.ValidString(apiErr.Message), "el mensaje no debe partir un carácter hebreo")
	assert.Equal(t, 200, utf8.RuneCountInString(apiErr.Message))
	assert.True(t, strings.HasPrefix(apiErr.Message, "xשגיאה"))
}

// ──────────────────────────────────────────────────────────────────────────────
// 401 → refresh → repetir
// ──────────────────────────────────────────────────────────────────────────────

func TestClient_401RefrescaYRepite(t *testing.T) {
	f := newFixture(t, nil)
	f.up.set(func(u *fakeUpstream) { u.validToken = "tok-2" }) // el token guardado ya no sirve

	var customers []entity.Customer
	require.NoError(t, f.client.Get(f.ctx, "customers", nil, &customers))

	assert.Equal(t, int32(1), f.up.refreshCalls.Load(), "exactamente un refresh")
	assert.Equal(t, "Bearer tok-2", f.up.lastAuth.Load())

	sess, err := f.store.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "tok-2", sess.AccessToken, "el token nuevo queda en la sesión")
}

func TestClient_401TrasRefreshExigeLogin(t *testing.T) {
	f := newFixture(t, nil)
	f.up.set(func(u *fakeUpstream) { u.rejectAll = true })

	err := f.client.Get(f.ctx, "customers", nil, nil)
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)
	assert.Equal(t, int32(1), f.up.refreshCalls.Load(), "no se reintenta más de una vez")

	sess, _ := f.store.Get(context.Background(), "sess-1")
	assert.Nil(t, sess, "la sesión se elimina")
}

func TestClient_RefreshRechazadoExigeLogin(t *testing.T) {
	f := newFixture(t, nil)
	f.up.set(func(u *fakeUpstream) {
		u.validToken = "otro"
		u.refreshOK = false
	})

	err := f.client.Get(f.ctx, "customers", nil, nil)
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)
}

func TestClient_SinSesionEs401Directo(t *testing.T) {
	f := newFixture(t, nil)
	err := f.client.Get(context.Background(), "customers", nil, nil)
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)
	assert.Equal(t, int32(0), f.up.refreshCalls.Load())
}

// ──────────────────────────────────────────────────────────────────────────────
// Reintento por fallo de red
// ──────────────────────────────────────────────────────────────────────────────

type flakyTransport struct {
	failures atomic.Int32
	calls    atomic.Int32
}

func (tr *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	tr.calls.Add(1)
	if tr.failures.Load() > 0 {
		tr.failures.Add(-1)
		return nil, errors.New("connection reset by peer")
	}
	return http.DefaultTransport.RoundTrip(req)
}

func TestClient_ReintentaUnaVezAnteFalloDeRed(t *testing.T) {
	tr := &flakyTransport{}
	tr.failures.Store(1)
	f := newFixture(t, &http.Client{Transport: tr})

	var customers []entity.Customer
	require.NoError(t, f.client.Get(f.ctx, "customers", nil, &customers))
	assert.Equal(t, int32(2), tr.calls.Load())
	assert.Len(t, customers, 1)
}

func TestClient_DosFallosDeRedSeReportan(t *testing.T) {
	tr := &flakyTransport{}
	tr.failures.Store(5)
	f := newFixture(t, &http.Client{Transport: tr})

	err := f.client.Get(f.ctx, "customers", nil, nil)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, int32(2), tr.calls.Load(), "un intento más un único reintento")
}

func TestClient_ContextoCanceladoNoReintenta(t *testing.T) {
	tr := &flakyTransport{}
	tr.failures.Store(5)
	f := newFixture(t, &http.Client{Transport: tr})

	ctx, cancel := context.WithCancel(f.ctx)
	cancel()
	err := f.client.Get(ctx, "customers", nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
