package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/scale-monitor-api/internal/application/analytics"
	"github.com/jhoicas/scale-monitor-api/internal/application/auth"
	"github.com/jhoicas/scale-monitor-api/internal/application/dto"
	"github.com/jhoicas/scale-monitor-api/internal/application/ports"
	"github.com/jhoicas/scale-monitor-api/internal/application/routing"
	"github.com/jhoicas/scale-monitor-api/internal/application/usecase"
	"github.com/jhoicas/scale-monitor-api/internal/domain"
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
	"github.com/jhoicas/scale-monitor-api/internal/infrastructure/backend"
	"github.com/jhoicas/scale-monitor-api/internal/infrastructure/identity"
	"github.com/jhoicas/scale-monitor-api/internal/infrastructure/maps"
	"github.com/jhoicas/scale-monitor-api/internal/infrastructure/memory"
	"github.com/jhoicas/scale-monitor-api/internal/infrastructure/metrics"
	"github.com/jhoicas/scale-monitor-api/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/scale-monitor-api/internal/interfaces/http"
)

// ──────────────────────────────────────────────────────────────────────────────
// Aplicación completa contra un backend simulado
// ──────────────────────────────────────────────────────────────────────────────

type fixedDirections struct{ calls atomic.Int32 }

func (d *fixedDirections) Route(_ context.Context, req ports.DirectionsRequest) (*entity.RoutePlan, error) {
	d.calls.Add(1)
	order := make([]int, len(req.Waypoints))
	for i := range order {
		order[i] = len(order) - 1 - i
	}
	legs := make([]entity.RouteLeg, len(req.Waypoints)+1)
	for i := range legs {
		legs[i] = entity.RouteLeg{DistanceMeters: 2500, DurationSeconds: 300, StartAddress: "A", EndAddress: "B"}
	}
	return &entity.RoutePlan{
		WaypointOrder:        order,
		Legs:                 legs,
		TotalDistanceMeters:  2500 * len(legs),
		TotalDurationSeconds: 300 * len(legs),
	}, nil
}

// knownGeocoder proveedor que solo conoce una dirección; el resto cae al centroide.
type knownGeocoder struct{}

func (knownGeocoder) Geocode(_ context.Context, address string) (*entity.GeocodeResult, error) {
	if address != "Herzl 1, Haifa" {
		return nil, domain.ErrNotFound
	}
	return &entity.GeocodeResult{
		Query:            address,
		Location:         entity.LatLng{Lat: 32.815, Lng: 34.99},
		FormattedAddress: "Herzl St 1, Haifa, Israel",
		Source:           entity.GeocodeSourceGoogle,
	}, nil
}

type harness struct {
	app        *fiber.App
	store      *memory.SessionStore
	metrics    *metrics.Metrics
	directions *fixedDirections
	upstream   atomic.Int32
}

func authorized(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Authorization"), "Bearer mock-access-")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			h.upstream.Add(1)
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/refresh", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "refresh token revocado"})
		})
		r.Get("/vendors/me", func(w http.ResponseWriter, req *http.Request) {
			if !authorized(req) {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeJSON(w, http.StatusOK, entity.Vendor{ID: "v-1", Name: "Distribuidora"})
		})
		r.Get("/customers", func(w http.ResponseWriter, req *http.Request) {
			if !authorized(req) {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeJSON(w, http.StatusOK, []entity.Customer{{ID: "c-1", Name: "לקוח - Client"}})
		})
		r.Get("/customers/{id}", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "customer not found"})
		})
		r.Get("/scales", func(w http.ResponseWriter, _ *http.Request) {
			// Token rechazado siempre: la sesión debe terminar en AUTH_REQUIRED.
			w.WriteHeader(http.StatusUnauthorized)
		})
		r.Get("/measurements", func(w http.ResponseWriter, req *http.Request) {
			if !authorized(req) {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeJSON(w, http.StatusOK, []map[string]any{{"vendor_id": "SC-1", "weight": 4.5, "timestamp": "2024-05-01T10:00:00Z"}})
		})
		r.Get("/invoices", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"items":           []map[string]any{{"invoice_id": "i-1"}},
				"next_page_token": "cursor-2",
				"limit":           req.URL.Query().Get("limit"),
			})
		})
		r.Get("/orders/customer/{cid}/item-history/{item}", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, []map[string]string{{"order_date": "01-01-24", "quantity": "10"}})
		})
		r.Get("/products/{id}", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, entity.Product{ID: "p-1", CustomerID: "c-1", Name: "Harina"})
		})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	h.store = memory.NewSessionStore()
	h.metrics = metrics.New(false)
	tokens := backend.NewTokenSource(h.store, srv.URL+"/api", time.Hour, nil)
	client, err := backend.NewClient(backend.Config{
		BaseURL:    srv.URL + "/api",
		RetryDelay: time.Millisecond,
		Metrics:    h.metrics,
	}, tokens)
	require.NoError(t, err)

	customers := usecase.NewCustomerUseCase(client)
	h.directions = &fixedDirections{}
	planner := routing.NewPlanner(h.directions, maps.NewGeocodeChain(nil, knownGeocoder{}), customers, nil, pdf.NewRouteSheetGenerator(), h.metrics, routing.Config{})

	h.app = fiber.New()
	h.app.Use(apphttp.RequestLogger(h.metrics))
	apphttp.Router(h.app, apphttp.RouterDeps{
		AuthUC: auth.NewAuthUseCase(identity.NewMockProvider(), h.store, tokens, client, auth.JWTConfig{
			Secret: testJWTSecret, ExpMinutes: testExpMin, Issuer: testIssuer,
		}, time.Hour),
		CustomerUC:    customers,
		ProductUC:     usecase.NewProductUseCase(client),
		VendorUC:      usecase.NewVendorUseCase(client),
		ScaleUC:       usecase.NewScaleUseCase(client),
		DocumentUC:    usecase.NewDocumentUseCase(client),
		IntegrationUC: usecase.NewIntegrationUseCase(client),
		AnalyticsUC:   analytics.NewUseCase(client),
		Planner:       planner,
		Metrics:       h.metrics,
		JWTSecret:     testJWTSecret,
		CookieDomain:  "example.com",
		ServiceName:   "scale-monitor-test",
	})
	return h
}

func (h *harness) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (h *harness) signIn(t *testing.T) dto.LoginResponse {
	t.Helper()
	resp := h.do(t, http.MethodPost, "/api/auth/signin", "", dto.LoginRequest{Email: "Vendor@Example.com", Password: "secreto-123"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out dto.LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func decodeError(t *testing.T, resp *http.Response) dto.ErrorResponse {
	t.Helper()
	var e dto.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	return e
}

// ──────────────────────────────────────────────────────────────────────────────
// Auth
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_SignInEmiteTokenCookieYVendor(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodPost, "/api/auth/signin", "", dto.LoginRequest{Email: "vendor@example.com", Password: "secreto-123"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out dto.LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out.Token)
	assert.Equal(t, "vendor", out.User.Role)
	assert.Equal(t, "v-1", out.User.VendorID, "el vendor se resuelve con vendors/me al iniciar sesión")
	assert.Equal(t, 1, h.store.Len())

	var cookie *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == apphttp.SessionCookie {
			cookie = ck
		}
	}
	require.NotNil(t, cookie, "debe enviarse la cookie de sesión")
	assert.Equal(t, out.Token, cookie.Value)
	assert.Equal(t, "example.com", cookie.Domain)
	assert.True(t, cookie.HttpOnly)
}

func TestRouter_SignInSinPassword_Retorna400(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodPost, "/api/auth/signin", "", dto.LoginRequest{Email: "vendor@example.com"})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", decodeError(t, resp).Code)
}

func TestRouter_SignUpCortaRetorna400(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodPost, "/api/auth/signup", "", dto.SignUpRequest{Email: "x@example.com", Password: "corta"})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_MeYSignOut(t *testing.T) {
	h := newHarness(t)
	login := h.signIn(t)

	resp := h.do(t, http.MethodGet, "/api/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me dto.UserResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	resp.Body.Close()
	assert.Equal(t, "vendor@example.com", me.Email)

	resp = h.do(t, http.MethodPost, "/api/auth/signout", login.Token, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, h.store.Len(), "cerrar sesión elimina los tokens guardados")

	// El JWT sigue siendo válido pero la sesión ya no existe.
	resp = h.do(t, http.MethodGet, "/api/auth/me", login.Token, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "AUTH_REQUIRED", decodeError(t, resp).Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// Recursos
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_ClientesUsaElTokenDeLaSesion(t *testing.T) {
	h := newHarness(t)
	login := h.signIn(t)

	resp := h.do(t, http.MethodGet, "/api/customers", login.Token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []dto.CustomerResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "לקוח", list[0].NameHe)
	assert.Equal(t, "Client", list[0].NameEn)
}

func TestRouter_SinToken_Retorna401(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodGet, "/api/customers", "", nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, h.upstream.Load(), "sin sesión no se llama al backend")
}

func TestRouter_NoEncontradoEnBackend_Retorna404(t *testing.T) {
	h := newHarness(t)
	login := h.signIn(t)

	resp := h.do(t, http.MethodGet, "/api/customers/missing", login.Token, nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	e := decodeError(t, resp)
	assert.Equal(t, "NOT_FOUND", e.Code)
	assert.Equal(t, "customer not found", e.Message, "se propaga el mensaje del backend")
}

func TestRouter_401PersistenteCierraLaSesion(t *testing.T) {
	h := newHarness(t)
	login := h.signIn(t)
	require.Equal(t, 1, h.store.Len())

	resp := h.do(t, http.MethodGet, "/api/scales", login.Token, nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "AUTH_REQUIRED", decodeError(t, resp).Code)
	assert.Equal(t, 0, h.store.Len(), "un refresh fallido elimina la sesión")
}

func TestRouter_VendorNoAdministraVendors(t *testing.T) {
	h := newHarness(t)
	login := h.signIn(t)

	resp := h.do(t, http.MethodGet, "/api/vendors", login.Token, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp2 := h.do(t, http.MethodGet, "/api/vendors/me", login.Token, nil)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode, "el perfil propio sí está permitido")
}

func TestRouter_FacturasPaginadas(t *testing.T) {
	h := newHarness(t)
	login := h.signIn(t)

	resp := h.do(t, http.MethodGet, "/api/invoices?limit=500", login.Token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Equal(t, "cursor-2", page["next_page_token"])
	assert.EqualValues(t, 100, page["page_size"], "limit se acota a 100")
}

func TestRouter_AnaliticaConUnSoloPedido(t *testing.T) {
	h := newHarness(t)
	login := h.signIn(t)

	resp := h.do(t, http.MethodGet, "/api/analytics/customers/c-1/items/item-9", login.Token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out dto.ProductAnalyticsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.InsufficientHistory)
	assert.Equal(t, 1, out.OrderCount)
}

func TestRouter_UltimasMediciones(t *testing.T) {
	h := newHarness(t)
	login := h.signIn(t)

	resp := h.do(t, http.MethodGet, "/api/measurements", login.Token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []entity.Measurement
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "SC-1", list[0].ScaleID)
}

func TestRouter_MedicionesFechaInvalida_Retorna400(t *testing.T) {
	h := newHarness(t)
	login := h.signIn(t)

	resp := h.do(t, http.MethodGet, "/api/measurements/scale/s-1?start_date=ayer", login.Token, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Rutas
// ──────────────────────────────────────────────────────────────────────────────

func routeRequest() dto.PlanRouteRequest {
	return dto.PlanRouteRequest{
		Origin: dto.RouteStopRequest{Name: "Depósito", Location: &entity.LatLng{Lat: 32.08, Lng: 34.78}},
		Stops: []dto.RouteStopRequest{
			{Name: "A", Location: &entity.LatLng{Lat: 32.10, Lng: 34.80}},
			{Name: "B", Location: &entity.LatLng{Lat: 32.12, Lng: 34.82}},
			{Name: "C", Location: &entity.LatLng{Lat: 32.14, Lng: 34.84}},
		},
		ReturnToOrigin: true,
	}
}

func TestRouter_PlanificaRuta(t *testing.T) {
	h := newHarness(t)
	login := h.signIn(t)

	resp := h.do(t, http.MethodPost, "/api/routes/plan", login.Token, routeRequest())
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var plan entity.RoutePlan
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&plan))
	require.Len(t, plan.OrderedStops, 3)
	assert.Equal(t, "C", plan.OrderedStops[0].Name, "se respeta el orden devuelto por el servicio")
	assert.Equal(t, "v-1", plan.VendorID)
	assert.Equal(t, 4*2500, plan.TotalDistanceMeters)
}

func TestRouter_HojaDeRutaPDF(t *testing.T) {
	h := newHarness(t)
	login := h.signIn(t)

	resp := h.do(t, http.MethodPost, "/api/routes/sheet", login.Token, routeRequest())
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))
}

func TestRouter_RutaGuardadaSinBase_Retorna404(t *testing.T) {
	h := newHarness(t)
	login := h.signIn(t)

	resp := h.do(t, http.MethodGet, "/api/routes/4b0c5a0e-1111-4c1e-9f00-000000000001", login.Token, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_DemasiadasParadas_Retorna400(t *testing.T) {
	h := newHarness(t)
	login := h.signIn(t)

	req := routeRequest()
	for len(req.Stops) <= routing.MaxStops {
		req.Stops = append(req.Stops, dto.RouteStopRequest{Name: "X", Location: &entity.LatLng{Lat: 32, Lng: 34}})
	}
	resp := h.do(t, http.MethodPost, "/api/routes/plan", login.Token, req)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, h.directions.calls.Load())
}

func TestRouter_GeocodificaConProveedorYCentroide(t *testing.T) {
	h := newHarness(t)
	login := h.signIn(t)

	resp := h.do(t, http.MethodPost, "/api/maps/geocode", login.Token, dto.GeocodeRequest{
		Addresses: []string{"Herzl 1, Haifa", "רחוב יפו 1, ירושלים"},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out dto.GeocodeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Items, 2)

	assert.Equal(t, entity.GeocodeSourceGoogle, out.Items[0].Source)
	assert.False(t, out.Items[0].Approximate)
	assert.Equal(t, "Herzl St 1, Haifa, Israel", out.Items[0].FormattedAddress)

	assert.Equal(t, entity.GeocodeSourceCentroid, out.Items[1].Source)
	assert.True(t, out.Items[1].Approximate)
	assert.InDelta(t, 31.7683, out.Items[1].Location.Lat, 0.01, "centroide de Jerusalén")
}

func TestRouter_GeocodificarSinDirecciones_Retorna400(t *testing.T) {
	h := newHarness(t)
	login := h.signIn(t)

	resp := h.do(t, http.MethodPost, "/api/maps/geocode", login.Token, dto.GeocodeRequest{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", decodeError(t, resp).Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// Observabilidad
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_StatsCuentaLlamadasAlBackend(t *testing.T) {
	h := newHarness(t)
	login := h.signIn(t)

	resp := h.do(t, http.MethodGet, "/api/customers", login.Token, nil)
	resp.Body.Close()

	resp = h.do(t, http.MethodGet, "/api/stats", login.Token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st metrics.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, 1, st.ServerAPI.Breakdown["GET customers"])
	assert.Equal(t, 1, st.ServerAPI.Breakdown["GET vendors/me"])
}

func TestRouter_HealthYMetrics(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/api/health", "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/metrics", "", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "scale_monitor_http_requests_total")
}

func TestRouter_RequestIDEnLaRespuesta(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(apphttp.HeaderRequestID, "req-123")
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "req-123", resp.Header.Get(apphttp.HeaderRequestID))
}
