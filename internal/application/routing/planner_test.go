package routing

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/scale-monitor-api/internal/application/dto"
	"github.com/jhoicas/scale-monitor-api/internal/application/ports"
	"github.com/jhoicas/scale-monitor-api/internal/domain"
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Dobles
// ──────────────────────────────────────────────────────────────────────────────

type stubDirections struct {
	calls atomic.Int32
	delay time.Duration
	order []int
	byLat bool // ordena los waypoints por latitud como haría el proveedor
	mu    sync.Mutex
	last  ports.DirectionsRequest
}

func (s *stubDirections) Route(_ context.Context, req ports.DirectionsRequest) (*entity.RoutePlan, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.last = req
	s.mu.Unlock()
	time.Sleep(s.delay)
	order := s.order
	if s.byLat {
		order = make([]int, len(req.Waypoints))
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(i, j int) bool { return req.Waypoints[order[i]].Lat < req.Waypoints[order[j]].Lat })
	}
	legs := make([]entity.RouteLeg, len(req.Waypoints)+1)
	for i := range legs {
		legs[i] = entity.RouteLeg{DistanceMeters: 1000, DurationSeconds: 60}
	}
	return &entity.RoutePlan{
		WaypointOrder:        order,
		Legs:                 legs,
		TotalDistanceMeters:  1000 * len(legs),
		TotalDurationSeconds: 60 * len(legs),
	}, nil
}

type stubGeocoder struct{ calls atomic.Int32 }

func (g *stubGeocoder) Geocode(_ context.Context, address string) (*entity.GeocodeResult, error) {
	g.calls.Add(1)
	if address == "inexistente" {
		return nil, domain.ErrNotFound
	}
	return &entity.GeocodeResult{Query: address, Location: entity.LatLng{Lat: 32.1, Lng: 34.8}, Source: entity.GeocodeSourceCentroid, Approximate: true}, nil
}

type stubCustomers map[string]*entity.Customer

func (s stubCustomers) Get(_ context.Context, id string) (*entity.Customer, error) {
	c, ok := s[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

type memPlans struct {
	mu    sync.Mutex
	plans map[string]*entity.RoutePlan
}

func (m *memPlans) Create(_ context.Context, p *entity.RoutePlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.plans[p.ID] = &cp
	return nil
}

func (m *memPlans) GetByID(_ context.Context, vendorID, id string) (*entity.RoutePlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok || p.VendorID != vendorID {
		return nil, nil
	}
	return p, nil
}

func (m *memPlans) ListByVendor(context.Context, string, int) ([]*entity.RoutePlan, error) {
	return nil, nil
}

func (m *memPlans) DeleteOlderThan(context.Context, time.Time) (int64, error) { return 0, nil }

type stubSheets struct{}

func (stubSheets) RenderRouteSheet(plan *entity.RoutePlan) ([]byte, error) {
	return []byte("%PDF-" + plan.ID), nil
}

type hits struct{ n atomic.Int32 }

func (h *hits) RouteCacheHit() { h.n.Add(1) }

func latlng(lat, lng float64) *entity.LatLng { return &entity.LatLng{Lat: lat, Lng: lng} }

func lat(v float64) *float64 { return &v }

type fixture struct {
	planner *Planner
	dir     *stubDirections
	geo     *stubGeocoder
	plans   *memPlans
	hits    *hits
}

func newFixture(cfg Config) *fixture {
	f := &fixture{
		dir:   &stubDirections{},
		geo:   &stubGeocoder{},
		plans: &memPlans{plans: map[string]*entity.RoutePlan{}},
		hits:  &hits{},
	}
	customers := stubCustomers{
		"c1": {ID: "c1", Name: "Panadería", Lat: lat(32.08), Lng: lat(34.78)},
		"c2": {ID: "c2", Name: "Café", Address: "Herzl 10, Haifa"},
	}
	f.planner = NewPlanner(f.dir, f.geo, customers, f.plans, stubSheets{}, f.hits, cfg)
	return f
}

func request(stops ...dto.RouteStopRequest) dto.PlanRouteRequest {
	return dto.PlanRouteRequest{
		Origin:         dto.RouteStopRequest{Name: "Bodega", Location: latlng(32.0, 34.7)},
		Stops:          stops,
		ReturnToOrigin: true,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Plan
// ──────────────────────────────────────────────────────────────────────────────

func TestPlan_OrdenaParadasSegunProveedor(t *testing.T) {
	f := newFixture(Config{MinInterval: 5 * time.Second})
	f.dir.order = []int{2, 0, 1}

	plan, err := f.planner.Plan(context.Background(), "s1", "v1", request(
		dto.RouteStopRequest{CustomerID: "c1"},
		dto.RouteStopRequest{CustomerID: "c2"},
		dto.RouteStopRequest{Name: "Libre", Location: latlng(31.9, 34.9)},
	))
	require.NoError(t, err)

	ids := []string{}
	for _, s := range plan.OrderedStops {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"stop-3", "c1", "c2"}, ids)
	assert.Equal(t, "origin", plan.Origin.ID)
	assert.True(t, plan.ReturnToOrigin)
	assert.Equal(t, "v1", plan.VendorID)
	assert.Len(t, plan.Legs, 4)
	assert.Empty(t, plan.ID, "sin save no se guarda")

	f.dir.mu.Lock()
	defer f.dir.mu.Unlock()
	assert.True(t, f.dir.last.Optimize)
	assert.Equal(t, entity.LatLng{Lat: 32.0, Lng: 34.7}, f.dir.last.Destination, "vuelve al origen")
	assert.Len(t, f.dir.last.Waypoints, 3)

	assert.Equal(t, int32(1), f.geo.calls.Load(), "solo se geocodifica el cliente sin coordenadas")
	assert.True(t, plan.OrderedStops[2].Approximate)
	assert.Equal(t, "Café", plan.OrderedStops[2].Name)
}

func TestPlan_SinRetornoTerminaEnLaUltimaParada(t *testing.T) {
	f := newFixture(Config{})
	req := request(dto.RouteStopRequest{CustomerID: "c1"}, dto.RouteStopRequest{Name: "Fin", Location: latlng(31.5, 34.6)})
	req.ReturnToOrigin = false

	plan, err := f.planner.Plan(context.Background(), "s1", "v1", req)
	require.NoError(t, err)

	require.Len(t, plan.OrderedStops, 2)
	assert.Equal(t, "stop-2", plan.OrderedStops[1].ID)
	f.dir.mu.Lock()
	defer f.dir.mu.Unlock()
	assert.Equal(t, entity.LatLng{Lat: 31.5, Lng: 34.6}, f.dir.last.Destination)
	assert.Len(t, f.dir.last.Waypoints, 1)
}

func TestPlan_ValidaParadas(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()

	_, err := f.planner.Plan(ctx, "s1", "v1", request())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	many := make([]dto.RouteStopRequest, MaxStops+1)
	for i := range many {
		many[i] = dto.RouteStopRequest{Location: latlng(32, 34)}
	}
	_, err = f.planner.Plan(ctx, "s1", "v1", request(many...))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.planner.Plan(ctx, "s1", "v1", request(dto.RouteStopRequest{Name: "sin datos"}))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.planner.Plan(ctx, "s1", "v1", request(dto.RouteStopRequest{Address: "inexistente"}))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.planner.Plan(ctx, "s1", "v1", request(dto.RouteStopRequest{CustomerID: "nadie"}))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int32(0), f.dir.calls.Load())
}

func TestPlan_ReutilizaRutaReciente(t *testing.T) {
	f := newFixture(Config{MinInterval: 5 * time.Second})
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	f.planner.now = func() time.Time { return now }

	a := request(dto.RouteStopRequest{Location: latlng(32.1, 34.8)}, dto.RouteStopRequest{Location: latlng(32.2, 34.9)})

	first, err := f.planner.Plan(context.Background(), "s1", "v1", a)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := f.planner.Plan(context.Background(), "s1", "v1", a)
	require.NoError(t, err)
	assert.True(t, second.Cached, "misma petición dentro del intervalo")
	assert.Equal(t, first.OrderedStops, second.OrderedStops)
	assert.Equal(t, int32(1), f.dir.calls.Load())
	assert.Equal(t, int32(1), f.hits.n.Load())

	now = now.Add(5 * time.Second)
	_, err = f.planner.Plan(context.Background(), "s1", "v1", a)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.dir.calls.Load(), "pasado el intervalo se recalcula")
}

func TestPlan_MismasParadasEnOtroOrdenNoReutilizanOrden(t *testing.T) {
	f := newFixture(Config{MinInterval: time.Minute})
	f.dir.byLat = true
	stopA := dto.RouteStopRequest{Name: "A", Location: latlng(31, 34.8)}
	stopB := dto.RouteStopRequest{Name: "B", Location: latlng(32, 34.8)}

	names := func(p *entity.RoutePlan) []string {
		out := []string{}
		for _, s := range p.OrderedStops {
			out = append(out, s.Name)
		}
		return out
	}

	first, err := f.planner.Plan(context.Background(), "s1", "v1", request(stopA, stopB))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names(first))

	second, err := f.planner.Plan(context.Background(), "s1", "v1", request(stopB, stopA))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names(second), "el orden optimizado corresponde a las paradas de esta petición")
	assert.False(t, second.Cached)
	assert.Equal(t, int32(2), f.dir.calls.Load())
}

func TestPlan_PeticionesIdenticasEnVueloComparten(t *testing.T) {
	f := newFixture(Config{})
	f.dir.delay = 100 * time.Millisecond
	req := request(dto.RouteStopRequest{Location: latlng(32.1, 34.8)})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.planner.Plan(context.Background(), uuid.NewString(), "v1", req)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), f.dir.calls.Load())
}

func TestPlan_DebounceReemplazaPeticionAnterior(t *testing.T) {
	f := newFixture(Config{DebounceDelay: 200 * time.Millisecond})
	req := request(dto.RouteStopRequest{Location: latlng(32.1, 34.8)})

	errs := make(chan error, 1)
	go func() {
		_, err := f.planner.Plan(context.Background(), "s1", "v1", req)
		errs <- err
	}()
	time.Sleep(50 * time.Millisecond)

	plan, err := f.planner.Plan(context.Background(), "s1", "v1", req)
	require.NoError(t, err)
	require.NotNil(t, plan)

	assert.True(t, errors.Is(<-errs, domain.ErrSuperseded))
	assert.Equal(t, int32(1), f.dir.calls.Load())
}

func TestPlan_DebounceEsPorSesion(t *testing.T) {
	f := newFixture(Config{DebounceDelay: 50 * time.Millisecond})
	req := request(dto.RouteStopRequest{Location: latlng(32.1, 34.8)})

	var wg sync.WaitGroup
	for _, sid := range []string{"a", "b"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.planner.Plan(context.Background(), sid, "v1", req)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestPlan_ContextoCanceladoDuranteDebounce(t *testing.T) {
	f := newFixture(Config{DebounceDelay: time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.planner.Plan(ctx, "s1", "v1", request(dto.RouteStopRequest{Location: latlng(32.1, 34.8)}))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// ──────────────────────────────────────────────────────────────────────────────
// Rutas guardadas
// ──────────────────────────────────────────────────────────────────────────────

func TestPlan_GuardaYRenderizaHoja(t *testing.T) {
	f := newFixture(Config{})
	req := request(dto.RouteStopRequest{CustomerID: "c1"})
	req.Save = true

	plan, err := f.planner.Plan(context.Background(), "s1", "v1", req)
	require.NoError(t, err)
	require.NotEmpty(t, plan.ID)

	got, err := f.planner.Get(context.Background(), "v1", plan.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.OrderedStops, got.OrderedStops)

	_, err = f.planner.Get(context.Background(), "otro-vendedor", plan.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.planner.Get(context.Background(), "v1", "no-es-uuid")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	pdf, err := f.planner.Sheet(context.Background(), "v1", plan.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-"+plan.ID, string(pdf))
}

func TestPlanner_SinBaseDeDatos(t *testing.T) {
	p := NewPlanner(&stubDirections{}, &stubGeocoder{}, nil, nil, stubSheets{}, nil, Config{})
	req := request(dto.RouteStopRequest{Location: latlng(32.1, 34.8)})
	req.Save = true

	plan, err := p.Plan(context.Background(), "s1", "v1", req)
	require.NoError(t, err)
	assert.Empty(t, plan.ID)

	list, err := p.List(context.Background(), "v1", 10)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = p.Get(context.Background(), "v1", uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Geocode
// ──────────────────────────────────────────────────────────────────────────────

func TestGeocode_ConservaElOrden(t *testing.T) {
	f := newFixture(Config{})

	out, err := f.planner.Geocode(context.Background(), []string{" Herzl 10, Haifa ", "Dizengoff 50", "Jaffa 1"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "Herzl 10, Haifa", out[0].Query)
	assert.Equal(t, "Dizengoff 50", out[1].Query)
	assert.Equal(t, "Jaffa 1", out[2].Query)
	assert.Equal(t, int32(3), f.geo.calls.Load())
}

func TestGeocode_Validaciones(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()

	_, err := f.planner.Geocode(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.planner.Geocode(ctx, []string{"Herzl 1", "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	many := make([]string, MaxStops+1)
	for i := range many {
		many[i] = "Herzl 1"
	}
	_, err = f.planner.Geocode(ctx, many)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, f.geo.calls.Load(), "no se llama al proveedor con una petición inválida")
}

func TestGeocode_DireccionInexistente(t *testing.T) {
	f := newFixture(Config{})
	_, err := f.planner.Geocode(context.Background(), []string{"inexistente"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderStops(t *testing.T) {
	stops := []entity.Stop{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	assert.Equal(t, []entity.Stop{{ID: "c"}, {ID: "a"}, {ID: "b"}}, orderStops(stops, []int{2, 0, 1}))
	assert.Equal(t, stops, orderStops(stops, []int{0, 0, 1}), "orden inválido")
	assert.Equal(t, stops, orderStops(stops, nil))
}
