package maps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/scale-monitor-api/internal/application/ports"
	"github.com/jhoicas/scale-monitor-api/internal/domain"
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
)

const directionsOK = `{
  "status": "OK",
  "routes": [{
    "waypoint_order": [1, 0],
    "legs": [
      {"start_address": "A", "end_address": "C",
       "start_location": {"lat": 32.0, "lng": 34.7}, "end_location": {"lat": 32.1, "lng": 34.8},
       "distance": {"value": 1200, "text": "1.2 km"}, "duration": {"value": 300, "text": "5 mins"},
       "duration_in_traffic": {"value": 420},
       "steps": [{"html_instructions": "Head <b>north</b> on&nbsp;Herzl", "distance": {"value": 1200}, "duration": {"value": 300}, "maneuver": "turn-left"}]},
      {"start_address": "C", "end_address": "B",
       "start_location": {"lat": 32.1, "lng": 34.8}, "end_location": {"lat": 32.2, "lng": 34.9},
       "distance": {"value": 800, "text": "0.8 km"}, "duration": {"value": 200, "text": "3 mins"}}
    ]
  }]
}`

type countingRecorder struct {
	mu    sync.Mutex
	calls map[string]int
}

func (r *countingRecorder) ObserveMaps(api string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = map[string]int{}
	}
	key := api + ":ok"
	if !ok {
		key = api + ":error"
	}
	r.calls[key]++
}

// ──────────────────────────────────────────────────────────────────────────────
// Directions
// ──────────────────────────────────────────────────────────────────────────────

func TestGoogleDirections_ParametrosYParseo(t *testing.T) {
	var query atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query.Store(r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(directionsOK))
	}))
	defer srv.Close()

	rec := &countingRecorder{}
	g := NewGoogleDirections(srv.URL, "key-1", srv.Client(), rec)
	plan, err := g.Route(context.Background(), ports.DirectionsRequest{
		Origin:      entity.LatLng{Lat: 32, Lng: 34.7},
		Destination: entity.LatLng{Lat: 32.2, Lng: 34.9},
		Waypoints:   []entity.LatLng{{Lat: 32.2, Lng: 34.9}, {Lat: 32.1, Lng: 34.8}},
		Optimize:    true,
	})
	require.NoError(t, err)

	q := query.Load().(url.Values)
	assert.Equal(t, "driving", q.Get("mode"))
	assert.Equal(t, "now", q.Get("departure_time"))
	assert.Equal(t, "best_guess", q.Get("traffic_model"))
	assert.Equal(t, "optimize:true|32.200000,34.900000|32.100000,34.800000", q.Get("waypoints"))

	assert.Equal(t, []int{1, 0}, plan.WaypointOrder)
	require.Len(t, plan.Legs, 2)
	assert.Equal(t, 2000, plan.TotalDistanceMeters)
	assert.Equal(t, 620, plan.TotalDurationSeconds, "usa la duración con tráfico cuando existe")
	assert.Equal(t, "Head north on Herzl", plan.Legs[0].Steps[0].Instruction)
	assert.Equal(t, 1, rec.calls["directions:ok"])
}

func TestGoogleDirections_Estados(t *testing.T) {
	cases := []struct {
		body string
		want error
	}{
		{`{"status":"ZERO_RESULTS","routes":[]}`, domain.ErrNotFound},
		{`{"status":"MAX_WAYPOINTS_EXCEEDED"}`, domain.ErrInvalidInput},
		{`{"status":"REQUEST_DENIED","error_message":"bad key"}`, domain.ErrMapsUnavailable},
		{`<html>`, domain.ErrMapsUnavailable},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(tc.body))
		}))
		_, err := NewGoogleDirections(srv.URL, "k", srv.Client(), nil).Route(context.Background(), ports.DirectionsRequest{})
		assert.ErrorIs(t, err, tc.want, tc.body)
		srv.Close()
	}
}

func TestGoogleDirections_SinAPIKeyNoLlama(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(directionsOK))
	}))
	defer srv.Close()

	_, err := NewGoogleDirections(srv.URL, "", srv.Client(), nil).Route(context.Background(), ports.DirectionsRequest{})
	assert.ErrorIs(t, err, domain.ErrMapsUnavailable)
	assert.Zero(t, calls.Load(), "sin API key no se llama al proveedor")
}

// ──────────────────────────────────────────────────────────────────────────────
// Geocodificación
// ──────────────────────────────────────────────────────────────────────────────

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`Turn <b>left</b> onto <b>Herzl St</b>`, "Turn left onto Herzl St"},
		{`Head <b>north</b><div style="font-size:0.9em">Destination will be on the right</div>`, "Head north Destination will be on the right"},
		{`Keep right at the fork &gt; Route&nbsp;20 &lt;toll&gt;`, "Keep right at the fork > Route 20 <toll>"},
		{`Continue onto Ben Yehuda&#39;s &amp; Allenby`, "Continue onto Ben Yehuda's & Allenby"},
		{`פנה &#1513;&#1502;&#1488;&#1500;&#1492; ל<b>הרצל</b>`, "פנה שמאלה ל הרצל"},
		{`&#x2192; &quot;Dizengoff&quot;`, `→ "Dizengoff"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripHTML(tt.in))
	}
}

func TestGoogleGeocoder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("address") == "nowhere" {
			_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"formatted_address":"Herzl 1, Tel Aviv","geometry":{"location":{"lat":32.06,"lng":34.77},"location_type":"ROOFTOP"}}]}`))
	}))
	defer srv.Close()
	g := NewGoogleGeocoder(srv.URL, "k", "il", srv.Client(), nil)

	r, err := g.Geocode(context.Background(), "Herzl 1")
	require.NoError(t, err)
	assert.Equal(t, 32.06, r.Location.Lat)
	assert.Equal(t, entity.GeocodeSourceGoogle, r.Source)
	assert.False(t, r.Approximate)

	_, err = g.Geocode(context.Background(), "nowhere")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNominatim_LimitaYEnviaPais(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("countrycodes") != "il" || r.Header.Get("User-Agent") == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`[{"lat":"31.7683","lon":"35.2137","display_name":"Jerusalem"}]`))
	}))
	defer srv.Close()
	n := NewNominatim(srv.URL, "il", srv.Client(), nil)

	start := time.Now()
	for i := 0; i < 2; i++ {
		r, err := n.Geocode(context.Background(), "Jerusalem")
		require.NoError(t, err)
		assert.InDelta(t, 35.2137, r.Location.Lng, 1e-9)
	}
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond, "una petición por segundo")
	assert.Equal(t, int32(2), calls.Load())
}

func TestCentroid_EstableYAproximado(t *testing.T) {
	c := Centroid{}
	a, _ := c.Geocode(context.Background(), "רחוב יפו 10, ירושלים")
	b, _ := c.Geocode(context.Background(), "רחוב יפו 10, ירושלים")
	other, _ := c.Geocode(context.Background(), "Somewhere unknown")

	assert.True(t, a.Approximate)
	assert.Equal(t, a.Location, b.Location, "misma dirección, mismo punto")
	assert.InDelta(t, 31.7683, a.Location.Lat, 0.006)
	assert.InDelta(t, 34.7818, other.Location.Lng, 0.011, "por defecto Tel Aviv")
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "herzl 1 tel aviv", NormalizeKey("  HERZL 1,   Tel-Aviv "))
	assert.Equal(t, "שלום", NormalizeKey("שָׁלוֹם"))
	assert.Equal(t, "", NormalizeKey(" ,; "))
}

// ──────────────────────────────────────────────────────────────────────────────
// Cadena con caché
// ──────────────────────────────────────────────────────────────────────────────

type memCache struct {
	mu   sync.Mutex
	data map[string]entity.GeocodeResult
}

func (m *memCache) Get(_ context.Context, key string) (*entity.GeocodeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memCache) Put(_ context.Context, key string, r entity.GeocodeResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string]entity.GeocodeResult{}
	}
	m.data[key] = r
	return nil
}

func (m *memCache) PurgeOlderThan(context.Context, time.Time) (int64, error) { return 0, nil }

type stubGeocoder struct {
	calls  int
	result *entity.GeocodeResult
	err    error
}

func (s *stubGeocoder) Geocode(_ context.Context, address string) (*entity.GeocodeResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	r := *s.result
	r.Query = address
	return &r, nil
}

func TestGeocodeChain_CacheLuegoProveedoresLuegoCentroide(t *testing.T) {
	cache := &memCache{}
	failing := &stubGeocoder{err: domain.ErrMapsUnavailable}
	ok := &stubGeocoder{result: &entity.GeocodeResult{Location: entity.LatLng{Lat: 1, Lng: 2}, Source: entity.GeocodeSourceNominatim}}
	chain := NewGeocodeChain(cache, failing, ok)

	r, err := chain.Geocode(context.Background(), "Herzl 1")
	require.NoError(t, err)
	assert.Equal(t, entity.GeocodeSourceNominatim, r.Source)

	r, err = chain.Geocode(context.Background(), "herzl  1")
	require.NoError(t, err)
	assert.Equal(t, entity.GeocodeSourceCache, r.Source, "la clave normalizada coincide")
	assert.Equal(t, 1, ok.calls)

	none := NewGeocodeChain(nil, &stubGeocoder{err: domain.ErrNotFound})
	r, err = none.Geocode(context.Background(), "Haifa port")
	require.NoError(t, err)
	assert.True(t, r.Approximate)
	assert.Equal(t, entity.GeocodeSourceCentroid, r.Source)

	_, err = none.Geocode(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
