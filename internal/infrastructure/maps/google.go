// Package maps adapta los servicios de direcciones y geocodificación: Google Maps,
// Nominatim (OpenStreetMap) y un último recurso por centroides de ciudad.
package maps

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/jhoicas/scale-monitor-api/internal/application/ports"
	"github.com/jhoicas/scale-monitor-api/internal/domain"
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
)

var (
	_ ports.Directions = (*GoogleDirections)(nil)
	_ ports.Geocoder   = (*GoogleGeocoder)(nil)
)

// Recorder cuenta las llamadas a los servicios de mapas.
type Recorder interface {
	ObserveMaps(api string, ok bool)
}

type nopRecorder struct{}

func (nopRecorder) ObserveMaps(string, bool) {}

func recorderOrNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

func httpClientOrDefault(hc *http.Client) *http.Client {
	if hc == nil {
		return &http.Client{Timeout: 15 * time.Second}
	}
	return hc
}

// GoogleDirections adaptador de la Directions API con optimización de waypoints.
type GoogleDirections struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	metrics    Recorder
}

// NewGoogleDirections construye el adaptador.
func NewGoogleDirections(endpoint, apiKey string, hc *http.Client, metrics Recorder) *GoogleDirections {
	return &GoogleDirections{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: httpClientOrDefault(hc),
		metrics:    recorderOrNop(metrics),
	}
}

// Route pide la ruta en auto con tráfico estimado a la hora de salida actual.
// Sin API key no hay ruta posible: devuelve ErrMapsUnavailable sin llamar.
func (g *GoogleDirections) Route(ctx context.Context, req ports.DirectionsRequest) (*entity.RoutePlan, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("%w: MAPS_API_KEY no configurada", domain.ErrMapsUnavailable)
	}
	q := url.Values{}
	q.Set("origin", req.Origin.String())
	q.Set("destination", req.Destination.String())
	q.Set("mode", "driving")
	q.Set("departure_time", "now")
	q.Set("traffic_model", "best_guess")
	q.Set("key", g.apiKey)
	if len(req.Waypoints) > 0 {
		parts := make([]string, 0, len(req.Waypoints)+1)
		if req.Optimize {
			parts = append(parts, "optimize:true")
		}
		for _, w := range req.Waypoints {
			parts = append(parts, w.String())
		}
		q.Set("waypoints", strings.Join(parts, "|"))
	}

	raw, err := getJSON(ctx, g.httpClient, g.endpoint, q, nil)
	if err != nil {
		g.metrics.ObserveMaps("directions", false)
		return nil, err
	}
	plan, err := parseDirections(raw)
	g.metrics.ObserveMaps("directions", err == nil)
	return plan, err
}

// parseDirections extrae la primera ruta de la respuesta de la Directions API.
func parseDirections(raw []byte) (*entity.RoutePlan, error) {
	if err := googleStatus(raw); err != nil {
		return nil, err
	}
	route := gjson.GetBytes(raw, "routes.0")
	if !route.Exists() {
		return nil, fmt.Errorf("%w: ruta vacía", domain.ErrNotFound)
	}

	plan := &entity.RoutePlan{WaypointOrder: []int{}}
	for _, i := range route.Get("waypoint_order").Array() {
		plan.WaypointOrder = append(plan.WaypointOrder, int(i.Int()))
	}
	for _, l := range route.Get("legs").Array() {
		leg := entity.RouteLeg{
			StartAddress:             l.Get("start_address").String(),
			EndAddress:               l.Get("end_address").String(),
			StartLocation:            latLng(l.Get("start_location")),
			EndLocation:              latLng(l.Get("end_location")),
			DistanceMeters:           int(l.Get("distance.value").Int()),
			DistanceText:             l.Get("distance.text").String(),
			DurationSeconds:          int(l.Get("duration.value").Int()),
			DurationInTrafficSeconds: int(l.Get("duration_in_traffic.value").Int()),
			DurationText:             l.Get("duration.text").String(),
		}
		for _, s := range l.Get("steps").Array() {
			leg.Steps = append(leg.Steps, entity.RouteStep{
				Instruction:     stripHTML(s.Get("html_instructions").String()),
				DistanceMeters:  int(s.Get("distance.value").Int()),
				DurationSeconds: int(s.Get("duration.value").Int()),
				Maneuver:        s.Get("maneuver").String(),
			})
		}
		plan.Legs = append(plan.Legs, leg)
		plan.TotalDistanceMeters += leg.DistanceMeters
		plan.TotalDurationSeconds += leg.EffectiveDuration()
	}
	return plan, nil
}

// GoogleGeocoder adaptador de la Geocoding API.
type GoogleGeocoder struct {
	endpoint   string
	apiKey     string
	region     string
	httpClient *http.Client
	metrics    Recorder
}

// NewGoogleGeocoder construye el adaptador. region sesga los resultados (ej. "il").
func NewGoogleGeocoder(endpoint, apiKey, region string, hc *http.Client, metrics Recorder) *GoogleGeocoder {
	return &GoogleGeocoder{
		endpoint:   endpoint,
		apiKey:     apiKey,
		region:     region,
		httpClient: httpClientOrDefault(hc),
		metrics:    recorderOrNop(metrics),
	}
}

// Geocode resuelve la dirección al primer resultado.
func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (*entity.GeocodeResult, error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("key", g.apiKey)
	if g.region != "" {
		q.Set("region", g.region)
	}
	raw, err := getJSON(ctx, g.httpClient, g.endpoint, q, nil)
	if err == nil {
		err = googleStatus(raw)
	}
	g.metrics.ObserveMaps("geocode", err == nil)
	if err != nil {
		return nil, err
	}
	first := gjson.GetBytes(raw, "results.0")
	if !first.Exists() {
		return nil, domain.ErrNotFound
	}
	return &entity.GeocodeResult{
		Query:            address,
		Location:         latLng(first.Get("geometry.location")),
		FormattedAddress: first.Get("formatted_address").String(),
		Source:           entity.GeocodeSourceGoogle,
		Approximate:      first.Get("geometry.location_type").String() == "APPROXIMATE",
	}, nil
}

// googleStatus traduce el campo "status" de las APIs de Google.
func googleStatus(raw []byte) error {
	status := gjson.GetBytes(raw, "status").String()
	switch status {
	case "OK":
		return nil
	case "ZERO_RESULTS", "NOT_FOUND":
		return fmt.Errorf("%w: %s", domain.ErrNotFound, status)
	case "INVALID_REQUEST", "MAX_WAYPOINTS_EXCEEDED", "MAX_ROUTE_LENGTH_EXCEEDED":
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, status)
	}
	msg := gjson.GetBytes(raw, "error_message").String()
	log.Warn().Str("status", status).Str("message", msg).Msg("maps: google rechazó la solicitud")
	return fmt.Errorf("%w: %s %s", domain.ErrMapsUnavailable, status, msg)
}

func latLng(r gjson.Result) entity.LatLng {
	return entity.LatLng{Lat: r.Get("lat").Float(), Lng: r.Get("lng").Float()}
}

var htmlTag = regexp.MustCompile(`<[^>]*>`)

// stripHTML deja el texto plano de las instrucciones de Google.
func stripHTML(s string) string {
	s = html.UnescapeString(htmlTag.ReplaceAllString(s, " "))
	return strings.Join(strings.Fields(s), " ")
}

// getJSON GET con query y devuelve el cuerpo; los status no 2xx son ErrMapsUnavailable.
func getJSON(ctx context.Context, hc *http.Client, endpoint string, q url.Values, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("maps: crear request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrMapsUnavailable, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("maps: leer respuesta: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d", domain.ErrMapsUnavailable, resp.StatusCode)
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: respuesta no JSON", domain.ErrMapsUnavailable)
	}
	return raw, nil
}
