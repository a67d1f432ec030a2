package maps

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/jhoicas/scale-monitor-api/internal/application/ports"
	"github.com/jhoicas/scale-monitor-api/internal/domain"
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
)

var _ ports.Geocoder = (*Nominatim)(nil)

const nominatimUserAgent = "scale-monitor-api/1.0"

// Nominatim geocodificador de OpenStreetMap. La política de uso exige como
// máximo una petición por segundo y un User-Agent identificable.
type Nominatim struct {
	endpoint     string
	countryCodes string
	limiter      *rate.Limiter
	httpClient   *http.Client
	metrics      Recorder
}

// NewNominatim construye el adaptador limitado a 1 req/s.
func NewNominatim(endpoint, countryCodes string, hc *http.Client, metrics Recorder) *Nominatim {
	return &Nominatim{
		endpoint:     endpoint,
		countryCodes: countryCodes,
		limiter:      rate.NewLimiter(rate.Limit(1), 1),
		httpClient:   httpClientOrDefault(hc),
		metrics:      recorderOrNop(metrics),
	}
}

// Geocode espera su turno en el limitador y toma el primer resultado.
func (n *Nominatim) Geocode(ctx context.Context, address string) (*entity.GeocodeResult, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")
	if n.countryCodes != "" {
		q.Set("countrycodes", n.countryCodes)
	}
	raw, err := getJSON(ctx, n.httpClient, n.endpoint, q, http.Header{"User-Agent": {nominatimUserAgent}})
	n.metrics.ObserveMaps("nominatim", err == nil)
	if err != nil {
		return nil, err
	}
	first := gjson.GetBytes(raw, "0")
	if !first.Exists() {
		return nil, domain.ErrNotFound
	}
	return &entity.GeocodeResult{
		Query:            address,
		Location:         entity.LatLng{Lat: first.Get("lat").Float(), Lng: first.Get("lon").Float()},
		FormattedAddress: first.Get("display_name").String(),
		Source:           entity.GeocodeSourceNominatim,
	}, nil
}
