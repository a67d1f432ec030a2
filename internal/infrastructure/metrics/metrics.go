// Package metrics registra las llamadas al backend y al servicio de mapas en
// Prometheus y expone un resumen por endpoint para el panel de estadísticas.
package metrics

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scale_monitor"

// Metrics colectores de la aplicación sobre un registry propio.
type Metrics struct {
	Registry *prometheus.Registry

	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	mapsRequests     *prometheus.CounterVec
	routeCacheHits   prometheus.Counter
	httpRequests     *prometheus.CounterVec
}

// New crea y registra los colectores. withRuntime añade los colectores de proceso y Go.
func New(withRuntime bool) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Llamadas al backend REST por endpoint, método y status.",
		}, []string{"endpoint", "method", "status"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Duración de las llamadas al backend REST.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}, []string{"endpoint", "method"}),
		mapsRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "maps",
			Name:      "requests_total",
			Help:      "Llamadas a servicios de mapas (directions, geocode, nominatim).",
		}, []string{"api", "outcome"}),
		routeCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routes",
			Name:      "cache_hits_total",
			Help:      "Rutas servidas desde la caché de intervalo mínimo o compartidas en vuelo.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Peticiones HTTP atendidas por ruta, método y status.",
		}, []string{"route", "method", "status"}),
	}
	m.Registry.MustRegister(m.upstreamRequests, m.upstreamDuration, m.mapsRequests, m.routeCacheHits, m.httpRequests)
	if withRuntime {
		m.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return m
}

// ObserveUpstream registra una llamada al backend. status 0 = error de red.
func (m *Metrics) ObserveUpstream(endpoint, method string, status int, elapsed time.Duration) {
	m.upstreamRequests.WithLabelValues(endpoint, method, statusLabel(status)).Inc()
	m.upstreamDuration.WithLabelValues(endpoint, method).Observe(elapsed.Seconds())
}

// ObserveMaps registra una llamada a un servicio de mapas.
func (m *Metrics) ObserveMaps(api string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.mapsRequests.WithLabelValues(api, outcome).Inc()
}

// RouteCacheHit cuenta una ruta servida sin llamar al proveedor.
func (m *Metrics) RouteCacheHit() { m.routeCacheHits.Inc() }

// ObserveHTTP registra una petición atendida por el servidor.
func (m *Metrics) ObserveHTTP(route, method string, status int) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}

// Handler expone el registry en formato Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Reset pone a cero los contadores del resumen.
func (m *Metrics) Reset() {
	m.upstreamRequests.Reset()
	m.upstreamDuration.Reset()
	m.mapsRequests.Reset()
}

// Breakdown total y desglose de llamadas.
type Breakdown struct {
	Total     int            `json:"total"`
	Breakdown map[string]int `json:"breakdown"`
}

// Stats resumen para el panel de estadísticas.
type Stats struct {
	ServerAPI Breakdown `json:"server_api"`
	Maps      Breakdown `json:"maps"`
}

// Snapshot agrega los contadores: "METHOD endpoint" para el backend y "api" para mapas.
func (m *Metrics) Snapshot() (Stats, error) {
	families, err := m.Registry.Gather()
	if err != nil {
		return Stats{}, err
	}
	st := Stats{
		ServerAPI: Breakdown{Breakdown: map[string]int{}},
		Maps:      Breakdown{Breakdown: map[string]int{}},
	}
	for _, mf := range families {
		var target *Breakdown
		var key func(labels map[string]string) string
		switch mf.GetName() {
		case namespace + "_upstream_requests_total":
			target = &st.ServerAPI
			key = func(l map[string]string) string { return l["method"] + " " + l["endpoint"] }
		case namespace + "_maps_requests_total":
			target = &st.Maps
			key = func(l map[string]string) string { return l["api"] }
		default:
			continue
		}
		for _, metric := range mf.GetMetric() {
			labels := make(map[string]string, len(metric.GetLabel()))
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			n := int(metric.GetCounter().GetValue())
			target.Total += n
			target.Breakdown[key(labels)] += n
		}
	}
	return st, nil
}

// TopEndpoints endpoints del backend ordenados por número de llamadas.
func (s Stats) TopEndpoints(n int) []string {
	keys := make([]string, 0, len(s.ServerAPI.Breakdown))
	for k := range s.ServerAPI.Breakdown {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := s.ServerAPI.Breakdown[keys[i]], s.ServerAPI.Breakdown[keys[j]]
		if ci != cj {
			return ci > cj
		}
		return strings.Compare(keys[i], keys[j]) < 0
	})
	if n > 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

func statusLabel(status int) string {
	if status == 0 {
		return "network_error"
	}
	return strconv.Itoa(status)
}
