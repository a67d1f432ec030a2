package entity

import (
	"fmt"
	"time"
)

// LatLng coordenada geográfica.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String formato "lat,lng" que aceptan las APIs de mapas.
func (l LatLng) String() string {
	return fmt.Sprintf("%.6f,%.6f", l.Lat, l.Lng)
}

// Stop parada de una ruta (cliente seleccionado u origen).
type Stop struct {
	ID          string  `json:"id"`
	Name        string  `json:"name,omitempty"`
	Address     string  `json:"address,omitempty"`
	Location    *LatLng `json:"location,omitempty"`
	Approximate bool    `json:"approximate,omitempty"`
}

// RouteStep instrucción de manejo dentro de un tramo.
type RouteStep struct {
	Instruction     string `json:"instruction"`
	DistanceMeters  int    `json:"distance_meters"`
	DurationSeconds int    `json:"duration_seconds"`
	Maneuver        string `json:"maneuver,omitempty"`
}

// RouteLeg tramo entre dos paradas consecutivas.
type RouteLeg struct {
	StartAddress             string      `json:"start_address"`
	EndAddress               string      `json:"end_address"`
	StartLocation            LatLng      `json:"start_location"`
	EndLocation              LatLng      `json:"end_location"`
	DistanceMeters           int         `json:"distance_meters"`
	DistanceText             string      `json:"distance_text,omitempty"`
	DurationSeconds          int         `json:"duration_seconds"`
	DurationInTrafficSeconds int         `json:"duration_in_traffic_seconds,omitempty"`
	DurationText             string      `json:"duration_text,omitempty"`
	Steps                    []RouteStep `json:"steps,omitempty"`
}

// EffectiveDuration usa la duración con tráfico si el proveedor la informó.
func (l RouteLeg) EffectiveDuration() int {
	if l.DurationInTrafficSeconds > 0 {
		return l.DurationInTrafficSeconds
	}
	return l.DurationSeconds
}

// RoutePlan resultado de la optimización delegada al servicio de mapas.
type RoutePlan struct {
	ID                   string     `json:"id,omitempty"`
	VendorID             string     `json:"vendor_id,omitempty"`
	Origin               Stop       `json:"origin"`
	OrderedStops         []Stop     `json:"ordered_stops"`
	WaypointOrder        []int      `json:"waypoint_order"`
	Legs                 []RouteLeg `json:"legs"`
	TotalDistanceMeters  int        `json:"total_distance_meters"`
	TotalDurationSeconds int        `json:"total_duration_seconds"`
	ReturnToOrigin       bool       `json:"return_to_origin"`
	Cached               bool       `json:"cached,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// GeocodeResult dirección resuelta a coordenadas y la fuente que la resolvió.
type GeocodeResult struct {
	Query            string `json:"query"`
	Location         LatLng `json:"location"`
	FormattedAddress string `json:"formatted_address,omitempty"`
	Source           string `json:"source"` // cache | google | nominatim | centroid
	Approximate      bool   `json:"approximate"`
}

// Fuentes de geocodificación.
const (
	GeocodeSourceCache     = "cache"
	GeocodeSourceGoogle    = "google"
	GeocodeSourceNominatim = "nominatim"
	GeocodeSourceCentroid  = "centroid"
)
