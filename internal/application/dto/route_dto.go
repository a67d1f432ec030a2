package dto

import "github.com/jhoicas/scale-monitor-api/internal/domain/entity"

// RouteStopRequest parada: un cliente (se toman sus coordenadas o dirección) o un punto libre.
type RouteStopRequest struct {
	CustomerID string         `json:"customer_id"`
	Name       string         `json:"name"`
	Address    string         `json:"address"`
	Location   *entity.LatLng `json:"location"`
}

// PlanRouteRequest body para POST /api/routes/plan. El destino es el origen si
// ReturnToOrigin, si no End, y sin End la última parada.
type PlanRouteRequest struct {
	Origin         RouteStopRequest   `json:"origin" validate:"required"`
	Stops          []RouteStopRequest `json:"stops" validate:"required,min=1,max=25"`
	End            *RouteStopRequest  `json:"end"`
	ReturnToOrigin bool               `json:"return_to_origin"`
	Save           bool               `json:"save"`
}

// RoutePlanListResponse rutas guardadas del vendedor.
type RoutePlanListResponse struct {
	Items []*entity.RoutePlan `json:"items"`
}

// GeocodeRequest body para POST /api/maps/geocode.
type GeocodeRequest struct {
	Addresses []string `json:"addresses" validate:"required,min=1,max=25"`
}

// GeocodeResponse un resultado por dirección, en el orden de la petición.
type GeocodeResponse struct {
	Items []*entity.GeocodeResult `json:"items"`
}
