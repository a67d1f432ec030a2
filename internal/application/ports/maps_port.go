package ports

import (
	"context"

	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
)

// DirectionsRequest ruta desde el origen por los waypoints hasta el destino.
type DirectionsRequest struct {
	Origin      entity.LatLng
	Destination entity.LatLng
	Waypoints   []entity.LatLng
	Optimize    bool
}

// Directions puerto hacia el servicio de direcciones. El orden óptimo de los
// waypoints lo decide el proveedor y se devuelve en RoutePlan.WaypointOrder.
type Directions interface {
	Route(ctx context.Context, req DirectionsRequest) (*entity.RoutePlan, error)
}

// Geocoder resuelve una dirección a coordenadas. Devuelve domain.ErrNotFound si
// el proveedor no encontró la dirección.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*entity.GeocodeResult, error)
}

// RouteSheetRenderer genera la hoja de ruta imprimible.
type RouteSheetRenderer interface {
	RenderRouteSheet(plan *entity.RoutePlan) ([]byte, error)
}
