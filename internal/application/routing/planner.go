// Package routing planifica rutas de entrega por los clientes seleccionados,
// delegando la optimización del orden al servicio de direcciones.
package routing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/scale-monitor-api/internal/application/dto"
	"github.com/jhoicas/scale-monitor-api/internal/application/ports"
	"github.com/jhoicas/scale-monitor-api/internal/domain"
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
	"github.com/jhoicas/scale-monitor-api/internal/domain/repository"
)

const (
	// MaxStops límite de waypoints del servicio de direcciones.
	MaxStops = 25
	// cacheRetention tiempo tras el cual se olvida una ruta calculada.
	cacheRetention = 10 * time.Minute
	geocodeFanOut  = 4
)

// CustomerSource resuelve un cliente para tomar sus coordenadas o su dirección.
type CustomerSource interface {
	Get(ctx context.Context, id string) (*entity.Customer, error)
}

// Recorder métricas de reutilización de rutas.
type Recorder interface {
	RouteCacheHit()
}

// Config tiempos del planificador.
type Config struct {
	// DebounceDelay espera antes de calcular; una petición más nueva de la misma
	// sesión reemplaza a la que espera. 0 desactiva la espera.
	DebounceDelay time.Duration
	// MinInterval una ruta idéntica calculada hace menos de esto se reutiliza.
	MinInterval time.Duration
}

type cachedRoute struct {
	plan *entity.RoutePlan
	at   time.Time
}

// Planner calcula rutas. Es seguro para uso concurrente.
type Planner struct {
	directions ports.Directions
	geocoder   ports.Geocoder
	customers  CustomerSource
	plans      repository.RoutePlanRepository
	sheets     ports.RouteSheetRenderer
	metrics    Recorder
	cfg        Config

	group     singleflight.Group
	debouncer *debouncer

	mu    sync.Mutex
	cache map[string]cachedRoute
	now   func() time.Time
}

// NewPlanner construye el planificador. plans puede ser nil (sin rutas guardadas).
func NewPlanner(directions ports.Directions, geocoder ports.Geocoder, customers CustomerSource, plans repository.RoutePlanRepository, sheets ports.RouteSheetRenderer, metrics Recorder, cfg Config) *Planner {
	return &Planner{
		directions: directions,
		geocoder:   geocoder,
		customers:  customers,
		plans:      plans,
		sheets:     sheets,
		metrics:    metrics,
		cfg:        cfg,
		debouncer:  newDebouncer(cfg.DebounceDelay),
		cache:      make(map[string]cachedRoute),
		now:        time.Now,
	}
}

// Plan resuelve las paradas, espera el debounce de la sesión y calcula la ruta
// optimizada. Devuelve domain.ErrSuperseded si otra petición de la sesión la reemplazó.
func (p *Planner) Plan(ctx context.Context, sessionID, vendorID string, req dto.PlanRouteRequest) (*entity.RoutePlan, error) {
	if len(req.Stops) == 0 {
		return nil, fmt.Errorf("%w: se requiere al menos una parada", domain.ErrInvalidInput)
	}
	if len(req.Stops) > MaxStops {
		return nil, fmt.Errorf("%w: máximo %d paradas", domain.ErrInvalidInput, MaxStops)
	}

	if err := p.debouncer.wait(ctx, sessionID); err != nil {
		return nil, err
	}

	origin, stops, end, err := p.resolveAll(ctx, req)
	if err != nil {
		return nil, err
	}

	dreq := ports.DirectionsRequest{Origin: *origin.Location, Optimize: true}
	waypoints := stops
	var tail *entity.Stop
	switch {
	case req.ReturnToOrigin:
		dreq.Destination = *origin.Location
	case end != nil:
		dreq.Destination = *end.Location
		tail = end
	default:
		last := stops[len(stops)-1]
		waypoints = stops[:len(stops)-1]
		dreq.Destination = *last.Location
		tail = &last
	}
	for _, s := range waypoints {
		dreq.Waypoints = append(dreq.Waypoints, *s.Location)
	}

	route, err := p.route(ctx, dreq)
	if err != nil {
		return nil, err
	}

	plan := *route
	plan.Origin = origin
	plan.ReturnToOrigin = req.ReturnToOrigin
	plan.VendorID = vendorID
	plan.CreatedAt = p.now().UTC()
	plan.OrderedStops = orderStops(waypoints, route.WaypointOrder)
	if tail != nil {
		plan.OrderedStops = append(plan.OrderedStops, *tail)
	}

	if req.Save {
		if p.plans == nil {
			log.Warn().Str("session_id", sessionID).Msg("routing: sin base de datos, la ruta no se guarda")
		} else {
			plan.ID = uuid.New().String()
			if err := p.plans.Create(ctx, &plan); err != nil {
				return nil, err
			}
		}
	}
	return &plan, nil
}

// Get ruta guardada del vendedor.
func (p *Planner) Get(ctx context.Context, vendorID, id string) (*entity.RoutePlan, error) {
	if p.plans == nil {
		return nil, domain.ErrNotFound
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	plan, err := p.plans.GetByID(ctx, vendorID, id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrNotFound
	}
	return plan, nil
}

// List rutas guardadas del vendedor, más recientes primero.
func (p *Planner) List(ctx context.Context, vendorID string, limit int) ([]*entity.RoutePlan, error) {
	if p.plans == nil {
		return []*entity.RoutePlan{}, nil
	}
	return p.plans.ListByVendor(ctx, vendorID, limit)
}

// Sheet hoja de ruta en PDF de una ruta guardada.
func (p *Planner) Sheet(ctx context.Context, vendorID, id string) ([]byte, error) {
	plan, err := p.Get(ctx, vendorID, id)
	if err != nil {
		return nil, err
	}
	return p.sheets.RenderRouteSheet(plan)
}

// RenderSheet hoja de ruta de una ruta recién calculada (sin guardar).
func (p *Planner) RenderSheet(plan *entity.RoutePlan) ([]byte, error) {
	return p.sheets.RenderRouteSheet(plan)
}

// route llama al servicio de direcciones reutilizando resultados recientes y
// compartiendo la llamada entre peticiones idénticas en vuelo.
func (p *Planner) route(ctx context.Context, req ports.DirectionsRequest) (*entity.RoutePlan, error) {
	key := routeKey(req)

	if plan, ok := p.cached(key); ok {
		log.Debug().Str("route_key", key).Msg("routing: ruta reutilizada")
		return plan, nil
	}

	v, err, _ := p.group.Do(key, func() (any, error) {
		if plan, ok := p.cached(key); ok {
			return plan, nil
		}
		plan, err := p.directions.Route(context.WithoutCancel(ctx), req)
		if err != nil {
			return nil, err
		}
		p.store(key, plan)
		return plan, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entity.RoutePlan), nil
}

func (p *Planner) cached(key string) (*entity.RoutePlan, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.cache[key]
	if !ok || p.now().Sub(c.at) >= p.cfg.MinInterval {
		return nil, false
	}
	if p.metrics != nil {
		p.metrics.RouteCacheHit()
	}
	plan := *c.plan
	plan.Cached = true
	return &plan, true
}

func (p *Planner) store(key string, plan *entity.RoutePlan) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	for k, c := range p.cache {
		if now.Sub(c.at) > cacheRetention {
			delete(p.cache, k)
		}
	}
	p.cache[key] = cachedRoute{plan: plan, at: now}
}

// routeKey origen, destino y waypoints en el orden de la petición. WaypointOrder
// es una permutación de ese orden, así que dos peticiones con las mismas paradas
// en otro orden no pueden compartir resultado.
func routeKey(req ports.DirectionsRequest) string {
	wps := make([]string, 0, len(req.Waypoints))
	for _, w := range req.Waypoints {
		wps = append(wps, w.String())
	}
	return req.Origin.String() + "|" + req.Destination.String() + "|" + strings.Join(wps, "|")
}

// orderStops aplica el orden devuelto por el proveedor. Un orden incompleto o
// inválido deja las paradas como llegaron.
func orderStops(stops []entity.Stop, order []int) []entity.Stop {
	out := make([]entity.Stop, 0, len(stops))
	if len(order) != len(stops) {
		return append(out, stops...)
	}
	seen := make([]bool, len(stops))
	for _, i := range order {
		if i < 0 || i >= len(stops) || seen[i] {
			return append(out[:0], stops...)
		}
		seen[i] = true
		out = append(out, stops[i])
	}
	return out
}

// resolveAll resuelve origen, paradas y fin en paralelo.
func (p *Planner) resolveAll(ctx context.Context, req dto.PlanRouteRequest) (entity.Stop, []entity.Stop, *entity.Stop, error) {
	all := make([]dto.RouteStopRequest, 0, len(req.Stops)+2)
	all = append(all, req.Origin)
	all = append(all, req.Stops...)
	if req.End != nil && !req.ReturnToOrigin {
		all = append(all, *req.End)
	}

	resolved := make([]entity.Stop, len(all))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(geocodeFanOut)
	for i, in := range all {
		g.Go(func() error {
			id := fmt.Sprintf("stop-%d", i)
			if i == 0 {
				id = "origin"
			}
			s, err := p.resolve(gctx, id, in)
			if err != nil {
				return err
			}
			resolved[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return entity.Stop{}, nil, nil, err
	}

	stops := resolved[1 : len(req.Stops)+1]
	var end *entity.Stop
	if len(resolved) > len(req.Stops)+1 {
		end = &resolved[len(resolved)-1]
	}
	return resolved[0], stops, end, nil
}

// resolve coordenadas de una parada: las explícitas, las del cliente o geocodificando
// la dirección (del cliente o la libre).
func (p *Planner) resolve(ctx context.Context, id string, in dto.RouteStopRequest) (entity.Stop, error) {
	s := entity.Stop{ID: id, Name: strings.TrimSpace(in.Name), Address: strings.TrimSpace(in.Address), Location: in.Location}

	if in.CustomerID != "" && s.Location == nil {
		if p.customers == nil {
			return s, fmt.Errorf("%w: no se pueden resolver clientes", domain.ErrInvalidInput)
		}
		c, err := p.customers.Get(ctx, in.CustomerID)
		if err != nil {
			return s, err
		}
		s.ID = c.ID
		if s.Name == "" {
			s.Name = c.Name
		}
		if s.Address == "" {
			s.Address = c.Address
		}
		if loc, ok := c.Location(); ok {
			s.Location = &loc
		}
	} else if in.CustomerID != "" {
		s.ID = in.CustomerID
	}

	if s.Location != nil {
		if err := validLocation(*s.Location); err != nil {
			return s, err
		}
		return s, nil
	}
	if s.Address == "" {
		return s, fmt.Errorf("%w: la parada %q no tiene coordenadas ni dirección", domain.ErrInvalidInput, nonEmpty(s.Name, id))
	}

	res, err := p.geocoder.Geocode(ctx, s.Address)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return s, fmt.Errorf("%w: no se encontró la dirección %q", domain.ErrInvalidInput, s.Address)
		}
		return s, err
	}
	loc := res.Location
	s.Location = &loc
	s.Approximate = res.Approximate
	return s, nil
}

// Geocode resuelve varias direcciones con la misma cadena que usan las paradas,
// en paralelo y conservando el orden de entrada.
func (p *Planner) Geocode(ctx context.Context, addresses []string) ([]*entity.GeocodeResult, error) {
	if len(addresses) == 0 {
		return nil, fmt.Errorf("%w: addresses es requerido", domain.ErrInvalidInput)
	}
	if len(addresses) > MaxStops {
		return nil, fmt.Errorf("%w: máximo %d direcciones", domain.ErrInvalidInput, MaxStops)
	}
	queries := make([]string, len(addresses))
	for i, a := range addresses {
		if queries[i] = strings.TrimSpace(a); queries[i] == "" {
			return nil, fmt.Errorf("%w: la dirección %d está vacía", domain.ErrInvalidInput, i+1)
		}
	}

	out := make([]*entity.GeocodeResult, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(geocodeFanOut)
	for i, q := range queries {
		g.Go(func() error {
			r, err := p.geocoder.Geocode(gctx, q)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func validLocation(l entity.LatLng) error {
	if l.Lat < -90 || l.Lat > 90 || l.Lng < -180 || l.Lng > 180 {
		return fmt.Errorf("%w: coordenadas fuera de rango", domain.ErrInvalidInput)
	}
	return nil
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
