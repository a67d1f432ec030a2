package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/scale-monitor-api/internal/domain"
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
	"github.com/jhoicas/scale-monitor-api/internal/domain/repository"
)

var _ repository.RoutePlanRepository = (*RoutePlanRepo)(nil)

// RoutePlanRepo rutas guardadas: cabecera en route_plans, paradas en route_plan_stops
// y los tramos como JSONB.
type RoutePlanRepo struct {
	pool *pgxpool.Pool
	tx   *TxRunner
}

// NewRoutePlanRepository construye el adaptador.
func NewRoutePlanRepository(pool *pgxpool.Pool) *RoutePlanRepo {
	return &RoutePlanRepo{pool: pool, tx: NewTxRunner(pool)}
}

// Create guarda la ruta y sus paradas en una transacción.
func (r *RoutePlanRepo) Create(ctx context.Context, p *entity.RoutePlan) error {
	legs, err := json.Marshal(p.Legs)
	if err != nil {
		return fmt.Errorf("serializar tramos: %w", err)
	}
	origin := p.Origin.Location
	if origin == nil {
		return fmt.Errorf("%w: origen sin coordenadas", domain.ErrInvalidInput)
	}

	return r.tx.Run(ctx, func(q Querier) error {
		_, err := q.Exec(ctx, `
			INSERT INTO route_plans (id, vendor_id, origin_id, origin_name, origin_address, origin_lat, origin_lng,
				return_to_origin, waypoint_order, total_distance_meters, total_duration_seconds, legs, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			p.ID, p.VendorID, p.Origin.ID, p.Origin.Name, p.Origin.Address, coord(origin.Lat), coord(origin.Lng),
			p.ReturnToOrigin, p.WaypointOrder, p.TotalDistanceMeters, p.TotalDurationSeconds, legs, p.CreatedAt,
		)
		if err != nil {
			return insertPlanErr(err, p.ID)
		}

		batch := &pgx.Batch{}
		for i, s := range p.OrderedStops {
			var lat, lng decimal.Decimal
			if s.Location != nil {
				lat, lng = coord(s.Location.Lat), coord(s.Location.Lng)
			}
			batch.Queue(`
				INSERT INTO route_plan_stops (plan_id, position, stop_id, name, address, lat, lng, approximate)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				p.ID, i, s.ID, s.Name, s.Address, lat, lng, s.Approximate,
			)
		}
		if batch.Len() == 0 {
			return nil
		}
		tx, ok := q.(pgx.Tx)
		if !ok {
			return errors.New("insert route stops: se requiere transacción")
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert route stops: %w", err)
		}
		return nil
	})
}

// GetByID devuelve la ruta del vendedor o (nil, nil).
func (r *RoutePlanRepo) GetByID(ctx context.Context, vendorID, id string) (*entity.RoutePlan, error) {
	query := `
		SELECT id, vendor_id, origin_id, origin_name, origin_address, origin_lat, origin_lng,
			return_to_origin, waypoint_order, total_distance_meters, total_duration_seconds, legs, created_at
		FROM route_plans WHERE id = $1 AND vendor_id = $2`
	p, err := scanPlan(r.pool.QueryRow(ctx, query, id, vendorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get route plan: %w", err)
	}
	stops, err := r.stops(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.OrderedStops = stops
	return p, nil
}

// ListByVendor rutas más recientes del vendedor, sin paradas.
func (r *RoutePlanRepo) ListByVendor(ctx context.Context, vendorID string, limit int) ([]*entity.RoutePlan, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, vendor_id, origin_id, origin_name, origin_address, origin_lat, origin_lng,
			return_to_origin, waypoint_order, total_distance_meters, total_duration_seconds, legs, created_at
		FROM route_plans WHERE vendor_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, vendorID, limit)
	if err != nil {
		return nil, fmt.Errorf("list route plans: %w", err)
	}
	defer rows.Close()

	var list []*entity.RoutePlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan route plan: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// DeleteOlderThan borra las rutas (y sus paradas por cascada) anteriores a before.
func (r *RoutePlanRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM route_plans WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete route plans: %w", err)
	}
	return cmd.RowsAffected(), nil
}

func (r *RoutePlanRepo) stops(ctx context.Context, planID string) ([]entity.Stop, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT stop_id, name, address, lat, lng, approximate
		FROM route_plan_stops WHERE plan_id = $1 ORDER BY position`, planID)
	if err != nil {
		return nil, fmt.Errorf("list route stops: %w", err)
	}
	defer rows.Close()

	var stops []entity.Stop
	for rows.Next() {
		var (
			s        entity.Stop
			lat, lng decimal.Decimal
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.Address, &lat, &lng, &s.Approximate); err != nil {
			return nil, fmt.Errorf("scan route stop: %w", err)
		}
		s.Location = &entity.LatLng{Lat: lat.InexactFloat64(), Lng: lng.InexactFloat64()}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

func scanPlan(row pgx.Row) (*entity.RoutePlan, error) {
	var (
		p        entity.RoutePlan
		lat, lng decimal.Decimal
		legs     []byte
		order    []int32
	)
	err := row.Scan(
		&p.ID, &p.VendorID, &p.Origin.ID, &p.Origin.Name, &p.Origin.Address, &lat, &lng,
		&p.ReturnToOrigin, &order, &p.TotalDistanceMeters, &p.TotalDurationSeconds, &legs, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Origin.Location = &entity.LatLng{Lat: lat.InexactFloat64(), Lng: lng.InexactFloat64()}
	p.WaypointOrder = make([]int, len(order))
	for i, v := range order {
		p.WaypointOrder[i] = int(v)
	}
	if err := json.Unmarshal(legs, &p.Legs); err != nil {
		return nil, fmt.Errorf("deserializar tramos: %w", err)
	}
	return &p, nil
}

// uniqueViolation SQLSTATE de clave duplicada.
const uniqueViolation = "23505"

// insertPlanErr un id repetido es un conflicto de dominio; el resto se envuelve tal cual.
func insertPlanErr(err error, id string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: ruta %s ya existe", domain.ErrConflict, id)
	}
	return fmt.Errorf("insert route plan: %w", err)
}
