package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
	"github.com/jhoicas/scale-monitor-api/internal/domain/repository"
)

var _ repository.GeocodeRepository = (*GeocodeRepo)(nil)

// GeocodeRepo caché de geocodificación sobre PostgreSQL.
type GeocodeRepo struct {
	db Querier
}

// NewGeocodeRepository construye el adaptador.
func NewGeocodeRepository(db Querier) *GeocodeRepo {
	return &GeocodeRepo{db: db}
}

// Get devuelve la entrada cacheada o (nil, nil).
func (r *GeocodeRepo) Get(ctx context.Context, key string) (*entity.GeocodeResult, error) {
	query := `
		SELECT query, lat, lng, formatted_address, source, approximate
		FROM geocode_cache WHERE cache_key = $1`
	var (
		res      entity.GeocodeResult
		lat, lng decimal.Decimal
	)
	err := r.db.QueryRow(ctx, query, key).Scan(
		&res.Query, &lat, &lng, &res.FormattedAddress, &res.Source, &res.Approximate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get geocode: %w", err)
	}
	res.Location = entity.LatLng{Lat: lat.InexactFloat64(), Lng: lng.InexactFloat64()}
	return &res, nil
}

// Put inserta o reemplaza la entrada y renueva su fecha.
func (r *GeocodeRepo) Put(ctx context.Context, key string, res entity.GeocodeResult) error {
	query := `
		INSERT INTO geocode_cache (cache_key, query, lat, lng, formatted_address, source, approximate, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (cache_key) DO UPDATE SET
			query = EXCLUDED.query, lat = EXCLUDED.lat, lng = EXCLUDED.lng,
			formatted_address = EXCLUDED.formatted_address, source = EXCLUDED.source,
			approximate = EXCLUDED.approximate, created_at = NOW()`
	_, err := r.db.Exec(ctx, query,
		key, res.Query, coord(res.Location.Lat), coord(res.Location.Lng),
		res.FormattedAddress, res.Source, res.Approximate,
	)
	if err != nil {
		return fmt.Errorf("upsert geocode: %w", err)
	}
	return nil
}

// PurgeOlderThan elimina las entradas anteriores a before.
func (r *GeocodeRepo) PurgeOlderThan(ctx context.Context, before time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM geocode_cache WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge geocode: %w", err)
	}
	return cmd.RowsAffected(), nil
}

// coord redondea a 6 decimales (~10 cm), la precisión de las columnas.
func coord(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(6)
}
