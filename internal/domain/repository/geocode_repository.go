package repository

import (
	"context"
	"time"

	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
)

// GeocodeRepository caché persistente de direcciones ya geocodificadas.
type GeocodeRepository interface {
	// Get devuelve (nil, nil) si la clave no está en caché.
	Get(ctx context.Context, key string) (*entity.GeocodeResult, error)
	Put(ctx context.Context, key string, r entity.GeocodeResult) error
	PurgeOlderThan(ctx context.Context, before time.Time) (int64, error)
}
