package repository

import (
	"context"
	"time"

	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
)

// RoutePlanRepository rutas planificadas guardadas para imprimir o reabrir.
type RoutePlanRepository interface {
	Create(ctx context.Context, p *entity.RoutePlan) error
	// GetByID devuelve (nil, nil) si no existe.
	GetByID(ctx context.Context, vendorID, id string) (*entity.RoutePlan, error)
	ListByVendor(ctx context.Context, vendorID string, limit int) ([]*entity.RoutePlan, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}
