package repository

import (
	"context"
	"time"

	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
)

// SessionRepository almacén de sesiones del dashboard (tokens del backend por sesión).
type SessionRepository interface {
	// Get devuelve (nil, nil) si la sesión no existe o expiró.
	Get(ctx context.Context, id string) (*entity.Session, error)
	Save(ctx context.Context, s *entity.Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}
