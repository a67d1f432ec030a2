// Package redisstore guarda las sesiones del dashboard en Redis para que varias
// réplicas del servicio compartan los tokens del backend.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
	"github.com/jhoicas/scale-monitor-api/internal/domain/repository"
	"github.com/jhoicas/scale-monitor-api/pkg/config"
)

var _ repository.SessionRepository = (*SessionStore)(nil)

const keyPrefix = "scale-monitor:session:"

// NewClient conecta con Redis y verifica la conexión con PING.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// SessionStore implementa repository.SessionRepository sobre Redis (un JSON por sesión con TTL).
type SessionStore struct {
	rdb redis.Cmdable
}

// NewSessionStore construye el almacén.
func NewSessionStore(rdb redis.Cmdable) *SessionStore {
	return &SessionStore{rdb: rdb}
}

// Get devuelve (nil, nil) si la clave no existe.
func (s *SessionStore) Get(ctx context.Context, id string) (*entity.Session, error) {
	raw, err := s.rdb.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get sesión: %w", err)
	}
	var sess entity.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("redis: sesión corrupta: %w", err)
	}
	return &sess, nil
}

// Save guarda la sesión; ttl 0 = sin expiración.
func (s *SessionStore) Save(ctx context.Context, sess *entity.Session, ttl time.Duration) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("redis: serializar sesión: %w", err)
	}
	if err := s.rdb.Set(ctx, keyPrefix+sess.ID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set sesión: %w", err)
	}
	return nil
}

// Delete elimina la sesión.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis: del sesión: %w", err)
	}
	return nil
}
