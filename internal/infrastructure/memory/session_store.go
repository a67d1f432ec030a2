// Package memory implementa almacenes en memoria para desarrollo y tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
	"github.com/jhoicas/scale-monitor-api/internal/domain/repository"
)

var _ repository.SessionRepository = (*SessionStore)(nil)

// sweepInterval frecuencia mínima de la purga de expiradas que hace Save.
const sweepInterval = time.Minute

type sessionEntry struct {
	session   entity.Session
	expiresAt time.Time
}

func (e sessionEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// SessionStore almacén de sesiones en memoria. Las expiradas se eliminan al
// leerlas y en una purga periódica durante Save.
type SessionStore struct {
	mu        sync.RWMutex
	entries   map[string]sessionEntry
	nextSweep time.Time
	now       func() time.Time
}

// NewSessionStore construye el almacén vacío.
func NewSessionStore() *SessionStore {
	return &SessionStore{entries: make(map[string]sessionEntry), now: time.Now}
}

// Get devuelve una copia de la sesión o (nil, nil) si no existe o expiró.
func (s *SessionStore) Get(_ context.Context, id string) (*entity.Session, error) {
	now := s.now()
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if e.expired(now) {
		return s.dropExpired(id, now), nil
	}
	cp := e.session
	return &cp, nil
}

// dropExpired vuelve a leer la entrada con el lock de escritura: un Save
// concurrente pudo renovarla entre la lectura y el borrado.
func (s *SessionStore) dropExpired(id string, now time.Time) *entity.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil
	}
	if e.expired(now) {
		delete(s.entries, id)
		return nil
	}
	cp := e.session
	return &cp
}

// Save guarda una copia de la sesión; ttl 0 = sin expiración.
func (s *SessionStore) Save(_ context.Context, sess *entity.Session, ttl time.Duration) error {
	now := s.now()
	e := sessionEntry{session: *sess}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sess.ID] = e
	if now.After(s.nextSweep) {
		for k, v := range s.entries {
			if v.expired(now) {
				delete(s.entries, k)
			}
		}
		s.nextSweep = now.Add(sweepInterval)
	}
	return nil
}

// Delete elimina la sesión (idempotente).
func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// Len número de sesiones guardadas (incluye expiradas no purgadas).
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
