package routing

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/scale-monitor-api/internal/domain"
)

type waiter struct {
	seq       uint64
	cancelled chan struct{}
}

// debouncer deja pasar solo la última petición de cada sesión dentro de la ventana.
type debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	seq     uint64
	waiting map[string]*waiter
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay, waiting: make(map[string]*waiter)}
}

// wait espera la ventana. Si llega otra petición de la sesión mientras tanto,
// esta termina de inmediato con domain.ErrSuperseded.
func (d *debouncer) wait(ctx context.Context, sessionID string) error {
	if d.delay <= 0 || sessionID == "" {
		return nil
	}

	d.mu.Lock()
	if prev, ok := d.waiting[sessionID]; ok {
		close(prev.cancelled)
	}
	d.seq++
	w := &waiter{seq: d.seq, cancelled: make(chan struct{})}
	d.waiting[sessionID] = w
	d.mu.Unlock()

	timer := time.NewTimer(d.delay)
	defer timer.Stop()

	select {
	case <-w.cancelled:
		return domain.ErrSuperseded
	case <-ctx.Done():
		d.release(sessionID, w)
		return ctx.Err()
	case <-timer.C:
		if !d.release(sessionID, w) {
			return domain.ErrSuperseded
		}
		return nil
	}
}

// release quita la espera si sigue siendo la vigente de la sesión.
func (d *debouncer) release(sessionID string, w *waiter) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.waiting[sessionID]; ok && cur.seq == w.seq {
		delete(d.waiting, sessionID)
		return true
	}
	return false
}
