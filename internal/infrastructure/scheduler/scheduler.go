// Package scheduler ejecuta las tareas periódicas de mantenimiento: purga de la
// caché de geocodificación y retención de rutas guardadas.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jhoicas/scale-monitor-api/internal/domain/repository"
)

const jobTimeout = 2 * time.Minute

// Scheduler envoltorio de cron con logs en zerolog.
type Scheduler struct {
	cron *cron.Cron
	now  func() time.Time
}

// New construye el scheduler; un job que sigue corriendo no se solapa con el siguiente.
func New() *Scheduler {
	logger := cronLogger{log: log.With().Str("component", "scheduler").Logger()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		now: time.Now,
	}
}

// AddGeocodePurge programa la purga de entradas de geocodificación más viejas que ttl.
func (s *Scheduler) AddGeocodePurge(spec string, repo repository.GeocodeRepository, ttl time.Duration) error {
	return s.add(spec, "geocode_purge", func(ctx context.Context) (int64, error) {
		return repo.PurgeOlderThan(ctx, s.now().Add(-ttl))
	})
}

// AddRoutePlanRetention programa el borrado de rutas guardadas más viejas que retention.
func (s *Scheduler) AddRoutePlanRetention(spec string, repo repository.RoutePlanRepository, retention time.Duration) error {
	return s.add(spec, "route_plan_retention", func(ctx context.Context) (int64, error) {
		return repo.DeleteOlderThan(ctx, s.now().Add(-retention))
	})
}

func (s *Scheduler) add(spec, name string, job func(ctx context.Context) (int64, error)) error {
	_, err := s.cron.AddFunc(spec, func() { runJob(name, job) })
	if err != nil {
		return fmt.Errorf("scheduler: spec inválido %q para %s: %w", spec, name, err)
	}
	log.Info().Str("job", name).Str("spec", spec).Msg("scheduler: job programado")
	return nil
}

// runJob ejecuta un job con timeout y registra el resultado.
func runJob(name string, job func(ctx context.Context) (int64, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	n, err := job(ctx)
	if err != nil {
		log.Error().Err(err).Str("job", name).Msg("scheduler: job falló")
		return
	}
	log.Info().Str("job", name).Int64("rows", n).Dur("elapsed", time.Since(start)).Msg("scheduler: job completado")
}

// Len número de jobs programados.
func (s *Scheduler) Len() int { return len(s.cron.Entries()) }

// Start arranca el scheduler en su propia goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop detiene el scheduler y espera a los jobs en curso hasta que ctx venza.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		log.Warn().Msg("scheduler: jobs en curso no terminaron a tiempo")
	}
}

// cronLogger adapta zerolog a cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
