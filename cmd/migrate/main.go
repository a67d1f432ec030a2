// migrate aplica o revierte las migraciones de la caché de geocodificación y las
// rutas guardadas contra la base configurada en el entorno (DATABASE_URL o DB_*).
//
// Uso: go run ./cmd/migrate [-direction up|down] [-steps N]
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/scale-monitor-api/internal/infrastructure/postgres"
	"github.com/jhoicas/scale-monitor-api/pkg/config"
	"github.com/jhoicas/scale-monitor-api/pkg/logger"
)

func main() {
	direction := flag.String("direction", "up", "up o down")
	steps := flag.Int("steps", 0, "cantidad de migraciones; 0 = todas")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	if !cfg.DB.Enabled() {
		fmt.Fprintln(os.Stderr, "Sin base de datos: defina DATABASE_URL o DB_HOST")
		os.Exit(1)
	}

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "migrate"})
	if err := postgres.Migrate(cfg.DB, *direction, *steps); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}
}
