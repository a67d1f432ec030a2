package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/scale-monitor-api/internal/application/analytics"
	"github.com/jhoicas/scale-monitor-api/internal/application/auth"
	"github.com/jhoicas/scale-monitor-api/internal/application/ports"
	"github.com/jhoicas/scale-monitor-api/internal/application/routing"
	"github.com/jhoicas/scale-monitor-api/internal/application/usecase"
	"github.com/jhoicas/scale-monitor-api/internal/domain/repository"
	"github.com/jhoicas/scale-monitor-api/internal/infrastructure/backend"
	"github.com/jhoicas/scale-monitor-api/internal/infrastructure/identity"
	"github.com/jhoicas/scale-monitor-api/internal/infrastructure/maps"
	"github.com/jhoicas/scale-monitor-api/internal/infrastructure/memory"
	"github.com/jhoicas/scale-monitor-api/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/scale-monitor-api/internal/infrastructure/pdf"
	"github.com/jhoicas/scale-monitor-api/internal/infrastructure/postgres"
	"github.com/jhoicas/scale-monitor-api/internal/infrastructure/redisstore"
	"github.com/jhoicas/scale-monitor-api/internal/infrastructure/scheduler"
	httpRouter "github.com/jhoicas/scale-monitor-api/internal/interfaces/http"
	"github.com/jhoicas/scale-monitor-api/pkg/config"
	"github.com/jhoicas/scale-monitor-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("api_base_url", cfg.Upstream.BaseURL).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es requerido")
	}

	ctx := context.Background()
	m := metrics.New(true)
	outbound := &http.Client{Timeout: cfg.Upstream.Timeout}

	// Sesiones: Redis si está configurado, si no en memoria (una sola instancia).
	var sessions repository.SessionRepository
	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		sessions = redisstore.NewSessionStore(rdb)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("sesiones en Redis")
	} else {
		sessions = memory.NewSessionStore()
		log.Warn().Msg("REDIS_ADDR vacío: sesiones en memoria")
	}

	tokens := backend.NewTokenSource(sessions, cfg.Upstream.BaseURL, cfg.Session.TTL, outbound)
	api, err := backend.NewClient(backend.Config{
		BaseURL:    cfg.Upstream.BaseURL,
		Timeout:    cfg.Upstream.Timeout,
		RetryDelay: cfg.Upstream.RetryDelay,
		HTTPClient: outbound,
		Metrics:    m,
	}, tokens)
	if err != nil {
		log.Fatal().Err(err).Msg("cliente del backend")
	}

	var idp ports.IdentityProvider
	if cfg.Identity.Configured() {
		idp = identity.NewCognitoProvider(cfg.Identity, "", outbound)
	} else {
		idp = identity.NewMockProvider()
		log.Warn().Msg("COGNITO_USER_POOL_ID vacío: proveedor de identidad simulado")
	}

	// PostgreSQL es opcional: caché de geocodificación y rutas guardadas.
	var (
		geocodeCache repository.GeocodeRepository
		plans        repository.RoutePlanRepository
		jobs         *scheduler.Scheduler
	)
	if cfg.DB.Enabled() {
		if err := postgres.Migrate(cfg.DB, "up", 0); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()

		geocodeRepo := postgres.NewGeocodeRepository(pool)
		planRepo := postgres.NewRoutePlanRepository(pool)
		geocodeCache, plans = geocodeRepo, planRepo

		jobs = scheduler.New()
		if err := jobs.AddGeocodePurge(cfg.Cron.GeocodePurgeSpec, geocodeRepo, days(cfg.Cron.GeocodeTTLDays)); err != nil {
			log.Fatal().Err(err).Msg("cron de caché de geocodificación")
		}
		if err := jobs.AddRoutePlanRetention(cfg.Cron.RoutePlanRetentionSpec, planRepo, days(cfg.Cron.RouteRetention)); err != nil {
			log.Fatal().Err(err).Msg("cron de retención de rutas")
		}
		jobs.Start()
	} else {
		log.Warn().Msg("sin base de datos: geocodificación sin caché persistente y rutas sin guardar")
	}

	// Geocodificación: proveedor con key, Nominatim y por último el centroide.
	var geocoders []ports.Geocoder
	if cfg.Maps.Enabled() {
		geocoders = append(geocoders, maps.NewGoogleGeocoder(cfg.Maps.GeocodeURL, cfg.Maps.APIKey, region(cfg.Maps.CountryCodes), outbound, m))
	} else {
		log.Warn().Msg("MAPS_API_KEY vacío: sin direcciones y geocodificación solo por Nominatim")
	}
	geocoders = append(geocoders, maps.NewNominatim(cfg.Maps.NominatimURL, cfg.Maps.CountryCodes, outbound, m))
	geocoder := maps.NewGeocodeChain(geocodeCache, geocoders...)
	directions := maps.NewGoogleDirections(cfg.Maps.DirectionsURL, cfg.Maps.APIKey, outbound, m)

	customerUC := usecase.NewCustomerUseCase(api)
	planner := routing.NewPlanner(directions, geocoder, customerUC, plans, infrapdf.NewRouteSheetGenerator(), m, routing.Config{
		DebounceDelay: cfg.Maps.DebounceDelay,
		MinInterval:   cfg.Maps.MinRouteInterval,
	})

	authUC := auth.NewAuthUseCase(idp, sessions, tokens, api, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	}, cfg.Session.TTL)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.HTTP.AllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, " + httpRouter.HeaderRequestID,
	}))
	app.Use(httpRouter.RequestLogger(m))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Scale Monitor API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:        authUC,
		CustomerUC:    customerUC,
		ProductUC:     usecase.NewProductUseCase(api),
		VendorUC:      usecase.NewVendorUseCase(api),
		ScaleUC:       usecase.NewScaleUseCase(api),
		DocumentUC:    usecase.NewDocumentUseCase(api),
		IntegrationUC: usecase.NewIntegrationUseCase(api),
		AnalyticsUC:   analytics.NewUseCase(api),
		Planner:       planner,
		Metrics:       m,
		JWTSecret:     cfg.JWT.Secret,
		CookieDomain:  cfg.Session.CookieDomain,
		SecureCookie:  cfg.App.Env == "production",
		ServiceName:   cfg.App.Name,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if jobs != nil {
		jobs.Stop(shutdownCtx)
	}

	log.Info().Msg("aplicación detenida")
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// region primer código de país de la lista (sesgo de resultados del geocoder).
func region(countryCodes string) string {
	first, _, _ := strings.Cut(countryCodes, ",")
	return strings.ToLower(strings.TrimSpace(first))
}
