package maps

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/scale-monitor-api/internal/application/ports"
	"github.com/jhoicas/scale-monitor-api/internal/domain"
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
	"github.com/jhoicas/scale-monitor-api/internal/domain/repository"
)

var _ ports.Geocoder = (*GeocodeChain)(nil)

// GeocodeChain prueba la caché y luego cada proveedor en orden; si todos fallan
// usa el centroide de la ciudad. Solo los resultados de proveedores se cachean.
type GeocodeChain struct {
	cache     repository.GeocodeRepository
	providers []ports.Geocoder
	fallback  ports.Geocoder
}

// NewGeocodeChain cache puede ser nil (sin base de datos).
func NewGeocodeChain(cache repository.GeocodeRepository, providers ...ports.Geocoder) *GeocodeChain {
	return &GeocodeChain{cache: cache, providers: providers, fallback: Centroid{}}
}

// Geocode resuelve la dirección. Solo falla con entrada vacía o contexto cancelado.
func (c *GeocodeChain) Geocode(ctx context.Context, address string) (*entity.GeocodeResult, error) {
	key := NormalizeKey(address)
	if key == "" {
		return nil, domain.ErrInvalidInput
	}

	if c.cache != nil {
		hit, err := c.cache.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("geocode: error leyendo caché")
		} else if hit != nil {
			hit.Source = entity.GeocodeSourceCache
			return hit, nil
		}
	}

	for _, p := range c.providers {
		r, err := p.Geocode(ctx, address)
		if err == nil {
			c.store(ctx, key, *r)
			return r, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, domain.ErrNotFound) {
			log.Warn().Err(err).Str("address", address).Msg("geocode: proveedor falló, probando el siguiente")
		}
	}

	log.Info().Str("address", address).Msg("geocode: usando centroide aproximado")
	return c.fallback.Geocode(ctx, address)
}

func (c *GeocodeChain) store(ctx context.Context, key string, r entity.GeocodeResult) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Put(context.WithoutCancel(ctx), key, r); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("geocode: no se pudo guardar en caché")
	}
}

// NormalizeKey clave de caché estable para direcciones en hebreo o inglés:
// NFKC, sin mayúsculas, sin puntuación y con espacios colapsados.
func NormalizeKey(address string) string {
	s := norm.NFKC.String(address)
	s = cases.Fold().String(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case unicode.Is(unicode.Mn, r):
			// niqqud y otros diacríticos
			return -1
		default:
			return ' '
		}
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
