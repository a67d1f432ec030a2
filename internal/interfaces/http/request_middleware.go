package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// HeaderRequestID cabecera con el id de la petición.
const HeaderRequestID = "X-Request-ID"

// HTTPRecorder cuenta las peticiones atendidas por ruta. Lo implementa *metrics.Metrics.
type HTTPRecorder interface {
	ObserveHTTP(route, method string, status int)
}

// RequestLogger asigna un id a cada petición, registra método, ruta, status y latencia,
// y la cuenta en métricas. recorder puede ser nil.
func RequestLogger(recorder HTTPRecorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		rid := c.Get(HeaderRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(HeaderRequestID, rid)

		err := c.Next()
		if err != nil {
			// El error handler de Fiber aún no escribió la respuesta.
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		status := c.Response().StatusCode()
		route := c.Route().Path

		ev := log.Info()
		if status >= fiber.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("request_id", rid).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("route", route).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("petición HTTP")

		if recorder != nil {
			recorder.ObserveHTTP(route, c.Method(), status)
		}
		return nil
	}
}
