package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/scale-monitor-api/internal/application/dto"
	"github.com/jhoicas/scale-monitor-api/internal/domain"
	"github.com/jhoicas/scale-monitor-api/internal/infrastructure/backend"
	"github.com/rs/zerolog/log"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// El orden importa: los errores de sesión y de identidad antes que los genéricos.
var errorMappings = []errorMapping{
	{domain.ErrAuthenticationRequired, fiber.StatusUnauthorized, "AUTH_REQUIRED"},
	{domain.ErrInvalidCredentials, fiber.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{domain.ErrEmailNotVerified, fiber.StatusForbidden, "EMAIL_NOT_VERIFIED"},
	{domain.ErrInsufficientHistory, fiber.StatusUnprocessableEntity, "INSUFFICIENT_HISTORY"},
	{domain.ErrInvalidOrderDate, fiber.StatusUnprocessableEntity, "VALIDATION"},
	{domain.ErrSuperseded, fiber.StatusConflict, "SUPERSEDED"},
	{domain.ErrMapsUnavailable, fiber.StatusServiceUnavailable, "MAPS_UNAVAILABLE"},
	{domain.ErrIdentityUnavailable, fiber.StatusBadGateway, "UPSTREAM_ERROR"},
	{domain.ErrUpstreamUnavailable, fiber.StatusBadGateway, "UPSTREAM_ERROR"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
	{context.DeadlineExceeded, fiber.StatusGatewayTimeout, "TIMEOUT"},
}

// respondError traduce un error de dominio o del backend a dto.ErrorResponse.
func respondError(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, "INTERNAL"
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			status, code = m.status, m.code
			break
		}
	}
	msg := err.Error()
	if apiErr, ok := backend.AsAPIError(err); ok {
		msg = apiErr.Message
		if status == fiber.StatusInternalServerError {
			status, code = fiber.StatusBadGateway, "UPSTREAM_ERROR"
		}
	}
	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Str("code", code).Msg("error en la petición")
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: msg})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

func validation(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: msg})
}
