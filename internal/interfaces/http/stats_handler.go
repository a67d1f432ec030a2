package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/scale-monitor-api/internal/application/dto"
	"github.com/jhoicas/scale-monitor-api/internal/infrastructure/metrics"
)

// StatsHandler contadores de llamadas al backend y a mapas para el panel de estadísticas.
type StatsHandler struct {
	m *metrics.Metrics
}

// NewStatsHandler construye el handler.
func NewStatsHandler(m *metrics.Metrics) *StatsHandler {
	return &StatsHandler{m: m}
}

// Get godoc
// @Summary      Llamadas por endpoint desde el arranque
// @Tags         stats
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  metrics.Stats
// @Router       /api/stats [get]
func (h *StatsHandler) Get(c *fiber.Ctx) error {
	st, err := h.m.Snapshot()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(st)
}

// Reset DELETE /api/stats (solo admin)
func (h *StatsHandler) Reset(c *fiber.Ctx) error {
	h.m.Reset()
	return c.SendStatus(fiber.StatusNoContent)
}
