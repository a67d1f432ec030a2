package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/scale-monitor-api/internal/application/analytics"
	"github.com/jhoicas/scale-monitor-api/internal/application/dto"
)

// AnalyticsHandler estimación de consumo y urgencia de reposición.
type AnalyticsHandler struct {
	uc *analytics.UseCase
}

// NewAnalyticsHandler construye el handler.
func NewAnalyticsHandler(uc *analytics.UseCase) *AnalyticsHandler {
	return &AnalyticsHandler{uc: uc}
}

// Product godoc
// @Summary      Estimación de consumo de un producto
// @Description  Toma el historial de pedidos del artículo del producto. Con menos de dos
// @Description  pedidos responde 422 INSUFFICIENT_HISTORY si no hay artículo asociado, o
// @Description  insufficient_history=true sin cifras.
// @Tags         analytics
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {object}  dto.ProductAnalyticsResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/analytics/products/{id} [get]
func (h *AnalyticsHandler) Product(c *fiber.Ctx) error {
	out, err := h.uc.ForProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// CustomerItem godoc
// @Summary      Estimación de consumo por cliente y artículo
// @Tags         analytics
// @Security     Bearer
// @Produce      json
// @Param        customer_id  path  string  true  "ID del cliente"
// @Param        item_id      path  string  true  "ID externo del artículo"
// @Success      200  {object}  dto.ProductAnalyticsResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/analytics/customers/{customer_id}/items/{item_id} [get]
func (h *AnalyticsHandler) CustomerItem(c *fiber.Ctx) error {
	out, err := h.uc.ProductAnalytics(c.UserContext(), c.Params("customer_id"), c.Params("item_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Overview godoc
// @Summary      Productos ordenados por urgencia de reposición
// @Tags         analytics
// @Security     Bearer
// @Produce      json
// @Param        customer_id  query  string  false  "Solo los productos del cliente"
// @Success      200  {object}  dto.OverviewResponse
// @Router       /api/analytics/overview [get]
func (h *AnalyticsHandler) Overview(c *fiber.Ctx) error {
	var in dto.OverviewRequest
	if err := c.QueryParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_PARAMS", Message: "parámetros de consulta inválidos"})
	}
	out, err := h.uc.Overview(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
