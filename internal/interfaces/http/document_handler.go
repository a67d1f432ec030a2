package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/scale-monitor-api/internal/application/dto"
	"github.com/jhoicas/scale-monitor-api/internal/application/usecase"
)

// DocumentHandler artículos, facturas y pedidos que llegan por las integraciones.
type DocumentHandler struct {
	uc *usecase.DocumentUseCase
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(uc *usecase.DocumentUseCase) *DocumentHandler {
	return &DocumentHandler{uc: uc}
}

// Items GET /api/items
func (h *DocumentHandler) Items(c *fiber.Ctx) error {
	out, err := h.uc.Items(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Invoices godoc
// @Summary      Facturas paginadas
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        limit      query  int     false  "Tamaño de página"  default(20)
// @Param        start_key  query  string  false  "Cursor devuelto como next_page_token"
// @Param        status     query  string  false  "Filtro por estado"
// @Param        search     query  string  false  "Texto a buscar"
// @Success      200  {object}  dto.PageResponse[entity.Invoice]
// @Router       /api/invoices [get]
func (h *DocumentHandler) Invoices(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_PARAMS", Message: "parámetros de consulta inválidos"})
	}
	out, err := h.uc.Invoices(c.UserContext(), page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Orders godoc
// @Summary      Pedidos paginados
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        limit      query  int     false  "Tamaño de página"  default(20)
// @Param        start_key  query  string  false  "Cursor devuelto como next_page_token"
// @Param        status     query  string  false  "Filtro por estado"
// @Param        search     query  string  false  "Texto a buscar"
// @Success      200  {object}  dto.PageResponse[entity.Order]
// @Router       /api/orders [get]
func (h *DocumentHandler) Orders(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_PARAMS", Message: "parámetros de consulta inválidos"})
	}
	out, err := h.uc.Orders(c.UserContext(), page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// LastOrder GET /api/orders/last-order?customer_id=...&item_id=...
func (h *DocumentHandler) LastOrder(c *fiber.Ctx) error {
	out, err := h.uc.LastOrder(c.UserContext(), c.Query("customer_id"), c.Query("item_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
