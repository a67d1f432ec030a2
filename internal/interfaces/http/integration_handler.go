package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/scale-monitor-api/internal/application/dto"
	"github.com/jhoicas/scale-monitor-api/internal/application/usecase"
)

// IntegrationHandler integraciones de pedidos y plan de suscripción.
type IntegrationHandler struct {
	uc *usecase.IntegrationUseCase
}

// NewIntegrationHandler construye el handler.
func NewIntegrationHandler(uc *usecase.IntegrationUseCase) *IntegrationHandler {
	return &IntegrationHandler{uc: uc}
}

// List GET /api/integrations
func (h *IntegrationHandler) List(c *fiber.Ctx) error {
	out, err := h.uc.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Connect godoc
// @Summary      Conectar una integración
// @Tags         integrations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ConnectIntegrationRequest  true  "type_id, config"
// @Success      200   {object}  entity.IntegrationType
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/integrations/connect [post]
func (h *IntegrationHandler) Connect(c *fiber.Ctx) error {
	var in dto.ConnectIntegrationRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Connect(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Disconnect POST /api/integrations/instance/:id/disconnect
func (h *IntegrationHandler) Disconnect(c *fiber.Ctx) error {
	if err := h.uc.Disconnect(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "integración desconectada"})
}

// Subscription GET /api/subscription
func (h *IntegrationHandler) Subscription(c *fiber.Ctx) error {
	out, err := h.uc.Subscription(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Upgrade godoc
// @Summary      Cambiar de plan
// @Tags         integrations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.UpgradeSubscriptionRequest  true  "tier_id"
// @Success      200   {object}  entity.Subscription
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/subscription/upgrade [post]
func (h *IntegrationHandler) Upgrade(c *fiber.Ctx) error {
	var in dto.UpgradeSubscriptionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Upgrade(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
