package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/scale-monitor-api/internal/application/dto"
	"github.com/jhoicas/scale-monitor-api/internal/application/usecase"
)

// VendorHandler vendors (CRUD de administrador) y el perfil del vendor de la sesión.
type VendorHandler struct {
	uc *usecase.VendorUseCase
}

// NewVendorHandler construye el handler.
func NewVendorHandler(uc *usecase.VendorUseCase) *VendorHandler {
	return &VendorHandler{uc: uc}
}

// List godoc
// @Summary      Listar vendors
// @Tags         vendors
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   entity.Vendor
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/vendors [get]
func (h *VendorHandler) List(c *fiber.Ctx) error {
	out, err := h.uc.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener vendor
// @Tags         vendors
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del vendor"
// @Success      200  {object}  entity.Vendor
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/vendors/{id} [get]
func (h *VendorHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Create godoc
// @Summary      Crear vendor
// @Tags         vendors
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.VendorRequest  true  "Datos del vendor"
// @Success      201   {object}  entity.Vendor
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/vendors [post]
func (h *VendorHandler) Create(c *fiber.Ctx) error {
	var in dto.VendorRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Create(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Update godoc
// @Summary      Actualizar vendor
// @Tags         vendors
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del vendor"
// @Param        body  body  dto.VendorRequest  true  "Datos del vendor"
// @Success      200   {object}  entity.Vendor
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/vendors/{id} [put]
func (h *VendorHandler) Update(c *fiber.Ctx) error {
	var in dto.VendorRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Update(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar vendor
// @Tags         vendors
// @Security     Bearer
// @Param        id   path  string  true  "ID del vendor"
// @Success      204
// @Router       /api/vendors/{id} [delete]
func (h *VendorHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Me GET /api/vendors/me
func (h *VendorHandler) Me(c *fiber.Ctx) error {
	out, err := h.uc.Me(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// UpdateMe PUT /api/vendors/me
func (h *VendorHandler) UpdateMe(c *fiber.Ctx) error {
	var in dto.VendorRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.UpdateMe(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Addresses GET /api/vendors/addresses
func (h *VendorHandler) Addresses(c *fiber.Ctx) error {
	out, err := h.uc.Addresses(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// AddAddress POST /api/vendors/addresses
// Las direcciones son los orígenes disponibles en el planificador de rutas.
func (h *VendorHandler) AddAddress(c *fiber.Ctx) error {
	var in dto.AddressRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.AddAddress(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Workspaces GET /api/vendors/workspaces
func (h *VendorHandler) Workspaces(c *fiber.Ctx) error {
	out, err := h.uc.Workspaces(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
