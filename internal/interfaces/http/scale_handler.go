package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/scale-monitor-api/internal/application/dto"
	"github.com/jhoicas/scale-monitor-api/internal/application/usecase"
)

// ScaleHandler básculas y sus mediciones.
type ScaleHandler struct {
	uc *usecase.ScaleUseCase
}

// NewScaleHandler construye el handler.
func NewScaleHandler(uc *usecase.ScaleUseCase) *ScaleHandler {
	return &ScaleHandler{uc: uc}
}

// List godoc
// @Summary      Listar básculas
// @Tags         scales
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  entity.Scale
// @Router       /api/scales [get]
func (h *ScaleHandler) List(c *fiber.Ctx) error {
	out, err := h.uc.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener báscula
// @Tags         scales
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la báscula"
// @Success      200  {object}  entity.Scale
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/scales/{id} [get]
func (h *ScaleHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Register godoc
// @Summary      Registrar una báscula por su número de serie
// @Tags         scales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterScaleRequest  true  "id"
// @Success      201   {object}  entity.Scale
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/scales/register [post]
func (h *ScaleHandler) Register(c *fiber.Ctx) error {
	var in dto.RegisterScaleRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Register(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Update godoc
// @Summary      Actualizar báscula
// @Tags         scales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la báscula"
// @Param        body  body  dto.UpdateScaleRequest  true  "Campos a actualizar"
// @Success      200   {object}  entity.Scale
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/scales/{id} [put]
func (h *ScaleHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateScaleRequest
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
// @Summary      Eliminar báscula
// @Tags         scales
// @Security     Bearer
// @Param        id   path  string  true  "ID de la báscula"
// @Success      204
// @Router       /api/scales/{id} [delete]
func (h *ScaleHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Measurements godoc
// @Summary      Mediciones de una báscula en un rango
// @Description  Sin rango se devuelven las últimas 24 horas. Fechas en RFC3339.
// @Tags         scales
// @Security     Bearer
// @Produce      json
// @Param        id          path   string  true   "ID de la báscula"
// @Param        start_date  query  string  false  "Inicio (RFC3339)"
// @Param        end_date    query  string  false  "Fin (RFC3339)"
// @Success      200  {array}   entity.Measurement
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/measurements/scale/{id} [get]
func (h *ScaleHandler) Measurements(c *fiber.Ctx) error {
	var r dto.MeasurementRange
	var err error
	if r.From, err = queryTime(c, "start_date"); err != nil {
		return validation(c, "start_date debe ser RFC3339")
	}
	if r.To, err = queryTime(c, "end_date"); err != nil {
		return validation(c, "end_date debe ser RFC3339")
	}
	out, err := h.uc.Measurements(c.UserContext(), c.Params("id"), r)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// LatestAll godoc
// @Summary      Última medición de cada báscula
// @Tags         scales
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  entity.Measurement
// @Router       /api/measurements [get]
func (h *ScaleHandler) LatestAll(c *fiber.Ctx) error {
	out, err := h.uc.LatestAll(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Latest godoc
// @Summary      Última medición de una báscula
// @Tags         scales
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la báscula"
// @Success      200  {object}  entity.Measurement
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/measurements/scale/{id}/latest [get]
func (h *ScaleHandler) Latest(c *fiber.Ctx) error {
	out, err := h.uc.Latest(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// queryTime acepta RFC3339 o solo fecha (YYYY-MM-DD). Vacío devuelve el tiempo cero.
func queryTime(c *fiber.Ctx, key string) (time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, v)
}
